package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"apradar/internal/config"
	"apradar/internal/export"
	"apradar/internal/ingest"
	"apradar/internal/logging"
	"apradar/internal/model"
	"apradar/internal/normalize"
	"apradar/internal/risk"
)

var (
	scoreFile   string
	scoreFormat string

	scoreCmd = &cobra.Command{
		Use:   "score",
		Short: "Score a scan export offline and print the reports",
		Long: `score reads a scan export (JSON array, NDJSON, CSV or key=value lines),
scores each record against the earlier records of the same BSSID in the file
and writes the results as json, csv or kml.`,
		RunE: runScore,
	}
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreFile, "file", "f", "-", "scan export to read, - for stdin")
	scoreCmd.Flags().StringVar(&scoreFormat, "format", "json", "output format: json, csv or kml")
}

func runScore(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(scoreFormat)
	if err != nil {
		return err
	}
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := mgr.Get()
	logger := logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)

	var in io.Reader = cmd.InOrStdin()
	if scoreFile != "-" {
		f, err := os.Open(scoreFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	fields, err := ingest.ParseDocument(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", scoreFile, err)
	}
	records, skipped := scoreRecords(fields, cfg, risk.NewEngine())
	for _, err := range skipped {
		logger.Warn("skipped record", "err", err)
	}
	return export.Write(cmd.OutOrStdout(), format, records)
}

// scoreRecords scores records in file order. Each record is evaluated at its
// own timestamp with the file's earlier records for its BSSID as history,
// most recent first and bounded by the history limit.
func scoreRecords(fields []normalize.ScanFields, cfg *config.Config, scorer *risk.Engine) ([]model.ScanRecord, []error) {
	loc := cfg.Location()
	limit := cfg.Scoring.HistoryLimit
	seen := map[string][]model.Observation{}
	var (
		out     []model.ScanRecord
		skipped []error
	)
	for i, f := range fields {
		obs, err := normalize.Normalize(f, cfg)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		obs.Source = ingest.SourceFile
		prior := seen[obs.BSSID]
		history := make([]model.Observation, 0, min(len(prior), limit))
		for j := len(prior) - 1; j >= 0 && len(history) < limit; j-- {
			history = append(history, prior[j])
		}
		report := scorer.Assess(obs, history, obs.Timestamp.In(loc))
		out = append(out, model.ScanRecord{Observation: obs, Report: report})
		seen[obs.BSSID] = append(prior, obs)
	}
	return out, skipped
}
