package main

import (
	"time"

	"github.com/spf13/cobra"

	"apradar/internal/export"
)

var (
	exportFormat string
	exportOut    string
	exportLimit  int

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the latest scan of every stored network",
		RunE:  runExport,
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json, csv or kml")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output directory, - for stdout (default export.dir)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "maximum networks to export, 0 for all")
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := mgr.Get()
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, "export")
	if err != nil {
		return err
	}
	defer store.Close()
	records, err := store.LatestScans(ctx, exportLimit)
	if err != nil {
		return err
	}
	if exportOut == "-" {
		return export.Write(cmd.OutOrStdout(), format, records)
	}
	dir := exportOut
	if dir == "" {
		dir = cfg.Export.Dir
	}
	path, err := export.WriteFile(dir, format, records, time.Now())
	if err != nil {
		return err
	}
	cmd.Printf("exported %d networks to %s\n", len(records), path)
	return nil
}
