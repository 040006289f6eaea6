package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"apradar/internal/model"
	"apradar/internal/normalize"
)

var (
	networkBSSID string

	networkCmd = &cobra.Command{
		Use:   "network",
		Short: "Print the latest scan and recent history of one network",
		RunE:  runNetwork,
	}
)

type networkDetail struct {
	Latest  model.ScanRecord   `json:"latest"`
	History []model.ScanRecord `json:"history"`
}

func init() {
	networkCmd.Flags().StringVar(&networkBSSID, "bssid", "", "network to look up")
	_ = networkCmd.MarkFlagRequired("bssid")
}

func runNetwork(cmd *cobra.Command, _ []string) error {
	bssid := normalize.NormalizeBSSID(networkBSSID)
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := mgr.Get()
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, "network")
	if err != nil {
		return err
	}
	defer store.Close()

	latest, ok, err := store.Latest(ctx, bssid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("network %s not found", bssid)
	}
	history, err := store.ScanHistory(ctx, bssid, cfg.Scoring.HistoryLimit)
	if err != nil {
		return err
	}
	if history == nil {
		history = []model.ScanRecord{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(networkDetail{Latest: latest, History: history})
}
