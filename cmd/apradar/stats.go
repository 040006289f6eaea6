package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

var (
	statsSince time.Duration

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print network statistics from storage",
		RunE:  runStats,
	}
)

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 5*time.Minute, "networks seen within this window count as active")
}

func runStats(cmd *cobra.Command, _ []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, mgr.Get(), "stats")
	if err != nil {
		return err
	}
	defer store.Close()
	stats, err := store.Stats(ctx, time.Now().Add(-statsSince))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
