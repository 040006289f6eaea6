package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"apradar/internal/config"
	"apradar/internal/storage"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "apradar",
		Short: "Score nearby Wi-Fi access points for security risk",
		Long: `apradar ingests Wi-Fi scan records, scores every access point with a
fixed set of risk factors and raises alerts for risky or blocked networks.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON config file")
	rootCmd.AddCommand(serveCmd, scoreCmd, exportCmd, statsCmd, networkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given and falls back to defaults plus
// environment overrides otherwise.
func loadConfig() (*config.Manager, error) {
	if configPath == "" {
		cfg := config.DefaultConfig()
		config.ApplyEnv(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return config.NewStaticManager(cfg), nil
	}
	mgr, err := config.NewManager(config.ResolvePath(configPath))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return mgr, nil
}

// openStore opens and initializes storage for commands that only read it.
func openStore(ctx context.Context, cfg *config.Config, command string) (storage.Store, error) {
	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%s reads from storage; enable storage in the config", command)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
