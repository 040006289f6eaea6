package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"apradar/internal/alerts"
	"apradar/internal/config"
	"apradar/internal/engine"
	"apradar/internal/ingest"
	"apradar/internal/logging"
	"apradar/internal/model"
	"apradar/internal/notify"
	"apradar/internal/reports"
	"apradar/internal/risk"
	"apradar/internal/storage"
	"apradar/internal/telemetry"
)

const (
	statsInterval = time.Minute
	activeWindow  = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest and scoring pipeline until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := mgr.Get()
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Close()
		logger.Info("storage enabled", "driver", cfg.Storage.Driver)
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Warn("remote notifier unavailable, continuing without it", "err", err)
	}
	defer notifier.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	reportStore := reports.NewStore(cfg.Reports.StoreLimit)
	alertStore := alerts.NewStore(cfg.Alerts.StoreLimit)
	seedReports(ctx, store, reportStore, cfg.Reports.StoreLimit, logger)

	eng := engine.NewEngine(cfg, engine.Deps{
		Logger:   logger,
		Scorer:   risk.NewEngine(),
		Reports:  reportStore,
		Alerts:   alertStore,
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics,
	})

	observations := make(chan model.Observation, cfg.Ingest.ChannelBuffer)
	ingest.StartKafka(ctx, mgr, observations, logger)
	if _, err := ingest.StartTCPStream(ctx, mgr, observations, logger); err != nil {
		return err
	}
	ingest.StartFileTail(ctx, mgr, observations, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eng.Run(gctx, observations)
		return nil
	})
	g.Go(func() error {
		return mgr.Watch(func(next *config.Config) {
			eng.UpdateConfig(next)
			logger.Info("config reloaded", "path", mgr.Path())
		}, func(err error) {
			logger.Warn("config reload failed", "err", err)
		}, gctx.Done())
	})
	g.Go(func() error {
		logStats(gctx, reportStore, alertStore, logger)
		return nil
	})
	if cfg.Telemetry.Enabled {
		g.Go(func() error {
			return telemetry.Serve(gctx, cfg.Telemetry.Addr, reg, logger)
		})
	}

	logger.Info("apradar started")
	err = g.Wait()
	logger.Info("apradar stopped")
	return err
}

// seedReports restores the reports cache from storage so a restart does not
// start from an empty view.
func seedReports(ctx context.Context, store storage.Store, cache *reports.Store, limit int, logger *slog.Logger) {
	if store == nil {
		return
	}
	records, err := store.LatestScans(ctx, limit)
	if err != nil {
		logger.Warn("seed reports from storage failed", "err", err)
		return
	}
	// Lowest score first so the LRU keeps the riskiest networks when full.
	for i := len(records) - 1; i >= 0; i-- {
		cache.Update(records[i])
	}
	logger.Info("reports restored", "networks", len(records))
}

func logStats(ctx context.Context, cache *reports.Store, alertStore *alerts.Store, logger *slog.Logger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stats := cache.Stats(now.Add(-activeWindow))
			logger.Info("network stats",
				"total", stats.TotalNetworks,
				"active", stats.ActiveNetworks,
				"high_risk", stats.HighRiskNetworks,
				"open", stats.OpenNetworks,
				"hidden", stats.HiddenNetworks,
				"recent_alerts", len(alertStore.Since(now.Add(-activeWindow))),
			)
			if top := cache.List(1); len(top) > 0 {
				logger.Info("riskiest network",
					"bssid", top[0].Observation.BSSID,
					"ssid", top[0].Observation.SSID,
					"score", top[0].Report.Score,
					"level", top[0].Report.Level,
				)
			}
		}
	}
}
