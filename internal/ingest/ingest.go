package ingest

import (
	"context"
	"log/slog"
	"time"

	"apradar/internal/config"
	"apradar/internal/model"
	"apradar/internal/normalize"
)

// Source names stamped on observations.
const (
	SourceKafka     = "kafka"
	SourceTCPStream = "tcp_stream"
	SourceFileTail  = "file_tail"
	SourceFile      = "file"
)

func SendNonBlocking(ctx context.Context, out chan<- model.Observation, obs model.Observation, logger *slog.Logger) bool {
	select {
	case out <- obs:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("observation channel full, dropping scan", "bssid", obs.BSSID, "source", obs.Source)
		}
		return false
	}
}

// handleLine parses, normalizes and forwards one line. Unparseable lines and
// records without a BSSID are logged and dropped.
func handleLine(ctx context.Context, line, source string, cfg *config.Manager, parser *Parser, out chan<- model.Observation, logger *slog.Logger) {
	fields, err := parser.ParseLine(line)
	if err != nil || fields == nil {
		return
	}
	obs, err := normalize.Normalize(*fields, cfg.Get())
	if err != nil {
		if logger != nil {
			logger.Warn("normalize error", "source", source, "err", err)
		}
		return
	}
	obs.Source = source
	SendNonBlocking(ctx, out, obs, logger)
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
