package ingest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"apradar/internal/config"
	"apradar/internal/model"
)

// StartFileTail follows scanner log files. A truncated or rotated file is
// reopened from the start.
func StartFileTail(ctx context.Context, cfg *config.Manager, out chan<- model.Observation, logger *slog.Logger) {
	current := cfg.Get().Ingest.FileTail
	if !current.Enabled {
		if logger != nil {
			logger.Info("file tail ingest disabled")
		}
		return
	}
	for _, path := range current.Files {
		if logger != nil {
			logger.Info("file tail ingest enabled", "path", path, "start_at_end", current.StartAtEnd)
		}
		go tailFile(ctx, path, current.StartAtEnd, cfg, out, logger)
	}
}

func tailFile(ctx context.Context, path string, startAtEnd bool, cfg *config.Manager, out chan<- model.Observation, logger *slog.Logger) {
	parser := NewParser()
	seekEnd := startAtEnd
	for {
		if ctx.Err() != nil {
			return
		}
		file, err := os.Open(path)
		if err != nil {
			if logger != nil {
				logger.Warn("tail open failed", "path", path, "err", err)
			}
			if !BackoffSleep(ctx, 500*time.Millisecond) {
				return
			}
			continue
		}
		var offset int64
		if seekEnd {
			if pos, err := file.Seek(0, io.SeekEnd); err == nil {
				offset = pos
			}
		}
		// After the first open every reopen is a rotation; read it whole.
		seekEnd = false
		done := followFile(ctx, file, path, offset, cfg, parser, out, logger)
		_ = file.Close()
		if done {
			return
		}
	}
}

// followFile reads until the context ends (true) or the file needs reopening
// (false).
func followFile(ctx context.Context, file *os.File, path string, offset int64, cfg *config.Manager, parser *Parser, out chan<- model.Observation, logger *slog.Logger) bool {
	reader := bufio.NewReader(file)
	var partial string
	for {
		chunk, err := reader.ReadString('\n')
		offset += int64(len(chunk))
		if err == nil {
			handleLine(ctx, partial+chunk, SourceFileTail, cfg, parser, out, logger)
			partial = ""
			continue
		}
		if !errors.Is(err, io.EOF) {
			if logger != nil {
				logger.Warn("tail read error", "path", path, "err", err)
			}
			return false
		}
		partial += chunk
		if !BackoffSleep(ctx, 200*time.Millisecond) {
			return true
		}
		info, statErr := os.Stat(path)
		if statErr != nil || info.Size() < offset {
			return false
		}
	}
}
