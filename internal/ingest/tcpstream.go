package ingest

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"apradar/internal/config"
	"apradar/internal/model"
)

// StartTCPStream accepts newline-delimited scan records. Each connection gets
// its own parser so CSV headers do not leak between scanners.
func StartTCPStream(ctx context.Context, cfg *config.Manager, out chan<- model.Observation, logger *slog.Logger) (net.Addr, error) {
	current := cfg.Get().Ingest.TCPStream
	if !current.Enabled {
		if logger != nil {
			logger.Info("tcp stream ingest disabled")
		}
		return nil, nil
	}
	ln, err := net.Listen("tcp", current.Addr)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("tcp stream ingest enabled", "addr", ln.Addr().String())
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	go acceptLoop(ctx, ln, func(conn net.Conn) {
		handleTCPStreamConn(ctx, conn, cfg, out, logger)
	}, logger)
	return ln.Addr(), nil
}

var acceptBackoff = 200 * time.Millisecond

// acceptLoop serves connections until the listener closes or ctx is done.
// Accept errors are retried after acceptBackoff.
func acceptLoop(ctx context.Context, ln net.Listener, handle func(net.Conn), logger *slog.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if logger != nil {
				logger.Warn("tcp stream accept error", "err", err)
			}
			if !BackoffSleep(ctx, acceptBackoff) {
				return
			}
			continue
		}
		go handle(conn)
	}
}

func handleTCPStreamConn(ctx context.Context, conn net.Conn, cfg *config.Manager, out chan<- model.Observation, logger *slog.Logger) {
	defer conn.Close()
	parser := NewParser()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 8192), 1024*1024)
	for scanner.Scan() {
		handleLine(ctx, scanner.Text(), SourceTCPStream, cfg, parser, out, logger)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil && logger != nil {
		logger.Warn("tcp stream scanner error", "remote", conn.RemoteAddr().String(), "err", err)
	}
}
