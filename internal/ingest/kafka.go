package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"apradar/internal/config"
	"apradar/internal/model"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

var kafkaBackoff = time.Second

// StartKafka consumes scan records, one per message value.
func StartKafka(ctx context.Context, cfg *config.Manager, out chan<- model.Observation, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	go consumeKafka(ctx, reader, cfg, out, logger)
}

// consumeKafka reads until ctx is done and closes the reader on the way out.
func consumeKafka(ctx context.Context, reader messageReader, cfg *config.Manager, out chan<- model.Observation, logger *slog.Logger) {
	defer reader.Close()
	parser := NewParser()
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if logger != nil {
				logger.Warn("kafka read error", "err", err)
			}
			if !BackoffSleep(ctx, kafkaBackoff) {
				return
			}
			continue
		}
		handleLine(ctx, string(m.Value), SourceKafka, cfg, parser, out, logger)
	}
}
