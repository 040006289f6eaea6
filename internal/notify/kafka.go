package notify

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"apradar/internal/config"
	"apradar/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes alerts keyed by BSSID so one network's alerts stay ordered
// within a partition.
type Kafka struct {
	writer messageWriter
}

func NewKafka(cfg config.KafkaNotifyConfig) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Notify(ctx context.Context, alert model.Alert) error {
	payload, err := Payload(alert)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", alert.ID, err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.BSSID),
		Value: payload,
		Time:  alert.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("write alert %s: %w", alert.ID, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
