// Package notify delivers alerts to downstream systems.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"apradar/internal/config"
	"apradar/internal/model"
)

type Notifier interface {
	Notify(ctx context.Context, alert model.Alert) error
	Close() error
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert model.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes alerts to the service logger. It is always part of the chain.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(_ context.Context, alert model.Alert) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Warn("risk alert",
		"id", alert.ID,
		"bssid", alert.BSSID,
		"ssid", alert.SSID,
		"severity", alert.Severity,
		"score", alert.Score,
		"rules", alert.Rules,
	)
	return nil
}

func (Log) Close() error { return nil }

// New builds the notifier chain from config. A remote notifier that fails to
// connect is left out and reported in the joined error; the rest of the chain
// is still returned and the log notifier is always present.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	chain := Multi{Log{Logger: logger}}
	var errs []error
	if cfg.MQTT.Enabled {
		pub, err := NewMQTT(cfg.MQTT)
		if err != nil {
			errs = append(errs, err)
		} else {
			chain = append(chain, pub)
			if logger != nil {
				logger.Info("mqtt notify enabled", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
			}
		}
	}
	if cfg.Kafka.Enabled {
		chain = append(chain, NewKafka(cfg.Kafka))
		if logger != nil {
			logger.Info("kafka notify enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		}
	}
	return chain, errors.Join(errs...)
}

// Payload is the wire form shared by the remote notifiers.
func Payload(alert model.Alert) ([]byte, error) {
	return json.Marshal(alert)
}

// Topic fills the {bssid} and {severity} placeholders of a topic template.
// Colons are replaced so the BSSID stays a single MQTT topic level that
// reads the same everywhere.
func Topic(template string, alert model.Alert) string {
	r := strings.NewReplacer(
		"{bssid}", strings.ReplaceAll(alert.BSSID, ":", ""),
		"{severity}", alert.Severity,
	)
	return r.Replace(template)
}
