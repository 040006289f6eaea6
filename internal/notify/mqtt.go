package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"apradar/internal/config"
	"apradar/internal/model"
)

const mqttQoS byte = 1

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTT struct {
	client mqttPublisher
	native mqtt.Client
	topic  string
}

func NewMQTT(cfg config.MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return &MQTT{client: client, native: client, topic: cfg.Topic}, nil
}

func newMQTTWithClient(client mqttPublisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

func (m *MQTT) Notify(ctx context.Context, alert model.Alert) error {
	payload, err := Payload(alert)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", alert.ID, err)
	}
	topic := Topic(m.topic, alert)
	token := m.client.Publish(topic, mqttQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) Close() error {
	if m.native != nil {
		m.native.Disconnect(250)
	}
	return nil
}
