package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "APRADAR_"

// LoadDotEnv reads a .env file into the process environment if one exists.
// Variables already set are left alone.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// envOverride maps one APRADAR_* variable onto the config. restore copies the
// overridden fields back from the file config so they are never saved.
type envOverride struct {
	key     string
	apply   func(cfg *Config, v string)
	restore func(dst, file *Config)
}

var envOverrides = []envOverride{
	{
		key:     "LOG_LEVEL",
		apply:   func(c *Config, v string) { c.LogLevel = v },
		restore: func(d, f *Config) { d.LogLevel = f.LogLevel },
	},
	{
		key: "STORAGE_DRIVER",
		apply: func(c *Config, v string) {
			c.Storage.Driver = v
			c.Storage.Enabled = true
		},
		restore: func(d, f *Config) {
			d.Storage.Driver = f.Storage.Driver
			d.Storage.Enabled = f.Storage.Enabled
		},
	},
	{
		key:     "STORAGE_DSN",
		apply:   func(c *Config, v string) { c.Storage.DSN = v },
		restore: func(d, f *Config) { d.Storage.DSN = f.Storage.DSN },
	},
	{
		key:     "MQTT_BROKER",
		apply:   func(c *Config, v string) { c.Notify.MQTT.Broker = v },
		restore: func(d, f *Config) { d.Notify.MQTT.Broker = f.Notify.MQTT.Broker },
	},
	{
		key:     "MQTT_USERNAME",
		apply:   func(c *Config, v string) { c.Notify.MQTT.Username = v },
		restore: func(d, f *Config) { d.Notify.MQTT.Username = f.Notify.MQTT.Username },
	},
	{
		key:     "MQTT_PASSWORD",
		apply:   func(c *Config, v string) { c.Notify.MQTT.Password = v },
		restore: func(d, f *Config) { d.Notify.MQTT.Password = f.Notify.MQTT.Password },
	},
	{
		key: "KAFKA_BROKERS",
		apply: func(c *Config, v string) {
			brokers := splitList(v)
			c.Ingest.Kafka.Brokers = brokers
			c.Notify.Kafka.Brokers = brokers
		},
		restore: func(d, f *Config) {
			d.Ingest.Kafka.Brokers = f.Ingest.Kafka.Brokers
			d.Notify.Kafka.Brokers = f.Notify.Kafka.Brokers
		},
	},
}

// ApplyEnv overrides file values with APRADAR_* environment variables.
func ApplyEnv(cfg *Config) {
	for _, o := range envOverrides {
		if v := getEnv(o.key); v != "" {
			o.apply(cfg, v)
		}
	}
}

// StripEnv returns a copy of cfg with every field currently overridden from
// the environment set back to its value in file. A nil file means defaults.
func StripEnv(cfg, file *Config) *Config {
	if file == nil {
		file = DefaultConfig()
	}
	out := *cfg
	for _, o := range envOverrides {
		if getEnv(o.key) != "" {
			o.restore(&out, file)
		}
	}
	return &out
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
