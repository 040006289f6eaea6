package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"apradar/internal/model"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Alerts    AlertsConfig    `json:"alerts" yaml:"alerts"`
	Watchlist WatchlistConfig `json:"watchlist" yaml:"watchlist"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Reports   ReportsConfig   `json:"reports" yaml:"reports"`
	Export    ExportConfig    `json:"export" yaml:"export"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

type IngestConfig struct {
	ChannelBuffer int             `json:"channel_buffer" yaml:"channel_buffer"`
	TCPStream     TCPStreamConfig `json:"tcp_stream" yaml:"tcp_stream"`
	FileTail      FileTailConfig  `json:"file_tail" yaml:"file_tail"`
	Kafka         KafkaConfig     `json:"kafka" yaml:"kafka"`
	Parser        ParserConfig    `json:"parser" yaml:"parser"`
}

type TCPStreamConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type FileTailConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StartAtEnd bool     `json:"start_at_end" yaml:"start_at_end"`
	Files      []string `json:"files" yaml:"files"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type ParserConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
}

type ScoringConfig struct {
	HistoryLimit int           `json:"history_limit" yaml:"history_limit"`
	DedupeWindow time.Duration `json:"dedupe_window" yaml:"dedupe_window"`
	// Timezone used to read the evaluation hour.
	Timezone string `json:"timezone" yaml:"timezone"`
}

type AlertsConfig struct {
	StoreLimit int           `json:"store_limit" yaml:"store_limit"`
	MinLevel   string        `json:"min_level" yaml:"min_level"`
	Cooldown   time.Duration `json:"cooldown" yaml:"cooldown"`
}

type WatchlistConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Trusted []string `json:"trusted" yaml:"trusted"`
	Blocked []string `json:"blocked" yaml:"blocked"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type ReportsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type ExportConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

type NotifyConfig struct {
	MQTT  MQTTConfig        `json:"mqtt" yaml:"mqtt"`
	Kafka KafkaNotifyConfig `json:"kafka" yaml:"kafka"`
}

type MQTTConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Broker   string `json:"broker" yaml:"broker"`
	ClientID string `json:"client_id" yaml:"client_id"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Topic    string `json:"topic" yaml:"topic"`
}

type KafkaNotifyConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

type TelemetryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Ingest: IngestConfig{
			ChannelBuffer: 10000,
			TCPStream:     TCPStreamConfig{Enabled: false, Addr: ":9000"},
			FileTail:      FileTailConfig{Enabled: false, StartAtEnd: true},
			Kafka:         KafkaConfig{Enabled: false},
			Parser:        ParserConfig{Timezone: "UTC"},
		},
		Scoring: ScoringConfig{
			HistoryLimit: 20,
			DedupeWindow: 1 * time.Second,
			Timezone:     "Local",
		},
		Alerts: AlertsConfig{
			StoreLimit: 1000,
			MinLevel:   string(model.LevelHigh),
			Cooldown:   5 * time.Minute,
		},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:apradar.db?_pragma=busy_timeout(5000)"},
		Reports: ReportsConfig{StoreLimit: 5000},
		Export:  ExportConfig{Dir: "exports"},
		Notify: NotifyConfig{
			MQTT:  MQTTConfig{Enabled: false, Broker: "tcp://localhost:1883", ClientID: "apradar", Topic: "apradar/alerts/{bssid}"},
			Kafka: KafkaNotifyConfig{Enabled: false, Topic: "apradar-alerts"},
		},
		Telemetry: TelemetryConfig{Enabled: false, Addr: ":9102"},
	}
}

func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

// load returns the effective config and the config as the file wrote it,
// before environment overrides.
func load(path string) (*Config, *Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, nil, decodeErr
	}
	file := *cfg
	ApplyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, &file, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Reports.StoreLimit <= 0 {
		cfg.Reports.StoreLimit = 5000
	}
	if cfg.Alerts.StoreLimit <= 0 {
		cfg.Alerts.StoreLimit = 1000
	}
	if cfg.Alerts.MinLevel == "" {
		cfg.Alerts.MinLevel = string(model.LevelHigh)
	}
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = 10000
	}
	if cfg.Ingest.Parser.Timezone == "" {
		cfg.Ingest.Parser.Timezone = "UTC"
	}
	if cfg.Scoring.HistoryLimit <= 0 {
		cfg.Scoring.HistoryLimit = 20
	}
	if cfg.Scoring.Timezone == "" {
		cfg.Scoring.Timezone = "Local"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}
}

func Validate(cfg *Config) error {
	if cfg.Ingest.TCPStream.Enabled && cfg.Ingest.TCPStream.Addr == "" {
		return errors.New("ingest.tcp_stream.addr required when ingest.tcp_stream.enabled is true")
	}
	if cfg.Ingest.FileTail.Enabled && len(cfg.Ingest.FileTail.Files) == 0 {
		return errors.New("ingest.file_tail.files required when ingest.file_tail.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if _, ok := model.ParseLevel(cfg.Alerts.MinLevel); !ok {
		return fmt.Errorf("alerts.min_level unknown: %q", cfg.Alerts.MinLevel)
	}
	if cfg.Alerts.Cooldown < 0 {
		return errors.New("alerts.cooldown must be >= 0")
	}
	if cfg.Scoring.DedupeWindow < 0 {
		return errors.New("scoring.dedupe_window must be >= 0")
	}
	if _, err := time.LoadLocation(cfg.Scoring.Timezone); err != nil {
		return fmt.Errorf("scoring.timezone: %w", err)
	}
	if cfg.Storage.Enabled {
		switch strings.ToLower(cfg.Storage.Driver) {
		case "sqlite", "postgres", "postgresql":
		default:
			return fmt.Errorf("storage.driver unsupported: %q", cfg.Storage.Driver)
		}
	}
	if cfg.Notify.MQTT.Enabled && (cfg.Notify.MQTT.Broker == "" || cfg.Notify.MQTT.Topic == "") {
		return errors.New("notify.mqtt requires broker and topic")
	}
	if cfg.Notify.Kafka.Enabled && (len(cfg.Notify.Kafka.Brokers) == 0 || cfg.Notify.Kafka.Topic == "") {
		return errors.New("notify.kafka requires brokers and topic")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Addr == "" {
		return errors.New("telemetry.addr required when telemetry.enabled is true")
	}
	return nil
}

// Location returns the scoring timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Scoring.Timezone); err == nil {
		return loc
	}
	return time.Local
}

// MinAlertLevel falls back to HIGH when the configured level is unknown.
func (c *Config) MinAlertLevel() model.Level {
	if l, ok := model.ParseLevel(c.Alerts.MinLevel); ok {
		return l
	}
	return model.LevelHigh
}

type Manager struct {
	path string
	cfg  atomic.Value
	// file is the last config read from or written to path, without
	// environment overrides.
	file atomic.Value
}

func NewManager(path string) (*Manager, error) {
	cfg, file, err := load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	m.file.Store(file)
	return m, nil
}

// NewStaticManager wraps an in-memory config that is never reloaded.
func NewStaticManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, file, err := load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	m.file.Store(file)
	return cfg, nil
}

// Update makes cfg current and writes it to path. Fields that come from
// APRADAR_* variables are written with their file values, so secrets given
// only through the environment stay off disk.
func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if m.path != "" {
		var file *Config
		if v, ok := m.file.Load().(*Config); ok {
			file = v
		}
		onDisk := StripEnv(cfg, file)
		if err := Save(m.path, onDisk); err != nil {
			return err
		}
		m.file.Store(onDisk)
	}
	m.cfg.Store(cfg)
	return nil
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
