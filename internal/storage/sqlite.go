package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:apradar.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers; sqlite rejects concurrent ones.
	db.SetMaxOpenConns(1)
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_ns INTEGER NOT NULL,
			bssid TEXT NOT NULL,
			ssid TEXT NOT NULL,
			capabilities TEXT NOT NULL,
			frequency_mhz INTEGER NOT NULL,
			signal_dbm INTEGER NOT NULL,
			is_hidden INTEGER NOT NULL,
			is_open INTEGER NOT NULL,
			vendor TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			source TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			risk_color TEXT NOT NULL,
			factors_json TEXT NOT NULL,
			recommendations_json TEXT NOT NULL,
			generated_ns INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_bssid ON scans(bssid, id)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(ts_ns)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			ts_ns INTEGER NOT NULL,
			bssid TEXT NOT NULL,
			ssid TEXT NOT NULL,
			severity TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			score INTEGER NOT NULL,
			level TEXT NOT NULL,
			rules_json TEXT NOT NULL,
			recommendations_json TEXT NOT NULL,
			context_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts_ns)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
