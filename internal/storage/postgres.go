package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/apradar?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db, numbered: true}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id BIGSERIAL PRIMARY KEY,
			ts_ns BIGINT NOT NULL,
			bssid TEXT NOT NULL,
			ssid TEXT NOT NULL,
			capabilities TEXT NOT NULL,
			frequency_mhz INTEGER NOT NULL,
			signal_dbm INTEGER NOT NULL,
			is_hidden INTEGER NOT NULL,
			is_open INTEGER NOT NULL,
			vendor TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			source TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			risk_color TEXT NOT NULL,
			factors_json JSONB NOT NULL,
			recommendations_json JSONB NOT NULL,
			generated_ns BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_bssid ON scans(bssid, id)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(ts_ns)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			ts_ns BIGINT NOT NULL,
			bssid TEXT NOT NULL,
			ssid TEXT NOT NULL,
			severity TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			score INTEGER NOT NULL,
			level TEXT NOT NULL,
			rules_json JSONB NOT NULL,
			recommendations_json JSONB NOT NULL,
			context_json JSONB
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
