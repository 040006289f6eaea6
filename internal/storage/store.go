package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"apradar/internal/config"
	"apradar/internal/model"
)

// Store persists scans and alerts. History and LatestScans let a restarted
// service keep scoring with the fluctuation history it had before.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveScan(ctx context.Context, obs model.Observation, report model.Report) error
	SaveAlert(ctx context.Context, alert model.Alert) error
	// History returns up to limit prior observations for bssid, most recent
	// first. limit <= 0 means no limit.
	History(ctx context.Context, bssid string, limit int) ([]model.Observation, error)
	// ScanHistory is History with the stored report for each scan.
	ScanHistory(ctx context.Context, bssid string, limit int) ([]model.ScanRecord, error)
	// Latest returns the newest record for bssid. ok is false when the network
	// was never scanned.
	Latest(ctx context.Context, bssid string) (rec model.ScanRecord, ok bool, err error)
	// LatestScans returns the newest record per BSSID, highest score first.
	LatestScans(ctx context.Context, limit int) ([]model.ScanRecord, error)
	Stats(ctx context.Context, since time.Time) (model.Stats, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// baseStore holds the queries both backends share. They are written with ?
// placeholders and rewritten by bind for drivers that number them.
type baseStore struct {
	db       *sql.DB
	numbered bool
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) bind(query string) string {
	if !b.numbered {
		return query
	}
	var out strings.Builder
	out.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

const scanColumns = `s.ts_ns, s.bssid, s.ssid, s.capabilities, s.frequency_mhz, s.signal_dbm,
	s.is_hidden, s.is_open, s.vendor, s.latitude, s.longitude, s.source,
	s.risk_score, s.risk_level, s.risk_color, s.factors_json, s.recommendations_json, s.generated_ns`

const latestJoin = `FROM scans s
	JOIN (SELECT bssid, MAX(id) AS max_id FROM scans GROUP BY bssid) latest ON s.id = latest.max_id`

func (b *baseStore) SaveScan(ctx context.Context, obs model.Observation, report model.Report) error {
	if b.db == nil {
		return nil
	}
	_, err := b.db.ExecContext(ctx, b.bind(
		`INSERT INTO scans (ts_ns, bssid, ssid, capabilities, frequency_mhz, signal_dbm, is_hidden, is_open,
			vendor, latitude, longitude, source, risk_score, risk_level, risk_color, factors_json,
			recommendations_json, generated_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		toNanos(obs.Timestamp),
		obs.BSSID,
		obs.SSID,
		obs.Capabilities,
		obs.FrequencyMHz,
		obs.SignalDBm,
		boolInt(obs.Hidden),
		boolInt(obs.Open),
		obs.Vendor,
		nullFloat(obs.Latitude),
		nullFloat(obs.Longitude),
		obs.Source,
		report.Score,
		string(report.Level),
		report.Color,
		encodeJSON(report.Breakdown),
		encodeJSON(report.Recommendations),
		toNanos(report.GeneratedAt),
	)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", obs.BSSID, err)
	}
	return nil
}

func (b *baseStore) SaveAlert(ctx context.Context, alert model.Alert) error {
	if b.db == nil {
		return nil
	}
	_, err := b.db.ExecContext(ctx, b.bind(
		`INSERT INTO alerts (id, ts_ns, bssid, ssid, severity, alert_type, score, level, rules_json,
			recommendations_json, context_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		alert.ID,
		toNanos(alert.Timestamp),
		alert.BSSID,
		alert.SSID,
		alert.Severity,
		alert.AlertType,
		alert.Score,
		string(alert.Level),
		encodeJSON(alert.Rules),
		encodeJSON(alert.Recommendations),
		encodeJSON(alert.Context),
	)
	if err != nil {
		return fmt.Errorf("save alert %s: %w", alert.ID, err)
	}
	return nil
}

func (b *baseStore) History(ctx context.Context, bssid string, limit int) ([]model.Observation, error) {
	records, err := b.ScanHistory(ctx, bssid, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Observation, len(records))
	for i, rec := range records {
		out[i] = rec.Observation
	}
	return out, nil
}

func (b *baseStore) ScanHistory(ctx context.Context, bssid string, limit int) ([]model.ScanRecord, error) {
	if b.db == nil {
		return nil, nil
	}
	query := `SELECT ` + scanColumns + ` FROM scans s WHERE s.bssid = ? ORDER BY s.id DESC`
	args := []any{bssid}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := b.db.QueryContext(ctx, b.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", bssid, err)
	}
	defer rows.Close()
	var out []model.ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *baseStore) Latest(ctx context.Context, bssid string) (model.ScanRecord, bool, error) {
	if b.db == nil {
		return model.ScanRecord{}, false, nil
	}
	row := b.db.QueryRowContext(ctx, b.bind(
		`SELECT `+scanColumns+` FROM scans s WHERE s.bssid = ? ORDER BY s.id DESC LIMIT 1`), bssid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScanRecord{}, false, nil
	}
	if err != nil {
		return model.ScanRecord{}, false, fmt.Errorf("query latest %s: %w", bssid, err)
	}
	return rec, true, nil
}

func (b *baseStore) LatestScans(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	if b.db == nil {
		return nil, nil
	}
	query := `SELECT ` + scanColumns + ` ` + latestJoin + ` ORDER BY s.risk_score DESC, s.bssid ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := b.db.QueryContext(ctx, b.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query latest scans: %w", err)
	}
	defer rows.Close()
	var out []model.ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats counts networks by their latest scan. Only networks seen at or after
// since count as active, and only active ones count towards the risk tallies.
func (b *baseStore) Stats(ctx context.Context, since time.Time) (model.Stats, error) {
	if b.db == nil {
		return model.Stats{}, nil
	}
	cut := toNanos(since)
	row := b.db.QueryRowContext(ctx, b.bind(`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN s.ts_ns >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.ts_ns >= ? AND s.risk_score > 50 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.ts_ns >= ? AND s.is_open = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.ts_ns >= ? AND s.is_hidden = 1 THEN 1 ELSE 0 END), 0)
		`+latestJoin), cut, cut, cut, cut)
	var total, active, high, open, hidden int64
	if err := row.Scan(&total, &active, &high, &open, &hidden); err != nil {
		return model.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return model.Stats{
		TotalNetworks:    int(total),
		ActiveNetworks:   int(active),
		HighRiskNetworks: int(high),
		OpenNetworks:     int(open),
		HiddenNetworks:   int(hidden),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.ScanRecord, error) {
	var (
		rec                   model.ScanRecord
		tsNanos, genNanos     int64
		hidden, open          int64
		lat, lon              sql.NullFloat64
		level                 string
		factorsJSON, recsJSON string
	)
	obs := &rec.Observation
	err := row.Scan(
		&tsNanos, &obs.BSSID, &obs.SSID, &obs.Capabilities, &obs.FrequencyMHz, &obs.SignalDBm,
		&hidden, &open, &obs.Vendor, &lat, &lon, &obs.Source,
		&rec.Report.Score, &level, &rec.Report.Color, &factorsJSON, &recsJSON, &genNanos,
	)
	if err != nil {
		return model.ScanRecord{}, fmt.Errorf("scan row: %w", err)
	}
	obs.Timestamp = fromNanos(tsNanos)
	obs.Hidden = hidden != 0
	obs.Open = open != 0
	if lat.Valid && lon.Valid {
		obs.Latitude = &lat.Float64
		obs.Longitude = &lon.Float64
	}
	rec.Report.BSSID = obs.BSSID
	rec.Report.SSID = obs.SSID
	rec.Report.Level = model.Level(level)
	rec.Report.GeneratedAt = fromNanos(genNanos)
	if err := json.Unmarshal([]byte(factorsJSON), &rec.Report.Breakdown); err != nil {
		return model.ScanRecord{}, fmt.Errorf("decode factors for %s: %w", obs.BSSID, err)
	}
	if err := json.Unmarshal([]byte(recsJSON), &rec.Report.Recommendations); err != nil {
		return model.ScanRecord{}, fmt.Errorf("decode recommendations for %s: %w", obs.BSSID, err)
	}
	if rec.Report.Recommendations == nil {
		rec.Report.Recommendations = []string{}
	}
	return rec, nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
