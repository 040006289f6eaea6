// Package engine runs observations through scoring and carries out the side
// effects: history, the reports cache, persistence, alerting and telemetry.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"apradar/internal/alerts"
	"apradar/internal/config"
	"apradar/internal/model"
	"apradar/internal/notify"
	"apradar/internal/reports"
	"apradar/internal/risk"
	"apradar/internal/storage"
	"apradar/internal/telemetry"
)

const (
	AlertHighRisk = "high_risk_network"
	AlertBlocked  = "blocked_network"

	ruleBlocked   = "watchlist_blocked"
	notifyTimeout = 5 * time.Second
)

// HistorySource supplies prior observations of a BSSID, most recent first.
type HistorySource interface {
	History(ctx context.Context, bssid string, limit int) ([]model.Observation, error)
}

// Deps are the collaborators of an Engine. Every field is optional. History
// defaults to Store when one is set and to the in-memory window otherwise.
type Deps struct {
	Logger   *slog.Logger
	Scorer   *risk.Engine
	Reports  *reports.Store
	Alerts   *alerts.Store
	Store    storage.Store
	History  HistorySource
	Notifier notify.Notifier
	Metrics  *telemetry.Metrics
	Now      func() time.Time
}

type Engine struct {
	logger   *slog.Logger
	scorer   *risk.Engine
	reports  *reports.Store
	alerts   *alerts.Store
	store    storage.Store
	history  HistorySource
	notifier notify.Notifier
	metrics  *telemetry.Metrics
	now      func() time.Time

	state    atomic.Value
	window   *Window
	cooldown *Cooldown
	dedupe   *DedupeCache
}

// settings is derived from one config snapshot and swapped as a unit.
type settings struct {
	cfg       *config.Config
	loc       *time.Location
	minLevel  model.Level
	watchlist *Watchlist
}

// Outcome is the result of processing one observation. Report is zero when
// the observation was dropped as a duplicate.
type Outcome struct {
	Report    model.Report
	Alert     *model.Alert
	Duplicate bool
}

func NewEngine(cfg *config.Config, deps Deps) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{
		logger:   deps.Logger,
		scorer:   deps.Scorer,
		reports:  deps.Reports,
		alerts:   deps.Alerts,
		store:    deps.Store,
		history:  deps.History,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		now:      deps.Now,
		window:   NewWindow(cfg.Scoring.HistoryLimit, cfg.Reports.StoreLimit),
		cooldown: NewCooldown(),
		dedupe:   NewDedupeCache(),
	}
	if e.scorer == nil {
		e.scorer = risk.NewEngine()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.history == nil {
		if e.store != nil {
			e.history = e.store
		} else {
			e.history = e.window
		}
	}
	e.state.Store(buildSettings(cfg))
	return e
}

func buildSettings(cfg *config.Config) *settings {
	return &settings{
		cfg:       cfg,
		loc:       cfg.Location(),
		minLevel:  cfg.MinAlertLevel(),
		watchlist: buildWatchlist(cfg.Watchlist),
	}
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.window.SetLimit(cfg.Scoring.HistoryLimit)
	e.state.Store(buildSettings(cfg))
}

func (e *Engine) settings() *settings {
	return e.state.Load().(*settings)
}

// Window exposes the in-memory history so callers can seed or inspect it.
func (e *Engine) Window() *Window {
	return e.window
}

// Start consumes observations until ctx is cancelled or in is closed.
func (e *Engine) Start(ctx context.Context, in <-chan model.Observation) {
	go e.Run(ctx, in)
}

func (e *Engine) Run(ctx context.Context, in <-chan model.Observation) {
	for {
		select {
		case obs, ok := <-in:
			if !ok {
				return
			}
			e.ProcessObservation(ctx, obs)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) ProcessObservation(ctx context.Context, obs model.Observation) Outcome {
	st := e.settings()
	now := e.now()

	if e.dedupe.Seen(obs, now, st.cfg.Scoring.DedupeWindow) {
		e.metrics.ObserveDuplicate()
		return Outcome{Duplicate: true}
	}

	history, err := e.history.History(ctx, obs.BSSID, st.cfg.Scoring.HistoryLimit)
	if err != nil {
		e.metrics.ObserveError("history")
		if e.logger != nil {
			e.logger.Warn("history lookup failed, scoring without history", "bssid", obs.BSSID, "err", err)
		}
		history = nil
	}

	report := e.scorer.Assess(obs, history, now.In(st.loc))
	e.window.Record(obs)
	if e.reports != nil {
		if prev, ok := e.reports.Get(obs.BSSID); ok && prev.Report.Level != report.Level && e.logger != nil {
			e.logger.Info("risk level changed",
				"bssid", obs.BSSID,
				"from", prev.Report.Level,
				"to", report.Level,
				"score", report.Score,
			)
		}
		e.reports.Update(model.ScanRecord{Observation: obs, Report: report})
	}
	if e.store != nil {
		if err := e.store.SaveScan(ctx, obs, report); err != nil {
			e.metrics.ObserveError("storage")
			if e.logger != nil {
				e.logger.Warn("save scan failed", "bssid", obs.BSSID, "err", err)
			}
		}
	}
	e.metrics.ObserveReport(report)
	if e.logger != nil {
		e.logger.Debug("observation scored",
			"bssid", obs.BSSID,
			"ssid", obs.SSID,
			"score", report.Score,
			"level", report.Level,
		)
	}

	out := Outcome{Report: report}
	if alert, ok := e.evaluate(st, obs, report, now); ok {
		e.dispatch(ctx, alert)
		out.Alert = &alert
	}
	return out
}

func (e *Engine) evaluate(st *settings, obs model.Observation, report model.Report, now time.Time) (model.Alert, bool) {
	if st.watchlist.IsTrusted(obs.BSSID) {
		return model.Alert{}, false
	}
	blocked := st.watchlist.IsBlocked(obs.BSSID)
	if !blocked && !report.Level.AtLeast(st.minLevel) {
		return model.Alert{}, false
	}
	if !e.cooldown.Allow(obs.BSSID, now, st.cfg.Alerts.Cooldown) {
		return model.Alert{}, false
	}

	triggered := report.Breakdown.Triggered()
	rules := make([]string, 0, len(triggered)+1)
	for _, f := range triggered {
		rules = append(rules, string(f))
	}
	alertType := AlertHighRisk
	severity := strings.ToLower(string(report.Level))
	if blocked {
		rules = append(rules, ruleBlocked)
		alertType = AlertBlocked
		severity = "critical"
	}
	return model.Alert{
		ID:              uuid.NewString(),
		Timestamp:       now.UTC(),
		BSSID:           obs.BSSID,
		SSID:            obs.SSID,
		Severity:        severity,
		AlertType:       alertType,
		Score:           report.Score,
		Level:           report.Level,
		Rules:           rules,
		Recommendations: report.Recommendations,
		Context: map[string]string{
			"source":       obs.Source,
			"capabilities": obs.Capabilities,
			"vendor":       obs.Vendor,
			"signal_dbm":   strconv.Itoa(obs.SignalDBm),
			"frequency":    strconv.Itoa(obs.FrequencyMHz),
		},
	}, true
}

func (e *Engine) dispatch(ctx context.Context, alert model.Alert) {
	if e.alerts != nil {
		e.alerts.Add(alert)
	}
	e.metrics.ObserveAlert(alert)
	if e.logger != nil {
		e.logger.Warn("alert triggered",
			"id", alert.ID,
			"bssid", alert.BSSID,
			"severity", alert.Severity,
			"alert_type", alert.AlertType,
			"score", alert.Score,
			"rules", alert.Rules,
		)
	}
	if e.store != nil {
		if err := e.store.SaveAlert(ctx, alert); err != nil {
			e.metrics.ObserveError("storage")
			if e.logger != nil {
				e.logger.Warn("save alert failed", "id", alert.ID, "err", err)
			}
		}
	}
	if e.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := e.notifier.Notify(nctx, alert); err != nil {
			e.metrics.ObserveError("notify")
			if e.logger != nil {
				e.logger.Warn("notify failed", "id", alert.ID, "err", err)
			}
		}
	}
}

// Reset clears the in-memory history, dedupe and cooldown state along with
// the reports cache and alert buffer. Persisted data is untouched.
func (e *Engine) Reset() {
	e.window.Reset()
	e.cooldown.Reset()
	e.dedupe.Reset()
	if e.reports != nil {
		e.reports.Clear()
	}
	if e.alerts != nil {
		e.alerts.Clear()
	}
}
