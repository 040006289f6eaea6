// Package risk scores wireless access point observations.
//
// Scoring is a pure function of the observation, its prior observations and
// the evaluation time. An Engine holds only its rule tables and is safe for
// concurrent use.
package risk

import (
	"time"

	"apradar/internal/model"
)

const (
	MinScore = 0
	MaxScore = 100
)

type Engine struct {
	rules Rules
}

func NewEngine() *Engine {
	return NewEngineWithRules(DefaultRules())
}

// NewEngineWithRules copies rules, so later changes to the caller's tables do
// not reach the engine.
func NewEngineWithRules(rules Rules) *Engine {
	return &Engine{rules: rules.Clone()}
}

// Rules returns a copy of the engine's tables.
func (e *Engine) Rules() Rules {
	return e.rules.Clone()
}

// Score evaluates every factor and returns the clamped total with its
// breakdown. History entries for other BSSIDs are ignored.
func (e *Engine) Score(obs model.Observation, history []model.Observation, at time.Time) (int, model.Breakdown) {
	in := input{obs: obs, history: matching(obs.BSSID, history), at: at}
	var b model.Breakdown
	for _, ev := range evaluators {
		b.Set(ev.factor, max(0, ev.eval(&e.rules, in)))
	}
	return clamp(b.Sum(), MinScore, MaxScore), b
}

// Assess scores the observation and builds the full report.
func (e *Engine) Assess(obs model.Observation, history []model.Observation, at time.Time) model.Report {
	score, breakdown := e.Score(obs, history, at)
	level, color := e.Classify(score)
	return model.Report{
		BSSID:           obs.BSSID,
		SSID:            obs.SSID,
		Score:           score,
		Level:           level,
		Color:           color,
		Breakdown:       breakdown,
		Recommendations: e.Recommend(breakdown),
		GeneratedAt:     at,
	}
}

// Classify maps a score to its level and display color using the band table.
func (e *Engine) Classify(score int) (model.Level, string) {
	for _, band := range e.rules.Bands {
		if score >= band.Min {
			return band.Level, band.Color
		}
	}
	return model.LevelMinimal, "#6b7280"
}

func (e *Engine) Level(score int) model.Level {
	level, _ := e.Classify(score)
	return level
}

func (e *Engine) Color(score int) string {
	_, color := e.Classify(score)
	return color
}

// Recommend returns one advisory per non-zero factor, in table order.
func (e *Engine) Recommend(b model.Breakdown) []string {
	out := make([]string, 0, len(e.rules.Recommendations))
	for _, rec := range e.rules.Recommendations {
		if b.Get(rec.Factor) > 0 {
			out = append(out, rec.Text)
		}
	}
	return out
}

func matching(bssid string, history []model.Observation) []model.Observation {
	if len(history) == 0 {
		return nil
	}
	out := make([]model.Observation, 0, len(history))
	for _, h := range history {
		if h.BSSID == bssid {
			out = append(out, h)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
