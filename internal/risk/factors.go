package risk

import (
	"math"
	"slices"
	"strings"
	"time"

	"apradar/internal/model"
)

type input struct {
	obs     model.Observation
	history []model.Observation
	at      time.Time
}

type evaluator struct {
	factor model.Factor
	eval   func(r *Rules, in input) int
}

// evaluators runs in breakdown order. channel_conflict needs neighbouring
// networks and always reports zero for a single observation.
var evaluators = []evaluator{
	{model.FactorOpenNetwork, openNetwork},
	{model.FactorHiddenSSID, hiddenSSID},
	{model.FactorWeakEncryption, weakEncryption},
	{model.FactorSuspiciousName, suspiciousName},
	{model.FactorSignalFluctuation, signalFluctuation},
	{model.FactorProximity, proximity},
	{model.FactorVendorRisk, vendorRisk},
	{model.FactorBeaconAnomaly, beaconAnomaly},
	{model.FactorChannelConflict, channelConflict},
	{model.FactorTemporalRisk, temporalRisk},
}

func openNetwork(r *Rules, in input) int {
	if in.obs.Open {
		return r.OpenPenalty
	}
	return 0
}

func hiddenSSID(r *Rules, in input) int {
	if in.obs.Hidden {
		return r.HiddenPenalty
	}
	return 0
}

func weakEncryption(r *Rules, in input) int {
	if in.obs.Open {
		return 0
	}
	caps := strings.ToUpper(in.obs.Capabilities)
	for _, rule := range r.Encryption {
		if rule.matches(caps) {
			return rule.Score
		}
	}
	return r.UnknownEncryption
}

func (e EncryptionRule) matches(caps string) bool {
	for _, tok := range e.Contains {
		if !strings.Contains(caps, tok) {
			return false
		}
	}
	for _, tok := range e.Excludes {
		if strings.Contains(caps, tok) {
			return false
		}
	}
	return true
}

func suspiciousName(r *Rules, in input) int {
	if in.obs.SSID == "" {
		return 0
	}
	name := strings.ToLower(in.obs.SSID)
	score := 0
	for _, re := range r.SuspiciousPatterns {
		if re.MatchString(name) {
			score += r.SuspiciousPerMatch
		}
	}
	return min(score, r.SuspiciousCap)
}

func signalFluctuation(r *Rules, in input) int {
	if len(in.history) < r.MinHistory || len(in.history) == 0 {
		return 0
	}
	sd := stddev(in.history)
	for _, t := range r.Fluctuation {
		if sd > t.Over {
			return t.Score
		}
	}
	return 0
}

// stddev is the population standard deviation of the signal levels.
func stddev(history []model.Observation) float64 {
	n := float64(len(history))
	var sum float64
	for _, h := range history {
		sum += float64(h.SignalDBm)
	}
	mean := sum / n
	var sq float64
	for _, h := range history {
		d := float64(h.SignalDBm) - mean
		sq += d * d
	}
	return math.Sqrt(sq / n)
}

func proximity(r *Rules, in input) int {
	level := in.obs.SignalDBm
	score := 0
	for _, group := range r.Proximity {
		for _, tier := range group {
			if tier.matches(level) {
				score += tier.Score
				break
			}
		}
	}
	return score
}

func (t Tier) matches(level int) bool {
	if t.Above != nil && level <= *t.Above {
		return false
	}
	if t.Below != nil && level >= *t.Below {
		return false
	}
	return t.Above != nil || t.Below != nil
}

func vendorRisk(r *Rules, in input) int {
	vendor := strings.TrimSpace(in.obs.Vendor)
	if vendor == "" {
		return 0
	}
	for _, v := range r.RiskyVendors {
		if strings.EqualFold(v, vendor) {
			return r.VendorScore
		}
	}
	return 0
}

func beaconAnomaly(r *Rules, in input) int {
	freq := in.obs.FrequencyMHz
	score := 0
	if !slices.Contains(r.StandardFrequencies, freq) {
		score += r.NonStandardPenalty
	}
	if freq < r.BandMinMHz || freq > r.BandMaxMHz {
		score += r.OutOfBandPenalty
	}
	return score
}

func channelConflict(_ *Rules, _ input) int {
	return 0
}

// temporalRisk is a history pattern: a network seen for the first time is
// never penalized for the hour it appeared.
func temporalRisk(r *Rules, in input) int {
	if len(in.history) == 0 {
		return 0
	}
	hour := in.at.Hour()
	if hour >= r.UnusualHourFrom && hour <= r.UnusualHourTo {
		return r.UnusualHourRisk
	}
	return 0
}
