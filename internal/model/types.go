package model

import (
	"strings"
	"time"
)

type Observation struct {
	Timestamp    time.Time `json:"timestamp"`
	BSSID        string    `json:"bssid"`
	SSID         string    `json:"ssid"`
	Capabilities string    `json:"capabilities"`
	FrequencyMHz int       `json:"frequency_mhz"`
	SignalDBm    int       `json:"signal_dbm"`
	Hidden       bool      `json:"is_hidden"`
	Open         bool      `json:"is_open"`
	Vendor       string    `json:"vendor,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Source       string    `json:"source,omitempty"`
	Raw          string    `json:"raw,omitempty"`
}

// HasFix reports whether the scanner attached a GPS position.
func (o Observation) HasFix() bool {
	return o.Latitude != nil && o.Longitude != nil
}

type Level string

const (
	LevelMinimal  Level = "MINIMAL"
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

var levelRank = map[Level]int{
	LevelMinimal:  0,
	LevelLow:      1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

// Rank orders levels from MINIMAL (0) to CRITICAL (4). Unknown levels rank -1.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := levelRank[l]
	return l, ok
}

type Factor string

const (
	FactorOpenNetwork       Factor = "open_network"
	FactorHiddenSSID        Factor = "hidden_ssid"
	FactorWeakEncryption    Factor = "weak_encryption"
	FactorSuspiciousName    Factor = "suspicious_name"
	FactorSignalFluctuation Factor = "signal_fluctuation"
	FactorProximity         Factor = "proximity"
	FactorVendorRisk        Factor = "vendor_risk"
	FactorBeaconAnomaly     Factor = "beacon_anomaly"
	FactorChannelConflict   Factor = "channel_conflict"
	FactorTemporalRisk      Factor = "temporal_risk"
)

// Factors lists every breakdown key in canonical order.
var Factors = []Factor{
	FactorOpenNetwork,
	FactorHiddenSSID,
	FactorWeakEncryption,
	FactorSuspiciousName,
	FactorSignalFluctuation,
	FactorProximity,
	FactorVendorRisk,
	FactorBeaconAnomaly,
	FactorChannelConflict,
	FactorTemporalRisk,
}

type Breakdown struct {
	OpenNetwork       int `json:"open_network"`
	HiddenSSID        int `json:"hidden_ssid"`
	WeakEncryption    int `json:"weak_encryption"`
	SuspiciousName    int `json:"suspicious_name"`
	SignalFluctuation int `json:"signal_fluctuation"`
	Proximity         int `json:"proximity"`
	VendorRisk        int `json:"vendor_risk"`
	BeaconAnomaly     int `json:"beacon_anomaly"`
	ChannelConflict   int `json:"channel_conflict"`
	TemporalRisk      int `json:"temporal_risk"`
}

func (b *Breakdown) field(f Factor) *int {
	switch f {
	case FactorOpenNetwork:
		return &b.OpenNetwork
	case FactorHiddenSSID:
		return &b.HiddenSSID
	case FactorWeakEncryption:
		return &b.WeakEncryption
	case FactorSuspiciousName:
		return &b.SuspiciousName
	case FactorSignalFluctuation:
		return &b.SignalFluctuation
	case FactorProximity:
		return &b.Proximity
	case FactorVendorRisk:
		return &b.VendorRisk
	case FactorBeaconAnomaly:
		return &b.BeaconAnomaly
	case FactorChannelConflict:
		return &b.ChannelConflict
	case FactorTemporalRisk:
		return &b.TemporalRisk
	}
	return nil
}

func (b Breakdown) Get(f Factor) int {
	if p := b.field(f); p != nil {
		return *p
	}
	return 0
}

// Set ignores unknown factors.
func (b *Breakdown) Set(f Factor, v int) {
	if p := b.field(f); p != nil {
		*p = v
	}
}

func (b Breakdown) Sum() int {
	total := 0
	for _, f := range Factors {
		total += b.Get(f)
	}
	return total
}

// Triggered returns the non-zero factors in canonical order.
func (b Breakdown) Triggered() []Factor {
	out := make([]Factor, 0, len(Factors))
	for _, f := range Factors {
		if b.Get(f) > 0 {
			out = append(out, f)
		}
	}
	return out
}

type Report struct {
	BSSID           string    `json:"bssid"`
	SSID            string    `json:"ssid"`
	Score           int       `json:"risk_score"`
	Level           Level     `json:"risk_level"`
	Color           string    `json:"risk_color"`
	Breakdown       Breakdown `json:"factors"`
	Recommendations []string  `json:"recommendations"`
	GeneratedAt     time.Time `json:"timestamp"`
}

// ScanRecord pairs an observation with the report produced for it.
type ScanRecord struct {
	Observation Observation `json:"observation"`
	Report      Report      `json:"report"`
}

type Stats struct {
	TotalNetworks    int `json:"total_networks"`
	ActiveNetworks   int `json:"active_networks"`
	HighRiskNetworks int `json:"high_risk_networks"`
	OpenNetworks     int `json:"open_networks"`
	HiddenNetworks   int `json:"hidden_networks"`
}

type Alert struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	BSSID           string            `json:"bssid"`
	SSID            string            `json:"ssid,omitempty"`
	Severity        string            `json:"severity"`
	AlertType       string            `json:"alert_type"`
	Score           int               `json:"score"`
	Level           Level             `json:"level"`
	Rules           []string          `json:"rules"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
}
