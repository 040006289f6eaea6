package risk

import (
	"regexp"
	"slices"

	"apradar/internal/model"
)

// EncryptionRule scores a capability string. Rules are tried in order and the
// first one whose Contains tokens are all present and Excludes tokens are all
// absent wins. Tokens are matched against the upper-cased capabilities.
type EncryptionRule struct {
	Contains []string
	Excludes []string
	Score    int
}

// Tier adds Score when the signal is strictly above Above (or strictly below
// Below when Below is set). Tiers in the same group are exclusive: the first
// match wins. Groups are evaluated independently.
type Tier struct {
	Above *int
	Below *int
	Score int
}

// Band maps a lower-inclusive score threshold to a level and a color.
type Band struct {
	Min   int
	Level model.Level
	Color string
}

// Threshold is an exclusive lower bound on a measured value.
type Threshold struct {
	Over  float64
	Score int
}

type Rules struct {
	OpenPenalty   int
	HiddenPenalty int

	Encryption        []EncryptionRule
	UnknownEncryption int

	SuspiciousPatterns []*regexp.Regexp
	SuspiciousPerMatch int
	SuspiciousCap      int

	MinHistory  int
	Fluctuation []Threshold

	Proximity [][]Tier

	RiskyVendors []string
	VendorScore  int

	StandardFrequencies []int
	NonStandardPenalty  int
	BandMinMHz          int
	BandMaxMHz          int
	OutOfBandPenalty    int

	UnusualHourFrom int
	UnusualHourTo   int
	UnusualHourRisk int

	Bands           []Band
	Recommendations []Recommendation
}

// Recommendation is the advisory emitted when Factor is non-zero.
type Recommendation struct {
	Factor model.Factor
	Text   string
}

func intp(v int) *int { return &v }

// Clone returns a deep copy. Compiled patterns are shared since a Regexp is
// immutable.
func (r Rules) Clone() Rules {
	out := r
	out.Encryption = make([]EncryptionRule, len(r.Encryption))
	for i, rule := range r.Encryption {
		out.Encryption[i] = EncryptionRule{
			Contains: slices.Clone(rule.Contains),
			Excludes: slices.Clone(rule.Excludes),
			Score:    rule.Score,
		}
	}
	out.SuspiciousPatterns = slices.Clone(r.SuspiciousPatterns)
	out.Fluctuation = slices.Clone(r.Fluctuation)
	out.Proximity = make([][]Tier, len(r.Proximity))
	for i, group := range r.Proximity {
		out.Proximity[i] = make([]Tier, len(group))
		for j, tier := range group {
			out.Proximity[i][j] = Tier{Above: clonePtr(tier.Above), Below: clonePtr(tier.Below), Score: tier.Score}
		}
	}
	out.RiskyVendors = slices.Clone(r.RiskyVendors)
	out.StandardFrequencies = slices.Clone(r.StandardFrequencies)
	out.Bands = slices.Clone(r.Bands)
	out.Recommendations = slices.Clone(r.Recommendations)
	return out
}

func clonePtr(v *int) *int {
	if v == nil {
		return nil
	}
	return intp(*v)
}

var suspiciousNamePatterns = []string{
	`(free|public|guest|open)`,
	`(wifi|internet|hotspot)`,
	`(admin|root|test|demo)`,
	`(hack|crack|pwn)`,
	`(evil|rogue|fake)`,
	`(airport|hotel|coffee)`,
	`(mobile|phone|android)`,
	`(backdoor|trojan|virus)`,
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// DefaultRules returns the stock rule set. Each call returns fresh slices so
// callers may modify the result.
func DefaultRules() Rules {
	return Rules{
		OpenPenalty:   30,
		HiddenPenalty: 20,

		Encryption: []EncryptionRule{
			{Contains: []string{"WEP"}, Score: 25},
			{Contains: []string{"WPA"}, Excludes: []string{"WPA2", "WPA3"}, Score: 15},
			{Contains: []string{"WPA2"}, Excludes: []string{"WPA3"}, Score: 5},
			{Contains: []string{"WPA3"}, Score: 0},
		},
		UnknownEncryption: 20,

		SuspiciousPatterns: compilePatterns(suspiciousNamePatterns),
		SuspiciousPerMatch: 10,
		SuspiciousCap:      30,

		MinHistory: 3,
		Fluctuation: []Threshold{
			{Over: 15, Score: 15},
			{Over: 10, Score: 8},
		},

		Proximity: [][]Tier{
			{
				{Above: intp(-30), Score: 10},
				{Above: intp(-50), Score: 5},
			},
			{
				{Below: intp(-80), Score: 5},
			},
		},

		RiskyVendors: []string{
			"Cisco", "Linksys", "Netgear", "D-Link", "TP-Link",
			"Belkin", "ASUS", "Ubiquiti", "Mikrotik",
		},
		VendorScore: 5,

		StandardFrequencies: []int{
			2412, 2417, 2422, 2427, 2432, 2437, 2442,
			2447, 2452, 2457, 2462, 2467, 2472, 2484,
		},
		NonStandardPenalty: 10,
		BandMinMHz:         2400,
		BandMaxMHz:         2500,
		OutOfBandPenalty:   15,

		UnusualHourFrom: 2,
		UnusualHourTo:   6,
		UnusualHourRisk: 5,

		Bands: []Band{
			{Min: 70, Level: model.LevelCritical, Color: "#ef4444"},
			{Min: 50, Level: model.LevelHigh, Color: "#f59e0b"},
			{Min: 30, Level: model.LevelMedium, Color: "#eab308"},
			{Min: 10, Level: model.LevelLow, Color: "#10b981"},
			{Min: 0, Level: model.LevelMinimal, Color: "#6b7280"},
		},

		Recommendations: []Recommendation{
			{Factor: model.FactorOpenNetwork, Text: "Avoid connecting to open networks"},
			{Factor: model.FactorHiddenSSID, Text: "Be cautious of hidden networks"},
			{Factor: model.FactorWeakEncryption, Text: "Network uses weak encryption"},
			{Factor: model.FactorSuspiciousName, Text: "SSID appears suspicious"},
			{Factor: model.FactorSignalFluctuation, Text: "Signal strength is unstable"},
			{Factor: model.FactorProximity, Text: "Network is very close or very far"},
			{Factor: model.FactorVendorRisk, Text: "Vendor has known security issues"},
			{Factor: model.FactorBeaconAnomaly, Text: "Network uses unusual frequencies"},
			{Factor: model.FactorTemporalRisk, Text: "Network active during unusual hours"},
		},
	}
}
