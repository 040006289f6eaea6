package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"apradar/internal/config"
	"apradar/internal/model"
)

var ErrMissingBSSID = errors.New("missing bssid")

// ScanFields carries the raw strings a parser pulled out of one scan record.
type ScanFields struct {
	Timestamp    string
	BSSID        string
	SSID         string
	Capabilities string
	Frequency    string
	Level        string
	Hidden       string
	Open         string
	Vendor       string
	Latitude     string
	Longitude    string
	Extras       map[string]string
	Raw          string
}

// encryptionTokens mark a capability string as protected when Open is not given.
var encryptionTokens = []string{"WEP", "WPA", "RSN", "SAE", "OWE", "EAP", "PSK"}

func Normalize(fields ScanFields, cfg *config.Config) (model.Observation, error) {
	bssid := NormalizeBSSID(fields.BSSID)
	if bssid == "" {
		return model.Observation{}, ErrMissingBSSID
	}

	loc := time.UTC
	if cfg != nil && cfg.Ingest.Parser.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Ingest.Parser.Timezone); err == nil {
			loc = l
		}
	}
	ts := time.Now().UTC()
	if fields.Timestamp != "" {
		parsed, err := ParseTimestamp(fields.Timestamp, loc)
		if err != nil {
			return model.Observation{}, fmt.Errorf("parse timestamp: %w", err)
		}
		ts = parsed.UTC()
	}

	ssid := NormalizeSSID(fields.SSID)
	caps := strings.TrimSpace(fields.Capabilities)

	hidden, ok := ParseBool(fields.Hidden)
	if !ok {
		hidden = ssid == ""
	}
	open, ok := ParseBool(fields.Open)
	if !ok {
		open = !HasEncryption(caps)
	}
	vendor := strings.TrimSpace(fields.Vendor)
	if vendor == "" {
		vendor = LookupVendor(bssid)
	}

	obs := model.Observation{
		Timestamp:    ts,
		BSSID:        bssid,
		SSID:         ssid,
		Capabilities: caps,
		FrequencyMHz: ParseInt(fields.Frequency),
		SignalDBm:    ParseInt(fields.Level),
		Hidden:       hidden,
		Open:         open,
		Vendor:       vendor,
		Source:       "log",
		Raw:          fields.Raw,
	}
	lat, latOK := parseFloat(fields.Latitude)
	lon, lonOK := parseFloat(fields.Longitude)
	if latOK && lonOK {
		obs.Latitude = &lat
		obs.Longitude = &lon
	}
	return obs, nil
}

// NormalizeBSSID upper-cases an address and rewrites any 12-hex-digit form
// (colon, dash, dotted or bare) as colon separated octets. Other values are
// returned trimmed and upper-cased so they still key consistently.
func NormalizeBSSID(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	var hex strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			hex.WriteRune(r)
		case r == ':' || r == '-' || r == '.':
		default:
			return raw
		}
	}
	digits := hex.String()
	if len(digits) != 12 {
		return raw
	}
	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(digits[i : i+2])
	}
	return b.String()
}

// NormalizeSSID strips padding some drivers report for hidden networks.
func NormalizeSSID(raw string) string {
	ssid := strings.Trim(raw, "\x00")
	ssid = strings.TrimSpace(ssid)
	if strings.EqualFold(ssid, "<hidden>") {
		return ""
	}
	return ssid
}

func HasEncryption(caps string) bool {
	upper := strings.ToUpper(caps)
	for _, tok := range encryptionTokens {
		if strings.Contains(upper, tok) {
			return true
		}
	}
	return false
}

// ParseInt accepts integer or decimal text and truncates decimals. Anything
// else yields 0.
func ParseInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f)
	}
	return 0
}

func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "t":
		return true, true
	case "0", "false", "no", "n", "f":
		return false, true
	}
	return false, false
}

func parseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
}

func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if isNumeric(value) {
		if ts, err := parseUnix(value); err == nil {
			return ts, nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}

func isNumeric(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > 0
}

func parseUnix(value string) (time.Time, error) {
	if len(value) >= 13 {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
