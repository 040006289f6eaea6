package ingest

import (
	"encoding/csv"
	"regexp"
	"strings"

	"apradar/internal/normalize"
)

var (
	reTimestamp = regexp.MustCompile(`^\s*([0-9]{4}-[0-9]{2}-[0-9]{2}[ T][0-9:.+\-Z]+)`)
	reKV        = regexp.MustCompile(`([a-zA-Z_]+)=("[^"]*"|\S+)`)
)

// Key aliases, highest priority first. Android ScanResult, termux-wifi-scaninfo
// and iw/airodump style exports all land here.
var (
	timestampKeys    = []string{"timestamp", "time", "ts", "last_seen", "seen"}
	bssidKeys        = []string{"bssid", "mac", "address", "ap_mac"}
	ssidKeys         = []string{"ssid", "essid", "network", "name"}
	capabilitiesKeys = []string{"capabilities", "caps", "security", "encryption", "auth", "flags"}
	frequencyKeys    = []string{"frequency_mhz", "frequency", "freq_mhz", "freq"}
	levelKeys        = []string{"level", "signal_dbm", "rssi", "signal", "dbm"}
	hiddenKeys       = []string{"is_hidden", "hidden"}
	openKeys         = []string{"is_open", "open"}
	vendorKeys       = []string{"vendor", "manufacturer", "oui_vendor"}
	latitudeKeys     = []string{"latitude", "lat"}
	longitudeKeys    = []string{"longitude", "lon", "lng"}
)

var knownKeys = func() map[string]struct{} {
	out := map[string]struct{}{}
	for _, group := range [][]string{
		timestampKeys, bssidKeys, ssidKeys, capabilitiesKeys, frequencyKeys, levelKeys,
		hiddenKeys, openKeys, vendorKeys, latitudeKeys, longitudeKeys,
	} {
		for _, k := range group {
			out[k] = struct{}{}
		}
	}
	return out
}()

// Parser is stateful: a CSV header seen on one line applies to the lines
// after it. Use one Parser per stream.
type Parser struct {
	csv *CSVParser
}

func NewParser() *Parser {
	return &Parser{csv: NewCSVParser()}
}

// ParseLine returns nil, nil for blank lines and CSV headers.
func (p *Parser) ParseLine(line string) (*normalize.ScanFields, error) {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return nil, nil
	}
	if looksLikeJSON(trim) {
		if fields, err := ParseJSONBytes([]byte(trim)); err == nil {
			fields.Raw = line
			return fields, nil
		}
	}
	if !strings.Contains(trim, "=") && strings.Contains(trim, ",") {
		fields, err := p.csv.Parse(trim)
		if err == nil {
			if fields == nil {
				return nil, nil
			}
			fields.Raw = line
			return fields, nil
		}
	}
	fields := parsePlain(trim)
	fields.Raw = line
	return fields, nil
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

func parsePlain(line string) *normalize.ScanFields {
	ts, rest := extractTimestamp(line)
	kv := map[string]string{}
	for _, match := range reKV.FindAllStringSubmatch(rest, -1) {
		kv[strings.ToLower(match[1])] = strings.Trim(match[2], `"`)
	}
	fields := fieldsFromMap(kv)
	if fields.Timestamp == "" {
		fields.Timestamp = ts
	}
	return fields
}

func extractTimestamp(line string) (string, string) {
	m := reTimestamp.FindStringSubmatchIndex(line)
	if len(m) >= 4 {
		ts := strings.TrimSpace(line[m[2]:m[3]])
		rest := strings.TrimSpace(line[m[3]:])
		return ts, rest
	}
	return "", line
}

func fieldsFromMap(kv map[string]string) *normalize.ScanFields {
	fields := &normalize.ScanFields{Extras: map[string]string{}}
	fields.Timestamp = firstNonEmpty(kv, timestampKeys...)
	fields.BSSID = firstNonEmpty(kv, bssidKeys...)
	fields.SSID = firstPresent(kv, ssidKeys...)
	fields.Capabilities = firstNonEmpty(kv, capabilitiesKeys...)
	fields.Frequency = firstNonEmpty(kv, frequencyKeys...)
	fields.Level = firstNonEmpty(kv, levelKeys...)
	fields.Hidden = firstNonEmpty(kv, hiddenKeys...)
	fields.Open = firstNonEmpty(kv, openKeys...)
	fields.Vendor = firstNonEmpty(kv, vendorKeys...)
	fields.Latitude = firstNonEmpty(kv, latitudeKeys...)
	fields.Longitude = firstNonEmpty(kv, longitudeKeys...)
	for k, v := range kv {
		if _, known := knownKeys[k]; !known {
			fields.Extras[k] = v
		}
	}
	return fields
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

// firstPresent keeps surrounding whitespace so SSIDs are passed through as
// advertised; normalize decides what to trim.
func firstPresent(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type CSVParser struct {
	header []string
}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse reads one CSV record. Without a header the columns are
// timestamp, bssid, ssid, capabilities, frequency, level.
func (p *CSVParser) Parse(line string) (*normalize.ScanFields, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, nil
	}
	if p.header == nil && looksLikeHeader(record) {
		p.header = normalizeHeader(record)
		return nil, nil
	}
	header := p.header
	if header == nil {
		header = []string{"timestamp", "bssid", "ssid", "capabilities", "frequency", "level"}
	}
	kv := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(record) {
			break
		}
		kv[name] = record[i]
	}
	return fieldsFromMap(kv), nil
}

func looksLikeHeader(record []string) bool {
	for _, v := range record {
		v = strings.ToLower(strings.TrimSpace(v))
		if _, ok := knownKeys[v]; ok {
			return true
		}
	}
	return false
}

func normalizeHeader(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
