package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apradar/internal/model"
)

func sampleRecords() []model.ScanRecord {
	lat, lon := 37.7749, -122.4194
	return []model.ScanRecord{
		{
			Observation: model.Observation{
				Timestamp:    time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC),
				BSSID:        "AA:BB:CC:DD:EE:FF",
				SSID:         "Free <WiFi> & Co",
				Capabilities: "[ESS]",
				FrequencyMHz: 2437,
				SignalDBm:    -35,
				Open:         true,
				Latitude:     &lat,
				Longitude:    &lon,
			},
			Report: model.Report{
				BSSID:           "AA:BB:CC:DD:EE:FF",
				Score:           60,
				Level:           model.LevelHigh,
				Breakdown:       model.Breakdown{OpenNetwork: 30, SuspiciousName: 20, Proximity: 10},
				Recommendations: []string{"Avoid connecting to open networks", "SSID appears suspicious"},
			},
		},
		{
			Observation: model.Observation{BSSID: "00:11:22:33:44:55", Hidden: true, SignalDBm: -70},
			Report:      model.Report{BSSID: "00:11:22:33:44:55", Score: 25, Level: model.LevelLow},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" KML ")
	require.NoError(t, err)
	assert.Equal(t, FormatKML, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorContains(t, err, "xml")
}

func TestWriteUnsupported(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("pdf"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))
	var decoded []model.ScanRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 60, decoded[0].Report.Score)

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	header := rows[0]
	assert.Equal(t, "timestamp", header[0])
	assert.Contains(t, header, "open_network")
	assert.Contains(t, header, "temporal_risk")

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "30", rows[1][col("open_network")])
	assert.Equal(t, "60", rows[1][col("risk_score")])
	assert.Equal(t, "37.7749", rows[1][col("latitude")])
	assert.Equal(t, "", rows[2][col("latitude")])
	assert.Equal(t, "true", rows[2][col("is_hidden")])
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatKML, sampleRecords()))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<kml xmlns="http://www.opengis.net/kml/2.2">`)
	assert.Contains(t, out, "<name>Free &lt;WiFi&gt; &amp; Co</name>")
	assert.Contains(t, out, "<name>Hidden Network (00:11:22:33:44:55)</name>")
	assert.Contains(t, out, "<coordinates>-122.4194,37.7749,0</coordinates>")
	assert.Equal(t, 1, strings.Count(out, "<Point>"))
	assert.Contains(t, out, "Risk Score: 60")
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2026, 2, 23, 9, 5, 7, 0, time.UTC)
	path, err := WriteFile(dir, FormatCSV, sampleRecords(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "radar_export_20260223_090507.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AA:BB:CC:DD:EE:FF")

	_, err = WriteFile(dir, Format("doc"), nil, now)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
