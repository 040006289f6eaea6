package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apradar/internal/config"
	"apradar/internal/ingest"
	"apradar/internal/model"
	"apradar/internal/risk"
)

const scanExport = `[
  {"bssid":"aa:bb:cc:dd:ee:ff","ssid":"FreeWiFi","capabilities":"[ESS]","frequency":2437,"level":-25,"timestamp":"2026-02-23T12:00:00Z"},
  {"bssid":"00:11:22:33:44:55","ssid":"HomeNet","capabilities":"[WPA2-PSK-CCMP][ESS]","frequency":2412,"level":-40,"timestamp":"2026-02-23T12:00:01Z"},
  {"bssid":"00:11:22:33:44:55","ssid":"HomeNet","capabilities":"[WPA2-PSK-CCMP][ESS]","frequency":2412,"level":-70,"timestamp":"2026-02-23T12:00:02Z"},
  {"bssid":"00:11:22:33:44:55","ssid":"HomeNet","capabilities":"[WPA2-PSK-CCMP][ESS]","frequency":2412,"level":-40,"timestamp":"2026-02-23T12:00:03Z"},
  {"bssid":"00:11:22:33:44:55","ssid":"HomeNet","capabilities":"[WPA2-PSK-CCMP][ESS]","frequency":2412,"level":-70,"timestamp":"2026-02-23T12:00:04Z"},
  {"ssid":"no bssid"}
]`

func TestScoreRecordsUsesEarlierEntriesAsHistory(t *testing.T) {
	fields, err := ingest.ParseDocument(strings.NewReader(scanExport))
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Scoring.Timezone = "UTC"

	records, skipped := scoreRecords(fields, cfg, risk.NewEngine())
	require.Len(t, records, 5)
	assert.Len(t, skipped, 1)

	assert.Equal(t, 60, records[0].Report.Score)
	assert.Equal(t, model.LevelHigh, records[0].Report.Level)
	assert.Equal(t, 0, records[3].Report.Breakdown.SignalFluctuation)
	assert.Equal(t, 8, records[4].Report.Breakdown.SignalFluctuation)
	assert.Equal(t, ingest.SourceFile, records[4].Observation.Source)
}

func TestScoreCommandWritesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.json")
	require.NoError(t, os.WriteFile(path, []byte(scanExport), 0o644))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"score", "--file", path, "--format", "json"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())

	var records []model.ScanRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 5)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", records[0].Report.BSSID)
	assert.Contains(t, errOut.String(), "skipped record")
}

func TestScoreCommandRejectsUnknownFormat(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"score", "--file", "missing.json", "--format", "pdf"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "unsupported export format")
}
