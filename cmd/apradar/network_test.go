package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apradar/internal/config"
	"apradar/internal/model"
	"apradar/internal/risk"
	"apradar/internal/storage"
)

// seededConfig writes a sqlite store with scans for one network and returns
// a config file pointing at it.
func seededConfig(t *testing.T, bssid string, signals ...int) string {
	t.Helper()
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "apradar.db")
	store, err := storage.NewStore(config.StorageConfig{Enabled: true, Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	scorer := risk.NewEngine()
	base := time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	for i, signal := range signals {
		obs := model.Observation{
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			BSSID:        bssid,
			SSID:         "HomeNet",
			Capabilities: "[WPA2-PSK-CCMP][ESS]",
			FrequencyMHz: 2412,
			SignalDBm:    signal,
		}
		require.NoError(t, store.SaveScan(ctx, obs, scorer.Assess(obs, nil, obs.Timestamp)))
	}
	require.NoError(t, store.Close())

	path := filepath.Join(dir, "apradar.yaml")
	content := fmt.Sprintf("scoring:\n  history_limit: 2\nstorage:\n  enabled: true\n  driver: sqlite\n  dsn: %q\n", dsn)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNetworkCommandPrintsLatestAndHistory(t *testing.T) {
	path := seededConfig(t, "00:11:22:33:44:55", -40, -55, -70)

	out, err := runRoot(t, "network", "--config", path, "--bssid", "00-11-22-33-44-55")
	require.NoError(t, err)

	var detail networkDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, "00:11:22:33:44:55", detail.Latest.Observation.BSSID)
	assert.Equal(t, -70, detail.Latest.Observation.SignalDBm)
	assert.Equal(t, 5, detail.Latest.Report.Score)
	require.Len(t, detail.History, 2)
	assert.Equal(t, -70, detail.History[0].Observation.SignalDBm)
	assert.Equal(t, -55, detail.History[1].Observation.SignalDBm)
}

func TestNetworkCommandUnknownBSSID(t *testing.T) {
	path := seededConfig(t, "00:11:22:33:44:55", -40)

	_, err := runRoot(t, "network", "--config", path, "--bssid", "AA:BB:CC:DD:EE:FF")
	assert.ErrorContains(t, err, "network AA:BB:CC:DD:EE:FF not found")
}

func TestNetworkCommandRequiresStorage(t *testing.T) {
	_, err := runRoot(t, "network", "--bssid", "AA:BB:CC:DD:EE:FF")
	assert.ErrorContains(t, err, "enable storage")
}
