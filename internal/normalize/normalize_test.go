package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apradar/internal/config"
)

func TestNormalizeBSSID(t *testing.T) {
	cases := map[string]string{
		"00:11:22:aa:bb:cc": "00:11:22:AA:BB:CC",
		"00-11-22-AA-BB-CC": "00:11:22:AA:BB:CC",
		"0011.22aa.bbcc":    "00:11:22:AA:BB:CC",
		"001122aabbcc":      "00:11:22:AA:BB:CC",
		" aa:bb ":           "AA:BB",
		"not-a-mac":         "NOT-A-MAC",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBSSID(in), in)
	}
}

func TestNormalizeDerivesFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	obs, err := Normalize(ScanFields{
		Timestamp:    "2026-02-23T12:34:56Z",
		BSSID:        "00-00-0c-12-34-56",
		SSID:         "",
		Capabilities: "[ESS]",
		Frequency:    "2437",
		Level:        "-61.5",
	}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "00:00:0C:12:34:56", obs.BSSID)
	assert.True(t, obs.Hidden)
	assert.True(t, obs.Open)
	assert.Equal(t, "Cisco", obs.Vendor)
	assert.Equal(t, 2437, obs.FrequencyMHz)
	assert.Equal(t, -61, obs.SignalDBm)
	assert.Equal(t, time.Date(2026, 2, 23, 12, 34, 56, 0, time.UTC), obs.Timestamp)
	assert.False(t, obs.HasFix())
}

func TestNormalizeExplicitFlagsWin(t *testing.T) {
	obs, err := Normalize(ScanFields{
		BSSID:        "F0:9F:C2:00:00:01",
		SSID:         "Office",
		Capabilities: "[ESS]",
		Hidden:       "true",
		Open:         "no",
		Vendor:       "CustomVendor",
		Latitude:     "37.77",
		Longitude:    "-122.42",
	}, config.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, obs.Hidden)
	assert.False(t, obs.Open)
	assert.Equal(t, "CustomVendor", obs.Vendor)
	require.True(t, obs.HasFix())
	assert.InDelta(t, 37.77, *obs.Latitude, 1e-9)
}

func TestNormalizeDegradesOnBadNumbers(t *testing.T) {
	obs, err := Normalize(ScanFields{
		BSSID:        "F0:9F:C2:00:00:01",
		SSID:         "Office",
		Capabilities: "[WPA2-PSK-CCMP]",
		Frequency:    "n/a",
		Level:        "",
	}, config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, obs.FrequencyMHz)
	assert.Equal(t, 0, obs.SignalDBm)
	assert.False(t, obs.Open)
	assert.Equal(t, "Ubiquiti", obs.Vendor)
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize(ScanFields{SSID: "x"}, config.DefaultConfig())
	assert.ErrorIs(t, err, ErrMissingBSSID)

	_, err = Normalize(ScanFields{BSSID: "00:11:22:33:44:55", Timestamp: "yesterday"}, config.DefaultConfig())
	assert.Error(t, err)
}

func TestNormalizeSSID(t *testing.T) {
	assert.Equal(t, "", NormalizeSSID("\x00\x00\x00"))
	assert.Equal(t, "", NormalizeSSID("<hidden>"))
	assert.Equal(t, "Cafe", NormalizeSSID("  Cafe "))
}

func TestLookupVendorSkipsRandomizedAddresses(t *testing.T) {
	assert.Equal(t, "TP-Link", LookupVendor("14:CC:20:01:02:03"))
	assert.True(t, IsLocallyAdministered("02:CC:20:01:02:03"))
	assert.Equal(t, "", LookupVendor("DA:A1:19:00:00:01"))
	assert.Equal(t, "", LookupVendor("AA"))
}

func TestParseTimestampUnix(t *testing.T) {
	ts, err := ParseTimestamp("1771850096", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1771850096), ts.Unix())

	ts, err = ParseTimestamp("1771850096123", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1771850096123), ts.UnixMilli())
}
