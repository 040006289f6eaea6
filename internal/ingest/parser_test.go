package ingest

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"apradar/internal/config"
	"apradar/internal/model"
)

func TestParsePlainText(t *testing.T) {
	p := NewParser()
	line := `2026-02-23 12:34:56 BSSID=00:11:22:33:44:55 SSID="Cafe Guest" LEVEL=-48 FREQ=2437 CAPS=[WPA2-PSK-CCMP][ESS]`
	fields, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.Timestamp != "2026-02-23 12:34:56" {
		t.Fatalf("timestamp: %q", fields.Timestamp)
	}
	if fields.BSSID != "00:11:22:33:44:55" {
		t.Fatalf("bssid: %s", fields.BSSID)
	}
	if fields.SSID != "Cafe Guest" {
		t.Fatalf("ssid: %q", fields.SSID)
	}
	if fields.Level != "-48" || fields.Frequency != "2437" {
		t.Fatalf("level/frequency: %s/%s", fields.Level, fields.Frequency)
	}
	if fields.Capabilities != "[WPA2-PSK-CCMP][ESS]" {
		t.Fatalf("capabilities: %s", fields.Capabilities)
	}
}

func TestParseCSV(t *testing.T) {
	p := NewParser()
	if fields, _ := p.ParseLine("timestamp,bssid,ssid,capabilities,frequency,level"); fields != nil {
		t.Fatalf("expected header to return nil")
	}
	fields, err := p.ParseLine("2026-02-23T12:34:56Z,AA:BB:CC:DD:EE:FF,FreeWiFi,[ESS],2437,-35")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.BSSID != "AA:BB:CC:DD:EE:FF" || fields.SSID != "FreeWiFi" || fields.Level != "-35" {
		t.Fatalf("csv parse mismatch: %+v", fields)
	}
}

func TestParseCSVReorderedHeader(t *testing.T) {
	p := NewParser()
	p.ParseLine("RSSI,BSSID,SSID")
	fields, err := p.ParseLine("-70,aa-bb-cc-dd-ee-ff,Home")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.Level != "-70" || fields.BSSID != "aa-bb-cc-dd-ee-ff" || fields.SSID != "Home" {
		t.Fatalf("csv parse mismatch: %+v", fields)
	}
}

func TestParseCSVWithoutHeader(t *testing.T) {
	p := NewParser()
	fields, err := p.ParseLine("2026-02-23T12:34:56Z,00:11:22:33:44:55,Office,[WPA3-SAE],5180,-60")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.BSSID != "00:11:22:33:44:55" || fields.Frequency != "5180" {
		t.Fatalf("positional csv mismatch: %+v", fields)
	}
}

func TestParseJSON(t *testing.T) {
	p := NewParser()
	line := `{"bssid":"00:11:22:33:44:55","ssid":"Cafe","frequency_mhz":2412,"rssi":-52,"timestamp":1771850096123,"channel_bandwidth_mhz":"20"}`
	fields, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.BSSID != "00:11:22:33:44:55" || fields.SSID != "Cafe" {
		t.Fatalf("json parse mismatch")
	}
	if fields.Frequency != "2412" || fields.Level != "-52" {
		t.Fatalf("numbers: %s/%s", fields.Frequency, fields.Level)
	}
	if fields.Timestamp != "1771850096123" {
		t.Fatalf("timestamp kept exact: %s", fields.Timestamp)
	}
	if fields.Extras["channel_bandwidth_mhz"] != "20" {
		t.Fatalf("extras: %v", fields.Extras)
	}
}

func TestParseJSONFlags(t *testing.T) {
	fields, err := ParseJSONBytes([]byte(`{"BSSID":"00:11:22:33:44:55","is_hidden":true,"is_open":false,"vendor":null}`))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.Hidden != "true" || fields.Open != "false" || fields.Vendor != "" {
		t.Fatalf("flags: %+v", fields)
	}
}

func TestParseBlankLine(t *testing.T) {
	fields, err := NewParser().ParseLine("   ")
	if err != nil || fields != nil {
		t.Fatalf("expected nil, nil for blank line")
	}
}

func TestParseDocumentJSONArray(t *testing.T) {
	doc := `[
  {"bssid":"00:11:22:33:44:55","ssid":"A","level":-40},
  {"bssid":"00:11:22:33:44:66","ssid":"B","level":-80}
]`
	records, err := ParseDocument(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(records) != 2 || records[1].SSID != "B" {
		t.Fatalf("records: %+v", records)
	}
}

func TestParseDocumentNDJSONAndCSV(t *testing.T) {
	ndjson := "{\"bssid\":\"00:11:22:33:44:55\"}\n\n# comment\n{\"bssid\":\"00:11:22:33:44:66\"}\n"
	records, err := ParseDocument(strings.NewReader(ndjson))
	if err != nil || len(records) != 2 {
		t.Fatalf("ndjson: %v %d", err, len(records))
	}

	csvDoc := "bssid,ssid,level\n00:11:22:33:44:55,A,-40\n00:11:22:33:44:66,B,-50\n"
	records, err = ParseDocument(strings.NewReader(csvDoc))
	if err != nil || len(records) != 2 {
		t.Fatalf("csv: %v %d", err, len(records))
	}
	if records[0].Level != "-40" {
		t.Fatalf("csv level: %s", records[0].Level)
	}
}

func TestParseDocumentBadArray(t *testing.T) {
	if _, err := ParseDocument(strings.NewReader(`[{"bssid":`)); err == nil {
		t.Fatalf("expected error for truncated array")
	}
}

func TestSendNonBlockingDropsWhenFull(t *testing.T) {
	out := make(chan model.Observation, 1)
	ctx := context.Background()
	if !SendNonBlocking(ctx, out, model.Observation{BSSID: "A"}, nil) {
		t.Fatalf("first send should succeed")
	}
	if SendNonBlocking(ctx, out, model.Observation{BSSID: "B"}, nil) {
		t.Fatalf("second send should drop")
	}
}

func TestTCPStream(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ingest.TCPStream.Enabled = true
	cfg.Ingest.TCPStream.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan model.Observation, 4)
	addr, err := StartTCPStream(ctx, config.NewStaticManager(cfg), out, nil)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("bssid,ssid,level\n001122334455,Lobby,-42\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case obs := <-out:
		if obs.BSSID != "00:11:22:33:44:55" || obs.SSID != "Lobby" || obs.SignalDBm != -42 {
			t.Fatalf("unexpected observation: %+v", obs)
		}
		if obs.Source != SourceTCPStream {
			t.Fatalf("source: %s", obs.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for observation")
	}
}
