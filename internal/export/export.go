// Package export renders scan records as JSON, CSV or KML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"apradar/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatKML  Format = "kml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatKML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func Write(w io.Writer, format Format, records []model.ScanRecord) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatKML:
		return writeKML(w, records)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

// FileName follows the radar_export_YYYYMMDD_HHMMSS.<ext> convention.
func FileName(format Format, now time.Time) string {
	return "radar_export_" + now.Format("20060102_150405") + "." + string(format)
}

// WriteFile writes records into dir, creating it if needed, and returns the
// path written.
func WriteFile(dir string, format Format, records []model.ScanRecord, now time.Time) (string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(format, now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, format, records); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(w io.Writer, records []model.ScanRecord) error {
	if records == nil {
		records = []model.ScanRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

var csvHeader = func() []string {
	cols := []string{
		"timestamp", "bssid", "ssid", "capabilities", "frequency_mhz", "signal_dbm",
		"is_hidden", "is_open", "vendor", "latitude", "longitude", "source",
		"risk_score", "risk_level",
	}
	for _, f := range model.Factors {
		cols = append(cols, string(f))
	}
	return append(cols, "recommendations")
}()

func writeCSV(w io.Writer, records []model.ScanRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		obs := rec.Observation
		row := []string{
			formatTime(obs.Timestamp),
			obs.BSSID,
			obs.SSID,
			obs.Capabilities,
			strconv.Itoa(obs.FrequencyMHz),
			strconv.Itoa(obs.SignalDBm),
			strconv.FormatBool(obs.Hidden),
			strconv.FormatBool(obs.Open),
			obs.Vendor,
			formatCoord(obs.Latitude),
			formatCoord(obs.Longitude),
			obs.Source,
			strconv.Itoa(rec.Report.Score),
			string(rec.Report.Level),
		}
		for _, f := range model.Factors {
			row = append(row, strconv.Itoa(rec.Report.Breakdown.Get(f)))
		}
		row = append(row, strings.Join(rec.Report.Recommendations, "; "))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

type kmlDoc struct {
	XMLName  xml.Name `xml:"kml"`
	NS       string   `xml:"xmlns,attr"`
	Document kmlDocument
}

type kmlDocument struct {
	XMLName     xml.Name       `xml:"Document"`
	Name        string         `xml:"name"`
	Description string         `xml:"description"`
	Placemarks  []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string    `xml:"name"`
	Description string    `xml:"description"`
	Point       *kmlPoint `xml:"Point,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

func writeKML(w io.Writer, records []model.ScanRecord) error {
	doc := kmlDoc{
		NS: "http://www.opengis.net/kml/2.2",
		Document: kmlDocument{
			Name:        "apradar scan results",
			Description: "Wi-Fi network scan results",
		},
	}
	for _, rec := range records {
		doc.Document.Placemarks = append(doc.Document.Placemarks, placemark(rec))
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func placemark(rec model.ScanRecord) kmlPlacemark {
	obs := rec.Observation
	name := obs.SSID
	if name == "" {
		name = "Hidden Network (" + obs.BSSID + ")"
	}
	pm := kmlPlacemark{
		Name: name,
		Description: fmt.Sprintf("BSSID: %s\nSignal: %d dBm\nRisk Score: %d\nSecurity: %s",
			obs.BSSID, obs.SignalDBm, rec.Report.Score, obs.Capabilities),
	}
	if obs.HasFix() {
		pm.Point = &kmlPoint{Coordinates: formatCoord(obs.Longitude) + "," + formatCoord(obs.Latitude) + ",0"}
	}
	return pm
}
