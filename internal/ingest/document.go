package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"apradar/internal/normalize"
)

// ParseDocument reads a whole scan export: a JSON array of objects, NDJSON,
// CSV (with or without a header) or key=value lines. Unparseable lines are
// skipped; a malformed JSON array is an error.
func ParseDocument(r io.Reader) ([]normalize.ScanFields, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return parseJSONArray(trimmed)
	}

	parser := NewParser()
	var out []normalize.ScanFields
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 8192), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		fields, err := parser.ParseLine(line)
		if err != nil || fields == nil {
			continue
		}
		out = append(out, *fields)
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func parseJSONArray(data []byte) ([]normalize.ScanFields, error) {
	var items []map[string]any
	if err := decodeJSON(data, &items); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	out := make([]normalize.ScanFields, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *ParseJSONMap(item))
	}
	return out, nil
}
