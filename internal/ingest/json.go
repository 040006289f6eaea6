package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"apradar/internal/normalize"
)

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func ParseJSONBytes(data []byte) (*normalize.ScanFields, error) {
	var obj map[string]any
	if err := decodeJSON(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("json value is not an object")
	}
	return ParseJSONMap(obj), nil
}

func ParseJSONMap(obj map[string]any) *normalize.ScanFields {
	kv := make(map[string]string, len(obj))
	for key, val := range obj {
		kv[strings.ToLower(key)] = stringify(val)
	}
	return fieldsFromMap(kv)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
