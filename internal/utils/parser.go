package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// ToJSON turns a request value into a compact JSON column. Absent and null
// values become nil.
func ToJSON(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return datatypes.JSON(buf.Bytes()), nil
}

// JSONToMap decodes a JSON object column. Empty columns give nil; anything
// other than an object is an error.
func JSONToMap(jsonData datatypes.JSON) (map[string]interface{}, error) {
	if len(jsonData) == 0 {
		return nil, nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	return result, nil
}
