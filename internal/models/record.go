package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the neutral document shape handed to document stores.
type Record map[string]interface{}

// ToRecord converts a tagged struct into a Record.
func ToRecord(v interface{}) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// FromRecord decodes a Record into the destination struct.
func FromRecord(rec Record, dest interface{}) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// ID returns the identifier stored under field. Numeric ids are formatted as strings.
func (r Record) ID(field string) (string, bool) {
	value, ok := r[field]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}
