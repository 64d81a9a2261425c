// Package decode converts loosely typed values, such as orchestration event
// payloads, graph state entries and TOML tables, into typed Go values.
package decode

import (
	"encoding/json"
	"fmt"
)

// FromMap decodes data into T using T's json tags. Unknown keys are ignored.
func FromMap[T any](data map[string]any) (T, error) {
	var result T
	b, err := json.Marshal(data)
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(b, &result)
	return result, err
}

// Value returns v as T. Values that are already a T are returned as is;
// anything else goes through its JSON form, so a []any of strings read back
// from a serialized checkpoint still yields a []string.
func Value[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}

	var result T
	if v == nil {
		return result, fmt.Errorf("decode %T: value is nil", result)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return result, fmt.Errorf("decode %T: %w", result, err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("decode %T from %T: %w", result, v, err)
	}
	return result, nil
}
