package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValidateDocument checks that raw is a status document satisfying the
// schema invariants. Each failure mode yields a distinct message naming the
// offending field; release gating depends on these exact diagnostics.
func ValidateDocument(raw []byte) error {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("status document is not valid JSON: %w", err)
	}

	rawStatus, ok := data["status"]
	if !ok {
		return fmt.Errorf("missing required top-level field 'status'")
	}
	var statusText string
	if err := json.Unmarshal(rawStatus, &statusText); err != nil {
		return fmt.Errorf("'status' must be a string")
	}

	rawUpdated, ok := data["updated_at"]
	if !ok {
		return fmt.Errorf("missing required 'updated_at' field")
	}
	var updatedText string
	if err := json.Unmarshal(rawUpdated, &updatedText); err != nil {
		return fmt.Errorf("'updated_at' is not a valid timestamp")
	}
	if _, err := time.Parse(time.RFC3339, updatedText); err != nil {
		return fmt.Errorf("'updated_at' is not a valid timestamp")
	}

	rawComponents, ok := data["components"]
	if !ok {
		return fmt.Errorf("missing 'components' field (should be an array)")
	}
	var components []map[string]json.RawMessage
	if err := json.Unmarshal(rawComponents, &components); err != nil {
		return fmt.Errorf("'components' must be an array")
	}

	for i, c := range components {
		id := stringField(c, "id")
		if id == "" {
			return fmt.Errorf("component at index %d missing 'id'", i)
		}
		if stringField(c, "name") == "" {
			return fmt.Errorf("component '%s' missing 'name'", id)
		}
		if stringField(c, "status") == "" {
			return fmt.Errorf("component '%s' missing 'status'", id)
		}
	}

	return nil
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
