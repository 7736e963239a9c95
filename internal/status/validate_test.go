package status_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notdeathm/notdeath/internal/status"
)

func validDocumentJSON(t *testing.T) map[string]interface{} {
	t.Helper()
	return map[string]interface{}{
		"status":     "online",
		"summary":    "All systems operational",
		"updated_at": time.Now().UTC().Format(time.RFC3339),
		"components": []map[string]interface{}{
			{"id": "site", "name": "Website", "status": "online"},
			{"id": "api", "name": "API", "status": "offline"},
		},
	}
}

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestValidateDocument_Valid(t *testing.T) {
	assert.NoError(t, status.ValidateDocument(marshal(t, validDocumentJSON(t))))
}

func TestValidateDocument_EmptyComponents(t *testing.T) {
	doc := validDocumentJSON(t)
	doc["components"] = []interface{}{}
	assert.NoError(t, status.ValidateDocument(marshal(t, doc)))
}

func TestValidateDocument_Diagnostics(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(doc map[string]interface{})
		wantMsg string
	}{
		{
			name:    "missing status",
			mutate:  func(doc map[string]interface{}) { delete(doc, "status") },
			wantMsg: "missing required top-level field 'status'",
		},
		{
			name:    "status not a string",
			mutate:  func(doc map[string]interface{}) { doc["status"] = 42 },
			wantMsg: "'status' must be a string",
		},
		{
			name:    "missing updated_at",
			mutate:  func(doc map[string]interface{}) { delete(doc, "updated_at") },
			wantMsg: "missing required 'updated_at' field",
		},
		{
			name:    "updated_at not a timestamp",
			mutate:  func(doc map[string]interface{}) { doc["updated_at"] = "yesterday" },
			wantMsg: "'updated_at' is not a valid timestamp",
		},
		{
			name:    "updated_at not a string",
			mutate:  func(doc map[string]interface{}) { doc["updated_at"] = 12345 },
			wantMsg: "'updated_at' is not a valid timestamp",
		},
		{
			name:    "missing components",
			mutate:  func(doc map[string]interface{}) { delete(doc, "components") },
			wantMsg: "missing 'components' field (should be an array)",
		},
		{
			name:    "components not an array",
			mutate:  func(doc map[string]interface{}) { doc["components"] = "none" },
			wantMsg: "'components' must be an array",
		},
		{
			name: "component missing id",
			mutate: func(doc map[string]interface{}) {
				doc["components"] = []map[string]interface{}{
					{"id": "site", "name": "Website", "status": "online"},
					{"name": "API", "status": "online"},
				}
			},
			wantMsg: "component at index 1 missing 'id'",
		},
		{
			name: "component missing name",
			mutate: func(doc map[string]interface{}) {
				doc["components"] = []map[string]interface{}{
					{"id": "api", "status": "online"},
				}
			},
			wantMsg: "component 'api' missing 'name'",
		},
		{
			name: "component missing status",
			mutate: func(doc map[string]interface{}) {
				doc["components"] = []map[string]interface{}{
					{"id": "api", "name": "API"},
				}
			},
			wantMsg: "component 'api' missing 'status'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocumentJSON(t)
			tt.mutate(doc)

			err := status.ValidateDocument(marshal(t, doc))
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestValidateDocument_NotJSON(t *testing.T) {
	err := status.ValidateDocument([]byte("{truncated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status document is not valid JSON")
}
