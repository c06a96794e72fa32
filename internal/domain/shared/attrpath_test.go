package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPath(t *testing.T) {
	root := map[string]any{
		"account": map[string]any{
			"planhat": map[string]any{"id": "1234"},
			"domains": []any{"acme.com", "acme.io"},
			"owner":   nil,
		},
		"email": "jane@acme.com",
	}

	tests := []struct {
		name    string
		path    string
		want    any
		wantOK  bool
		defined bool
	}{
		{name: "top level", path: "email", want: "jane@acme.com", wantOK: true, defined: true},
		{name: "nested map", path: "account.planhat.id", want: "1234", wantOK: true, defined: true},
		{name: "slice index", path: "account.domains.1", want: "acme.io", wantOK: true, defined: true},
		{name: "slice out of range", path: "account.domains.5", wantOK: false},
		{name: "explicit nil", path: "account.owner", want: nil, wantOK: true, defined: false},
		{name: "missing leaf", path: "account.planhat.last_updated_at", wantOK: false},
		{name: "through scalar", path: "email.domain", wantOK: false},
		{name: "empty path", path: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetPath(root, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			_, defined := GetDefined(root, tt.path)
			assert.Equal(t, tt.defined, defined)
		})
	}
}

func TestGetString(t *testing.T) {
	root := map[string]any{"id": "abc", "count": 3}

	assert.Equal(t, "abc", GetString(root, "id"))
	assert.Equal(t, "", GetString(root, "count"))
	assert.Equal(t, "", GetString(root, "missing"))
	assert.Equal(t, "", GetString(nil, "id"))
}

func TestSetPath(t *testing.T) {
	t.Run("creates intermediate maps", func(t *testing.T) {
		root := map[string]any{}
		SetPath(root, "custom.tier", "gold")

		assert.Equal(t, map[string]any{"custom": map[string]any{"tier": "gold"}}, root)
	})

	t.Run("keeps sibling keys", func(t *testing.T) {
		root := map[string]any{"custom": map[string]any{"plan": "pro"}}
		SetPath(root, "custom.tier", "gold")

		assert.Equal(t, "pro", root["custom"].(map[string]any)["plan"])
		assert.Equal(t, "gold", root["custom"].(map[string]any)["tier"])
	})

	t.Run("replaces scalar in the middle", func(t *testing.T) {
		root := map[string]any{"custom": "legacy"}
		SetPath(root, "custom.tier", "gold")

		assert.Equal(t, map[string]any{"tier": "gold"}, root["custom"])
	})

	t.Run("nil root is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() { SetPath(nil, "a.b", 1) })
	})
}
