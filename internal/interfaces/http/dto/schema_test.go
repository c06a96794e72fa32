package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_Notification(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "user update",
			body: `{"channel":"user:update","connector":{"id":"c1","private_settings":{}},
				"messages":[{"message_id":"m1","user":{"email":"a@acme.io"},"segments":[{"id":"s1"}]}]}`,
		},
		{
			name: "account update",
			body: `{"channel":"account:update","connector":{"id":"c1"},"messages":[{"account":{"domain":"acme.io"}}]}`,
		},
		{
			name:    "unknown channel",
			body:    `{"channel":"ship:update","connector":{"id":"c1"},"messages":[]}`,
			wantErr: true,
		},
		{
			name:    "missing messages",
			body:    `{"channel":"user:update","connector":{"id":"c1"}}`,
			wantErr: true,
		},
		{
			name:    "user message without user",
			body:    `{"channel":"user:update","connector":{"id":"c1"},"messages":[{"account":{}}]}`,
			wantErr: true,
		},
		{
			name:    "account message without account",
			body:    `{"channel":"account:update","connector":{"id":"c1"},"messages":[{"user":{}}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(SchemaNotification, []byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Details)
		})
	}
}

func TestSchemaValidator_InvalidJSON(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.ErrorIs(t, v.Validate(SchemaNotification, []byte(`{"channel":`)), ErrInvalidJSON)
	assert.Error(t, v.Validate("missing.json", []byte(`{}`)))
}

func TestSchemaValidator_Status(t *testing.T) {
	v, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(SchemaStatus, []byte(`{"connector":{"id":"c1","private_settings":{"api_prefix":"eu"}}}`)))
	assert.Error(t, v.Validate(SchemaStatus, []byte(`{"configuration":{}}`)))
}
