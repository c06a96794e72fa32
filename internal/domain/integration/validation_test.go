package integration

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnector_Validate(t *testing.T) {
	tests := []struct {
		name      string
		connector Connector
		field     string
		tag       string
	}{
		{
			name: "valid",
			connector: Connector{ID: "c-1", Settings: ConnectorSettings{
				APIPrefix:                 "eu2",
				ContactAttributesOutbound: []MappingEntry{{HullFieldName: "email", ServiceFieldName: "email"}},
			}},
		},
		{
			name:      "missing id",
			connector: Connector{},
			field:     "Connector.id",
			tag:       "required",
		},
		{
			name:      "api prefix with a dot",
			connector: Connector{ID: "c-1", Settings: ConnectorSettings{APIPrefix: "api.eu"}},
			field:     "Connector.private_settings.api_prefix",
			tag:       "alphanum",
		},
		{
			name: "mapping without source",
			connector: Connector{ID: "c-1", Settings: ConnectorSettings{
				AccountAttributesOutbound: []MappingEntry{{ServiceFieldName: "name"}},
			}},
			field: "Connector.private_settings.account_attributes_outbound[0].hull_field_name",
			tag:   "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.connector.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Namespace())
			assert.Equal(t, tt.tag, verrs[0].Tag())
		})
	}
}

func TestConnectorSettings_Validate(t *testing.T) {
	settings := &ConnectorSettings{}
	assert.NoError(t, settings.Validate())

	settings.ContactCustomAttributesOutbound = []MappingEntry{{HullFieldName: ""}}
	assert.Error(t, settings.Validate())
}
