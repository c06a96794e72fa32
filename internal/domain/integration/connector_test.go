package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectorSettings_CheckSettings(t *testing.T) {
	complete := ConnectorSettings{
		PersonalAccessToken:         "token",
		TenantID:                    "tenant",
		ContactSynchronizedSegments: []string{"s1"},
		AccountSynchronizedSegments: []string{"s2"},
		ContactAttributesOutbound:   []MappingEntry{{HullFieldName: "email", ServiceFieldName: "email"}},
		AccountAttributesOutbound:   []MappingEntry{{HullFieldName: "name", ServiceFieldName: "name"}},
		ContactEvents:               []string{"Signed up"},
	}

	tests := []struct {
		name     string
		mutate   func(s *ConnectorSettings)
		status   ConnectorStatus
		messages []string
	}{
		{
			name:     "complete",
			mutate:   func(s *ConnectorSettings) {},
			status:   ConnectorStatusOK,
			messages: []string{},
		},
		{
			name:     "missing token",
			mutate:   func(s *ConnectorSettings) { s.PersonalAccessToken = "" },
			status:   ConnectorStatusSetupRequired,
			messages: []string{StatusMessageMissingToken},
		},
		{
			name:     "events without tenant",
			mutate:   func(s *ConnectorSettings) { s.TenantID = "" },
			status:   ConnectorStatusWarning,
			messages: []string{StatusMessageMissingTenantID},
		},
		{
			name: "no segments",
			mutate: func(s *ConnectorSettings) {
				s.ContactSynchronizedSegments = nil
				s.AccountSynchronizedSegments = nil
			},
			status:   ConnectorStatusWarning,
			messages: []string{StatusMessageNoContactSegments, StatusMessageNoAccountSegments},
		},
		{
			name: "custom mappings count",
			mutate: func(s *ConnectorSettings) {
				s.ContactAttributesOutbound = nil
				s.ContactCustomAttributesOutbound = []MappingEntry{{HullFieldName: "plan", ServiceFieldName: "Plan"}}
				s.AccountAttributesOutbound = nil
			},
			status:   ConnectorStatusWarning,
			messages: []string{StatusMessageNoAccountMapping},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := complete
			tt.mutate(&settings)

			status, messages := settings.CheckSettings()
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.messages, messages)
		})
	}
}
