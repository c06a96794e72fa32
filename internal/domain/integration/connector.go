package integration

// Connector identifies one connector instance on the platform together with
// the private settings delivered alongside each notification.
type Connector struct {
	ID string `json:"id" validate:"required"`
	// Organization is the platform host the connector belongs to
	Organization string `json:"organization,omitempty"`
	// Secret authenticates calls back to the platform; never serialized
	Secret   string            `json:"-"`
	Settings ConnectorSettings `json:"private_settings"`
}

// ConnectorStatus is the health verdict of one connector instance
type ConnectorStatus string

const (
	ConnectorStatusOK            ConnectorStatus = "ok"
	ConnectorStatusWarning       ConnectorStatus = "warning"
	ConnectorStatusSetupRequired ConnectorStatus = "setupRequired"
)

// String returns the string representation of ConnectorStatus
func (s ConnectorStatus) String() string {
	return string(s)
}

// Settings completeness messages
const (
	StatusMessageMissingToken      = "No personal access token configured, the connector will not send any data."
	StatusMessageMissingTenantID   = "No tenant id configured, events will not be tracked."
	StatusMessageNoContactSegments = "No contact segments are synchronized, only batch deliveries send users."
	StatusMessageNoAccountSegments = "No account segments are synchronized, only batch deliveries send accounts."
	StatusMessageNoContactMapping  = "No contact attributes are mapped."
	StatusMessageNoAccountMapping  = "No account attributes are mapped."
)

// CheckSettings returns the connector status and the messages explaining it.
// A missing token requires setup; anything else incomplete is a warning.
func (s *ConnectorSettings) CheckSettings() (ConnectorStatus, []string) {
	if !s.CanCommunicateWithAPI() {
		return ConnectorStatusSetupRequired, []string{StatusMessageMissingToken}
	}

	var messages []string
	if s.TenantID == "" && len(s.ContactEvents) > 0 {
		messages = append(messages, StatusMessageMissingTenantID)
	}
	if len(s.ContactSynchronizedSegments) == 0 {
		messages = append(messages, StatusMessageNoContactSegments)
	}
	if len(s.AccountSynchronizedSegments) == 0 {
		messages = append(messages, StatusMessageNoAccountSegments)
	}
	if len(s.ContactAttributesOutbound) == 0 && len(s.ContactCustomAttributesOutbound) == 0 {
		messages = append(messages, StatusMessageNoContactMapping)
	}
	if len(s.AccountAttributesOutbound) == 0 && len(s.AccountCustomAttributesOutbound) == 0 {
		messages = append(messages, StatusMessageNoAccountMapping)
	}

	if len(messages) > 0 {
		return ConnectorStatusWarning, messages
	}
	return ConnectorStatusOK, []string{}
}
