package dto

import (
	"encoding/json"
	"fmt"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// PlatformConfiguration is the platform block of a notification. It carries the
// credentials used to call back into the platform.
type PlatformConfiguration struct {
	ID           string `json:"id"`
	Organization string `json:"organization"`
	Secret       string `json:"secret"`
}

// ConnectorPayload is the connector block of a notification
type ConnectorPayload struct {
	ID              string                        `json:"id"`
	PrivateSettings integration.ConnectorSettings `json:"private_settings"`
}

// NotificationRequest is the body posted by the platform to /smart-notifier,
// /batch and /status. Messages are decoded per channel.
type NotificationRequest struct {
	NotificationID string                `json:"notification_id"`
	Channel        string                `json:"channel"`
	Configuration  PlatformConfiguration `json:"configuration"`
	Connector      ConnectorPayload      `json:"connector"`
	Messages       json.RawMessage       `json:"messages"`
}

// ToConnector builds the addressed connector. Identity missing from the body
// falls back to the configuration block, then to the given defaults.
func (r *NotificationRequest) ToConnector(defaultOrganization, defaultSecret string) *integration.Connector {
	connector := &integration.Connector{
		ID:           firstNonEmpty(r.Connector.ID, r.Configuration.ID),
		Organization: firstNonEmpty(r.Configuration.Organization, defaultOrganization),
		Secret:       firstNonEmpty(r.Configuration.Secret, defaultSecret),
		Settings:     r.Connector.PrivateSettings,
	}
	return connector
}

// UserMessages decodes the messages of a user:update notification
func (r *NotificationRequest) UserMessages() ([]*hull.UserUpdateMessage, error) {
	var messages []*hull.UserUpdateMessage
	if err := decodeMessages(r.Messages, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// AccountMessages decodes the messages of an account:update notification
func (r *NotificationRequest) AccountMessages() ([]*hull.AccountUpdateMessage, error) {
	var messages []*hull.AccountUpdateMessage
	if err := decodeMessages(r.Messages, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func decodeMessages(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode messages: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// Flow control types understood by the platform
const (
	FlowControlNext  = "next"
	FlowControlRetry = "retry"
)

// FlowControl tells the platform how to pace the next delivery
type FlowControl struct {
	Type string `json:"type"`
	Size int    `json:"size,omitempty"`
	// In is the delay before the next delivery, in milliseconds
	In int `json:"in,omitempty"`
}

// NextFlowControl asks for the next delivery right away
func NextFlowControl() *FlowControl {
	return &FlowControl{Type: FlowControlNext, Size: 100, In: 1}
}

// RetryFlowControl asks the platform to redeliver after a pause
func RetryFlowControl() *FlowControl {
	return &FlowControl{Type: FlowControlRetry, In: 10000}
}

// NotificationResponse is the data returned for a processed notification
type NotificationResponse struct {
	FlowControl *FlowControl `json:"flow_control"`
	Result      any          `json:"result,omitempty"`
}
