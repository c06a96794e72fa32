package integration

import (
	"time"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// Notification channels
const (
	ChannelUserUpdate    = "user:update"
	ChannelAccountUpdate = "account:update"
)

// ---------------------------------------------------------------------------
// Notification DTOs
// ---------------------------------------------------------------------------

// UserNotification is one delivery of user change messages
type UserNotification struct {
	Connector *integration.Connector
	Messages  []*hull.UserUpdateMessage
	// IsBatch marks a manual batch delivery; segment and change filters are off
	IsBatch bool
}

// AccountNotification is one delivery of account change messages
type AccountNotification struct {
	Connector *integration.Connector
	Messages  []*hull.AccountUpdateMessage
	IsBatch   bool
}

// NotificationResult summarizes what happened to one delivery
type NotificationResult struct {
	Channel    string `json:"channel"`
	Received   int    `json:"received"`
	Duplicates int    `json:"duplicates"`
	Dispatched int    `json:"dispatched"`
	// Reason is set when nothing was dispatched on purpose
	Reason string `json:"reason,omitempty"`
}

// Reasons reported on a NotificationResult
const (
	ResultReasonNoToken       = "no personal access token configured"
	ResultReasonAllDuplicates = "all messages were already processed"
	ResultReasonNoMessages    = "notification carries no messages"
)

// ---------------------------------------------------------------------------
// Status DTOs
// ---------------------------------------------------------------------------

// StatusResponse reports settings completeness and recent sync outcomes
type StatusResponse struct {
	ConnectorID string                      `json:"connector_id"`
	Status      integration.ConnectorStatus `json:"status"`
	Messages    []string                    `json:"messages"`
	// Outcomes counts journal entries by status since Since; empty without a journal
	Outcomes map[string]int64 `json:"outcomes,omitempty"`
	Since    *time.Time       `json:"since,omitempty"`
}
