package planhat

import (
	"errors"

	"github.com/hull-connectors/planhat/internal/domain/shared"
)

// Remote service errors
var (
	ErrTransport      = errors.New("planhat: transport failure")
	ErrDecodeResponse = errors.New("planhat: failed to decode response")
)

// Field names shared by the service objects.
const (
	FieldRemoteID    = "_id"
	FieldID          = "id"
	FieldName        = "name"
	FieldEmail       = "email"
	FieldExternalID  = "externalId"
	FieldCompanyID   = "companyId"
	FieldLastUpdated = "lastUpdated"
	FieldShareable   = "shareable"
	FieldCustom      = "custom"
)

// Contact is an end user record. Keys are remote field names; custom fields
// are nested under "custom".
type Contact map[string]any

// Get resolves a dot-separated field path.
func (c Contact) Get(path string) (any, bool) { return shared.GetPath(c, path) }

// Set writes a dot-separated field path.
func (c Contact) Set(path string, value any) { shared.SetPath(c, path, value) }

// RemoteID returns the server-assigned "_id".
func (c Contact) RemoteID() string { return shared.GetString(c, FieldRemoteID) }

// Email returns the contact email.
func (c Contact) Email() string { return shared.GetString(c, FieldEmail) }

// CompanyID returns the owning company id, if set.
func (c Contact) CompanyID() string { return shared.GetString(c, FieldCompanyID) }

// Company is a company record.
type Company map[string]any

// Get resolves a dot-separated field path.
func (c Company) Get(path string) (any, bool) { return shared.GetPath(c, path) }

// Set writes a dot-separated field path.
func (c Company) Set(path string, value any) { shared.SetPath(c, path, value) }

// RemoteID returns the server-assigned "_id".
func (c Company) RemoteID() string { return shared.GetString(c, FieldRemoteID) }

// ID returns the id carried on an outgoing payload.
func (c Company) ID() string { return shared.GetString(c, FieldID) }

// ExternalID returns the external id.
func (c Company) ExternalID() string { return shared.GetString(c, FieldExternalID) }

// License is a license line attached to a company.
type License map[string]any

// Event is a tracked activity attached to an end user.
type Event struct {
	Name              string         `json:"name,omitempty"`
	ExternalID        string         `json:"externalId,omitempty"`
	Email             string         `json:"email,omitempty"`
	CompanyExternalID string         `json:"companyExternalId,omitempty"`
	Action            string         `json:"action"`
	Date              string         `json:"date,omitempty"`
	Info              map[string]any `json:"info,omitempty"`
}

// KeyRef identifies a record touched by a bulk operation.
type KeyRef struct {
	ID string `json:"_id"`
}

// BulkUpsertResponse is returned by bulk endpoints such as PUT /licenses.
type BulkUpsertResponse struct {
	Created       int              `json:"created"`
	CreatedErrors []map[string]any `json:"createdErrors"`
	InsertsKeys   []KeyRef         `json:"insertsKeys"`
	Updated       int              `json:"updated"`
	UpdatedErrors []map[string]any `json:"updatedErrors"`
	UpdatesKeys   []KeyRef         `json:"updatesKeys"`
	NonUpdates    int              `json:"nonupdates"`
	Modified      []any            `json:"modified"`
	UpsertedIDs   []string         `json:"upsertedIds"`
}
