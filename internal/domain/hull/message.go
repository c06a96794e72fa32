package hull

import (
	"github.com/hull-connectors/planhat/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

// Profile is a user or account attribute set. Grouped traits are nested,
// e.g. the remote id written back by this connector lives at "planhat.id".
type Profile map[string]any

// Get resolves a dot-separated attribute path.
func (p Profile) Get(path string) (any, bool) {
	return shared.GetPath(p, path)
}

// ID returns the platform identifier.
func (p Profile) ID() string { return shared.GetString(p, "id") }

// ExternalID returns the external identifier.
func (p Profile) ExternalID() string { return shared.GetString(p, "external_id") }

// Email returns the email address of a user profile.
func (p Profile) Email() string { return shared.GetString(p, "email") }

// Domain returns the domain of an account profile.
func (p Profile) Domain() string { return shared.GetString(p, "domain") }

// AnonymousID returns the anonymous identifier, if any.
func (p Profile) AnonymousID() string { return shared.GetString(p, "anonymous_id") }

// PlanhatID returns the remote identifier previously written back, if any.
func (p Profile) PlanhatID() string { return shared.GetString(p, "planhat.id") }

// UserClaims builds the identity claims of a user profile.
func (p Profile) UserClaims() UserClaims {
	return UserClaims{
		ID:          p.ID(),
		Email:       p.Email(),
		ExternalID:  p.ExternalID(),
		AnonymousID: p.AnonymousID(),
	}
}

// AccountClaims builds the identity claims of an account profile.
func (p Profile) AccountClaims() AccountClaims {
	return AccountClaims{
		ID:          p.ID(),
		Domain:      p.Domain(),
		ExternalID:  p.ExternalID(),
		AnonymousID: p.AnonymousID(),
	}
}

// ---------------------------------------------------------------------------
// Segments, events and changes
// ---------------------------------------------------------------------------

// Segment is a named cohort on the platform.
type Segment struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// SegmentIDs returns the identifiers of the given segments.
func SegmentIDs(segments []Segment) []string {
	ids := make([]string, 0, len(segments))
	for _, s := range segments {
		ids = append(ids, s.ID)
	}
	return ids
}

// Event is a tracked user event.
type Event struct {
	EventID    string         `json:"event_id,omitempty"`
	Event      string         `json:"event"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// SegmentChanges lists the segments entered and left since the last notification.
type SegmentChanges struct {
	Entered []Segment `json:"entered,omitempty"`
	Left    []Segment `json:"left,omitempty"`
}

// IsEmpty reports whether no segment was entered or left.
func (c SegmentChanges) IsEmpty() bool {
	return len(c.Entered) == 0 && len(c.Left) == 0
}

// Changes describes what changed on the record. Attribute changes are keyed by
// attribute name with an [old, new] pair as value.
type Changes struct {
	IsNew           bool           `json:"is_new,omitempty"`
	User            map[string]any `json:"user,omitempty"`
	Account         map[string]any `json:"account,omitempty"`
	Segments        SegmentChanges `json:"segments"`
	AccountSegments SegmentChanges `json:"account_segments"`
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// UserUpdateMessage is one user change notification.
type UserUpdateMessage struct {
	MessageID       string    `json:"message_id"`
	User            Profile   `json:"user"`
	Account         Profile   `json:"account,omitempty"`
	Segments        []Segment `json:"segments"`
	AccountSegments []Segment `json:"account_segments,omitempty"`
	Events          []Event   `json:"events,omitempty"`
	Changes         Changes   `json:"changes"`
}

// Get resolves a message-level path such as "user.email" or "account.planhat.id".
func (m *UserUpdateMessage) Get(path string) (any, bool) {
	return shared.GetPath(map[string]any{
		"user":    map[string]any(m.User),
		"account": map[string]any(m.Account),
	}, path)
}

// HasAccount reports whether the message references an account.
func (m *UserUpdateMessage) HasAccount() bool {
	return m.Account != nil
}

// AccountUpdateMessage is one account change notification.
type AccountUpdateMessage struct {
	MessageID       string    `json:"message_id"`
	Account         Profile   `json:"account"`
	AccountSegments []Segment `json:"account_segments,omitempty"`
	Changes         Changes   `json:"changes"`
}

// Get resolves a message-level path such as "account.domain".
func (m *AccountUpdateMessage) Get(path string) (any, bool) {
	return shared.GetPath(map[string]any{
		"account": map[string]any(m.Account),
	}, path)
}
