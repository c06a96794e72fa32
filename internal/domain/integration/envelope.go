package integration

import (
	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
)

// ---------------------------------------------------------------------------
// Operation
// ---------------------------------------------------------------------------

// Operation is the resolved action for one envelope
type Operation string

const (
	// OperationInsert creates the record remotely
	OperationInsert Operation = "insert"
	// OperationUpdate updates an existing remote record
	OperationUpdate Operation = "update"
	// OperationSkip drops the record with a reason
	OperationSkip Operation = "skip"
)

// IsValid returns true if the operation is valid
func (o Operation) IsValid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationSkip:
		return true
	default:
		return false
	}
}

// String returns the string representation of Operation
func (o Operation) String() string {
	return string(o)
}

// ---------------------------------------------------------------------------
// ObjectKind
// ---------------------------------------------------------------------------

// ObjectKind names the platform object an outcome is attributed to
type ObjectKind string

const (
	ObjectKindUser      ObjectKind = "user"
	ObjectKindAccount   ObjectKind = "account"
	ObjectKindUserEvent ObjectKind = "user_event"
)

// IsValid returns true if the kind is valid
func (k ObjectKind) IsValid() bool {
	switch k {
	case ObjectKindUser, ObjectKindAccount, ObjectKindUserEvent:
		return true
	default:
		return false
	}
}

// String returns the string representation of ObjectKind
func (k ObjectKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope wraps one change notification with its processing state.
// ServiceObject is only meaningful once Operation is not skip.
type Envelope[M any, T any] struct {
	// Message is the originating notification
	Message M
	// Operation is set by the filter and may be overwritten downstream
	Operation Operation
	// Reason explains a skip
	Reason string
	// ServiceObject is the mapped remote payload
	ServiceObject T
}

// Skip marks the envelope as skipped.
func (e *Envelope[M, T]) Skip(reason string) {
	e.Operation = OperationSkip
	e.Reason = reason
}

// IsSkipped reports whether the envelope was skipped.
func (e *Envelope[M, T]) IsSkipped() bool {
	return e.Operation == OperationSkip
}

// UserEnvelope carries a user notification mapped to a contact.
type UserEnvelope = Envelope[*hull.UserUpdateMessage, planhat.Contact]

// AccountEnvelope carries a notification mapped to a company. For the account
// pipeline the message is an account notification.
type AccountEnvelope = Envelope[*hull.AccountUpdateMessage, planhat.Company]

// Partition splits envelopes into kept and skipped, preserving order.
func Partition[M any, T any](envelopes []*Envelope[M, T]) (kept, skipped []*Envelope[M, T]) {
	for _, e := range envelopes {
		if e.IsSkipped() {
			skipped = append(skipped, e)
		} else {
			kept = append(kept, e)
		}
	}
	return kept, skipped
}
