package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus represents the outcome of one routed record
type SyncStatus string

const (
	// SyncStatusSuccess indicates the remote write succeeded
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusFailed indicates the remote call reported a failure
	SyncStatusFailed SyncStatus = "FAILED"
	// SyncStatusSkipped indicates the record was not sent
	SyncStatusSkipped SyncStatus = "SKIPPED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusFailed, SyncStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncRecord
// ---------------------------------------------------------------------------

// SyncRecord is the journal entry of one routed outcome
type SyncRecord struct {
	// ID is the unique identifier of the record
	ID uuid.UUID
	// ConnectorID identifies the connector instance that produced it
	ConnectorID string
	// Kind is the platform object the outcome is attributed to
	Kind ObjectKind
	// MessageID is the notification message id, empty for events
	MessageID string
	// HullID is the platform id of the user or account
	HullID string
	// PlanhatID is the remote id on success
	PlanhatID string
	// Operation is the resolved operation
	Operation Operation
	// Status is the outcome
	Status SyncStatus
	// Reason holds the skip reason or the remote error
	Reason string
	// Endpoint and Method describe the remote call, if any
	Endpoint string
	Method   string
	// CreatedAt is when the outcome was routed
	CreatedAt time.Time
}

// NewSyncRecord creates a journal entry with a fresh id
func NewSyncRecord(connectorID string, kind ObjectKind, status SyncStatus) (*SyncRecord, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidObjectKind
	}
	if !status.IsValid() {
		return nil, ErrInvalidSyncStatus
	}
	return &SyncRecord{
		ID:          uuid.New(),
		ConnectorID: connectorID,
		Kind:        kind,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// SyncStatusCounts aggregates journal entries by status
type SyncStatusCounts map[SyncStatus]int64

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// SyncRecordRepository persists journal entries
type SyncRecordRepository interface {
	// Save stores a record
	Save(ctx context.Context, record *SyncRecord) error
	// FindByID returns a record or ErrSyncRecordNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRecord, error)
	// FindByMessageID returns all records of one notification message, oldest first
	FindByMessageID(ctx context.Context, connectorID, messageID string) ([]*SyncRecord, error)
	// CountByStatusSince aggregates records of a connector created at or after since
	CountByStatusSince(ctx context.Context, connectorID string, since time.Time) (SyncStatusCounts, error)
}

// SyncJournal receives outcomes from the agent. Implementations must not
// influence synchronization; failures are reported to the caller for logging only.
type SyncJournal interface {
	Record(ctx context.Context, record *SyncRecord) error
}
