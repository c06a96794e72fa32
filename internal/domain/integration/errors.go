package integration

import "errors"

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Settings errors
	ErrMissingAccessToken = errors.New("integration: personal access token not configured")
	ErrInvalidSettings    = errors.New("integration: invalid connector settings")

	// Notification errors
	ErrUnknownChannel     = errors.New("integration: unknown notification channel")
	ErrInvalidMessage     = errors.New("integration: invalid notification message")
	ErrDuplicateMessage   = errors.New("integration: notification message already processed")
	ErrInvalidObjectKind  = errors.New("integration: invalid object kind")
	ErrInvalidSyncStatus  = errors.New("integration: invalid sync status")
	ErrSyncRecordNotFound = errors.New("integration: sync record not found")
)
