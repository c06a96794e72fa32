package shared

import (
	"context"
	"time"
)

// DefaultDedupTTL is how long a delivered message id blocks redelivery
const DefaultDedupTTL = time.Hour

// IdempotencyStore remembers notification message ids so that a redelivered
// notification is not synchronized twice. Keys are built with DedupKey.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim so that a redelivery of key is processed again.
	// Releasing an unknown key is not an error.
	Release(ctx context.Context, key string) error
	Close() error
}

// DedupKey scopes a message id to its connector instance. Two connectors
// receiving the same platform message each process it once.
func DedupKey(connectorID, messageID string) string {
	return connectorID + ":" + messageID
}
