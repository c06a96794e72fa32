package hull

import (
	"go.uber.org/zap"
)

// EventField is the zap field carrying the connector log event name
const EventField = "hull.event"

// ScopedLogger writes connector log lines attributed to one platform record
type ScopedLogger struct {
	logger *zap.Logger
}

// NewScopedLogger returns a logger whose entries carry the subject entity and
// its claims.
func NewScopedLogger(logger *zap.Logger, entity string, claims any) *ScopedLogger {
	return &ScopedLogger{
		logger: logger.With(
			zap.String("hull.entity", entity),
			zap.Any("hull.claims", claims),
		),
	}
}

// Info logs a successful or skipped outcome
func (l *ScopedLogger) Info(event string, payload any) {
	l.logger.Info(event, zap.String(EventField, event), zap.Any("payload", payload))
}

// Error logs a failed outcome
func (l *ScopedLogger) Error(event string, payload any) {
	l.logger.Error(event, zap.String(EventField, event), zap.Any("payload", payload))
}
