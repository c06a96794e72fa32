package hull

import (
	"context"
	"sync"

	"go.uber.org/zap"

	domain "github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// Log levels recorded by the Recorder
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// LogCall is one recorded connector log line
type LogCall struct {
	Entity  string
	Claims  any
	Level   string
	Event   string
	Payload any
}

// TraitsCall is one recorded trait write-back
type TraitsCall struct {
	Entity     string
	Claims     any
	Attributes domain.Attributes
}

// Recorder is a PlatformClient that keeps every call in memory instead of
// reaching the platform. Log lines are also written to the wrapped logger.
type Recorder struct {
	logger *zap.Logger

	mu     sync.Mutex
	logs   []LogCall
	traits []TraitsCall
	// TraitsErr, when set, is returned by every Traits call
	TraitsErr error
}

// NewRecorder creates an empty Recorder
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

// AsUser scopes the recorder to a user identity
func (r *Recorder) AsUser(claims domain.UserClaims) integration.ScopedClient {
	return &recordingScope{recorder: r, entity: entityUser, claims: claims}
}

// AsAccount scopes the recorder to an account identity
func (r *Recorder) AsAccount(claims domain.AccountClaims) integration.ScopedClient {
	return &recordingScope{recorder: r, entity: entityAccount, claims: claims}
}

// Logs returns a copy of the recorded log lines
func (r *Recorder) Logs() []LogCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogCall(nil), r.logs...)
}

// Traits returns a copy of the recorded trait write-backs
func (r *Recorder) Traits() []TraitsCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraitsCall(nil), r.traits...)
}

// Events returns the recorded log event names in order
func (r *Recorder) Events() []string {
	logs := r.Logs()
	events := make([]string, 0, len(logs))
	for _, l := range logs {
		events = append(events, l.Event)
	}
	return events
}

type recordingScope struct {
	recorder *Recorder
	entity   string
	claims   any
}

func (s *recordingScope) Logger() integration.ScopedLogger {
	return &recordingLogger{scope: s, delegate: NewScopedLogger(s.recorder.logger, s.entity, s.claims)}
}

func (s *recordingScope) Traits(_ context.Context, attributes domain.Attributes) error {
	r := s.recorder
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traits = append(r.traits, TraitsCall{Entity: s.entity, Claims: s.claims, Attributes: attributes})
	return r.TraitsErr
}

type recordingLogger struct {
	scope    *recordingScope
	delegate *ScopedLogger
}

func (l *recordingLogger) Info(event string, payload any) {
	l.record(LevelInfo, event, payload)
	l.delegate.Info(event, payload)
}

func (l *recordingLogger) Error(event string, payload any) {
	l.record(LevelError, event, payload)
	l.delegate.Error(event, payload)
}

func (l *recordingLogger) record(level, event string, payload any) {
	r := l.scope.recorder
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogCall{
		Entity:  l.scope.entity,
		Claims:  l.scope.claims,
		Level:   level,
		Event:   event,
		Payload: payload,
	})
}
