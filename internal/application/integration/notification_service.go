package integration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hull-connectors/planhat/internal/application/outbound"
	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/shared"
	"github.com/hull-connectors/planhat/internal/infrastructure/telemetry"
)

// NotificationService dispatches platform notifications to the outbound agent
// of the addressed connector. It owns deduplication of real-time deliveries.
type NotificationService struct {
	services  integration.ServiceClientFactory
	platforms integration.PlatformClientFactory
	dedup     shared.IdempotencyStore
	dedupTTL  time.Duration
	journal   integration.SyncJournal
	metrics   *telemetry.SyncMetrics
	logger    *zap.Logger
}

// NotificationServiceOption configures optional collaborators
type NotificationServiceOption func(*NotificationService)

// WithIdempotency drops real-time messages whose message id was seen within ttl.
func WithIdempotency(store shared.IdempotencyStore, ttl time.Duration) NotificationServiceOption {
	return func(s *NotificationService) {
		s.dedup = store
		s.dedupTTL = ttl
	}
}

// WithJournal records every routed outcome.
func WithJournal(journal integration.SyncJournal) NotificationServiceOption {
	return func(s *NotificationService) {
		s.journal = journal
	}
}

// WithSyncMetrics counts notifications and outcomes.
func WithSyncMetrics(metrics *telemetry.SyncMetrics) NotificationServiceOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	services integration.ServiceClientFactory,
	platforms integration.PlatformClientFactory,
	logger *zap.Logger,
	opts ...NotificationServiceOption,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		services:  services,
		platforms: platforms,
		dedupTTL:  shared.DefaultDedupTTL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// HandleUserUpdate runs the user pipeline for one delivery. A returned error
// is either a settings problem (wrapping integration.ErrInvalidSettings) or
// a transport fault that aborted the batch.
func (s *NotificationService) HandleUserUpdate(ctx context.Context, n *UserNotification) (*NotificationResult, error) {
	result := &NotificationResult{Channel: ChannelUserUpdate, Received: len(n.Messages)}
	s.metrics.RecordNotification(ctx, ChannelUserUpdate, len(n.Messages))

	messages := n.Messages
	var claimed []string
	if !n.IsBatch {
		messages, result.Duplicates, claimed = dedupe(ctx, s, n.Connector.ID, messages, func(m *hull.UserUpdateMessage) string { return m.MessageID })
	}

	agent, reason, err := s.prepare(n.Connector, len(messages) == 0, result.Duplicates)
	if agent == nil {
		result.Reason = reason
		s.releaseOnError(ctx, n.Connector.ID, claimed, err)
		return result, err
	}

	result.Dispatched = len(messages)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("send_user_messages", map[string]string{"channel": ChannelUserUpdate}), func(ctx context.Context) {
		err = agent.SendUserMessages(ctx, messages, n.IsBatch)
	})
	s.releaseOnError(ctx, n.Connector.ID, claimed, err)
	return result, err
}

// HandleAccountUpdate runs the account pipeline for one delivery.
func (s *NotificationService) HandleAccountUpdate(ctx context.Context, n *AccountNotification) (*NotificationResult, error) {
	result := &NotificationResult{Channel: ChannelAccountUpdate, Received: len(n.Messages)}
	s.metrics.RecordNotification(ctx, ChannelAccountUpdate, len(n.Messages))

	messages := n.Messages
	var claimed []string
	if !n.IsBatch {
		messages, result.Duplicates, claimed = dedupe(ctx, s, n.Connector.ID, messages, func(m *hull.AccountUpdateMessage) string { return m.MessageID })
	}

	agent, reason, err := s.prepare(n.Connector, len(messages) == 0, result.Duplicates)
	if agent == nil {
		result.Reason = reason
		s.releaseOnError(ctx, n.Connector.ID, claimed, err)
		return result, err
	}

	result.Dispatched = len(messages)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("send_account_messages", map[string]string{"channel": ChannelAccountUpdate}), func(ctx context.Context) {
		err = agent.SendAccountMessages(ctx, messages, n.IsBatch)
	})
	s.releaseOnError(ctx, n.Connector.ID, claimed, err)
	return result, err
}

// prepare builds the agent of a connector. It returns a nil agent with a
// reason when there is nothing to send.
func (s *NotificationService) prepare(connector *integration.Connector, empty bool, duplicates int) (*outbound.Agent, string, error) {
	settings := &connector.Settings
	if !settings.CanCommunicateWithAPI() {
		s.logger.Debug("connector has no personal access token, notification ignored",
			zap.String("connector_id", connector.ID))
		return nil, ResultReasonNoToken, nil
	}
	if empty {
		if duplicates > 0 {
			return nil, ResultReasonAllDuplicates, nil
		}
		return nil, ResultReasonNoMessages, nil
	}

	service, err := s.services.NewServiceClient(settings)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", integration.ErrInvalidSettings, err)
	}
	platform, err := s.platforms.NewPlatformClient(connector)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", integration.ErrInvalidSettings, err)
	}

	logger := s.logger.With(zap.String("connector_id", connector.ID))
	opts := []outbound.AgentOption{outbound.WithMetrics(s.metrics)}
	if s.journal != nil {
		opts = append(opts, outbound.WithJournal(connector.ID, s.journal))
	}
	return outbound.NewAgent(settings, service, platform, logger, opts...), "", nil
}

// dedupe drops messages already marked as processed for the connector.
// Store failures let the message through. It returns the kept messages, the
// number of duplicates and the keys claimed by this delivery.
func dedupe[M any](ctx context.Context, s *NotificationService, connectorID string, messages []M, idOf func(M) string) ([]M, int, []string) {
	if s.dedup == nil {
		return messages, 0, nil
	}

	kept := make([]M, 0, len(messages))
	duplicates := 0
	var claimed []string
	for _, msg := range messages {
		id := idOf(msg)
		if id == "" {
			kept = append(kept, msg)
			continue
		}
		key := shared.DedupKey(connectorID, id)
		fresh, err := s.dedup.MarkProcessed(ctx, key, s.dedupTTL)
		if err != nil {
			s.logger.Warn("idempotency check failed, processing message",
				zap.String("connector_id", connectorID),
				zap.String("message_id", id),
				zap.Error(err))
			kept = append(kept, msg)
			continue
		}
		if !fresh {
			duplicates++
			continue
		}
		claimed = append(claimed, key)
		kept = append(kept, msg)
	}
	return kept, duplicates, claimed
}

// releaseOnError gives back the keys claimed by a failed delivery. The
// redelivery that follows a retry response is then processed again.
func (s *NotificationService) releaseOnError(ctx context.Context, connectorID string, claimed []string, err error) {
	if err == nil || len(claimed) == 0 {
		return
	}
	// The delivery context may already be cancelled.
	ctx = context.WithoutCancel(ctx)
	for _, key := range claimed {
		if rerr := s.dedup.Release(ctx, key); rerr != nil {
			s.logger.Warn("failed to release notification claim",
				zap.String("connector_id", connectorID),
				zap.String("key", key),
				zap.Error(rerr))
		}
	}
	s.logger.Debug("released notification claims after failed delivery",
		zap.String("connector_id", connectorID),
		zap.Int("keys", len(claimed)),
		zap.Error(err))
}
