package integration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// StatusWindow is how far back the status report counts journal entries
const StatusWindow = 24 * time.Hour

// StatusService reports the health of a connector instance
type StatusService struct {
	records integration.SyncRecordRepository
	now     func() time.Time
	logger  *zap.Logger
}

// NewStatusService creates a new StatusService. records may be nil when the
// journal is disabled.
func NewStatusService(records integration.SyncRecordRepository, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		records: records,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// GetStatus checks the connector settings and, with a journal, counts the
// outcomes routed over the last StatusWindow. A journal failure degrades the
// report to a warning instead of failing it.
func (s *StatusService) GetStatus(ctx context.Context, connector *integration.Connector) (*StatusResponse, error) {
	status, messages := connector.Settings.CheckSettings()
	resp := &StatusResponse{
		ConnectorID: connector.ID,
		Status:      status,
		Messages:    messages,
	}
	if s.records == nil {
		return resp, nil
	}

	since := s.now().Add(-StatusWindow)
	counts, err := s.records.CountByStatusSince(ctx, connector.ID, since)
	if err != nil {
		s.logger.Warn("failed to count sync outcomes",
			zap.String("connector_id", connector.ID),
			zap.Error(err))
		resp.Messages = append(resp.Messages, "Sync history is currently unavailable.")
		if resp.Status == integration.ConnectorStatusOK {
			resp.Status = integration.ConnectorStatusWarning
		}
		return resp, nil
	}

	resp.Since = &since
	resp.Outcomes = make(map[string]int64, len(counts))
	for st, n := range counts {
		resp.Outcomes[st.String()] = n
	}
	return resp, nil
}
