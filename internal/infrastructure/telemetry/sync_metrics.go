package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics counts connector activity. All methods are safe on a nil
// receiver so that metrics stay optional for callers.
type SyncMetrics struct {
	logger *zap.Logger

	outcomes           *Counter
	notifications      *Counter
	remoteCalls        *Counter
	remoteCallDuration *Histogram
}

// NewSyncMetrics creates the connector instruments on meter.
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SyncMetrics{logger: logger}
	var err error

	m.outcomes, err = NewCounter(meter,
		"planhat_sync_outcomes_total",
		"Routed synchronization outcomes by object kind and status",
		"{records}")
	if err != nil {
		return nil, err
	}

	m.notifications, err = NewCounter(meter,
		"planhat_notifications_total",
		"Messages received per notification channel",
		"{messages}")
	if err != nil {
		return nil, err
	}

	m.remoteCalls, err = NewCounter(meter,
		"planhat_api_requests_total",
		"Requests sent to the Planhat API",
		"{requests}")
	if err != nil {
		return nil, err
	}

	m.remoteCallDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "planhat_api_request_duration_seconds",
		Description: "Latency of Planhat API requests",
		Unit:        "s",
		Boundaries:  RemoteCallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordOutcome counts one routed record.
func (m *SyncMetrics) RecordOutcome(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.outcomes.Inc(ctx, AttrObjectKind.String(kind), AttrSyncStatus.String(status))
}

// RecordNotification counts the messages of one notification.
func (m *SyncMetrics) RecordNotification(ctx context.Context, channel string, messages int) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, int64(messages), AttrChannel.String(channel))
}

// RecordRemoteCall counts one API request and its latency. endpoint must be
// the route template, never a URL with ids.
func (m *SyncMetrics) RecordRemoteCall(ctx context.Context, endpoint, method string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.remoteCalls.Inc(ctx,
		AttrEndpoint.String(endpoint),
		AttrMethod.String(method),
		AttrRemoteResult.String(result),
	)
	m.remoteCallDuration.RecordDuration(ctx, elapsed,
		AttrEndpoint.String(endpoint),
		AttrMethod.String(method),
	)
}

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics setup error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
