package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/hull-connectors/planhat/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumTotal(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(nil, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewSyncMetrics: meter cannot be nil", err.Error())
}

func TestSyncMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewSyncMetrics(provider.Meter("test"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOutcome(ctx, "user", "SUCCESS")
	m.RecordOutcome(ctx, "account", "SKIPPED")
	m.RecordNotification(ctx, "user:update", 5)
	m.RecordRemoteCall(ctx, "/companies", "POST", true, 120*time.Millisecond)
	m.RecordRemoteCall(ctx, "/companies", "POST", false, 3*time.Second)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumTotal(t, metrics["planhat_sync_outcomes_total"]))
	assert.Equal(t, int64(5), sumTotal(t, metrics["planhat_notifications_total"]))
	assert.Equal(t, int64(2), sumTotal(t, metrics["planhat_api_requests_total"]))

	hist, ok := metrics["planhat_api_request_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestSyncMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.SyncMetrics
	assert.NotPanics(t, func() {
		m.RecordOutcome(context.Background(), "user", "FAILED")
		m.RecordNotification(context.Background(), "batch", 1)
		m.RecordRemoteCall(context.Background(), "/endusers", "GET", true, time.Millisecond)
	})
}
