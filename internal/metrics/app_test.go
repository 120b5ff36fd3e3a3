package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banzuke/banzuke/internal/observability"
)

func TestRecordOperation(t *testing.T) {
	collector := setupTelemetry(t)

	RecordOperation("banzuke", "")
	assert.Equal(t, 1, collector.CountMetricsByName(OperationsTotal))
	assert.Zero(t, collector.CountMetricsByName(OperationsErrorsTotal))

	RecordOperation("rikishi", "not_found")
	assert.Equal(t, 2, collector.CountMetricsByName(OperationsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(OperationsErrorsTotal))
}

func TestErrorCounters(t *testing.T) {
	collector := setupTelemetry(t)

	RecordError("RATE_LIMITED", 429)
	RecordErrorByEndpoint("/api/rikishis", "RATE_LIMITED")
	RecordPanic()
	SetServerStartTime(1767225600)

	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsTotalName))
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsByEndpointName))
	assert.Equal(t, 1, collector.CountMetricsByName(PanicsTotalName))
	assert.Equal(t, 1, collector.CountMetricsByName(ServerStartTime))
}

func TestRecordersNoopWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	assert.NotPanics(t, func() {
		RecordOperation("basho", "server_fault")
		RecordError("INTERNAL_ERROR", 500)
		RecordPanic()
		SetServerStartTime(0)
	})
}
