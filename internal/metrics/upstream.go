package metrics

import (
	"time"

	"github.com/banzuke/banzuke/internal/observability"
)

// Upstream call metric names.
const (
	UpstreamCallsTotal      = "upstream_calls_total"
	UpstreamErrorsTotal     = "upstream_errors_total"
	UpstreamCallDuration    = "upstream_call_duration_ms"
	RateLimitWaitDuration   = "ratelimit_wait_ms"
	RateLimitRemainingGauge = "ratelimit_remaining"
)

const outcomeSuccess = "success"

// Upstream records outbound Sumo API telemetry. The zero value is ready to
// use and emits nothing until the telemetry system is initialised.
type Upstream struct{}

// RecordUpstreamCall counts one upstream call. Outcome is "success" or the
// failure kind.
func (Upstream) RecordUpstreamCall(route string, outcome string, duration time.Duration) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}

	_ = sys.Counter(UpstreamCallsTotal, 1, map[string]string{
		"route":   route,
		"outcome": outcome,
	})
	if duration > 0 {
		_ = sys.Histogram(UpstreamCallDuration, duration, map[string]string{
			"route": route,
		})
	}
	if outcome != outcomeSuccess {
		_ = sys.Counter(UpstreamErrorsTotal, 1, map[string]string{
			"kind": outcome,
		})
	}
}

// RecordRateLimitWait records one gate suspension.
func (Upstream) RecordRateLimitWait(wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(RateLimitWaitDuration, wait, nil)
	}
}

// RecordRateLimitRemaining publishes the calls left in the current window.
func (Upstream) RecordRateLimitRemaining(remaining int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(RateLimitRemainingGauge, float64(remaining), nil)
	}
}
