package metrics

import (
	"strconv"

	"github.com/banzuke/banzuke/internal/observability"
)

// Application metric names.
const (
	OperationsTotal       = "app_operations_total"
	OperationsErrorsTotal = "app_operations_errors_total"
	ServerStartTime       = "app_server_start_time_seconds"

	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

func counter(name string, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, labels)
	}
}

// RecordOperation counts one API operation, e.g. "banzuke" or
// "ratelimit_reset". A non-empty failureKind marks it failed and is counted
// separately.
func RecordOperation(operation string, failureKind string) {
	status := "success"
	if failureKind != "" {
		status = "failure"
		counter(OperationsErrorsTotal, map[string]string{
			"operation":  operation,
			"error_type": failureKind,
		})
	}
	counter(OperationsTotal, map[string]string{
		"operation": operation,
		"status":    status,
	})
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// RecordError counts an error response by envelope code and status.
func RecordError(errorCode string, httpStatus int) {
	counter(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	counter(PanicsTotalName, nil)
}

// RecordErrorByEndpoint counts an error response by request path and code.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	counter(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
