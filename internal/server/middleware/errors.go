package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/metrics"
	"github.com/banzuke/banzuke/internal/observability"
)

// ErrorResponse is the JSON error body. It matches the body written by the
// errors package, which this package cannot import.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Recovery turns a handler panic into a 500 envelope and a panic metric.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			stack := string(debug.Stack())
			metrics.RecordPanic()
			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Recovered from handler panic",
					zap.Any("panic", recovered),
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())))
			}

			reject(w, r, "INTERNAL_ERROR", fmt.Sprintf("panic: %v", recovered),
				http.StatusInternalServerError, map[string]interface{}{"stack_trace": stack})
		}()

		next.ServeHTTP(w, r)
	})
}

// reject writes an envelope with the given code and status and records it
// as an error metric.
func reject(w http.ResponseWriter, r *http.Request, code, message string, status int, context map[string]interface{}) {
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(GetRequestID(r.Context()))
	if len(context) > 0 {
		if updated, err := envelope.WithContext(context); err == nil {
			envelope = updated
		}
	}
	if status >= http.StatusInternalServerError {
		envelope, _ = envelope.WithSeverity(errors.SeverityCritical)
	}

	metrics.RecordError(envelope.Code, status)
	writeErrorResponse(w, envelope, status)
}

func writeErrorResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope, statusCode int) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   envelope.Context,
			RequestID: envelope.CorrelationID,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
