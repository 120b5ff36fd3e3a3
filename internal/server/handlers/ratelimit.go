package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/core/ratelimit"
	"github.com/banzuke/banzuke/internal/metrics"
	"github.com/banzuke/banzuke/internal/observability"
)

// RateLimitResponse is the limiter state as served over HTTP.
type RateLimitResponse struct {
	MaxCalls      int     `json:"max_calls"`
	WindowSeconds float64 `json:"window_seconds"`
	InWindow      int     `json:"in_window"`
	Remaining     int     `json:"remaining"`
	RetryInMillis int64   `json:"retry_in_ms"`
}

func rateLimitResponse(st ratelimit.Status) RateLimitResponse {
	return RateLimitResponse{
		MaxCalls:      st.MaxCalls,
		WindowSeconds: st.Window.Seconds(),
		InWindow:      st.InWindow,
		Remaining:     st.Remaining,
		RetryInMillis: st.RetryIn.Milliseconds(),
	}
}

// RateLimit exposes the upstream limiter owned by the API client.
type RateLimit struct {
	Limiter *ratelimit.Limiter
}

// Status handles GET /ratelimit.
func (h *RateLimit) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rateLimitResponse(h.Limiter.Snapshot()))
}

// Reset handles POST /ratelimit/reset. It empties the call log and returns
// the fresh state.
func (h *RateLimit) Reset(w http.ResponseWriter, r *http.Request) {
	before := h.Limiter.Snapshot()
	h.Limiter.Reset()
	metrics.RecordOperation("ratelimit_reset", "")

	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Upstream rate limit reset by operator",
			zap.Int("discarded_calls", before.InWindow))
	}
	writeJSON(w, http.StatusOK, rateLimitResponse(h.Limiter.Snapshot()))
}
