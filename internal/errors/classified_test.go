package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/require"

	"github.com/banzuke/banzuke/internal/core/sumoapi"
)

func TestCodeForKind(t *testing.T) {
	require.Equal(t, CodeRateLimited, CodeForKind(sumoapi.KindRateLimitExceeded))
	require.Equal(t, CodeNotFound, CodeForKind(sumoapi.KindNotFound))
	require.Equal(t, CodeExternalService, CodeForKind(sumoapi.KindServerFault))
	require.Equal(t, CodeUpstreamUnreachable, CodeForKind(sumoapi.KindNetworkFailure))
	require.Equal(t, CodeUpstreamError, CodeForKind(sumoapi.KindUnclassified))

	for _, kind := range sumoapi.Kinds() {
		require.NotEmpty(t, CodeForKind(kind), kind.String())
	}
	require.Equal(t, CodeUpstreamError, CodeForKind(sumoapi.Kind(99)))
}

func TestFromClassifiedRateLimited(t *testing.T) {
	err := &sumoapi.ClassifiedError{
		Kind:       sumoapi.KindRateLimitExceeded,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: 30 * time.Second,
		Path:       "/rikishis",
	}

	envelope := FromClassified(context.Background(), err)
	require.Equal(t, CodeRateLimited, envelope.Code)
	require.NotEmpty(t, envelope.Message)
	require.NotEmpty(t, envelope.CorrelationID)
	require.Equal(t, 30, envelope.Details["retry_after_seconds"])
	require.Equal(t, "rate_limit_exceeded", envelope.Details["kind"])
	require.Equal(t, http.StatusTooManyRequests, HTTPStatusFromEnvelope(envelope))
}

func TestFromClassifiedRoundsRetryAfterUp(t *testing.T) {
	cases := map[time.Duration]int{
		500 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
	}
	for retryAfter, want := range cases {
		envelope := FromClassified(context.Background(), &sumoapi.ClassifiedError{
			Kind:       sumoapi.KindRateLimitExceeded,
			StatusCode: http.StatusTooManyRequests,
			RetryAfter: retryAfter,
		})
		require.Equal(t, want, envelope.Details["retry_after_seconds"], retryAfter.String())
	}
}

func TestFromClassifiedPlainError(t *testing.T) {
	envelope := FromClassified(context.TODO(), stderrors.New("boom"))
	require.Equal(t, CodeUpstreamError, envelope.Code)
	require.Equal(t, "boom", envelope.Context["wrapped_error"])
}

func TestHTTPStatusForUpstreamCodes(t *testing.T) {
	require.Equal(t, http.StatusNotFound, HTTPStatusFromCode(CodeNotFound))
	require.Equal(t, http.StatusBadGateway, HTTPStatusFromCode(CodeExternalService))
	require.Equal(t, http.StatusBadGateway, HTTPStatusFromCode(CodeUpstreamError))
	require.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeUpstreamUnreachable))
}

func TestEnsureEnvelopeConvertsClassified(t *testing.T) {
	wrapped := &sumoapi.ClassifiedError{Kind: sumoapi.KindNetworkFailure, Err: stderrors.New("dial tcp: refused")}

	envelope := EnsureEnvelope(wrapped)
	require.Equal(t, CodeUpstreamUnreachable, envelope.Code)

	envelope = EnsureEnvelope(stderrors.New("other"))
	require.Equal(t, "INTERNAL_ERROR", envelope.Code)
}

func TestRespondWithErrorSetsRetryAfter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/rikishi", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, &sumoapi.ClassifiedError{
		Kind:       sumoapi.KindRateLimitExceeded,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: 12 * time.Second,
	})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "12", rec.Header().Get("Retry-After"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, CodeRateLimited, body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
}

func TestExitCodeFor(t *testing.T) {
	require.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(&sumoapi.ClassifiedError{Kind: sumoapi.KindServerFault}))
	require.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(&sumoapi.ClassifiedError{Kind: sumoapi.KindNetworkFailure}))
	require.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(&sumoapi.ClassifiedError{Kind: sumoapi.KindRateLimitExceeded}))
	require.Equal(t, foundry.ExitFailure, ExitCodeFor(&sumoapi.ClassifiedError{Kind: sumoapi.KindNotFound}))
	require.Equal(t, foundry.ExitFailure, ExitCodeFor(stderrors.New("plain")))
}
