package errors

import (
	"context"
	"math"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/banzuke/banzuke/internal/core/sumoapi"
)

// Envelope codes for upstream failures.
const (
	CodeRateLimited         = "RATE_LIMITED"
	CodeNotFound            = "NOT_FOUND"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeUpstreamUnreachable = "UPSTREAM_UNREACHABLE"
	CodeUpstreamError       = "UPSTREAM_ERROR"
)

// CodeForKind maps a failure kind to its envelope code.
func CodeForKind(kind sumoapi.Kind) string {
	switch kind {
	case sumoapi.KindRateLimitExceeded:
		return CodeRateLimited
	case sumoapi.KindNotFound:
		return CodeNotFound
	case sumoapi.KindServerFault:
		return CodeExternalService
	case sumoapi.KindNetworkFailure:
		return CodeUpstreamUnreachable
	case sumoapi.KindUnclassified:
		return CodeUpstreamError
	}
	return CodeUpstreamError
}

// FromClassified converts an upstream failure into an envelope carrying the
// user-facing message, the kind, and any retry hint. Errors that are not
// classified become UPSTREAM_ERROR envelopes.
func FromClassified(ctx context.Context, err error) *errors.ErrorEnvelope {
	classified, ok := sumoapi.AsClassified(err)
	if !ok {
		classified = &sumoapi.ClassifiedError{Kind: sumoapi.KindUnclassified, Err: err}
	}

	envelope := classifiedEnvelope(classified)
	if ctx != nil {
		envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	}
	return envelope
}

func classifiedEnvelope(classified *sumoapi.ClassifiedError) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeForKind(classified.Kind), classified.Message())

	details := map[string]interface{}{
		"kind": classified.Kind.String(),
	}
	if classified.StatusCode != 0 {
		details["upstream_status"] = classified.StatusCode
	}
	if classified.RetryAfter > 0 {
		details["retry_after_seconds"] = int(math.Ceil(classified.RetryAfter.Seconds()))
	}
	if path := strings.TrimSpace(classified.Path); path != "" {
		details["upstream_path"] = path
	}
	envelope = envelope.WithDetails(details)

	if classified.Err != nil {
		envelope = withWrappedError(envelope, classified.Err)
	}

	severity := errors.SeverityHigh
	if classified.Kind == sumoapi.KindRateLimitExceeded || classified.Kind == sumoapi.KindNotFound {
		severity = errors.SeverityMedium
	}
	if updated, sevErr := envelope.WithSeverity(severity); sevErr == nil {
		envelope = updated
	}

	return envelope
}

// ExitCodeFor picks the process exit code for a command failure.
func ExitCodeFor(err error) foundry.ExitCode {
	classified, ok := sumoapi.AsClassified(err)
	if !ok {
		return foundry.ExitFailure
	}
	switch classified.Kind {
	case sumoapi.KindRateLimitExceeded, sumoapi.KindServerFault, sumoapi.KindNetworkFailure:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}
