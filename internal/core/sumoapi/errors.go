package sumoapi

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of failure categories surfaced by the client.
type Kind int

const (
	KindUnclassified Kind = iota
	KindRateLimitExceeded
	KindNotFound
	KindServerFault
	KindNetworkFailure
)

// String returns the stable identifier for the kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimitExceeded:
		return "rate_limit_exceeded"
	case KindNotFound:
		return "not_found"
	case KindServerFault:
		return "server_fault"
	case KindNetworkFailure:
		return "network_failure"
	case KindUnclassified:
		return "unclassified"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinds lists every failure kind, in classification order.
func Kinds() []Kind {
	return []Kind{
		KindRateLimitExceeded,
		KindNotFound,
		KindServerFault,
		KindUnclassified,
		KindNetworkFailure,
	}
}

// ClassifiedError is the single error value returned for a failed call.
type ClassifiedError struct {
	Kind Kind

	// StatusCode and StatusText are set when a response was received.
	StatusCode int
	StatusText string

	// RetryAfter is the upstream's Retry-After hint on a 429; zero when absent.
	RetryAfter time.Duration

	Method string
	Path   string

	// Err is the transport or construction error, when there was one.
	Err error
}

// Error implements error.
func (e *ClassifiedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message()
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Message is the user-facing description of the failure.
func (e *ClassifiedError) Message() string {
	switch e.Kind {
	case KindRateLimitExceeded:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
		}
		return "rate limit exceeded, wait before making more requests"
	case KindNotFound:
		return "data not found, check the tournament or division"
	case KindServerFault:
		return fmt.Sprintf("server error (%d), try again later", e.StatusCode)
	case KindNetworkFailure:
		return "network error, check your internet connection"
	case KindUnclassified:
		if e.StatusCode != 0 {
			return fmt.Sprintf("api request failed: %d %s", e.StatusCode, e.StatusText)
		}
		return "api request failed"
	default:
		return "api request failed"
	}
}

// Unwrap exposes the underlying transport error.
func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether offering the user a retry makes sense.
func (e *ClassifiedError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindRateLimitExceeded, KindServerFault, KindNetworkFailure:
		return true
	case KindNotFound, KindUnclassified:
		return false
	default:
		return false
	}
}

// AsClassified extracts a ClassifiedError from err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if errors.As(err, &classified) && classified != nil {
		return classified, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnclassified when err was not
// produced by the client.
func KindOf(err error) Kind {
	if classified, ok := AsClassified(err); ok {
		return classified.Kind
	}
	return KindUnclassified
}

// IsKind reports whether err is a ClassifiedError of the given kind.
func IsKind(err error, kind Kind) bool {
	classified, ok := AsClassified(err)
	return ok && classified.Kind == kind
}
