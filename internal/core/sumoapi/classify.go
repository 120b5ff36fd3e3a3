package sumoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Classify maps the outcome of one call to a ClassifiedError, or nil on a 2xx
// response. The first matching rule wins:
//
//  1. 429 -> rate limit exceeded (with Retry-After hint)
//  2. 404 -> not found
//  3. >= 500 -> server fault
//  4. any other non-2xx -> unclassified with status
//  5. sent but no response -> network failure
//
// Failures before transmission are classified by the caller via unclassified.
func Classify(call Call, resp *http.Response, err error, now time.Time) *ClassifiedError {
	if resp == nil {
		if err == nil {
			return nil
		}
		return &ClassifiedError{
			Kind:   KindNetworkFailure,
			Method: call.method(),
			Path:   call.Path,
			Err:    err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	classified := &ClassifiedError{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Method:     call.method(),
		Path:       call.Path,
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		classified.Kind = KindRateLimitExceeded
		classified.RetryAfter = retryAfter(resp.Header, now)
	case resp.StatusCode == http.StatusNotFound:
		classified.Kind = KindNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		classified.Kind = KindServerFault
	default:
		classified.Kind = KindUnclassified
	}
	return classified
}

func unclassified(call Call, err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:   KindUnclassified,
		Method: call.method(),
		Path:   call.Path,
		Err:    err,
	}
}

func statusText(resp *http.Response) string {
	// resp.Status is "404 Not Found"; keep only the reason phrase.
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// retryAfter parses a Retry-After header given either as delay seconds or as
// an HTTP date.
func retryAfter(header http.Header, now time.Time) time.Duration {
	if header == nil {
		return 0
	}

	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(value); err == nil {
		if wait := parsed.Sub(now); wait > 0 {
			return wait
		}
	}
	return 0
}
