package middleware

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// NewThrottle builds the inbound token bucket. It returns nil when rps is not
// positive, which disables throttling. A burst below one is raised to the
// rounded-up rate.
func NewThrottle(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Ceil(rps))
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Throttle rejects requests the bucket cannot admit with 429 and a
// Retry-After hint. Rejected requests never reach the upstream client.
func Throttle(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reservation := limiter.Reserve()
			if !reservation.OK() {
				rejectThrottled(w, r, time.Second)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				rejectThrottled(w, r, delay)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectThrottled(w http.ResponseWriter, r *http.Request, retryIn time.Duration) {
	seconds := int(math.Ceil(retryIn.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	reject(w, r, "RATE_LIMITED", "Too many requests, slow down", http.StatusTooManyRequests,
		map[string]interface{}{"retry_after_seconds": seconds})
}

// BearerToken requires "Authorization: Bearer <token>" when token is set.
// An empty token leaves the route open.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				reject(w, r, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
