package integration

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/core/ratelimit"
	"github.com/banzuke/banzuke/internal/core/sumoapi"
	"github.com/banzuke/banzuke/internal/metrics"
	"github.com/banzuke/banzuke/internal/observability"
	"github.com/banzuke/banzuke/internal/server"
	"github.com/banzuke/banzuke/internal/server/handlers"
)

// cleanupMetrics tears down global telemetry state so each test starts clean.
// This matters in sandboxes where lingering exporters can block future binds.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = observability.StopMetrics()
	})
}

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

// listen binds to IPv4 loopback explicitly and skips when the sandbox refuses
// to open sockets.
func listen(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func sumoUpstream(t *testing.T, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	return listen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(`{"id":19,"shikonaEn":"Hoshoryu","heya":"Tatsunami"}`))
	}))
}

func governedServer(t *testing.T, upstreamURL string, limit ratelimit.Config) (*httptest.Server, *sumoapi.Client) {
	t.Helper()
	client, err := sumoapi.NewClient(sumoapi.Options{
		BaseURL:   upstreamURL,
		RateLimit: limit,
		Recorder:  metrics.Upstream{},
	})
	require.NoError(t, err)

	handlers.InitHealthManager("test")
	srv := server.New(config.ServerConfig{Host: "127.0.0.1"}, server.Deps{API: client})
	return listen(t, srv.Handler()), client
}

func TestConcurrentRequestsShareOneBudget(t *testing.T) {
	observability.InitServerLogger("test", "info")
	initMetricsOrSkip(t)

	var hits atomic.Int32
	upstream := sumoUpstream(t, &hits, http.StatusOK)
	ts, client := governedServer(t, upstream.URL, ratelimit.Config{MaxCalls: 5, Window: 200 * time.Millisecond})

	const numRequests = 12
	const numWorkers = 6

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	start := time.Now()
	var ok atomic.Int32
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for range requestChan {
				resp, err := ts.Client().Get(ts.URL + "/api/rikishi/19")
				if err != nil {
					continue
				}
				if resp.StatusCode == http.StatusOK {
					ok.Add(1)
				}
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.Equal(t, int32(numRequests), ok.Load())
	assert.Equal(t, int32(numRequests), hits.Load())
	// Twelve calls at five per window cannot all go out in the first window.
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Equal(t, 5, client.Limiter().Config().MaxCalls)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total")
	assert.Contains(t, metricsContent, "test_upstream_calls_total")
	assert.Contains(t, metricsContent, "test_ratelimit_wait_ms")
}

func TestUpstreamRateLimitSurfacesAsRetryAfter(t *testing.T) {
	observability.InitServerLogger("test", "info")

	var hits atomic.Int32
	upstream := sumoUpstream(t, &hits, http.StatusTooManyRequests)
	ts, _ := governedServer(t, upstream.URL, ratelimit.Config{MaxCalls: 10, Window: time.Minute})

	resp, err := ts.Client().Get(ts.URL + "/api/rikishi/19")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "7", resp.Header.Get("Retry-After"))

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRateLimitEndpointTracksCalls(t *testing.T) {
	observability.InitServerLogger("test", "info")

	var hits atomic.Int32
	upstream := sumoUpstream(t, &hits, http.StatusOK)
	ts, _ := governedServer(t, upstream.URL, ratelimit.Config{MaxCalls: 3, Window: time.Minute})

	for i := 0; i < 2; i++ {
		resp, err := ts.Client().Get(ts.URL + "/api/rikishi/19")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	resp, err := ts.Client().Get(ts.URL + "/ratelimit")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var status handlers.RateLimitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 3, status.MaxCalls)
	assert.Equal(t, 2, status.InWindow)
	assert.Equal(t, 1, status.Remaining)
}
