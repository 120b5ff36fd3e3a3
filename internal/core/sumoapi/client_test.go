package sumoapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/core/ratelimit"
)

type recordedCall struct {
	route   string
	outcome string
}

type stubRecorder struct {
	mu        sync.Mutex
	calls     []recordedCall
	waits     []time.Duration
	remaining []int
}

func (s *stubRecorder) RecordUpstreamCall(route string, outcome string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{route: route, outcome: outcome})
}

func (s *stubRecorder) RecordRateLimitWait(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, wait)
}

func (s *stubRecorder) RecordRateLimitRemaining(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = append(s.remaining, remaining)
}

func newTestClient(t *testing.T, baseURL string, cfg ratelimit.Config) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL:   baseURL,
		RateLimit: cfg,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	return client
}

func statusServer(t *testing.T, status int, header map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, value := range header {
			w.Header().Set(key, value)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClientRejectsInvalidRateLimit(t *testing.T) {
	_, err := NewClient(Options{RateLimit: ratelimit.Config{MaxCalls: 0, Window: time.Second}})
	require.ErrorIs(t, err, ratelimit.ErrInvalidMaxCalls)

	_, err = NewClient(Options{RateLimit: ratelimit.Config{MaxCalls: 5}})
	require.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Options{})
	require.NoError(t, err)
	require.Equal(t, ratelimit.DefaultConfig(), client.Limiter().Config())
	require.Equal(t, DefaultTimeout, client.HTTPClient.Timeout)
}

func TestClientReturnsPayloadUntouched(t *testing.T) {
	payload := `{"id":19,"shikonaEn":"Hoshoryu","unexpected":{"nested":[1,2,3]}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/rikishi/19", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/api", ratelimit.Config{MaxCalls: 5, Window: time.Second})

	resp, err := client.Do(context.Background(), Call{Method: http.MethodGet, Path: "/rikishi/19"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, payload, string(resp.Body))
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestClientClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		header map[string]string
		kind   Kind
	}{
		{name: "RateLimited", status: http.StatusTooManyRequests, header: map[string]string{"Retry-After": "12"}, kind: KindRateLimitExceeded},
		{name: "NotFound", status: http.StatusNotFound, kind: KindNotFound},
		{name: "ServerFault", status: http.StatusInternalServerError, kind: KindServerFault},
		{name: "GatewayTimeout", status: http.StatusGatewayTimeout, kind: KindServerFault},
		{name: "Unauthorized", status: http.StatusUnauthorized, kind: KindUnclassified},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := statusServer(t, tc.status, tc.header)
			client := newTestClient(t, server.URL, ratelimit.Config{MaxCalls: 5, Window: time.Second})

			resp, err := client.Do(context.Background(), Call{Path: "/basho/202601"})
			require.Nil(t, resp)

			classified, ok := AsClassified(err)
			require.True(t, ok)
			require.Equal(t, tc.kind, classified.Kind)
			require.Equal(t, tc.status, classified.StatusCode)
		})
	}
}

func TestClientRateLimitedCarriesRetryHint(t *testing.T) {
	server := statusServer(t, http.StatusTooManyRequests, map[string]string{"Retry-After": "12"})
	client := newTestClient(t, server.URL, ratelimit.Config{MaxCalls: 5, Window: time.Second})

	_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
	classified, ok := AsClassified(err)
	require.True(t, ok)
	require.Equal(t, 12*time.Second, classified.RetryAfter)
}

func TestClientNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := newTestClient(t, baseURL, ratelimit.Config{MaxCalls: 5, Window: time.Second})

	_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
	require.True(t, IsKind(err, KindNetworkFailure))
}

func TestClientTimeoutIsNetworkFailureAndDoesNotBlockLimiter(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(Options{
		BaseURL:    server.URL,
		RateLimit:  ratelimit.Config{MaxCalls: 2, Window: time.Minute},
		HTTPClient: &http.Client{Timeout: 30 * time.Millisecond},
	})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), Call{Path: "/rikishis"})
	require.True(t, IsKind(err, KindNetworkFailure))

	require.True(t, client.Limiter().CanCall())
	require.Equal(t, 1, client.Limiter().RemainingCalls())
}

func TestClientMalformedCallIsUnclassified(t *testing.T) {
	client := newTestClient(t, "://not a url", ratelimit.Config{MaxCalls: 5, Window: time.Second})

	_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
	classified, ok := AsClassified(err)
	require.True(t, ok)
	require.Equal(t, KindUnclassified, classified.Kind)
	require.Zero(t, classified.StatusCode)
	require.Error(t, classified.Err)

	// Nothing was sent, so nothing was counted.
	require.Equal(t, 5, client.Limiter().RemainingCalls())
}

func TestClientUnsupportedSchemeIsUnclassified(t *testing.T) {
	client := newTestClient(t, "ftp://example.com", ratelimit.Config{MaxCalls: 5, Window: time.Second})

	_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
	classified, ok := AsClassified(err)
	require.True(t, ok)
	require.Equal(t, KindUnclassified, classified.Kind)
	require.Zero(t, classified.StatusCode)
	require.ErrorContains(t, classified.Err, "unsupported base url scheme")

	require.Equal(t, 5, client.Limiter().RemainingCalls())
}

func TestClientRecordsEachCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ratelimit.Config{MaxCalls: 3, Window: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
		require.NoError(t, err)
	}
	require.False(t, client.Limiter().CanCall())
	require.Zero(t, client.Limiter().RemainingCalls())
}

func TestClientWaitsWhenBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	recorder := &stubRecorder{}
	client, err := NewClient(Options{
		BaseURL:   server.URL,
		RateLimit: ratelimit.Config{MaxCalls: 1, Window: 80 * time.Millisecond},
		Recorder:  recorder,
	})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), Call{Path: "/rikishis", Route: "/rikishis"})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(context.Background(), Call{Path: "/rikishis", Route: "/rikishis"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.waits, 1)
	require.Equal(t, []recordedCall{
		{route: "/rikishis", outcome: "success"},
		{route: "/rikishis", outcome: "success"},
	}, recorder.calls)
	require.Equal(t, []int{0, 0}, recorder.remaining)
}

func TestClientCancelledWhileWaiting(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ratelimit.Config{MaxCalls: 1, Window: time.Hour})
	_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Do(ctx, Call{Path: "/rikishis"})
	require.True(t, IsKind(err, KindUnclassified))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Equal(t, int32(1), hits.Load())
}

func TestClientSendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "banzuke-test", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ratelimit.Config{MaxCalls: 1, Window: time.Second})
	client.UserAgent = "banzuke-test"

	resp, err := client.Do(context.Background(), Call{Method: "post", Path: "echo", Body: []byte(`{"a":1}`)})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestNilClient(t *testing.T) {
	var client *Client
	_, err := client.Do(context.Background(), Call{Path: "/rikishis"})
	require.True(t, IsKind(err, KindUnclassified))
	require.Nil(t, client.Limiter())
}
