package sumoapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/core/ratelimit"
)

const (
	// DefaultBaseURL is the public Sumo API root.
	DefaultBaseURL = "https://www.sumo-api.com/api"
	// DefaultTimeout is the transport timeout applied to every call.
	DefaultTimeout = 10 * time.Second

	routeCustom = "custom"
)

// Call is a logical request: method, path relative to the base URL, optional
// body. Route is a low-cardinality label used for metrics.
type Call struct {
	Method string
	Path   string
	Body   []byte
	Route  string
}

func (c Call) method() string {
	if c.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(c.Method)
}

func (c Call) route() string {
	if c.Route == "" {
		return routeCustom
	}
	return c.Route
}

// Response is a successful upstream response, returned as received.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Logger is satisfied by both *zap.Logger and gofulmen's logging.Logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Recorder receives call telemetry.
type Recorder interface {
	RecordUpstreamCall(route string, outcome string, duration time.Duration)
	RecordRateLimitWait(wait time.Duration)
	RecordRateLimitRemaining(remaining int)
}

// Options configures NewClient.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  ratelimit.Config
	MaxWaits   int
	HTTPClient *http.Client
	Cache      ResponseCache
	CacheTTL   time.Duration
	Logger     Logger
	Recorder   Recorder
	UserAgent  string
	Clock      func() time.Time
}

// Client gates every outbound call through the rate limiter and classifies
// failures. It never retries.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Gate       *ratelimit.Gate
	Cache      ResponseCache
	CacheTTL   time.Duration
	Logger     Logger
	Recorder   Recorder
	UserAgent  string
	Clock      func() time.Time
}

// NewClient builds a client with its own limiter. An invalid rate limit is a
// configuration error.
func NewClient(opts Options) (*Client, error) {
	limitCfg := opts.RateLimit
	if limitCfg == (ratelimit.Config{}) {
		limitCfg = ratelimit.DefaultConfig()
	}

	limiterOpts := []ratelimit.Option{}
	if opts.Clock != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithClock(opts.Clock))
	}
	limiter, err := ratelimit.New(limitCfg, limiterOpts...)
	if err != nil {
		return nil, fmt.Errorf("configure rate limit: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		BaseURL:    opts.BaseURL,
		HTTPClient: httpClient,
		Cache:      opts.Cache,
		CacheTTL:   opts.CacheTTL,
		Logger:     opts.Logger,
		Recorder:   opts.Recorder,
		UserAgent:  opts.UserAgent,
		Clock:      opts.Clock,
	}

	gate := ratelimit.NewGate(limiter, ratelimit.WithMaxWaits(opts.MaxWaits))
	gate.OnWait = c.onWait
	gate.OnExhausted = c.onExhausted
	c.Gate = gate

	return c, nil
}

// Limiter returns the client's limiter, or nil when the client is ungated.
func (c *Client) Limiter() *ratelimit.Limiter {
	if c == nil || c.Gate == nil {
		return nil
	}
	return c.Gate.Limiter()
}

// Do performs one call. The pre-call stage waits on the gate and records the
// call; the post-call stage returns either the untouched response or exactly
// one *ClassifiedError.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	if c == nil {
		return nil, unclassified(call, errors.New("sumo api client is not configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := c.newRequest(ctx, call)
	if err != nil {
		return nil, c.fail(call, unclassified(call, err), 0)
	}

	if err := c.Gate.Acquire(ctx); err != nil {
		return nil, c.fail(call, unclassified(call, err), 0)
	}
	if limiter := c.Limiter(); limiter != nil && c.Recorder != nil {
		c.Recorder.RecordRateLimitRemaining(limiter.RemainingCalls())
	}

	started := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, c.fail(call, Classify(call, nil, err, c.now()), time.Since(started))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, readErr := io.ReadAll(resp.Body)
	if classified := Classify(call, resp, nil, c.now()); classified != nil {
		return nil, c.fail(call, classified, time.Since(started))
	}
	if readErr != nil {
		classified := &ClassifiedError{
			Kind:       KindNetworkFailure,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Method:     call.method(),
			Path:       call.Path,
			Err:        readErr,
		}
		return nil, c.fail(call, classified, time.Since(started))
	}

	duration := time.Since(started)
	if c.Recorder != nil {
		c.Recorder.RecordUpstreamCall(call.route(), "success", duration)
	}
	if c.Logger != nil {
		c.Logger.Debug("Upstream call completed",
			zap.String("method", call.method()),
			zap.String("path", call.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", duration))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, call Call) (*http.Request, error) {
	target, err := c.resolve(call.Path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.method(), target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return req, nil
}

func (c *Client) resolve(path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid base url: %q", base)
	}
	if scheme := strings.ToLower(parsed.Scheme); scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported base url scheme: %q", parsed.Scheme)
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}

func (c *Client) fail(call Call, classified *ClassifiedError, duration time.Duration) error {
	if c.Recorder != nil {
		c.Recorder.RecordUpstreamCall(call.route(), classified.Kind.String(), duration)
	}
	if c.Logger != nil {
		fields := []zap.Field{
			zap.String("kind", classified.Kind.String()),
			zap.String("method", classified.Method),
			zap.String("path", classified.Path),
		}
		if classified.StatusCode != 0 {
			fields = append(fields, zap.Int("status", classified.StatusCode))
		}
		if classified.RetryAfter > 0 {
			fields = append(fields, zap.Duration("retry_after", classified.RetryAfter))
		}
		if classified.Err != nil {
			fields = append(fields, zap.Error(classified.Err))
		}

		switch classified.Kind {
		case KindRateLimitExceeded, KindNotFound:
			c.Logger.Warn("API error", fields...)
		default:
			c.Logger.Error("API error", fields...)
		}
	}
	return classified
}

func (c *Client) onWait(wait time.Duration) {
	if c.Logger != nil {
		c.Logger.Warn("Rate limit reached, waiting", zap.Duration("wait", wait))
	}
	if c.Recorder != nil {
		c.Recorder.RecordRateLimitWait(wait)
	}
}

func (c *Client) onExhausted() {
	if c.Logger != nil {
		c.Logger.Warn("Rate limit slot still unavailable after bounded wait, still waiting")
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c *Client) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
