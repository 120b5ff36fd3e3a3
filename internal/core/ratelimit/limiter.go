package ratelimit

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrInvalidMaxCalls is returned when the call budget is not positive.
	ErrInvalidMaxCalls = errors.New("ratelimit: max calls must be greater than zero")
	// ErrInvalidWindow is returned when the window is not positive.
	ErrInvalidWindow = errors.New("ratelimit: window must be greater than zero")
)

// Config is the call budget for one upstream endpoint family.
type Config struct {
	MaxCalls int
	Window   time.Duration
}

// DefaultConfig mirrors the published Sumo API budget: 60 calls per minute.
func DefaultConfig() Config {
	return Config{MaxCalls: 60, Window: time.Minute}
}

// Validate rejects budgets that could never admit a call.
func (c Config) Validate() error {
	if c.MaxCalls <= 0 {
		return ErrInvalidMaxCalls
	}
	if c.Window <= 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Status is a point-in-time view of the limiter.
type Status struct {
	MaxCalls  int           `json:"max_calls" yaml:"max_calls"`
	Window    time.Duration `json:"window" yaml:"window"`
	InWindow  int           `json:"in_window" yaml:"in_window"`
	Remaining int           `json:"remaining" yaml:"remaining"`
	RetryIn   time.Duration `json:"retry_in" yaml:"retry_in"`
}

// Limiter is a sliding-window limiter over an in-memory call log.
//
// Expired entries are pruned lazily on every read and write; there is no
// background timer. The log is owned by exactly one Limiter.
type Limiter struct {
	cfg   Config
	clock func() time.Time

	mu    sync.Mutex
	calls []time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock used to stamp and prune calls.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New builds a limiter for cfg. Invalid budgets are rejected here rather than
// at call time.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		cfg:   cfg,
		clock: time.Now,
		calls: make([]time.Time, 0, cfg.MaxCalls),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the limiter's immutable budget.
func (l *Limiter) Config() Config {
	return l.cfg
}

// CanCall reports whether a call may be recorded now.
func (l *Limiter) CanCall() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.clock())
	return len(l.calls) < l.cfg.MaxCalls
}

// RecordCall stamps a call at the current time. It performs no capacity
// check; callers consult CanCall (or use Gate.Acquire) first.
func (l *Limiter) RecordCall() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneLocked(now)
	l.calls = append(l.calls, now)
}

// RemainingCalls returns the unused budget in the current window, never
// negative.
func (l *Limiter) RemainingCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.clock())
	return l.remainingLocked()
}

// UntilNextSlot returns how long until a call is permitted, zero when one is
// permitted now.
func (l *Limiter) UntilNextSlot() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneLocked(now)
	return l.untilNextSlotLocked(now)
}

// Reset empties the call log. The budget is unchanged.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.calls)
	l.calls = l.calls[:0]
}

// Snapshot reports the limiter state from a single pruning pass.
func (l *Limiter) Snapshot() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneLocked(now)
	return Status{
		MaxCalls:  l.cfg.MaxCalls,
		Window:    l.cfg.Window,
		InWindow:  len(l.calls),
		Remaining: l.remainingLocked(),
		RetryIn:   l.untilNextSlotLocked(now),
	}
}

// tryRecord records a call if the window has room. Otherwise it returns the
// wait until the next slot. Check and record happen under one lock so two
// goroutines cannot both claim the last slot.
func (l *Limiter) tryRecord() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneLocked(now)
	if len(l.calls) < l.cfg.MaxCalls {
		l.calls = append(l.calls, now)
		return true, 0
	}
	return false, l.untilNextSlotLocked(now)
}

func (l *Limiter) pruneLocked(now time.Time) {
	kept := l.calls[:0]
	for _, stamp := range l.calls {
		if now.Sub(stamp) < l.cfg.Window {
			kept = append(kept, stamp)
		}
	}
	clear(l.calls[len(kept):])
	l.calls = kept
}

func (l *Limiter) remainingLocked() int {
	remaining := l.cfg.MaxCalls - len(l.calls)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) untilNextSlotLocked(now time.Time) time.Duration {
	if len(l.calls) < l.cfg.MaxCalls || len(l.calls) == 0 {
		return 0
	}

	// The log is appended in clock order, but a clock that stepped backwards
	// can break that, so scan for the true oldest entry.
	oldest := l.calls[0]
	for _, stamp := range l.calls[1:] {
		if stamp.Before(oldest) {
			oldest = stamp
		}
	}

	wait := oldest.Add(l.cfg.Window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
