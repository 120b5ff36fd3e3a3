package ratelimit

import (
	"context"
	"time"
)

// DefaultMaxWaits is how many timed waits a caller sits through before the
// gate reports exhaustion. Wait returns at the bound; Acquire keeps waiting.
const DefaultMaxWaits = 3

// minWait keeps a blocked caller from spinning when the computed wait rounds
// down to zero.
const minWait = time.Millisecond

// Gate turns the limiter's answer into a single suspension point.
//
// Waiting callers are not queued: each one re-checks the limiter after its own
// timer fires, so under contention whichever goroutine runs first takes the
// freed slot.
type Gate struct {
	limiter  *Limiter
	maxWaits int
	sleep    func(ctx context.Context, d time.Duration) error

	// OnWait is called before each timed wait.
	OnWait func(wait time.Duration)
	// OnExhausted is called once per caller when the wait bound is reached
	// with no free slot.
	OnExhausted func()
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMaxWaits sets the number of timed waits before the gate reports exhaustion.
// Values below one are ignored.
func WithMaxWaits(n int) GateOption {
	return func(g *Gate) {
		if n >= 1 {
			g.maxWaits = n
		}
	}
}

// WithSleep replaces the timer used to suspend callers.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) GateOption {
	return func(g *Gate) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewGate builds a gate in front of limiter.
func NewGate(limiter *Limiter, opts ...GateOption) *Gate {
	g := &Gate{
		limiter:  limiter,
		maxWaits: DefaultMaxWaits,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limiter returns the limiter behind the gate.
func (g *Gate) Limiter() *Limiter {
	return g.limiter
}

// Wait returns once a call is permitted. It returns immediately when the
// window has room. Otherwise it sleeps for the computed wait and re-checks, up
// to the configured bound, after which it returns nil anyway: the gate never
// rejects a caller. The only error is ctx's, when the caller goes away.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.limiter == nil {
		return nil
	}

	for waits := 0; ; waits++ {
		if g.limiter.CanCall() {
			return nil
		}
		wait := g.limiter.UntilNextSlot()
		if waits >= g.maxWaits {
			g.exhausted()
			return nil
		}
		if err := g.suspend(ctx, wait); err != nil {
			return err
		}
	}
}

// Acquire waits for a slot and records the call. The check and the record
// happen under one lock, and a full log is never appended to: past the wait
// bound the caller reports exhaustion once and keeps waiting on the freshly
// computed slot until it is admitted or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if g == nil || g.limiter == nil {
		return nil
	}

	for waits := 0; ; waits++ {
		ok, wait := g.limiter.tryRecord()
		if ok {
			return nil
		}
		if waits == g.maxWaits {
			g.exhausted()
		}
		if err := g.suspend(ctx, wait); err != nil {
			return err
		}
	}
}

func (g *Gate) suspend(ctx context.Context, wait time.Duration) error {
	if wait < minWait {
		wait = minWait
	}
	if g.OnWait != nil {
		g.OnWait(wait)
	}
	return g.sleep(ctx, wait)
}

func (g *Gate) exhausted() {
	if g.OnExhausted != nil {
		g.OnExhausted()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
