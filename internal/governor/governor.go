package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// EndpointClass is a coarse bucket for rate-limit bookkeeping.
type EndpointClass string

// The closed set of endpoint classes.
const (
	ClassSearch   EndpointClass = "search"
	ClassPlayback EndpointClass = "playback"
)

// Policy holds the governor's timing constants. Real Spotify limits vary
// by deployment, so these are overridable rather than baked into the
// algorithm.
type Policy struct {
	// Cooldown is how far next-allowed-at advances after a successful
	// (or generically failed) call.
	Cooldown time.Duration

	// Penalty is how far next-allowed-at advances after the remote side
	// rejects a call for rate limiting.
	Penalty time.Duration

	// WaitBuffer is added on top of next-allowed-at when a caller has
	// to wait out a cooldown.
	WaitBuffer time.Duration
}

// DefaultPolicy returns conservative defaults for the Spotify Web API:
// 10s cooldown, 60s penalty, 1s wait buffer.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:   10 * time.Second,
		Penalty:    60 * time.Second,
		WaitBuffer: time.Second,
	}
}

// RateLimitedError reports that the remote service throttled a call.
// The call may be retried by the caller after RetryAfter; the governor
// itself never retries.
type RateLimitedError struct {
	Class      EndpointClass
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited on %s operations, retry after %s", e.Class, e.RetryAfter)
}

// throttleSignal is the distinguished status signal a remote operation
// error exposes when the remote side answered "too many requests".
// spotify.RateLimitError implements it; the governor stays free of HTTP
// knowledge.
type throttleSignal interface {
	error
	RetryAfter() time.Duration
}

// Governor owns the rate-limit ledger and gates every outbound call.
type Governor struct {
	policy Policy

	mu   sync.Mutex
	next map[EndpointClass]time.Time

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Governor with no restriction recorded for any class.
func New(policy Policy) *Governor {
	return &Governor{
		policy: policy,
		next:   make(map[EndpointClass]time.Time),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Execute runs op under the class's cooldown discipline. If the class is
// under a known cooldown the caller is suspended until next-allowed-at
// plus the wait buffer, then re-checks the ledger before issuing; a
// concurrent caller may have claimed the window while this one slept.
// The operation is invoked exactly once. Success advances the class by
// the cooldown and returns op's result unchanged. A throttle signal
// advances the class by the penalty window and yields a
// RateLimitedError; it is never auto-retried. Any other failure
// propagates unchanged (the ledger still records the attempt).
func (g *Governor) Execute(ctx context.Context, class EndpointClass, op func(ctx context.Context) error) error {
	for {
		wait := g.claim(class)
		if wait == 0 {
			break
		}
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}

	err := op(ctx)

	var throttled throttleSignal
	if errors.As(err, &throttled) {
		g.advance(class, g.policy.Penalty)
		retryAfter := throttled.RetryAfter()
		if retryAfter <= 0 {
			retryAfter = g.policy.Penalty
		}
		return &RateLimitedError{Class: class, RetryAfter: retryAfter}
	}

	g.advance(class, g.policy.Cooldown)
	return err
}

// NextAllowedAt returns the earliest instant calls in the class may be
// issued. The zero time means no restriction has been recorded.
func (g *Governor) NextAllowedAt(class EndpointClass) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next[class]
}

// claim atomically checks the class ledger. While the class is under a
// cooldown it returns how long the caller must wait, including the wait
// buffer. Otherwise it reserves the window by advancing next-allowed-at
// before the call is issued, so at most one caller passes per window;
// callers waking from a wait must claim again.
func (g *Governor) claim(class EndpointClass) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if next, ok := g.next[class]; ok && now.Before(next) {
		return next.Sub(now) + g.policy.WaitBuffer
	}
	g.next[class] = now.Add(g.policy.Cooldown)
	return 0
}

// advance moves the class's next-allowed-at forward by d from now.
// The ledger is monotonic: it never moves backwards.
func (g *Governor) advance(class EndpointClass, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := g.now().Add(d)
	if candidate.After(g.next[class]) {
		g.next[class] = candidate
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
