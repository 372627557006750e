package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCallsPerMinute is the platform budget documented by Sleeper.
const DefaultCallsPerMinute = 1000

// Limiter blocks callers until the next call fits the budget.
type Limiter interface {
	// Wait blocks until the caller may issue its next call, or until ctx is
	// done, in which case it returns ctx.Err().
	Wait(ctx context.Context) error
}

// New returns a Pacer for a single worker and a shared Bucket for more.
// Non-positive budgets fall back to DefaultCallsPerMinute.
func New(callsPerMinute, workers int) Limiter {
	if workers > 1 {
		return NewBucket(callsPerMinute)
	}
	return NewPacer(callsPerMinute)
}

// Interval returns the minimum spacing between calls for the budget.
func Interval(callsPerMinute int) time.Duration {
	if callsPerMinute <= 0 {
		callsPerMinute = DefaultCallsPerMinute
	}
	return time.Minute / time.Duration(callsPerMinute)
}

// Pacer enforces a minimum interval between consecutive call starts.
type Pacer struct {
	interval time.Duration

	// now and sleep are replaced in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	lastStart time.Time
}

// NewPacer creates a Pacer for the given budget.
func NewPacer(callsPerMinute int) *Pacer {
	return &Pacer{
		interval: Interval(callsPerMinute),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval returns the configured spacing between calls.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Delay returns how long a caller must still wait so that at least one
// interval has elapsed since callStart. It never returns a negative value.
func (p *Pacer) Delay(callStart time.Time) time.Duration {
	d := p.interval - p.now().Sub(callStart)
	if d < 0 {
		return 0
	}
	return d
}

// Throttle blocks until at least one interval has elapsed since callStart.
func (p *Pacer) Throttle(ctx context.Context, callStart time.Time) error {
	d := p.Delay(callStart)
	if d == 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

// Wait throttles against the start of the previous call and records the
// start of the new one.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastStart.IsZero() {
		if err := p.Throttle(ctx, p.lastStart); err != nil {
			return err
		}
	}
	p.lastStart = p.now()
	return nil
}

// Bucket is a token bucket with a burst of one, safe for concurrent use.
type Bucket struct {
	limiter *rate.Limiter
}

// NewBucket creates a Bucket for the given budget.
func NewBucket(callsPerMinute int) *Bucket {
	return &Bucket{
		limiter: rate.NewLimiter(rate.Every(Interval(callsPerMinute)), 1),
	}
}

// Wait blocks until a token is available.
func (b *Bucket) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// sleepContext sleeps for d or until ctx is done.
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
