package guard

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Defaults.
const (
	DefaultPermits = 10
	DefaultSpacing = 100 * time.Millisecond
)

// Config configures a Guard.
type Config struct {
	// Permits is the number of handlers allowed in flight. Zero means
	// DefaultPermits.
	Permits int64

	// Spacing is the minimum time between successful completions and the
	// start of the next handler. Zero means DefaultSpacing; negative
	// disables spacing.
	Spacing time.Duration

	// OnWait observes how long each admitted call waited (optional).
	OnWait func(time.Duration)
}

// Guard admits calls through a permit pool and a spacing gate.
type Guard struct {
	permits *semaphore.Weighted
	size    int64
	spacing time.Duration
	onWait  func(time.Duration)

	inFlight   atomic.Int64
	lastServed atomic.Int64
}

// New creates a Guard.
func New(cfg Config) *Guard {
	if cfg.Permits <= 0 {
		cfg.Permits = DefaultPermits
	}
	if cfg.Spacing == 0 {
		cfg.Spacing = DefaultSpacing
	}
	if cfg.Spacing < 0 {
		cfg.Spacing = 0
	}
	return &Guard{
		permits: semaphore.NewWeighted(cfg.Permits),
		size:    cfg.Permits,
		spacing: cfg.Spacing,
		onWait:  cfg.OnWait,
	}
}

// Permits returns the pool size.
func (g *Guard) Permits() int64 {
	return g.size
}

// Spacing returns the minimum spacing.
func (g *Guard) Spacing() time.Duration {
	return g.spacing
}

// InFlight returns the number of calls holding a permit.
func (g *Guard) InFlight() int64 {
	return g.inFlight.Load()
}

// LastServed returns when a guarded call last completed successfully.
func (g *Guard) LastServed() time.Time {
	ns := g.lastServed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Do runs fn once a permit is held and the spacing window has passed. The
// permit is released on every path. The last-served time only advances when
// fn returns nil. Calls waiting at the same time may all pass the spacing
// gate together once it opens.
func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	start := time.Now()

	if err := g.permits.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.permits.Release(1)

	g.inFlight.Add(1)
	defer g.inFlight.Add(-1)

	if err := g.awaitSpacing(ctx); err != nil {
		return err
	}
	if g.onWait != nil {
		g.onWait(time.Since(start))
	}

	if err := fn(ctx); err != nil {
		return err
	}
	g.lastServed.Store(time.Now().UnixNano())
	return nil
}

// awaitSpacing sleeps in quarter-spacing steps until the spacing has
// elapsed since the last successful completion.
func (g *Guard) awaitSpacing(ctx context.Context) error {
	if g.spacing == 0 {
		return nil
	}
	step := g.spacing / 4
	if step <= 0 {
		step = g.spacing
	}

	for {
		last := g.lastServed.Load()
		if last == 0 || time.Since(time.Unix(0, last)) >= g.spacing {
			return nil
		}

		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
