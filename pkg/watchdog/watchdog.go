package watchdog

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MaxTimeout is the longest supported deadman timeout.
const MaxTimeout = 8388 * time.Millisecond

// ErrAlreadyStarted is returned by Start on a running watchdog.
var ErrAlreadyStarted = errors.New("watchdog already started")

// Watchdog feeds a Deadman from a periodic callback.
type Watchdog struct {
	deadman Deadman
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}

	feeds    atomic.Uint64
	lastFeed atomic.Int64
}

// ClampTimeout returns d limited to (0, MaxTimeout]. Zero, negative and
// oversized values select MaxTimeout.
func ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 || d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// New creates a stopped watchdog over deadman.
func New(deadman Deadman, timeout time.Duration, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watchdog{
		deadman: deadman,
		timeout: ClampTimeout(timeout),
		logger:  logger,
	}
}

// Timeout returns the effective timeout.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

// Interval returns the period of the feeder callback.
func (w *Watchdog) Interval() time.Duration {
	return w.timeout / 4
}

// Start arms the deadman and calls feeder every Interval until Stop. A nil
// feeder feeds unconditionally.
func (w *Watchdog) Start(feeder func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	if err := w.deadman.Arm(w.timeout); err != nil {
		return err
	}
	if feeder == nil {
		feeder = func() { _ = w.Feed() }
	}

	w.started = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop(feeder, w.stop, w.done)

	w.logger.Info("watchdog started", "timeout", w.timeout, "interval", w.Interval())
	return nil
}

func (w *Watchdog) loop(feeder func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			feeder()
		}
	}
}

// Feed kicks the deadman. Feeding more often than needed is harmless.
func (w *Watchdog) Feed() error {
	if err := w.deadman.Kick(); err != nil {
		w.logger.Warn("watchdog feed failed", "error", err)
		return err
	}
	w.feeds.Add(1)
	w.lastFeed.Store(time.Now().UnixNano())
	return nil
}

// Feeds returns the number of successful feeds.
func (w *Watchdog) Feeds() uint64 {
	return w.feeds.Load()
}

// LastFeed returns the time of the last successful feed.
func (w *Watchdog) LastFeed() time.Time {
	ns := w.lastFeed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Stop ends the feeder callback and closes the deadman.
func (w *Watchdog) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	close(w.stop)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("watchdog stopped")
	return w.deadman.Close()
}
