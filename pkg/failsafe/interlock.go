package failsafe

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/therminator/therminator-go/pkg/gpio"
	"github.com/therminator/therminator-go/pkg/log"
)

// Interlock constants.
const (
	// MinMaxOn is the shortest configurable max-on duration.
	MinMaxOn = 1 * time.Minute

	// MaxMaxOn is the longest configurable max-on duration.
	MaxMaxOn = 12 * time.Hour

	// DefaultMaxOn is the default max-on duration.
	DefaultMaxOn = 1 * time.Hour
)

// Interlock errors.
var (
	ErrInvalidMaxOn = errors.New("invalid max-on duration")
	ErrNoRail       = errors.New("rail output is required")
)

// State represents the interlock state.
type State uint8

const (
	// StateDisabled indicates the rail is off and no deadline is armed.
	StateDisabled State = iota

	// StateEnabled indicates the rail is on and the deadline is armed.
	StateEnabled

	// StateExpired indicates the deadline fired and the rail was forced off.
	// It behaves like StateDisabled until the next Enable.
	StateExpired
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "DISABLED"
	case StateEnabled:
		return "ENABLED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Config holds interlock configuration.
type Config struct {
	// Rail is the enable output of the shared relay supply.
	Rail gpio.Pin

	// MaxOn is how long the rail may stay enabled. Zero means DefaultMaxOn.
	// Negative values are rejected.
	MaxOn time.Duration

	// EventLogger receives rail state changes (optional).
	EventLogger log.Logger
}

// Interlock gates the shared rail behind a one-shot deadline.
type Interlock struct {
	mu sync.Mutex

	rail  gpio.Pin
	maxOn time.Duration

	state      State
	enabledAt  time.Time
	timer      *time.Timer
	generation uint64

	// expired carries at most one pending expiry signal.
	expired chan struct{}

	events        log.Logger
	onStateChange func(oldState, newState State)
}

// New creates a disabled interlock. The rail is driven low.
func New(cfg Config) (*Interlock, error) {
	if cfg.Rail == nil {
		return nil, ErrNoRail
	}
	if cfg.MaxOn == 0 {
		cfg.MaxOn = DefaultMaxOn
	}
	if cfg.MaxOn < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaxOn, cfg.MaxOn)
	}
	if err := cfg.Rail.Set(false); err != nil {
		return nil, fmt.Errorf("failed to drive rail low: %w", err)
	}

	return &Interlock{
		rail:    cfg.Rail,
		maxOn:   cfg.MaxOn,
		state:   StateDisabled,
		expired: make(chan struct{}, 1),
		events:  log.OrNoop(cfg.EventLogger),
	}, nil
}

// ValidateMaxOn checks d against the configurable range. New itself accepts
// any positive duration; the range is enforced when configuration is loaded.
func ValidateMaxOn(d time.Duration) error {
	if d < MinMaxOn || d > MaxMaxOn {
		return fmt.Errorf("%w: %v (allowed %v..%v)", ErrInvalidMaxOn, d, MinMaxOn, MaxMaxOn)
	}
	return nil
}

// State returns the current state.
func (i *Interlock) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Enabled reports whether the rail is enabled.
func (i *Interlock) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state == StateEnabled
}

// MaxOn returns the configured max-on duration.
func (i *Interlock) MaxOn() time.Duration {
	return i.maxOn
}

// Remaining returns the time until the deadline, or 0 when disabled.
func (i *Interlock) Remaining() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StateEnabled {
		return 0
	}
	remaining := i.maxOn - time.Since(i.enabledAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Enable drives the rail high and arms the deadline. Calling Enable while
// enabled keeps the existing deadline.
func (i *Interlock) Enable() error {
	i.mu.Lock()

	if i.state == StateEnabled {
		i.mu.Unlock()
		return nil
	}
	if err := i.rail.Set(true); err != nil {
		i.mu.Unlock()
		return fmt.Errorf("failed to enable rail: %w", err)
	}

	oldState := i.state
	i.state = StateEnabled
	i.enabledAt = time.Now()
	i.generation++
	i.timer = time.AfterFunc(i.maxOn, i.signalExpiry)

	fn := i.onStateChange
	i.mu.Unlock()

	i.logChange(oldState, StateEnabled, "enable")
	if fn != nil {
		fn(oldState, StateEnabled)
	}
	return nil
}

// Disable drives the rail low and disarms the deadline. It is a no-op when
// the rail is not enabled.
func (i *Interlock) Disable() error {
	i.mu.Lock()

	if i.state != StateEnabled {
		i.mu.Unlock()
		return nil
	}
	if err := i.rail.Set(false); err != nil {
		i.mu.Unlock()
		return fmt.Errorf("failed to disable rail: %w", err)
	}

	oldState := i.state
	i.disarmLocked()
	i.state = StateDisabled

	fn := i.onStateChange
	i.mu.Unlock()

	i.logChange(oldState, StateDisabled, "disable")
	if fn != nil {
		fn(oldState, StateDisabled)
	}
	return nil
}

// Expired returns the channel on which deadline signals are posted.
func (i *Interlock) Expired() <-chan struct{} {
	return i.expired
}

// Due reports whether the armed deadline has passed. The returned
// generation must be handed to Trip.
func (i *Interlock) Due() (uint64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StateEnabled {
		return 0, false
	}
	if time.Since(i.enabledAt) < i.maxOn {
		return 0, false
	}
	return i.generation, true
}

// Trip forces the rail off after expiry. It only acts when generation still
// identifies the current enable; the rail is marked off even if the write
// fails, and the write error is returned.
func (i *Interlock) Trip(generation uint64, reason string) error {
	i.mu.Lock()

	if i.state != StateEnabled || generation != i.generation {
		i.mu.Unlock()
		return nil
	}

	err := i.rail.Set(false)
	oldState := i.state
	i.disarmLocked()
	i.state = StateExpired

	fn := i.onStateChange
	i.mu.Unlock()

	i.logChange(oldState, StateExpired, reason)
	if fn != nil {
		fn(oldState, StateExpired)
	}
	if err != nil {
		return fmt.Errorf("failed to force rail off: %w", err)
	}
	return nil
}

// OnStateChange sets a callback for state changes.
func (i *Interlock) OnStateChange(fn func(oldState, newState State)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onStateChange = fn
}

// signalExpiry runs on the timer goroutine: one non-blocking send.
func (i *Interlock) signalExpiry() {
	select {
	case i.expired <- struct{}{}:
	default:
	}
}

func (i *Interlock) disarmLocked() {
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.generation++
	i.enabledAt = time.Time{}
}

func (i *Interlock) logChange(oldState, newState State, reason string) {
	i.events.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionInternal,
		Layer:     log.LayerSafety,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityRail,
			OldState: railState(oldState),
			NewState: railState(newState),
			Reason:   reason,
		},
	})
}

// railState renders the rail level, or EXPIRED after a forced shutdown.
func railState(s State) string {
	if s == StateExpired {
		return s.String()
	}
	return log.OnOff(s == StateEnabled)
}
