package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/therminator/therminator-go/pkg/failsafe"
	"github.com/therminator/therminator-go/pkg/log"
)

// Registry errors.
var (
	ErrNotFound       = errors.New("channel not found")
	ErrDuplicateID    = errors.New("duplicate channel id")
	ErrEmptyID        = errors.New("empty channel id")
	ErrNoPin          = errors.New("channel has no output pin")
	ErrNoInterlock    = errors.New("interlock is required")
	ErrAlreadyRunning = errors.New("registry supervisor already running")
)

// DefaultTurnInterval is how often Run takes a housekeeping turn.
const DefaultTurnInterval = 250 * time.Millisecond

// Config configures a Registry.
type Config struct {
	// Channels in enumeration order.
	Channels []Definition

	// Interlock gating the shared rail.
	Interlock *failsafe.Interlock

	// EventLogger receives channel state changes (optional).
	EventLogger log.Logger

	// Logger for operational output (optional).
	Logger *slog.Logger
}

// Registry is the ordered table of relay channels.
type Registry struct {
	mu       sync.Mutex
	channels []*Channel
	index    map[string]*Channel

	power *failsafe.Interlock

	events   log.Logger
	logger   *slog.Logger
	onChange func(State)

	running  atomic.Bool
	lastTurn atomic.Int64
}

// NewRegistry builds a registry and drives every output to its initial
// level.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Interlock == nil {
		return nil, ErrNoInterlock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Registry{
		index:  make(map[string]*Channel, len(cfg.Channels)),
		power:  cfg.Interlock,
		events: log.OrNoop(cfg.EventLogger),
		logger: logger,
	}

	for _, def := range cfg.Channels {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return nil, ErrEmptyID
		}
		if def.Pin == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPin, id)
		}
		key := strings.ToLower(id)
		if _, exists := r.index[key]; exists {
			return nil, fmt.Errorf("%w: %q already exists", ErrDuplicateID, id)
		}

		ch := &Channel{id: id, pin: def.Pin}
		if err := ch.write(def.Initial); err != nil {
			return nil, err
		}
		r.channels = append(r.channels, ch)
		r.index[key] = ch
	}

	return r, nil
}

// Power returns the interlock gating the channels' rail.
func (r *Registry) Power() *failsafe.Interlock {
	return r.power
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	return len(r.channels)
}

// Contains reports whether a channel with the id exists.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[strings.ToLower(id)]
	return ok
}

// OnChange sets a callback invoked after every successful output change.
func (r *Registry) OnChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Set drives one channel. The stored state and trigger time change only if
// the write succeeds.
func (r *Registry) Set(id string, on bool) error {
	ch, ok := r.index[strings.ToLower(id)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setLocked(ch, on, "request")
}

// SetBatch applies entries in order. Every id is resolved before any output
// is touched, so an unknown id fails the batch with nothing applied. A write
// failure stops the batch; entries before it stay applied.
func (r *Registry) SetBatch(entries []Entry) error {
	resolved := make([]*Channel, len(entries))
	for i, e := range entries {
		ch, ok := r.index[strings.ToLower(e.ID)]
		if !ok {
			return fmt.Errorf("%w: %q (entry %d)", ErrNotFound, e.ID, i)
		}
		resolved[i] = ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, ch := range resolved {
		if err := r.setLocked(ch, entries[i].On, "request"); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// Get returns the state of one channel.
func (r *Registry) Get(id string) (bool, error) {
	ch, ok := r.index[strings.ToLower(id)]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return ch.on, nil
}

// LastTriggered returns when the channel was last written successfully.
func (r *Registry) LastTriggered(id string) (time.Time, error) {
	ch, ok := r.index[strings.ToLower(id)]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return ch.lastTriggered, nil
}

// Enumerate returns every channel in registry order.
func (r *Registry) Enumerate() []State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]State, len(r.channels))
	for i, ch := range r.channels {
		out[i] = ch.snapshot()
	}
	return out
}

// DisableAll drives every channel off and disables the rail. All channels
// are attempted; the first error is returned.
func (r *Registry) DisableAll(reason string) error {
	err := r.forceOff(reason)
	if perr := r.power.Disable(); perr != nil && err == nil {
		err = perr
	}
	return err
}

// Run consumes interlock expiry signals until ctx is cancelled, and takes a
// housekeeping turn every interval (DefaultTurnInterval when zero). Only one
// Run may be active.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if interval <= 0 {
		interval = DefaultTurnInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.markTurn()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.power.Expired():
			r.handleExpiry()
		case <-ticker.C:
			r.handleExpiry()
		}
		r.markTurn()
	}
}

// LastTurn returns when Run last completed a loop iteration.
func (r *Registry) LastTurn() time.Time {
	ns := r.lastTurn.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (r *Registry) markTurn() {
	r.lastTurn.Store(time.Now().UnixNano())
}

// handleExpiry forces every channel off and trips the rail when the
// interlock deadline has passed.
func (r *Registry) handleExpiry() {
	gen, due := r.power.Due()
	if !due {
		return
	}

	r.logger.Warn("relay power interlock expired, forcing all channels off",
		"max_on", r.power.MaxOn())

	if err := r.forceOff("interlock expired"); err != nil {
		r.logger.Error("failed to force channel off", "error", err)
	}
	if err := r.power.Trip(gen, "interlock expired"); err != nil {
		r.logger.Error("failed to force rail off", "error", err)
	}
}

func (r *Registry) forceOff(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for _, ch := range r.channels {
		if err := r.setLocked(ch, false, reason); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Registry) setLocked(ch *Channel, on bool, reason string) error {
	old := ch.on
	if err := ch.write(on); err != nil {
		r.events.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionInternal,
			Layer:     log.LayerSafety,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerSafety,
				Message: err.Error(),
				Context: "set channel " + ch.id,
			},
		})
		return err
	}

	r.logger.Debug("channel set", "channel", ch.id, "output", ch.pin.ID(), "on", on, "reason", reason)
	if old != on {
		r.events.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionInternal,
			Layer:     log.LayerSafety,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityChannel,
				Name:     ch.id,
				OldState: log.OnOff(old),
				NewState: log.OnOff(on),
				Reason:   reason,
			},
		})
	}
	if r.onChange != nil {
		r.onChange(ch.snapshot())
	}
	return nil
}

func (c *Channel) snapshot() State {
	return State{
		ID:            c.id,
		Output:        c.pin.ID(),
		On:            c.on,
		LastTriggered: c.lastTriggered,
	}
}
