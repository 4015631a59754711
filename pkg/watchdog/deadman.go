package watchdog

import (
	"errors"
	"sync"
	"time"
)

// Deadman errors.
var (
	ErrNotArmed    = errors.New("deadman not armed")
	ErrClosed      = errors.New("deadman closed")
	ErrUnsupported = errors.New("hardware watchdog not supported on this platform")
)

// Deadman is a timer that must be kicked before its timeout passes.
type Deadman interface {
	// Arm starts the timer.
	Arm(timeout time.Duration) error

	// Kick restarts the timer.
	Kick() error

	// Close disarms the timer where the implementation allows it.
	Close() error
}

// SoftDeadman is an in-process Deadman that calls a function on expiry.
type SoftDeadman struct {
	mu       sync.Mutex
	timer    *time.Timer
	timeout  time.Duration
	onExpire func()
	closed   bool
	expired  bool
}

// NewSoftDeadman creates a SoftDeadman calling onExpire when not kicked in
// time.
func NewSoftDeadman(onExpire func()) *SoftDeadman {
	return &SoftDeadman{onExpire: onExpire}
}

// Arm starts the timer. Arming again restarts it with the new timeout.
func (s *SoftDeadman) Arm(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timeout = timeout
	s.expired = false
	s.timer = time.AfterFunc(timeout, s.expire)
	return nil
}

// Kick restarts the timer.
func (s *SoftDeadman) Kick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.timer == nil {
		return ErrNotArmed
	}
	s.timer.Reset(s.timeout)
	return nil
}

// Close stops the timer.
func (s *SoftDeadman) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.closed = true
	return nil
}

// Expired reports whether the timer has fired since it was last armed.
func (s *SoftDeadman) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

func (s *SoftDeadman) expire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.expired = true
	fn := s.onExpire
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

var _ Deadman = (*SoftDeadman)(nil)
