package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPinFault is returned by SimPin when a fault has been injected.
var ErrPinFault = errors.New("pin fault")

// Pin is a single digital output.
type Pin interface {
	// ID returns the board output number of the pin.
	ID() int

	// Set drives the output high (true) or low (false).
	Set(high bool) error

	// Get returns the current output level.
	Get() (bool, error)
}

// SimPin is an in-memory Pin. It is safe for concurrent use.
type SimPin struct {
	mu     sync.Mutex
	id     int
	level  bool
	writes int
	fault  error
}

// NewSimPin creates a simulated output with the given board number.
func NewSimPin(id int) *SimPin {
	return &SimPin{id: id}
}

// ID returns the board output number.
func (p *SimPin) ID() int {
	return p.id
}

// Set drives the simulated output.
func (p *SimPin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fault != nil {
		return fmt.Errorf("gpio %d: %w", p.id, p.fault)
	}
	p.level = high
	p.writes++
	return nil
}

// Get returns the simulated output level.
func (p *SimPin) Get() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

// Writes returns the number of successful writes.
func (p *SimPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// InjectFault makes subsequent writes fail with err. A nil err clears the fault.
func (p *SimPin) InjectFault(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = err
}

// Compile-time interface satisfaction check.
var _ Pin = (*SimPin)(nil)
