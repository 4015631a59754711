package channel

import (
	"fmt"
	"time"

	"github.com/therminator/therminator-go/pkg/gpio"
)

// Default id sets for thermostat wiring.
var (
	HeatingIDs = []string{"R", "W", "W2", "G"}
	CoolingIDs = []string{"R", "Y", "Y2", "O/B/G"}
)

// Definition describes one channel for NewRegistry.
type Definition struct {
	ID      string
	Pin     gpio.Pin
	Initial bool
}

// Channel is one relay output.
type Channel struct {
	id            string
	pin           gpio.Pin
	on            bool
	lastTriggered time.Time
}

// ID returns the channel id as configured.
func (c *Channel) ID() string {
	return c.id
}

// Output returns the board output number.
func (c *Channel) Output() int {
	return c.pin.ID()
}

// write drives the pin and records the new state only on success.
func (c *Channel) write(on bool) error {
	if err := c.pin.Set(on); err != nil {
		return fmt.Errorf("channel %s: %w", c.id, err)
	}
	c.on = on
	c.lastTriggered = time.Now()
	return nil
}

// State is a point-in-time view of a channel.
type State struct {
	ID            string
	Output        int
	On            bool
	LastTriggered time.Time
}

// Entry is one requested change in a batch.
type Entry struct {
	ID string
	On bool
}
