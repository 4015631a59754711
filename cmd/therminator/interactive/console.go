// Package interactive provides the interactive command-line console for a
// running controller.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/therminator/therminator-go/pkg/service"
)

// Console handles interactive mode for therminator serve.
type Console struct {
	ctrl *service.Controller
	rl   *readline.Instance
	out  io.Writer
}

// New creates a console bound to ctrl.
func New(ctrl *service.Controller) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "therminator> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(ctrl, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(ctrl *service.Controller, out io.Writer) *Console {
	c := &Console{ctrl: ctrl, out: out}
	ctrl.OnEvent(c.handleEvent)
	return c
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Exec(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(line string) (quit bool) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "channels", "ls":
		c.cmdChannels()

	case "set":
		c.cmdSet(args)

	case "power", "pwr":
		c.cmdPower(args)

	case "off":
		c.cmdOff()

	case "feed":
		c.cmdFeed()

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Therminator Commands:
  Channels:
    channels           - List channels and their states
    set <id> on|off    - Switch a channel
    off                - Switch every channel and the rail off

  Power:
    power              - Show rail state and remaining on-time
    power on|off       - Enable or disable the relay rail

  Supervision:
    status             - Show controller status
    feed               - Feed the watchdog once

  General:
    help               - Show this help
    quit               - Stop the controller and exit`)
}

func (c *Console) cmdStatus() {
	ctrl := c.ctrl
	fmt.Fprintf(c.out, "State:     %s\n", ctrl.State())
	if addr := ctrl.Addr(); addr != nil {
		fmt.Fprintf(c.out, "Listening: %s\n", addr)
	}
	if addr := ctrl.MetricsAddr(); addr != nil {
		fmt.Fprintf(c.out, "Metrics:   %s\n", addr)
	}
	c.printPower()

	if last := ctrl.Registry().LastTurn(); !last.IsZero() {
		fmt.Fprintf(c.out, "Last turn: %s ago\n", time.Since(last).Round(time.Millisecond))
	}
	if wd := ctrl.Watchdog(); wd != nil {
		fmt.Fprintf(c.out, "Watchdog:  timeout %s, %d feeds\n", wd.Timeout(), wd.Feeds())
	} else {
		fmt.Fprintln(c.out, "Watchdog:  disabled")
	}
	if n := len(ctrl.API().Shutdowns()); n > 0 {
		fmt.Fprintf(c.out, "Shutdown requests: %d\n", n)
	}
	fmt.Fprintln(c.out)
	c.cmdChannels()
}

func (c *Console) cmdChannels() {
	fmt.Fprintf(c.out, "  %-8s %-6s %-4s %s\n", "CHANNEL", "OUTPUT", "ON", "LAST TRIGGERED")
	for _, st := range c.ctrl.Registry().Enumerate() {
		last := "-"
		if !st.LastTriggered.IsZero() {
			last = st.LastTriggered.Format("15:04:05")
		}
		fmt.Fprintf(c.out, "  %-8s %-6d %-4s %s\n", st.ID, st.Output, onOff(st.On), last)
	}
}

func (c *Console) cmdSet(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: set <id> on|off")
		return
	}
	on, ok := parseOnOff(args[1])
	if !ok {
		fmt.Fprintf(c.out, "Invalid state: %s (use on or off)\n", args[1])
		return
	}
	if err := c.ctrl.Registry().Set(args[0], on); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s -> %s\n", args[0], onOff(on))
}

func (c *Console) cmdPower(args []string) {
	if len(args) == 0 {
		c.printPower()
		return
	}
	on, ok := parseOnOff(args[0])
	if !ok {
		fmt.Fprintf(c.out, "Invalid state: %s (use on or off)\n", args[0])
		return
	}

	power := c.ctrl.Power()
	var err error
	if on {
		err = power.Enable()
	} else {
		err = power.Disable()
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printPower()
}

func (c *Console) printPower() {
	power := c.ctrl.Power()
	if power.Enabled() {
		fmt.Fprintf(c.out, "Rail:      ON (%s remaining of %s)\n",
			power.Remaining().Round(time.Second), power.MaxOn())
		return
	}
	fmt.Fprintf(c.out, "Rail:      %s\n", power.State())
}

func (c *Console) cmdOff() {
	if err := c.ctrl.Registry().DisableAll("console"); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "All channels and the rail are off")
}

func (c *Console) cmdFeed() {
	wd := c.ctrl.Watchdog()
	if wd == nil {
		fmt.Fprintln(c.out, "Watchdog disabled")
		return
	}
	if err := wd.Feed(); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Fed (%d feeds)\n", wd.Feeds())
}

// handleEvent prints safety events as they happen.
func (c *Console) handleEvent(event service.Event) {
	switch event.Type {
	case service.EventInterlockTripped:
		fmt.Fprintf(c.out, "\n[%s] !! interlock expired: all channels forced off\n", event.Time.Format("15:04:05"))
	case service.EventShutdownRequested:
		fmt.Fprintf(c.out, "\n[%s] shutdown requested by %s\n", event.Time.Format("15:04:05"), event.Remote)
	case service.EventWatchdogStarved:
		fmt.Fprintf(c.out, "\n[%s] watchdog feed withheld: %s\n", event.Time.Format("15:04:05"), event.Reason)
	}
}

func parseOnOff(s string) (on, ok bool) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, true
	case "off", "0", "false":
		return false, true
	default:
		return false, false
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
