package service

import (
	"errors"
	"time"
)

// Service errors.
var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrNotStarted     = errors.New("service not started")
	ErrNoSettings     = errors.New("settings are required")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies controller events.
type EventType uint8

const (
	// EventChannelChanged - a channel was written.
	EventChannelChanged EventType = iota

	// EventRailChanged - the rail was enabled or disabled.
	EventRailChanged

	// EventInterlockTripped - the rail deadline expired and everything was
	// forced off.
	EventInterlockTripped

	// EventShutdownRequested - the shutdown endpoint was called.
	EventShutdownRequested

	// EventWatchdogStarved - the feeder withheld a feed.
	EventWatchdogStarved
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventChannelChanged:
		return "CHANNEL_CHANGED"
	case EventRailChanged:
		return "RAIL_CHANGED"
	case EventInterlockTripped:
		return "INTERLOCK_TRIPPED"
	case EventShutdownRequested:
		return "SHUTDOWN_REQUESTED"
	case EventWatchdogStarved:
		return "WATCHDOG_STARVED"
	default:
		return "UNKNOWN"
	}
}

// Event is a controller event.
type Event struct {
	// Type is the event type.
	Type EventType

	// Time the event was raised.
	Time time.Time

	// Channel is the channel id (for channel events).
	Channel string

	// On is the new channel or rail state.
	On bool

	// Remote is the requesting host (for shutdown requests).
	Remote string

	// Reason is a human-readable reason.
	Reason string
}

// EventHandler handles controller events.
type EventHandler func(Event)
