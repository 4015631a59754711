package log

import (
	"time"
)

// Event is a single record in the event log.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection (UUID). Empty for events not
	// tied to a connection, such as an interlock expiry.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates data flow relative to the controller.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Request     *RequestEvent     `cbor:"10,keyasint,omitempty"`
	Response    *ResponseEvent    `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data received from a client.
	DirectionIn Direction = 0
	// DirectionOut indicates data sent to a client.
	DirectionOut Direction = 1
	// DirectionInternal indicates an event raised inside the controller.
	DirectionInternal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the controller captured the event.
type Layer uint8

const (
	// LayerTransport is the TCP connection layer.
	LayerTransport Layer = 0
	// LayerHTTP is the request pipeline.
	LayerHTTP Layer = 1
	// LayerSafety covers relays, the power rail and the watchdog.
	LayerSafety Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerHTTP:
		return "HTTP"
	case LayerSafety:
		return "SAFETY"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer returns the layer with the given (case-sensitive) name.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range []Layer{LayerTransport, LayerHTTP, LayerSafety} {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a request or response.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// RequestEvent captures a parsed request line.
type RequestEvent struct {
	Method  string `cbor:"1,keyasint"`
	URL     string `cbor:"2,keyasint"`
	Version string `cbor:"3,keyasint,omitempty"`

	// Route is the matched route pattern, empty for static or index serving.
	Route string `cbor:"4,keyasint,omitempty"`
}

// ResponseEvent captures the outcome of a request.
type ResponseEvent struct {
	// Status is the HTTP status code written, 0 if nothing was written.
	Status int `cbor:"1,keyasint"`

	// Bytes is the number of bytes written to the connection.
	Bytes int64 `cbor:"2,keyasint"`

	// ProcessingTime is measured from request line receipt to close.
	ProcessingTime time.Duration `cbor:"3,keyasint"`
}

// StateChangeEvent captures a lifecycle or output change.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// Name identifies the instance, e.g. a channel id.
	Name string `cbor:"2,keyasint,omitempty"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"3,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"4,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"5,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityConnection is a client connection.
	StateEntityConnection StateEntity = 0
	// StateEntityChannel is a relay channel output.
	StateEntityChannel StateEntity = 1
	// StateEntityRail is the external power rail feeding the relays.
	StateEntityRail StateEntity = 2
	// StateEntityWatchdog is the deadman timer.
	StateEntityWatchdog StateEntity = 3
	// StateEntityController is the controller process itself.
	StateEntityController StateEntity = 4
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityChannel:
		return "CHANNEL"
	case StateEntityRail:
		return "RAIL"
	case StateEntityWatchdog:
		return "WATCHDOG"
	case StateEntityController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the HTTP status code sent for the error, if any.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// OnOff renders a boolean output level as a state string.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
