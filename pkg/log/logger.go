package log

// Logger receives event records. Pass nil or NoopLogger to disable.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent use
	// and must not block for long; relay safety paths call Log.
	Log(event Event)
}

// NoopLogger discards all events. It is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// OrNoop returns l, or NoopLogger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
