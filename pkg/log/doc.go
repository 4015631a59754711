// Package log provides structured event logging for the controller.
//
// This package defines the Logger interface and Event records for capturing
// what happens on the wire and on the outputs: accepted connections, parsed
// requests, responses, relay and rail state changes, watchdog activity and
// errors. It is separate from operational logging (slog); the event log is a
// complete machine-readable trace for later analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// On the device: append to a CBOR file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/therminator/events.tlog")
//
//	// Both
//	cfg.EventLogger = log.NewMultiLogger(console, file)
//
// # Layers
//
//   - Transport: connection accept/close
//   - HTTP: request line, response status and timing
//   - Safety: channel, rail, interlock and watchdog state changes
//
// # File Format
//
// Event files are a concatenation of CBOR-encoded events using integer map
// keys. "therminator log view" and "therminator log stats" read them back.
package log
