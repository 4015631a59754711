// Package failsafe implements the external power interlock for the relay
// rail.
//
// The relays switching heating and cooling stages are fed from a shared
// rail with its own enable output. The interlock keeps that rail from
// staying energized indefinitely: every enable arms a one-shot deadline,
// and when the deadline passes the rail and every channel it feeds are
// forced off, whatever the application layer believes.
//
// # Max-On Duration
//
// Configurable range: 1 minute to 12 hours (default: 1 hour), counted from
// the enabling call.
//
// # Enable Semantics
//
//   - Enable while disabled drives the rail high and arms the deadline
//   - Enable while enabled is a no-op; the original deadline is kept
//   - Disable drives the rail low and disarms the deadline; no-op when disabled
//
// # Expiry
//
// The deadline fires on a runtime timer goroutine. The callback only posts
// a signal on a one-slot channel (see Interlock.Expired); the owner of the
// channel outputs consumes it on its own loop, checks Due, forces its
// outputs off and calls Trip. A generation number keeps a late signal from
// an old deadline from tripping a rail that was re-enabled since.
package failsafe
