// Package watchdog keeps a deadman timer fed while the controller is alive.
//
// A Deadman resets the device (or, in simulation, runs a callback) when it
// is not kicked within its timeout. The Watchdog arms a Deadman and runs a
// periodic callback at a quarter of the timeout; the callback decides
// whether the process is healthy enough to feed.
//
// The timeout is clamped to 8388 ms, the longest period the board's
// hardware watchdog supports. Zero or out-of-range values select the
// maximum.
package watchdog
