// Package guard limits how hard clients can drive the relay handlers.
//
// Two gates run before a guarded handler: a permit pool bounding the
// number of handlers in flight, and a minimum spacing since the last
// successfully served request. Requests arriving inside the spacing window
// are delayed, not rejected, so bursts are smoothed instead of chattering
// the relays.
package guard
