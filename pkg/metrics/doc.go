// Package metrics exposes controller metrics in the Prometheus text format.
//
// Metrics live in their own registry so tests and multiple controllers in
// one process do not collide. The registry is served on a dedicated
// listener, separate from the relay HTTP front end.
package metrics
