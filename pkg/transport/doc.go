// Package transport accepts TCP connections for the HTTP front end.
//
// The server owns the listener and the accept loop. Every accepted
// connection gets a UUID, is tracked until its handler returns, and runs
// on its own goroutine so a slow or failing client never stalls the
// others. Connection open and close are recorded as transport-layer
// events.
//
// # Limits
//
// MaxConnections caps concurrently tracked connections. Connections
// beyond the cap are closed immediately after accept without being handed
// to the handler.
package transport
