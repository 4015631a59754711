package transport

import (
	"context"
	"net"
)

// ConnHandler serves one accepted connection. The handler owns conn and
// must close it.
type ConnHandler func(ctx context.Context, conn *ServerConn)

// TransportServer represents the TCP front end.
// Implemented by Server.
type TransportServer interface {
	// Start begins accepting connections.
	Start(ctx context.Context) error

	// Stop closes the listener and all tracked connections.
	Stop() error

	// Addr returns the server's listen address.
	Addr() net.Addr

	// ConnectionCount returns the number of tracked connections.
	ConnectionCount() int
}

// Compile-time interface satisfaction checks.
var (
	_ TransportServer = (*Server)(nil)
	_ net.Conn        = (*ServerConn)(nil)
)
