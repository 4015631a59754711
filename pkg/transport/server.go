package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/therminator/therminator-go/pkg/log"
)

// DefaultAddress is the listen address when none is configured.
const DefaultAddress = ":80"

// Server errors.
var (
	ErrNoHandler      = errors.New("handler is required")
	ErrAlreadyRunning = errors.New("server already running")
)

// ServerConfig configures the TCP server.
type ServerConfig struct {
	// Address to listen on (e.g., ":80" or "127.0.0.1:8080").
	Address string

	// MaxConnections caps tracked connections (0 = unlimited).
	MaxConnections int

	// Handler serves each accepted connection. Required.
	Handler ConnHandler

	// Logger for connection events (optional).
	Logger log.Logger

	// OnConnect is called when a connection is accepted and tracked.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after the handler returned.
	OnDisconnect func(conn *ServerConn)

	// OnRejected is called when a connection is dropped at the cap.
	OnRejected func(remote net.Addr)

	// OnError is called when accept fails while running.
	OnError func(err error)
}

// Server accepts connections and hands each to the handler on its own
// goroutine.
type Server struct {
	config   ServerConfig
	listener net.Listener

	// Active connections
	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := s.Serve(ctx, listener); err != nil {
		listener.Close()
		return err
	}
	return nil
}

// Serve begins accepting on an existing listener. The server takes
// ownership of it.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop stops the server, closes all connections and waits for handlers.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.cancel()

	// Close listener to stop accept loop
	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.RLock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.RUnlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of tracked connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if s.config.OnError != nil {
				s.config.OnError(fmt.Errorf("accept error: %w", err))
			}
			// Back off on persistent errors such as fd exhaustion.
			time.Sleep(10 * time.Millisecond)
			continue
		}

		sconn, ok := s.track(conn)
		if !ok {
			conn.Close()
			if s.config.OnRejected != nil {
				s.config.OnRejected(conn.RemoteAddr())
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(sconn)
	}
}

// track registers conn unless the cap is reached.
func (s *Server) track(conn net.Conn) (*ServerConn, bool) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	if s.config.MaxConnections > 0 && len(s.conns) >= s.config.MaxConnections {
		return nil, false
	}
	sconn := &ServerConn{
		Conn:     conn,
		connID:   uuid.New().String(),
		accepted: time.Now(),
	}
	s.conns[sconn] = struct{}{}
	return sconn, true
}

func (s *Server) handleConnection(sconn *ServerConn) {
	defer s.wg.Done()

	s.logState(sconn, "", "CONNECTED")
	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	s.config.Handler(s.ctx, sconn)
	sconn.Close()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logState(sconn, "CONNECTED", "DISCONNECTED")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logState(sconn *ServerConn, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: sconn.connID,
		Direction:    log.DirectionInternal,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   sconn.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// ServerConn is an accepted connection with its identifier.
type ServerConn struct {
	net.Conn

	connID    string
	accepted  time.Time
	closeOnce sync.Once
	closeErr  error
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Accepted returns when the connection was accepted.
func (c *ServerConn) Accepted() time.Time {
	return c.accepted
}

// CloseWrite half-closes the connection when the underlying conn supports
// it.
func (c *ServerConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return errors.ErrUnsupported
}

// Close closes the connection. It is safe to call more than once.
func (c *ServerConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}
