package web

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/therminator/therminator-go/pkg/log"
	"github.com/therminator/therminator-go/pkg/version"
)

// lingerTimeout bounds how long unread client input is drained after the
// response so the close does not turn into a reset.
const lingerTimeout = 500 * time.Millisecond

// DefaultReadTimeout bounds how long a client may take to send its request
// head.
const DefaultReadTimeout = 10 * time.Second

// ServerConfig configures the request pipeline.
type ServerConfig struct {
	// Router resolves request URLs. Required.
	Router *Router

	// ReadTimeout bounds reading the request head. Zero means
	// DefaultReadTimeout; negative disables the deadline.
	ReadTimeout time.Duration

	// Logger for operational output (optional).
	Logger *slog.Logger

	// EventLogger receives request and response events (optional).
	EventLogger log.Logger

	// OnServed is called after a request completed without error.
	OnServed func(req *Request, status int, elapsed time.Duration)

	// OnFailed is called after a request ended with an error response or
	// an abort. status is 0 when nothing was sent.
	OnFailed func(req *Request, status int, err error)
}

// Server runs the one-request-per-connection pipeline.
type Server struct {
	router      *Router
	readTimeout time.Duration
	logger      *slog.Logger
	events      log.Logger
	onServed    func(*Request, int, time.Duration)
	onFailed    func(*Request, int, error)
}

// NewServer creates a pipeline over cfg.Router.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("router is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		router:      cfg.Router,
		readTimeout: cfg.ReadTimeout,
		logger:      logger,
		events:      log.OrNoop(cfg.EventLogger),
		onServed:    cfg.OnServed,
		onFailed:    cfg.OnFailed,
	}, nil
}

// ServeConn runs one request cycle on conn and closes it. Panics in
// handlers are recovered and end only this connection.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn, connID string) {
	defer closeConn(conn)

	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	logger := s.logger.With("conn_id", connID, "remote", remote)

	var req *Request
	defer func() {
		if p := recover(); p != nil {
			logger.Error("handler panic", "panic", p, "stack", string(debug.Stack()))
			if req != nil {
				s.finish(req, fmt.Errorf("panic: %v", p), logger)
			}
		}
	}()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	br := bufio.NewReaderSize(conn, MaxRequestLine)
	resp := newResponse(conn)

	line, err := readLine(br)
	if err != nil {
		s.abort(logger, err)
		return
	}
	method, url, proto, err := parseRequestLine(line)
	if err != nil {
		s.abort(logger, err)
		return
	}

	path, query := splitURL(url)
	req = &Request{
		Method:     method,
		URL:        url,
		Path:       path,
		Query:      query,
		Version:    proto,
		ConnID:     connID,
		RemoteAddr: remote,
		Received:   time.Now(),
		ctx:        ctx,
		body:       br,
		resp:       resp,
	}

	if !version.Accepted(proto) {
		s.logRequest(req, "")
		s.finish(req, Errorf(505, "version %q", proto), logger)
		return
	}

	headers, err := readHeaders(br)
	if err != nil {
		var he *HTTPError
		if !errors.As(err, &he) {
			s.abort(logger, err)
			return
		}
		s.logRequest(req, "")
		s.finish(req, err, logger)
		return
	}
	req.Headers = headers

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Time{})
	}

	logger.Debug("request", "method", method, "url", url, "version", proto)

	res, route, ok := s.router.Resolve(path)
	s.logRequest(req, route)
	if !ok {
		s.finish(req, Errorf(404, "no route for %s", path), logger)
		return
	}

	s.finish(req, s.interpret(req, res), logger)
}

// interpret runs Result steps until Done or an error.
func (s *Server) interpret(req *Request, res Result) error {
	for step := 0; ; step++ {
		if step >= MaxDelegation {
			return ErrDelegationLimit
		}

		switch r := res.(type) {
		case nil, Done:
			return nil
		case Context:
			res = Templated{Path: s.router.FilePath(req.Path), Context: r.Data}
		case StaticFile:
			return sendFile(req.resp, r.Path)
		case Templated:
			return sendTemplate(req.resp, r.Path, r.Context)
		case Invoke:
			next, err := r.Handler(req)
			if err != nil {
				return err
			}
			res = next
		default:
			return fmt.Errorf("unknown result %T", res)
		}
	}
}

// finish writes any error response, flushes, and reports the outcome.
func (s *Server) finish(req *Request, err error, logger *slog.Logger) {
	resp := req.resp

	if err != nil && !IsPeerReset(err) {
		var he *HTTPError
		if !errors.As(err, &he) {
			logger.Error("request failed", "url", req.URL, "error", err)
			he = NewHTTPError(500)
		} else {
			logger.Debug("request rejected", "url", req.URL, "status", he.Code, "error", err)
		}
		if werr := resp.writeError(he); werr != nil {
			err = werr
		}
	} else if err == nil && !resp.Written() {
		_ = resp.WriteHeader(200)
	}

	if ferr := resp.flush(); ferr != nil && err == nil {
		err = ferr
	}

	elapsed := time.Since(req.Received)
	s.logResponse(req, elapsed)

	if err != nil {
		if IsPeerReset(err) {
			logger.Debug("peer reset", "url", req.URL, "error", err)
		}
		if s.onFailed != nil {
			s.onFailed(req, resp.Status(), err)
		}
		return
	}
	if s.onServed != nil {
		s.onServed(req, resp.Status(), elapsed)
	}
}

// abort handles a failure before a request exists. Nothing is written.
func (s *Server) abort(logger *slog.Logger, err error) {
	switch {
	case IsPeerReset(err):
		logger.Debug("peer closed before request", "error", err)
	case errors.Is(err, ErrProtocol):
		logger.Debug("malformed request", "error", err)
	default:
		logger.Debug("request read failed", "error", err)
	}
	if s.onFailed != nil {
		s.onFailed(nil, 0, err)
	}
}

func (s *Server) logRequest(req *Request, route string) {
	s.events.Log(log.Event{
		Timestamp:    req.Received,
		ConnectionID: req.ConnID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerHTTP,
		Category:     log.CategoryMessage,
		RemoteAddr:   req.RemoteAddr,
		Request: &log.RequestEvent{
			Method:  req.Method,
			URL:     req.URL,
			Version: req.Version,
			Route:   route,
		},
	})
}

func (s *Server) logResponse(req *Request, elapsed time.Duration) {
	s.events.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: req.ConnID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerHTTP,
		Category:     log.CategoryMessage,
		RemoteAddr:   req.RemoteAddr,
		Response: &log.ResponseEvent{
			Status:         req.resp.Status(),
			Bytes:          req.resp.Bytes(),
			ProcessingTime: elapsed,
		},
	})
}

// closeConn half-closes TCP connections and drains what the client still
// sends before the final close.
func closeConn(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if cw.CloseWrite() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
			_, _ = io.Copy(io.Discard, io.LimitReader(conn, MaxBodySize))
		}
	}
	conn.Close()
}
