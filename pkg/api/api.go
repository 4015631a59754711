package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/therminator/therminator-go/pkg/channel"
	"github.com/therminator/therminator-go/pkg/guard"
	"github.com/therminator/therminator-go/pkg/web"
)

// Route paths.
const (
	PathIndex            = "/"
	PathPing             = "/ping"
	PathGetChannelStates = "/api/get_channel_states"
	PathSetChannelStates = "/api/set_channel_states"
	PathGetRelayPower    = "/api/get_relay_pwr"
	PathSetRelayPower    = "/api/set_relay_pwr"
	PathShutdown         = "/api/shutdown"
)

// ShutdownRequest records one call to the shutdown endpoint.
type ShutdownRequest struct {
	Time   time.Time
	Remote string
}

// Config configures the API.
type Config struct {
	// Registry holds the channels and the rail interlock. Required.
	Registry *channel.Registry

	// Guard admits every endpoint (optional; a default guard is created).
	Guard *guard.Guard

	// Credentials protect the /api endpoints.
	Credentials web.Credentials

	// IndexPath is the file served for "/".
	IndexPath string

	// Logger for operational output (optional).
	Logger *slog.Logger

	// OnShutdown is called for every recorded shutdown request.
	OnShutdown func(ShutdownRequest)
}

// API serves the controller endpoints.
type API struct {
	registry  *channel.Registry
	guard     *guard.Guard
	creds     web.Credentials
	indexPath string
	logger    *slog.Logger

	mu         sync.Mutex
	shutdowns  []ShutdownRequest
	onShutdown func(ShutdownRequest)
}

// New creates the API.
func New(cfg Config) (*API, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Guard == nil {
		cfg.Guard = guard.New(guard.Config{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &API{
		registry:   cfg.Registry,
		guard:      cfg.Guard,
		creds:      cfg.Credentials,
		indexPath:  cfg.IndexPath,
		logger:     logger,
		onShutdown: cfg.OnShutdown,
	}, nil
}

// Register adds every endpoint to router.
func (a *API) Register(router *web.Router) {
	router.HandleFunc(PathIndex, a.guarded(a.index))
	router.HandleFunc(PathPing, a.guarded(a.ping))

	router.HandleFunc(PathGetChannelStates, a.private(a.getChannelStates))
	router.HandleFunc(PathSetChannelStates, a.private(a.setChannelStates))
	router.HandleFunc(PathGetRelayPower, a.private(a.getRelayPower))
	router.HandleFunc(PathSetRelayPower, a.private(a.setRelayPower))
	router.HandleFunc(PathShutdown, a.private(a.shutdown))
}

// Shutdowns returns the recorded shutdown requests.
func (a *API) Shutdowns() []ShutdownRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ShutdownRequest(nil), a.shutdowns...)
}

// private wraps h with the guard and Basic auth, guard outermost.
func (a *API) private(h web.Handler) web.Handler {
	return a.guarded(web.RequireBasicAuth(a.creds, h))
}

// guarded runs h under the DOS guard.
func (a *API) guarded(h web.Handler) web.Handler {
	return func(req *web.Request) (web.Result, error) {
		var res web.Result
		err := a.guard.Do(req.Context(), func(context.Context) error {
			var herr error
			res, herr = h(req)
			return herr
		})
		return res, err
	}
}

func (a *API) index(req *web.Request) (web.Result, error) {
	a.logger.Debug("index requested", "remote", req.RemoteAddr)
	return web.StaticFile{Path: a.indexPath}, nil
}

func (a *API) ping(req *web.Request) (web.Result, error) {
	if _, err := req.Response().WriteString("pong"); err != nil {
		return nil, err
	}
	a.logger.Debug("pong", "remote", req.RemoteAddr)
	return web.Done{}, nil
}

func (a *API) shutdown(req *web.Request) (web.Result, error) {
	if err := web.RequireMethod(req, "POST"); err != nil {
		return nil, err
	}

	remote := req.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	sr := ShutdownRequest{Time: time.Now(), Remote: remote}

	a.mu.Lock()
	a.shutdowns = append(a.shutdowns, sr)
	fn := a.onShutdown
	a.mu.Unlock()

	a.logger.Info("shutdown requested", "remote", sr.Remote)
	if fn != nil {
		fn(sr)
	}
	return web.Done{}, nil
}
