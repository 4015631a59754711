package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/therminator/therminator-go/internal/config"
	"github.com/therminator/therminator-go/pkg/api"
	"github.com/therminator/therminator-go/pkg/channel"
	"github.com/therminator/therminator-go/pkg/discovery"
	"github.com/therminator/therminator-go/pkg/failsafe"
	"github.com/therminator/therminator-go/pkg/gpio"
	"github.com/therminator/therminator-go/pkg/guard"
	"github.com/therminator/therminator-go/pkg/log"
	"github.com/therminator/therminator-go/pkg/metrics"
	"github.com/therminator/therminator-go/pkg/transport"
	"github.com/therminator/therminator-go/pkg/version"
	"github.com/therminator/therminator-go/pkg/watchdog"
	"github.com/therminator/therminator-go/pkg/web"
)

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Settings is the validated configuration. Required.
	Settings *config.Config

	// Logger for operational output (optional).
	Logger *slog.Logger

	// EventLogger receives protocol events (optional).
	EventLogger log.Logger

	// PinFactory returns the output for a board pin number. Nil selects
	// simulated pins.
	PinFactory func(id int) gpio.Pin

	// Deadman overrides the deadman selected by Settings.Watchdog.
	Deadman watchdog.Deadman

	// OnReset is called when the in-process deadman expires.
	OnReset func()

	// Advertiser overrides the mDNS advertiser.
	Advertiser discovery.Advertiser

	// Listener overrides listening on Settings.Server.Address.
	Listener net.Listener

	// MetricsListener overrides listening on Settings.Metrics.Address.
	MetricsListener net.Listener
}

// Controller owns every component of a running controller.
type Controller struct {
	mu sync.RWMutex

	settings *config.Config
	state    ServiceState

	logger *slog.Logger
	events log.Logger

	registry *channel.Registry
	power    *failsafe.Interlock
	guard    *guard.Guard
	metrics  *metrics.Metrics
	router   *web.Router
	api      *api.API
	web      *web.Server
	server   *transport.Server
	watchdog *watchdog.Watchdog

	advertiser      discovery.Advertiser
	listener        net.Listener
	metricsListener net.Listener

	eventHandlers []EventHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController builds the components. Nothing runs until Start.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Settings == nil {
		return nil, ErrNoSettings
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	s := cfg.Settings

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pinFactory := cfg.PinFactory
	if pinFactory == nil {
		pinFactory = func(id int) gpio.Pin { return gpio.NewSimPin(id) }
	}

	c := &Controller{
		settings:        s,
		state:           StateIdle,
		logger:          logger,
		events:          log.OrNoop(cfg.EventLogger),
		metrics:         metrics.New(),
		advertiser:      cfg.Advertiser,
		listener:        cfg.Listener,
		metricsListener: cfg.MetricsListener,
	}

	power, err := failsafe.New(failsafe.Config{
		Rail:        pinFactory(s.Board.PowerEnablePin),
		MaxOn:       s.Interlock.MaxOn,
		EventLogger: c.events,
	})
	if err != nil {
		return nil, fmt.Errorf("interlock: %w", err)
	}
	power.OnStateChange(c.handleRailChange)
	c.power = power

	ids := s.ChannelIDs()
	defs := make([]channel.Definition, len(ids))
	for i, id := range ids {
		defs[i] = channel.Definition{ID: id, Pin: pinFactory(s.Board.RelayPins[i])}
	}
	c.registry, err = channel.NewRegistry(channel.Config{
		Channels:    defs,
		Interlock:   power,
		EventLogger: c.events,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}
	c.registry.OnChange(c.handleChannelChange)

	c.guard = guard.New(guard.Config{
		Permits: s.API.Permits,
		Spacing: s.API.Spacing,
		OnWait:  c.metrics.ObserveGuardWait,
	})

	c.router = web.NewRouter(web.RouterConfig{
		StaticRoot:      s.Web.AssetsDir,
		IndexFile:       s.Web.IndexFile,
		AssetExtensions: s.Web.AssetExtensions,
	})
	c.api, err = api.New(api.Config{
		Registry:    c.registry,
		Guard:       c.guard,
		Credentials: web.Credentials{User: s.API.User, Password: s.API.Key},
		IndexPath:   filepath.Join(s.Web.AssetsDir, s.Web.IndexFile),
		Logger:      logger,
		OnShutdown:  c.handleShutdown,
	})
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	c.api.Register(c.router)

	c.web, err = web.NewServer(web.ServerConfig{
		Router:      c.router,
		ReadTimeout: s.Web.ReadTimeout,
		Logger:      logger,
		EventLogger: c.events,
		OnServed:    c.handleServed,
		OnFailed:    c.handleFailed,
	})
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	c.server, err = transport.NewServer(transport.ServerConfig{
		Address:        s.Server.Address,
		MaxConnections: s.Server.MaxConnections,
		Handler: func(ctx context.Context, conn *transport.ServerConn) {
			c.web.ServeConn(ctx, conn, conn.ConnID())
		},
		Logger:       c.events,
		OnConnect:    func(*transport.ServerConn) { c.metrics.ConnectionsActive.Inc() },
		OnDisconnect: func(*transport.ServerConn) { c.metrics.ConnectionsActive.Dec() },
		OnRejected: func(remote net.Addr) {
			c.metrics.ConnectionsRejected.Inc()
			logger.Warn("connection rejected at cap", "remote", remote)
		},
		OnError: func(err error) { logger.Warn("accept failed", "error", err) },
	})
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	if s.Watchdog.Enabled {
		deadman := cfg.Deadman
		if deadman == nil {
			deadman = c.newDeadman(cfg.OnReset)
		}
		c.watchdog = watchdog.New(deadman, s.Watchdog.Timeout, logger)
	}

	return c, nil
}

func (c *Controller) newDeadman(onReset func()) watchdog.Deadman {
	if c.settings.Watchdog.Device != "" {
		return watchdog.NewDeviceDeadman(c.settings.Watchdog.Device)
	}
	return watchdog.NewSoftDeadman(func() {
		c.logger.Error("watchdog expired")
		if onReset != nil {
			onReset()
		}
	})
}

// State returns the current service state.
func (c *Controller) State() ServiceState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnEvent registers an event handler.
func (c *Controller) OnEvent(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandlers = append(c.eventHandlers, handler)
}

// Registry returns the channel registry.
func (c *Controller) Registry() *channel.Registry { return c.registry }

// Power returns the rail interlock.
func (c *Controller) Power() *failsafe.Interlock { return c.power }

// API returns the API handlers.
func (c *Controller) API() *api.API { return c.api }

// Metrics returns the collectors.
func (c *Controller) Metrics() *metrics.Metrics { return c.metrics }

// Watchdog returns the watchdog, nil when disabled.
func (c *Controller) Watchdog() *watchdog.Watchdog { return c.watchdog }

// Addr returns the HTTP listen address, nil before Start.
func (c *Controller) Addr() net.Addr { return c.server.Addr() }

// MetricsAddr returns the metrics listen address, nil when not serving.
func (c *Controller) MetricsAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.metricsListener == nil {
		return nil
	}
	return c.metricsListener.Addr()
}

// Start starts listening, the registry supervisor, metrics, discovery and
// the watchdog.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateStarting
	c.mu.Unlock()

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.start(); err != nil {
		c.cancel()
		_ = c.server.Stop()
		c.wg.Wait()
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	c.logger.Info("controller started",
		"addr", c.server.Addr(),
		"channels", c.registry.Len(),
		"version", version.Program)
	return nil
}

func (c *Controller) start() error {
	s := c.settings

	var err error
	if c.listener != nil {
		err = c.server.Serve(c.ctx, c.listener)
	} else {
		err = c.server.Start(c.ctx)
	}
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.registry.Run(c.ctx, s.Interlock.TurnInterval); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("registry supervisor stopped", "error", err)
		}
	}()

	if c.metricsListener == nil && s.Metrics.Address != "" {
		ln, err := net.Listen("tcp", s.Metrics.Address)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		c.mu.Lock()
		c.metricsListener = ln
		c.mu.Unlock()
	}
	if c.metricsListener != nil {
		ln := c.metricsListener
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.metrics.Serve(c.ctx, ln); err != nil {
				c.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if err := c.advertise(); err != nil {
		c.logger.Warn("mDNS advertisement failed", "error", err)
	}

	if c.watchdog != nil {
		if err := c.watchdog.Start(c.feed); err != nil {
			return fmt.Errorf("watchdog: %w", err)
		}
	}
	return nil
}

func (c *Controller) advertise() error {
	s := c.settings
	if c.advertiser == nil {
		if !s.Discovery.Enabled {
			return nil
		}
		adv, err := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: s.Discovery.Interface,
			TTL:       s.Discovery.TTL,
		})
		if err != nil {
			return err
		}
		c.advertiser = adv
	}

	var port uint16
	if tcp, ok := c.server.Addr().(*net.TCPAddr); ok {
		port = uint16(tcp.Port)
	}
	return c.advertiser.Advertise(c.ctx, &discovery.ServiceInfo{
		InstanceName: s.Discovery.InstanceName,
		Port:         port,
		Path:         "/",
		Version:      version.Program,
		Channels:     c.registry.Len(),
		Mode:         s.Board.Mode,
	})
}

// Stop stops serving, turns every channel and the rail off and closes the
// watchdog.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.state = StateStopping
	c.mu.Unlock()

	var errs []error

	c.cancel()
	if err := c.server.Stop(); err != nil {
		errs = append(errs, err)
	}
	c.wg.Wait()

	if c.advertiser != nil {
		if err := c.advertiser.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("discovery: %w", err))
		}
	}

	if err := c.registry.DisableAll("shutdown"); err != nil {
		errs = append(errs, err)
	}

	if c.watchdog != nil {
		if err := c.watchdog.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("watchdog: %w", err))
		}
	}

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()

	c.logger.Info("controller stopped")
	return errors.Join(errs...)
}

// feed kicks the watchdog only while the registry supervisor is taking
// turns.
func (c *Controller) feed() {
	if c.watchdog == nil {
		return
	}
	since := time.Since(c.registry.LastTurn())
	if since > c.watchdog.Timeout()/2 {
		c.metrics.WatchdogSkips.Inc()
		c.logger.Warn("supervisor stalled, withholding watchdog feed", "since", since)
		c.emitEvent(Event{Type: EventWatchdogStarved, Time: time.Now(), Reason: "supervisor stalled"})
		return
	}
	if err := c.watchdog.Feed(); err == nil {
		c.metrics.WatchdogFeeds.Inc()
	}
}

func (c *Controller) handleServed(req *web.Request, status int, elapsed time.Duration) {
	c.metrics.ObserveRequest(status, elapsed)
	c.feed()
}

func (c *Controller) handleFailed(req *web.Request, status int, err error) {
	var elapsed time.Duration
	if req != nil {
		elapsed = time.Since(req.Received)
	}
	c.metrics.ObserveRequest(status, elapsed)
}

func (c *Controller) handleChannelChange(st channel.State) {
	c.metrics.SetChannel(st.ID, st.On)
	c.emitEvent(Event{Type: EventChannelChanged, Time: st.LastTriggered, Channel: st.ID, On: st.On})
}

func (c *Controller) handleRailChange(oldState, newState failsafe.State) {
	on := newState == failsafe.StateEnabled
	c.metrics.SetRail(on)

	if newState == failsafe.StateExpired {
		c.metrics.InterlockTrips.Inc()
		c.emitEvent(Event{Type: EventInterlockTripped, Time: time.Now(), Reason: "interlock expired"})
		return
	}
	c.emitEvent(Event{Type: EventRailChanged, Time: time.Now(), On: on, Reason: oldState.String() + "->" + newState.String()})
}

func (c *Controller) handleShutdown(sr api.ShutdownRequest) {
	c.metrics.ShutdownRequests.Inc()
	c.emitEvent(Event{Type: EventShutdownRequested, Time: sr.Time, Remote: sr.Remote})
}

// emitEvent sends an event to all registered handlers.
func (c *Controller) emitEvent(event Event) {
	c.mu.RLock()
	handlers := c.eventHandlers
	c.mu.RUnlock()
	for _, handler := range handlers {
		go handler(event)
	}
}
