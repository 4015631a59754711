package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "therminator"

// Metrics holds the controller collectors.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts finished requests by status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes request processing time.
	RequestDuration prometheus.Histogram

	// GuardWait observes time spent in the DOS guard before a handler ran.
	GuardWait prometheus.Histogram

	// ConnectionsActive tracks open connections.
	ConnectionsActive prometheus.Gauge

	// ConnectionsRejected counts connections dropped at the cap.
	ConnectionsRejected prometheus.Counter

	// ChannelState is 1 for channels switched on.
	ChannelState *prometheus.GaugeVec

	// ChannelSwitches counts successful channel writes.
	ChannelSwitches *prometheus.CounterVec

	// RailEnabled is 1 while the relay rail is enabled.
	RailEnabled prometheus.Gauge

	// InterlockTrips counts forced rail shutdowns on expiry.
	InterlockTrips prometheus.Counter

	// WatchdogFeeds counts deadman feeds.
	WatchdogFeeds prometheus.Counter

	// WatchdogSkips counts feeder turns that withheld a feed.
	WatchdogSkips prometheus.Counter

	// ShutdownRequests counts shutdown endpoint calls.
	ShutdownRequests prometheus.Counter
}

// New creates the collectors in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Finished HTTP requests by status code",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request processing time in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		GuardWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "guard_wait_seconds",
			Help:      "Time spent waiting for a permit and the spacing gate",
			Buckets:   []float64{.001, .01, .025, .05, .1, .2, .5, 1},
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open connections",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections closed because the connection cap was reached",
		}),
		ChannelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_on",
			Help:      "Relay channel state (1 = on)",
		}, []string{"channel"}),
		ChannelSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_writes_total",
			Help:      "Successful relay channel writes",
		}, []string{"channel"}),
		RailEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rail_enabled",
			Help:      "Relay power rail state (1 = enabled)",
		}),
		InterlockTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interlock_trips_total",
			Help:      "Rail shutdowns forced by the max-on deadline",
		}),
		WatchdogFeeds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_feeds_total",
			Help:      "Deadman feeds",
		}),
		WatchdogSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_skipped_feeds_total",
			Help:      "Feeder turns that withheld a feed because the supervisor stalled",
		}),
		ShutdownRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shutdown_requests_total",
			Help:      "Shutdown endpoint calls",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.GuardWait,
		m.ConnectionsActive,
		m.ConnectionsRejected,
		m.ChannelState,
		m.ChannelSwitches,
		m.RailEnabled,
		m.InterlockTrips,
		m.WatchdogFeeds,
		m.WatchdogSkips,
		m.ShutdownRequests,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records a finished request. status 0 means nothing was
// sent.
func (m *Metrics) ObserveRequest(status int, elapsed time.Duration) {
	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(label).Inc()
	if elapsed > 0 {
		m.RequestDuration.Observe(elapsed.Seconds())
	}
}

// ObserveGuardWait records time spent in the guard.
func (m *Metrics) ObserveGuardWait(d time.Duration) {
	m.GuardWait.Observe(d.Seconds())
}

// SetChannel records a channel write.
func (m *Metrics) SetChannel(id string, on bool) {
	m.ChannelState.WithLabelValues(id).Set(boolGauge(on))
	m.ChannelSwitches.WithLabelValues(id).Inc()
}

// SetRail records the rail state.
func (m *Metrics) SetRail(enabled bool) {
	m.RailEnabled.Set(boolGauge(enabled))
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve serves /metrics on listener until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
