// Package config loads and validates the controller configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/therminator/therminator-go/internal/logging"
	"github.com/therminator/therminator-go/pkg/channel"
	"github.com/therminator/therminator-go/pkg/failsafe"
	"github.com/therminator/therminator-go/pkg/guard"
	"github.com/therminator/therminator-go/pkg/watchdog"
	"github.com/therminator/therminator-go/pkg/web"
)

// Channel profiles.
const (
	ModeHeating = "heating"
	ModeCooling = "cooling"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "therminator.yaml"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete controller configuration.
type Config struct {
	Board     BoardConfig     `yaml:"board"`
	Access    AccessConfig    `yaml:"access"`
	Web       WebConfig       `yaml:"web"`
	API       APIConfig       `yaml:"api"`
	Server    ServerConfig    `yaml:"server"`
	Interlock InterlockConfig `yaml:"interlock"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Log       LogConfig       `yaml:"log"`
}

// BoardConfig describes the relay board wiring.
type BoardConfig struct {
	// PowerEnablePin drives the shared relay supply.
	PowerEnablePin int `yaml:"power_enable_pin"`

	// RelayPins are the relay outputs, one per channel, in channel order.
	RelayPins []int `yaml:"relay_pins"`

	// Mode selects the default channel ids: heating or cooling.
	Mode string `yaml:"mode"`

	// ChannelIDs overrides the ids selected by Mode.
	ChannelIDs []string `yaml:"channel_ids,omitempty"`
}

// AccessConfig carries the access point credentials. The access point
// itself is brought up outside this program.
type AccessConfig struct {
	AccessPointName string `yaml:"access_point_name"`
	AccessPointKey  string `yaml:"access_point_key"`
}

// WebConfig configures static content and request reading.
type WebConfig struct {
	AssetsDir       string        `yaml:"assets_directory"`
	LogsDir         string        `yaml:"logs_directory"`
	IndexFile       string        `yaml:"index_file"`
	AssetExtensions []string      `yaml:"asset_extensions"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
}

// APIConfig configures API credentials and the DOS guard.
type APIConfig struct {
	User    string        `yaml:"api_user"`
	Key     string        `yaml:"api_key"`
	Permits int64         `yaml:"permits"`
	Spacing time.Duration `yaml:"spacing"`
}

// ServerConfig configures the TCP listener.
type ServerConfig struct {
	Address        string `yaml:"address"`
	MaxConnections int    `yaml:"max_connections"`
}

// InterlockConfig configures the rail deadline and its supervisor.
type InterlockConfig struct {
	MaxOn        time.Duration `yaml:"max_on"`
	TurnInterval time.Duration `yaml:"turn_interval"`
}

// WatchdogConfig configures the deadman.
type WatchdogConfig struct {
	Enabled bool          `yaml:"enable_watchdog"`
	Timeout time.Duration `yaml:"timeout"`

	// Device is a watchdog device path such as /dev/watchdog. Empty selects
	// the in-process deadman.
	Device string `yaml:"device,omitempty"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	// Address of the metrics listener. Empty disables metrics serving.
	Address string `yaml:"address"`
}

// DiscoveryConfig configures the mDNS advertisement.
type DiscoveryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	InstanceName string        `yaml:"instance_name"`
	Interface    string        `yaml:"interface,omitempty"`
	TTL          time.Duration `yaml:"ttl"`
}

// LogConfig configures operational and event logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// EventFile receives the CBOR event log when set.
	EventFile string `yaml:"event_file,omitempty"`
}

// Default returns the configuration used for omitted settings.
func Default() *Config {
	return &Config{
		Board: BoardConfig{
			PowerEnablePin: 22,
			RelayPins:      []int{18, 19, 20, 21},
			Mode:           ModeHeating,
		},
		Access: AccessConfig{
			AccessPointName: "therminator",
		},
		Web: WebConfig{
			AssetsDir:       "www",
			LogsDir:         "logs",
			IndexFile:       web.DefaultIndexFile,
			AssetExtensions: append([]string(nil), web.DefaultAssetExtensions...),
			ReadTimeout:     web.DefaultReadTimeout,
		},
		API: APIConfig{
			User:    "admin",
			Permits: guard.DefaultPermits,
			Spacing: guard.DefaultSpacing,
		},
		Server: ServerConfig{
			Address:        ":80",
			MaxConnections: 32,
		},
		Interlock: InterlockConfig{
			MaxOn:        failsafe.DefaultMaxOn,
			TurnInterval: channel.DefaultTurnInterval,
		},
		Watchdog: WatchdogConfig{
			Enabled: true,
			Timeout: watchdog.MaxTimeout,
		},
		Discovery: DiscoveryConfig{
			Enabled:      true,
			InstanceName: "therminator",
			TTL:          120 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ChannelIDs returns the configured ids, or the default set for Mode.
func (c *Config) ChannelIDs() []string {
	if len(c.Board.ChannelIDs) > 0 {
		return c.Board.ChannelIDs
	}
	if strings.EqualFold(c.Board.Mode, ModeCooling) {
		return append([]string(nil), channel.CoolingIDs...)
	}
	return append([]string(nil), channel.HeatingIDs...)
}

// Validate reports every problem found, joined, each wrapping
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch strings.ToLower(c.Board.Mode) {
	case ModeHeating, ModeCooling:
	default:
		fail("board.mode %q (want %s or %s)", c.Board.Mode, ModeHeating, ModeCooling)
	}

	ids := c.ChannelIDs()
	if len(c.Board.RelayPins) != len(ids) {
		fail("board.relay_pins has %d pins for %d channels", len(c.Board.RelayPins), len(ids))
	}
	seenID := make(map[string]bool, len(ids))
	for _, id := range ids {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			fail("board.channel_ids contains an empty id")
			continue
		}
		if seenID[key] {
			fail("duplicate channel id %q", id)
		}
		seenID[key] = true
	}

	seenPin := map[int]bool{c.Board.PowerEnablePin: true}
	if c.Board.PowerEnablePin < 0 {
		fail("board.power_enable_pin %d", c.Board.PowerEnablePin)
	}
	for _, pin := range c.Board.RelayPins {
		if pin < 0 {
			fail("board.relay_pins contains %d", pin)
		}
		if seenPin[pin] {
			fail("pin %d used more than once", pin)
		}
		seenPin[pin] = true
	}

	if c.API.User == "" || c.API.Key == "" {
		fail("api.api_user and api.api_key are required")
	}
	if strings.Contains(c.API.User, ":") {
		fail("api.api_user must not contain ':'")
	}
	if c.API.Permits < 1 {
		fail("api.permits %d", c.API.Permits)
	}

	if c.Web.ReadTimeout < 0 {
		fail("web.read_timeout %v", c.Web.ReadTimeout)
	}
	if c.Server.Address == "" {
		fail("server.address is required")
	}
	if c.Server.MaxConnections < 0 {
		fail("server.max_connections %d", c.Server.MaxConnections)
	}

	if err := failsafe.ValidateMaxOn(c.Interlock.MaxOn); err != nil {
		fail("interlock.max_on: %v", err)
	}
	if c.Interlock.TurnInterval <= 0 || c.Interlock.TurnInterval >= c.Interlock.MaxOn {
		fail("interlock.turn_interval %v", c.Interlock.TurnInterval)
	}

	if c.Watchdog.Timeout < 0 || c.Watchdog.Timeout > watchdog.MaxTimeout {
		fail("watchdog.timeout %v (max %v)", c.Watchdog.Timeout, watchdog.MaxTimeout)
	}
	if c.Watchdog.Enabled && c.Interlock.TurnInterval >= watchdog.ClampTimeout(c.Watchdog.Timeout)/2 {
		fail("interlock.turn_interval %v must be shorter than half the watchdog timeout", c.Interlock.TurnInterval)
	}

	if c.Discovery.TTL < 0 {
		fail("discovery.ttl %v", c.Discovery.TTL)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		fail("log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		fail("log.format %q", c.Log.Format)
	}

	return errors.Join(errs...)
}
