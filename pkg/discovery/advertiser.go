package discovery

import (
	"context"
	"errors"
	"time"
)

// Discovery constants.
const (
	// ServiceType is the DNS-SD service type advertised.
	ServiceType = "_http._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is used when ServiceInfo.Port is zero.
	DefaultPort = 80

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// DefaultInstanceName is used when ServiceInfo.InstanceName is empty.
	DefaultInstanceName = "therminator"
)

// Discovery errors.
var (
	ErrNotAdvertising   = errors.New("not advertising")
	ErrInvalidTXTRecord = errors.New("invalid TXT record")
	ErrMissingRequired  = errors.New("missing required TXT field")
)

// Advertiser provides mDNS service advertising capabilities.
type Advertiser interface {
	// Advertise starts advertising the service, replacing any previous
	// advertisement.
	Advertise(ctx context.Context, info *ServiceInfo) error

	// Update replaces the TXT records of the running advertisement.
	Update(info *ServiceInfo) error

	// Stop stops advertising.
	Stop() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       120 * time.Second,
	}
}

// ServiceInfo describes the advertised front end.
type ServiceInfo struct {
	// InstanceName is the DNS-SD instance label.
	InstanceName string

	// Port the front end listens on.
	Port uint16

	// Path is the URL path of the front end.
	Path string

	// Version is the controller version.
	Version string

	// Channels is the number of relay channels.
	Channels int

	// Mode is the channel profile, "heating" or "cooling" (optional).
	Mode string
}
