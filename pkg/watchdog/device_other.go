//go:build !linux

package watchdog

import "time"

// DefaultDevicePath is the Linux watchdog character device.
const DefaultDevicePath = "/dev/watchdog"

// DeviceDeadman is unavailable on this platform; every call fails.
type DeviceDeadman struct{}

// NewDeviceDeadman returns a deadman whose methods report ErrUnsupported.
func NewDeviceDeadman(string) *DeviceDeadman {
	return &DeviceDeadman{}
}

func (*DeviceDeadman) Arm(time.Duration) error { return ErrUnsupported }
func (*DeviceDeadman) Kick() error             { return ErrUnsupported }
func (*DeviceDeadman) Close() error            { return nil }

var _ Deadman = (*DeviceDeadman)(nil)
