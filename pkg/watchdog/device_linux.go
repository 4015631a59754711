//go:build linux

package watchdog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultDevicePath is the Linux watchdog character device.
const DefaultDevicePath = "/dev/watchdog"

// DeviceDeadman drives a Linux watchdog device.
type DeviceDeadman struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewDeviceDeadman creates a deadman for the device at path. The device is
// opened on Arm; opening it starts the hardware timer.
func NewDeviceDeadman(path string) *DeviceDeadman {
	if path == "" {
		path = DefaultDevicePath
	}
	return &DeviceDeadman{path: path}
}

// Arm opens the device and programs the timeout, rounded up to whole
// seconds.
func (d *DeviceDeadman) Arm(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		f, err := os.OpenFile(d.path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", d.path, err)
		}
		d.file = f
	}

	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(d.file.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		return fmt.Errorf("set watchdog timeout: %w", err)
	}
	return nil
}

// Kick writes a keepalive to the device.
func (d *DeviceDeadman) Kick() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return ErrNotArmed
	}
	if _, err := d.file.Write([]byte{0}); err != nil {
		return fmt.Errorf("kick watchdog: %w", err)
	}
	return nil
}

// Close writes the magic close character and releases the device, which
// disarms the hardware timer on drivers that honour it.
func (d *DeviceDeadman) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	_, werr := d.file.Write([]byte("V"))
	cerr := d.file.Close()
	d.file = nil
	if werr != nil {
		return fmt.Errorf("magic close: %w", werr)
	}
	return cerr
}

var _ Deadman = (*DeviceDeadman)(nil)
