package devices

import (
	"net"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoDeviceAvailable  = errors.New("loadChromecastDevices: No available Cast devices")
	ErrDeviceNotAvailable = errors.New("devicePicker: Requested device not available")
)

// Device is a discovered Cast receiver, the target of a media route.
type Device struct {
	Name        string
	Addr        string // "http://host:port"
	Model       string
	IsAudioOnly bool
}

// DisplayName returns the name shown in route lists.
func (d Device) DisplayName() string {
	if d.IsAudioOnly {
		return d.Name + " (Chromecast Audio)"
	}
	return d.Name + " (Chromecast)"
}

// LoadChromecastDevices runs a single mDNS browse for timeout and returns
// the devices found, sorted by name.
func LoadChromecastDevices(timeout time.Duration) ([]Device, error) {
	r := NewRegistry()
	r.Warmup(timeout)

	devs := r.Devices()
	if len(devs) == 0 {
		return nil, ErrNoDeviceAvailable
	}

	return devs, nil
}

// DevicePicker will pick the nth device (1-based) from the devices
// sorted by name.
func DevicePicker(devices []Device, n int) (Device, error) {
	if n > len(devices) || len(devices) == 0 || n <= 0 {
		return Device{}, ErrDeviceNotAvailable
	}

	sorted := make([]Device, len(devices))
	copy(sorted, devices)
	sortDevices(sorted)

	return sorted[n-1], nil
}

func sortDevices(devs []Device) {
	sort.Slice(devs, func(i, j int) bool {
		if devs[i].Name == devs[j].Name {
			return devs[i].Addr < devs[j].Addr
		}
		return devs[i].Name < devs[j].Name
	})
}

// HostPortIsAlive checks if a device at the given address is reachable via TCP connection.
// Returns true if the connection succeeds within 2 seconds.
func HostPortIsAlive(address string) bool {
	conn, err := net.DialTimeout("tcp", address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
