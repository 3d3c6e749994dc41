package devices

import (
	"context"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// CapabilityVideoOut is the bitmask for video output capability (bit 0)
	CapabilityVideoOut = 1

	googlecastService = "_googlecast._tcp"

	// mDNS query timeout per request
	chromecastQueryTimeout = 750 * time.Millisecond
	// Faster polling while cache is empty for quick first discovery
	chromecastPollIntervalFast = 1 * time.Second
	// Slower polling once at least one device is known to reduce network load
	chromecastPollIntervalSlow = 4 * time.Second
	// Interface refresh cadence for add/remove changes
	chromecastIfaceRefreshInterval = 20 * time.Second
	chromecastHealthInterval       = 5 * time.Second
)

type castDevice struct {
	Name        string
	Model       string
	IsAudioOnly bool
}

// Registry caches Cast devices seen on the local network.
// Keys are "host:port" addresses.
type Registry struct {
	mu         sync.Mutex
	devices    map[string]castDevice
	warmupOnce sync.Once

	query      func(*mdns.QueryParam) error
	interfaces func() []net.Interface
	alive      func(address string) bool
}

// NewRegistry returns an empty registry that browses with hashicorp/mdns.
func NewRegistry() *Registry {
	return &Registry{
		devices:    make(map[string]castDevice),
		query:      mdns.Query,
		interfaces: getActiveNetworkInterfaces,
		alive:      HostPortIsAlive,
	}
}

// Upsert records a Cast device from an mDNS answer. Non Cast services and
// answers without an IPv4 address are ignored.
func (r *Registry) Upsert(entry *mdns.ServiceEntry) {
	if entry == nil || entry.AddrV4 == nil {
		return
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return
	}

	address := net.JoinHostPort(entry.AddrV4.String(), strconv.Itoa(entry.Port))
	dev := castDevice{Name: entry.Name}

	for _, txt := range entry.InfoFields {
		switch {
		case strings.HasPrefix(txt, "fn="):
			dev.Name = strings.TrimPrefix(txt, "fn=")
		case strings.HasPrefix(txt, "md="):
			dev.Model = strings.TrimPrefix(txt, "md=")
		case strings.HasPrefix(txt, "ca="):
			dev.IsAudioOnly = isChromecastAudioOnly(strings.TrimPrefix(txt, "ca="))
		}
	}

	if idx := strings.Index(dev.Name, "._googlecast"); idx > 0 {
		dev.Name = dev.Name[:idx]
	}

	r.mu.Lock()
	r.devices[address] = dev
	r.mu.Unlock()
}

// Remove drops a cached device.
func (r *Registry) Remove(address string) {
	r.mu.Lock()
	delete(r.devices, address)
	r.mu.Unlock()
}

// Devices returns the cached devices sorted by name.
func (r *Registry) Devices() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Device, 0, len(r.devices))
	for address, device := range r.devices {
		result = append(result, Device{
			Name:        device.Name,
			Addr:        "http://" + address,
			Model:       device.Model,
			IsAudioOnly: device.IsAudioOnly,
		})
	}
	sortDevices(result)

	return result
}

func (r *Registry) queryParams(entries chan *mdns.ServiceEntry, timeout time.Duration, iface *net.Interface) *mdns.QueryParam {
	params := mdns.DefaultParams(googlecastService)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	params.WantUnicastResponse = true
	params.Logger = log.New(io.Discard, "", 0)
	if iface != nil {
		params.Interface = iface
	}
	return params
}

// Warmup runs one browse on every active interface and blocks until the
// answers are recorded. Only the first call browses.
func (r *Registry) Warmup(timeout time.Duration) {
	r.warmupOnce.Do(func() {
		r.browse(timeout)
	})
}

func (r *Registry) browse(timeout time.Duration) {
	interfaces := r.interfaces()

	entriesCh := make(chan *mdns.ServiceEntry, 256)
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			r.Upsert(entry)
		}
	}()

	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				_ = r.query(r.queryParams(entriesCh, timeout, &iface))
			}(iface)
		}
		wg.Wait()
	} else {
		_ = r.query(r.queryParams(entriesCh, timeout, nil))
	}

	close(entriesCh)
	<-doneCh
}

func (r *Registry) pollInterval() time.Duration {
	r.mu.Lock()
	hasDevices := len(r.devices) > 0
	r.mu.Unlock()
	if hasDevices {
		return chromecastPollIntervalSlow
	}
	return chromecastPollIntervalFast
}

// StartDiscoveryLoop keeps browsing for Cast devices until ctx is
// canceled. One polling worker runs per active interface and workers
// follow interface changes. Unreachable devices are evicted.
func (r *Registry) StartDiscoveryLoop(ctx context.Context) {
	go r.discover(ctx)
	go r.healthCheck(ctx)
}

func (r *Registry) startPollingWorker(parent context.Context, iface *net.Interface) context.CancelFunc {
	entriesCh := make(chan *mdns.ServiceEntry, 256)
	workerCtx, cancel := context.WithCancel(parent)

	go func() {
		for {
			select {
			case <-workerCtx.Done():
				return
			case entry := <-entriesCh:
				r.Upsert(entry)
			}
		}
	}()

	go func() {
		pollTimer := time.NewTimer(0)
		defer pollTimer.Stop()

		for {
			select {
			case <-workerCtx.Done():
				return
			case <-pollTimer.C:
			}

			_ = r.query(r.queryParams(entriesCh, chromecastQueryTimeout, iface))
			pollTimer.Reset(r.pollInterval())
		}
	}()

	return cancel
}

func (r *Registry) discover(ctx context.Context) {
	pollWorkers := make(map[int]context.CancelFunc)

	refresh := func() {
		interfaces := r.interfaces()

		active := make(map[int]struct{}, len(interfaces))
		for _, iface := range interfaces {
			active[iface.Index] = struct{}{}
			if _, ok := pollWorkers[iface.Index]; ok {
				continue
			}
			pollIface := iface
			pollWorkers[iface.Index] = r.startPollingWorker(ctx, &pollIface)
		}

		for idx, cancel := range pollWorkers {
			if idx == -1 {
				continue
			}
			if _, ok := active[idx]; !ok {
				cancel()
				delete(pollWorkers, idx)
			}
		}

		// -1 is the worker bound to the OS default interface.
		if len(interfaces) == 0 {
			if _, ok := pollWorkers[-1]; !ok {
				pollWorkers[-1] = r.startPollingWorker(ctx, nil)
			}
		} else if cancel, ok := pollWorkers[-1]; ok {
			cancel()
			delete(pollWorkers, -1)
		}
	}

	r.Warmup(chromecastQueryTimeout)
	refresh()

	refreshTicker := time.NewTicker(chromecastIfaceRefreshInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, cancel := range pollWorkers {
				cancel()
			}
			return
		case <-refreshTicker.C:
			refresh()
		}
	}
}

func (r *Registry) healthCheck(ctx context.Context) {
	ticker := time.NewTicker(chromecastHealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictDead()
		}
	}
}

func (r *Registry) evictDead() {
	r.mu.Lock()
	addrs := make([]string, 0, len(r.devices))
	for address := range r.devices {
		addrs = append(addrs, address)
	}
	r.mu.Unlock()

	// Dial outside the lock, a dead host takes the full dial timeout.
	for _, address := range addrs {
		if !r.alive(address) {
			r.Remove(address)
		}
	}
}

// getActiveNetworkInterfaces returns all network interfaces that are up,
// multicast-capable, not loopback, and have an IPv4 address.
func getActiveNetworkInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				active = append(active, iface)
				break
			}
		}
	}

	return active
}

// CastAvailable reports whether any interface can reach Cast devices.
func CastAvailable() bool {
	return len(getActiveNetworkInterfaces()) > 0
}

// isChromecastAudioOnly checks if a device is audio-only based on the "ca" capability field.
// The "ca" field in mDNS TXT records is a bitmask where bit 0 (value 1) indicates Video Out support.
// Returns true if audio-only, false if it supports video or if parsing fails.
func isChromecastAudioOnly(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		return false
	}
	return (ca & CapabilityVideoOut) == 0
}
