package casty

import (
	"context"
	"io"
	"sync"
	"time"

	"casty.app/casty/castprotocol"
	"casty.app/casty/devices"
)

const defaultStatusInterval = time.Second

var (
	receiverMu sync.RWMutex
	receiverID = castprotocol.DefaultReceiverID
)

// Configure sets the receiver application launched on new sessions, e.g.
// a Styled Media Receiver with a custom logo. Call it before Create.
// An empty id restores the default media receiver.
func Configure(id string) {
	receiverMu.Lock()
	defer receiverMu.Unlock()
	if id == "" {
		id = castprotocol.DefaultReceiverID
	}
	receiverID = id
}

// ReceiverID returns the configured receiver application id.
func ReceiverID() string {
	receiverMu.RLock()
	defer receiverMu.RUnlock()
	return receiverID
}

// RemoteMediaClient is a controllable connection to one Cast device.
// *castprotocol.CastClient implements it.
type RemoteMediaClient interface {
	Connect() error
	Load(media castprotocol.MediaInfo, autoplay bool, position time.Duration) error
	Play() error
	Pause() error
	Stop() error
	Seek(position time.Duration) error
	SetVolume(level float32) error
	SetMuted(muted bool) error
	GetStatus() (*castprotocol.CastStatus, error)
	Close(stopMedia bool) error
	IsConnected() bool
}

// ClientFactory creates a RemoteMediaClient for a device address.
type ClientFactory func(deviceAddr, receiverID string) (RemoteMediaClient, error)

// DeviceSource lists the media routes that can be selected.
// *devices.Registry implements it.
type DeviceSource interface {
	StartDiscoveryLoop(ctx context.Context)
	Devices() []devices.Device
}

// Options tunes a Casty instance. The zero value is usable.
type Options struct {
	// ReceiverID overrides the package level receiver set by Configure.
	ReceiverID string
	// Devices defaults to a new devices.Registry.
	Devices DeviceSource
	// NewClient defaults to castprotocol.NewCastClient.
	NewClient ClientFactory
	// Available reports whether casting can work on this host. Defaults
	// to devices.CastAvailable.
	Available func() bool
	// StatusInterval is the session health and status poll period.
	StatusInterval time.Duration
	// LogOutput enables debug logging when set.
	LogOutput io.Writer
}

func (o Options) withDefaults() Options {
	if o.ReceiverID == "" {
		o.ReceiverID = ReceiverID()
	}
	if o.Devices == nil {
		o.Devices = devices.NewRegistry()
	}
	if o.NewClient == nil {
		o.NewClient = castClientFactory(o.LogOutput)
	}
	if o.Available == nil {
		o.Available = devices.CastAvailable
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = defaultStatusInterval
	}
	return o
}

func castClientFactory(logOutput io.Writer) ClientFactory {
	return func(deviceAddr, receiverID string) (RemoteMediaClient, error) {
		c, err := castprotocol.NewCastClient(deviceAddr, receiverID)
		if err != nil {
			return nil, err
		}
		c.LogOutput = logOutput
		return c, nil
	}
}
