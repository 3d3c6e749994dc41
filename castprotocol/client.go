package castprotocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"
)

const (
	defaultCastPort   = 8009
	loadAttempts      = 5
	transportAttempts = 8
	wakeUpDelay       = 4 * time.Second
)

// CastClient wraps go-chromecast Application for simplified API
type CastClient struct {
	app         *application.Application
	conn        cast.Conn // keep reference to connection for custom commands
	mu          sync.RWMutex
	host        string
	port        int
	connected   bool
	receiverID  string
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *CastClient) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// NewCastClient prepares a client for the device at deviceAddr
// ("http://host:port" or "host:port"). receiverID selects the receiver
// application; empty means the default media receiver.
func NewCastClient(deviceAddr, receiverID string) (*CastClient, error) {
	host, port, err := parseDeviceAddr(deviceAddr)
	if err != nil {
		return nil, err
	}

	if receiverID == "" {
		receiverID = DefaultReceiverID
	}

	// Create our own connection that we can use for custom commands
	conn := cast.NewConnection()

	app := application.NewApplication(
		application.WithConnection(conn),
		application.WithConnectionRetries(5), // slow TVs need time to wake
	)

	return &CastClient{
		app:        app,
		conn:       conn,
		host:       host,
		port:       port,
		receiverID: receiverID,
		Logger:     zerolog.Nop(),
	}, nil
}

func parseDeviceAddr(deviceAddr string) (string, int, error) {
	if deviceAddr == "" {
		return "", 0, fmt.Errorf("parse device addr: empty address")
	}

	// Bare "host:port" form.
	if !strings.Contains(deviceAddr, "://") {
		deviceAddr = "http://" + deviceAddr
	}

	u, err := url.Parse(deviceAddr)
	if err != nil {
		return "", 0, fmt.Errorf("parse device addr: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("parse device addr: no host in %q", deviceAddr)
	}

	port := defaultCastPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("parse device addr port: %w", err)
		}
	}

	return host, port, nil
}

// CanonicalAddr returns deviceAddr in "host:port" form so the URL and
// bare forms of one device compare equal. Unparsable input is returned
// trimmed.
func CanonicalAddr(deviceAddr string) string {
	host, port, err := parseDeviceAddr(strings.TrimSpace(deviceAddr))
	if err != nil {
		return strings.TrimSpace(deviceAddr)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Connect establishes connection to the Chromecast device.
func (c *CastClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.app == nil {
		return fmt.Errorf("chromecast connect: app is nil")
	}

	c.Log().Debug().Str("Method", "Connect").Str("Host", c.host).Int("Port", c.port).Msg("connecting")
	if err := c.app.Start(c.host, c.port); err != nil {
		c.Log().Error().Str("Method", "Connect").Err(err).Msg("connection failed")
		return fmt.Errorf("chromecast connect: %w", err)
	}
	c.connected = true
	c.Log().Debug().Str("Method", "Connect").Msg("connected successfully")
	return nil
}

// isTimeoutError checks if an error is a timeout/deadline exceeded error.
// This typically happens when the TV needs to wake from sleep.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// transportID waits for the launched receiver application to report its
// transport id.
func (c *CastClient) transportID() (string, error) {
	for i := range transportAttempts {
		if !c.IsConnected() {
			return "", errClosed
		}

		if err := c.app.Update(); err != nil {
			c.Log().Debug().Str("Method", "transportID").Int("Attempt", i+1).Err(err).Msg("app.Update retry")
			time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
			continue
		}

		if app := c.app.App(); app != nil && app.TransportId != "" {
			return app.TransportId, nil
		}
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}

	return "", fmt.Errorf("failed to get transport ID after retries")
}

var errClosed = errors.New("connection closed")

// Load launches the receiver application and loads media onto it.
// position is the playback start offset.
// Live streams are loaded paused and then played right away, autoplay
// on a live stream makes some receivers buffer for tens of seconds.
func (c *CastClient) Load(media MediaInfo, autoplay bool, position time.Duration) error {
	c.Log().Debug().Str("Method", "Load").Str("URL", media.ContentId).Str("ContentType", media.ContentType).
		Str("StreamType", media.StreamType).Bool("Autoplay", autoplay).Dur("Position", position).Msg("loading media")

	if !c.IsConnected() {
		c.Log().Debug().Str("Method", "Load").Msg("connection closed, reconnecting")
		if err := c.Connect(); err != nil {
			return fmt.Errorf("reconnect before load: %w", err)
		}
	}

	live := media.IsLive()
	sendAutoplay := autoplay && !live

	var lastErr error
	for attempt := range loadAttempts {
		if !c.IsConnected() {
			c.Log().Debug().Str("Method", "Load").Msg("connection closed during load, aborting silently")
			return nil
		}

		c.Log().Debug().Str("Method", "Load").Int("Attempt", attempt).Str("Receiver", c.receiverID).Msg("launching receiver")
		if err := LaunchReceiver(c.conn, c.receiverID); err != nil {
			lastErr = err
			if isTimeoutError(err) && attempt < loadAttempts-1 {
				c.Log().Debug().Str("Method", "Load").Int("Attempt", attempt).Err(err).Msg("timeout, TV may be waking up, retrying...")
				time.Sleep(wakeUpDelay)
				continue
			}
			c.Log().Error().Str("Method", "Load").Err(err).Msg("launch receiver failed")
			return fmt.Errorf("launch receiver: %w", err)
		}

		transportId, err := c.transportID()
		if errors.Is(err, errClosed) {
			c.Log().Debug().Str("Method", "Load").Msg("connection closed during app update, aborting silently")
			return nil
		}
		if err != nil {
			lastErr = err
			if attempt < loadAttempts-1 {
				c.Log().Debug().Str("Method", "Load").Int("Attempt", attempt).Msg("no transport ID, TV may be waking up, retrying...")
				time.Sleep(wakeUpDelay)
				continue
			}
			c.Log().Error().Str("Method", "Load").Msg("failed to get transport ID")
			return lastErr
		}

		if err := LoadOnTransport(c.conn, transportId, media, position.Seconds(), sendAutoplay); err != nil {
			lastErr = err
			if isTimeoutError(err) && attempt < loadAttempts-1 {
				c.Log().Debug().Str("Method", "Load").Int("Attempt", attempt).Err(err).Msg("timeout, TV may be waking up, retrying...")
				time.Sleep(wakeUpDelay)
				continue
			}
			c.Log().Error().Str("Method", "Load").Err(err).Msg("load failed")
			return err
		}

		if live && autoplay {
			c.playAfterLoad()
		}

		c.Log().Debug().Str("Method", "Load").Msg("load success")
		return nil
	}

	return lastErr
}

// playAfterLoad sends PLAY once the LOAD response carrying the media
// session id has been processed.
func (c *CastClient) playAfterLoad() {
	var playErr error
	for i := range 3 {
		if err := c.app.Update(); err != nil {
			playErr = err
			time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
			continue
		}

		playErr = c.app.Unpause()
		if playErr == nil {
			c.Log().Debug().Str("Method", "Load").Int("Attempt", i+1).Msg("play command sent successfully")
			return
		}
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	c.Log().Warn().Str("Method", "Load").Err(playErr).Msg("play command failed after retries")
}

// Play resumes playback.
func (c *CastClient) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log().Debug().Str("Method", "Play").Msg("resuming playback")
	err := c.app.Unpause()
	if err != nil {
		c.Log().Error().Str("Method", "Play").Err(err).Msg("failed")
	}
	return err
}

// Pause pauses playback.
func (c *CastClient) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log().Debug().Str("Method", "Pause").Msg("pausing playback")
	err := c.app.Pause()
	if err != nil {
		c.Log().Error().Str("Method", "Pause").Err(err).Msg("failed")
	}
	return err
}

// Stop stops playback and closes the media session.
func (c *CastClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log().Debug().Str("Method", "Stop").Msg("stopping playback")
	err := c.app.Stop()
	if err != nil {
		c.Log().Error().Str("Method", "Stop").Err(err).Msg("failed")
	}
	return err
}

// Seek seeks to position from the start of the media.
func (c *CastClient) Seek(position time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	seconds := int(position.Seconds())
	c.Log().Debug().Str("Method", "Seek").Int("Seconds", seconds).Msg("seeking")
	err := c.app.SeekFromStart(seconds)
	if err != nil {
		c.Log().Error().Str("Method", "Seek").Err(err).Msg("failed")
	}
	return err
}

// SetVolume sets volume (0.0 to 1.0).
func (c *CastClient) SetVolume(level float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log().Debug().Str("Method", "SetVolume").Float32("Level", level).Msg("setting volume")
	err := c.app.SetVolume(level)
	if err != nil {
		c.Log().Error().Str("Method", "SetVolume").Err(err).Msg("failed")
	}
	return err
}

// SetMuted sets mute state.
func (c *CastClient) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log().Debug().Str("Method", "SetMuted").Bool("Muted", muted).Msg("setting mute")
	err := c.app.SetMuted(muted)
	if err != nil {
		c.Log().Error().Str("Method", "SetMuted").Err(err).Msg("failed")
	}
	return err
}

// GetStatus returns current playback status.
// No mutex needed - only reads from underlying library which has its own sync.
func (c *CastClient) GetStatus() (*CastStatus, error) {
	if err := c.app.Update(); err != nil {
		c.Log().Error().Str("Method", "GetStatus").Err(err).Msg("app.Update failed")
		return nil, err
	}
	_, media, vol := c.app.Status()
	status := &CastStatus{}
	if vol != nil {
		status.Volume = float32(vol.Level)
		status.Muted = vol.Muted
	}
	if media != nil {
		status.PlayerState = media.PlayerState
		status.CurrentTime = media.CurrentTime
		if media.Media.Duration > 0 {
			status.Duration = media.Media.Duration
		}
		status.ContentType = media.Media.ContentType
		status.MediaTitle = media.Media.Metadata.Title
	} else {
		status.PlayerState = PlayerStateIdle
	}
	return status, nil
}

// Close disconnects from the Chromecast device.
func (c *CastClient) Close(stopMedia bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log().Debug().Str("Method", "Close").Bool("StopMedia", stopMedia).Msg("closing connection")
	c.connected = false
	err := c.app.Close(stopMedia)
	if err != nil {
		c.Log().Error().Str("Method", "Close").Err(err).Msg("failed")
	}
	return err
}

// IsConnected returns whether client is connected.
func (c *CastClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Host returns the hostname of the connected Chromecast device.
func (c *CastClient) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

// Addr returns the "host:port" address of the device.
func (c *CastClient) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}
