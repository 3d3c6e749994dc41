// Package casty manages Cast sessions for a sender screen: it connects to
// the selected media route, reports connection changes to the screen's
// controls and gives access to the media player.
package casty

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"casty.app/casty/castprotocol"
	"casty.app/casty/devices"
)

// maxStatusFailures consecutive failed status polls end a session.
const maxStatusFailures = 3

// ConnectionObserver is told when a cast session starts or ends.
type ConnectionObserver interface {
	OnConnected()
	OnDisconnected()
}

// ConnectionFuncs adapts two functions to a ConnectionObserver.
type ConnectionFuncs struct {
	Connected    func()
	Disconnected func()
}

// OnConnected calls Connected when set.
func (f ConnectionFuncs) OnConnected() {
	if f.Connected != nil {
		f.Connected()
	}
}

// OnDisconnected calls Disconnected when set.
func (f ConnectionFuncs) OnDisconnected() {
	if f.Disconnected != nil {
		f.Disconnected()
	}
}

// SessionUpdatedListener receives the current session, nil once it ends.
type SessionUpdatedListener interface {
	OnCastSessionUpdated(s *Session)
}

// Session is a connection to one Cast device.
type Session struct {
	device devices.Device
	client RemoteMediaClient
	cancel context.CancelFunc
}

// Device returns the device the session is connected to.
func (s *Session) Device() devices.Device { return s.device }

// Client returns the media client of the session.
func (s *Session) Client() RemoteMediaClient { return s.client }

// Casty is the entry point of the library. Create one per screen.
type Casty struct {
	mu              sync.Mutex
	ctx             context.Context
	opts            Options
	noop            bool
	session         *Session
	observer        ConnectionObserver
	sessionListener SessionUpdatedListener
	onMediaLoaded   func()
	routeSelector   RouteSelector
	miniController  bool
	player          *Player

	logger zerolog.Logger
}

// Create returns a Casty bound to ctx. When casting cannot work on this
// host a disabled instance is returned: its player ignores controls, it
// never connects and it lists no routes.
func Create(ctx context.Context, opts Options) *Casty {
	opts = opts.withDefaults()

	c := &Casty{
		ctx:    ctx,
		opts:   opts,
		logger: zerolog.Nop(),
	}
	if opts.LogOutput != nil {
		c.logger = zerolog.New(opts.LogOutput).With().Timestamp().Str("Component", "casty").Logger()
	}
	c.player = newPlayer(&c.logger, c.mediaLoaded)

	if !opts.Available() {
		c.logger.Warn().Msg("no multicast network interface found, casting disabled")
		c.noop = true
		c.player.noop = true
		return c
	}

	opts.Devices.StartDiscoveryLoop(ctx)
	return c
}

// Log returns the instance logger.
func (c *Casty) Log() *zerolog.Logger {
	return &c.logger
}

// Player gives access to the media player of the current session.
func (c *Casty) Player() *Player {
	return c.player
}

// IsConnected reports whether a cast session is active.
func (c *Casty) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// ConnectedRoute returns the device of the active session.
func (c *Casty) ConnectedRoute() (devices.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return devices.Device{}, false
	}
	return c.session.device, true
}

// Routes lists the devices currently known to the discovery loop.
func (c *Casty) Routes() []devices.Device {
	if c.noop {
		return nil
	}
	return c.opts.Devices.Devices()
}

// SetOnConnectChangeListener registers the observer of session starts and
// ends. It replaces any earlier observer.
func (c *Casty) SetOnConnectChangeListener(o ConnectionObserver) {
	if c.noop {
		return
	}
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

// SetOnCastSessionUpdatedListener registers the session listener.
func (c *Casty) SetOnCastSessionUpdatedListener(l SessionUpdatedListener) {
	if c.noop {
		return
	}
	c.mu.Lock()
	c.sessionListener = l
	c.mu.Unlock()
}

// SetOnMediaLoadedHandler sets the function run after a foreground load
// reached the receiver, typically to show expanded controls.
func (c *Casty) SetOnMediaLoadedHandler(fn func()) {
	c.mu.Lock()
	c.onMediaLoaded = fn
	c.mu.Unlock()
}

func (c *Casty) mediaLoaded() {
	c.mu.Lock()
	fn := c.onMediaLoaded
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetUpMediaRouteButton wires a route selection control to this instance.
func (c *Casty) SetUpMediaRouteButton(sel RouteSelector) {
	if c.noop || sel == nil {
		return
	}
	sel.Attach(c)
	c.mu.Lock()
	c.routeSelector = sel
	c.mu.Unlock()
}

// AddMediaRouteMenuItem adds a "Cast" item opening the route selector
// registered with SetUpMediaRouteButton.
func (c *Casty) AddMediaRouteMenuItem(menu Menu) {
	if c.noop || menu == nil {
		return
	}
	menu.Add(MenuItem{
		ID:    MediaRouteMenuItemID,
		Title: "Cast",
		Action: func() {
			if err := c.ShowRouteSelector(); err != nil {
				c.logger.Error().Str("Method", "AddMediaRouteMenuItem").Err(err).Msg("route selector failed")
			}
		},
	})
}

// ShowRouteSelector opens the registered route selector.
func (c *Casty) ShowRouteSelector() error {
	c.mu.Lock()
	sel := c.routeSelector
	c.mu.Unlock()
	if sel == nil {
		return fmt.Errorf("show route selector: no route selector set up")
	}
	return sel.Show()
}

// WithMiniController enables the mini controller on the screen.
func (c *Casty) WithMiniController() *Casty {
	c.mu.Lock()
	c.miniController = !c.noop
	c.mu.Unlock()
	return c
}

// MiniControllerEnabled reports whether WithMiniController was called.
func (c *Casty) MiniControllerEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.miniController
}

// SelectRoute connects to dev. Selecting the current route is a no-op.
// Selecting another route ends the current session first.
func (c *Casty) SelectRoute(dev devices.Device) error {
	return c.Connect(c.ctx, dev)
}

// DeselectRoute ends the active session and stops its media.
func (c *Casty) DeselectRoute() error {
	return c.Disconnect()
}

// Connect starts a session on dev.
func (c *Casty) Connect(ctx context.Context, dev devices.Device) error {
	if c.noop {
		return ErrCastUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	old := c.session
	c.mu.Unlock()
	if old != nil && sameRoute(old.device, dev) {
		return nil
	}

	c.logger.Debug().Str("Method", "Connect").Str("Device", dev.Name).Str("Addr", dev.Addr).Msg("starting session")
	client, err := c.opts.NewClient(dev.Addr, c.opts.ReceiverID)
	if err != nil {
		return fmt.Errorf("connect %s: %w", dev.Name, err)
	}
	if err := client.Connect(); err != nil {
		c.logger.Error().Str("Method", "Connect").Err(err).Msg("session start failed")
		return fmt.Errorf("connect %s: %w", dev.Name, err)
	}
	if err := ctx.Err(); err != nil {
		_ = client.Close(false)
		return err
	}

	monitorCtx, cancel := context.WithCancel(c.ctx)
	s := &Session{device: dev, client: client, cancel: cancel}

	c.mu.Lock()
	old = c.session
	c.session = s
	c.mu.Unlock()

	// Switching devices resumes on the new session without a disconnect
	// notification.
	if old != nil {
		old.cancel()
		_ = old.client.Close(true)
	}

	c.player.setClient(client)
	go c.monitor(monitorCtx, s)

	c.notifyConnected(s)
	return nil
}

// Disconnect ends the active session, stopping its media.
func (c *Casty) Disconnect() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	s.cancel()
	c.player.setClient(nil)
	err := s.client.Close(true)
	c.notifyDisconnected()
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Close ends the session without stopping the media on the receiver.
func (c *Casty) Close() error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	s.cancel()
	c.player.setClient(nil)
	return s.client.Close(false)
}

// sameRoute reports whether a and b address the same device, whatever
// form their addresses were given in.
func sameRoute(a, b devices.Device) bool {
	return castprotocol.CanonicalAddr(a.Addr) == castprotocol.CanonicalAddr(b.Addr)
}

func (c *Casty) monitor(ctx context.Context, s *Session) {
	ticker := time.NewTicker(c.opts.StatusInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !s.client.IsConnected() {
			c.sessionLost(s, "client disconnected")
			return
		}

		status, err := s.client.GetStatus()
		if err != nil {
			failures++
			if failures >= maxStatusFailures {
				c.sessionLost(s, err.Error())
				return
			}
			continue
		}
		failures = 0
		c.player.handleStatus(status)
	}
}

func (c *Casty) sessionLost(s *Session, reason string) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.mu.Unlock()

	c.logger.Warn().Str("Method", "monitor").Str("Device", s.device.Name).Str("Reason", reason).Msg("session lost")
	s.cancel()
	c.player.setClient(nil)
	_ = s.client.Close(false)
	c.notifyDisconnected()
}

func (c *Casty) notifyConnected(s *Session) {
	c.mu.Lock()
	o, l := c.observer, c.sessionListener
	c.mu.Unlock()

	if o != nil {
		o.OnConnected()
	}
	if l != nil {
		l.OnCastSessionUpdated(s)
	}
}

func (c *Casty) notifyDisconnected() {
	c.mu.Lock()
	o, l := c.observer, c.sessionListener
	c.mu.Unlock()

	if o != nil {
		o.OnDisconnected()
	}
	if l != nil {
		l.OnCastSessionUpdated(nil)
	}
}
