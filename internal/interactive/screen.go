// Package interactive is the terminal screen of the example app: a play
// control, a media route menu item and a mini controller.
package interactive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/skratchdot/open-golang/open"
	"golang.org/x/time/rate"

	"casty.app/casty/castprotocol"
	"casty.app/casty/casty"
	"casty.app/casty/devices"
	"casty.app/casty/mediadata"
)

const (
	seekStep    = 10 * time.Second
	volumeStep  = float32(0.05)
	pollPeriod  = time.Second
	actionBurst = 1
)

// Controller is the media side of the screen. *casty.Player implements it.
type Controller interface {
	LoadMediaAndPlay(md mediadata.MediaData) error
	TogglePlayPause() error
	Seek(position time.Duration) error
	SetVolume(level float32) error
	SetMuted(muted bool) error
	Status() (*castprotocol.CastStatus, error)
}

// Session is the connection side of the screen. *casty.Casty implements it.
type Session interface {
	ConnectedRoute() (devices.Device, bool)
	DeselectRoute() error
	MiniControllerEnabled() bool
}

// Screen draws the example app on a tcell screen.
type Screen struct {
	Current     tcell.Screen
	player      Controller
	session     Session
	media       mediadata.MediaData
	exitCTXfunc context.CancelFunc

	loadLimiter *rate.Limiter
	openLimiter *rate.Limiter
	openURL     func(string) error

	mu          sync.RWMutex
	menu        []casty.MenuItem
	playEnabled bool
	expanded    bool
	status      *castprotocol.CastStatus
	lastAction  string
	ready       bool
	suspended   bool
}

var (
	_ casty.Menu               = (*Screen)(nil)
	_ casty.ConnectionObserver = (*Screen)(nil)
)

// InitScreen creates the screen for media. ctxCancel is called on exit.
func InitScreen(player Controller, session Session, media mediadata.MediaData, ctxCancel context.CancelFunc) (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("interactive screen: %w", err)
	}

	return newScreen(s, player, session, media, ctxCancel), nil
}

func newScreen(s tcell.Screen, player Controller, session Session, media mediadata.MediaData, ctxCancel context.CancelFunc) *Screen {
	return &Screen{
		Current:     s,
		player:      player,
		session:     session,
		media:       media,
		exitCTXfunc: ctxCancel,
		loadLimiter: rate.NewLimiter(rate.Every(2*time.Second), actionBurst),
		openLimiter: rate.NewLimiter(rate.Every(5*time.Second), actionBurst),
		openURL:     open.Run,
		lastAction:  "Select a Cast device to enable playback.",
	}
}

// Add implements casty.Menu.
func (p *Screen) Add(item casty.MenuItem) {
	p.mu.Lock()
	p.menu = append(p.menu, item)
	p.mu.Unlock()
	p.draw()
}

// OnConnected enables the play control.
func (p *Screen) OnConnected() {
	p.mu.Lock()
	p.playEnabled = true
	p.mu.Unlock()
	p.EmitMsg("Connected. Press p to play.")
}

// OnDisconnected disables the play control and hides the media controls.
func (p *Screen) OnDisconnected() {
	p.mu.Lock()
	p.playEnabled = false
	p.expanded = false
	p.status = nil
	p.mu.Unlock()
	p.EmitMsg("Disconnected.")
}

// ShowExpandedControls switches to the full media controls. It is the
// media loaded handler of the app.
func (p *Screen) ShowExpandedControls() {
	p.mu.Lock()
	p.expanded = true
	p.mu.Unlock()
	p.EmitMsg("Media loaded.")
}

// EmitMsg sets the action line and redraws.
func (p *Screen) EmitMsg(inputtext string) {
	p.updateLastAction(inputtext)
	p.draw()
}

func (p *Screen) emitStr(x, y int, style tcell.Style, str string) {
	s := p.Current
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}

func (p *Screen) emitCentered(y int, style tcell.Style, str string) {
	w, _ := p.Current.Size()
	p.emitStr(w/2-runewidth.StringWidth(str)/2, y, style, str)
}

func (p *Screen) draw() {
	s := p.Current
	if s == nil {
		return
	}

	p.mu.RLock()
	if !p.ready || p.suspended {
		p.mu.RUnlock()
		return
	}
	menu := append([]casty.MenuItem(nil), p.menu...)
	playEnabled, expanded := p.playEnabled, p.expanded
	status, lastAction := p.status, p.lastAction
	p.mu.RUnlock()

	w, h := s.Size()
	boldStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Bold(true)
	dimStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorGray)

	s.Clear()

	p.emitStr(1, 1, tcell.StyleDefault, "Press ESC to stop and exit.")
	p.emitStr(w-runewidth.StringWidth(menuLine(menu))-1, 1, boldStyle, menuLine(menu))

	p.emitCentered(h/2-4, boldStyle, p.media.Title())
	p.emitCentered(h/2-3, tcell.StyleDefault, p.media.Subtitle())
	p.emitCentered(h/2-1, tcell.StyleDefault, lastAction)

	playStyle := boldStyle
	if !playEnabled {
		playStyle = dimStyle
	}
	p.emitCentered(h/2+1, playStyle, playButtonLabel(playEnabled))

	y := h/2 + 3
	if expanded {
		for _, line := range expandedHelp {
			p.emitCentered(y, tcell.StyleDefault, line)
			y++
		}
		if status != nil && status.Muted {
			p.emitCentered(y+1, boldStyle.Blink(true), "MUTED")
		}
	}

	if p.session != nil && p.session.MiniControllerEnabled() {
		dev, connected := p.session.ConnectedRoute()
		if connected {
			p.emitStr(1, h-2, boldStyle, miniControllerLine(dev.Name, p.media.Title(), status))
		}
	}

	s.Show()
}

var expandedHelp = []string{
	`"space" (Play/Pause)`,
	`"←" "→" (Seek -/+10s)`,
	`"Page Up" "Page Down" (Volume Up/Down)`,
	`"m" (Mute/Unmute)`,
	`"o" (Open source)`,
}

func playButtonLabel(enabled bool) string {
	if enabled {
		return `[ "p" Play ]`
	}
	return `[ Play unavailable ]`
}

func menuLine(items []casty.MenuItem) string {
	line := ""
	for _, it := range items {
		if it.ID == casty.MediaRouteMenuItemID {
			line += `"r" ` + it.Title + "  "
			continue
		}
		line += it.Title + "  "
	}
	return line
}

func miniControllerLine(device, title string, status *castprotocol.CastStatus) string {
	if status == nil {
		return fmt.Sprintf("▶ %s | %s", device, title)
	}

	state := status.PlayerState
	if state == "" {
		state = castprotocol.PlayerStateIdle
	}
	line := fmt.Sprintf("▶ %s | %s | %s %s", device, title, state, formatClock(status.CurrentTime))
	if status.Duration > 0 {
		line += " / " + formatClock(status.Duration)
	}
	return line
}

func formatClock(seconds float32) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func seekTarget(status *castprotocol.CastStatus, delta time.Duration) time.Duration {
	cur := time.Duration(float64(status.CurrentTime) * float64(time.Second))
	target := cur + delta
	if target < 0 {
		return 0
	}
	if status.Duration > 0 {
		end := time.Duration(float64(status.Duration) * float64(time.Second))
		if target > end {
			return end
		}
	}
	return target
}

// InterInit runs the screen until ctx is done or the user exits.
func (p *Screen) InterInit(ctx context.Context, c chan error) {
	s := p.Current
	if err := s.Init(); err != nil {
		c <- fmt.Errorf("interactive screen: %w", err)
		return
	}

	defStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	s.SetStyle(defStyle)

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	p.draw()

	go p.pollStatus(ctx)

	for {
		ev := s.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			s.Sync()
			p.draw()
		case *tcell.EventKey:
			p.HandleKeyEvent(ev)
		}
	}
}

func (p *Screen) pollStatus(ctx context.Context) {
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, connected := p.session.ConnectedRoute(); !connected {
			continue
		}
		status, err := p.player.Status()
		if err != nil {
			continue
		}
		p.mu.Lock()
		p.status = status
		p.mu.Unlock()
		p.draw()
	}
}

// HandleKeyEvent handles key press events.
func (p *Screen) HandleKeyEvent(ev *tcell.EventKey) {
	p.handleKey(ev.Key(), ev.Rune())
}

func (p *Screen) handleKey(key tcell.Key, r rune) {
	switch key {
	case tcell.KeyEscape:
		p.exit()
		return
	case tcell.KeyEnter:
		p.play()
		return
	case tcell.KeyLeft:
		p.seek(-seekStep)
		return
	case tcell.KeyRight:
		p.seek(seekStep)
		return
	case tcell.KeyPgUp:
		p.volume(volumeStep)
		return
	case tcell.KeyPgDn:
		p.volume(-volumeStep)
		return
	}

	switch r {
	case 'p':
		p.play()
	case 'r':
		p.openRouteMenu()
	case ' ':
		if err := p.player.TogglePlayPause(); err != nil {
			p.EmitMsg("Play/Pause failed: " + err.Error())
		}
	case 'm':
		status, err := p.player.Status()
		if err != nil {
			return
		}
		if err := p.player.SetMuted(!status.Muted); err != nil {
			p.EmitMsg("Mute failed: " + err.Error())
			return
		}
		p.mu.Lock()
		status.Muted = !status.Muted
		p.status = status
		p.mu.Unlock()
		p.draw()
	case 'o':
		p.openSource()
	}
}

func (p *Screen) play() {
	p.mu.RLock()
	enabled := p.playEnabled
	p.mu.RUnlock()
	if !enabled {
		p.EmitMsg("Select a Cast device first.")
		return
	}
	if !p.loadLimiter.Allow() {
		p.EmitMsg("Please wait before loading again.")
		return
	}

	p.EmitMsg("Loading...")
	go func() {
		if err := p.player.LoadMediaAndPlay(p.media); err != nil {
			p.EmitMsg("Load failed: " + err.Error())
		}
	}()
}

func (p *Screen) seek(delta time.Duration) {
	status, err := p.player.Status()
	if err != nil {
		return
	}
	if err := p.player.Seek(seekTarget(status, delta)); err != nil {
		p.EmitMsg("Seek failed: " + err.Error())
	}
}

func (p *Screen) volume(delta float32) {
	status, err := p.player.Status()
	if err != nil {
		return
	}
	if err := p.player.SetVolume(status.Volume + delta); err != nil {
		p.EmitMsg("Volume failed: " + err.Error())
	}
}

// openRouteMenu runs the media route menu item with the screen suspended
// so the route chooser owns the terminal.
func (p *Screen) openRouteMenu() {
	p.mu.RLock()
	var action func()
	for _, it := range p.menu {
		if it.ID == casty.MediaRouteMenuItemID {
			action = it.Action
		}
	}
	p.mu.RUnlock()
	if action == nil {
		p.EmitMsg("Casting is not available.")
		return
	}

	p.setSuspended(true)
	if err := p.Current.Suspend(); err != nil {
		p.setSuspended(false)
		p.EmitMsg("Route chooser failed: " + err.Error())
		return
	}
	action()
	err := p.Current.Resume()
	p.setSuspended(false)
	if err != nil {
		p.EmitMsg("Screen resume failed: " + err.Error())
		return
	}
	p.draw()
}

func (p *Screen) openSource() {
	if !p.openLimiter.Allow() {
		return
	}
	if err := p.openURL(p.media.SourceURL()); err != nil {
		p.EmitMsg("Open failed: " + err.Error())
		return
	}
	p.EmitMsg("Opened media source.")
}

func (p *Screen) exit() {
	if p.session != nil {
		_ = p.session.DeselectRoute()
	}
	p.Fini()
}

// Fini closes the screen and exits.
func (p *Screen) Fini() {
	p.mu.Lock()
	p.ready = false
	p.mu.Unlock()
	p.Current.Fini()
	if p.exitCTXfunc != nil {
		p.exitCTXfunc()
	}
}

func (p *Screen) setSuspended(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.suspended = v
}

func (p *Screen) updateLastAction(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAction = s
}
