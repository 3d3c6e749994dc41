package casty

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"casty.app/casty/castprotocol"
	"casty.app/casty/mediadata"
)

var (
	// ErrNotConnected is returned by player calls made without a session.
	ErrNotConnected = errors.New("casty: no active cast session")
	// ErrCastUnavailable is returned by loads on a disabled instance.
	ErrCastUnavailable = errors.New("casty: casting is not available on this host")
)

// Player controls media on the device of the current session.
type Player struct {
	mu       sync.Mutex
	client   RemoteMediaClient
	noop     bool
	awaiting bool
	onLoaded func()
	logger   *zerolog.Logger
}

func newPlayer(logger *zerolog.Logger, onLoaded func()) *Player {
	return &Player{logger: logger, onLoaded: onLoaded}
}

func (p *Player) setClient(c RemoteMediaClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = c
	p.awaiting = false
}

func (p *Player) remote() (RemoteMediaClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noop {
		return nil, ErrCastUnavailable
	}
	if p.client == nil {
		return nil, ErrNotConnected
	}
	return p.client, nil
}

// LoadMediaAndPlay loads md on the receiver. The media loaded callback
// fires once the receiver reports its first status for it.
func (p *Player) LoadMediaAndPlay(md mediadata.MediaData) error {
	return p.load(castprotocol.MediaInfoFromData(md), md.AutoPlay(), md.Position(), false)
}

// LoadMediaAndPlayInBackground loads md without the media loaded
// callback.
func (p *Player) LoadMediaAndPlayInBackground(md mediadata.MediaData) error {
	return p.load(castprotocol.MediaInfoFromData(md), md.AutoPlay(), md.Position(), true)
}

// LoadMediaInfoAndPlay loads an already converted MediaInfo.
func (p *Player) LoadMediaInfoAndPlay(info castprotocol.MediaInfo, autoPlay bool, position time.Duration) error {
	return p.load(info, autoPlay, position, false)
}

func (p *Player) load(info castprotocol.MediaInfo, autoPlay bool, position time.Duration, background bool) error {
	c, err := p.remote()
	if err != nil {
		return err
	}

	p.logger.Debug().Str("Method", "LoadMediaAndPlay").Str("URL", info.ContentId).Bool("Background", background).Msg("loading")
	if err := c.Load(info, autoPlay, position); err != nil {
		return fmt.Errorf("load media: %w", err)
	}

	// Armed only once the LOAD went through, statuses seen while the
	// receiver launches belong to no media.
	if !background {
		p.mu.Lock()
		if p.client == c {
			p.awaiting = true
		}
		p.mu.Unlock()
	}

	return nil
}

// handleStatus is fed every status poll of the session.
func (p *Player) handleStatus(status *castprotocol.CastStatus) {
	if !hasMedia(status) {
		return
	}

	p.mu.Lock()
	fire := p.awaiting
	p.awaiting = false
	cb := p.onLoaded
	p.mu.Unlock()

	if fire && cb != nil {
		cb()
	}
}

// hasMedia reports whether status describes loaded media rather than an
// idle receiver.
func hasMedia(status *castprotocol.CastStatus) bool {
	if status == nil {
		return false
	}
	if status.ContentType != "" {
		return true
	}
	return status.PlayerState != "" && status.PlayerState != castprotocol.PlayerStateIdle
}

func (p *Player) state() string {
	c, err := p.remote()
	if err != nil {
		return ""
	}

	status, err := c.GetStatus()
	if err != nil {
		return ""
	}
	return status.PlayerState
}

// Status returns a fresh playback status snapshot.
func (p *Player) Status() (*castprotocol.CastStatus, error) {
	c, err := p.remote()
	if err != nil {
		return nil, err
	}
	return c.GetStatus()
}

// IsPlaying reports whether the receiver is playing.
func (p *Player) IsPlaying() bool { return p.state() == castprotocol.PlayerStatePlaying }

// IsPaused reports whether the receiver is paused.
func (p *Player) IsPaused() bool { return p.state() == castprotocol.PlayerStatePaused }

// IsBuffering reports whether the receiver is buffering.
func (p *Player) IsBuffering() bool { return p.state() == castprotocol.PlayerStateBuffering }

// Play resumes the current media if it is paused.
func (p *Player) Play() error {
	if !p.IsPaused() {
		return nil
	}
	c, err := p.remote()
	if err != nil {
		return err
	}
	return c.Play()
}

// Pause pauses the current media if it is playing.
func (p *Player) Pause() error {
	if !p.IsPlaying() {
		return nil
	}
	c, err := p.remote()
	if err != nil {
		return err
	}
	return c.Pause()
}

// TogglePlayPause pauses playing media and resumes paused media. Other
// states are left alone.
func (p *Player) TogglePlayPause() error {
	c, err := p.remote()
	if err != nil {
		if errors.Is(err, ErrCastUnavailable) {
			return nil
		}
		return err
	}

	status, err := c.GetStatus()
	if err != nil {
		return err
	}

	switch status.PlayerState {
	case castprotocol.PlayerStatePlaying:
		return c.Pause()
	case castprotocol.PlayerStatePaused:
		return c.Play()
	}
	return nil
}

// Seek moves playback to position from the start.
func (p *Player) Seek(position time.Duration) error {
	c, err := p.remote()
	if err != nil {
		return p.noopErr(err)
	}
	if position < 0 {
		position = 0
	}
	return c.Seek(position)
}

// Stop ends the media session on the receiver.
func (p *Player) Stop() error {
	c, err := p.remote()
	if err != nil {
		return p.noopErr(err)
	}
	return c.Stop()
}

// SetVolume sets the device volume, clamped to [0, 1].
func (p *Player) SetVolume(level float32) error {
	c, err := p.remote()
	if err != nil {
		return p.noopErr(err)
	}
	switch {
	case level > 1:
		level = 1
	case level < 0:
		level = 0
	}
	return c.SetVolume(level)
}

// SetMuted mutes or unmutes the device.
func (p *Player) SetMuted(muted bool) error {
	c, err := p.remote()
	if err != nil {
		return p.noopErr(err)
	}
	return c.SetMuted(muted)
}

// noopErr hides ErrCastUnavailable from the plain controls, a disabled
// player ignores them.
func (p *Player) noopErr(err error) error {
	if errors.Is(err, ErrCastUnavailable) {
		return nil
	}
	return err
}
