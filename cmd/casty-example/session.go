package main

import (
	"github.com/rs/zerolog"

	"casty.app/casty/casty"
	"casty.app/casty/internal/config"
)

// lastDeviceSaver remembers the device of each new session so the next
// start reconnects to it.
type lastDeviceSaver struct {
	conf *config.Config
	log  *zerolog.Logger
	save func(*config.Config) error
}

func (l *lastDeviceSaver) OnCastSessionUpdated(s *casty.Session) {
	if s == nil {
		return
	}

	l.remember(s.Device().Addr)
}

func (l *lastDeviceSaver) remember(addr string) {
	if addr == "" || addr == l.conf.LastDevice {
		return
	}
	l.conf.LastDevice = addr

	save := l.save
	if save == nil {
		save = (*config.Config).SaveAppConfig
	}
	if err := save(l.conf); err != nil {
		l.log.Error().Str("Method", "remember").Err(err).Msg("failed to save last device")
	}
}
