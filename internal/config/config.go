package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"casty.app/casty/castprotocol"
)

const defaultDiscoveryTimeout = 2 * time.Second

// Config holds the persisted settings of the example app.
type Config struct {
	ReceiverID       string        `json:"receiver_id"`
	DiscoveryTimeout time.Duration `json:"discovery_timeout"`
	LastDevice       string        `json:"last_device"`
	LogPath          string        `json:"log_path"`
}

func defaultConfig() *Config {
	return &Config{
		ReceiverID:       castprotocol.DefaultReceiverID,
		DiscoveryTimeout: defaultDiscoveryTimeout,
	}
}

// GetAppConfig reads the settings file, creating it with defaults when it
// does not exist yet.
func GetAppConfig() (*Config, error) {
	path, err := appPath()
	if err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to access config path due to error %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, fmt.Errorf("GetAppConfig: failed to create default path due to error %w", err)
			}

			conf := defaultConfig()
			if err := conf.SaveAppConfig(); err != nil {
				return nil, fmt.Errorf("GetAppConfig: failed to create default config due to error %w", err)
			}

			return conf, nil
		}

		return nil, fmt.Errorf("GetAppConfig: failed to open config due to error %w", err)
	}

	conf, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to decode config due to error %w", err)
	}

	return conf, nil
}

// decode accepts hand edited files: numbers may be quoted and the
// discovery timeout may be a duration string or nanoseconds.
func decode(b []byte) (*Config, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	conf := defaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           conf,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(raw); err != nil {
		return nil, err
	}

	if conf.ReceiverID == "" {
		conf.ReceiverID = castprotocol.DefaultReceiverID
	}
	if conf.DiscoveryTimeout <= 0 {
		conf.DiscoveryTimeout = defaultDiscoveryTimeout
	}

	return conf, nil
}

// SaveAppConfig writes the settings file.
func (s *Config) SaveAppConfig() error {
	b, err := json.MarshalIndent(map[string]any{
		"receiver_id":       s.ReceiverID,
		"discovery_timeout": s.DiscoveryTimeout.String(),
		"last_device":       s.LastDevice,
		"log_path":          s.LogPath,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("SaveAppConfig: failed to marshal json due to error %w", err)
	}

	path, err := appPath()
	if err != nil {
		return fmt.Errorf("SaveAppConfig: failed to access config path due to error %w", err)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("SaveAppConfig: failed save config due to error %w", err)
	}

	return nil
}

var appPath = func() (string, error) {
	oscfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("appPath: failed to get config file due to error %w", err)
	}

	return filepath.Join(oscfg, "casty", "settings.json"), nil
}
