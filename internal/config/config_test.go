package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"casty.app/casty/castprotocol"
)

func withTempPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "casty", "settings.json")
	orig := appPath
	appPath = func() (string, error) { return path, nil }
	t.Cleanup(func() { appPath = orig })
	return path
}

func TestGetAppConfigCreatesDefaults(t *testing.T) {
	path := withTempPath(t)

	conf, err := GetAppConfig()
	require.NoError(t, err)
	require.Equal(t, castprotocol.DefaultReceiverID, conf.ReceiverID)
	require.Equal(t, defaultDiscoveryTimeout, conf.DiscoveryTimeout)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSaveAndReload(t *testing.T) {
	withTempPath(t)

	conf, err := GetAppConfig()
	require.NoError(t, err)

	conf.ReceiverID = "ABCD1234"
	conf.DiscoveryTimeout = 5 * time.Second
	conf.LastDevice = "http://10.0.0.1:8009"
	conf.LogPath = "/tmp/casty.log"
	require.NoError(t, conf.SaveAppConfig())

	got, err := GetAppConfig()
	require.NoError(t, err)
	require.Equal(t, conf, got)
}

func TestDecodeIsLenient(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"duration string", `{"discovery_timeout": "3s"}`, 3 * time.Second},
		{"nanoseconds", `{"discovery_timeout": 4000000000}`, 4 * time.Second},
		{"milliseconds", `{"discovery_timeout": "1500ms"}`, 1500 * time.Millisecond},
		{"missing", `{}`, defaultDiscoveryTimeout},
		{"negative", `{"discovery_timeout": "-1s"}`, defaultDiscoveryTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := decode([]byte(tt.in))
			require.NoError(t, err)
			require.Equal(t, tt.want, conf.DiscoveryTimeout)
			require.Equal(t, castprotocol.DefaultReceiverID, conf.ReceiverID)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode([]byte("not json"))
	require.Error(t, err)

	_, err = decode([]byte(`{"discovery_timeout": "soon"}`))
	require.Error(t, err)
}
