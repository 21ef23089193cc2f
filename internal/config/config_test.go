package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, 67*time.Millisecond, cfg.Transition.WatchInterval)
	require.Equal(t, 200*time.Millisecond, cfg.MIDI.Debounce)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setlistd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
transport:
  mode: http
daw:
  url: http://reaper.local:8080
  timeout: 500ms
transition:
  trigger_before: 0.8
midi:
  enabled: true
  devices: [fcb]
  mappings:
    "60": next
    "61": previous
`), 0o600))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("SETLISTD_SERVER_PORT", "9100")
	t.Setenv("SETLISTD_AUTH_TOKEN", "secret")
	t.Setenv("SETLISTD_POLLING_REGION_INTERVAL", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "secret", cfg.Auth.Token)
	require.Equal(t, "http://reaper.local:8080", cfg.DAW.URL)
	require.Equal(t, 500*time.Millisecond, cfg.DAW.Timeout)
	require.Equal(t, 0.8, cfg.Transition.TriggerBefore)
	require.Equal(t, 0.1, cfg.Transition.TriggerAfter, "untouched defaults survive")
	require.Equal(t, 10*time.Second, cfg.Polling.RegionInterval)
	require.True(t, cfg.MIDI.Enabled)
	require.Equal(t, []string{"fcb"}, cfg.MIDI.Devices)
	require.Equal(t, map[string]string{"60": "next", "61": "previous"}, cfg.MIDI.Mappings)
}

func TestLoad_EnvMappings(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("SETLISTD_MIDI_MAPPINGS", "60=next,62=toggle_play")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"60": "next", "62": "toggle_play"}, cfg.MIDI.Mappings)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("bad port", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "")
		t.Setenv("SETLISTD_SERVER_PORT", "abc")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("bad mode", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "")
		t.Setenv("SETLISTD_TRANSPORT_MODE", "carrier-pigeon")
		_, err := Load()
		require.Error(t, err)
	})
}
