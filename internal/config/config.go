package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the optional YAML config file.
const ConfigPathEnv = "SETLISTD_CONFIG_PATH"

// Transport modes.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envPrefix:"SETLISTD_SERVER_"`
	Transport  TransportConfig  `yaml:"transport" envPrefix:"SETLISTD_TRANSPORT_"`
	Auth       AuthConfig       `yaml:"auth" envPrefix:"SETLISTD_AUTH_"`
	DB         DBConfig         `yaml:"db" envPrefix:"SETLISTD_DB_"`
	Log        LogConfig        `yaml:"log" envPrefix:"SETLISTD_LOG_"`
	DAW        DAWConfig        `yaml:"daw" envPrefix:"SETLISTD_DAW_"`
	Polling    PollingConfig    `yaml:"polling" envPrefix:"SETLISTD_POLLING_"`
	Transition TransitionConfig `yaml:"transition" envPrefix:"SETLISTD_TRANSITION_"`
	CountIn    CountInConfig    `yaml:"countin" envPrefix:"SETLISTD_COUNTIN_"`
	MIDI       MIDIConfig       `yaml:"midi" envPrefix:"SETLISTD_MIDI_"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envPrefix:"SETLISTD_TELEMETRY_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// TransportConfig selects how the operator API is served: "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode" env:"MODE"`
}

// AuthConfig guards the HTTP transport. An empty token disables auth.
type AuthConfig struct {
	Token string `yaml:"token" env:"TOKEN"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// File, when set, receives logs in addition to stderr.
	File string `yaml:"file" env:"FILE"`
	// MaxBytes caps the log file; it is truncated when exceeded.
	MaxBytes int64 `yaml:"max_bytes" env:"MAX_BYTES"`
}

// DAWConfig points at the REAPER web interface.
type DAWConfig struct {
	URL     string        `yaml:"url" env:"URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type PollingConfig struct {
	// TransportInterval is the low-frequency reconciliation period.
	TransportInterval time.Duration `yaml:"transport_interval" env:"TRANSPORT_INTERVAL"`
	// RegionInterval is the region, marker and project refresh period.
	RegionInterval   time.Duration `yaml:"region_interval" env:"REGION_INTERVAL"`
	FailureThreshold int           `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
}

type TransitionConfig struct {
	WatchInterval time.Duration `yaml:"watch_interval" env:"WATCH_INTERVAL"`
	TriggerBefore float64       `yaml:"trigger_before" env:"TRIGGER_BEFORE"`
	TriggerAfter  float64       `yaml:"trigger_after" env:"TRIGGER_AFTER"`
	Cooldown      time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	SettleDelay   time.Duration `yaml:"settle_delay" env:"SETTLE_DELAY"`
	RestartDelay  time.Duration `yaml:"restart_delay" env:"RESTART_DELAY"`
}

// CountInConfig names the REAPER command that plays with a count-in. Empty
// uses plain play from the pre-roll position.
type CountInConfig struct {
	Command string `yaml:"command" env:"COMMAND"`
}

type MIDIConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Devices are case-insensitive substrings of input names; empty opens all.
	Devices  []string          `yaml:"devices" env:"DEVICES" envSeparator:","`
	Debounce time.Duration     `yaml:"debounce" env:"DEBOUNCE"`
	// Mappings maps a note number to an action such as "next" or
	// "select_setlist:<id>".
	Mappings map[string]string `yaml:"mappings" env:"MAPPINGS" envSeparator:"," envKeyValSeparator:"="`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		DB: DBConfig{
			Path: "setlistd.db",
		},
		Log: LogConfig{
			Level:    "info",
			MaxBytes: 10 * 1024 * 1024,
		},
		DAW: DAWConfig{
			URL:     "http://127.0.0.1:8080",
			Timeout: 2 * time.Second,
		},
		Polling: PollingConfig{
			TransportInterval: time.Second,
			RegionInterval:    5 * time.Second,
			FailureThreshold:  3,
		},
		Transition: TransitionConfig{
			WatchInterval: 67 * time.Millisecond,
			TriggerBefore: 0.6,
			TriggerAfter:  0.1,
			Cooldown:      time.Second,
			SettleDelay:   150 * time.Millisecond,
			RestartDelay:  100 * time.Millisecond,
		},
		MIDI: MIDIConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Transport.Mode = strings.ToLower(cfg.Transport.Mode)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case ModeStdio, ModeHTTP:
	default:
		return fmt.Errorf("invalid transport mode %q (want stdio or http)", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.DAW.URL == "" {
		return fmt.Errorf("daw url is required")
	}
	if c.Polling.TransportInterval <= 0 {
		return fmt.Errorf("polling transport_interval must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
