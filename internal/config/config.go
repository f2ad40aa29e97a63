package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName names the config, state and log directories
const AppName = "scope-tray"

// ErrInvalid is returned for out of range settings
var ErrInvalid = errors.New("invalid config")

type Config struct {
	LogLevel        string         `json:"log_level" mapstructure:"log_level"`
	Backend         string         `json:"backend" mapstructure:"backend"` // "portaudio" or "miniaudio"
	WindowSize      int            `json:"window_size" mapstructure:"window_size"`
	FrameQueue      int            `json:"frame_queue" mapstructure:"frame_queue"`
	ErrorQueue      int            `json:"error_queue" mapstructure:"error_queue"`
	Attenuation     float32        `json:"attenuation" mapstructure:"attenuation"`
	RefreshInterval time.Duration  `json:"refresh_interval" mapstructure:"refresh_interval"`
	Capture         CaptureConfig  `json:"capture" mapstructure:"capture"`
	Playback        PlaybackConfig `json:"playback" mapstructure:"playback"`
	Hotkey          string         `json:"hotkey" mapstructure:"hotkey"`
	HotkeyDarwin    string         `json:"hotkey_darwin" mapstructure:"hotkey_darwin"`
	RecentFiles     []string       `json:"recent_files" mapstructure:"recent_files"`
	MaxRecent       int            `json:"max_recent" mapstructure:"max_recent"`

	path string
}

type CaptureConfig struct {
	DeviceID string `json:"device_id" mapstructure:"device_id"` // empty selects the default input
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
}

type PlaybackConfig struct {
	DeviceID string `json:"device_id" mapstructure:"device_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("backend", "portaudio")
	v.SetDefault("window_size", 480)
	v.SetDefault("frame_queue", 8)
	v.SetDefault("error_queue", 16)
	v.SetDefault("attenuation", 0.3)
	v.SetDefault("refresh_interval", 50*time.Millisecond)
	v.SetDefault("capture.device_id", "")
	v.SetDefault("capture.enabled", true)
	v.SetDefault("playback.device_id", "")
	v.SetDefault("hotkey", "Alt+Space")
	v.SetDefault("hotkey_darwin", "Alt+Space") // Option+Space
	v.SetDefault("recent_files", []string{})
	v.SetDefault("max_recent", 10)
}

// Load reads the config from the platform config dir or returns defaults
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads the JSON config at path. A missing file yields defaults.
// SCOPETRAY_* environment variables override both, e.g.
// SCOPETRAY_CAPTURE_DEVICE_ID.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("SCOPETRAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise surface as audio failures
func (c *Config) Validate() error {
	switch {
	case c.WindowSize < 1:
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalid, c.WindowSize)
	case c.FrameQueue < 1:
		return fmt.Errorf("%w: frame_queue must be positive, got %d", ErrInvalid, c.FrameQueue)
	case c.ErrorQueue < 1:
		return fmt.Errorf("%w: error_queue must be positive, got %d", ErrInvalid, c.ErrorQueue)
	case c.Attenuation <= 0 || c.Attenuation > 1:
		return fmt.Errorf("%w: attenuation must be in (0, 1], got %v", ErrInvalid, c.Attenuation)
	case c.RefreshInterval <= 0:
		return fmt.Errorf("%w: refresh_interval must be positive, got %v", ErrInvalid, c.RefreshInterval)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path is where Save writes
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// AddRecent moves path to the front of the recent files list
func (c *Config) AddRecent(path string) {
	c.RecentFiles = slices.DeleteFunc(c.RecentFiles, func(p string) bool { return p == path })
	c.RecentFiles = append([]string{path}, c.RecentFiles...)
	if c.MaxRecent > 0 && len(c.RecentFiles) > c.MaxRecent {
		c.RecentFiles = c.RecentFiles[:c.MaxRecent]
	}
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, AppName, "config.json")
}
