package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Backend != "portaudio" {
		t.Errorf("Backend = %q, want portaudio", cfg.Backend)
	}
	if cfg.WindowSize != 480 {
		t.Errorf("WindowSize = %d, want 480", cfg.WindowSize)
	}
	if cfg.Attenuation != 0.3 {
		t.Errorf("Attenuation = %v, want 0.3", cfg.Attenuation)
	}
	if cfg.RefreshInterval != 50*time.Millisecond {
		t.Errorf("RefreshInterval = %v, want 50ms", cfg.RefreshInterval)
	}
	if !cfg.Capture.Enabled {
		t.Error("Capture.Enabled = false, want true")
	}
	if cfg.Capture.DeviceID != "" || cfg.Playback.DeviceID != "" {
		t.Errorf("device ids = %q/%q, want defaults", cfg.Capture.DeviceID, cfg.Playback.DeviceID)
	}
	if cfg.Hotkey != "Alt+Space" {
		t.Errorf("Hotkey = %q, want Alt+Space", cfg.Hotkey)
	}
	if cfg.MaxRecent != 10 {
		t.Errorf("MaxRecent = %d, want 10", cfg.MaxRecent)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "backend": "miniaudio",
  "window_size": 1024,
  "refresh_interval": "20ms",
  "capture": {"device_id": "USB Mic", "enabled": false},
  "recent_files": ["/music/a.mp3"]
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Backend != "miniaudio" {
		t.Errorf("Backend = %q, want miniaudio", cfg.Backend)
	}
	if cfg.WindowSize != 1024 {
		t.Errorf("WindowSize = %d, want 1024", cfg.WindowSize)
	}
	if cfg.RefreshInterval != 20*time.Millisecond {
		t.Errorf("RefreshInterval = %v, want 20ms", cfg.RefreshInterval)
	}
	if cfg.Capture.DeviceID != "USB Mic" || cfg.Capture.Enabled {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
	if len(cfg.RecentFiles) != 1 || cfg.RecentFiles[0] != "/music/a.mp3" {
		t.Errorf("RecentFiles = %v", cfg.RecentFiles)
	}
	// untouched keys keep their defaults
	if cfg.FrameQueue != 8 {
		t.Errorf("FrameQueue = %d, want 8", cfg.FrameQueue)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCOPETRAY_BACKEND", "miniaudio")
	t.Setenv("SCOPETRAY_WINDOW_SIZE", "256")
	t.Setenv("SCOPETRAY_CAPTURE_DEVICE_ID", "3")
	t.Setenv("SCOPETRAY_LOG_LEVEL", "debug")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Backend != "miniaudio" {
		t.Errorf("Backend = %q, want miniaudio", cfg.Backend)
	}
	if cfg.WindowSize != 256 {
		t.Errorf("WindowSize = %d, want 256", cfg.WindowSize)
	}
	if cfg.Capture.DeviceID != "3" {
		t.Errorf("Capture.DeviceID = %q, want 3", cfg.Capture.DeviceID)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero window", `{"window_size": 0}`},
		{"negative queue", `{"frame_queue": -1}`},
		{"loud attenuation", `{"attenuation": 1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); !errors.Is(err, ErrInvalid) {
				t.Errorf("LoadFrom() error = %v, want ErrInvalid", err)
			}
		})
	}

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() on malformed JSON error = nil")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	cfg.AddRecent("/music/a.flac")
	cfg.Playback.DeviceID = "Speakers"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	again, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() after Save error = %v", err)
	}
	if len(again.RecentFiles) != 1 || again.RecentFiles[0] != "/music/a.flac" {
		t.Errorf("RecentFiles = %v", again.RecentFiles)
	}
	if again.Playback.DeviceID != "Speakers" {
		t.Errorf("Playback.DeviceID = %q", again.Playback.DeviceID)
	}
	if again.RefreshInterval != cfg.RefreshInterval {
		t.Errorf("RefreshInterval = %v, want %v", again.RefreshInterval, cfg.RefreshInterval)
	}
}

func TestAddRecent(t *testing.T) {
	cfg := &Config{MaxRecent: 3}
	for _, p := range []string{"a", "b", "c", "b", "d"} {
		cfg.AddRecent(p)
	}
	want := []string{"d", "b", "c"}
	if len(cfg.RecentFiles) != len(want) {
		t.Fatalf("RecentFiles = %v, want %v", cfg.RecentFiles, want)
	}
	for i := range want {
		if cfg.RecentFiles[i] != want[i] {
			t.Fatalf("RecentFiles = %v, want %v", cfg.RecentFiles, want)
		}
	}
}
