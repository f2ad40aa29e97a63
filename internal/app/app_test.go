package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/petems/scope-tray/internal/audio"
	"github.com/petems/scope-tray/internal/audio/audiotest"
	"github.com/petems/scope-tray/internal/config"
	"github.com/petems/scope-tray/internal/decode"
	"github.com/rs/zerolog"
)

// Mock implementations for testing
type mockStatus struct {
	mu      sync.Mutex
	views   []audio.View
	playing []string
	idle    int
	errs    []error
}

func (m *mockStatus) Render(v audio.View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, v)
}

func (m *mockStatus) SetPlaying(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = append(m.playing, path)
}

func (m *mockStatus) SetIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idle++
}

func (m *mockStatus) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

type mockTrack struct {
	left int
}

func (m *mockTrack) Next() (float32, float32, bool) {
	if m.left == 0 {
		return 0, 0, false
	}
	m.left--
	return 0.5, -0.5, true
}

func (m *mockTrack) SampleRate() int { return 48000 }
func (m *mockTrack) Channels() int   { return 2 }
func (m *mockTrack) Err() error      { return nil }
func (m *mockTrack) Close() error    { return nil }

func openMock(path string) (decode.Track, error) {
	if filepath.Ext(path) == ".bad" {
		return nil, &decode.Error{Kind: decode.CorruptStream, Path: path, Err: errors.New("bad header")}
	}
	return &mockTrack{left: 1000}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	cfg.WindowSize = 8
	cfg.RefreshInterval = time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, host *audiotest.Host, clip string) (*App, *mockStatus) {
	t.Helper()
	status := &mockStatus{}
	a, err := New(Config{
		Host:          host,
		Config:        testConfig(t),
		Logger:        zerolog.Nop(),
		StatusUpdater: status,
		Open:          openMock,
		Clipboard:     func() (string, error) { return clip, nil },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, status
}

func TestNewFailsWithoutDevices(t *testing.T) {
	_, err := New(Config{
		Host:   audiotest.NewEmptyHost(),
		Config: testConfig(t),
		Logger: zerolog.Nop(),
	})
	if !errors.Is(err, audio.ErrNoDevice) {
		t.Fatalf("New() error = %v, want ErrNoDevice", err)
	}
}

func TestStartCapturesFromDefaultInput(t *testing.T) {
	host := audiotest.NewHost()
	a, _ := newTestApp(t, host, "")

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	dev, ok := a.CaptureDevice()
	if !ok || dev.Name != "Fake Microphone" {
		t.Errorf("CaptureDevice() = %v, %v", dev, ok)
	}
	if host.Live() != 1 {
		t.Errorf("live streams = %d, want 1", host.Live())
	}
}

func TestCaptureFailureKeepsPlayback(t *testing.T) {
	host := audiotest.NewHost()
	a, status := newTestApp(t, host, "")

	host.OpenErr = errors.New("busy")
	if err := a.Start(); !errors.Is(err, audio.ErrStreamBuild) {
		t.Fatalf("Start() error = %v, want ErrStreamBuild", err)
	}
	if len(status.errs) != 1 {
		t.Errorf("status errors = %v, want 1", status.errs)
	}

	host.OpenErr = nil
	if err := a.Play("/music/song.mp3"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
}

func TestPlayRecordsRecentAndStatus(t *testing.T) {
	a, status := newTestApp(t, audiotest.NewHost(), "")

	for _, p := range []string{"/music/a.mp3", "/music/b.ogg", "/music/a.mp3"} {
		if err := a.Play(p); err != nil {
			t.Fatalf("Play(%s) error = %v", p, err)
		}
	}

	recent := a.RecentFiles()
	if len(recent) != 2 || recent[0] != "/music/a.mp3" || recent[1] != "/music/b.ogg" {
		t.Errorf("RecentFiles() = %v", recent)
	}
	if len(status.playing) != 3 {
		t.Errorf("SetPlaying calls = %d, want 3", len(status.playing))
	}
	if path, ok := a.NowPlaying(); !ok || path != "/music/a.mp3" {
		t.Errorf("NowPlaying() = %q, %v", path, ok)
	}

	// persisted for the next run
	saved, err := config.LoadFrom(a.cfg.Path())
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if len(saved.RecentFiles) != 2 {
		t.Errorf("saved RecentFiles = %v", saved.RecentFiles)
	}
}

func TestPlayDecodeErrorSetsErrorStatus(t *testing.T) {
	host := audiotest.NewHost()
	a, status := newTestApp(t, host, "")

	err := a.Play("/music/broken.bad")
	if !errors.Is(err, decode.ErrCorruptStream) {
		t.Fatalf("Play() error = %v, want ErrCorruptStream", err)
	}
	if len(status.errs) != 1 {
		t.Errorf("status errors = %d, want 1", len(status.errs))
	}
	if len(a.RecentFiles()) != 0 {
		t.Errorf("failed play added to recent files: %v", a.RecentFiles())
	}
	if host.Live() != 0 {
		t.Errorf("live streams = %d, want 0", host.Live())
	}
}

func TestClipboardPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/music/a.mp3", "/music/a.mp3"},
		{"  /music/a.mp3\n", "/music/a.mp3"},
		{`"/music/with space.wav"`, "/music/with space.wav"},
		{"file:///music/with%20space.flac", "/music/with space.flac"},
		{"/music/first.ogg\n/music/second.ogg", "/music/first.ogg"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := clipboardPath(tt.in); got != tt.want {
			t.Errorf("clipboardPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHotkeyPlaysClipboardOnPress(t *testing.T) {
	a, status := newTestApp(t, audiotest.NewHost(), "/music/clip.mp3")

	a.OnHotkey(false)
	if _, ok := a.NowPlaying(); ok {
		t.Fatal("key release started playback")
	}

	a.OnHotkey(true)
	if path, ok := a.NowPlaying(); !ok || path != "/music/clip.mp3" {
		t.Errorf("NowPlaying() = %q, %v", path, ok)
	}
	if len(status.playing) != 1 {
		t.Errorf("SetPlaying calls = %d, want 1", len(status.playing))
	}
}

func TestPlayFromEmptyClipboard(t *testing.T) {
	a, _ := newTestApp(t, audiotest.NewHost(), "\n")
	if err := a.PlayFromClipboard(); !errors.Is(err, ErrEmptyClipboard) {
		t.Fatalf("PlayFromClipboard() error = %v, want ErrEmptyClipboard", err)
	}
}

func TestRunRendersPlaybackView(t *testing.T) {
	host := audiotest.NewHost()
	a, status := newTestApp(t, host, "")
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Play("/music/a.mp3"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if _, err := host.Last().Render(4, 0); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v", err)
	}

	status.mu.Lock()
	defer status.mu.Unlock()
	if len(status.views) == 0 {
		t.Fatal("no views rendered")
	}
	v := status.views[len(status.views)-1]
	if v.Source != audio.SourcePlayback || v.Path != "/music/a.mp3" {
		t.Errorf("last view = %+v", v)
	}
	if len(v.Window) != 8 || v.Window[0] != 0.5*0.3 {
		t.Errorf("window = %v", v.Window)
	}
}

func TestShutdownStopsEverything(t *testing.T) {
	host := audiotest.NewHost()
	a, _ := newTestApp(t, host, "")
	a.Start()
	a.Play("/music/a.mp3")

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if host.Live() != 0 {
		t.Errorf("live streams after Shutdown = %d", host.Live())
	}
}

func TestSetCaptureDevicePersists(t *testing.T) {
	a, _ := newTestApp(t, audiotest.NewHost(), "")
	if err := a.SetCaptureDevice("in-0"); err != nil {
		t.Fatalf("SetCaptureDevice() error = %v", err)
	}
	saved, err := config.LoadFrom(a.cfg.Path())
	if err != nil {
		t.Fatal(err)
	}
	if saved.Capture.DeviceID != "in-0" {
		t.Errorf("saved DeviceID = %q", saved.Capture.DeviceID)
	}
}
