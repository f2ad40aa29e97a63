package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/petems/scope-tray/internal/audio"
	"github.com/petems/scope-tray/internal/config"
	"github.com/rs/zerolog"
)

// ErrEmptyClipboard is returned when there is no path on the clipboard
var ErrEmptyClipboard = errors.New("clipboard does not hold a file path")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	Render(v audio.View)
	SetPlaying(path string)
	SetIdle()
	SetError(err error)
}

type Config struct {
	Host          audio.Host
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil

	// Open overrides how tracks are opened; nil uses the decoder registry.
	Open audio.Opener
	// Clipboard overrides the system clipboard reader.
	Clipboard func() (string, error)
}

type App struct {
	host      audio.Host
	cfg       *config.Config
	log       zerolog.Logger
	status    StatusUpdater
	clipboard func() (string, error)

	input    audio.Device
	capture  *audio.Capture
	player   *audio.Player
	monitor  *audio.Monitor
	reporter *audio.Reporter

	mu sync.Mutex
}

// New selects devices and wires the sessions. A missing device is fatal;
// everything else only disables the affected session later on.
func New(cfg Config) (*App, error) {
	c := cfg.Config
	a := &App{
		host:      cfg.Host,
		cfg:       c,
		log:       cfg.Logger,
		status:    cfg.StatusUpdater,
		clipboard: cfg.Clipboard,
		reporter:  audio.NewReporter(c.ErrorQueue),
	}
	if a.clipboard == nil {
		a.clipboard = clipboard.ReadAll
	}

	if c.Capture.Enabled {
		input, err := audio.SelectInput(a.host, c.Capture.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("failed to select input device: %w", err)
		}
		a.input = input
		a.capture = audio.NewCapture(audio.CaptureConfig{
			Host:     a.host,
			Frames:   audio.NewFrameChannel(c.FrameQueue, c.WindowSize),
			Reporter: a.reporter,
			Logger:   a.log.With().Str("session", "capture").Logger(),
		})
	}

	output, err := audio.SelectOutput(a.host, c.Playback.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select output device: %w", err)
	}
	a.player = audio.NewPlayer(audio.PlayerConfig{
		Host:        a.host,
		Device:      output,
		Frames:      audio.NewFrameChannel(c.FrameQueue, c.WindowSize),
		Reporter:    a.reporter,
		Open:        cfg.Open,
		Attenuation: c.Attenuation,
		Logger:      a.log.With().Str("session", "playback").Logger(),
	})

	a.monitor = audio.NewMonitor(audio.MonitorConfig{
		Capture:  a.capture,
		Player:   a.player,
		Reporter: a.reporter,
		Logger:   a.log,
	})
	return a, nil
}

// Start begins capturing. A capture that cannot be built is logged and
// left stopped; playback still works.
func (a *App) Start() error {
	if a.capture == nil {
		a.log.Info().Msg("Capture disabled")
		return nil
	}

	cfg, err := a.host.NegotiateConfig(a.input)
	if err == nil {
		err = a.capture.Start(a.input, cfg)
	}
	if err != nil {
		a.log.Error().Err(err).Str("device", a.input.Name).Msg("Capture unavailable")
		a.setError(err)
		return err
	}
	return nil
}

// Run drives the display loop until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	err := a.monitor.Run(ctx, a.cfg.RefreshInterval, a.render, a.onStreamError)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) render(v audio.View) {
	if a.status != nil {
		a.status.Render(v)
	}
}

func (a *App) onStreamError(err error) {
	a.log.Warn().Err(err).Msg("Stream error")
	a.setError(err)
}

func (a *App) setError(err error) {
	if a.status != nil {
		a.status.SetError(err)
	}
}

// Play starts playing path, replacing the current track
func (a *App) Play(path string) error {
	a.log.Info().Str("path", path).Msg("Play requested")
	if err := a.play(path); err != nil {
		a.log.Error().Err(err).Str("path", path).Msg("Playback failed")
		a.setError(err)
		return err
	}

	// status callbacks may call back into the app, so run them unlocked
	if a.status != nil {
		a.status.SetPlaying(path)
	}
	return nil
}

func (a *App) play(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.player.Play(path); err != nil {
		return err
	}
	a.cfg.AddRecent(path)
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to save recent files")
	}
	return nil
}

// PlayFromClipboard plays the file whose path is on the clipboard
func (a *App) PlayFromClipboard() error {
	text, err := a.clipboard()
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to read clipboard")
		a.setError(err)
		return fmt.Errorf("failed to read clipboard: %w", err)
	}
	path := clipboardPath(text)
	if path == "" {
		a.setError(ErrEmptyClipboard)
		return ErrEmptyClipboard
	}
	return a.Play(path)
}

// clipboardPath accepts a bare path, a quoted path or a file:// URL as
// copied from a file manager
func clipboardPath(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	text = strings.Trim(text, `"'`)
	if strings.HasPrefix(text, "file://") {
		if u, err := url.Parse(text); err == nil {
			return u.Path
		}
	}
	return text
}

// OnHotkey plays the clipboard path on key press
func (a *App) OnHotkey(pressed bool) {
	if !pressed {
		return
	}
	if err := a.PlayFromClipboard(); err != nil {
		a.log.Debug().Err(err).Msg("Hotkey play ignored")
	}
}

// StopPlayback closes the current track and returns the display to capture
func (a *App) StopPlayback() {
	a.mu.Lock()
	a.player.Close()
	a.mu.Unlock()

	if a.status != nil {
		a.status.SetIdle()
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.capture != nil {
		if err := a.capture.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.player.Close(); err != nil {
		errs = append(errs, err)
	}
	if d := a.reporter.Dropped(); d > 0 {
		a.log.Warn().Uint64("dropped", d).Msg("Stream errors were dropped")
	}
	return errors.Join(errs...)
}

// Tray actions

func (a *App) View() audio.View {
	return a.monitor.View()
}

func (a *App) NowPlaying() (string, bool) {
	return a.player.CurrentPath()
}

func (a *App) RecentFiles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.cfg.RecentFiles...)
}

func (a *App) CaptureDevice() (audio.Device, bool) {
	if a.capture == nil || a.capture.State() != audio.Running {
		return audio.Device{}, false
	}
	return a.capture.Device(), true
}

func (a *App) ListDevices(dir audio.Direction) ([]audio.Device, error) {
	if dir == audio.Output {
		return audio.ListOutputDevices(a.host)
	}
	return audio.ListInputDevices(a.host)
}

// SetCaptureDevice stores the input device used from the next start
func (a *App) SetCaptureDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cfg.Capture.DeviceID = id
	return a.cfg.Save()
}
