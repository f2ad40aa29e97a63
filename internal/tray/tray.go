package tray

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/petems/scope-tray/internal/app"
	"github.com/petems/scope-tray/internal/audio"
	"github.com/petems/scope-tray/internal/config"
	"github.com/petems/scope-tray/internal/logging"
	"github.com/rs/zerolog"
)

// errorHold is how long a stream error keeps the error status showing
const errorHold = 5 * time.Second

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger
	onExit  func()

	mu       sync.Mutex
	ready    bool
	status   string
	lastErr  error
	errAt    time.Time
	titleStr string
	tipStr   string

	// Menu items
	mNowPlaying *systray.MenuItem
	mStop       *systray.MenuItem
	mRecent     *systray.MenuItem
	recentItems []*systray.MenuItem
	mDevices    *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.mu.Lock()
	u.status = "idle"
	u.mu.Unlock()
	u.refreshPlaying("")
}

func (u *UI) SetPlaying(path string) {
	u.mu.Lock()
	u.status = "playing"
	u.mu.Unlock()
	u.refreshPlaying(path)
	u.refreshRecent()
}

func (u *UI) SetError(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = "error"
	u.lastErr = err
	u.errAt = time.Now()
}

// Render draws one view. It runs on the monitor loop every tick, so the
// tray is only touched when the text actually changes.
func (u *UI) Render(v audio.View) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.expireError(v, time.Now())
	if !u.ready {
		return
	}

	t := title(u.status, v)
	if t != u.titleStr {
		u.titleStr = t
		systray.SetTitle(t)
	}
	tip := tooltip(u.status, v, u.lastErr)
	if tip != u.tipStr {
		u.tipStr = tip
		systray.SetTooltip(tip)
	}
}

// expireError drops the error status once no error has been reported for
// errorHold, going back to whatever the view shows.
func (u *UI) expireError(v audio.View, now time.Time) {
	if u.status != "error" || now.Sub(u.errAt) < errorHold {
		return
	}
	u.lastErr = nil
	if v.Source == audio.SourcePlayback {
		u.status = "playing"
	} else {
		u.status = "idle"
	}
}

// New builds the tray. onExit runs once the tray has shut down.
func New(cfg *config.Config, version, commit string, log zerolog.Logger, onExit func()) *UI {
	return &UI{
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log,
		onExit:  onExit,
		status:  "idle",
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks on the tray event loop until Quit is chosen or ctx ends
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.exit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTitle(title("idle", audio.View{}))
	systray.SetTooltip("Audio scope")

	// Build menu
	u.mNowPlaying = systray.AddMenuItem("Nothing playing", "Current file")
	u.mNowPlaying.Disable()
	mClipboard := systray.AddMenuItem("Play from Clipboard", "Play the file whose path is on the clipboard")
	u.mStop = systray.AddMenuItem("Stop Playback", "Return to the input monitor")
	u.mStop.Disable()

	u.mRecent = systray.AddMenuItem("Recent", "Recently played files")
	u.buildRecentMenu()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select input device (applies on restart)")
	u.buildDeviceMenu()

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About ScopeTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.mu.Unlock()
	if path, ok := u.app.NowPlaying(); ok {
		u.refreshPlaying(path)
	}

	// Event loop
	go u.handleEvents(mClipboard, mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mClipboard, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mClipboard.ClickedCh:
			if err := u.app.PlayFromClipboard(); err != nil {
				u.log.Warn().Err(err).Msg("Play from clipboard failed")
			}
		case <-u.mStop.ClickedCh:
			u.app.StopPlayback()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// buildRecentMenu creates one hidden slot per remembered file; systray
// cannot remove items, so slots are retitled and shown as the list changes.
func (u *UI) buildRecentMenu() {
	n := max(u.cfg.MaxRecent, 1)
	items := make([]*systray.MenuItem, n)
	for i := range n {
		item := u.mRecent.AddSubMenuItem("", "")
		item.Hide()
		items[i] = item

		go func(slot int, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				recent := u.app.RecentFiles()
				if slot >= len(recent) {
					continue
				}
				if err := u.app.Play(recent[slot]); err != nil {
					u.log.Warn().Err(err).Str("path", recent[slot]).Msg("Play recent failed")
				}
			}
		}(i, item)
	}

	u.mu.Lock()
	u.recentItems = items
	u.mu.Unlock()
	u.refreshRecent()
}

func (u *UI) refreshRecent() {
	u.mu.Lock()
	items := u.recentItems
	u.mu.Unlock()
	if items == nil {
		return
	}

	recent := u.app.RecentFiles()
	for i, item := range items {
		if i < len(recent) {
			item.SetTitle(filepath.Base(recent[i]))
			item.SetTooltip(recent[i])
			item.Show()
		} else {
			item.Hide()
		}
	}
	if len(recent) == 0 {
		u.mRecent.Disable()
	} else {
		u.mRecent.Enable()
	}
}

func (u *UI) refreshPlaying(path string) {
	u.mu.Lock()
	ready := u.ready
	u.mu.Unlock()
	if !ready {
		return
	}

	if path == "" {
		u.mNowPlaying.SetTitle("Nothing playing")
		u.mStop.Disable()
		return
	}
	u.mNowPlaying.SetTitle("Now playing: " + filepath.Base(path))
	u.mNowPlaying.SetTooltip(path)
	u.mStop.Enable()
}

func (u *UI) buildDeviceMenu() {
	// Get devices from app
	devices, err := u.app.ListDevices(audio.Input)
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	current, running := u.app.CaptureDevice()
	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, dev.ID)
		if (running && dev.ID == current.ID) || (!running && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				// Check this item
				menuItem.Check()
				if err := u.app.SetCaptureDevice(deviceID); err != nil {
					u.log.Error().Err(err).Msg("Failed to save input device")
					continue
				}
				u.log.Info().Str("device", deviceName).Msg("Changed input device")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) openLogs() {
	path := logging.LogPath()
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
		return
	}
	go cmd.Wait()
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("ScopeTray: live audio scope and file player")
	systray.SetTooltip("ScopeTray " + u.version + " (" + u.commit + ")")
}

func (u *UI) exit() {
	u.mu.Lock()
	u.ready = false
	u.mu.Unlock()
	if u.onExit != nil {
		u.onExit()
	}
}
