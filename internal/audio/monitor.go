package audio

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRefreshInterval is how often Run drains the channels
const DefaultRefreshInterval = 50 * time.Millisecond

// Source names which session a View was taken from
type Source int

const (
	SourceCapture Source = iota
	SourcePlayback
)

func (s Source) String() string {
	if s == SourcePlayback {
		return "playback"
	}
	return "capture"
}

// View is what a renderer draws on one tick. Window is nil until the
// chosen source has produced its first window; Path is set only for
// SourcePlayback.
type View struct {
	Source    Source
	Window    []float32
	Path      string
	Exhausted bool
}

// MonitorConfig holds the sessions a monitor drains. Either session may be
// nil when it could not be built.
type MonitorConfig struct {
	Capture  *Capture
	Player   *Player
	Reporter *Reporter
	Logger   zerolog.Logger
}

// Monitor is the single consumer of every frame channel and of the error
// reporter.
type Monitor struct {
	capture  *Capture
	player   *Player
	reporter *Reporter
	log      zerolog.Logger

	input  *Latest
	output *Latest
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	m := &Monitor{
		capture:  cfg.Capture,
		player:   cfg.Player,
		reporter: cfg.Reporter,
		log:      cfg.Logger,
	}
	if m.capture != nil {
		m.input = NewLatest(m.capture.Frames().WindowSize())
	}
	if m.player != nil {
		m.output = NewLatest(m.player.Frames().WindowSize())
	}
	return m
}

// Tick drains both frame channels into their caches, collects stream
// faults and returns any errors reported since the previous tick.
func (m *Monitor) Tick() []error {
	if m.capture != nil {
		m.input.Drain(m.capture.Frames())
		m.capture.pollFaults()
	}
	if m.player != nil {
		m.output.Drain(m.player.Frames())
		m.player.pollFaults()
	}

	var errs []error
	if m.reporter == nil {
		return errs
	}
	for {
		select {
		case err := <-m.reporter.Errors():
			errs = append(errs, err)
		default:
			return errs
		}
	}
}

// View picks the playback window while a track is loaded and the capture
// window otherwise.
func (m *Monitor) View() View {
	if m.player != nil {
		if path, ok := m.player.CurrentPath(); ok {
			w, _ := m.output.Window()
			return View{
				Source:    SourcePlayback,
				Window:    w,
				Path:      path,
				Exhausted: m.player.Exhausted(),
			}
		}
	}
	v := View{Source: SourceCapture}
	if m.capture != nil {
		v.Window, _ = m.input.Window()
	}
	return v
}

// Latest returns the cache for the given source, or nil if that session
// does not exist
func (m *Monitor) Latest(src Source) *Latest {
	if src == SourcePlayback {
		return m.output
	}
	return m.input
}

// Run ticks every interval until ctx is done, handing each View to render
// and each reported error to onErr.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, render func(View), onErr func(error)) error {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastDrops uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, err := range m.Tick() {
			if onErr != nil {
				onErr(err)
			}
		}
		if m.reporter != nil {
			if d := m.reporter.Dropped(); d != lastDrops {
				m.log.Warn().Uint64("dropped", d-lastDrops).Msg("Stream errors dropped")
				lastDrops = d
			}
		}
		if render != nil {
			render(m.View())
		}
	}
}
