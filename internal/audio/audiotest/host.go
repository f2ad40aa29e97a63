// Package audiotest provides an in-memory audio.Host whose callbacks are
// driven by the test instead of a driver thread.
package audiotest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/petems/scope-tray/internal/audio"
)

// Host is a fake backend. Zero or more devices per direction; the first one
// marked Default is returned as the default device.
type Host struct {
	mu      sync.Mutex
	inputs  []audio.Device
	outputs []audio.Device
	streams []*Stream

	// RejectRates makes OpenStream fail for these sample rates.
	RejectRates map[int]bool
	// OpenErr and StartErr make every OpenStream or Start call fail.
	OpenErr  error
	StartErr error
}

// NewHost creates a host with one default stereo 48kHz device per direction
func NewHost() *Host {
	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 2, Format: audio.Float32}
	return &Host{
		inputs: []audio.Device{
			{ID: "in-0", Name: "Fake Microphone", Direction: audio.Input, Default: true, Config: cfg},
		},
		outputs: []audio.Device{
			{ID: "out-0", Name: "Fake Speakers", Direction: audio.Output, Default: true, Config: cfg},
		},
	}
}

// NewEmptyHost creates a host without any devices
func NewEmptyHost() *Host {
	return &Host{}
}

// AddDevice registers another device
func (h *Host) AddDevice(d audio.Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d.Direction == audio.Output {
		h.outputs = append(h.outputs, d)
	} else {
		h.inputs = append(h.inputs, d)
	}
}

func (h *Host) Name() string { return "fake" }

func (h *Host) Devices(dir audio.Direction) ([]audio.Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if dir == audio.Output {
		return append([]audio.Device(nil), h.outputs...), nil
	}
	return append([]audio.Device(nil), h.inputs...), nil
}

func (h *Host) DefaultInputDevice() (audio.Device, error) {
	return h.defaultDevice(audio.Input)
}

func (h *Host) DefaultOutputDevice() (audio.Device, error) {
	return h.defaultDevice(audio.Output)
}

func (h *Host) defaultDevice(dir audio.Direction) (audio.Device, error) {
	devices, _ := h.Devices(dir)
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	return audio.Device{}, fmt.Errorf("%w: no default %s device", audio.ErrNoDevice, dir)
}

func (h *Host) NegotiateConfig(dev audio.Device) (audio.StreamConfig, error) {
	if dev.Config.SampleRate == 0 || dev.Config.Channels == 0 {
		return audio.StreamConfig{}, audio.ErrUnsupportedConfig
	}
	return dev.Config, nil
}

func (h *Host) OpenStream(dev audio.Device, cfg audio.StreamConfig, cb audio.Callback, onError func(error)) (audio.Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.OpenErr != nil {
		return nil, h.OpenErr
	}
	if h.RejectRates[cfg.SampleRate] {
		return nil, fmt.Errorf("sample rate %d not supported", cfg.SampleRate)
	}
	s := &Stream{host: h, Device: dev, Config: cfg, cb: cb, onError: onError}
	h.streams = append(h.streams, s)
	return s, nil
}

func (h *Host) Close() error { return nil }

// Streams returns every stream ever opened, oldest first
func (h *Host) Streams() []*Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Stream(nil), h.streams...)
}

// Last returns the most recently opened stream, or nil
func (h *Host) Last() *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.streams) == 0 {
		return nil
	}
	return h.streams[len(h.streams)-1]
}

// Live counts streams that were opened and not yet closed
func (h *Host) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.streams {
		if !s.closed {
			n++
		}
	}
	return n
}

var errNotRunning = errors.New("stream not running")

// Stream is a fake stream. Tests push periods through it with Capture and
// Render.
type Stream struct {
	host    *Host
	Device  audio.Device
	Config  audio.StreamConfig
	cb      audio.Callback
	onError func(error)

	started bool
	stopped bool
	closed  bool
}

func (s *Stream) Start() error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	if s.host.StartErr != nil {
		return s.host.StartErr
	}
	if s.closed {
		return errors.New("stream closed")
	}
	s.started = true
	s.stopped = false
	return nil
}

func (s *Stream) Stop() error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *Stream) Close() error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	s.closed = true
	return nil
}

// Running reports whether the stream was started and not stopped or closed
func (s *Stream) Running() bool {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	return s.running()
}

func (s *Stream) Closed() bool {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	return s.closed
}

func (s *Stream) running() bool {
	return s.started && !s.stopped && !s.closed
}

// Capture delivers one input period to the callback
func (s *Stream) Capture(in []float32, status audio.Status) error {
	if !s.Running() {
		return errNotRunning
	}
	s.cb(in, nil, status)
	return nil
}

// Render asks the callback for one output period of frames frames and
// returns what it wrote
func (s *Stream) Render(frames int, status audio.Status) ([]float32, error) {
	if !s.Running() {
		return nil, errNotRunning
	}
	out := make([]float32, frames*s.Config.Channels)
	s.cb(nil, out, status)
	return out, nil
}

// Fail reports a driver error the way a backend would
func (s *Stream) Fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
