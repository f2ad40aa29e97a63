package host

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/petems/scope-tray/internal/audio"
	"github.com/rs/zerolog"
)

// ErrDeviceStopped is reported when miniaudio stops a device on its own,
// for example after it was unplugged.
var ErrDeviceStopped = errors.New("device stopped by backend")

const bytesPerFloat32 = 4

// Miniaudio is an audio.Host backed by miniaudio through malgo
type Miniaudio struct {
	log zerolog.Logger

	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

func NewMiniaudio(log zerolog.Logger) (*Miniaudio, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Str("backend", BackendMiniaudio).Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
	}
	return &Miniaudio{log: log, ctx: ctx}, nil
}

func (m *Miniaudio) Name() string { return BackendMiniaudio }

func deviceType(dir audio.Direction) malgo.DeviceType {
	if dir == audio.Input {
		return malgo.Capture
	}
	return malgo.Playback
}

func (m *Miniaudio) infos(dir audio.Direction) ([]malgo.DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return nil, errors.New("miniaudio context closed")
	}
	infos, err := m.ctx.Devices(deviceType(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return infos, nil
}

func (m *Miniaudio) Devices(dir audio.Direction) ([]audio.Device, error) {
	infos, err := m.infos(dir)
	if err != nil {
		return nil, err
	}
	result := make([]audio.Device, 0, len(infos))
	for i := range infos {
		result = append(result, audio.Device{
			ID:        infos[i].ID.String(),
			Name:      infos[i].Name(),
			Direction: dir,
			Default:   infos[i].IsDefault != 0,
		})
	}
	return result, nil
}

func (m *Miniaudio) DefaultInputDevice() (audio.Device, error) {
	return m.defaultDevice(audio.Input)
}

func (m *Miniaudio) DefaultOutputDevice() (audio.Device, error) {
	return m.defaultDevice(audio.Output)
}

// defaultDevice falls back to the first device when the backend marks none
// as default
func (m *Miniaudio) defaultDevice(dir audio.Direction) (audio.Device, error) {
	devices, err := m.Devices(dir)
	if err != nil {
		return audio.Device{}, fmt.Errorf("%w: %w", audio.ErrNoDevice, err)
	}
	if len(devices) == 0 {
		return audio.Device{}, fmt.Errorf("%w: no %s devices", audio.ErrNoDevice, dir)
	}
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	devices[0].Default = true
	return devices[0], nil
}

// NegotiateConfig opens the device in its native format and reads back
// what miniaudio picked.
func (m *Miniaudio) NegotiateConfig(dev audio.Device) (audio.StreamConfig, error) {
	dc, info, err := m.deviceConfig(dev, audio.StreamConfig{})
	if err != nil {
		return audio.StreamConfig{}, err
	}

	m.mu.Lock()
	d, err := malgo.InitDevice(m.ctx.Context, dc, malgo.DeviceCallbacks{})
	m.mu.Unlock()
	runtime.KeepAlive(info)
	if err != nil {
		return audio.StreamConfig{}, fmt.Errorf("%w: %s: %w", audio.ErrUnsupportedConfig, dev.Name, err)
	}
	defer d.Uninit()

	channels := d.PlaybackChannels()
	if dev.Direction == audio.Input {
		channels = d.CaptureChannels()
	}
	cfg := audio.StreamConfig{
		SampleRate: int(d.SampleRate()),
		Channels:   capChannels(int(channels)),
		Format:     audio.Float32,
	}
	if cfg.SampleRate == 0 || cfg.Channels == 0 {
		return audio.StreamConfig{}, fmt.Errorf("%w: %s", audio.ErrUnsupportedConfig, dev.Name)
	}
	return cfg, nil
}

// deviceConfig builds a malgo config for dev. The returned DeviceInfo owns
// the memory the config's device ID points at and must outlive InitDevice.
func (m *Miniaudio) deviceConfig(dev audio.Device, cfg audio.StreamConfig) (malgo.DeviceConfig, *malgo.DeviceInfo, error) {
	infos, err := m.infos(dev.Direction)
	if err != nil {
		return malgo.DeviceConfig{}, nil, err
	}
	var info *malgo.DeviceInfo
	for i := range infos {
		if infos[i].ID.String() == dev.ID {
			info = &infos[i]
			break
		}
	}
	if info == nil {
		return malgo.DeviceConfig{}, nil, fmt.Errorf("%w: device not found: %s", audio.ErrNoDevice, dev.Name)
	}

	dc := malgo.DefaultDeviceConfig(deviceType(dev.Direction))
	dc.SampleRate = uint32(cfg.SampleRate)
	dc.PeriodSizeInFrames = uint32(cfg.FramesPerBuffer)
	sub := malgo.SubConfig{
		Format:   malgo.FormatF32,
		Channels: uint32(cfg.Channels),
		DeviceID: info.ID.Pointer(),
	}
	if dev.Direction == audio.Input {
		dc.Capture = sub
	} else {
		dc.Playback = sub
	}
	return dc, info, nil
}

func (m *Miniaudio) OpenStream(dev audio.Device, cfg audio.StreamConfig, cb audio.Callback, onError func(error)) (audio.Stream, error) {
	if cfg.Format != audio.Float32 {
		return nil, fmt.Errorf("%w: format %s", audio.ErrUnsupportedConfig, cfg.Format)
	}
	dc, info, err := m.deviceConfig(dev, cfg)
	if err != nil {
		return nil, err
	}

	s := &malgoStream{}
	input := dev.Direction == audio.Input
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, in []byte, _ uint32) {
			if input {
				cb(bytesAsFloat32(in), nil, 0)
			} else {
				cb(nil, bytesAsFloat32(out), 0)
			}
		},
		Stop: func() {
			if !s.stopping.Load() && onError != nil {
				onError(ErrDeviceStopped)
			}
		},
	}

	m.mu.Lock()
	d, err := malgo.InitDevice(m.ctx.Context, dc, callbacks)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to init device: %w", err)
	}
	m.log.Debug().Str("device", info.Name()).Uint32("sample_rate", d.SampleRate()).Msg("Device initialized")

	s.device = d
	return s, nil
}

func (m *Miniaudio) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Uninit()
	m.ctx.Free()
	m.ctx = nil
	if err != nil {
		return fmt.Errorf("failed to uninit miniaudio: %w", err)
	}
	return nil
}

type malgoStream struct {
	device   *malgo.Device
	stopping atomic.Bool
}

func (s *malgoStream) Start() error {
	s.stopping.Store(false)
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (s *malgoStream) Stop() error {
	s.stopping.Store(true)
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.stopping.Store(true)
	s.device.Uninit()
	return nil
}

// bytesAsFloat32 reinterprets an f32 device buffer without copying. The
// result aliases data and is only valid inside the callback.
func bytesAsFloat32(data []byte) []float32 {
	if len(data) < bytesPerFloat32 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/bytesPerFloat32)
}
