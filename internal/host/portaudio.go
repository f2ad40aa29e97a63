package host

import (
	"fmt"
	"strconv"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/scope-tray/internal/audio"
	"github.com/rs/zerolog"
)

// PortAudio is an audio.Host backed by PortAudio callback streams
type PortAudio struct {
	log zerolog.Logger
}

// NewPortAudio initializes PortAudio. Close terminates it.
func NewPortAudio(log zerolog.Logger) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	log.Debug().Str("version", portaudio.VersionText()).Msg("PortAudio initialized")
	return &PortAudio{log: log}, nil
}

func (p *PortAudio) Name() string { return BackendPortAudio }

func (p *PortAudio) Devices(dir audio.Direction) ([]audio.Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	var def *portaudio.DeviceInfo
	if dir == audio.Input {
		def, _ = portaudio.DefaultInputDevice()
	} else {
		def, _ = portaudio.DefaultOutputDevice()
	}

	result := make([]audio.Device, 0, len(devices))
	for _, d := range devices {
		if maxChannelsFor(d, dir) == 0 {
			continue
		}
		result = append(result, toDevice(d, dir, def != nil && d.Index == def.Index))
	}
	return result, nil
}

func (p *PortAudio) DefaultInputDevice() (audio.Device, error) {
	d, err := portaudio.DefaultInputDevice()
	if err != nil {
		return audio.Device{}, fmt.Errorf("%w: %w", audio.ErrNoDevice, err)
	}
	return toDevice(d, audio.Input, true), nil
}

func (p *PortAudio) DefaultOutputDevice() (audio.Device, error) {
	d, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return audio.Device{}, fmt.Errorf("%w: %w", audio.ErrNoDevice, err)
	}
	return toDevice(d, audio.Output, true), nil
}

// NegotiateConfig starts from the device default rate and up to two
// channels, stepping down to mono if PortAudio rejects stereo.
func (p *PortAudio) NegotiateConfig(dev audio.Device) (audio.StreamConfig, error) {
	info, err := lookup(dev)
	if err != nil {
		return audio.StreamConfig{}, err
	}

	cfg := audio.StreamConfig{
		SampleRate: int(info.DefaultSampleRate),
		Format:     audio.Float32,
	}
	for ch := capChannels(maxChannelsFor(info, dev.Direction)); ch > 0; ch-- {
		cfg.Channels = ch
		params := streamParams(info, dev.Direction, cfg)
		err := portaudio.IsFormatSupported(params, probeCallback(dev.Direction))
		if err == nil {
			return cfg, nil
		}
		p.log.Debug().Err(err).Str("device", dev.Name).Int("channels", ch).Msg("Format rejected")
	}
	return audio.StreamConfig{}, fmt.Errorf("%w: %s", audio.ErrUnsupportedConfig, dev.Name)
}

// OpenStream opens a callback stream. PortAudio reports faults only
// through callback flags, so onError is never called.
func (p *PortAudio) OpenStream(dev audio.Device, cfg audio.StreamConfig, cb audio.Callback, onError func(error)) (audio.Stream, error) {
	if cfg.Format != audio.Float32 {
		return nil, fmt.Errorf("%w: format %s", audio.ErrUnsupportedConfig, cfg.Format)
	}
	info, err := lookup(dev)
	if err != nil {
		return nil, err
	}

	var fn any
	if dev.Direction == audio.Input {
		fn = func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			cb(in, nil, statusFromFlags(flags))
		}
	} else {
		fn = func(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			cb(nil, out, statusFromFlags(flags))
		}
	}

	stream, err := portaudio.OpenStream(streamParams(info, dev.Direction, cfg), fn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

func (p *PortAudio) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

func streamParams(info *portaudio.DeviceInfo, dir audio.Direction, cfg audio.StreamConfig) portaudio.StreamParameters {
	params := portaudio.StreamParameters{
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
	if dir == audio.Input {
		params.Input = portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: cfg.Channels,
			Latency:  info.DefaultLowInputLatency,
		}
	} else {
		params.Output = portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: cfg.Channels,
			Latency:  info.DefaultLowOutputLatency,
		}
	}
	if params.FramesPerBuffer == 0 {
		params.FramesPerBuffer = portaudio.FramesPerBufferUnspecified
	}
	return params
}

// probeCallback gives IsFormatSupported the sample type of the stream
func probeCallback(dir audio.Direction) any {
	if dir == audio.Input {
		return func(in []float32) {}
	}
	return func(out []float32) {}
}

func statusFromFlags(flags portaudio.StreamCallbackFlags) audio.Status {
	var s audio.Status
	if flags&portaudio.InputUnderflow != 0 {
		s |= audio.StatusInputUnderflow
	}
	if flags&portaudio.InputOverflow != 0 {
		s |= audio.StatusInputOverflow
	}
	if flags&portaudio.OutputUnderflow != 0 {
		s |= audio.StatusOutputUnderflow
	}
	if flags&portaudio.OutputOverflow != 0 {
		s |= audio.StatusOutputOverflow
	}
	return s
}

func maxChannelsFor(d *portaudio.DeviceInfo, dir audio.Direction) int {
	if dir == audio.Input {
		return d.MaxInputChannels
	}
	return d.MaxOutputChannels
}

func toDevice(d *portaudio.DeviceInfo, dir audio.Direction, isDefault bool) audio.Device {
	return audio.Device{
		ID:        strconv.Itoa(d.Index),
		Name:      d.Name,
		Direction: dir,
		Default:   isDefault,
		Config: audio.StreamConfig{
			SampleRate: int(d.DefaultSampleRate),
			Channels:   capChannels(maxChannelsFor(d, dir)),
			Format:     audio.Float32,
		},
	}
}

// lookup re-resolves a device handle, since PortAudio indices are only
// valid for the current session
func lookup(dev audio.Device) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if strconv.Itoa(d.Index) == dev.ID && d.Name == dev.Name {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.Name == dev.Name && maxChannelsFor(d, dev.Direction) > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: device not found: %s", audio.ErrNoDevice, dev.Name)
}
