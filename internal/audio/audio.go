package audio

// Direction is the data direction of an audio endpoint
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// SampleFormat is the sample encoding negotiated with a device.
// Sessions only ever run Float32 streams.
type SampleFormat int

const (
	Float32 SampleFormat = iota
	Int16
)

func (f SampleFormat) String() string {
	switch f {
	case Float32:
		return "f32"
	case Int16:
		return "s16"
	default:
		return "unknown"
	}
}

// StreamConfig is the negotiated configuration of a stream
type StreamConfig struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
	// FramesPerBuffer is the hardware period in frames; 0 lets the driver pick.
	FramesPerBuffer int
}

// Device is a read-only handle to a physical audio endpoint
type Device struct {
	ID        string
	Name      string
	Direction Direction
	Default   bool
	// Config is the device's default configuration as reported by the driver.
	Config StreamConfig
}

// Status carries driver-reported conditions for one callback period
type Status uint32

const (
	StatusInputUnderflow Status = 1 << iota
	StatusInputOverflow
	StatusOutputUnderflow
	StatusOutputOverflow
)

// Callback is invoked on the driver's real-time thread once per period.
// in is nil for output streams and out is nil for input streams; both are
// interleaved and only valid for the duration of the call.
type Callback func(in, out []float32, status Status)

// Stream is an open device stream bound to one callback
type Stream interface {
	Start() error
	// Stop halts I/O and returns once no callback is running.
	Stop() error
	Close() error
}

// Host enumerates devices and opens streams on one audio backend
type Host interface {
	Name() string
	Devices(dir Direction) ([]Device, error)
	DefaultInputDevice() (Device, error)
	DefaultOutputDevice() (Device, error)
	NegotiateConfig(dev Device) (StreamConfig, error)
	// OpenStream builds a stopped stream. onError receives driver failures
	// from a non real-time context.
	OpenStream(dev Device, cfg StreamConfig, cb Callback, onError func(error)) (Stream, error)
	Close() error
}
