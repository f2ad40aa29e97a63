package audio

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionState is the lifecycle state of a capture session
type SessionState int

const (
	Unstarted SessionState = iota
	Running
	Stopped
)

func (s SessionState) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unstarted"
	}
}

// CaptureConfig holds the collaborators of a capture session
type CaptureConfig struct {
	Host     Host
	Frames   *FrameChannel
	Reporter *Reporter
	Logger   zerolog.Logger
}

// Capture owns one input stream. Its callback copies the newest input
// samples into a window and offers it to Frames. A session runs once;
// build a new one to capture again.
type Capture struct {
	host     Host
	frames   *FrameChannel
	reporter *Reporter
	log      zerolog.Logger

	mu     sync.Mutex
	state  SessionState
	id     string
	device Device
	stream Stream
	faults faults
}

func NewCapture(cfg CaptureConfig) *Capture {
	return &Capture{
		host:     cfg.Host,
		frames:   cfg.Frames,
		reporter: cfg.Reporter,
		log:      cfg.Logger,
	}
}

// Start opens and starts an input stream on dev
func (c *Capture) Start(dev Device, cfg StreamConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unstarted {
		return fmt.Errorf("%w: capture is %s", ErrSessionState, c.state)
	}

	id := uuid.NewString()
	log := c.log.With().Str("stream", id).Str("device", dev.Name).Logger()

	stream, err := c.host.OpenStream(dev, cfg, c.callback(), func(err error) {
		c.reporter.Report(&StreamError{Stream: id, Direction: Input, Err: err})
	})
	if err != nil {
		return buildError(dev, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return buildError(dev, err)
	}

	c.id = id
	c.device = dev
	c.stream = stream
	c.state = Running

	log.Info().
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Int("window", c.frames.WindowSize()).
		Msg("Capture started")
	return nil
}

// callback builds the real-time closure. The window it fills belongs to
// the closure alone; a short period leaves zeros after its samples.
func (c *Capture) callback() Callback {
	window := make([]float32, c.frames.WindowSize())
	frames := c.frames
	faults := &c.faults

	return func(in, _ []float32, status Status) {
		faults.record(status)
		n := copy(window, in)
		clear(window[n:])
		frames.Send(window)
	}
}

// Stop halts and releases the stream. Stopping a session that never ran
// only marks it stopped.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Stopped {
		return nil
	}
	prev := c.state
	c.state = Stopped
	if prev != Running {
		return nil
	}

	var err error
	if stopErr := c.stream.Stop(); stopErr != nil {
		err = fmt.Errorf("failed to stop capture stream: %w", stopErr)
	}
	if closeErr := c.stream.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close capture stream: %w", closeErr)
	}
	c.stream = nil
	c.log.Info().Str("stream", c.id).Msg("Capture stopped")
	return err
}

func (c *Capture) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Device returns the device the session captured from, once started
func (c *Capture) Device() Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

func (c *Capture) Frames() *FrameChannel {
	return c.frames
}

// pollFaults reports driver status flags raised since the last poll
func (c *Capture) pollFaults() {
	s := c.faults.take()
	if s == 0 {
		return
	}
	c.mu.Lock()
	id := c.id
	c.mu.Unlock()
	for _, err := range statusErrors(s) {
		c.reporter.Report(&StreamError{Stream: id, Direction: Input, Err: err})
	}
}
