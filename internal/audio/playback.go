package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/petems/scope-tray/internal/decode"
	"github.com/rs/zerolog"
)

// DefaultAttenuation scales decoded samples before they reach the device
const DefaultAttenuation = 0.3

// PlaybackState is the lifecycle state of the player
type PlaybackState int

const (
	Idle PlaybackState = iota
	Loading
	Playing
)

func (s PlaybackState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

// Opener opens a track for playback
type Opener func(path string) (decode.Track, error)

// PlayerConfig holds the collaborators of a player
type PlayerConfig struct {
	Host Host
	// Device is the output device; it stays fixed for the player's life.
	Device   Device
	Frames   *FrameChannel
	Reporter *Reporter
	// Open defaults to decode.Open.
	Open Opener
	// Attenuation defaults to DefaultAttenuation when zero.
	Attenuation     float32
	FramesPerBuffer int
	Logger          zerolog.Logger
}

// playback is everything that lives exactly as long as one Play call
type playback struct {
	id        string
	path      string
	track     decode.Track
	stream    Stream
	cfg       StreamConfig
	exhausted atomic.Bool
	faults    faults
}

// Player plays one file at a time on a fixed output device and mirrors
// what it writes into Frames. There is no stop request: a track that ends
// leaves the stream running on silence until the next Play or Close.
type Player struct {
	host     Host
	device   Device
	frames   *FrameChannel
	reporter *Reporter
	open     Opener
	gain     float32
	period   int
	log      zerolog.Logger

	// playMu serializes Play and Close; mu guards state and cur only.
	playMu sync.Mutex
	mu     sync.Mutex
	state  PlaybackState
	cur    *playback
}

func NewPlayer(cfg PlayerConfig) *Player {
	p := &Player{
		host:     cfg.Host,
		device:   cfg.Device,
		frames:   cfg.Frames,
		reporter: cfg.Reporter,
		open:     cfg.Open,
		gain:     cfg.Attenuation,
		period:   cfg.FramesPerBuffer,
		log:      cfg.Logger,
	}
	if p.open == nil {
		p.open = decode.Open
	}
	if p.gain == 0 {
		p.gain = DefaultAttenuation
	}
	return p
}

// Play replaces whatever is playing with the file at path. The previous
// stream is stopped and closed before the file is even opened, so two
// streams never hold the device at once. On failure the player is Idle.
//
// Calls to Play and Close are serialized. Opening the file and building the
// stream run without holding the state lock, so readers such as
// CurrentPath never wait on a load.
func (p *Player) Play(path string) error {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.teardown(p.swap(nil, Loading))

	track, err := p.open(path)
	if err != nil {
		p.swap(nil, Idle)
		return err
	}

	pb := &playback{id: uuid.NewString(), path: path, track: track}
	log := p.log.With().Str("stream", pb.id).Str("path", path).Logger()

	stream, cfg, err := p.openStream(pb)
	if err != nil {
		track.Close()
		p.swap(nil, Idle)
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		track.Close()
		p.swap(nil, Idle)
		return buildError(p.device, err)
	}

	pb.stream = stream
	pb.cfg = cfg
	p.swap(pb, Playing)

	log.Info().
		Int("track_rate", track.SampleRate()).
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Msg("Playback started")
	return nil
}

// swap publishes a new current playback and state, returning the old one
func (p *Player) swap(pb *playback, state PlaybackState) *playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.cur
	p.cur = pb
	p.state = state
	return old
}

// openStream asks for the track's own sample rate first and falls back to
// the device default when the device refuses it.
func (p *Player) openStream(pb *playback) (Stream, StreamConfig, error) {
	base, err := p.host.NegotiateConfig(p.device)
	if err != nil {
		return nil, StreamConfig{}, buildError(p.device, err)
	}
	base.Format = Float32
	if p.period > 0 {
		base.FramesPerBuffer = p.period
	}

	onError := func(err error) {
		p.reporter.Report(&StreamError{Stream: pb.id, Direction: Output, Err: err})
	}

	candidates := []StreamConfig{base}
	if rate := pb.track.SampleRate(); rate > 0 && rate != base.SampleRate {
		preferred := base
		preferred.SampleRate = rate
		candidates = []StreamConfig{preferred, base}
	}

	var lastErr error
	for _, cfg := range candidates {
		stream, err := p.host.OpenStream(p.device, cfg, p.callback(pb, cfg.Channels), onError)
		if err == nil {
			return stream, cfg, nil
		}
		p.log.Debug().Err(err).Int("sample_rate", cfg.SampleRate).Msg("Output configuration rejected")
		lastErr = err
	}
	return nil, StreamConfig{}, buildError(p.device, lastErr)
}

// callback builds the real-time closure. The track and window are owned by
// the closure until the stream is stopped.
func (p *Player) callback(pb *playback, channels int) Callback {
	track := pb.track
	gain := p.gain
	frames := p.frames
	window := make([]float32, frames.WindowSize())
	if channels < 1 {
		channels = 1
	}
	done := false

	return func(_, out []float32, status Status) {
		pb.faults.record(status)

		whole := len(out) - len(out)%channels
		for i := 0; i < whole; i += channels {
			var l, r float32
			if !done {
				var ok bool
				if l, r, ok = track.Next(); ok {
					l *= gain
					r *= gain
				} else {
					done = true
					pb.exhausted.Store(true)
				}
			}
			writeFrame(out[i:i+channels], l, r)
		}
		clear(out[whole:])

		mirror(window, out)
		frames.Send(window)
	}
}

// writeFrame places a stereo pair on a device frame of any width
func writeFrame(frame []float32, l, r float32) {
	if len(frame) == 1 {
		frame[0] = (l + r) / 2
		return
	}
	frame[0] = l
	frame[1] = r
	clear(frame[2:])
}

// mirror shifts the newest samples of written into the tail of window
func mirror(window, written []float32) {
	n := len(window)
	if len(written) >= n {
		copy(window, written[len(written)-n:])
		return
	}
	copy(window, window[len(written):])
	copy(window[n-len(written):], written)
}

// teardown stops and releases a playback's stream, then its track. Faults
// raised since the last poll are reported once the stream is quiet.
func (p *Player) teardown(pb *playback) {
	if pb == nil {
		return
	}

	log := p.log.With().Str("stream", pb.id).Logger()
	if err := pb.stream.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop playback stream")
	}
	if err := pb.stream.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close playback stream")
	}
	p.reportFaults(pb)
	if err := pb.track.Err(); err != nil {
		log.Warn().Err(err).Str("path", pb.path).Msg("Track ended with decode error")
	}
	if err := pb.track.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close track")
	}
	log.Info().Str("path", pb.path).Msg("Playback stopped")
}

// Close stops playback and returns the player to Idle
func (p *Player) Close() error {
	p.playMu.Lock()
	defer p.playMu.Unlock()
	p.teardown(p.swap(nil, Idle))
	return nil
}

func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CurrentPath returns the path being played, if any
func (p *Player) CurrentPath() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return "", false
	}
	return p.cur.path, true
}

// Exhausted reports whether the current track has run out and the stream
// is writing silence
func (p *Player) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil && p.cur.exhausted.Load()
}

func (p *Player) Frames() *FrameChannel {
	return p.frames
}

func (p *Player) Device() Device {
	return p.device
}

func (p *Player) pollFaults() {
	p.mu.Lock()
	pb := p.cur
	p.mu.Unlock()
	if pb != nil {
		p.reportFaults(pb)
	}
}

func (p *Player) reportFaults(pb *playback) {
	for _, err := range statusErrors(pb.faults.take()) {
		p.reporter.Report(&StreamError{Stream: pb.id, Direction: Output, Err: err})
	}
}

func (p *Player) String() string {
	path, ok := p.CurrentPath()
	if !ok {
		return fmt.Sprintf("player(%s)", p.State())
	}
	return fmt.Sprintf("player(%s %s)", p.State(), path)
}
