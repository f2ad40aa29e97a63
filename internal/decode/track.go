package decode

import (
	"errors"
	"io"
)

const (
	chunkFrames = 1024
	// maxEmptyReads bounds how often a decoder may return nothing without
	// an error before the track is treated as finished.
	maxEmptyReads = 8
)

type track struct {
	src    source
	closer io.Closer

	buf      []float32
	pos, end int
	done     bool
	err      error
}

func newTrack(src source, closer io.Closer) *track {
	ch := src.Channels()
	if ch < 1 {
		ch = 1
	}
	return &track{
		src:    src,
		closer: closer,
		buf:    make([]float32, chunkFrames*ch),
	}
}

func (t *track) SampleRate() int { return t.src.SampleRate() }
func (t *track) Channels() int   { return t.src.Channels() }
func (t *track) Err() error      { return t.err }

func (t *track) Close() error {
	t.done = true
	t.pos, t.end = 0, 0
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func (t *track) Next() (float32, float32, bool) {
	if t.pos >= t.end && !t.fill() {
		return 0, 0, false
	}

	ch := t.src.Channels()
	frame := t.buf[t.pos : t.pos+ch]
	t.pos += ch
	if ch == 1 {
		return frame[0], frame[0], true
	}
	return frame[0], frame[1], true
}

// prime decodes the first chunk so that empty streams are caught at open
func (t *track) prime() bool {
	return t.fill()
}

func (t *track) fill() bool {
	ch := t.src.Channels()
	if ch < 1 {
		t.done = true
		t.err = errors.New("stream reports no channels")
		return false
	}

	for empty := 0; !t.done && empty < maxEmptyReads; empty++ {
		n, err := t.src.ReadSamples(t.buf)
		n -= n % ch
		t.pos, t.end = 0, n
		if err != nil {
			t.done = true
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				t.err = err
			}
		}
		if n > 0 {
			return true
		}
	}
	t.done = true
	return false
}
