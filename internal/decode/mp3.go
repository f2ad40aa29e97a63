package decode

import (
	"encoding/binary"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the part of gomp3.Decoder the source uses
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec mp3Reader
	buf []byte
}

func openMP3(rs io.ReadSeeker) (source, error) {
	dec, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, err
	}
	return newMP3Source(dec), nil
}

func newMP3Source(dec mp3Reader) *mp3Source {
	return &mp3Source{dec: dec, buf: make([]byte, chunkFrames*4)}
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }

// Channels is always 2: go-mp3 emits interleaved stereo s16le
func (s *mp3Source) Channels() int { return 2 }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%2
	if cap(s.buf) < want*2 {
		s.buf = make([]byte, want*2)
	}
	buf := s.buf[:want*2]

	n, err := io.ReadFull(s.dec, buf)
	samples := n / 2
	samples -= samples % 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(buf[2*i:]))) / 32768.0
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

func isMP3(h []byte) bool {
	if len(h) >= 3 && string(h[:3]) == "ID3" {
		return true
	}
	return len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0
}
