package decode

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of oggvorbis.Reader the source uses
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec oggReader
}

func openVorbis(rs io.ReadSeeker) (source, error) {
	dec, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, err
	}
	return &vorbisSource{dec: dec}, nil
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.dec.Channels() }

// ReadSamples reads whole frames; oggvorbis counts values, not frames
func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	ch := s.dec.Channels()
	want := len(dst) - len(dst)%ch
	if want == 0 {
		return 0, nil
	}
	n, err := s.dec.Read(dst[:want])
	return n - n%ch, err
}

func isOgg(h []byte) bool {
	return len(h) >= 4 && string(h[:4]) == "OggS"
}
