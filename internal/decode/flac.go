package decode

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
)

// flacSource adapts a beep streamer, which always yields stereo pairs
type flacSource struct {
	s          beep.Streamer
	sampleRate int
	pairs      [][2]float64
}

func openFLAC(rs io.ReadSeeker) (source, error) {
	s, format, err := flac.Decode(rs)
	if err != nil {
		return nil, err
	}
	return &flacSource{
		s:          s,
		sampleRate: int(format.SampleRate),
		pairs:      make([][2]float64, chunkFrames),
	}, nil
}

func (s *flacSource) SampleRate() int { return s.sampleRate }
func (s *flacSource) Channels() int   { return 2 }

func (s *flacSource) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / 2
	if frames == 0 {
		return 0, nil
	}
	if cap(s.pairs) < frames {
		s.pairs = make([][2]float64, frames)
	}
	pairs := s.pairs[:frames]

	n, ok := s.s.Stream(pairs)
	for i := range n {
		dst[2*i] = float32(pairs[i][0])
		dst[2*i+1] = float32(pairs[i][1])
	}
	if !ok {
		if err := s.s.Err(); err != nil {
			return 2 * n, err
		}
		return 2 * n, io.EOF
	}
	return 2 * n, nil
}

func isFLAC(h []byte) bool {
	return len(h) >= 4 && string(h[:4]) == "fLaC"
}
