package decode

import (
	"io"

	goaudio "github.com/go-audio/audio"
)

// pcmReader is the decoding half shared by go-audio's wav and aiff decoders
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource converts go-audio integer PCM to normalized float32
type intSource struct {
	dec        pcmReader
	sampleRate int
	channels   int
	bitDepth   int
	unsigned8  bool
	intBuf     *goaudio.IntBuffer
}

func newIntSource(dec pcmReader, format *goaudio.Format, bitDepth int, unsigned8 bool) *intSource {
	return &intSource{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   bitDepth,
		unsigned8:  unsigned8,
		intBuf: &goaudio.IntBuffer{
			Format:         format,
			Data:           make([]int, chunkFrames*max(format.NumChannels, 1)),
			SourceBitDepth: bitDepth,
		},
	}
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.intBuf.Data) < want {
		s.intBuf.Data = make([]int, want)
	}
	s.intBuf.Data = s.intBuf.Data[:want]

	n, err := s.dec.PCMBuffer(s.intBuf)
	n = min(n, want)
	n -= n % s.channels
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	scale := fullScale(s.bitDepth)
	for i := range n {
		v := s.intBuf.Data[i]
		if s.unsigned8 {
			v -= 128
		}
		dst[i] = float32(v) / scale
	}
	return n, err
}

func fullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}
