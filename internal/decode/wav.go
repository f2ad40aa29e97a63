package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

func openWAV(rs io.ReadSeeker) (source, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("invalid RIFF/WAVE header")
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, err
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav format tag %d", errUnsupported, dec.WavAudioFormat)
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate < 1 {
		return nil, errors.New("missing fmt chunk")
	}
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", errUnsupported, bitDepth)
	}

	// 8-bit WAV is stored unsigned
	return newIntSource(dec, format, bitDepth, bitDepth == 8), nil
}

func isWAV(h []byte) bool {
	return len(h) >= 12 && string(h[:4]) == "RIFF" && string(h[8:12]) == "WAVE"
}
