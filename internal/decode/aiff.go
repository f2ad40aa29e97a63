package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
)

func openAIFF(rs io.ReadSeeker) (source, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("invalid FORM/AIFF header")
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, err
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate < 1 {
		return nil, errors.New("missing COMM chunk")
	}
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit aiff", errUnsupported, bitDepth)
	}

	return newIntSource(dec, format, bitDepth, false), nil
}

func isAIFF(h []byte) bool {
	return len(h) >= 12 && string(h[:4]) == "FORM" && (string(h[8:12]) == "AIFF" || string(h[8:12]) == "AIFC")
}
