package audio

import (
	"errors"
	"fmt"
)

var (
	ErrNoDevice          = errors.New("no audio device available")
	ErrUnsupportedConfig = errors.New("device reports no usable configuration")
	ErrStreamBuild       = errors.New("failed to build audio stream")
	ErrSessionState      = errors.New("invalid session state")

	ErrInputOverflow   = errors.New("input overflow")
	ErrInputUnderflow  = errors.New("input underflow")
	ErrOutputUnderflow = errors.New("output underflow")
	ErrOutputOverflow  = errors.New("output overflow")
)

// StreamError is a fault reported for a running stream. It never stops the
// process; at most it ends the affected stream.
type StreamError struct {
	Stream    string
	Direction Direction
	Err       error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream %s: %v", e.Direction, e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// statusErrors maps the status bits set during a poll interval to errors
func statusErrors(s Status) []error {
	var errs []error
	if s&StatusInputOverflow != 0 {
		errs = append(errs, ErrInputOverflow)
	}
	if s&StatusInputUnderflow != 0 {
		errs = append(errs, ErrInputUnderflow)
	}
	if s&StatusOutputUnderflow != 0 {
		errs = append(errs, ErrOutputUnderflow)
	}
	if s&StatusOutputOverflow != 0 {
		errs = append(errs, ErrOutputOverflow)
	}
	return errs
}

func buildError(dev Device, err error) error {
	return fmt.Errorf("%w: %s device %q: %w", ErrStreamBuild, dev.Direction, dev.Name, err)
}
