package decode

import (
	"errors"
	"fmt"
)

// Kind classifies why a file could not be decoded
type Kind int

const (
	UnreadableFile Kind = iota + 1
	UnsupportedFormat
	CorruptStream
)

var (
	ErrUnreadableFile    = errors.New("unreadable file")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptStream     = errors.New("corrupt stream")

	// errUnsupported is returned by format openers for valid containers
	// carrying an encoding they cannot decode.
	errUnsupported = errors.New("unsupported encoding")
)

func (k Kind) String() string {
	switch k {
	case UnreadableFile:
		return "unreadable file"
	case UnsupportedFormat:
		return "unsupported format"
	case CorruptStream:
		return "corrupt stream"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case UnreadableFile:
		return ErrUnreadableFile
	case UnsupportedFormat:
		return ErrUnsupportedFormat
	default:
		return ErrCorruptStream
	}
}

// Error is returned by Open. It matches the sentinel for its Kind with
// errors.Is as well as the underlying cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}
