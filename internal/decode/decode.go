// Package decode turns compressed audio files into lazily decoded tracks of
// stereo sample pairs.
//
// Only the container header is read when a track is opened; samples are
// decoded in small fixed chunks as Next is called, so a track can be pulled
// from a real-time callback without holding the whole file in memory.
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Track is a forward-only cursor over the sample pairs of one file
type Track interface {
	// Next returns the next left/right pair. Once it reports false it
	// keeps reporting false.
	Next() (left, right float32, ok bool)
	SampleRate() int
	// Channels is the channel count of the source, before stereo mapping.
	Channels() int
	// Err is the decode failure that ended the track early, if any.
	Err() error
	Close() error
}

// source is a format decoder producing interleaved float32 samples in [-1,1]
type source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst with whole frames and returns the number of
	// values written. io.EOF marks the end of the stream.
	ReadSamples(dst []float32) (int, error)
}

type format struct {
	name  string
	exts  []string
	magic func(header []byte) bool
	open  func(rs io.ReadSeeker) (source, error)
}

var formats = []format{
	{name: "wav", exts: []string{".wav", ".wave"}, magic: isWAV, open: openWAV},
	{name: "aiff", exts: []string{".aiff", ".aif"}, magic: isAIFF, open: openAIFF},
	{name: "flac", exts: []string{".flac"}, magic: isFLAC, open: openFLAC},
	{name: "ogg", exts: []string{".ogg", ".oga"}, magic: isOgg, open: openVorbis},
	{name: "mp3", exts: []string{".mp3"}, magic: isMP3, open: openMP3},
}

// Formats lists the names of the supported containers
func Formats() []string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.name)
	}
	return names
}

// Supported reports whether path has an extension a decoder claims
func Supported(path string) bool {
	_, ok := formatByExt(path)
	return ok
}

// Open reads the header of the file at path and returns a track positioned
// at its first sample pair.
func Open(path string) (Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(UnreadableFile, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newError(UnreadableFile, path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, newError(UnreadableFile, path, errors.New("is a directory"))
	}
	if info.Size() == 0 {
		f.Close()
		return nil, newError(CorruptStream, path, errors.New("empty file"))
	}

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		f.Close()
		return nil, newError(UnreadableFile, path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, newError(UnreadableFile, path, err)
	}

	fmtr, ok := detect(header[:n], path)
	if !ok {
		f.Close()
		return nil, newError(UnsupportedFormat, path, fmt.Errorf("unrecognized container %q", filepath.Ext(path)))
	}

	src, err := fmtr.open(f)
	if err != nil {
		f.Close()
		kind := CorruptStream
		if errors.Is(err, errUnsupported) {
			kind = UnsupportedFormat
		}
		return nil, newError(kind, path, fmt.Errorf("%s: %w", fmtr.name, err))
	}

	t := newTrack(src, f)
	if !t.prime() {
		f.Close()
		cause := t.Err()
		if cause == nil {
			cause = errors.New("no audio frames")
		}
		return nil, newError(CorruptStream, path, fmt.Errorf("%s: %w", fmtr.name, cause))
	}
	return t, nil
}

// detect prefers magic bytes and falls back to the file extension
func detect(header []byte, path string) (format, bool) {
	for _, f := range formats {
		if f.magic(header) {
			return f, true
		}
	}
	return formatByExt(path)
}

func formatByExt(path string) (format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		for _, e := range f.exts {
			if e == ext {
				return f, true
			}
		}
	}
	return format{}, false
}
