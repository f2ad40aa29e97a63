// Package host binds audio.Host to real audio backends.
package host

import (
	"fmt"
	"strings"

	"github.com/petems/scope-tray/internal/audio"
	"github.com/rs/zerolog"
)

const (
	BackendPortAudio = "portaudio"
	BackendMiniaudio = "miniaudio"
)

// maxChannels caps negotiated channel counts; nothing past stereo is ever
// produced or displayed.
const maxChannels = 2

// New initializes the named backend. An empty name selects PortAudio.
func New(backend string, log zerolog.Logger) (audio.Host, error) {
	switch strings.ToLower(backend) {
	case "", BackendPortAudio:
		return NewPortAudio(log)
	case BackendMiniaudio, "malgo":
		return NewMiniaudio(log)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

func capChannels(n int) int {
	return min(n, maxChannels)
}
