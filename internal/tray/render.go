package tray

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/petems/scope-tray/internal/audio"
)

var bars = []rune("▁▂▃▄▅▆▇█")

// sparklineWidth is the number of bars drawn in the tray title
const sparklineWidth = 12

// peak returns the largest absolute sample in w
func peak(w []float32) float32 {
	var p float32
	for _, s := range w {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	return p
}

// sparkline splits w into width buckets and draws each bucket's peak. An
// empty window draws a flat line.
func sparkline(w []float32, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	for i := range width {
		lo := i * len(w) / width
		hi := (i + 1) * len(w) / width
		var p float32
		if hi > lo {
			p = peak(w[lo:hi])
		}
		b.WriteRune(barFor(p))
	}
	return b.String()
}

func barFor(p float32) rune {
	if p <= 0 {
		return bars[0]
	}
	idx := int(math.Ceil(float64(min(p, 1))*float64(len(bars)))) - 1
	return bars[max(idx, 0)]
}

// levelDB converts a peak to dBFS, floored at -60
func levelDB(p float32) float64 {
	if p <= 0 {
		return -60
	}
	return max(20*math.Log10(float64(p)), -60)
}

// title renders the tray title for one tick
func title(status string, v audio.View) string {
	icon := "🎤"
	if v.Source == audio.SourcePlayback {
		icon = "🎵"
	}
	if v.Window == nil {
		return fmt.Sprintf("%s %s", icon, emojiForStatus(status))
	}
	return fmt.Sprintf("%s %s %s", icon, emojiForStatus(status), sparkline(v.Window, sparklineWidth))
}

// tooltip describes the view in words
func tooltip(status string, v audio.View, lastErr error) string {
	var b strings.Builder
	switch v.Source {
	case audio.SourcePlayback:
		fmt.Fprintf(&b, "Playing %s", filepath.Base(v.Path))
		if v.Exhausted {
			b.WriteString(" (ended)")
		}
	default:
		b.WriteString("Monitoring input")
	}
	if v.Window != nil {
		fmt.Fprintf(&b, " | peak %.1f dBFS", levelDB(peak(v.Window)))
	}
	if status == "error" && lastErr != nil {
		fmt.Fprintf(&b, " | %v", lastErr)
	}
	return b.String()
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "playing":
		return "🔵" // Blue - playing a file
	case "idle":
		return "🟢" // Green - monitoring input
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}
