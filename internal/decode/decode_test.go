package decode

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved 16-bit samples into a WAV file under t.TempDir
func writeWAV(t *testing.T, name string, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: 44100, NumChannels: channels},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

// writeHeaderOnlyWAV writes a canonical 44 byte PCM header with an empty data chunk
func writeHeaderOnlyWAV(t *testing.T, name string) string {
	t.Helper()

	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], 36)
	copy(h[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1)
	binary.LittleEndian.PutUint16(h[22:], 2)
	binary.LittleEndian.PutUint32(h[24:], 44100)
	binary.LittleEndian.PutUint32(h[28:], 44100*4)
	binary.LittleEndian.PutUint16(h[32:], 4)
	binary.LittleEndian.PutUint16(h[34:], 16)
	copy(h[36:], "data")

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, h, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestOpenWAVYieldsEveryPairThenEnds(t *testing.T) {
	const pairs = 10
	samples := make([]int, 0, pairs*2)
	for i := range pairs {
		samples = append(samples, i*1000, -i*1000)
	}
	path := writeWAV(t, "ten.wav", 2, samples)

	track, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer track.Close()

	if track.SampleRate() != 44100 {
		t.Errorf("SampleRate() = %d, want 44100", track.SampleRate())
	}
	if track.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", track.Channels())
	}

	for i := range pairs {
		l, r, ok := track.Next()
		if !ok {
			t.Fatalf("Next() #%d reported end of track early", i)
		}
		wantL := float32(i*1000) / 32768.0
		if l != wantL || r != -wantL {
			t.Fatalf("pair %d = (%f, %f), want (%f, %f)", i, l, r, wantL, -wantL)
		}
	}

	for i := range 5 {
		if _, _, ok := track.Next(); ok {
			t.Fatalf("Next() after end #%d reported a pair", i)
		}
	}
	if err := track.Err(); err != nil {
		t.Errorf("Err() = %v, want nil after clean end", err)
	}
}

func TestOpenAIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.aiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	enc := aiff.NewEncoder(f, 22050, 16, 2)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: 22050, NumChannels: 2},
		Data:           []int{16384, -16384, 8192, -8192, 0, 32767},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	track, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer track.Close()

	if track.SampleRate() != 22050 {
		t.Errorf("SampleRate() = %d, want 22050", track.SampleRate())
	}
	want := [][2]float32{{0.5, -0.5}, {0.25, -0.25}, {0, 32767.0 / 32768.0}}
	for i, w := range want {
		l, r, ok := track.Next()
		if !ok || l != w[0] || r != w[1] {
			t.Fatalf("pair %d = (%f, %f, %v), want (%f, %f, true)", i, l, r, ok, w[0], w[1])
		}
	}
	if _, _, ok := track.Next(); ok {
		t.Fatal("expected end of track")
	}
	if err := track.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestOpenMonoDuplicatesToBothSides(t *testing.T) {
	path := writeWAV(t, "mono.wav", 1, []int{8192, -8192, 16384})

	track, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer track.Close()

	want := []float32{0.25, -0.25, 0.5}
	for i, w := range want {
		l, r, ok := track.Next()
		if !ok || l != w || r != w {
			t.Fatalf("pair %d = (%f, %f, %v), want (%f, %f, true)", i, l, r, ok, w, w)
		}
	}
	if _, _, ok := track.Next(); ok {
		t.Fatal("expected end of track")
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.mp3")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	garbageMP3 := filepath.Join(dir, "garbage.mp3")
	if err := os.WriteFile(garbageMP3, []byte("This is not MP3 data at all"), 0644); err != nil {
		t.Fatal(err)
	}
	unknown := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unknown, []byte("plain text, no audio here"), 0644); err != nil {
		t.Fatal(err)
	}
	headerOnly := writeHeaderOnlyWAV(t, "header-only.wav")

	tests := []struct {
		name string
		path string
		kind Kind
		is   error
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.mp3"), kind: UnreadableFile, is: ErrUnreadableFile},
		{name: "directory", path: dir, kind: UnreadableFile, is: ErrUnreadableFile},
		{name: "zero length", path: empty, kind: CorruptStream, is: ErrCorruptStream},
		{name: "header only", path: headerOnly, kind: CorruptStream, is: ErrCorruptStream},
		{name: "garbage mp3", path: garbageMP3, kind: CorruptStream, is: ErrCorruptStream},
		{name: "unknown container", path: unknown, kind: UnsupportedFormat, is: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := Open(tt.path)
			if err == nil {
				track.Close()
				t.Fatal("Open() error = nil, want error")
			}

			var derr *Error
			if !errors.As(err, &derr) {
				t.Fatalf("Open() error = %T, want *Error", err)
			}
			if derr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", derr.Kind, tt.kind)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.is)
			}
			if derr.Path != tt.path {
				t.Errorf("Path = %q, want %q", derr.Path, tt.path)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		path   string
		want   string
		ok     bool
	}{
		{"wav magic", []byte("RIFF\x00\x00\x00\x00WAVE"), "x.bin", "wav", true},
		{"aiff magic", []byte("FORM\x00\x00\x00\x00AIFF"), "x.bin", "aiff", true},
		{"flac magic", []byte("fLaC\x00\x00\x00\x22"), "x", "flac", true},
		{"ogg magic", []byte("OggS\x00\x02"), "x", "ogg", true},
		{"id3 tag", []byte("ID3\x04\x00"), "x", "mp3", true},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "x", "mp3", true},
		{"extension fallback", []byte("????"), "song.OGG", "ogg", true},
		{"unknown", []byte("????"), "song.xyz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := detect(tt.header, tt.path)
			if ok != tt.ok {
				t.Fatalf("detect() ok = %v, want %v", ok, tt.ok)
			}
			if f.name != tt.want {
				t.Errorf("detect() = %q, want %q", f.name, tt.want)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	if !Supported("/music/a.flac") {
		t.Error("Supported(.flac) = false")
	}
	if Supported("/music/a.m4a") {
		t.Error("Supported(.m4a) = true")
	}
	if got := len(Formats()); got != len(formats) {
		t.Errorf("len(Formats()) = %d, want %d", got, len(formats))
	}
}
