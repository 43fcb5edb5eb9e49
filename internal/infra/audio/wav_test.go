package audio

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encodeWAV(path, buf, 16); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestFramesFor(t *testing.T) {
	tests := []struct {
		duration time.Duration
		rate     int
		want     int
	}{
		{5 * time.Second, 44100, 220500},
		{1500 * time.Millisecond, 44100, 66150},
		{time.Second, 16000, 16000},
		{0, 44100, 0},
	}

	for _, tt := range tests {
		if got := framesFor(tt.duration, tt.rate); got != tt.want {
			t.Errorf("framesFor(%s, %d) = %d, want %d", tt.duration, tt.rate, got, tt.want)
		}
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	data := []int{100, -100, 200, -200, 300, -300}
	writeTestWAV(t, path, 44100, 2, data)

	buf, clip, err := decodeWAV(path)
	if err != nil {
		t.Fatalf("decodeWAV error: %v", err)
	}

	if clip.Channels != 2 || clip.SampleRate != 44100 || clip.BitDepth != 16 {
		t.Errorf("unexpected format: %+v", clip)
	}
	if clip.Frames != 3 {
		t.Errorf("frames: got %d, want 3", clip.Frames)
	}
	for i, v := range data {
		if buf.Data[i] != v {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Data[i], v)
		}
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := decodeWAV(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}

	junk := filepath.Join(dir, "junk.wav")
	writeFile(t, junk, []byte("definitely not a riff header"))
	if _, _, err := decodeWAV(junk); err == nil {
		t.Error("expected error for invalid file")
	}
}
