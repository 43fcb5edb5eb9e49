package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voice-assistant/internal/domain"
)

// FileCapture stands in for a microphone by replaying the WAV files of a
// directory in name order, one per turn. Each clip is trimmed or padded with
// silence to the requested duration.
type FileCapture struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	next int
}

func NewFileCapture(dir string, logger *slog.Logger) *FileCapture {
	return &FileCapture{
		dir:    dir,
		logger: logger,
	}
}

func (f *FileCapture) Name() string {
	return "file"
}

func (f *FileCapture) Capture(ctx context.Context, duration time.Duration, outputPath string) (*domain.AudioClip, error) {
	if duration <= 0 {
		return nil, domain.Wrap(domain.ErrDevice, "capture", fmt.Errorf("invalid duration %s", duration))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := f.nextClip()
	if err != nil {
		return nil, domain.Wrap(domain.ErrDevice, "capture", err)
	}

	buf, clip, err := decodeWAV(source)
	if err != nil {
		return nil, domain.Wrap(domain.ErrDecode, "capture", err)
	}

	frames := framesFor(duration, clip.SampleRate)
	buf.Data = fit(buf.Data, frames*clip.Channels)

	if err := encodeWAV(outputPath, buf, clip.BitDepth); err != nil {
		return nil, domain.Wrap(domain.ErrDevice, "capture", err)
	}

	f.logger.Info("replayed clip", "source", filepath.Base(source), "duration", duration)

	clip.Path = outputPath
	clip.Frames = frames
	return clip, nil
}

func (f *FileCapture) nextClip() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", err)
	}

	var clips []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		clips = append(clips, filepath.Join(f.dir, entry.Name()))
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no wav files in %s", f.dir)
	}

	path := clips[f.next%len(clips)]
	f.next++
	return path, nil
}

// fit trims samples to n or pads them with silence.
func fit(samples []int, n int) []int {
	if len(samples) >= n {
		return samples[:n]
	}
	out := make([]int, n)
	copy(out, samples)
	return out
}
