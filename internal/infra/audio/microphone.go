//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"

	"voice-assistant/internal/domain"
)

// MicrophoneCapture records from the default input device for the full
// requested duration.
type MicrophoneCapture struct {
	channels int
	logger   *slog.Logger
}

func NewMicrophoneCapture(channels int, logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{
		channels: channels,
		logger:   logger,
	}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Capture(ctx context.Context, duration time.Duration, outputPath string) (*domain.AudioClip, error) {
	if duration <= 0 {
		return nil, domain.Wrap(domain.ErrDevice, "capture", fmt.Errorf("invalid duration %s", duration))
	}
	if err := initPortAudio(); err != nil {
		return nil, domain.Wrap(domain.ErrDevice, "capture", err)
	}

	in := make([]int16, framesPerBuffer*m.channels)
	stream, err := portaudio.OpenDefaultStream(m.channels, 0, float64(domain.SampleRate), framesPerBuffer, in)
	if err != nil {
		return nil, domain.Wrap(domain.ErrDevice, "capture", fmt.Errorf("opening stream: %w", err))
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, domain.Wrap(domain.ErrDevice, "capture", fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Stop()

	m.logger.Info("recording", "duration", duration, "channels", m.channels)

	frames := framesFor(duration, domain.SampleRate)
	samples := make([]int, 0, frames*m.channels)
	for remaining := frames; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, domain.Wrap(domain.ErrDevice, "capture", fmt.Errorf("reading from stream: %w", err))
		}

		n := min(remaining, framesPerBuffer)
		for _, s := range in[:n*m.channels] {
			samples = append(samples, int(s))
		}
		remaining -= n
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: m.channels, SampleRate: domain.SampleRate},
		Data:           samples,
		SourceBitDepth: domain.BitDepth,
	}
	if err := encodeWAV(outputPath, buf, domain.BitDepth); err != nil {
		return nil, domain.Wrap(domain.ErrDevice, "capture", err)
	}

	return &domain.AudioClip{
		Path:       outputPath,
		SampleRate: domain.SampleRate,
		Channels:   m.channels,
		BitDepth:   domain.BitDepth,
		Frames:     frames,
	}, nil
}
