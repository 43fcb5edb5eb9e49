//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"voice-assistant/internal/domain"
)

// SpeakerPlayer plays 16-bit WAV files on the default output device.
type SpeakerPlayer struct {
	logger *slog.Logger
}

func NewSpeakerPlayer(logger *slog.Logger) *SpeakerPlayer {
	return &SpeakerPlayer{logger: logger}
}

func (s *SpeakerPlayer) Play(ctx context.Context, path string) error {
	buf, clip, err := decodeWAV(path)
	if err != nil {
		return domain.Wrap(domain.ErrPlayback, "play", err)
	}
	if clip.BitDepth != domain.BitDepth {
		return domain.Wrap(domain.ErrPlayback, "play", fmt.Errorf("unsupported bit depth %d", clip.BitDepth))
	}
	if err := initPortAudio(); err != nil {
		return domain.Wrap(domain.ErrPlayback, "play", err)
	}

	out := make([]int16, framesPerBuffer*clip.Channels)
	stream, err := portaudio.OpenDefaultStream(0, clip.Channels, float64(clip.SampleRate), framesPerBuffer, out)
	if err != nil {
		return domain.Wrap(domain.ErrPlayback, "play", fmt.Errorf("opening stream: %w", err))
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return domain.Wrap(domain.ErrPlayback, "play", fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Stop()

	s.logger.Info("playing", "path", path, "duration", clip.Duration())

	for off := 0; off < len(buf.Data); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range out {
			out[i] = 0
			if off+i < len(buf.Data) {
				out[i] = int16(buf.Data[off+i])
			}
		}
		if err := stream.Write(); err != nil {
			return domain.Wrap(domain.ErrPlayback, "play", fmt.Errorf("writing to stream: %w", err))
		}
	}
	return nil
}
