//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voice-assistant/internal/domain"
)

var errNoPortAudio = errors.New("portaudio not available: rebuild with -tags portaudio")

// MicrophoneCapture stub when portaudio is not available
type MicrophoneCapture struct {
	logger *slog.Logger
}

func NewMicrophoneCapture(_ int, logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "microphone"
}

func (m *MicrophoneCapture) Capture(_ context.Context, _ time.Duration, _ string) (*domain.AudioClip, error) {
	return nil, domain.Wrap(domain.ErrDevice, "capture", errNoPortAudio)
}

// SpeakerPlayer stub when portaudio is not available
type SpeakerPlayer struct {
	logger *slog.Logger
}

func NewSpeakerPlayer(logger *slog.Logger) *SpeakerPlayer {
	return &SpeakerPlayer{logger: logger}
}

func (s *SpeakerPlayer) Play(_ context.Context, _ string) error {
	return domain.Wrap(domain.ErrPlayback, "play", errNoPortAudio)
}

func Shutdown() error {
	return nil
}
