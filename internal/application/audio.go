package application

import (
	"context"
	"time"

	"voice-assistant/internal/domain"
)

type AudioCapture interface {
	Capture(ctx context.Context, duration time.Duration, outputPath string) (*domain.AudioClip, error)
	Name() string
}

type ChannelNormalizer interface {
	ToMono(inputPath, outputPath string) (*domain.AudioClip, error)
}

type Player interface {
	Play(ctx context.Context, audioPath string) error
}
