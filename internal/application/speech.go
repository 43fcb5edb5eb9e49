package application

import (
	"context"

	"voice-assistant/internal/domain"
)

type Transcriber interface {
	Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcript, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) (*domain.SynthesizedAudio, error)
}

// ResponseGenerator turns a transcript into the reply to speak. A nil
// generator puts the controller in echo mode.
type ResponseGenerator interface {
	Generate(ctx context.Context, transcript, systemPrompt string) (string, error)
}
