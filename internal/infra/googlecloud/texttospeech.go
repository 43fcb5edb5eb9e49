package googlecloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

type VoiceConfig struct {
	LanguageCode string
	// Name picks a specific voice; empty lets the service choose.
	Name string
	// Gender is an SSML gender: FEMALE, MALE or NEUTRAL.
	Gender string
	// SampleRate of the returned audio; zero uses the voice's native rate.
	SampleRate int
}

// TextToSpeechClient synthesizes LINEAR16 WAV audio with Cloud Text-to-Speech.
type TextToSpeechClient struct {
	svc    *texttospeech.Service
	voice  VoiceConfig
	retry  infra.RetryPolicy
	logger *slog.Logger
}

func NewTextToSpeechClient(
	ctx context.Context,
	creds Credentials,
	voice VoiceConfig,
	retry infra.RetryPolicy,
	logger *slog.Logger,
	extra ...option.ClientOption,
) (*TextToSpeechClient, error) {
	svc, err := texttospeech.NewService(ctx, append(creds.options(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating text-to-speech service: %w", err)
	}
	if voice.Gender == "" {
		voice.Gender = "FEMALE"
	}
	return &TextToSpeechClient{
		svc:    svc,
		voice:  voice,
		retry:  retry,
		logger: logger,
	}, nil
}

func (c *TextToSpeechClient) Synthesize(ctx context.Context, text, outputPath string) (*domain.SynthesizedAudio, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: c.voice.LanguageCode,
			Name:         c.voice.Name,
			SsmlGender:   c.voice.Gender,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: int64(c.voice.SampleRate),
		},
	}

	var resp *texttospeech.SynthesizeSpeechResponse
	err := c.retry.Do(ctx, func() error {
		r, err := c.svc.Text.Synthesize(req).Context(ctx).Do()
		if err != nil {
			return apiError("text-to-speech", err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(domain.ErrService, "synthesize", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, domain.Wrap(domain.ErrService, "synthesize", fmt.Errorf("decoding audio content: %w", err))
	}
	if len(audio) == 0 {
		return nil, domain.Wrap(domain.ErrService, "synthesize", fmt.Errorf("empty audio content"))
	}

	if err := os.WriteFile(outputPath, audio, 0644); err != nil {
		return nil, domain.Wrap(domain.ErrService, "synthesize", fmt.Errorf("writing %s: %w", outputPath, err))
	}

	c.logger.Debug("synthesized speech", "bytes", len(audio), "path", outputPath)
	return &domain.SynthesizedAudio{Path: outputPath, Bytes: len(audio)}, nil
}
