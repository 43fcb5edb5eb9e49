package googlecloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

// SpeechClient transcribes mono LINEAR16 clips with Cloud Speech-to-Text.
type SpeechClient struct {
	svc          *speech.Service
	languageCode string
	model        string
	retry        infra.RetryPolicy
	logger       *slog.Logger
}

type SpeechConfig struct {
	LanguageCode string
	// Model is optional, e.g. "latest_short".
	Model string
}

func NewSpeechClient(
	ctx context.Context,
	creds Credentials,
	cfg SpeechConfig,
	retry infra.RetryPolicy,
	logger *slog.Logger,
	extra ...option.ClientOption,
) (*SpeechClient, error) {
	svc, err := speech.NewService(ctx, append(creds.options(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating speech service: %w", err)
	}
	return &SpeechClient{
		svc:          svc,
		languageCode: cfg.LanguageCode,
		model:        cfg.Model,
		retry:        retry,
		logger:       logger,
	}, nil
}

func (c *SpeechClient) Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcript, error) {
	if !clip.IsMono() {
		channels := 0
		if clip != nil {
			channels = clip.Channels
		}
		return domain.Transcript{}, domain.Wrap(domain.ErrDecode, "recognize",
			fmt.Errorf("expected mono audio, got %d channels", channels))
	}

	data, err := os.ReadFile(clip.Path)
	if err != nil {
		return domain.Transcript{}, domain.Wrap(domain.ErrDecode, "recognize", fmt.Errorf("reading clip: %w", err))
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   int64(clip.SampleRate),
			LanguageCode:      c.languageCode,
			AudioChannelCount: 1,
			Model:             c.model,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(data),
		},
	}

	var resp *speech.RecognizeResponse
	err = c.retry.Do(ctx, func() error {
		r, err := c.svc.Speech.Recognize(req).Context(ctx).Do()
		if err != nil {
			return apiError("speech", err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return domain.Transcript{}, domain.Wrap(domain.ErrService, "recognize", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		parts = append(parts, result.Alternatives[0].Transcript)
	}

	c.logger.Debug("recognized speech", "results", len(resp.Results))
	return domain.Transcript{Text: strings.Join(parts, "")}, nil
}
