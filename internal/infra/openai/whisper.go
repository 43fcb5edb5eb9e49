package openai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

// WhisperClient transcribes clips through an OpenAI-compatible
// /audio/transcriptions endpoint.
type WhisperClient struct {
	client   oai.Client
	model    oai.AudioModel
	language string
}

func NewWhisperClient(apiKey, language string, retry infra.RetryPolicy) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "", retry)
}

func NewWhisperClientWithURL(apiKey, language, baseURL string, retry infra.RetryPolicy) *WhisperClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(max(retry.MaxAttempts-1, 0)),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &WhisperClient{
		client:   oai.NewClient(reqOpts...),
		model:    oai.AudioModelWhisper1,
		language: whisperLanguage(language),
	}
}

// whisperLanguage reduces a BCP-47 tag such as en-US to the ISO-639-1 code
// the endpoint expects.
func whisperLanguage(code string) string {
	lang, _, _ := strings.Cut(code, "-")
	return strings.ToLower(lang)
}

func (c *WhisperClient) Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcript, error) {
	if !clip.IsMono() {
		return domain.Transcript{}, domain.Wrap(domain.ErrDecode, "transcribe", fmt.Errorf("expected mono audio"))
	}

	f, err := os.Open(clip.Path)
	if err != nil {
		return domain.Transcript{}, domain.Wrap(domain.ErrDecode, "transcribe", fmt.Errorf("opening clip: %w", err))
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(f, filepath.Base(clip.Path), "audio/wav"),
		Model: c.model,
	}
	if c.language != "" {
		params.Language = param.NewOpt(c.language)
	}

	result, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return domain.Transcript{}, domain.Wrap(domain.ErrService, "transcribe", fmt.Errorf("transcription: %w", err))
	}

	return domain.Transcript{Text: strings.TrimSpace(result.Text)}, nil
}
