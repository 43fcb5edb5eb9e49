// Package anyllm answers transcripts through github.com/mozilla-ai/any-llm-go,
// which puts the Anthropic and Gemini SDKs behind one completion API.
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

const defaultMaxTokens = 256

var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-20250514",
	"gemini":    "gemini-2.0-flash",
}

// Generator implements application.ResponseGenerator for one provider.
type Generator struct {
	backend   anyllmlib.Provider
	provider  string
	model     string
	maxTokens int
	retry     infra.RetryPolicy
}

// New creates a Generator for provider ("anthropic" or "gemini"). baseURL is
// optional. Requests are bounded only by the caller's context.
func New(provider, apiKey, model, baseURL string, retry infra.RetryPolicy, extra ...anyllmlib.Option) (*Generator, error) {
	if model == "" {
		model = defaultModels[provider]
	}

	opts := []anyllmlib.Option{
		anyllmlib.WithAPIKey(apiKey),
		anyllmlib.WithHTTPClient(&http.Client{}),
	}
	if baseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	var (
		backend anyllmlib.Provider
		err     error
	)
	switch provider {
	case "anthropic":
		backend, err = anthropic.New(opts...)
	case "gemini":
		backend, err = gemini.New(opts...)
	default:
		return nil, fmt.Errorf("anyllm: unsupported provider %q", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("anyllm: creating %s backend: %w", provider, err)
	}

	return &Generator{
		backend:   backend,
		provider:  provider,
		model:     model,
		maxTokens: defaultMaxTokens,
		retry:     retry,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, transcript, systemPrompt string) (string, error) {
	var messages []anyllmlib.Message
	if systemPrompt != "" {
		messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: transcript})

	maxTokens := g.maxTokens
	params := anyllmlib.CompletionParams{
		Model:     g.model,
		Messages:  messages,
		MaxTokens: &maxTokens,
	}

	var resp *anyllmlib.ChatCompletion
	err := g.retry.Do(ctx, func() error {
		r, err := g.backend.Completion(ctx, params)
		if err != nil {
			if errors.Is(err, anyllmlib.ErrRateLimit) || errors.Is(err, anyllmlib.ErrProvider) {
				return infra.Retryable(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", domain.Wrap(domain.ErrService, "generate", fmt.Errorf("%s completion: %w", g.provider, err))
	}

	if len(resp.Choices) == 0 {
		return "", domain.Wrap(domain.ErrService, "generate", fmt.Errorf("no choices from %s", g.provider))
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if reply == "" {
		return "", domain.Wrap(domain.ErrService, "generate", fmt.Errorf("empty response from %s", g.provider))
	}
	return reply, nil
}
