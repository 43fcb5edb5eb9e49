package openai

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

const defaultChatModel = "gpt-4o-mini"

// ChatClient generates replies with the Chat Completions API. Any
// OpenAI-compatible server works through the base URL.
type ChatClient struct {
	client    oai.Client
	model     string
	maxTokens int64
}

func NewChatClient(apiKey, model, baseURL string, retry infra.RetryPolicy) (*ChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	if model == "" {
		model = defaultChatModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(max(retry.MaxAttempts-1, 0)),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &ChatClient{
		client:    oai.NewClient(reqOpts...),
		model:     model,
		maxTokens: 256,
	}, nil
}

func (c *ChatClient) Generate(ctx context.Context, transcript, systemPrompt string) (string, error) {
	var messages []oai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, oai.SystemMessage(systemPrompt))
	}
	messages = append(messages, oai.UserMessage(transcript))

	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: param.NewOpt(c.maxTokens),
	})
	if err != nil {
		return "", domain.Wrap(domain.ErrService, "generate", fmt.Errorf("chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", domain.Wrap(domain.ErrService, "generate", fmt.Errorf("no choices in response"))
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", domain.Wrap(domain.ErrService, "generate", fmt.Errorf("empty completion"))
	}
	return reply, nil
}
