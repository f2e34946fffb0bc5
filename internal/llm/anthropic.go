package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient wraps the Anthropic Messages API behind the Completer capability.
type AnthropicClient struct {
	client    anthropic.Client
	modelName string
	maxTokens int
}

// NewAnthropicClient creates a Completer backed by the Anthropic API. An empty
// baseURL uses the default endpoint; the original service supports proxy
// deployments, so the override is kept.
func NewAnthropicClient(apiKey, baseURL string, spec ModelSpec) (*AnthropicClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	maxTokens := spec.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		modelName: spec.ID,
		maxTokens: maxTokens,
	}, nil
}

func (a *AnthropicClient) Complete(ctx context.Context, system string, history []Message, input string) (string, error) {
	if a == nil {
		return "", errors.New("anthropic client is not initialized")
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("input must not be empty")
	}

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(input)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.modelName),
		MaxTokens: int64(a.maxTokens),
		Messages:  messages,
	}
	if system = strings.TrimSpace(system); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("anthropic api returned empty response")
	}

	return output, nil
}

func (a *AnthropicClient) Model() string {
	if a == nil {
		return ""
	}
	return a.modelName
}
