package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient wraps the OpenAI chat completions API behind the Completer capability.
type OpenAIClient struct {
	client    openai.Client
	modelName string
}

// NewOpenAIClient creates a Completer backed by the OpenAI API.
func NewOpenAIClient(apiKey, baseURL string, spec ModelSpec) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		modelName: spec.ID,
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, system string, history []Message, input string) (string, error) {
	if o == nil {
		return "", errors.New("openai client is not initialized")
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("input must not be empty")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, msg := range history {
		if msg.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(input))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.modelName),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}

	return output, nil
}

func (o *OpenAIClient) Model() string {
	if o == nil {
		return ""
	}
	return o.modelName
}
