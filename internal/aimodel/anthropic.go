package aimodel

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"jyra/internal/apperrors"
)

const anthropicChatModel = "claude-3-5-haiku-20241022"

// AnthropicProvider implements ModelProvider over
// github.com/anthropics/anthropic-sdk-go's Messages endpoint. Gives
// ModelRouter a third real rung in the fallback chain.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{client: anthropic.NewClient(option.WithAPIKey(apiKey)), model: anthropicChatModel}
}

func (p *AnthropicProvider) Capabilities() Capabilities {
	return Capabilities{
		Name:              "anthropic",
		Provider:          "anthropic",
		MaxContextLength:  200_000,
		SupportsStreaming: true,
		CostPer1KTokens:   0.0008,
	}
}

func (p *AnthropicProvider) Available(ctx context.Context) bool { return true }

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, role RoleContext, history []Turn, memoryContext string, opts Options) (string, error) {
	system := []anthropic.TextBlockParam{{Text: buildSystemPrompt(role)}}
	if msg, ok := memoryContextMessage(memoryContext); ok {
		system = append(system, anthropic.TextBlockParam{Text: msg})
	}

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, t := range history {
		if t.Role == TurnAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
		Temperature: anthropic.Float(opts.Temperature),
		TopP:        anthropic.Float(opts.TopP),
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", apperrors.New(apperrors.KindProviderError, "anthropic returned no text content")
	}
	return sb.String(), nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return apperrors.Wrap(apperrors.KindRateLimit, "anthropic generate", err)
		case 401, 403:
			return apperrors.Wrap(apperrors.KindAuth, "anthropic generate", err)
		default:
			return apperrors.Wrap(apperrors.KindProviderError, "anthropic generate", err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return apperrors.Wrap(apperrors.KindRateLimit, "anthropic generate", err)
	}
	return apperrors.Wrap(apperrors.KindProviderError, "anthropic generate", err)
}
