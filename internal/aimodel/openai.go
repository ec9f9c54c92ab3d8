package aimodel

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"jyra/internal/apperrors"
)

const openAIChatModel = "gpt-3.5-turbo"

// OpenAIProvider implements ModelProvider over github.com/openai/openai-go's
// chat-completion endpoint, grounded on the original Python OpenAIModel's
// message-list assembly (system, then optional memory system turn, then
// history, then the current prompt).
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(option.WithAPIKey(apiKey)), model: openAIChatModel}
}

func (p *OpenAIProvider) Capabilities() Capabilities {
	return Capabilities{
		Name:              "openai",
		Provider:          "openai",
		MaxContextLength:  16384,
		SupportsStreaming: true,
		CostPer1KTokens:   0.0015,
	}
}

func (p *OpenAIProvider) Available(ctx context.Context) bool { return true }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, role RoleContext, history []Turn, memoryContext string, opts Options) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildSystemPrompt(role)),
	}
	if msg, ok := memoryContextMessage(memoryContext); ok {
		messages = append(messages, openai.SystemMessage(msg))
	}
	for _, t := range history {
		if t.Role == TurnAssistant {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    messages,
		Temperature: openai.Float(opts.Temperature),
		TopP:        openai.Float(opts.TopP),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if len(opts.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopSequences}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIChatError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.KindProviderError, "openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIChatError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return apperrors.Wrap(apperrors.KindRateLimit, "openai generate", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.Wrap(apperrors.KindAuth, "openai generate", err)
		default:
			return apperrors.Wrap(apperrors.KindProviderError, "openai generate", err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return apperrors.Wrap(apperrors.KindRateLimit, "openai generate", err)
	}
	return apperrors.Wrap(apperrors.KindProviderError, "openai generate", err)
}
