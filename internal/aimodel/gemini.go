package aimodel

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"jyra/internal/apperrors"
)

const geminiChatModel = "gemini-1.5-flash"

// GeminiProvider implements ModelProvider over google.golang.org/genai's
// chat-completion endpoint, grounded on haivivi-giztoy's
// pkg/genx/gemini.go (GeminiGenerator.convModelContext/Invoke shape).
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindProviderError, "create gemini client", err)
	}
	return &GeminiProvider{client: client, model: geminiChatModel}, nil
}

func (p *GeminiProvider) Capabilities() Capabilities {
	return Capabilities{
		Name:              "gemini",
		Provider:          "google",
		MaxContextLength:  1_000_000,
		SupportsStreaming: true,
		CostPer1KTokens:   0.000075,
	}
}

func (p *GeminiProvider) Available(ctx context.Context) bool {
	return p.client != nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, role RoleContext, history []Turn, memoryContext string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(buildSystemPrompt(role))}},
	}
	if msg, ok := memoryContextMessage(memoryContext); ok {
		cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts, genai.NewPartFromText(msg))
	}
	temp := float32(opts.Temperature)
	topP := float32(opts.TopP)
	topK := float32(opts.TopK)
	cfg.Temperature = &temp
	cfg.TopP = &topP
	cfg.TopK = &topK
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if len(opts.StopSequences) > 0 {
		cfg.StopSequences = opts.StopSequences
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := genai.RoleUser
		if t.Role == TurnAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", classifyGeminiChatError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperrors.New(apperrors.KindProviderError, "gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func classifyGeminiChatError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return apperrors.Wrap(apperrors.KindRateLimit, "gemini generate", err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "permission") || strings.Contains(msg, "api key"):
		return apperrors.Wrap(apperrors.KindAuth, "gemini generate", err)
	default:
		return apperrors.Wrap(apperrors.KindProviderError, "gemini generate", err)
	}
}
