package embedding

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"jyra/internal/apperrors"
)

// GeminiTaskRetrievalDocument and GeminiTaskRetrievalQuery select Gemini's
// asymmetric embedding task types: documents are indexed with one task type,
// queries are embedded with the other so the two halves of a dot product
// aren't optimized for the same objective.
const (
	GeminiTaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	GeminiTaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

const geminiEmbedModel = "gemini-embedding-001"

// GeminiProvider implements Provider over google.golang.org/genai.
type GeminiProvider struct {
	client   *genai.Client
	model    string
	dim      int
	taskType string
}

// NewGeminiProvider builds a provider bound to one task type. Callers that
// need both index-time and query-time embeddings construct two instances,
// each with its own client.
func NewGeminiProvider(ctx context.Context, apiKey string, dim int, taskType string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindProviderError, "create gemini client", err)
	}
	return &GeminiProvider{client: client, model: geminiEmbedModel, dim: dim, taskType: taskType}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Dimension() int { return p.dim }

// Embed converts text to a vector. Empty input never reaches the API: it
// returns a zero vector.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return zeroVector(p.dim), nil
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             p.taskType,
			OutputDimensionality: genai.Ptr(int32(p.dim)),
		},
	)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, apperrors.New(apperrors.KindProviderError, "gemini returned no embedding")
	}
	return resp.Embeddings[0].Values, nil
}

// classifyGeminiError maps the SDK's error text onto the apperrors taxonomy.
// The genai SDK surfaces HTTP failures as plain errors rather than a typed
// status, so classification is a best-effort substring match, same as
// aimodel's Gemini chat provider.
func classifyGeminiError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return apperrors.Wrap(apperrors.KindRateLimit, "gemini embed", err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "permission") || strings.Contains(msg, "api key"):
		return apperrors.Wrap(apperrors.KindAuth, "gemini embed", err)
	default:
		return apperrors.Wrap(apperrors.KindProviderError, "gemini embed", err)
	}
}
