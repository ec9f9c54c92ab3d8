package embedding

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"jyra/internal/apperrors"
)

const openAIDefaultEmbedModel = "text-embedding-3-small"

// OpenAIProvider implements Provider over github.com/openai/openai-go.
type OpenAIProvider struct {
	client openai.Client
	model  string
	dim    int
}

func NewOpenAIProvider(apiKey string, dim int) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: client, model: openAIDefaultEmbedModel, dim: dim}
}

func (p *OpenAIProvider) Name() string   { return "openai" }
func (p *OpenAIProvider) Dimension() int { return p.dim }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return zeroVector(p.dim), nil
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model:          p.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Dimensions:     openai.Int(int64(p.dim)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, apperrors.New(apperrors.KindProviderError, "openai returned no embedding")
	}
	return normalizeFromValues(resp.Data[0].Embedding), nil
}

// classifyOpenAIError maps the SDK's typed *openai.Error onto the apperrors
// taxonomy using its HTTP status code, falling back to substring matching
// for errors the SDK doesn't wrap (e.g. transport failures).
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return apperrors.Wrap(apperrors.KindRateLimit, "openai embed", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.Wrap(apperrors.KindAuth, "openai embed", err)
		default:
			return apperrors.Wrap(apperrors.KindProviderError, "openai embed", err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return apperrors.Wrap(apperrors.KindRateLimit, "openai embed", err)
	}
	return apperrors.Wrap(apperrors.KindProviderError, "openai embed", err)
}
