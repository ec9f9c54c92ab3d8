package embedding

import (
	"context"

	"go.uber.org/zap"

	"jyra/internal/apperrors"
)

// FallbackProvider tries primary and falls through to secondary on any
// error, the same linear fallback idiom ModelRouter runs for chat
// completions, one rung deep since only two embedding SDKs are in play.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger
}

func NewFallbackProvider(primary, secondary Provider, logger *zap.Logger) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary, logger: logger}
}

func (f *FallbackProvider) Name() string { return f.primary.Name() + "+" + f.secondary.Name() }

// Dimension reports the primary's dimension. Callers that switch providers
// mid-index must re-embed everything; there is no cross-dimension migration.
func (f *FallbackProvider) Dimension() int { return f.primary.Dimension() }

func (f *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.primary.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	f.logger.Warn("primary embedding provider failed, falling back",
		zap.String("provider", f.primary.Name()),
		zap.String("kind", string(apperrors.KindOf(err))),
		zap.Error(err))

	vec, err2 := f.secondary.Embed(ctx, text)
	if err2 != nil {
		return nil, apperrors.Wrap(apperrors.KindProviderError, "all embedding providers failed", err2)
	}
	return vec, nil
}
