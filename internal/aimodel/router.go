package aimodel

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"jyra/internal/apperrors"
)

// fallbackKinds are the only error kinds that advance ModelRouter to the
// next provider; any other error is returned immediately.
var fallbackKinds = map[apperrors.Kind]bool{
	apperrors.KindRateLimit:     true,
	apperrors.KindAuth:          true,
	apperrors.KindProviderError: true,
}

// breakerConfig trips once a provider's recent failure ratio crosses the
// threshold, after a minimum sample size.
func breakerConfig(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	}
}

// rung is one entry of the router's ordered provider list, wrapped in its
// own circuit breaker so a provider's open-circuit state is checked before
// even attempting the call.
type rung struct {
	provider ModelProvider
	breaker  *gobreaker.CircuitBreaker
}

// ModelRouter tries providers in order, skipping to the next on RateLimit,
// Auth, or ProviderError, and skipping a provider outright while its
// circuit breaker is open.
type ModelRouter struct {
	rungs  []rung
	cache  *ResponseCache
	logger *zap.Logger
}

func NewModelRouter(logger *zap.Logger, cache *ResponseCache, providers ...ModelProvider) *ModelRouter {
	rungs := make([]rung, len(providers))
	for i, p := range providers {
		rungs[i] = rung{
			provider: p,
			breaker:  gobreaker.NewCircuitBreaker(breakerConfig(p.Capabilities().Name)),
		}
	}
	return &ModelRouter{rungs: rungs, cache: cache, logger: logger}
}

// Generate tries each provider in order. useFallbacks=false surfaces the
// first failure immediately; otherwise it walks the chain on fallbackKinds
// and re-raises the last error if every provider fails.
func (r *ModelRouter) Generate(ctx context.Context, prompt string, role RoleContext, history []Turn, memoryContext string, opts Options, useFallbacks bool) (text string, providerName string, err error) {
	if opts.cacheable() {
		fp := Fingerprint(prompt, role, history)
		if cached, ok := r.cache.Get(ctx, fp); ok {
			return cached, r.rungs[0].provider.Capabilities().Name, nil
		}
	}

	var lastErr error
	for i, rg := range r.rungs {
		name := rg.provider.Capabilities().Name
		out, cbErr := rg.breaker.Execute(func() (any, error) {
			return rg.provider.Generate(ctx, prompt, role, history, memoryContext, opts)
		})
		if cbErr == nil {
			text = out.(string)
			if opts.cacheable() {
				fp := Fingerprint(prompt, role, history)
				if err := r.cache.Set(ctx, fp, prompt, text); err != nil {
					r.logger.Warn("cache write failed", zap.Error(err))
				}
			}
			return text, name, nil
		}

		if errors.Is(cbErr, gobreaker.ErrOpenState) || errors.Is(cbErr, gobreaker.ErrTooManyRequests) {
			r.logger.Warn("provider circuit open, skipping", zap.String("provider", name))
			lastErr = cbErr
			continue
		}

		lastErr = cbErr
		kind := apperrors.KindOf(cbErr)
		if !useFallbacks || !fallbackKinds[kind] || i == len(r.rungs)-1 {
			return "", name, cbErr
		}
		r.logger.Warn("provider failed, trying fallback",
			zap.String("provider", name), zap.String("kind", string(kind)), zap.Error(cbErr))
	}
	return "", "", lastErr
}
