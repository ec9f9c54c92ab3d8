// Package di wires the module's dependency graph: a Container struct plus
// Provide* constructors, assembled by Build. The same provider graph is
// also expressed declaratively for google/wire in wireinject.go.
package di

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jyra/internal/aimodel"
	"jyra/internal/apperrors"
	"jyra/internal/config"
	"jyra/internal/embedding"
	"jyra/internal/logging"
	"jyra/internal/memory"
	"jyra/internal/ratelimit"
	"jyra/internal/store"
	"jyra/internal/vectorindex"
)

// Container holds every wired dependency the cmd/jyra entrypoints need.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	ErrorHandler *apperrors.ErrorHandler

	Store *store.Store
	Index *vectorindex.Index

	Embedder embedding.Provider
	Router   *aimodel.ModelRouter

	Extractor         *memory.Extractor
	Manager           *memory.Manager
	DecayEngine       *memory.DecayEngine
	Consolidator      *memory.Consolidator
	SentimentAnalyzer *memory.SentimentAnalyzer
	Scheduler         *memory.Scheduler

	RateLimiter *ratelimit.Limiter
}

// ProvideLogger constructs the process-wide zap.Logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Environment, cfg.LogLevel)
}

// ProvideErrorHandler constructs the central error router. No AdminNotifier
// is wired here: the core memory subsystem never implements a concrete
// notification transport, an out-of-core chat adapter would supply one.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, apperrors.DetailLevel(cfg.ErrorDetailLevel), nil)
}

// ProvideStore opens the Store and runs its migrations.
func ProvideStore(cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	return store.Open(cfg.DatabasePath, logger)
}

// ProvideVectorIndex wraps the Store's embedding table.
func ProvideVectorIndex(s *store.Store) *vectorindex.Index {
	return vectorindex.New(s)
}

// ProvideEmbeddingProvider wires Gemini as primary, OpenAI as fallback when
// both a Gemini and an OpenAI key are configured; whichever one is
// configured alone otherwise.
func ProvideEmbeddingProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (embedding.Provider, error) {
	var primary embedding.Provider
	if cfg.GeminiAPIKey != "" {
		gem, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingDimension, embedding.GeminiTaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		primary = gem
	}

	var secondary embedding.Provider
	if cfg.EnableOpenAI && cfg.OpenAIAPIKey != "" {
		secondary = embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingDimension)
	}

	switch {
	case primary != nil && secondary != nil:
		return embedding.NewFallbackProvider(primary, secondary, logger), nil
	case primary != nil:
		return primary, nil
	case secondary != nil:
		return secondary, nil
	default:
		return nil, apperrors.New(apperrors.KindMissingConfig, "no embedding provider configured")
	}
}

// ProvideModelRouter wires every configured chat ModelProvider (Gemini,
// OpenAI, Anthropic, in that fallback order) behind a shared ResponseCache.
func ProvideModelRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*aimodel.ModelRouter, error) {
	cache, err := aimodel.NewResponseCache(cfg.ResponseCacheDir, time.Duration(cfg.ResponseCacheTTL)*time.Second, logger)
	if err != nil {
		return nil, err
	}

	var providers []aimodel.ModelProvider
	if cfg.GeminiAPIKey != "" {
		gem, err := aimodel.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		providers = append(providers, gem)
	}
	if cfg.EnableOpenAI && cfg.OpenAIAPIKey != "" {
		providers = append(providers, aimodel.NewOpenAIProvider(cfg.OpenAIAPIKey))
	}
	if cfg.EnableAnthropic && cfg.AnthropicAPIKey != "" {
		providers = append(providers, aimodel.NewAnthropicProvider(cfg.AnthropicAPIKey))
	}
	if len(providers) == 0 {
		return nil, apperrors.New(apperrors.KindMissingConfig, "no chat model provider configured")
	}

	return aimodel.NewModelRouter(logger, cache, providers...), nil
}

// ProvideRateLimiter wires the sliding-window limiter from configuration.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Params{
		Window:      time.Duration(cfg.RateLimitWindow) * time.Second,
		MaxRequests: cfg.RateLimitMaxRequests,
	}, cfg.AdminUserIDs)
}

// Build assembles a fully-wired Container from configuration, in dependency
// order: store/index before embeddings/router, both before the memory
// application layer that composes them.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	errorHandler := ProvideErrorHandler(cfg, logger)

	s, err := ProvideStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	index := ProvideVectorIndex(s)

	embedder, err := ProvideEmbeddingProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router, err := ProvideModelRouter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	extractor := memory.NewExtractor(router)
	manager := memory.NewManager(s, index, embedder, extractor, logger)
	decayEngine := memory.NewDecayEngine(s, logger)
	consolidator := memory.NewConsolidator(s, index, router, logger)
	sentimentAnalyzer := memory.NewSentimentAnalyzer(router)
	scheduler := memory.NewScheduler(s, consolidator, decayEngine, logger)

	limiter := ProvideRateLimiter(cfg)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		ErrorHandler: errorHandler,

		Store: s,
		Index: index,

		Embedder: embedder,
		Router:   router,

		Extractor:         extractor,
		Manager:           manager,
		DecayEngine:       decayEngine,
		Consolidator:      consolidator,
		SentimentAnalyzer: sentimentAnalyzer,
		Scheduler:         scheduler,

		RateLimiter: limiter,
	}, nil
}

// Close releases every resource the Container owns.
func (c *Container) Close() error {
	return c.Store.CloseAll()
}
