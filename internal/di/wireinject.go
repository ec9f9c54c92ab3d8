//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"jyra/internal/config"
	"jyra/internal/memory"
)

// SuperSet is one wire.ProviderSet per layer, composed into a single set
// Initialize builds from. Build in container.go is still the hand-wired,
// always-compiled path; this file exists so `wire` can regenerate an
// equivalent Initialize if the graph ever grows enough to want it.
var ConfigProviders = wire.NewSet(ProvideLogger, ProvideErrorHandler)

var StoreProviders = wire.NewSet(ProvideStore, ProvideVectorIndex)

var ModelProviders = wire.NewSet(ProvideEmbeddingProvider, ProvideModelRouter)

var MemoryProviders = wire.NewSet(
	memory.NewExtractor,
	memory.NewManager,
	memory.NewDecayEngine,
	memory.NewConsolidator,
	memory.NewSentimentAnalyzer,
	memory.NewScheduler,
)

var SuperSet = wire.NewSet(
	ConfigProviders,
	StoreProviders,
	ModelProviders,
	MemoryProviders,
	ProvideRateLimiter,
	wire.Struct(new(Container), "*"),
)

// Initialize is the wireinject target: `wire` would regenerate this file's
// non-tagged counterpart (wire_gen.go) from SuperSet. Build in container.go
// is the real, maintained implementation; this declaration only keeps the
// provider graph wire-compatible.
func Initialize(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
