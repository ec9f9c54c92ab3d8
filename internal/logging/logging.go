// Package logging constructs the process-wide zap logger, switching between
// zap.NewProduction and zap.NewDevelopment by environment.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger appropriate for env ("production" uses JSON
// encoding and info level by default; anything else uses the human-readable
// development encoder). level overrides the configured level when non-empty.
func New(env, level string) (*zap.Logger, error) {
	var zcfg zap.Config
	if strings.EqualFold(env, "production") {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if lvl, err := zapcore.ParseLevel(strings.ToLower(level)); level != "" && err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return zcfg.Build()
}
