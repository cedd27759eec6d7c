// Package commands implements the quarry subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/quarry/internal/config"
	"github.com/leapstack-labs/quarry/internal/engine"
)

type configKey struct{}

type loggerKey struct{}

// ContextWith stores the loaded config and logger for commands.
func ContextWith(ctx context.Context, cfg *config.Config, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey{}, cfg)
	return context.WithValue(ctx, loggerKey{}, logger)
}

// configFrom retrieves the loaded config from the command context.
func configFrom(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// loggerFrom retrieves the logger from the command context.
func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}

// buildEngine constructs the engine from the context config.
// The caller owns Close.
func buildEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, loggerFrom(ctx))
}
