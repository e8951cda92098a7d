package utils

import (
	"context"
	"fmt"

	"pdp-variant-extractor/internal/types"
)

// OpenSurface acquires the render surface selected by config.Backend
func OpenSurface(ctx context.Context, config *types.Config, logger types.Logger) (types.RenderSurface, error) {
	switch config.Backend {
	case types.BackendChromedp, "":
		return NewChromeSurface(ctx, config, logger)
	case types.BackendSelenium:
		return NewSeleniumSurface(config, logger)
	default:
		return nil, fmt.Errorf("unknown browser backend: %s", config.Backend)
	}
}

// WithSurface acquires a surface, runs fn with it and releases it exactly once,
// whether fn succeeds, fails or panics.
func WithSurface(ctx context.Context, config *types.Config, logger types.Logger, fn func(types.RenderSurface) error) error {
	return withSurface(ctx, func(ctx context.Context) (types.RenderSurface, error) {
		return OpenSurface(ctx, config, logger)
	}, logger, fn)
}

func withSurface(ctx context.Context, open func(context.Context) (types.RenderSurface, error), logger types.Logger, fn func(types.RenderSurface) error) error {
	surface, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open render surface: %w", err)
	}
	defer func() {
		if err := surface.Close(); err != nil {
			logger.Warnf("Failed to release render surface: %v", err)
		}
	}()

	return fn(surface)
}
