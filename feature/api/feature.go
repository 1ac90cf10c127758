package api

import (
	"filament-sync/feature/watch"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature wires the API service into the application's feature loader.
type Feature struct {
	service *Service
	enabled bool
}

// NewFeature creates the API feature.
func NewFeature(runner *watch.Runner, dir string, logger *zap.Logger, enabled bool) *Feature {
	return &Feature{
		service: NewService(runner, dir, logger),
		enabled: enabled,
	}
}

// Name returns the unique feature name.
func (f *Feature) Name() string {
	return "api"
}

// IsEnabled reports whether the HTTP surface is configured on.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the routes under /api.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app.Group("/api"))
	return nil
}
