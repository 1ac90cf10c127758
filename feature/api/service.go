package api

import (
	"context"

	"filament-sync/feature/reconcile"
	"filament-sync/feature/watch"

	"go.uber.org/zap"
)

// Service exposes reconciliation state and triggers to the HTTP surface.
type Service struct {
	runner *watch.Runner
	dir    string
	logger *zap.Logger
}

// NewService creates an API service over the given runner and profile dir.
func NewService(runner *watch.Runner, dir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, dir: dir, logger: logger}
}

// Profiles returns the last observed outcome for every known profile.
func (s *Service) Profiles() []watch.Entry {
	return s.runner.Registry().Entries()
}

// Profile finds one profile by name or file name.
func (s *Service) Profile(name string) (watch.Entry, bool) {
	return s.runner.Registry().Lookup(name)
}

// ReconcileAll runs a pass over the whole directory. With dryRun the pass is
// forced into preview mode and nothing is persisted anywhere.
func (s *Service) ReconcileAll(ctx context.Context, dryRun bool) ([]watch.Entry, error) {
	opts := reconcile.PassOptions{DryRun: dryRun}
	return s.runner.ScanOnce(ctx, s.dir, opts, !dryRun)
}
