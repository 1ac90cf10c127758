package cmd

import (
	"context"
	"fmt"

	"filament-sync/core/config"
	"filament-sync/core/database"
	"filament-sync/core/logger"
	"filament-sync/core/pool"
	"filament-sync/core/profile"
	"filament-sync/feature/reconcile"
	"filament-sync/feature/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// Flags for the reconcile command
	reconcileDryRun bool
	reconcileDir    string
)

// reconcileCmd runs a single reconciliation pass and exits.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass over the profile directory",
	Long: `Reconcile every filament profile against the pool once, without
starting the watcher or the HTTP API.

Examples:
  # Reconcile and persist
  filament-sync reconcile

  # Preview only, nothing is written anywhere
  filament-sync reconcile --dry-run

  # Reconcile a non-default directory
  filament-sync reconcile --dir /path/to/profiles`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Preview decisions without writing profiles or the pool")
	reconcileCmd.Flags().StringVar(&reconcileDir, "dir", "", "Profile directory (defaults to the configured or discovered one)")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	if reconcileDir != "" {
		cfg.Watch.Dir = reconcileDir
	}
	dir, err := cfg.Watch.ProfileDir()
	if err != nil {
		return err
	}

	// Connect to the pool
	var db *gorm.DB
	if cfg.Pool.Backend == pool.BackendDB {
		if db, err = database.Connect(cfg.Database); err != nil {
			return fmt.Errorf("failed to connect to pool database: %w", err)
		}
	}
	store, err := pool.NewStore(cfg.Pool, db)
	if err != nil {
		return fmt.Errorf("failed to create pool store: %w", err)
	}

	engine := reconcile.New(reconcile.Options{
		Store:  store,
		Logger: l,
		Config: cfg.Reconcile,
	})
	runner := watch.NewRunner(cfg.Watch, engine, l, nil)

	l.Info("Starting reconciliation pass",
		zap.String("dir", dir),
		zap.Bool("dry_run", reconcileDryRun),
	)

	entries, err := runner.ScanOnce(ctx, dir, reconcile.PassOptions{DryRun: reconcileDryRun}, !reconcileDryRun)
	if err != nil {
		return fmt.Errorf("reconciliation pass failed: %w", err)
	}

	printPassReport(l, entries, reconcileDryRun)
	return nil
}

// printPassReport prints a formatted pass report using logger.
func printPassReport(l *zap.Logger, entries []watch.Entry, dryRun bool) {
	var noop, changed, sealed int
	for _, e := range entries {
		switch {
		case len(e.Errors) > 0:
			sealed++
		case e.Status.Kind == profile.StatusNoop || e.Status.Kind == "":
			noop++
		default:
			changed++
		}
	}

	l.Info("Reconciliation report",
		zap.Int("profiles", len(entries)),
		zap.Int("unchanged", noop),
		zap.Int("reconciled", changed),
		zap.Int("sealed", sealed),
		zap.Bool("dry_run", dryRun),
	)

	for _, e := range entries {
		if len(e.Errors) > 0 {
			l.Warn("Profile sealed by errors",
				zap.String("name", e.Name),
				zap.Strings("errors", e.Errors),
			)
			continue
		}
		if e.Status.Kind != "" && e.Status.Kind != profile.StatusNoop {
			l.Info("Profile reconciled",
				zap.String("name", e.Name),
				zap.String("printer", e.Printer),
				zap.String("status", e.Status.Kind),
			)
		}
	}
}
