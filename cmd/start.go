package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"filament-sync/core/config"
	"filament-sync/core/database"
	"filament-sync/core/loader"
	"filament-sync/core/logger"
	"filament-sync/core/middleware/auth"
	"filament-sync/core/middleware/rayid"
	"filament-sync/core/pool"
	"filament-sync/core/storage"

	"filament-sync/feature/api"
	"filament-sync/feature/reconcile"
	"filament-sync/feature/snapshot"
	"filament-sync/feature/watch"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the filament sync service",
	Long:  `Starts the profile directory watcher and, if enabled, the HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database (only the db pool backend needs one)
		var db *gorm.DB
		if cfg.Pool.Backend == pool.BackendDB {
			conn, err := database.Connect(cfg.Database)
			if err != nil {
				logg.Fatal("Failed to connect to pool database", zap.Error(err))
			}
			db = conn
			logg.Info("Connected to pool database")
		}

		// 4. Initialize Pool Store
		store, err := pool.NewStore(cfg.Pool, db)
		if err != nil {
			logg.Fatal("Failed to create pool store", zap.Error(err))
		}
		logg.Info("Pool store ready", zap.String("backend", cfg.Pool.Backend))

		// 5. Initialize Reconciliation Engine
		engine := reconcile.New(reconcile.Options{
			Store:  store,
			Logger: logg,
			Config: cfg.Reconcile,
		})

		// 6. Initialize Snapshots (Optional)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var snap watch.Snapshotter
		if cfg.Snapshot.Enabled {
			client, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			uploader := snapshot.NewUploader(client, cfg.Storage.Bucket, cfg.Snapshot.Keep, logg)
			if err := uploader.EnsureBucket(ctx); err != nil {
				logg.Fatal("Failed to prepare snapshot bucket", zap.Error(err))
			}
			snap = uploader
			logg.Info("Profile snapshots enabled", zap.String("bucket", cfg.Storage.Bucket))
		}

		// 7. Start the Watcher
		runner := watch.NewRunner(cfg.Watch, engine, logg, snap)

		runnerErr := make(chan error, 1)
		go func() {
			runnerErr <- runner.Run(ctx)
		}()

		// 8. Start HTTP API (Optional)
		var app *fiber.App
		if cfg.Server.Enabled {
			app = fiber.New(fiber.Config{
				DisableStartupMessage: true, // We will log our own startup message
			})

			// Middleware Registration
			// 1. RayID (Must be first to trace everything)
			app.Use(rayid.New())

			// 2. Logging Middleware (Custom to use Zap + RayID)
			app.Use(func(c *fiber.Ctx) error {
				l := logger.WithRayID(logg, c)
				l.Info("Request started",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.String("ip", c.IP()),
				)
				err := c.Next()
				if err != nil {
					l.Error("Request error", zap.Error(err))
				}
				return err
			})

			// 3. Auth (Protect API)
			app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

			// 4. Feature Loader
			dir, err := cfg.Watch.ProfileDir()
			if err != nil {
				logg.Fatal("Failed to locate profile directory", zap.Error(err))
			}

			mgr := loader.NewManager()
			mgr.Register(api.NewFeature(runner, dir, logg, true))
			if err := mgr.LoadAll(app); err != nil {
				logg.Fatal("Failed to load features", zap.Error(err))
			}

			go func() {
				logg.Info("Starting server", zap.String("port", cfg.Server.Port))
				if err := app.Listen(cfg.Server.Addr()); err != nil {
					logg.Fatal("Server failed to start", zap.Error(err))
				}
			}()
		}

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		select {
		case <-c:
			logg.Info("Shutting down...")
		case err := <-runnerErr:
			if err != nil && err != context.Canceled {
				logg.Error("Watcher stopped", zap.Error(err))
			}
		}

		cancel()
		if app != nil {
			_ = app.Shutdown()
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
