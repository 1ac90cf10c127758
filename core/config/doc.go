// Package config provides configuration management for filament-sync.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP API settings (port, API key)
//   - Log: Logging level and format
//   - Pool: pool store backend selection (file, db, spoolman)
//   - Database: connection details for the db pool backend
//   - Storage: S3/MinIO credentials for profile snapshots
//   - Snapshot: snapshot toggle
//   - Watch: profile directory, debounce and quiet-window tuning
//   - Reconcile: reconcilable field set, audit log retention, dry-run policy
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Pool.Backend)
package config
