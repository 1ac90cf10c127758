package watch

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds configuration for the profile directory watcher.
type Config struct {
	// Dir is the slicer filament profile directory. Empty discovers the
	// OrcaSlicer user profile directory for this OS.
	Dir string `mapstructure:"dir" default:""`
	// DebounceMS coalesces bursts of events for one path; only the latest
	// content is reconciled.
	DebounceMS int `mapstructure:"debounce_ms" default:"250"`
	// QuietWindowMS ignores watcher events for a path this long after the
	// engine's own write-back to it.
	QuietWindowMS int `mapstructure:"quiet_window_ms" default:"1500"`
	// ScanWorkers bounds the concurrency of the initial directory scan.
	ScanWorkers int `mapstructure:"scan_workers" default:"4"`
}

// ProfileDir returns the configured directory, falling back to the
// OrcaSlicer convention under the OS user config dir.
func (c Config) ProfileDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate slicer config dir: %w", err)
	}
	return filepath.Join(base, "OrcaSlicer", "user", "default", "filament"), nil
}
