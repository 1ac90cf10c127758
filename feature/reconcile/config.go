package reconcile

// Config holds configuration for the reconciliation engine.
type Config struct {
	// Fields is the reconcilable field set. Empty selects the codec default.
	Fields []string `mapstructure:"fields" default:""`
	// MaxDebugEntries bounds the per-profile audit log. Zero keeps it
	// unbounded.
	MaxDebugEntries int `mapstructure:"max_debug_entries" default:"50"`
	// ClearDryRun drops the dry_run flag after a preview. Off by default so
	// repeated previews don't surprise the user.
	ClearDryRun bool `mapstructure:"clear_dry_run" default:"false"`
}
