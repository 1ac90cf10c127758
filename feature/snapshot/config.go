package snapshot

// Config holds configuration for profile snapshots.
type Config struct {
	// Enabled turns pre-write-back snapshots on. Requires a reachable
	// object storage endpoint.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Keep caps how many snapshots are retained per profile. Zero keeps
	// everything.
	Keep int `mapstructure:"keep" default:"20"`
}
