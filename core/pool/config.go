package pool

// Config holds configuration for the pool store.
type Config struct {
	// Backend selects the store implementation (file, db, spoolman).
	Backend string `mapstructure:"backend" default:"file"`
	// Path is the JSON document location for the file backend.
	Path string `mapstructure:"path" default:"pool.json"`
	// URL is the base URL of the pool service for the spoolman backend.
	URL string `mapstructure:"url" default:"http://localhost:7912"`
	// Token is the bearer token for the spoolman backend, if any.
	Token string `mapstructure:"token" default:""`
	// TimeoutSeconds is the request timeout for the spoolman backend.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
}

const (
	BackendFile     = "file"
	BackendDB       = "db"
	BackendSpoolman = "spoolman"
)

// IsValidBackend checks if the configured backend is valid.
func (c Config) IsValidBackend() bool {
	switch c.Backend {
	case BackendFile, BackendDB, BackendSpoolman:
		return true
	default:
		return false
	}
}
