package watch

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"filament-sync/core/profile"
)

// Entry is the last observed outcome for one profile path.
type Entry struct {
	// Path is the absolute profile path.
	Path string `json:"path"`
	// Name is the profile display name, or the file name for profiles that
	// failed to decode.
	Name string `json:"name"`
	// Printer is the resolved printer id, empty while unresolved.
	Printer string `json:"printer,omitempty"`
	// Status is the last pass status.
	Status profile.Status `json:"status"`
	// Errors mirrors the profile's sticky error log.
	Errors []string `json:"errors,omitempty"`
	// DryRun reports whether the last pass was a preview.
	DryRun bool `json:"dry_run,omitempty"`
	// UpdatedAt is when the entry was recorded.
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry tracks per-path outcomes for observability. It backs the HTTP
// API's profile listing and never feeds back into merge decisions.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Record stores the entry for its path.
func (r *Registry) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Path] = e
}

// Entries returns all entries sorted by path.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Lookup finds an entry by file base name (with or without extension).
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		base := filepath.Base(e.Path)
		if base == name || base == name+".json" || e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
