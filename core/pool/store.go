package pool

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrUnavailable marks a transient pool failure (network, disk, database).
// Profiles stay dirty and are retried on the next triggering event; the
// failure is never written to a profile's sticky error log.
var ErrUnavailable = errors.New("pool unavailable")

// Record is the pool-side filament state for one printer. It mirrors a
// profile's reconcilable fields plus its own logical timestamp.
type Record struct {
	// Fields holds the set reconcilable fields. Unset fields are absent.
	Fields map[string]string `json:"fields"`
	// LastModified is the logical timestamp of the last write.
	// Absent is treated as older than anything.
	LastModified *uint64 `json:"last_modified,omitempty"`
}

// EmptyRecord returns a record with no fields set.
func EmptyRecord() Record {
	return Record{Fields: map[string]string{}}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := Record{Fields: make(map[string]string, len(r.Fields))}
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	if r.LastModified != nil {
		ts := *r.LastModified
		c.LastModified = &ts
	}
	return c
}

// Store is the engine's handle to the pool. A record entry for a printer is
// created lazily on the first Put; Get never fails on absence.
type Store interface {
	// Get returns the filament record for a printer, or an empty record if
	// the printer has no entry yet.
	Get(ctx context.Context, printerID string) (Record, error)
	// Put replaces the filament record for a printer.
	Put(ctx context.Context, printerID string, rec Record) error
	// Overrides returns the externally sourced static overrides. They are
	// read-only inputs to reconciliation, never written by it.
	Overrides(ctx context.Context) (map[string]string, error)
}

// NewStore builds the store selected by the configuration. The db handle is
// only consulted for the db backend and may be nil otherwise.
func NewStore(cfg Config, db *gorm.DB) (Store, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileStore(cfg.Path), nil
	case BackendDB:
		if db == nil {
			return nil, fmt.Errorf("pool backend %q requires a database connection", cfg.Backend)
		}
		return NewDBStore(db)
	case BackendSpoolman:
		return NewSpoolmanStore(cfg.URL, cfg.Token, cfg.TimeoutSeconds), nil
	default:
		return nil, fmt.Errorf("unknown pool backend %q", cfg.Backend)
	}
}
