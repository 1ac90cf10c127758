// Package pool abstracts the filament pool: the authoritative per-printer
// filament records plus a read-only static overrides map.
//
// The reconciliation engine takes a Store handle and never cares which
// backend is behind it:
//
//   - file: one local JSON document, the default and offline cache layout.
//   - db: GORM-backed tables (mysql or sqlite) for multi-process setups.
//   - spoolman: a Spoolman-style HTTP record API.
//
// Transient failures of any backend are wrapped in ErrUnavailable. They are
// retried on the next triggering file event and never recorded in a
// profile's sticky error log.
package pool
