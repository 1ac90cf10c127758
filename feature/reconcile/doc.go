// Package reconcile decides, field by field, which side of a filament
// profile is authoritative: the local slicer file or the printer's pool
// record.
//
// # Pipeline
//
// A pass resolves the profile's printer, loads that printer's pool record
// under a per-printer lock, runs every reconcilable field through the merge
// policy, folds the per-field destinations into one status, and then either
// applies the merge to both sides or, in dry-run, surfaces the would-be
// values in the notes without touching anything else.
//
// # Guarantees
//
//   - Deterministic: same inputs produce the same merged values, the same
//     status, and the same reason strings.
//   - Idempotent: a converged pair reconciles to noop with byte-identical
//     output, so the engine's own write-back never re-triggers itself.
//   - Sealed profiles (non-empty error log) are never mutated beyond the
//     error log itself.
//   - Static fields and overridden fields are copy-through from their
//     authoritative source and never merged.
//
// Transient pool failures are returned as errors and retried on the next
// file event; data problems are appended to the profile's sticky error log.
package reconcile
