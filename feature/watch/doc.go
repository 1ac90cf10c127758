// Package watch is the change dispatcher: it turns filesystem activity in
// the slicer's filament directory into reconciliation passes.
//
// # Loop safety
//
// Reconciliation rewrites the file that triggered it, so the runner layers
// three guards:
//
//   - Debounce: editor saves emit bursts of events for one path; only the
//     latest content is reconciled, and superseded passes discard their
//     result instead of applying it out of order.
//   - Quiet window: events arriving shortly after the runner's own
//     write-back to a path are ignored.
//   - The engine's idempotence guard skips byte-identical writes entirely.
//
// One logical worker per profile path is sufficient; profiles resolving to
// the same printer serialize inside the engine's per-printer lock.
package watch
