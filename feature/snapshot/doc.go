// Package snapshot backs up profile files to object storage right before
// the reconciliation runner rewrites them.
//
// Snapshots are best-effort: a failed upload is logged and the pass
// continues, because losing a backup must never block reconciliation.
package snapshot
