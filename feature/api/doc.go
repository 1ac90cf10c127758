// Package api exposes reconciliation state over HTTP: the per-profile
// outcome registry and a trigger for an on-demand pass.
//
// The surface is JSON-only and read-mostly; the single mutating endpoint,
// POST /api/reconcile, runs the same pass the file watcher would and honors
// a dry_run query flag that persists nothing.
package api
