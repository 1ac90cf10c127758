// Package profile implements the codec between raw slicer filament files and
// typed profiles.
//
// Slicer filament files are flat JSON documents with two awkward conventions:
// single scalar values are wrapped in one-element arrays, and the sync-state
// notes blob is a JSON string nested inside such an array. The codec absorbs
// both at the boundary so the reconciliation engine never sees them.
//
// # Field taxonomy
//
// The codec splits a document into three groups:
//
//   - Identity fields (filament_settings_id, name, inherits), decoded as
//     plain strings.
//   - Reconcilable fields (a configurable set, temperatures by default),
//     decoded as optional scalars the engine may merge.
//   - Static fields: everything else, preserved byte-for-byte. The engine
//     never produces or alters these.
//
// # Determinism
//
// Encode emits keys in sorted order and compacts carried-over raw values, so
// encoding the same profile always yields the same bytes. The engine relies
// on this for its idempotence guard.
package profile
