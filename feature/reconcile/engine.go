package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"filament-sync/core/clock"
	"filament-sync/core/pool"
	"filament-sync/core/profile"

	"go.uber.org/zap"
)

// Engine orchestrates reconciliation passes: printer resolution, per-field
// merges, force and dry-run semantics, audit bookkeeping, and the decision
// of what must be persisted where.
type Engine struct {
	store       pool.Store
	codec       *profile.Codec
	clk         clock.Clock
	logger      *zap.Logger
	maxDebug    int
	clearDryRun bool

	// Two profiles resolving to the same printer must serialize their pool
	// read-modify-write. Locking is scoped to one printer id, never the
	// whole process.
	mu       sync.Mutex
	printers map[string]*sync.Mutex
}

// Options configures an Engine.
type Options struct {
	Store  pool.Store
	Codec  *profile.Codec
	Clock  clock.Clock
	Logger *zap.Logger
	Config Config
}

// New creates an engine. Store is required; everything else has defaults.
func New(opts Options) *Engine {
	if opts.Codec == nil {
		opts.Codec = profile.NewCodec(opts.Config.Fields)
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		store:       opts.Store,
		codec:       opts.Codec,
		clk:         opts.Clock,
		logger:      opts.Logger,
		maxDebug:    opts.Config.MaxDebugEntries,
		clearDryRun: opts.Config.ClearDryRun,
		printers:    make(map[string]*sync.Mutex),
	}
}

// Codec returns the codec the engine byte-compares with. Callers writing
// profiles back must encode with the same codec.
func (e *Engine) Codec() *profile.Codec {
	return e.codec
}

// PassOptions tunes a single pass.
type PassOptions struct {
	// DryRun forces a preview even when the profile's own dry_run flag is
	// unset. Used by callers that must not persist anything.
	DryRun bool
}

// Outcome reports what a pass decided and what must be persisted.
type Outcome struct {
	// PrinterID is the resolved printer, empty when resolution failed.
	PrinterID string
	// Status is the aggregate pass status, already written to the notes.
	Status profile.Status
	// Profile is the post-pass profile. The caller owns writing it back
	// when LocalChanged is set.
	Profile *profile.Profile
	// Record is the post-pass pool record. The engine has already persisted
	// it when RemoteChanged is set.
	Record pool.Record
	// LocalChanged means the profile bytes differ from the input and must
	// be written back.
	LocalChanged bool
	// RemoteChanged means the pool record was updated.
	RemoteChanged bool
	// DryRun means no field mutation was applied to either side.
	DryRun bool
}

// Reconcile runs one pass for a profile.
func (e *Engine) Reconcile(ctx context.Context, prof *profile.Profile) (*Outcome, error) {
	return e.ReconcileWith(ctx, prof, PassOptions{})
}

// ReconcileWith runs one pass with per-pass options.
//
// Sticky data errors (resolution failures, force-flag conflicts, unresolvable
// conflicts) are appended to the profile's error log and reported through the
// outcome, not the error return: the caller must still persist the profile so
// the seal survives. The error return is reserved for transient failures
// (pool unavailable), which leave the profile untouched for a later retry.
func (e *Engine) ReconcileWith(ctx context.Context, prof *profile.Profile, passOpts PassOptions) (*Outcome, error) {
	if prof.Notes.Sealed() {
		return nil, ErrSealed
	}

	printerID, err := ResolvePrinter(prof)
	if err != nil {
		return e.seal(prof, err), nil
	}
	if prof.Notes.ForcePush && prof.Notes.ForcePull {
		return e.seal(prof, ErrForceFlagConflict), nil
	}

	lock := e.printerLock(printerID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := e.store.Get(ctx, printerID)
	if err != nil {
		return nil, fmt.Errorf("load record for %q: %w", printerID, err)
	}
	overrides, err := e.store.Overrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	orig := prof.Clone()
	origRec := rec.Clone()
	now := uint64(e.clk.Now().Unix())

	force := ForceNone
	switch {
	case prof.Notes.ForcePull:
		force = ForcePull
	case prof.Notes.ForcePush:
		force = ForcePush
	}

	merges := make(map[string]Merged)
	for _, field := range e.mergeFields(prof, rec, overrides) {
		m, err := Merge(field,
			fieldValue(prof, field), recordValue(rec, field),
			prof.Notes.LastModified, rec.LastModified, force)
		if err != nil {
			return e.seal(prof, err), nil
		}
		merges[field] = m
	}

	status := aggregateStatus(merges)
	outcome := &Outcome{PrinterID: printerID, Status: status}

	if prof.Notes.DryRun || passOpts.DryRun {
		e.preview(prof, merges, status)
		outcome.DryRun = true
	} else {
		e.apply(prof, &rec, merges, status, now)
	}
	outcome.Profile = prof
	outcome.Record = rec

	// Idempotence guard: skip writes whose post-merge form is identical to
	// the pre-merge form, so a no-op pass never re-triggers the watcher.
	changed, err := e.bytesChanged(orig, prof)
	if err != nil {
		return nil, err
	}
	outcome.LocalChanged = changed

	if !outcome.DryRun && !reflect.DeepEqual(origRec, rec) {
		if err := e.store.Put(ctx, printerID, rec); err != nil {
			return nil, fmt.Errorf("persist record for %q: %w", printerID, err)
		}
		outcome.RemoteChanged = true
	}

	e.logger.Debug("reconciled profile",
		zap.String("profile", prof.DisplayName()),
		zap.String("printer", printerID),
		zap.String("status", status.Kind),
		zap.Bool("dry_run", outcome.DryRun),
		zap.Bool("local_changed", outcome.LocalChanged),
		zap.Bool("remote_changed", outcome.RemoteChanged),
	)
	return outcome, nil
}

// seal appends a sticky error without touching any other field. The caller
// must persist the profile so the seal survives the process.
func (e *Engine) seal(prof *profile.Profile, cause error) *Outcome {
	prof.Notes.AppendError(cause.Error())
	e.logger.Warn("profile sealed",
		zap.String("profile", prof.DisplayName()),
		zap.Error(cause),
	)
	return &Outcome{
		Status:       prof.Notes.Status,
		Profile:      prof,
		LocalChanged: true,
	}
}

// preview surfaces the would-be merged values without applying them. Only
// the notes change; reconcilable fields and the pool record stay untouched.
func (e *Engine) preview(prof *profile.Profile, merges map[string]Merged, status profile.Status) {
	desired := make(map[string]string)
	for field, m := range merges {
		if m.Set {
			desired[field] = m.Value
		}
	}
	prof.Notes.DesiredLocal = desired
	prof.Notes.DesiredRemote = cloneDesired(desired)
	prof.Notes.Status = status
	if e.clearDryRun {
		prof.Notes.DryRun = false
	}
}

// apply writes the merged values to both sides, consumes the one-shot force
// flags, advances the logical timestamps, and records one audit entry.
func (e *Engine) apply(prof *profile.Profile, rec *pool.Record, merges map[string]Merged, status profile.Status, now uint64) {
	for field, m := range merges {
		switch m.Destination {
		case DestLocal:
			prof.Reconcilable[field] = profile.NewField(m.Value)
		case DestRemote:
			rec.Fields[field] = m.Value
		case DestBoth:
			prof.Reconcilable[field] = profile.NewField(m.Value)
			rec.Fields[field] = m.Value
		}
	}

	prof.Notes.ForcePush = false
	prof.Notes.ForcePull = false
	prof.Notes.DesiredLocal = nil
	prof.Notes.DesiredRemote = nil
	prof.Notes.Status = status

	if status.Kind != profile.StatusNoop {
		prof.Notes.LastModified = &now
		ts := now
		rec.LastModified = &ts
		prof.Notes.AppendDebug(now, "reconciled: "+summarize(status), e.maxDebug)
	}
}

// mergeFields returns the sorted union of both sides' reconcilable fields,
// minus any field the overrides map claims: those are externally
// authoritative and never pass through the merge policy.
func (e *Engine) mergeFields(prof *profile.Profile, rec pool.Record, overrides map[string]string) []string {
	set := make(map[string]struct{})
	for f := range prof.Reconcilable {
		set[f] = struct{}{}
	}
	for f := range rec.Fields {
		set[f] = struct{}{}
	}
	for f := range overrides {
		delete(set, f)
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e *Engine) printerLock(printerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.printers[printerID]
	if !ok {
		lock = &sync.Mutex{}
		e.printers[printerID] = lock
	}
	return lock
}

func (e *Engine) bytesChanged(before, after *profile.Profile) (bool, error) {
	a, err := e.codec.Encode(before)
	if err != nil {
		return false, err
	}
	b, err := e.codec.Encode(after)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(a, b), nil
}

func fieldValue(prof *profile.Profile, field string) *string {
	f, ok := prof.Reconcilable[field]
	if !ok {
		return nil
	}
	v, set := f.Value()
	if !set {
		return nil
	}
	return &v
}

func recordValue(rec pool.Record, field string) *string {
	v, ok := rec.Fields[field]
	if !ok {
		return nil
	}
	return &v
}

func cloneDesired(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
