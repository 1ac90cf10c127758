package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filament-sync/core/profile"
	"filament-sync/feature/reconcile"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshotter stores a copy of a profile before the runner rewrites it.
type Snapshotter interface {
	Snapshot(ctx context.Context, path string, data []byte) error
}

// Runner connects the change dispatcher to the reconciliation engine: it
// scans the profile directory, watches it for changes, debounces event
// bursts, and writes reconciled profiles back.
type Runner struct {
	cfg      Config
	engine   *reconcile.Engine
	logger   *zap.Logger
	snap     Snapshotter
	registry *Registry

	mu sync.Mutex
	// gens supersedes in-flight passes: a newer event for the same path
	// bumps the generation and the older pass discards its result.
	gens map[string]uint64
	// selfWrites records the runner's own write-backs so the watcher can
	// ignore the events they generate for a short quiet window.
	selfWrites map[string]time.Time
}

// NewRunner creates a runner. snap may be nil to disable snapshots.
func NewRunner(cfg Config, engine *reconcile.Engine, logger *zap.Logger, snap Snapshotter) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		logger:     logger,
		snap:       snap,
		registry:   NewRegistry(),
		gens:       make(map[string]uint64),
		selfWrites: make(map[string]time.Time),
	}
}

// Registry exposes the per-path outcome registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run scans every profile once, then watches the directory until the context
// is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	dir, err := r.cfg.ProfileDir()
	if err != nil {
		return err
	}
	r.logger.Info("watching filament profiles", zap.String("dir", dir))

	if _, err := r.ScanOnce(ctx, dir, reconcile.PassOptions{}, true); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// ScanOnce reconciles every profile file in dir. persist=false turns the
// scan into a pure report (used for externally forced dry-runs).
func (r *Runner) ScanOnce(ctx context.Context, dir string, passOpts reconcile.PassOptions, persist bool) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := r.cfg.ScanWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	var mu sync.Mutex
	var entries []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		path := filepath.Join(dir, f.Name())
		if !isProfilePath(path) {
			r.logger.Debug("skipping non-profile file", zap.String("path", path))
			continue
		}
		g.Go(func() error {
			entry, err := r.reconcileFile(gctx, path, passOpts, persist)
			if err != nil {
				// Transient; the next event retries it.
				r.logger.Warn("reconcile failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// handleEvent filters and debounces one watcher event.
func (r *Runner) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	path := event.Name
	if !isProfilePath(path) {
		r.logger.Debug("ignoring non-profile event", zap.String("path", path))
		return
	}
	if r.inQuietWindow(path) {
		r.logger.Debug("ignoring self-authored write", zap.String("path", path))
		return
	}

	gen := r.bumpGen(path)
	debounce := time.Duration(r.cfg.DebounceMS) * time.Millisecond
	time.AfterFunc(debounce, func() {
		if !r.isCurrentGen(path, gen) {
			return // superseded by a newer event
		}
		if _, err := r.reconcileFile(ctx, path, reconcile.PassOptions{}, true); err != nil {
			r.logger.Warn("reconcile failed", zap.String("path", path), zap.Error(err))
		}
	})
}

// reconcileFile runs one pass for one file and writes the result back.
func (r *Runner) reconcileFile(ctx context.Context, path string, passOpts reconcile.PassOptions, persist bool) (Entry, error) {
	gen := r.currentGen(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted between event and pass; deletion is out of scope.
			return Entry{Path: path, Name: filepath.Base(path)}, nil
		}
		return Entry{}, err
	}

	codec := r.engine.Codec()
	prof, err := codec.Decode(data)
	if err != nil {
		var decodeErr *profile.DecodeError
		if errors.As(err, &decodeErr) {
			// Malformed file: logged and skipped, never rewritten.
			r.logger.Warn("skipping malformed profile", zap.String("path", path), zap.Error(err))
			entry := Entry{
				Path:      path,
				Name:      filepath.Base(path),
				Errors:    []string{err.Error()},
				UpdatedAt: time.Now(),
			}
			r.registry.Record(entry)
			return entry, nil
		}
		return Entry{}, err
	}

	outcome, err := r.engine.ReconcileWith(ctx, prof, passOpts)
	if errors.Is(err, reconcile.ErrSealed) {
		r.logger.Debug("profile sealed, skipping", zap.String("path", path))
		entry := r.entryFor(path, prof, nil)
		r.registry.Record(entry)
		return entry, nil
	}
	if err != nil {
		return Entry{}, err
	}

	if persist && outcome.LocalChanged {
		// A newer event for this path supersedes the pass: its result must
		// be discarded rather than applied out of order.
		if !r.isCurrentGen(path, gen) {
			r.logger.Debug("pass superseded, discarding", zap.String("path", path))
			return r.entryFor(path, prof, outcome), nil
		}
		if err := r.writeBack(ctx, path, data, outcome.Profile); err != nil {
			return Entry{}, err
		}
	}

	entry := r.entryFor(path, prof, outcome)
	r.registry.Record(entry)
	return entry, nil
}

// writeBack snapshots the previous bytes, marks the write as self-authored,
// and atomically replaces the profile file.
func (r *Runner) writeBack(ctx context.Context, path string, previous []byte, prof *profile.Profile) error {
	if r.snap != nil {
		if err := r.snap.Snapshot(ctx, path, previous); err != nil {
			// Snapshots are best-effort; losing one never blocks the pass.
			r.logger.Warn("snapshot failed", zap.String("path", path), zap.Error(err))
		}
	}

	data, err := r.engine.Codec().Encode(prof)
	if err != nil {
		return err
	}

	r.markSelfWrite(path)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".filament-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (r *Runner) entryFor(path string, prof *profile.Profile, outcome *reconcile.Outcome) Entry {
	entry := Entry{
		Path:      path,
		Name:      prof.DisplayName(),
		Status:    prof.Notes.Status,
		Errors:    append([]string(nil), prof.Notes.Errors...),
		DryRun:    prof.Notes.DryRun,
		UpdatedAt: time.Now(),
	}
	if entry.Name == "" {
		entry.Name = filepath.Base(path)
	}
	if outcome != nil {
		entry.Printer = outcome.PrinterID
		entry.Status = outcome.Status
		entry.DryRun = entry.DryRun || outcome.DryRun
	}
	return entry
}

func (r *Runner) bumpGen(path string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[path]++
	return r.gens[path]
}

func (r *Runner) currentGen(path string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[path]
}

func (r *Runner) isCurrentGen(path string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[path] == gen
}

func (r *Runner) markSelfWrite(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfWrites[path] = time.Now()
}

func (r *Runner) inQuietWindow(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.selfWrites[path]
	if !ok {
		return false
	}
	window := time.Duration(r.cfg.QuietWindowMS) * time.Millisecond
	if time.Since(at) > window {
		delete(r.selfWrites, path)
		return false
	}
	return true
}

// isProfilePath accepts regular .json files only; everything else the
// slicer drops in the directory is ignored.
func isProfilePath(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".json")
}
