package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"filament-sync/core/clock"
	"filament-sync/core/pool"
	"filament-sync/core/profile"
	"filament-sync/feature/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory pool.Store for engine tests.
type memStore struct {
	records   map[string]pool.Record
	overrides map[string]string
	getErr    error
	putErr    error
	puts      int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]pool.Record)}
}

func (s *memStore) Get(_ context.Context, printerID string) (pool.Record, error) {
	if s.getErr != nil {
		return pool.Record{}, s.getErr
	}
	rec, ok := s.records[printerID]
	if !ok {
		return pool.EmptyRecord(), nil
	}
	return rec.Clone(), nil
}

func (s *memStore) Put(_ context.Context, printerID string, rec pool.Record) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.records[printerID] = rec.Clone()
	return nil
}

func (s *memStore) Overrides(_ context.Context) (map[string]string, error) {
	return s.overrides, nil
}

func newTestEngine(store *memStore) *reconcile.Engine {
	return reconcile.New(reconcile.Options{
		Store: store,
		Clock: clock.NewFakeClock(time.Unix(1000, 0)),
	})
}

func newTestProfile(fields map[string]string) *profile.Profile {
	rec := make(map[string]profile.Field, len(fields))
	for k, v := range fields {
		rec[k] = profile.NewField(v)
	}
	return &profile.Profile{
		ID:           "pla-red",
		Name:         "PLA Red @Voron",
		Reconcilable: rec,
		Static:       map[string]json.RawMessage{},
	}
}

func TestEngineReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("SeedsPoolFromLocal", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)

		assert.Equal(t, "Voron", out.PrinterID)
		assert.Equal(t, profile.StatusUpdateSpoolman, out.Status.Kind)
		assert.True(t, out.RemoteChanged)
		assert.Equal(t, "220", store.records["Voron"].Fields["nozzle_temperature"])

		// The write-back carries the new timestamp and audit entry.
		assert.True(t, out.LocalChanged)
		require.NotNil(t, prof.Notes.LastModified)
		assert.Equal(t, uint64(1000), *prof.Notes.LastModified)
		require.Len(t, prof.Notes.Debug, 1)
		assert.Contains(t, prof.Notes.Debug[0].Message, "update_spoolman")
	})

	t.Run("SeedsLocalFromPool", func(t *testing.T) {
		store := newMemStore()
		store.records["Voron"] = pool.Record{Fields: map[string]string{"bed_temperature": "60"}}
		engine := newTestEngine(store)
		prof := newTestProfile(nil)

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)

		assert.Equal(t, profile.StatusUpdatedLocal, out.Status.Kind)
		v, ok := prof.Reconcilable["bed_temperature"].Value()
		assert.True(t, ok)
		assert.Equal(t, "60", v)
	})

	t.Run("SecondPassIsNoop", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		require.True(t, out.LocalChanged)

		out2, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.Equal(t, profile.StatusNoop, out2.Status.Kind)
		assert.False(t, out2.LocalChanged, "noop pass must be byte-identical")
		assert.False(t, out2.RemoteChanged)
		assert.Equal(t, 1, store.puts)
		assert.Len(t, prof.Notes.Debug, 1, "noop passes never append audit entries")
	})

	t.Run("TimestampBreaksConflict", func(t *testing.T) {
		store := newMemStore()
		remoteTS := uint64(9)
		store.records["Voron"] = pool.Record{
			Fields:       map[string]string{"nozzle_temperature": "210"},
			LastModified: &remoteTS,
		}
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "200"})
		localTS := uint64(5)
		prof.Notes.LastModified = &localTS

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)

		assert.Equal(t, profile.StatusUpdatedBoth, out.Status.Kind)
		v, _ := prof.Reconcilable["nozzle_temperature"].Value()
		assert.Equal(t, "210", v)
		assert.Equal(t, "210", store.records["Voron"].Fields["nozzle_temperature"])
		require.NotNil(t, prof.Notes.LastModified)
		assert.Equal(t, uint64(1000), *prof.Notes.LastModified)
	})

	t.Run("EqualTimestampsSeal", func(t *testing.T) {
		store := newMemStore()
		ts := uint64(7)
		store.records["Voron"] = pool.Record{
			Fields:       map[string]string{"nozzle_temperature": "210"},
			LastModified: &ts,
		}
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "200"})
		localTS := ts
		prof.Notes.LastModified = &localTS

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)

		assert.True(t, out.LocalChanged)
		assert.True(t, prof.Notes.Sealed())
		assert.False(t, out.RemoteChanged, "a sealing pass must not touch the pool")
		// Field values stay as they were.
		v, _ := prof.Reconcilable["nozzle_temperature"].Value()
		assert.Equal(t, "200", v)
	})

	t.Run("SealedProfileIsRefused", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})
		prof.Notes.AppendError("previous failure")

		_, err := engine.Reconcile(ctx, prof)
		assert.ErrorIs(t, err, reconcile.ErrSealed)
		assert.Len(t, prof.Notes.Errors, 1, "refusal must not append")
	})

	t.Run("ResolutionFailureSeals", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)
		prof := newTestProfile(nil)
		prof.Name = "PLA Red"
		prof.ID = "pla-red"

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.True(t, out.LocalChanged)
		assert.True(t, prof.Notes.Sealed())
	})

	t.Run("BothForceFlagsSeal", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})
		prof.Notes.ForcePush = true
		prof.Notes.ForcePull = true

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.True(t, prof.Notes.Sealed())
		assert.True(t, out.LocalChanged)
	})

	t.Run("ForcePullConsumedAfterApply", func(t *testing.T) {
		store := newMemStore()
		remoteTS := uint64(1)
		store.records["Voron"] = pool.Record{
			Fields:       map[string]string{"nozzle_temperature": "210"},
			LastModified: &remoteTS,
		}
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "200"})
		localTS := uint64(9)
		prof.Notes.LastModified = &localTS
		prof.Notes.ForcePull = true

		_, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)

		v, _ := prof.Reconcilable["nozzle_temperature"].Value()
		assert.Equal(t, "210", v, "pull wins despite newer local timestamp")
		assert.False(t, prof.Notes.ForcePull, "force flags are one-shot")
	})

	t.Run("DryRunTouchesNothing", func(t *testing.T) {
		store := newMemStore()
		store.records["Voron"] = pool.Record{Fields: map[string]string{"bed_temperature": "60"}}
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})
		prof.Notes.DryRun = true

		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)

		assert.True(t, out.DryRun)
		assert.False(t, out.RemoteChanged)
		assert.Equal(t, 0, store.puts)
		assert.NotContains(t, prof.Reconcilable, "bed_temperature")
		assert.Equal(t, "60", prof.Notes.DesiredLocal["bed_temperature"])
		assert.Equal(t, "220", prof.Notes.DesiredRemote["nozzle_temperature"])
		assert.Nil(t, prof.Notes.LastModified, "dry-run never advances timestamps")
		assert.True(t, prof.Notes.DryRun, "flag persists unless configured otherwise")
	})

	t.Run("ClearDryRunConfig", func(t *testing.T) {
		store := newMemStore()
		engine := reconcile.New(reconcile.Options{
			Store:  store,
			Clock:  clock.NewFakeClock(time.Unix(1000, 0)),
			Config: reconcile.Config{ClearDryRun: true},
		})
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})
		prof.Notes.DryRun = true

		_, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.False(t, prof.Notes.DryRun)
	})

	t.Run("ApplyClearsDesiredPreviews", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})
		prof.Notes.DesiredLocal = map[string]string{"nozzle_temperature": "220"}
		prof.Notes.DesiredRemote = map[string]string{"nozzle_temperature": "220"}

		_, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.Nil(t, prof.Notes.DesiredLocal)
		assert.Nil(t, prof.Notes.DesiredRemote)
	})

	t.Run("OverriddenFieldsSkipMerge", func(t *testing.T) {
		store := newMemStore()
		ts := uint64(7)
		store.records["Voron"] = pool.Record{
			Fields:       map[string]string{"nozzle_temperature": "210"},
			LastModified: &ts,
		}
		store.overrides = map[string]string{"nozzle_temperature": "250"}
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "200"})
		localTS := ts
		prof.Notes.LastModified = &localTS

		// Identical timestamps would seal, but the override excludes the
		// field from merging entirely.
		out, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.Equal(t, profile.StatusNoop, out.Status.Kind)
		assert.False(t, prof.Notes.Sealed())
	})

	t.Run("PoolUnavailableIsTransient", func(t *testing.T) {
		store := newMemStore()
		store.getErr = pool.ErrUnavailable
		engine := newTestEngine(store)
		prof := newTestProfile(map[string]string{"nozzle_temperature": "220"})

		_, err := engine.Reconcile(ctx, prof)
		require.Error(t, err)
		assert.True(t, errors.Is(err, pool.ErrUnavailable))
		assert.False(t, prof.Notes.Sealed(), "transient failures never seal")
	})

	t.Run("StaticFieldsNeverChange", func(t *testing.T) {
		store := newMemStore()
		store.records["Voron"] = pool.Record{Fields: map[string]string{"bed_temperature": "60"}}
		engine := newTestEngine(store)
		prof := newTestProfile(nil)
		prof.Static["filament_vendor"] = json.RawMessage(`["Generic"]`)

		_, err := engine.Reconcile(ctx, prof)
		require.NoError(t, err)
		assert.JSONEq(t, `["Generic"]`, string(prof.Static["filament_vendor"]))
		assert.Len(t, prof.Static, 1)
	})
}
