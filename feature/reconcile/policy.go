package reconcile

import "fmt"

// Force selects a one-shot override direction for a pass.
type Force int

const (
	// ForceNone resolves conflicts by logical timestamp.
	ForceNone Force = iota
	// ForcePull makes the local side adopt the remote value on conflict.
	ForcePull
	// ForcePush makes the remote side adopt the local value on conflict.
	ForcePush
)

// Destination says which side(s) a merge result must be written to.
type Destination int

const (
	DestNone Destination = iota
	DestLocal
	DestRemote
	DestBoth
)

// Merged is the outcome of merging one reconcilable field. The reason
// strings are generated here, not by callers, so audit entries are
// reproducible from the same inputs.
type Merged struct {
	// Value is the merged value; Set is false when both sides are unset.
	Value string
	Set   bool
	// Destination is where the merged value must be written.
	Destination Destination
	// LocalReason explains a local-destined write, RemoteReason a
	// remote-destined one.
	LocalReason  string
	RemoteReason string
}

// Merge applies the per-field policy. Static fields and overrides never pass
// through here; they are copy-through from their authoritative source and
// excluded from conflict detection entirely.
//
// A nil timestamp is older than any set timestamp. Equal timestamps with
// differing values and no force flag is ErrUnresolvableConflict: the policy
// never silently picks a side.
func Merge(field string, local, remote *string, localTS, remoteTS *uint64, force Force) (Merged, error) {
	switch {
	case local == nil && remote == nil:
		return Merged{}, nil

	case local == nil:
		// First-write-wins seeding: one-directional, not a conflict.
		return Merged{
			Value:       *remote,
			Set:         true,
			Destination: DestLocal,
			LocalReason: fmt.Sprintf("%s: adopted remote %q (local unset)", field, *remote),
		}, nil

	case remote == nil:
		return Merged{
			Value:        *local,
			Set:          true,
			Destination:  DestRemote,
			RemoteReason: fmt.Sprintf("%s: adopted local %q (remote unset)", field, *local),
		}, nil

	case *local == *remote:
		return Merged{Value: *local, Set: true}, nil
	}

	// Both set, values differ: a resolved conflict confirms the winning
	// value on both sides, so its destination is always DestBoth.
	switch force {
	case ForcePull:
		return Merged{
			Value:       *remote,
			Set:         true,
			Destination: DestBoth,
			LocalReason: fmt.Sprintf("%s: forced pull %q over %q", field, *remote, *local),
		}, nil
	case ForcePush:
		return Merged{
			Value:        *local,
			Set:          true,
			Destination:  DestBoth,
			RemoteReason: fmt.Sprintf("%s: forced push %q over %q", field, *local, *remote),
		}, nil
	}

	lts, rts := tsValue(localTS), tsValue(remoteTS)
	switch {
	case rts > lts:
		return Merged{
			Value:       *remote,
			Set:         true,
			Destination: DestBoth,
			LocalReason: fmt.Sprintf("%s: remote %q@%d supersedes local %q@%d", field, *remote, rts, *local, lts),
		}, nil
	case lts > rts:
		return Merged{
			Value:        *local,
			Set:          true,
			Destination:  DestBoth,
			RemoteReason: fmt.Sprintf("%s: local %q@%d supersedes remote %q@%d", field, *local, lts, *remote, rts),
		}, nil
	default:
		return Merged{}, fmt.Errorf("%w: %s local %q and remote %q at timestamp %d",
			ErrUnresolvableConflict, field, *local, *remote, lts)
	}
}

// tsValue maps an absent timestamp to zero, older than anything set.
func tsValue(ts *uint64) uint64 {
	if ts == nil {
		return 0
	}
	return *ts
}
