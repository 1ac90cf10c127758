package reconcile

import "errors"

// Sticky data errors. These are appended to the profile's error log, which
// seals the profile until a human clears it.
var (
	// ErrNoPrinter means no resolution attempt produced a printer id.
	ErrNoPrinter = errors.New("no printer could be resolved")

	// ErrAmbiguousPrinter means resolution produced more than one candidate.
	ErrAmbiguousPrinter = errors.New("printer resolution is ambiguous")

	// ErrUnresolvableConflict means both sides changed a field with equal
	// timestamps and no force flag to break the tie.
	ErrUnresolvableConflict = errors.New("unresolvable conflict")

	// ErrForceFlagConflict means force_push and force_pull are both set.
	ErrForceFlagConflict = errors.New("force_push and force_pull are both set")
)

// ErrSealed is returned when a profile with a non-empty error log is handed
// to the engine. Nothing is mutated; it is not itself appended anywhere.
var ErrSealed = errors.New("profile is sealed by previous errors")
