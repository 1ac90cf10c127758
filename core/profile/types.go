package profile

import "encoding/json"

// Status kinds, terminal per reconciliation pass. The status is replaced on
// every run; history lives in the notes debug log.
const (
	StatusNoop           = "noop"
	StatusUpdateSpoolman = "update_spoolman"
	StatusUpdatedLocal   = "updated_local"
	StatusUpdatedBoth    = "updated_both"
)

// Status records the outcome of the last reconciliation pass.
// It is observability-only and never feeds back into merge decisions.
type Status struct {
	// Kind is one of the Status* constants.
	Kind string `json:"kind"`
	// LocalReason explains updates applied to the local profile.
	LocalReason string `json:"local_reason,omitempty"`
	// RemoteReason explains updates pushed to the pool.
	RemoteReason string `json:"remote_reason,omitempty"`
}

// Noop returns the default status for a pass that changed nothing.
func Noop() Status {
	return Status{Kind: StatusNoop}
}

// DebugEntry is one line of the append-only audit log in the notes blob.
type DebugEntry struct {
	Timestamp uint64 `json:"timestamp"`
	Message   string `json:"message"`
}

// Notes is the sync-state blob embedded in each profile under the
// filament_notes key. On disk it is stored as a JSON string nested inside a
// one-element array, matching the slicer's schema.
type Notes struct {
	// SpoolmanID links the profile to a remote pool record. Absent means
	// the profile is not yet linked.
	SpoolmanID *uint64 `json:"spoolman_id,omitempty"`
	// PrinterID pins the profile to a printer, bypassing resolution.
	PrinterID string `json:"printer_id,omitempty"`
	// ForcePush and ForcePull are one-shot operator overrides. Setting both
	// is a configuration error and seals the profile.
	ForcePush bool `json:"force_push,omitempty"`
	ForcePull bool `json:"force_pull,omitempty"`
	// DryRun previews a pass without applying it.
	DryRun bool `json:"dry_run,omitempty"`
	// LastModified is the logical timestamp of the last write to the
	// reconcilable fields. Absent is treated as older than anything.
	LastModified *uint64 `json:"last_modified,omitempty"`
	// Status is the outcome of the last pass.
	Status Status `json:"status"`
	// Debug is the append-only audit log.
	Debug []DebugEntry `json:"debug,omitempty"`
	// Errors seals the profile: while non-empty, reconciliation refuses to
	// mutate anything but this list.
	Errors []string `json:"errors,omitempty"`
	// DesiredLocal and DesiredRemote surface the would-be merged field
	// values of a dry-run pass. Cleared when a pass actually applies.
	DesiredLocal  map[string]string `json:"desired_local,omitempty"`
	DesiredRemote map[string]string `json:"desired_remote,omitempty"`
}

// Sealed reports whether previous errors suspend reconciliation.
func (n *Notes) Sealed() bool {
	return len(n.Errors) > 0
}

// AppendError records a sticky error. Only an external edit that empties the
// list resumes reconciliation.
func (n *Notes) AppendError(msg string) {
	n.Errors = append(n.Errors, msg)
}

// AppendDebug records an audit entry, trimming the log to max entries when
// max is positive.
func (n *Notes) AppendDebug(ts uint64, msg string, max int) {
	n.Debug = append(n.Debug, DebugEntry{Timestamp: ts, Message: msg})
	if max > 0 && len(n.Debug) > max {
		n.Debug = n.Debug[len(n.Debug)-max:]
	}
}

// Profile is one slicer filament file in decoded form.
type Profile struct {
	// ID is the slicer's filament_settings_id.
	ID string
	// Name is the display name, conventionally "(Manufacturer) Material - Name @Printer".
	Name string
	// Inherits references a parent profile. Opaque to reconciliation.
	Inherits string
	// Reconcilable holds the fields the engine may merge.
	Reconcilable map[string]Field
	// Static holds every other field byte-for-byte as found on disk.
	// Reconciliation never produces or alters these.
	Static map[string]json.RawMessage
	// Notes is the embedded sync state.
	Notes Notes
}

// DisplayName returns the name, falling back to the settings id.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Reconcilable = make(map[string]Field, len(p.Reconcilable))
	for k, v := range p.Reconcilable {
		c.Reconcilable[k] = v
	}
	c.Static = make(map[string]json.RawMessage, len(p.Static))
	for k, v := range p.Static {
		c.Static[k] = append(json.RawMessage(nil), v...)
	}
	c.Notes.Debug = append([]DebugEntry(nil), p.Notes.Debug...)
	c.Notes.Errors = append([]string(nil), p.Notes.Errors...)
	if p.Notes.SpoolmanID != nil {
		id := *p.Notes.SpoolmanID
		c.Notes.SpoolmanID = &id
	}
	if p.Notes.LastModified != nil {
		ts := *p.Notes.LastModified
		c.Notes.LastModified = &ts
	}
	c.Notes.DesiredLocal = cloneStringMap(p.Notes.DesiredLocal)
	c.Notes.DesiredRemote = cloneStringMap(p.Notes.DesiredRemote)
	return &c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
