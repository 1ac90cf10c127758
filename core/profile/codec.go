package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Keys the codec lifts out of the raw document. Everything else is static.
const (
	keySettingsID = "filament_settings_id"
	keyName       = "name"
	keyInherits   = "inherits"
	keyNotes      = "filament_notes"
)

// DefaultReconcilableFields is the field set merged with the pool when no
// explicit set is configured.
var DefaultReconcilableFields = []string{
	"nozzle_temperature",
	"bed_temperature",
	"chamber_temperature",
}

// DecodeError marks a malformed profile file. The file is logged and
// skipped; no state is mutated.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode profile: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Codec converts between raw slicer bytes and Profiles. It owns the slicer's
// wrapping conventions so the engine works with clean typed structures.
type Codec struct {
	reconcilable map[string]struct{}
}

// NewCodec creates a codec merging the given reconcilable field set.
// A nil or empty set selects DefaultReconcilableFields.
func NewCodec(fields []string) *Codec {
	if len(fields) == 0 {
		fields = DefaultReconcilableFields
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return &Codec{reconcilable: set}
}

// ReconcilableFields returns the configured field set in sorted order.
func (c *Codec) ReconcilableFields() []string {
	fields := make([]string, 0, len(c.reconcilable))
	for f := range c.reconcilable {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Decode parses raw slicer JSON into a Profile.
func (c *Codec) Decode(data []byte) (*Profile, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Err: err}
	}

	p := &Profile{
		Reconcilable: make(map[string]Field),
		Static:       make(map[string]json.RawMessage),
	}

	for key, raw := range doc {
		switch {
		case key == keySettingsID:
			if err := decodeString(raw, &p.ID); err != nil {
				return nil, &DecodeError{Err: fmt.Errorf("%s: %w", key, err)}
			}
		case key == keyName:
			if err := decodeString(raw, &p.Name); err != nil {
				return nil, &DecodeError{Err: fmt.Errorf("%s: %w", key, err)}
			}
		case key == keyInherits:
			if err := decodeString(raw, &p.Inherits); err != nil {
				return nil, &DecodeError{Err: fmt.Errorf("%s: %w", key, err)}
			}
		case key == keyNotes:
			notes, err := unwrapNotes(raw)
			if err != nil {
				return nil, &DecodeError{Err: fmt.Errorf("%s: %w", key, err)}
			}
			p.Notes = notes
		case c.isReconcilable(key):
			var f Field
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, &DecodeError{Err: fmt.Errorf("%s: %w", key, err)}
			}
			if f.IsSet() {
				p.Reconcilable[key] = f
			}
		default:
			p.Static[key] = raw
		}
	}

	if p.Notes.Status.Kind == "" {
		p.Notes.Status = Noop()
	}

	return p, nil
}

// Encode serializes a Profile back to slicer JSON. Keys are emitted in
// sorted order so the output is deterministic and byte-comparable.
func (c *Codec) Encode(p *Profile) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(p.Static)+len(p.Reconcilable)+4)
	for key, raw := range p.Static {
		doc[key] = raw
	}
	if p.ID != "" {
		doc[keySettingsID] = mustString(p.ID)
	}
	if p.Name != "" {
		doc[keyName] = mustString(p.Name)
	}
	if p.Inherits != "" {
		doc[keyInherits] = mustString(p.Inherits)
	}
	for key, f := range p.Reconcilable {
		if !f.IsSet() {
			continue
		}
		raw, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		doc[key] = raw
	}
	notes, err := wrapNotes(p.Notes)
	if err != nil {
		return nil, err
	}
	doc[keyNotes] = notes

	return encodeOrdered(doc)
}

func (c *Codec) isReconcilable(key string) bool {
	_, ok := c.reconcilable[key]
	return ok
}

// decodeString reads a plain JSON string, tolerating the one-element array
// wrapping some slicer versions apply to identity fields.
func decodeString(raw json.RawMessage, dst *string) error {
	if err := json.Unmarshal(raw, dst); err == nil {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err != nil {
		return err
	}
	if len(arr) > 0 {
		*dst = arr[0]
	}
	return nil
}

func mustString(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

// encodeOrdered writes a JSON object with sorted keys.
func encodeOrdered(doc map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		compact, err := compactRaw(doc[k])
		if err != nil {
			return nil, err
		}
		buf.Write(compact)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compactRaw normalizes whitespace inside raw values carried over from the
// source document, so encoding the same profile always yields the same bytes.
func compactRaw(raw json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
