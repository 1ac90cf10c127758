package profile_test

import (
	"encoding/json"
	"testing"

	"filament-sync/core/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(t *testing.T) []byte {
	t.Helper()
	notes, err := json.Marshal(profile.Notes{PrinterID: "Voron"})
	require.NoError(t, err)
	doc := map[string]any{
		"filament_settings_id": "PLA-01",
		"name":                 "PLA Red @Voron",
		"inherits":             "Generic PLA",
		"nozzle_temperature":   []string{"220"},
		"bed_temperature":      []string{"60"},
		"filament_vendor":      []string{"Generic"},
		"filament_notes":       []string{string(notes)},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func TestCodecDecode(t *testing.T) {
	codec := profile.NewCodec(nil)

	t.Run("FullProfile", func(t *testing.T) {
		p, err := codec.Decode(sampleDoc(t))
		require.NoError(t, err)

		assert.Equal(t, "PLA-01", p.ID)
		assert.Equal(t, "PLA Red @Voron", p.Name)
		assert.Equal(t, "Generic PLA", p.Inherits)
		assert.Equal(t, "Voron", p.Notes.PrinterID)

		v, ok := p.Reconcilable["nozzle_temperature"].Value()
		assert.True(t, ok)
		assert.Equal(t, "220", v)

		// Non-reconcilable keys stay raw and untyped.
		assert.Contains(t, p.Static, "filament_vendor")
		assert.NotContains(t, p.Static, "nozzle_temperature")
	})

	t.Run("BareNumberScalar", func(t *testing.T) {
		p, err := codec.Decode([]byte(`{"nozzle_temperature":[220]}`))
		require.NoError(t, err)

		v, ok := p.Reconcilable["nozzle_temperature"].Value()
		assert.True(t, ok)
		assert.Equal(t, "220", v)
	})

	t.Run("EmptyArrayIsUnset", func(t *testing.T) {
		p, err := codec.Decode([]byte(`{"nozzle_temperature":[]}`))
		require.NoError(t, err)
		assert.NotContains(t, p.Reconcilable, "nozzle_temperature")
	})

	t.Run("MissingNotesDefaultsToNoop", func(t *testing.T) {
		p, err := codec.Decode([]byte(`{"name":"PLA"}`))
		require.NoError(t, err)
		assert.Equal(t, profile.StatusNoop, p.Notes.Status.Kind)
	})

	t.Run("WrappedIdentityField", func(t *testing.T) {
		p, err := codec.Decode([]byte(`{"filament_settings_id":["PLA-02"]}`))
		require.NoError(t, err)
		assert.Equal(t, "PLA-02", p.ID)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		_, err := codec.Decode([]byte(`{not json`))
		var decodeErr *profile.DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})

	t.Run("MalformedNotes", func(t *testing.T) {
		_, err := codec.Decode([]byte(`{"filament_notes":["{broken"]}`))
		var decodeErr *profile.DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})
}

func TestCodecEncode(t *testing.T) {
	codec := profile.NewCodec(nil)

	t.Run("RoundTripPreservesStatic", func(t *testing.T) {
		p, err := codec.Decode(sampleDoc(t))
		require.NoError(t, err)

		data, err := codec.Encode(p)
		require.NoError(t, err)

		p2, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, p.Static, p2.Static)
		assert.Equal(t, p.Reconcilable, p2.Reconcilable)
		assert.Equal(t, p.Notes.PrinterID, p2.Notes.PrinterID)
	})

	t.Run("Deterministic", func(t *testing.T) {
		p, err := codec.Decode(sampleDoc(t))
		require.NoError(t, err)

		a, err := codec.Encode(p)
		require.NoError(t, err)
		b, err := codec.Encode(p)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("ScalarsStayWrapped", func(t *testing.T) {
		p := &profile.Profile{
			ID:           "X",
			Reconcilable: map[string]profile.Field{"bed_temperature": profile.NewField("60")},
			Static:       map[string]json.RawMessage{},
		}
		data, err := codec.Encode(p)
		require.NoError(t, err)

		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.JSONEq(t, `["60"]`, string(doc["bed_temperature"]))
	})

	t.Run("NotesNestedAsStringArray", func(t *testing.T) {
		p := &profile.Profile{
			Reconcilable: map[string]profile.Field{},
			Static:       map[string]json.RawMessage{},
			Notes:        profile.Notes{PrinterID: "Mini"},
		}
		data, err := codec.Encode(p)
		require.NoError(t, err)

		var doc map[string][]string
		require.NoError(t, json.Unmarshal(data, &doc))
		require.Len(t, doc["filament_notes"], 1)

		var n profile.Notes
		require.NoError(t, json.Unmarshal([]byte(doc["filament_notes"][0]), &n))
		assert.Equal(t, "Mini", n.PrinterID)
	})
}

func TestCodecReconcilableFields(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		codec := profile.NewCodec(nil)
		assert.Equal(t, []string{"bed_temperature", "chamber_temperature", "nozzle_temperature"}, codec.ReconcilableFields())
	})

	t.Run("Custom", func(t *testing.T) {
		codec := profile.NewCodec([]string{"pressure_advance"})
		assert.Equal(t, []string{"pressure_advance"}, codec.ReconcilableFields())

		p, err := codec.Decode([]byte(`{"pressure_advance":["0.04"],"nozzle_temperature":["220"]}`))
		require.NoError(t, err)
		assert.Contains(t, p.Reconcilable, "pressure_advance")
		assert.Contains(t, p.Static, "nozzle_temperature")
	})
}
