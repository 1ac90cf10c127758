package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"filament-sync/core/profile"
)

// ResolvePrinter determines which printer a profile belongs to.
//
// Attempts, in order: the explicit printer_id in the notes, a trailing
// "@Printer" suffix on the profile name or settings id, then a single
// unambiguous compatible_printers entry. Any other outcome is ErrNoPrinter
// or ErrAmbiguousPrinter; both seal the profile and skip all further
// processing, so a failed resolution never partially applies.
func ResolvePrinter(p *profile.Profile) (string, error) {
	if id := strings.TrimSpace(p.Notes.PrinterID); id != "" {
		return id, nil
	}

	fromName, err := suffixPrinter(p.Name)
	if err != nil {
		return "", err
	}
	fromID, err := suffixPrinter(p.ID)
	if err != nil {
		return "", err
	}
	switch {
	case fromName != "" && fromID != "" && fromName != fromID:
		return "", fmt.Errorf("%w: name suffix %q and id suffix %q disagree", ErrAmbiguousPrinter, fromName, fromID)
	case fromName != "":
		return fromName, nil
	case fromID != "":
		return fromID, nil
	}

	candidates, err := compatiblePrinters(p)
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 0:
		return "", ErrNoPrinter
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("%w: %d compatible_printers entries", ErrAmbiguousPrinter, len(candidates))
	}
}

// suffixPrinter extracts a trailing "@Printer" suffix. More than one "@" in
// the string is ambiguous rather than a guess.
func suffixPrinter(s string) (string, error) {
	if strings.Count(s, "@") > 1 {
		return "", fmt.Errorf("%w: multiple @ suffixes in %q", ErrAmbiguousPrinter, s)
	}
	idx := strings.Index(s, "@")
	if idx < 0 {
		return "", nil
	}
	return strings.TrimSpace(s[idx+1:]), nil
}

// compatiblePrinters reads the compatible_printers static field, which the
// slicer stores either as an array of printer names or a single string.
func compatiblePrinters(p *profile.Profile) ([]string, error) {
	raw, ok := p.Static["compatible_printers"]
	if !ok {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list), nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimNonEmpty([]string{single}), nil
	}
	return nil, fmt.Errorf("%w: compatible_printers has an unexpected shape", ErrNoPrinter)
}

func trimNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
