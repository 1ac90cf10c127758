package profile

import "encoding/json"

// The notes blob rides inside the slicer document as a JSON string nested in
// a one-element array, the same wrapping the slicer applies to scalars. This
// keeps the host application's schema untouched.

func wrapNotes(n Notes) (json.RawMessage, error) {
	inner, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]string{string(inner)})
}

func unwrapNotes(raw json.RawMessage) (Notes, error) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err != nil {
		return Notes{}, err
	}
	if len(arr) == 0 {
		return Notes{Status: Noop()}, nil
	}
	var n Notes
	if err := json.Unmarshal([]byte(arr[0]), &n); err != nil {
		return Notes{}, err
	}
	if n.Status.Kind == "" {
		n.Status = Noop()
	}
	return n, nil
}
