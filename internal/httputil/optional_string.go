package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a PATCH field (RFC 7396) with three states:
// absent (keep), null (clear) and a value (set). A plain *string cannot
// tell absent from null.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs for keys present in the body.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Apply writes the patch into dst. Absent fields leave dst untouched.
func (o OptionalString) Apply(dst **string) {
	if o.Present {
		*dst = o.Value
	}
}
