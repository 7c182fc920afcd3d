package httputil

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an absent PATCH field from an explicit null
// (RFC 7396). Present is false when the key was missing; a present null
// leaves Value nil.
type Optional[T any] struct {
	Present bool
	Value   *T
}

// UnmarshalJSON only runs for keys present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
