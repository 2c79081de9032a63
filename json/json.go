// Package json provides a JSON codec implementation.
package json

import (
	"bytes"
	"encoding/json"

	"github.com/zoobzio/facet"
)

// jsonCodec implements facet.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
//
// Decoding keeps numbers exact (json.Number into interface values) and
// rejects unknown object keys when decoding into structs, so a misspelt
// side table entry fails instead of binding nothing.
func New() facet.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
