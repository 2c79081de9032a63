// Package bson provides a BSON codec implementation.
package bson

import (
	"reflect"

	"github.com/zoobzio/facet"
	"go.mongodb.org/mongo-driver/bson"
)

// listKey holds the elements of a list, since a BSON top level must be a
// document.
const listKey = "items"

// bsonCodec implements facet.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec. Slices are wrapped in a single-key document
// on Marshal and unwrapped on Unmarshal, so record lists and side tables
// round-trip like they do in the other codecs.
func New() facet.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	if isList(reflect.TypeOf(v)) {
		return bson.Marshal(bson.D{{Key: listKey, Value: v}})
	}
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	if rt := reflect.TypeOf(v); rt != nil && rt.Kind() == reflect.Ptr && isList(rt.Elem()) {
		raw, err := bson.Raw(data).LookupErr(listKey)
		if err != nil {
			return err
		}
		return raw.Unmarshal(v)
	}
	return bson.Unmarshal(data, v)
}

func isList(rt reflect.Type) bool {
	if rt == nil {
		return false
	}
	switch rt.Kind() {
	case reflect.Slice:
		return rt.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}
