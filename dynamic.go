package facet

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// DynamicRecord is a duck-typed row: an ordered mapping from field name to
// Value. Roles for its fields come from a SideTable, never from the record.
//
// A DynamicRecord is not safe for concurrent mutation.
type DynamicRecord struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewDynamicRecord returns an empty record.
func NewDynamicRecord() *DynamicRecord {
	return &DynamicRecord{fields: orderedmap.New[string, Value]()}
}

func (r *DynamicRecord) init() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
}

// Field returns the value stored under name.
func (r *DynamicRecord) Field(name string) (Value, bool) {
	if r == nil || r.fields == nil {
		return Null(), false
	}
	return r.fields.Get(name)
}

// Set stores v under name. New names are appended; existing names keep
// their position.
func (r *DynamicRecord) Set(name string, v Value) *DynamicRecord {
	r.init()
	r.fields.Set(name, v)
	return r
}

// SetAny wraps v with ValueOf and stores it under name.
func (r *DynamicRecord) SetAny(name string, v any) error {
	val, err := ValueOf(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	r.Set(name, val)
	return nil
}

// Delete removes name and reports whether it was present.
func (r *DynamicRecord) Delete(name string) bool {
	if r.fields == nil {
		return false
	}
	_, ok := r.fields.Delete(name)
	return ok
}

// Len returns the number of fields.
func (r *DynamicRecord) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns field names in insertion order.
func (r *DynamicRecord) Keys() []string {
	keys := make([]string, 0, r.Len())
	if r.Len() == 0 {
		return keys
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Range calls fn for each field in order until fn returns false.
func (r *DynamicRecord) Range(fn func(name string, v Value) bool) {
	if r.Len() == 0 {
		return
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns an independent copy.
func (r *DynamicRecord) Clone() *DynamicRecord {
	c := NewDynamicRecord()
	r.Range(func(name string, v Value) bool {
		c.fields.Set(name, v)
		return true
	})
	return c
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *DynamicRecord) MarshalJSON() ([]byte, error) {
	r.init()
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *DynamicRecord) UnmarshalJSON(data []byte) error {
	r.fields = orderedmap.New[string, Value]()
	return r.fields.UnmarshalJSON(data)
}

// MarshalYAML encodes the record as a YAML mapping in field order.
func (r *DynamicRecord) MarshalYAML() (any, error) {
	r.init()
	return r.fields.MarshalYAML()
}

// UnmarshalYAML decodes a YAML mapping, keeping key order.
func (r *DynamicRecord) UnmarshalYAML(node *yaml.Node) error {
	r.fields = orderedmap.New[string, Value]()
	return r.fields.UnmarshalYAML(node)
}

var (
	_ msgpack.CustomEncoder = (*DynamicRecord)(nil)
	_ msgpack.CustomDecoder = (*DynamicRecord)(nil)
	_ bson.Marshaler        = (*DynamicRecord)(nil)
	_ bson.Unmarshaler      = (*DynamicRecord)(nil)
)

// EncodeMsgpack writes the record as a msgpack map in field order.
func (r *DynamicRecord) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(r.Len()); err != nil {
		return err
	}
	var err error
	r.Range(func(name string, v Value) bool {
		if err = enc.EncodeString(name); err != nil {
			return false
		}
		err = enc.Encode(v.wire())
		return err == nil
	})
	return err
}

// DecodeMsgpack reads a msgpack map, keeping key order.
func (r *DynamicRecord) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	r.fields = orderedmap.New[string, Value]()
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		raw, err := dec.DecodeInterface()
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		if err := r.SetAny(name, msgpackInt(raw)); err != nil {
			return err
		}
	}
	return nil
}

// msgpackInt folds unsigned integers back into int64 when they fit:
// compact encoding writes non-negative ints as unsigned, so signedness
// does not survive the wire.
func msgpackInt(raw any) any {
	var u uint64
	switch x := raw.(type) {
	case uint8:
		u = uint64(x)
	case uint16:
		u = uint64(x)
	case uint32:
		u = uint64(x)
	case uint64:
		u = x
	default:
		return raw
	}
	if u > math.MaxInt64 {
		return u
	}
	return int64(u)
}

// MarshalBSON encodes the record as a BSON document in field order.
func (r *DynamicRecord) MarshalBSON() ([]byte, error) {
	doc := make(bson.D, 0, r.Len())
	var err error
	r.Range(func(name string, v Value) bool {
		var raw any = v.Interface()
		if v.Kind() == KindDecimal {
			raw, err = primitive.ParseDecimal128(v.d.String())
			if err != nil {
				err = fmt.Errorf("field %s: %w", name, err)
				return false
			}
		}
		doc = append(doc, bson.E{Key: name, Value: raw})
		return true
	})
	if err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

// UnmarshalBSON decodes a BSON document, keeping key order.
func (r *DynamicRecord) UnmarshalBSON(data []byte) error {
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.fields = orderedmap.New[string, Value]()
	for _, e := range doc {
		raw := e.Value
		switch x := raw.(type) {
		case primitive.DateTime:
			raw = x.Time().UTC()
		case primitive.Decimal128:
			d, err := decimal.NewFromString(x.String())
			if err != nil {
				return fmt.Errorf("field %s: %w", e.Key, err)
			}
			raw = d
		case primitive.Binary:
			raw = x.Data
		}
		if err := r.SetAny(e.Key, raw); err != nil {
			return err
		}
	}
	return nil
}
