package facet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindString
	KindTime
	KindBytes
)

var kindNames = [...]string{"null", "bool", "int", "uint", "float", "decimal", "string", "time", "bytes"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a tagged variant holding one scalar column value of a
// DynamicRecord. The zero Value is null.
type Value struct {
	kind Kind
	n    uint64 // bool, int, uint, float bits
	s    string
	b    []byte
	d    decimal.Decimal
	t    time.Time
}

func Null() Value                     { return Value{} }
func Bool(b bool) Value               { v := Value{kind: KindBool}; v.n = boolBits(b); return v }
func Int(i int64) Value               { return Value{kind: KindInt, n: uint64(i)} }
func Uint(u uint64) Value             { return Value{kind: KindUint, n: u} }
func Float(f float64) Value           { return Value{kind: KindFloat, n: math.Float64bits(f)} }
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }
func String(s string) Value           { return Value{kind: KindString, s: s} }
func Time(t time.Time) Value          { return Value{kind: KindTime, t: t} }
func Bytes(b []byte) Value            { return Value{kind: KindBytes, b: append([]byte(nil), b...)} }

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// ValueOf wraps a Go scalar. Nullable wrappers are unwrapped, nil maps to
// Null, and composites (maps, slices other than []byte, structs other than
// time.Time and decimal.Decimal) fail with ErrUnsupportedValue.
func ValueOf(v any) (Value, error) {
	v, ok := normalize(v)
	if !ok {
		return Null(), nil
	}
	switch x := v.(type) {
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Uint(uint64(x)), nil
	case uint8:
		return Uint(uint64(x)), nil
	case uint16:
		return Uint(uint64(x)), nil
	case uint32:
		return Uint(uint64(x)), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case decimal.Decimal:
		return Decimal(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case time.Time:
		return Time(x), nil
	case json.Number:
		return numberValue(x.String())
	}

	// Named scalar types (enums, type Cents int64) keep their primitive form.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	}
	return Null(), fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// numberValue parses a textual number into the narrowest variant.
func numberValue(s string) (Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Uint(u), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null(), fmt.Errorf("%w: number %q", ErrUnsupportedValue, s)
	}
	return Float(f), nil
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the held value as a Go value, or nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.n == 1
	case KindInt:
		return int64(v.n)
	case KindUint:
		return v.n
	case KindFloat:
		return math.Float64frombits(v.n)
	case KindDecimal:
		return v.d
	case KindString:
		return v.s
	case KindTime:
		return v.t
	case KindBytes:
		return append([]byte(nil), v.b...)
	}
	return nil
}

// Type returns the Go type Interface produces, or nil for null.
func (v Value) Type() reflect.Type {
	if v.kind == KindNull {
		return nil
	}
	return reflect.TypeOf(v.Interface())
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindDecimal:
		return v.d.Equal(o.d)
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	}
	return v.n == o.n
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	return fmt.Sprint(v.wire())
}

// wire returns the representation used by the codecs: decimals travel as
// strings so no precision is lost.
func (v Value) wire() any {
	if v.kind == KindDecimal {
		return v.d.String()
	}
	return v.Interface()
}

// MarshalJSON encodes the held value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.wire())
}

// UnmarshalJSON decodes a JSON scalar. Integers stay integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes the held value.
func (v Value) MarshalYAML() (any, error) {
	return v.wire(), nil
}

// UnmarshalYAML decodes a YAML scalar node.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: yaml node at line %d", ErrUnsupportedValue, node.Line)
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
