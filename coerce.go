package facet

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var (
	scannerType  = reflect.TypeFor[sql.Scanner]()
	stringerType = reflect.TypeFor[fmt.Stringer]()
	decimalType  = reflect.TypeFor[decimal.Decimal]()
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
)

// UnwrapNullable returns the value type wrapped by a nullable type, or rt
// unchanged. Nullable types are pointers to value types (*int32) and
// {Value, Valid bool} structs that implement sql.Scanner, which covers
// sql.Null[T], sql.NullInt64 and friends, and decimal.NullDecimal.
func UnwrapNullable(rt reflect.Type) reflect.Type {
	if inner, ok := nullableInner(rt); ok {
		return inner
	}
	return rt
}

// IsNullable reports whether rt is a nullable wrapper.
func IsNullable(rt reflect.Type) bool {
	_, ok := nullableInner(rt)
	return ok
}

func nullableInner(rt reflect.Type) (reflect.Type, bool) {
	if rt == nil {
		return nil, false
	}
	switch rt.Kind() {
	case reflect.Ptr:
		elem := rt.Elem()
		if !isValueKind(elem.Kind()) {
			return nil, false
		}
		if idx := nullValueField(elem); idx >= 0 {
			return elem.Field(idx).Type, true
		}
		return elem, true
	case reflect.Struct:
		if idx := nullValueField(rt); idx >= 0 {
			return rt.Field(idx).Type, true
		}
	}
	return nil, false
}

// nullValueField returns the index of the value field of a nullable
// struct, or -1 if rt is not one.
func nullValueField(rt reflect.Type) int {
	if rt.Kind() != reflect.Struct || rt.NumField() != 2 {
		return -1
	}
	if !reflect.PointerTo(rt).Implements(scannerType) {
		return -1
	}
	valid, ok := rt.FieldByName("Valid")
	if !ok || valid.Type.Kind() != reflect.Bool || len(valid.Index) != 1 {
		return -1
	}
	return 1 - valid.Index[0]
}

func isValueKind(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return false
	}
	return true
}

// IsNumeric reports whether rt is an integer, floating point, or
// fixed-point decimal type, looking through nullable wrappers.
// Enums, bool, string, and nil are not numeric.
func IsNumeric(rt reflect.Type) bool {
	if rt == nil {
		return false
	}
	rt = UnwrapNullable(rt)
	if rt == decimalType {
		return true
	}
	if isEnum(rt) {
		return false
	}
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// isEnum reports whether rt is a named integer or string type with a
// String method. time.Duration is a quantity, not an enum.
func isEnum(rt reflect.Type) bool {
	if rt == nil || rt.Name() == "" || rt.PkgPath() == "" || rt == durationType {
		return false
	}
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return rt.Implements(stringerType)
	}
	return false
}

// IsEnum reports whether rt, after unwrapping nullables, is treated as an
// enum by Coerce.
func IsEnum(rt reflect.Type) bool {
	return isEnum(UnwrapNullable(rt))
}

// Coerce converts value to target. Nullable targets are unwrapped first.
//
// A nil value (including a typed nil pointer or a null Value) yields nil
// without conversion. An enum target accepts value unchanged; the caller
// must already supply a compatible representation. Any other target is
// converted generically and the result has exactly the target type.
// Failures return a *ConversionError.
func Coerce(value any, target reflect.Type) (any, error) {
	value, ok := normalize(value)
	if !ok {
		return nil, nil
	}
	target = UnwrapNullable(target)
	if target == nil || isEnum(target) {
		return value, nil
	}
	out, err := convert(value, target)
	if err != nil {
		return nil, newConversionError(value, target, err)
	}
	return out, nil
}

// CoerceTo converts value to T, rewrapping into T when T is nullable.
func CoerceTo[T any](value any) (T, error) {
	var zero T
	target := reflect.TypeFor[T]()
	out, err := Coerce(value, target)
	if err != nil {
		return zero, err
	}
	rv, err := wrapNullable(out, target)
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// normalize strips nullable wrappers and Value variants from a source
// value. It returns false when the value is null.
func normalize(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	if v, ok := value.(Value); ok {
		if v.IsNull() {
			return nil, false
		}
		return v.Interface(), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, false
		}
		if isValueKind(rv.Elem().Kind()) {
			return normalize(rv.Elem().Interface())
		}
	case reflect.Struct:
		if idx := nullValueField(rv.Type()); idx >= 0 {
			if !rv.FieldByName("Valid").Bool() {
				return nil, false
			}
			return rv.Field(idx).Interface(), true
		}
	}
	return value, true
}

func convert(value any, target reflect.Type) (any, error) {
	src := reflect.TypeOf(value)
	if src == target {
		return value, nil
	}
	if d, ok := value.(decimal.Decimal); ok && target != decimalType {
		value = decimalSource(d, target)
	}

	var out reflect.Value
	switch {
	case target == decimalType:
		d, err := toDecimal(value)
		if err != nil {
			return nil, err
		}
		return d, nil
	case target == timeType:
		t, err := cast.ToTimeE(value)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	switch target.Kind() {
	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		if reflect.Zero(target).OverflowInt(n) {
			return nil, fmt.Errorf("%d overflows %s", n, target)
		}
		out = reflect.ValueOf(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(value)
		if err != nil {
			return nil, err
		}
		if reflect.Zero(target).OverflowUint(n) {
			return nil, fmt.Errorf("%d overflows %s", n, target)
		}
		out = reflect.ValueOf(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		if reflect.Zero(target).OverflowFloat(f) {
			return nil, fmt.Errorf("%g overflows %s", f, target)
		}
		out = reflect.ValueOf(f)
	case reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(s)
	default:
		rv := reflect.ValueOf(value)
		if rv.Type().AssignableTo(target) {
			nv := reflect.New(target).Elem()
			nv.Set(rv)
			return nv.Interface(), nil
		}
		if rv.Type().ConvertibleTo(target) && rv.Kind() == target.Kind() {
			return rv.Convert(target).Interface(), nil
		}
		return nil, fmt.Errorf("no conversion from %s", src)
	}
	return out.Convert(target).Interface(), nil
}

// decimalSource turns a decimal into the primitive cast understands for
// the target kind. Fractional decimals keep their string form for integer
// targets so that the conversion fails instead of truncating.
func decimalSource(d decimal.Decimal, target reflect.Type) any {
	switch target.Kind() {
	case reflect.Float32, reflect.Float64:
		return d.InexactFloat64()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if d.IsInteger() {
			return d.IntPart()
		}
	}
	return d.String()
}

// toInt64 reads text as base-10 digits; cast would accept Go literal
// syntax and turn "010" into 8. Fractional floats are rejected.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float64:
		if err := wholeFloat(v); err != nil {
			return 0, err
		}
	case float32:
		if err := wholeFloat(float64(v)); err != nil {
			return 0, err
		}
	}
	return cast.ToInt64E(value)
}

func toUint64(value any) (uint64, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	case float64:
		if err := wholeFloat(v); err != nil {
			return 0, err
		}
	case float32:
		if err := wholeFloat(float64(v)); err != nil {
			return 0, err
		}
	}
	return cast.ToUint64E(value)
}

func wholeFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return fmt.Errorf("%g is not a whole number", f)
	}
	return nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case bool:
		return decimal.Decimal{}, fmt.Errorf("bool is not a decimal")
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// wrapNullable builds a value of declared type from a coerced underlying
// value: nil maps to the zero (null) wrapper, otherwise the value is
// placed into a new pointer or nullable struct.
func wrapNullable(value any, declared reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(declared), nil
	}
	switch declared.Kind() {
	case reflect.Ptr:
		if isValueKind(declared.Elem().Kind()) {
			inner, err := wrapNullable(value, declared.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			p := reflect.New(declared.Elem())
			p.Elem().Set(inner)
			return p, nil
		}
	case reflect.Struct:
		if idx := nullValueField(declared); idx >= 0 {
			inner, err := assignable(value, declared.Field(idx).Type)
			if err != nil {
				return reflect.Value{}, err
			}
			s := reflect.New(declared).Elem()
			s.Field(idx).Set(inner)
			s.FieldByName("Valid").SetBool(true)
			return s, nil
		}
	}
	return assignable(value, declared)
}

// assignable returns value as a reflect.Value of type to. Enum targets
// accept any value whose representation converts to the enum.
func assignable(value any, to reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(to) {
		nv := reflect.New(to).Elem()
		nv.Set(rv)
		return nv, nil
	}
	if rv.Type().ConvertibleTo(to) && sameFamily(rv.Kind(), to.Kind()) {
		return rv.Convert(to), nil
	}
	return reflect.Value{}, newConversionError(value, to, fmt.Errorf("not assignable"))
}

// sameFamily guards reflect.Convert against int-to-string rune conversion.
func sameFamily(a, b reflect.Kind) bool {
	if a == reflect.String || b == reflect.String {
		return a == b
	}
	return true
}
