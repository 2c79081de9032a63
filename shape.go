package facet

import "reflect"

// Shape is the structural category of a row type.
type Shape uint8

const (
	// ShapeRecord is a type with statically enumerable named properties.
	ShapeRecord Shape = iota

	// ShapeArray is a fixed element type sequence (slice or array).
	ShapeArray

	// ShapeDynamic is a type whose members are resolved by name at runtime.
	ShapeDynamic
)

func (s Shape) String() string {
	switch s {
	case ShapeRecord:
		return "record"
	case ShapeArray:
		return "array"
	case ShapeDynamic:
		return "dynamic"
	}
	return "unknown"
}

// FieldResolver is implemented by row types that resolve members by name
// at runtime. *DynamicRecord is the canonical implementation.
type FieldResolver interface {
	Field(name string) (Value, bool)
}

var resolverType = reflect.TypeFor[FieldResolver]()

// Classify determines the shape of rt. Pointers are dereferenced first.
// Exactly one shape always applies; a nil type is a Record with no members.
func Classify(rt reflect.Type) Shape {
	if rt == nil {
		return ShapeRecord
	}
	if rt.Implements(resolverType) {
		return ShapeDynamic
	}
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Implements(resolverType) || reflect.PointerTo(rt).Implements(resolverType) {
		return ShapeDynamic
	}
	switch rt.Kind() {
	case reflect.Map:
		if rt.Key().Kind() == reflect.String {
			return ShapeDynamic
		}
	case reflect.Slice, reflect.Array:
		return ShapeArray
	}
	return ShapeRecord
}

// ClassifyOf determines the shape of T.
func ClassifyOf[T any]() Shape {
	return Classify(reflect.TypeFor[T]())
}
