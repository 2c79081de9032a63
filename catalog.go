package facet

import (
	"context"
	"reflect"
	"slices"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the role tag with sentinel so scanned fields carry it.
	sentinel.Tag(TagName)
}

// Property describes one statically declared member of a Record type.
type Property struct {
	Name       string
	Declared   reflect.Type // type as declared
	Underlying reflect.Type // Declared with any nullable wrapper removed
	Ordinal    int          // declaration order among catalogued properties

	index []int // reflect.Value.FieldByIndex access path
	roles annotations
}

// Nullable reports whether the declared type wraps the underlying type.
func (p Property) Nullable() bool {
	return p.Declared != p.Underlying
}

// Numeric reports whether the property holds a numeric value.
func (p Property) Numeric() bool {
	return IsNumeric(p.Underlying)
}

// Declares reports whether the property declares the given role kind.
func (p Property) Declares(kind RoleKind) bool {
	return p.roles.declared.Has(kind)
}

// Annotations returns the property's role annotations in declaration order.
func (p Property) Annotations() []Annotation {
	return slices.Clone(p.roles.list)
}

// Coerce converts value to the property's underlying type, stamping the
// property name on any ConversionError.
func (p Property) Coerce(value any) (any, error) {
	out, err := Coerce(value, p.Underlying)
	if err != nil {
		if ce, ok := err.(*ConversionError); ok {
			ce.Property = p.Name
		}
		emitCoerceFailed(context.Background(), p.Name, p.Underlying, err)
		return nil, err
	}
	return out, nil
}

// PropertiesOf builds the ordered property catalog for T.
func PropertiesOf[T any]() ([]Property, error) {
	rt := reflect.TypeFor[T]()
	if Classify(rt) != ShapeRecord {
		return nil, nil
	}
	if rt.Kind() != reflect.Struct {
		return Properties(rt)
	}
	meta := sentinel.Scan[T]()
	return buildProperties(rt, meta.TypeName, visibleFields(rt, meta.Fields))
}

// Properties builds the ordered property catalog for rt. Array and Dynamic
// shapes have no statically enumerable members and return nil. A Record
// that is not a struct has no properties.
//
// Construction is all-or-nothing: an indexed property or an invalid role
// tag anywhere in the type fails with a *ShapeError and no properties.
func Properties(rt reflect.Type) ([]Property, error) {
	if rt == nil || Classify(rt) != ShapeRecord {
		return nil, nil
	}
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return []Property{}, nil
	}
	return buildProperties(rt, rt.Name(), visibleFields(rt, scanFields(rt)))
}

// scanFields reads the metadata of rt's own fields when only a
// reflect.Type is available. It mirrors what sentinel reports for a
// scanned struct.
func scanFields(rt reflect.Type) []sentinel.FieldMetadata {
	fields := make([]sentinel.FieldMetadata, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tags := make(map[string]string)
		if val, ok := sf.Tag.Lookup(TagName); ok {
			tags[TagName] = val
		}
		fields = append(fields, sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        tags,
		})
	}
	return fields
}

// visibleFields expands top, the metadata of rt's own fields, with the
// fields promoted from embedded structs. An untagged embedded struct is
// replaced by its promoted fields at any depth; time, decimal, nullable,
// and tagged embeds stay whole. Shadowing follows Go's selector rules.
func visibleFields(rt reflect.Type, top []sentinel.FieldMetadata) []sentinel.FieldMetadata {
	own := make(map[int]sentinel.FieldMetadata, len(top))
	for _, f := range top {
		if len(f.Index) == 1 {
			own[f.Index[0]] = f
		}
	}

	out := make([]sentinel.FieldMetadata, 0, len(top))
	for _, sf := range reflect.VisibleFields(rt) {
		if !promotedThrough(rt, sf.Index) {
			continue
		}
		if sf.Anonymous && promotes(sf) {
			continue
		}
		if len(sf.Index) == 1 {
			if f, ok := own[sf.Index[0]]; ok {
				out = append(out, f)
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		tags := make(map[string]string)
		if val, ok := sf.Tag.Lookup(TagName); ok {
			tags[TagName] = val
		}
		out = append(out, sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        tags,
		})
	}
	return out
}

// promotedThrough reports whether every embed on the path to index
// promotes its fields.
func promotedThrough(rt reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		if !promotes(rt.FieldByIndex(index[:i])) {
			return false
		}
	}
	return true
}

func promotes(sf reflect.StructField) bool {
	if !sf.Anonymous {
		return false
	}
	if _, tagged := sf.Tag.Lookup(TagName); tagged {
		return false
	}
	t := sf.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType && t != decimalType && nullValueField(t) < 0
}

func buildProperties(rt reflect.Type, typeName string, fields []sentinel.FieldMetadata) ([]Property, error) {
	fields = slices.Clone(fields)
	slices.SortStableFunc(fields, func(a, b sentinel.FieldMetadata) int {
		return slices.Compare(a.Index, b.Index)
	})

	// Validate every field before accepting any.
	for _, field := range fields {
		if isIndexed(field.ReflectType) {
			return nil, newShapeError(ErrIndexedProperty, typeName, field.Name,
				"accessor "+field.ReflectType.String()+" takes arguments")
		}
	}

	props := make([]Property, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if !rt.FieldByIndex(field.Index).IsExported() {
			continue
		}
		tag, tagged := field.Tags[TagName]
		if tagged && tag == "-" {
			continue
		}
		if seen[field.Name] {
			return nil, newShapeError(ErrInvalidTag, typeName, field.Name, "duplicate property name")
		}
		seen[field.Name] = true

		var roles annotations
		if tagged {
			var err error
			if roles, err = parseTag(tag); err != nil {
				return nil, newShapeError(ErrInvalidTag, typeName, field.Name, err.Error())
			}
		}

		props = append(props, Property{
			Name:       field.Name,
			Declared:   field.ReflectType,
			Underlying: UnwrapNullable(field.ReflectType),
			Ordinal:    len(props),
			index:      field.Index,
			roles:      roles,
		})
	}
	return props, nil
}

// isIndexed reports whether a field is a parameterised accessor: a func
// that needs arguments cannot be addressed by a single column name.
func isIndexed(rt reflect.Type) bool {
	return rt != nil && rt.Kind() == reflect.Func && rt.NumIn() > 0
}
