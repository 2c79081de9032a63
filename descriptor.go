package facet

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"
)

// Option configures descriptor construction.
type Option func(*describeConfig)

type describeConfig struct {
	table *SideTable
}

// WithSideTable adds explicit role bindings from t.
func WithSideTable(t *SideTable) Option {
	return func(c *describeConfig) {
		c.table = t
	}
}

func newDescribeConfig(opts []Option) describeConfig {
	var cfg describeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

var dynamicRecordType = reflect.TypeFor[*DynamicRecord]()

// Descriptor is the resolved schema of one row type for one requested role
// set. It is immutable after construction and safe for concurrent use by
// any number of row-processing workers.
type Descriptor struct {
	typ       reflect.Type
	name      string
	shape     Shape
	props     []Property
	byName    map[string]int
	roles     map[RoleKind][]Role
	requested RoleKind
}

// Describe builds the descriptor for T with the requested role kinds.
func Describe[T any](roles RoleKind, opts ...Option) (*Descriptor, error) {
	rt := reflect.TypeFor[T]()
	return describe(rt, roles, newDescribeConfig(opts), PropertiesOf[T])
}

// DescribeType builds the descriptor for rt with the requested role kinds.
func DescribeType(rt reflect.Type, roles RoleKind, opts ...Option) (*Descriptor, error) {
	return describe(rt, roles, newDescribeConfig(opts), func() ([]Property, error) {
		return Properties(rt)
	})
}

// DescribeDynamic builds the descriptor for *DynamicRecord rows whose roles
// are bound in table.
func DescribeDynamic(table *SideTable, roles RoleKind) (*Descriptor, error) {
	return DescribeType(dynamicRecordType, roles, WithSideTable(table))
}

func describe(rt reflect.Type, roles RoleKind, cfg describeConfig, catalog func() ([]Property, error)) (*Descriptor, error) {
	start := time.Now()
	name := typeName(rt)
	ctx := context.Background()

	d, err := build(rt, name, roles, cfg, catalog)
	if err != nil {
		emitDescriptorFailed(ctx, name, err)
		return nil, err
	}

	roleCount := 0
	for _, list := range d.roles {
		roleCount += len(list)
	}
	emitDescriptorBuilt(ctx, name, d.shape, len(d.props), roleCount, time.Since(start))
	return d, nil
}

func build(rt reflect.Type, name string, roles RoleKind, cfg describeConfig, catalog func() ([]Property, error)) (*Descriptor, error) {
	if err := cfg.table.Err(); err != nil {
		return nil, err
	}

	d := &Descriptor{
		typ:       rt,
		name:      name,
		shape:     Classify(rt),
		requested: roles & RoleAll,
	}

	// Dynamic members have no static declarations: roles come only from
	// the side table and the property list stays empty.
	scanned := []Property(nil)
	switch d.shape {
	case ShapeRecord:
		props, err := catalog()
		if err != nil {
			return nil, err
		}
		if props, err = cfg.table.apply(name, props); err != nil {
			return nil, err
		}
		d.props = props
		scanned = props
	case ShapeDynamic:
		scanned = cfg.table.properties()
	case ShapeArray:
		if cfg.table != nil {
			return nil, newShapeError(ErrUnsupportedShape, name, "", "side tables need named members")
		}
	}

	d.byName = make(map[string]int, len(d.props))
	for i, p := range d.props {
		d.byName[p.Name] = i
	}
	d.roles = Scan(scanned, d.requested)
	return d, nil
}

func typeName(rt reflect.Type) string {
	if rt == nil {
		return "nil"
	}
	return rt.String()
}

// Type returns the described type.
func (d *Descriptor) Type() reflect.Type { return d.typ }

// Name returns the described type's name.
func (d *Descriptor) Name() string { return d.name }

// Shape returns the described type's shape.
func (d *Descriptor) Shape() Shape { return d.shape }

// Properties returns the ordered property list. It is empty for Array and
// Dynamic shapes.
func (d *Descriptor) Properties() []Property {
	return slices.Clone(d.props)
}

// Property returns the named property.
func (d *Descriptor) Property(name string) (Property, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Property{}, false
	}
	return d.props[i], true
}

// Requested reports whether every kind in kind was requested.
func (d *Descriptor) Requested(kind RoleKind) bool {
	return d.requested.Has(kind)
}

// Roles returns the role list for a single kind, or nil when the kind was
// not requested.
func (d *Descriptor) Roles(kind RoleKind) []Role {
	roles, _ := d.RolesOK(kind)
	return roles
}

// RolesOK returns the role list for a single kind and whether the kind
// was requested. A requested kind with no declaring property returns an
// empty list and true.
func (d *Descriptor) RolesOK(kind RoleKind) ([]Role, bool) {
	list, ok := d.roles[kind]
	if !ok {
		return nil, false
	}
	return slices.Clone(list), true
}

// Columns returns the names of the properties holding kind, in order.
func (d *Descriptor) Columns(kind RoleKind) []string {
	list := d.roles[kind]
	names := make([]string, len(list))
	for i, r := range list {
		names[i] = r.Property
	}
	return names
}

// Get reads the named value from row. Nullable wrappers are unwrapped to
// nil or their underlying value. A missing dynamic member reads as nil.
func (d *Descriptor) Get(row any, name string) (any, error) {
	switch d.shape {
	case ShapeRecord:
		p, ok := d.Property(name)
		if !ok {
			return nil, newShapeError(ErrUnknownProperty, d.name, name, "")
		}
		rv, err := d.recordValue(row)
		if err != nil {
			return nil, err
		}
		// Only a nil embedded pointer on the path fails; the promoted
		// field is then unset and reads as null.
		field, err := rv.FieldByIndexErr(p.index)
		if err != nil {
			return nil, nil
		}
		v, _ := normalize(field.Interface())
		return v, nil
	case ShapeDynamic:
		return getDynamic(row, name)
	}
	return nil, newShapeError(ErrUnsupportedShape, d.name, name, "no named members")
}

// Set coerces value to the named property's type and writes it into row,
// which must be a pointer for records. Nil writes null into nullable
// properties and the zero value elsewhere.
func (d *Descriptor) Set(row any, name string, value any) error {
	switch d.shape {
	case ShapeRecord:
		p, ok := d.Property(name)
		if !ok {
			return newShapeError(ErrUnknownProperty, d.name, name, "")
		}
		rv := reflect.ValueOf(row)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			return fmt.Errorf("set %s.%s: row must be a non-nil pointer, got %T", d.name, name, row)
		}
		rv, err := d.recordValue(row)
		if err != nil {
			return err
		}
		out, err := p.Coerce(value)
		if err != nil {
			return err
		}
		wrapped, err := wrapNullable(out, p.Declared)
		if err != nil {
			var ce *ConversionError
			if errors.As(err, &ce) {
				ce.Property = p.Name
			}
			return err
		}
		field, err := fieldForSet(rv, p.index)
		if err != nil {
			return fmt.Errorf("set %s.%s: %w", d.name, name, err)
		}
		field.Set(wrapped)
		return nil
	case ShapeDynamic:
		return setDynamic(row, name, value)
	}
	return newShapeError(ErrUnsupportedShape, d.name, name, "no named members")
}

// recordValue dereferences row to an addressable struct of the described type.
func (d *Descriptor) recordValue(row any) (reflect.Value, error) {
	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%s: nil row", d.name)
		}
		rv = rv.Elem()
	}
	want := d.typ
	for want.Kind() == reflect.Ptr {
		want = want.Elem()
	}
	if rv.Type() != want {
		return reflect.Value{}, fmt.Errorf("%s: row has type %s", d.name, rv.Type())
	}
	return rv, nil
}

// fieldForSet walks index from rv, allocating nil embedded pointers on
// the way.
func fieldForSet(rv reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				if !rv.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot allocate embedded pointer to unexported %s", rv.Type().Elem())
				}
				rv.Set(reflect.New(rv.Type().Elem()))
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, nil
}

func getDynamic(row any, name string) (any, error) {
	if r, ok := row.(FieldResolver); ok {
		v, _ := r.Field(name)
		return v.Interface(), nil
	}
	rv := reflect.Indirect(reflect.ValueOf(row))
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: %T is not a dynamic row", ErrUnsupportedShape, row)
	}
	mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
	if !mv.IsValid() {
		return nil, nil
	}
	v, _ := normalize(mv.Interface())
	return v, nil
}

func setDynamic(row any, name string, value any) error {
	if r, ok := row.(*DynamicRecord); ok {
		return r.SetAny(name, value)
	}
	rv := reflect.Indirect(reflect.ValueOf(row))
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("%w: %T is not a writable dynamic row", ErrUnsupportedShape, row)
	}
	if rv.IsNil() {
		return fmt.Errorf("set %s: nil map", name)
	}
	elem := rv.Type().Elem()
	out, err := Coerce(value, elem)
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) {
			ce.Property = name
		}
		return err
	}
	wrapped, err := wrapNullable(out, elem)
	if err != nil {
		return err
	}
	rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), wrapped)
	return nil
}
