package ops

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/zoobzio/facet"
)

// Renamer projects rows into dynamic records, writing each column under
// its Rename target when one is declared.
type Renamer struct {
	desc    *facet.Descriptor
	targets map[string]string
}

// NewRenamer returns a Renamer for rows described by desc, which must have
// been built with RoleRename.
func NewRenamer(desc *facet.Descriptor) (*Renamer, error) {
	if err := require("rename", desc, facet.RoleRename); err != nil {
		return nil, err
	}
	roles := desc.Roles(facet.RoleRename)
	targets := make(map[string]string, len(roles))
	for _, r := range roles {
		targets[r.Property] = r.Column()
	}
	return &Renamer{desc: desc, targets: targets}, nil
}

// Target returns the output name for column.
func (r *Renamer) Target(column string) string {
	if t, ok := r.targets[column]; ok {
		return t
	}
	return column
}

// Apply renames one row. Record rows emit every property in declaration
// order; dynamic rows keep their own field order, or sorted key order for
// string-keyed maps. Resolvers that cannot list their fields are rejected.
func (r *Renamer) Apply(row any) (*facet.DynamicRecord, error) {
	cols, err := r.columns(row)
	if err != nil {
		return nil, err
	}
	out := facet.NewDynamicRecord()
	for _, col := range cols {
		v, err := r.desc.Get(row, col)
		if err != nil {
			return nil, err
		}
		target := r.Target(col)
		if _, dup := out.Field(target); dup {
			return nil, fmt.Errorf("rename %s: %s collides with an existing column", r.desc.Name(), target)
		}
		if err := out.SetAny(target, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// keyed is implemented by resolvers that can list their own fields.
type keyed interface {
	Keys() []string
}

func (r *Renamer) columns(row any) ([]string, error) {
	if r.desc.Shape() == facet.ShapeRecord {
		props := r.desc.Properties()
		cols := make([]string, len(props))
		for i, p := range props {
			cols[i] = p.Name
		}
		return cols, nil
	}
	if k, ok := row.(keyed); ok {
		return k.Keys(), nil
	}
	rv := reflect.Indirect(reflect.ValueOf(row))
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("rename %s: cannot list the fields of %T", r.desc.Name(), row)
	}
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	slices.Sort(keys)
	return keys, nil
}
