package ops

import (
	"fmt"

	"github.com/zoobzio/facet"
)

// Lookup enriches input rows from an in-memory source. Source properties
// declaring Match name the input property they must equal; source
// properties declaring Retrieve name the input property they are copied
// into. Copied values are coerced to the input property's type.
type Lookup[S any] struct {
	source   *facet.Descriptor
	input    *facet.Descriptor
	match    []facet.Role
	retrieve []facet.Role
	index    *keyIndex[S]
}

// NewLookup indexes rows by their Match columns. source must have been
// built with RoleMatch and RoleRetrieve. When several rows share a key the
// first one wins.
func NewLookup[S any](source, input *facet.Descriptor, rows []S) (*Lookup[S], error) {
	if err := require("lookup", source, facet.RoleMatch|facet.RoleRetrieve); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("lookup: nil input descriptor")
	}
	l := &Lookup[S]{
		source:   source,
		input:    input,
		match:    source.Roles(facet.RoleMatch),
		retrieve: source.Roles(facet.RoleRetrieve),
		index:    newKeyIndex[S](),
	}
	if len(l.match) == 0 {
		return nil, fmt.Errorf("lookup %s: no match columns", source.Name())
	}
	if input.Shape() == facet.ShapeRecord {
		for _, r := range append(append([]facet.Role(nil), l.match...), l.retrieve...) {
			if _, ok := input.Property(r.Target); !ok {
				return nil, fmt.Errorf("lookup %s.%s: %w: %s on %s",
					source.Name(), r.Property, facet.ErrUnknownProperty, r.Target, input.Name())
			}
		}
	}

	cols := make([]string, len(l.match))
	for i, r := range l.match {
		cols[i] = r.Property
	}
	for _, row := range rows {
		key, err := rowKey(source, row, cols)
		if err != nil {
			return nil, err
		}
		l.index.put(key, row)
	}
	return l, nil
}

// Find returns the source row matching row.
func (l *Lookup[S]) Find(row any) (S, bool, error) {
	cols := make([]string, len(l.match))
	for i, r := range l.match {
		cols[i] = r.Target
	}
	var zero S
	key, err := rowKey(l.input, row, cols)
	if err != nil {
		return zero, false, err
	}
	src, ok := l.index.get(key)
	return src, ok, nil
}

// Enrich copies the Retrieve columns of the matching source row into row,
// which must be a pointer for record inputs. It reports whether a match
// was found; unmatched rows are left untouched.
func (l *Lookup[S]) Enrich(row any) (bool, error) {
	src, ok, err := l.Find(row)
	if err != nil || !ok {
		return false, err
	}
	for _, r := range l.retrieve {
		v, err := l.source.Get(src, r.Property)
		if err != nil {
			return false, err
		}
		if err := l.input.Set(row, r.Target, v); err != nil {
			return false, err
		}
	}
	return true, nil
}
