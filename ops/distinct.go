package ops

import (
	"fmt"
	"sync"

	"github.com/zoobzio/facet"
)

// Distinct drops rows whose Distinct columns repeat an earlier row. When
// some Distinct columns carry the key flag, only those take part; when no
// property declares Distinct, every property does. Dynamic rows must bind
// at least one Distinct field.
//
// Distinct is safe for concurrent use.
type Distinct struct {
	desc *facet.Descriptor
	cols []string

	mu   sync.Mutex
	seen *keySet
}

// NewDistinct returns a Distinct for rows described by desc, which must
// have been built with RoleDistinct.
func NewDistinct(desc *facet.Descriptor) (*Distinct, error) {
	if err := require("distinct", desc, facet.RoleDistinct); err != nil {
		return nil, err
	}
	cols := keyColumns(desc)
	if len(cols) == 0 {
		cols = columnsOrAll(desc, facet.RoleDistinct)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("distinct %s: no columns to compare", desc.Name())
	}
	return &Distinct{desc: desc, cols: cols, seen: newKeySet()}, nil
}

func keyColumns(desc *facet.Descriptor) []string {
	var cols []string
	for _, r := range desc.Roles(facet.RoleDistinct) {
		if r.Key {
			cols = append(cols, r.Property)
		}
	}
	return cols
}

// Columns returns the columns compared for uniqueness.
func (d *Distinct) Columns() []string {
	return append([]string(nil), d.cols...)
}

// Keep reports whether row is the first with its key.
func (d *Distinct) Keep(row any) (bool, error) {
	key, err := rowKey(d.desc, row, d.cols)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen.add(key), nil
}

// Seen returns the number of distinct keys kept so far.
func (d *Distinct) Seen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen.len()
}

// Filter returns the rows of in that Keep accepts, in order.
func Filter[T any](d *Distinct, in []T) ([]T, error) {
	out := make([]T, 0, len(in))
	for _, row := range in {
		keep, err := d.Keep(row)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}
