package ops

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/zoobzio/facet"
)

// Change classifies one merge result.
type Change int

const (
	ChangeInsert Change = iota
	ChangeUpdate
	ChangeDelete
	ChangeUnchanged
)

var changeNames = [...]string{"insert", "update", "delete", "unchanged"}

func (c Change) String() string {
	if c >= 0 && int(c) < len(changeNames) {
		return changeNames[c]
	}
	return fmt.Sprintf("Change(%d)", int(c))
}

// Delta is the merge outcome for one row.
type Delta[T any] struct {
	Change   Change
	Row      T        // incoming row; the existing row for deletions of unmatched rows
	Existing T        // matched existing row, zero for inserts
	Columns  []string // columns to write on update
}

// MergeOption configures Merge.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	fullSync bool
}

// WithFullSync deletes existing rows that no incoming row matches.
func WithFullSync() MergeOption {
	return func(c *mergeConfig) { c.fullSync = true }
}

// Merge computes the delta that brings existing in line with incoming.
// desc must have been built with RoleID and RoleCompare.
//
// Rows are matched on their ID columns. A matched row is an update when any
// Compare column differs, otherwise unchanged; with no Compare columns every
// match is an update. Updates write the Update columns, or every non-ID
// column when none is declared. An incoming row whose Delete column is true
// deletes its match and is dropped when unmatched.
func Merge[T any](desc *facet.Descriptor, incoming, existing []T, opts ...MergeOption) ([]Delta[T], error) {
	if err := require("merge", desc, facet.RoleID|facet.RoleCompare); err != nil {
		return nil, err
	}
	var cfg mergeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ids := desc.Columns(facet.RoleID)
	if len(ids) == 0 {
		return nil, fmt.Errorf("merge %s: no id columns", desc.Name())
	}
	compare := desc.Columns(facet.RoleCompare)
	updates := updateColumns(desc, ids)
	deletes := desc.Columns(facet.RoleDelete)

	index := newKeyIndex[int]()
	for i, row := range existing {
		key, err := rowKey(desc, row, ids)
		if err != nil {
			return nil, err
		}
		if !index.put(key, i) {
			return nil, fmt.Errorf("merge %s: duplicate id in existing rows", desc.Name())
		}
	}

	matched := make([]bool, len(existing))
	out := make([]Delta[T], 0, len(incoming))
	for _, row := range incoming {
		key, err := rowKey(desc, row, ids)
		if err != nil {
			return nil, err
		}
		del, err := flagged(desc, row, deletes)
		if err != nil {
			return nil, err
		}
		i, ok := index.get(key)
		if !ok {
			if !del {
				out = append(out, Delta[T]{Change: ChangeInsert, Row: row})
			}
			continue
		}
		if matched[i] {
			return nil, fmt.Errorf("merge %s: duplicate id in incoming rows", desc.Name())
		}
		matched[i] = true

		d := Delta[T]{Row: row, Existing: existing[i]}
		switch {
		case del:
			d.Change = ChangeDelete
		default:
			same, err := equalColumns(desc, row, existing[i], compare)
			if err != nil {
				return nil, err
			}
			if same {
				d.Change = ChangeUnchanged
			} else {
				d.Change = ChangeUpdate
				d.Columns = updates
			}
		}
		out = append(out, d)
	}

	if cfg.fullSync {
		for i, row := range existing {
			if !matched[i] {
				out = append(out, Delta[T]{Change: ChangeDelete, Row: row, Existing: row})
			}
		}
	}
	return out, nil
}

// Apply writes the update columns of each update delta from Row into
// Existing. Existing must hold pointers for record rows.
func Apply[T any](desc *facet.Descriptor, deltas []Delta[T]) error {
	for _, d := range deltas {
		if d.Change != ChangeUpdate {
			continue
		}
		for _, col := range d.Columns {
			v, err := desc.Get(d.Row, col)
			if err != nil {
				return err
			}
			if err := desc.Set(d.Existing, col, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func updateColumns(desc *facet.Descriptor, ids []string) []string {
	if desc.Requested(facet.RoleUpdate) {
		if cols := desc.Columns(facet.RoleUpdate); len(cols) > 0 {
			return cols
		}
	}
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	var cols []string
	for _, p := range desc.Properties() {
		if !skip[p.Name] {
			cols = append(cols, p.Name)
		}
	}
	return cols
}

// flagged reports whether any of cols holds a true value in row.
func flagged(desc *facet.Descriptor, row any, cols []string) (bool, error) {
	for _, col := range cols {
		v, err := desc.Get(row, col)
		if err != nil {
			return false, err
		}
		if v == nil {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return false, fmt.Errorf("merge %s.%s: delete flag: %w", desc.Name(), col, err)
		}
		if b {
			return true, nil
		}
	}
	return false, nil
}

func equalColumns(desc *facet.Descriptor, a, b any, cols []string) (bool, error) {
	if len(cols) == 0 {
		return false, nil
	}
	for _, col := range cols {
		av, err := desc.Get(a, col)
		if err != nil {
			return false, err
		}
		bv, err := desc.Get(b, col)
		if err != nil {
			return false, err
		}
		x, err := facet.ValueOf(av)
		if err != nil {
			return false, err
		}
		y, err := facet.ValueOf(bv)
		if err != nil {
			return false, err
		}
		if !x.Equal(y) {
			return false, nil
		}
	}
	return true, nil
}
