// Package ops holds in-memory dataflow operators driven by facet
// descriptors. Each operator reads only the role kinds it needs:
//
//   - Renamer: Rename
//   - Distinct: Distinct
//   - Aggregator: Group, Aggregate
//   - Lookup: Match, Retrieve
//   - Merge: ID, Compare, Update, Delete
//
// Operators never inspect row types themselves; build descriptors with
// facet.Describe or a run's facet.Cache and pass them in.
package ops

import (
	"errors"
	"fmt"

	"github.com/zoobzio/facet"
)

// ErrRoleNotRequested indicates a descriptor built without a role kind the
// operator depends on.
var ErrRoleNotRequested = errors.New("role not requested")

// require checks that desc was built with every kind in kinds.
func require(op string, desc *facet.Descriptor, kinds facet.RoleKind) error {
	if desc == nil {
		return fmt.Errorf("%s: nil descriptor", op)
	}
	for _, k := range kinds.Kinds() {
		if !desc.Requested(k) {
			return fmt.Errorf("%s: %w: %s (descriptor %s)", op, ErrRoleNotRequested, k, desc.Name())
		}
	}
	return nil
}

// columnsOrAll returns the columns declaring kind, falling back to every
// property when none does.
func columnsOrAll(desc *facet.Descriptor, kind facet.RoleKind) []string {
	cols := desc.Columns(kind)
	if len(cols) > 0 {
		return cols
	}
	props := desc.Properties()
	cols = make([]string, len(props))
	for i, p := range props {
		cols[i] = p.Name
	}
	return cols
}
