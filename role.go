package facet

import (
	"math/bits"
	"strings"
)

// RoleKind names the functional purpose a property plays within an operator.
// Kinds are bit flags and combine with | to request several at once:
//
//	facet.Describe[Customer](facet.RoleID | facet.RoleCompare)
type RoleKind uint16

const (
	// RoleID marks the match key for merge/upsert.
	RoleID RoleKind = 1 << iota

	// RoleCompare marks columns in the change-detection set.
	RoleCompare

	// RoleUpdate marks columns written by an update.
	RoleUpdate

	// RoleDelete marks columns that flag a row for deletion.
	RoleDelete

	// RoleAggregate marks columns reduced by an aggregation method.
	RoleAggregate

	// RoleGroup marks columns that form the aggregation grouping key.
	RoleGroup

	// RoleDistinct marks columns that form the deduplication key.
	RoleDistinct

	// RoleMatch marks lookup columns matched against an input property.
	RoleMatch

	// RoleRetrieve marks lookup columns copied into an input property.
	RoleRetrieve

	// RoleRename marks columns renamed to a target name.
	RoleRename

	// RoleKey marks generic key columns.
	RoleKey

	// RoleColumnMap maps a property to an external column name.
	RoleColumnMap
)

// RoleAll requests every role kind.
const RoleAll = RoleID | RoleCompare | RoleUpdate | RoleDelete | RoleAggregate |
	RoleGroup | RoleDistinct | RoleMatch | RoleRetrieve | RoleRename | RoleKey | RoleColumnMap

// roleNames maps each single kind to its tag name.
var roleNames = map[RoleKind]string{
	RoleID:        "id",
	RoleCompare:   "compare",
	RoleUpdate:    "update",
	RoleDelete:    "delete",
	RoleAggregate: "aggregate",
	RoleGroup:     "group",
	RoleDistinct:  "distinct",
	RoleMatch:     "match",
	RoleRetrieve:  "retrieve",
	RoleRename:    "rename",
	RoleKey:       "key",
	RoleColumnMap: "colmap",
}

// roleByName is the inverse of roleNames, used by the tag parser.
var roleByName = func() map[string]RoleKind {
	m := make(map[string]RoleKind, len(roleNames))
	for k, n := range roleNames {
		m[n] = k
	}
	return m
}()

// valueRequired lists kinds whose annotation must carry a value.
var valueRequired = map[RoleKind]bool{
	RoleRename:    true,
	RoleMatch:     true,
	RoleRetrieve:  true,
	RoleColumnMap: true,
}

// valueAllowed lists kinds whose annotation may carry a value.
var valueAllowed = map[RoleKind]bool{
	RoleAggregate: true,
	RoleDistinct:  true,
	RoleRename:    true,
	RoleMatch:     true,
	RoleRetrieve:  true,
	RoleColumnMap: true,
}

// Has reports whether every kind in other is present in k.
func (k RoleKind) Has(other RoleKind) bool {
	return other != 0 && k&other == other
}

// Kinds splits k into its single kinds in canonical order.
func (k RoleKind) Kinds() []RoleKind {
	k &= RoleAll
	kinds := make([]RoleKind, 0, bits.OnesCount16(uint16(k)))
	for k != 0 {
		low := k & -k
		kinds = append(kinds, low)
		k &^= low
	}
	return kinds
}

func (k RoleKind) String() string {
	if k == 0 {
		return "none"
	}
	if name, ok := roleNames[k]; ok {
		return name
	}
	kinds := k.Kinds()
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, roleNames[kind])
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, "|")
}

// ParseRoleKind returns the kind for a tag name such as "id" or "colmap".
func ParseRoleKind(name string) (RoleKind, bool) {
	k, ok := roleByName[name]
	return k, ok
}

// AggregateMethod names the reduction applied to an aggregate column.
// Use these constants in tags: `facet:"aggregate=max"`
type AggregateMethod string

const (
	AggregateSum   AggregateMethod = "sum"
	AggregateMin   AggregateMethod = "min"
	AggregateMax   AggregateMethod = "max"
	AggregateCount AggregateMethod = "count"
	AggregateAvg   AggregateMethod = "avg"
	AggregateFirst AggregateMethod = "first"
	AggregateLast  AggregateMethod = "last"
)

// validAggregateMethods contains all methods accepted by tag validation.
var validAggregateMethods = map[AggregateMethod]bool{
	AggregateSum:   true,
	AggregateMin:   true,
	AggregateMax:   true,
	AggregateCount: true,
	AggregateAvg:   true,
	AggregateFirst: true,
	AggregateLast:  true,
}

const distinctKeyFlag = "key"

// IsValidAggregateMethod returns true if m is a known aggregation method.
func IsValidAggregateMethod(m AggregateMethod) bool {
	return validAggregateMethods[m]
}

// Role describes one property's participation in one role kind.
// Property is the canonical back-reference to the owning property.
type Role struct {
	Kind     RoleKind
	Property string
	Ordinal  int

	// Target is the rename target (Rename), the input property on the
	// consuming side (Match, Retrieve), or the external column (ColumnMap).
	Target string

	// Method is set for Aggregate roles only.
	Method AggregateMethod

	// Key marks a Distinct column declared with the key flag.
	Key bool
}

// Column returns the name the role writes to: Target when set, else Property.
func (r Role) Column() string {
	if r.Target != "" {
		return r.Target
	}
	return r.Property
}
