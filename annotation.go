package facet

import (
	"fmt"
	"strings"
)

// TagName is the struct tag read for role annotations.
//
//	type Customer struct {
//	    ID    int    `facet:"id"`
//	    Name  string `facet:"compare,rename=FullName"`
//	    Notes string `facet:"-"`
//	}
const TagName = "facet"

// Annotation is a single declared role on a property, with its
// role-specific configuration value.
type Annotation struct {
	Kind  RoleKind
	Value string
}

// ID declares the RoleID annotation.
func ID() Annotation { return Annotation{Kind: RoleID} }

// Compare declares the RoleCompare annotation.
func Compare() Annotation { return Annotation{Kind: RoleCompare} }

// Update declares the RoleUpdate annotation.
func Update() Annotation { return Annotation{Kind: RoleUpdate} }

// Delete declares the RoleDelete annotation.
func Delete() Annotation { return Annotation{Kind: RoleDelete} }

// Key declares the RoleKey annotation.
func Key() Annotation { return Annotation{Kind: RoleKey} }

// Group declares the RoleGroup annotation.
func Group() Annotation { return Annotation{Kind: RoleGroup} }

// Distinct declares the RoleDistinct annotation.
func Distinct() Annotation { return Annotation{Kind: RoleDistinct} }

// DistinctKey declares a RoleDistinct annotation with the key flag: when
// any Distinct column is flagged, only flagged columns form the
// deduplication key. Tag form: `facet:"distinct=key"`.
func DistinctKey() Annotation { return Annotation{Kind: RoleDistinct, Value: distinctKeyFlag} }

// Aggregate declares the RoleAggregate annotation with the given method.
func Aggregate(m AggregateMethod) Annotation {
	return Annotation{Kind: RoleAggregate, Value: string(m)}
}

// Match declares a lookup column matched against the input property.
func Match(input string) Annotation { return Annotation{Kind: RoleMatch, Value: input} }

// Retrieve declares a lookup column copied into the input property.
func Retrieve(input string) Annotation { return Annotation{Kind: RoleRetrieve, Value: input} }

// Rename declares a rename to target.
func Rename(target string) Annotation { return Annotation{Kind: RoleRename, Value: target} }

// ColumnMap maps the property to an external column name.
func ColumnMap(column string) Annotation { return Annotation{Kind: RoleColumnMap, Value: column} }

// annotations holds the validated declarations of one property, in
// declaration order, at most one per kind.
type annotations struct {
	declared RoleKind
	list     []Annotation
}

// add validates a and appends it. A second annotation of the same kind is
// rejected: each property declares a role at most once.
func (as *annotations) add(a Annotation) error {
	if err := validateAnnotation(a); err != nil {
		return err
	}
	if as.declared.Has(a.Kind) {
		return fmt.Errorf("duplicate %s annotation", a.Kind)
	}
	as.declared |= a.Kind
	as.list = append(as.list, a)
	return nil
}

// get returns the annotation for a single kind.
func (as annotations) get(kind RoleKind) (Annotation, bool) {
	if !as.declared.Has(kind) {
		return Annotation{}, false
	}
	for _, a := range as.list {
		if a.Kind == kind {
			return a, true
		}
	}
	return Annotation{}, false
}

func (as annotations) clone() annotations {
	return annotations{
		declared: as.declared,
		list:     append([]Annotation(nil), as.list...),
	}
}

// validateAnnotation checks that a names a single known kind and carries a
// value only where the kind takes one.
func validateAnnotation(a Annotation) error {
	if _, ok := roleNames[a.Kind]; !ok {
		return fmt.Errorf("unknown role kind %d", uint16(a.Kind))
	}
	if a.Value == "" && valueRequired[a.Kind] {
		return fmt.Errorf("%s requires a value", a.Kind)
	}
	if a.Value != "" && !valueAllowed[a.Kind] {
		return fmt.Errorf("%s does not take a value (got %q)", a.Kind, a.Value)
	}
	if a.Kind == RoleAggregate && a.Value != "" && !IsValidAggregateMethod(AggregateMethod(a.Value)) {
		return fmt.Errorf("invalid aggregate method %q", a.Value)
	}
	if a.Kind == RoleDistinct && a.Value != "" && a.Value != distinctKeyFlag {
		return fmt.Errorf("invalid distinct flag %q", a.Value)
	}
	return nil
}

// parseTag parses a facet tag value into validated annotations.
// Entries are comma separated, each either "kind" or "kind=value".
func parseTag(tag string) (annotations, error) {
	var as annotations
	for _, entry := range strings.Split(tag, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, _ := strings.Cut(entry, "=")
		kind, ok := ParseRoleKind(strings.TrimSpace(name))
		if !ok {
			return annotations{}, fmt.Errorf("unknown role %q", name)
		}
		if err := as.add(Annotation{Kind: kind, Value: strings.TrimSpace(value)}); err != nil {
			return annotations{}, err
		}
	}
	return as, nil
}
