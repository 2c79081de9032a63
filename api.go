// Package facet provides record-shape introspection and declarative column
// role resolution for dataflow operators.
//
// Operators such as merge, aggregate, distinct, lookup, and rename work over
// arbitrary row types. Instead of hard-coding a schema, each asks facet for a
// Descriptor: the row type's shape, its ordered properties, and the
// properties that declare the roles the operator needs.
//
// # Shapes
//
// Classify sorts a type into one of three shapes:
//
//   - record: a struct with statically declared fields
//   - array: a slice or array
//   - dynamic: a DynamicRecord, a map keyed by string, or any FieldResolver
//
// # Tag Syntax
//
// Struct fields declare roles via the facet tag:
//
//	type Customer struct {
//	    ID    int     `facet:"id"`
//	    Name  string  `facet:"compare,rename=FullName"`
//	    Email *string `facet:"compare,update"`
//	    Notes string  `facet:"-"`
//	}
//
// Entries are comma separated. Kinds that take a value use kind=value:
//
//	id, compare, update, delete, key, group, distinct
//	aggregate=sum|min|max|count|avg|first|last   (default sum)
//	rename=Target      match=InputProperty
//	retrieve=InputProperty   colmap=Column
//
// A role is present only when declared; nothing is inferred from names.
//
// # Side Tables
//
// Dynamic rows have no tags. Their roles are bound explicitly:
//
//	roles := facet.NewSideTable().
//	    Bind("id", facet.ID()).
//	    Bind("email", facet.Compare(), facet.Update())
//
//	desc, err := facet.DescribeDynamic(roles, facet.RoleID|facet.RoleCompare)
//
// Side tables can also supplement tags on struct types via WithSideTable.
//
// # Basic Usage
//
//	cache := facet.NewCache() // one per pipeline run
//
//	desc, err := facet.Lookup[Customer](cache, facet.RoleID|facet.RoleCompare|facet.RoleUpdate)
//	if err != nil {
//	    return err
//	}
//	for _, role := range desc.Roles(facet.RoleCompare) {
//	    v, _ := desc.Get(&row, role.Property)
//	    ...
//	}
//
// Only requested kinds are populated. RolesOK distinguishes a kind that was
// not requested from one that was requested but has no declaring property.
//
// # Coercion
//
// Values moving between rows pass through Coerce, which unwraps nullable
// types (*T, sql.Null[T], decimal.NullDecimal), maps nil to nil, accepts
// enum targets unchanged, and otherwise converts generically, failing with
// a *ConversionError.
//
// # Codec Providers
//
// Dynamic records and side tables decode through a Codec. Implementations
// are available as subpackages:
//
//   - json - JSON encoding (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
//   - xml - XML encoding for side tables (application/xml)
//
// # Operators
//
// The ops subpackage holds in-memory reference operators built on
// descriptors: Rename, Distinct, Aggregate, Lookup, and Merge.
package facet
