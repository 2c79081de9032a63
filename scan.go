package facet

// Scan resolves role declarations on props into role lists for the
// requested kinds. For each requested kind, in canonical order, properties
// are walked in ordinal order and every property declaring the kind
// contributes one Role stamped with its name.
//
// Only requested kinds appear in the result. A requested kind with no
// declaring property maps to an empty, non-nil list.
func Scan(props []Property, kinds RoleKind) map[RoleKind][]Role {
	requested := kinds.Kinds()
	roles := make(map[RoleKind][]Role, len(requested))
	for _, kind := range requested {
		list := make([]Role, 0)
		for _, p := range props {
			a, ok := p.roles.get(kind)
			if !ok {
				continue
			}
			list = append(list, newRole(p, a))
		}
		roles[kind] = list
	}
	return roles
}

func newRole(p Property, a Annotation) Role {
	r := Role{
		Kind:     a.Kind,
		Property: p.Name,
		Ordinal:  p.Ordinal,
	}
	switch a.Kind {
	case RoleAggregate:
		r.Method = AggregateMethod(a.Value)
		if r.Method == "" {
			r.Method = AggregateSum
		}
	case RoleDistinct:
		r.Key = a.Value == distinctKeyFlag
	case RoleRename, RoleMatch, RoleRetrieve, RoleColumnMap:
		r.Target = a.Value
	}
	return r
}
