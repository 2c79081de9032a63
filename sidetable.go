package facet

import (
	"fmt"
)

// SideTable binds field names to role annotations outside the row type.
// It is the only role source for dynamic records, and it supplements
// struct tags for record types whose declarations cannot be edited.
//
//	roles := facet.NewSideTable().
//	    Bind("id", facet.ID()).
//	    Bind("email", facet.Compare(), facet.Update())
//
// Bind is chainable; the first error is kept and reported by Err and by
// any Describe call that uses the table. A table must not be modified once
// it has been passed to Describe.
type SideTable struct {
	order   []string
	entries map[string]annotations
	err     error
}

// NewSideTable returns an empty table.
func NewSideTable() *SideTable {
	return &SideTable{entries: make(map[string]annotations)}
}

// Bind declares annotations for the named field. Repeated binds for the
// same name accumulate; a kind may be declared at most once per name.
func (t *SideTable) Bind(name string, anns ...Annotation) *SideTable {
	if t.err != nil {
		return t
	}
	if name == "" {
		t.err = newShapeError(ErrInvalidTag, "", "", "side table binding without a field name")
		return t
	}
	as, ok := t.entries[name]
	if !ok {
		t.order = append(t.order, name)
	}
	for _, a := range anns {
		if err := as.add(a); err != nil {
			t.err = newShapeError(ErrInvalidTag, "", name, err.Error())
			return t
		}
	}
	t.entries[name] = as
	return t
}

// BindTag declares annotations for the named field using tag syntax,
// e.g. BindTag("email", "compare,update").
func (t *SideTable) BindTag(name, tag string) *SideTable {
	if t.err != nil {
		return t
	}
	as, err := parseTag(tag)
	if err != nil {
		t.err = newShapeError(ErrInvalidTag, "", name, err.Error())
		return t
	}
	return t.Bind(name, as.list...)
}

// Err returns the first binding error, if any.
func (t *SideTable) Err() error {
	if t == nil {
		return nil
	}
	return t.err
}

// Fields returns bound field names in binding order.
func (t *SideTable) Fields() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Annotations returns the annotations bound to name.
func (t *SideTable) Annotations(name string) []Annotation {
	if t == nil {
		return nil
	}
	return append([]Annotation(nil), t.entries[name].list...)
}

// properties turns the table into pseudo-properties for a dynamic record.
// They carry names and ordinals only; dynamic members have no static type.
func (t *SideTable) properties() []Property {
	if t == nil {
		return nil
	}
	props := make([]Property, 0, len(t.order))
	for i, name := range t.order {
		props = append(props, Property{
			Name:    name,
			Ordinal: i,
			roles:   t.entries[name].clone(),
		})
	}
	return props
}

// apply merges the table into a record's properties, returning new
// properties. Every bound name must exist, and a kind already declared by
// a tag must not be declared again.
func (t *SideTable) apply(typeName string, props []Property) ([]Property, error) {
	if t == nil {
		return props, nil
	}
	byName := make(map[string]int, len(props))
	for i, p := range props {
		byName[p.Name] = i
	}
	out := make([]Property, len(props))
	for i, p := range props {
		p.roles = p.roles.clone()
		out[i] = p
	}
	for _, name := range t.order {
		i, ok := byName[name]
		if !ok {
			return nil, newShapeError(ErrUnknownProperty, typeName, name, "bound in side table")
		}
		for _, a := range t.entries[name].list {
			if err := out[i].roles.add(a); err != nil {
				return nil, newShapeError(ErrInvalidTag, typeName, name, fmt.Sprintf("side table: %v", err))
			}
		}
	}
	return out, nil
}

// SideTableEntry is the serialised form of one binding.
type SideTableEntry struct {
	Field string `json:"field" yaml:"field" msgpack:"field" bson:"field" xml:"field"`
	Roles string `json:"roles" yaml:"roles" msgpack:"roles" bson:"roles" xml:"roles"`
}

// DecodeSideTable reads a list of {field, roles} entries with the given
// codec. Roles use tag syntax.
func DecodeSideTable(c Codec, data []byte) (*SideTable, error) {
	var entries []SideTableEntry
	if err := c.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode side table (%s): %w", c.ContentType(), err)
	}
	t := NewSideTable()
	for _, e := range entries {
		t.BindTag(e.Field, e.Roles)
	}
	if err := t.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
