package facet_test

import (
	"database/sql"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/facet"
	facettest "github.com/zoobzio/facet/testing"
)

func TestDescribe_Basics(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Customer](t, facet.RoleID|facet.RoleCompare)

	if desc.Type() != reflect.TypeFor[facettest.Customer]() {
		t.Errorf("Type() = %v", desc.Type())
	}
	if desc.Name() != "testing.Customer" {
		t.Errorf("Name() = %q", desc.Name())
	}
	if desc.Shape() != facet.ShapeRecord {
		t.Errorf("Shape() = %s", desc.Shape())
	}
	if _, ok := desc.Property("Email"); !ok {
		t.Error("Property(Email) should resolve")
	}
	if _, ok := desc.Property("email"); ok {
		t.Error("property names are case sensitive")
	}
	if !desc.Requested(facet.RoleID) || desc.Requested(facet.RoleUpdate) {
		t.Error("Requested() wrong")
	}
}

func TestDescriptor_RolesOK(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Customer](t, facet.RoleID|facet.RoleDelete)

	if roles, ok := desc.RolesOK(facet.RoleDelete); !ok || roles == nil || len(roles) != 0 {
		t.Errorf("RolesOK(delete) = %v, %v; want empty, true", roles, ok)
	}
	if roles, ok := desc.RolesOK(facet.RoleCompare); ok || roles != nil {
		t.Errorf("RolesOK(compare) = %v, %v; want nil, false", roles, ok)
	}
	if desc.Roles(facet.RoleCompare) != nil {
		t.Error("Roles() of an unrequested kind should be nil")
	}
	if got := desc.Columns(facet.RoleCompare); len(got) != 0 {
		t.Errorf("Columns(compare) = %v", got)
	}
}

func TestDescriptor_ReturnsCopies(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Customer](t, facet.RoleCompare)

	roles := desc.Roles(facet.RoleCompare)
	roles[0].Property = "mutated"
	props := desc.Properties()
	props[0].Name = "mutated"

	if desc.Roles(facet.RoleCompare)[0].Property != "Name" {
		t.Error("Roles() should return a copy")
	}
	if desc.Properties()[0].Name != "ID" {
		t.Error("Properties() should return a copy")
	}
}

func TestDescribe_Errors(t *testing.T) {
	if _, err := facet.Describe[facettest.Indexed](facet.RoleID); !errors.Is(err, facet.ErrIndexedProperty) {
		t.Errorf("Indexed error = %v", err)
	}
	if _, err := facet.Describe[facettest.BadTag](facet.RoleID); !errors.Is(err, facet.ErrInvalidTag) {
		t.Errorf("BadTag error = %v", err)
	}
	table := facet.NewSideTable().Bind("x", facet.Key())
	if _, err := facet.Describe[[]int](facet.RoleKey, facet.WithSideTable(table)); !errors.Is(err, facet.ErrUnsupportedShape) {
		t.Errorf("array with side table error = %v", err)
	}
}

func TestDescribe_Array(t *testing.T) {
	desc := facettest.MustDescribe[[]facettest.Customer](t, facet.RoleID)
	if desc.Shape() != facet.ShapeArray {
		t.Errorf("Shape() = %s", desc.Shape())
	}
	if roles, ok := desc.RolesOK(facet.RoleID); !ok || len(roles) != 0 {
		t.Errorf("RolesOK() = %v, %v", roles, ok)
	}
	if _, err := desc.Get([]facettest.Customer{}, "ID"); !errors.Is(err, facet.ErrUnsupportedShape) {
		t.Errorf("Get() error = %v", err)
	}
	if err := desc.Set(&[]facettest.Customer{}, "ID", 1); !errors.Is(err, facet.ErrUnsupportedShape) {
		t.Errorf("Set() error = %v", err)
	}
}

func TestDescribeType_MatchesDescribe(t *testing.T) {
	a := facettest.MustDescribe[facettest.Sale](t, facet.RoleAll)
	b, err := facet.DescribeType(reflect.TypeFor[facettest.Sale](), facet.RoleAll)
	if err != nil {
		t.Fatalf("DescribeType() error: %v", err)
	}
	for _, kind := range facet.RoleAll.Kinds() {
		if !reflect.DeepEqual(a.Roles(kind), b.Roles(kind)) {
			t.Errorf("%s: %v vs %v", kind, a.Roles(kind), b.Roles(kind))
		}
	}
}

func TestDescriptor_GetSetNullable(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Account](t, 0)
	var acct facettest.Account
	closed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		prop  string
		value any
		check func() bool
	}{
		{"pointer", "Limit", "42", func() bool { return acct.Limit != nil && *acct.Limit == 42 }},
		{"pointer null", "Limit", nil, func() bool { return acct.Limit == nil }},
		{"sql.NullTime", "Closed", closed, func() bool { return acct.Closed.Valid && acct.Closed.Time.Equal(closed) }},
		{"sql.NullTime null", "Closed", nil, func() bool { return !acct.Closed.Valid }},
		{"sql.Null[float64]", "Score", 3, func() bool { return acct.Score.Valid && acct.Score.V == 3 }},
		{"decimal", "Balance", "10.25", func() bool { return acct.Balance.Equal(facettest.Dec("10.25")) }},
		{"decimal null zeroes", "Balance", nil, func() bool { return acct.Balance.IsZero() }},
		{"enum from int", "Status", 2, func() bool { return acct.Status == facettest.StatusClosed }},
		{"string pointer", "Owner", 7, func() bool { return acct.Owner != nil && *acct.Owner == "7" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := desc.Set(&acct, tt.prop, tt.value); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			if !tt.check() {
				t.Fatalf("field not written: %+v", acct)
			}

			got, err := desc.Get(&acct, tt.prop)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			p, _ := desc.Property(tt.prop)
			if tt.value == nil && p.Nullable() && got != nil {
				t.Errorf("Get() = %v, want nil", got)
			}
			if tt.value != nil && got == nil {
				t.Error("Get() = nil, want a value")
			}
		})
	}
}

func TestDescriptor_GetUnwraps(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Account](t, 0)
	acct := facettest.Account{
		Limit: facettest.Ptr[int32](5),
		Score: sql.Null[float64]{V: 1.5, Valid: true},
	}

	tests := []struct {
		prop string
		want any
	}{
		{"Limit", int32(5)},
		{"Score", 1.5},
		{"Closed", nil},
		{"Owner", nil},
		{"Status", facettest.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.prop, func(t *testing.T) {
			got, err := desc.Get(acct, tt.prop)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %#v, want %#v", got, tt.want)
			}
		})
	}

	got, err := desc.Get(acct, "Balance")
	if err != nil {
		t.Fatalf("Get(Balance) error: %v", err)
	}
	if _, ok := got.(decimal.Decimal); !ok {
		t.Errorf("Get(Balance) = %T, want decimal.Decimal", got)
	}
}

func TestDescriptor_GetSetErrors(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Account](t, 0)
	var acct facettest.Account

	if _, err := desc.Get(acct, "Notes"); !errors.Is(err, facet.ErrUnknownProperty) {
		t.Errorf("Get(Notes) error = %v, want ErrUnknownProperty", err)
	}
	if err := desc.Set(acct, "Limit", 1); err == nil {
		t.Error("Set() on a non-pointer row should fail")
	}
	if _, err := desc.Get(facettest.Customer{}, "Limit"); err == nil {
		t.Error("Get() on a row of another type should fail")
	}
	if _, err := desc.Get((*facettest.Account)(nil), "Limit"); err == nil {
		t.Error("Get() on a nil row should fail")
	}

	err := desc.Set(&acct, "Limit", "many")
	var ce *facet.ConversionError
	if !errors.As(err, &ce) || ce.Property != "Limit" {
		t.Errorf("Set() error = %v, want *ConversionError for Limit", err)
	}
	if acct.Limit != nil {
		t.Error("failed Set() must not write")
	}

	if err := desc.Set(&acct, "Status", "closed"); !errors.Is(err, facet.ErrConversion) {
		t.Errorf("Set(Status, string) error = %v, want ErrConversion", err)
	}
}

func TestDescriptor_Dynamic(t *testing.T) {
	desc, err := facet.DescribeDynamic(facet.NewSideTable(), 0)
	if err != nil {
		t.Fatalf("DescribeDynamic() error: %v", err)
	}

	r := facettest.Record(t, "a", 1)
	if v, err := desc.Get(r, "a"); err != nil || v != int64(1) {
		t.Errorf("Get(a) = %v, %v", v, err)
	}
	if v, err := desc.Get(r, "missing"); err != nil || v != nil {
		t.Errorf("Get(missing) = %v, %v; want nil", v, err)
	}
	if err := desc.Set(r, "b", "x"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v", got)
	}

	m := map[string]any{"n": facettest.Ptr(3)}
	if v, err := desc.Get(m, "n"); err != nil || v != 3 {
		t.Errorf("Get(map) = %v, %v", v, err)
	}
	if err := desc.Set(m, "s", "y"); err != nil || m["s"] != "y" {
		t.Errorf("Set(map) = %v, m = %v", err, m)
	}

	typed := map[string]int{}
	if err := desc.Set(typed, "n", "12"); err != nil || typed["n"] != 12 {
		t.Errorf("Set(map[string]int) = %v, m = %v", err, typed)
	}
	if err := desc.Set(typed, "n", "x"); !errors.Is(err, facet.ErrConversion) {
		t.Errorf("Set(map[string]int, x) error = %v", err)
	}

	if _, err := desc.Get(42, "a"); !errors.Is(err, facet.ErrUnsupportedShape) {
		t.Errorf("Get(int) error = %v", err)
	}
}

func TestDescriptor_ConcurrentReads(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Customer](t, facet.RoleAll)
	row := facettest.Customer{ID: 1, Name: "Ada", Email: "ada@x"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, col := range desc.Columns(facet.RoleCompare) {
				if _, err := desc.Get(row, col); err != nil {
					t.Errorf("Get() error: %v", err)
				}
			}
			_ = desc.Roles(facet.RoleID)
			_ = desc.Properties()
		}()
	}
	wg.Wait()
}

type hiddenPointer struct {
	*keyed
	Name string
}

func TestDescriptor_EmbeddedPointer(t *testing.T) {
	desc := facettest.MustDescribe[embedded](t, facet.RoleCompare)

	row := &embedded{Name: "n"}
	v, err := desc.Get(row, "Version")
	if err != nil {
		t.Fatalf("Get() through nil embedded pointer error: %v", err)
	}
	if v != nil {
		t.Errorf("Get() through nil embedded pointer = %v, want nil", v)
	}

	if err := desc.Set(row, "Version", "3"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if row.Audit == nil || row.Version != 3 {
		t.Fatalf("Set() should allocate the embedded pointer, got %+v", row.Audit)
	}
	if v, _ := desc.Get(row, "Version"); v != 3 {
		t.Errorf("Get() = %v, want 3", v)
	}

	if err := desc.Set(row, "ID", 9); err != nil {
		t.Fatalf("Set(ID) error: %v", err)
	}
	if v, _ := desc.Get(*row, "ID"); v != 9 {
		t.Errorf("Get(ID) = %v, want 9", v)
	}
}

func TestDescriptor_UnexportedEmbeddedPointer(t *testing.T) {
	desc := facettest.MustDescribe[hiddenPointer](t, facet.RoleID)

	row := &hiddenPointer{}
	if v, err := desc.Get(row, "ID"); err != nil || v != nil {
		t.Errorf("Get() = %v, %v; want nil, nil", v, err)
	}
	if err := desc.Set(row, "ID", 1); err == nil {
		t.Error("Set() should fail when the embedded pointer cannot be allocated")
	}

	row.keyed = &keyed{ID: 4}
	if v, _ := desc.Get(row, "ID"); v != 4 {
		t.Errorf("Get() = %v, want 4", v)
	}
	if err := desc.Set(row, "ID", "5"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if row.keyed.ID != 5 {
		t.Errorf("ID = %d, want 5", row.keyed.ID)
	}
}
