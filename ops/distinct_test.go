package ops_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/zoobzio/facet"
	"github.com/zoobzio/facet/ops"
	facettest "github.com/zoobzio/facet/testing"
)

func TestDistinct_DeclaredColumns(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Sale](t, facet.RoleDistinct)
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}

	rows := []facettest.Sale{
		{Region: "EU", Product: "tea", Units: 1},
		{Region: "EU", Product: "tea", Units: 2},
		{Region: "EU", Product: "coffee"},
		{Region: "US", Product: "tea"},
	}
	out, err := ops.Filter(d, rows)
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[0].Units != 1 {
		t.Errorf("first row should win, got Units=%d", out[0].Units)
	}
	if d.Seen() != 3 {
		t.Errorf("Seen() = %d, want 3", d.Seen())
	}
}

func TestDistinct_AllColumnsWhenNoneDeclared(t *testing.T) {
	type pair struct {
		A int
		B string
	}
	desc := facettest.MustDescribe[pair](t, facet.RoleDistinct)
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}
	if got := d.Columns(); len(got) != 2 {
		t.Fatalf("Columns() = %v, want both properties", got)
	}

	out, err := ops.Filter(d, []pair{{1, "x"}, {1, "y"}, {1, "x"}})
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("len(out) = %d, want 2", len(out))
	}
}

func TestDistinct_KindsDoNotCollide(t *testing.T) {
	table := facet.NewSideTable().Bind("k", facet.Distinct())
	desc, err := facet.DescribeDynamic(table, facet.RoleDistinct)
	if err != nil {
		t.Fatalf("DescribeDynamic() error: %v", err)
	}
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}

	rows := []*facet.DynamicRecord{
		facettest.Record(t, "k", 1),
		facettest.Record(t, "k", "1"),
		facettest.Record(t, "k", nil),
		facettest.Record(t, "other", 5), // missing k reads as null
		facettest.Record(t, "k", uint8(1)),
	}
	out, err := ops.Filter(d, rows)
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("len(out) = %d, want 3 (int, string, null)", len(out))
	}
}

func TestDistinct_ControlBytesDoNotMergeRows(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Sale](t, facet.RoleDistinct)
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}

	rows := []facettest.Sale{
		{Region: "x\x1f\x06y", Product: "z"},
		{Region: "x", Product: "y\x1f\x06z"},
		{Region: "x\x1fy", Product: "z"},
	}
	out, err := ops.Filter(d, rows)
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("len(out) = %d, want 3", len(out))
	}
}

func TestDistinct_KeyFlag(t *testing.T) {
	type visit struct {
		Day    string `facet:"distinct=key"`
		Person string `facet:"distinct=key"`
		Note   string `facet:"distinct"`
	}
	desc := facettest.MustDescribe[visit](t, facet.RoleDistinct)
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}
	if got := d.Columns(); !reflect.DeepEqual(got, []string{"Day", "Person"}) {
		t.Fatalf("Columns() = %v, want [Day Person]", got)
	}

	out, err := ops.Filter(d, []visit{
		{"mon", "ada", "first"},
		{"mon", "ada", "second"},
		{"mon", "alan", "first"},
	})
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if len(out) != 2 || out[0].Note != "first" {
		t.Errorf("out = %+v, want the first ada row and the alan row", out)
	}
}

func TestDistinct_KeyFlagDynamic(t *testing.T) {
	table := facet.NewSideTable().
		Bind("sku", facet.DistinctKey()).
		Bind("label", facet.Distinct())
	desc, err := facet.DescribeDynamic(table, facet.RoleDistinct)
	if err != nil {
		t.Fatalf("DescribeDynamic() error: %v", err)
	}
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}

	rows := []map[string]any{
		{"sku": "A1", "label": "tea"},
		{"sku": "A1", "label": "green tea"},
	}
	out, err := ops.Filter(d, rows)
	if err != nil {
		t.Fatalf("Filter() error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("len(out) = %d, want 1", len(out))
	}
}

func TestDistinct_DynamicNeedsColumns(t *testing.T) {
	desc, err := facet.DescribeDynamic(facet.NewSideTable(), facet.RoleDistinct)
	if err != nil {
		t.Fatalf("DescribeDynamic() error: %v", err)
	}
	if _, err := ops.NewDistinct(desc); err == nil {
		t.Error("NewDistinct() should fail without distinct columns")
	}
}

func TestDistinct_Concurrent(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Sale](t, facet.RoleDistinct)
	d, err := ops.NewDistinct(desc)
	if err != nil {
		t.Fatalf("NewDistinct() error: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	kept := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := d.Keep(facettest.Sale{Region: "EU", Product: "tea"})
			if err != nil {
				t.Errorf("Keep() error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				kept++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if kept != 1 {
		t.Errorf("kept = %d, want 1", kept)
	}
}
