package facet_test

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/facet"
	facettest "github.com/zoobzio/facet/testing"
)

func TestLookup_Caching(t *testing.T) {
	cache := facet.NewCache()

	d1, err := facet.Lookup[facettest.Customer](cache, facet.RoleID)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	d2, err := facet.Lookup[facettest.Customer](cache, facet.RoleID)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}

	if d1 != d2 {
		t.Error("Lookup() should return the cached descriptor")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestLookup_KeyedByRolesAndTable(t *testing.T) {
	cache := facet.NewCache()
	table := facettest.CustomerRoles()

	a, _ := facet.Lookup[facettest.UntaggedCustomer](cache, facet.RoleID)
	b, _ := facet.Lookup[facettest.UntaggedCustomer](cache, facet.RoleID|facet.RoleCompare)
	c, _ := facet.Lookup[facettest.UntaggedCustomer](cache, facet.RoleID, facet.WithSideTable(table))
	d, _ := facet.Lookup[facettest.UntaggedCustomer](cache, facet.RoleID, facet.WithSideTable(table))

	if a == b || a == c {
		t.Error("different role sets or tables need different descriptors")
	}
	if c != d {
		t.Error("the same table should hit the cache")
	}
	if cache.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cache.Len())
	}
	if got := c.Columns(facet.RoleID); len(got) != 1 || got[0] != "ID" {
		t.Errorf("side table ids = %v", got)
	}
}

func TestCache_Describe(t *testing.T) {
	cache := facet.NewCache()

	d1, err := cache.Describe(reflect.TypeFor[facettest.Customer](), facet.RoleID)
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	d2, err := facet.Lookup[facettest.Customer](cache, facet.RoleID)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if d1 != d2 {
		t.Error("Describe() and Lookup() should share entries")
	}

	table := facet.NewSideTable().Bind("id", facet.ID())
	e1, err := cache.DescribeDynamic(table, facet.RoleID)
	if err != nil {
		t.Fatalf("DescribeDynamic() error: %v", err)
	}
	e2, _ := cache.DescribeDynamic(table, facet.RoleID)
	if e1 != e2 {
		t.Error("DescribeDynamic() should be cached")
	}
}

func TestCache_UnknownBitsIgnored(t *testing.T) {
	cache := facet.NewCache()
	d1, _ := facet.Lookup[facettest.Customer](cache, facet.RoleID)
	d2, _ := facet.Lookup[facettest.Customer](cache, facet.RoleID|1<<15)
	if d1 != d2 {
		t.Error("bits outside RoleAll should not split the cache")
	}
}

func TestCache_FailuresNotCached(t *testing.T) {
	cache := facet.NewCache()

	if _, err := facet.Lookup[facettest.Indexed](cache, facet.RoleID); err == nil {
		t.Fatal("Lookup() should fail for an indexed type")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestCache_Reset(t *testing.T) {
	cache := facet.NewCache()
	d1, _ := facet.Lookup[facettest.Customer](cache, facet.RoleID)

	cache.Reset()
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", cache.Len())
	}

	d2, _ := facet.Lookup[facettest.Customer](cache, facet.RoleID)
	if d1 == d2 {
		t.Error("Reset() should clear cache, new descriptor expected")
	}
}

func TestCache_Independent(t *testing.T) {
	a, b := facet.NewCache(), facet.NewCache()
	d1, _ := facet.Lookup[facettest.Customer](a, facet.RoleID)
	d2, _ := facet.Lookup[facettest.Customer](b, facet.RoleID)
	if d1 == d2 {
		t.Error("separate runs should not share descriptors")
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := facet.NewCache()

	var wg sync.WaitGroup
	results := make([]*facet.Descriptor, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := facet.Lookup[facettest.Sale](cache, facet.RoleGroup|facet.RoleAggregate)
			if err != nil {
				t.Errorf("Lookup() error: %v", err)
				return
			}
			results[i] = d
		}(i)
	}
	wg.Wait()

	for i, d := range results {
		if d != results[0] {
			t.Fatalf("results[%d] differs: concurrent lookups must share one descriptor", i)
		}
	}
}

type hitCounted struct {
	ID int `facet:"id"`
}

func TestCache_ConcurrentHitsSignalled(t *testing.T) {
	var hits atomic.Int64
	listener := capitan.Hook(facet.SignalCacheHit, func(_ context.Context, e *capitan.Event) {
		if name, ok := facet.KeyTypeName.From(e); ok && strings.HasSuffix(name, "hitCounted") {
			hits.Add(1)
		}
	})
	defer listener.Close()

	cache := facet.NewCache()
	const callers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := facet.Lookup[hitCounted](cache, facet.RoleID); err != nil {
				t.Errorf("Lookup() error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	// Every caller but the one that built the descriptor is a hit,
	// whichever lock it observed the entry under.
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() < callers-1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := hits.Load(); got != callers-1 {
		t.Errorf("cache hits = %d, want %d", got, callers-1)
	}
}
