package facet

import (
	"context"
	"reflect"
	"sync"
)

// registryKey combines type, role set, and side table for cache lookup.
type registryKey struct {
	typ   reflect.Type
	roles RoleKind
	table *SideTable
}

// Cache memoizes descriptors for the life of one pipeline run. Create one
// per run and let it go with the run; there is no process-wide cache.
//
// A Cache is safe for concurrent use. Entries are inserted once and read
// many times; failed builds are not cached.
type Cache struct {
	mu      sync.RWMutex
	entries map[registryKey]*Descriptor
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[registryKey]*Descriptor)}
}

// Lookup returns the cached descriptor for T and roles, building it on
// first use.
func Lookup[T any](c *Cache, roles RoleKind, opts ...Option) (*Descriptor, error) {
	cfg := newDescribeConfig(opts)
	rt := reflect.TypeFor[T]()
	return c.lookup(rt, roles, cfg, func() (*Descriptor, error) {
		return Describe[T](roles, opts...)
	})
}

// Describe returns the cached descriptor for rt and roles, building it on
// first use.
func (c *Cache) Describe(rt reflect.Type, roles RoleKind, opts ...Option) (*Descriptor, error) {
	cfg := newDescribeConfig(opts)
	return c.lookup(rt, roles, cfg, func() (*Descriptor, error) {
		return DescribeType(rt, roles, opts...)
	})
}

// DescribeDynamic returns the cached descriptor for dynamic rows bound by
// table.
func (c *Cache) DescribeDynamic(table *SideTable, roles RoleKind) (*Descriptor, error) {
	return c.Describe(dynamicRecordType, roles, WithSideTable(table))
}

func (c *Cache) lookup(rt reflect.Type, roles RoleKind, cfg describeConfig, build func() (*Descriptor, error)) (*Descriptor, error) {
	key := registryKey{typ: rt, roles: roles & RoleAll, table: cfg.table}

	// Fast path: read-lock cache check
	c.mu.RLock()
	if cached, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		emitCacheHit(context.Background(), cached.name, key.roles)
		return cached, nil
	}
	c.mu.RUnlock()

	// Slow path: build and cache with write-lock
	c.mu.Lock()

	// Double-check pattern: another caller may have built it meanwhile.
	if cached, ok := c.entries[key]; ok {
		c.mu.Unlock()
		emitCacheHit(context.Background(), cached.name, key.roles)
		return cached, nil
	}

	d, err := build()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	c.entries[key] = d
	c.mu.Unlock()
	return d, nil
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset clears the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[registryKey]*Descriptor)
}
