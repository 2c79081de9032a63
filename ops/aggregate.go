package ops

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/facet"
)

var decimalType = reflect.TypeFor[decimal.Decimal]()

// Aggregator groups rows by their Group columns and folds each Aggregate
// column with its declared method. Null values are skipped by every
// method; count counts non-null values.
//
// Aggregator is safe for concurrent use.
type Aggregator struct {
	desc   *facet.Descriptor
	groups []string
	aggs   []facet.Role

	mu      sync.Mutex
	order   []*bucket
	buckets *keyIndex[*bucket]
}

type bucket struct {
	keys  []any
	accum []accumulator
}

type accumulator struct {
	method facet.AggregateMethod
	count  int64
	sum    decimal.Decimal
	ext    decimal.Decimal // min or max so far
	first  any
	last   any
}

// NewAggregator returns an Aggregator for rows described by desc, which
// must have been built with RoleGroup and RoleAggregate.
func NewAggregator(desc *facet.Descriptor) (*Aggregator, error) {
	if err := require("aggregate", desc, facet.RoleGroup|facet.RoleAggregate); err != nil {
		return nil, err
	}
	aggs := desc.Roles(facet.RoleAggregate)
	if len(aggs) == 0 {
		return nil, fmt.Errorf("aggregate %s: no aggregate columns", desc.Name())
	}
	return &Aggregator{
		desc:    desc,
		groups:  desc.Columns(facet.RoleGroup),
		aggs:    aggs,
		buckets: newKeyIndex[*bucket](),
	}, nil
}

// Add folds row into its group.
func (a *Aggregator) Add(row any) error {
	keys := make([]any, len(a.groups))
	for i, col := range a.groups {
		v, err := a.desc.Get(row, col)
		if err != nil {
			return err
		}
		keys[i] = v
	}
	key, err := valuesKey(keys)
	if err != nil {
		return err
	}

	values := make([]any, len(a.aggs))
	for i, r := range a.aggs {
		v, err := a.desc.Get(row, r.Property)
		if err != nil {
			return err
		}
		values[i] = v
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buckets.get(key)
	if !ok {
		b = &bucket{keys: keys, accum: make([]accumulator, len(a.aggs))}
		for i, r := range a.aggs {
			b.accum[i].method = r.Method
		}
		a.buckets.put(key, b)
		a.order = append(a.order, b)
	}
	for i, v := range values {
		if err := b.accum[i].add(v); err != nil {
			return fmt.Errorf("aggregate %s.%s: %w", a.desc.Name(), a.aggs[i].Property, err)
		}
	}
	return nil
}

// Results returns one record per group in first-seen order. Each record
// holds the group columns followed by the aggregate columns. Sum, avg,
// min, and max are decimals; count is an int; first and last keep the
// source value.
func (a *Aggregator) Results() ([]*facet.DynamicRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*facet.DynamicRecord, 0, len(a.order))
	for _, b := range a.order {
		rec := facet.NewDynamicRecord()
		for i, col := range a.groups {
			if err := rec.SetAny(col, b.keys[i]); err != nil {
				return nil, err
			}
		}
		for i, r := range a.aggs {
			if err := rec.SetAny(r.Property, b.accum[i].result()); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Groups returns the number of groups seen.
func (a *Aggregator) Groups() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

func (acc *accumulator) add(v any) error {
	if v == nil {
		return nil
	}
	switch acc.method {
	case facet.AggregateCount:
		acc.count++
		return nil
	case facet.AggregateFirst:
		if acc.count == 0 {
			acc.first = v
		}
		acc.count++
		return nil
	case facet.AggregateLast:
		acc.last = v
		acc.count++
		return nil
	}

	raw, err := facet.Coerce(v, decimalType)
	if err != nil {
		return err
	}
	d := raw.(decimal.Decimal)
	switch acc.method {
	case facet.AggregateMin:
		if acc.count == 0 || d.LessThan(acc.ext) {
			acc.ext = d
		}
	case facet.AggregateMax:
		if acc.count == 0 || d.GreaterThan(acc.ext) {
			acc.ext = d
		}
	default:
		acc.sum = acc.sum.Add(d)
	}
	acc.count++
	return nil
}

func (acc *accumulator) result() any {
	switch acc.method {
	case facet.AggregateCount:
		return acc.count
	case facet.AggregateFirst:
		return acc.first
	case facet.AggregateLast:
		return acc.last
	}
	if acc.count == 0 {
		return nil
	}
	switch acc.method {
	case facet.AggregateMin, facet.AggregateMax:
		return acc.ext
	case facet.AggregateAvg:
		return acc.sum.Div(decimal.NewFromInt(acc.count))
	}
	return acc.sum
}
