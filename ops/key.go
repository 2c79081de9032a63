package ops

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zoobzio/facet"
)

// key identifies a row over a list of columns. hash covers a
// length-prefixed encoding of every value; a hash match is confirmed by
// comparing the values themselves.
type key struct {
	hash   uint64
	values []facet.Value
}

// rowKey builds the key of the named columns of row.
func rowKey(desc *facet.Descriptor, row any, cols []string) (key, error) {
	values := make([]any, len(cols))
	for i, col := range cols {
		v, err := desc.Get(row, col)
		if err != nil {
			return key{}, err
		}
		values[i] = v
	}
	return valuesKey(values)
}

// valuesKey builds a key from raw column values. Each value is tagged
// with its variant kind so that "1" and 1 differ, and prefixed with its
// length so that no value can spill into the next.
func valuesKey(raw []any) (key, error) {
	k := key{values: make([]facet.Value, len(raw))}
	d := xxhash.New()
	var head [1 + binary.MaxVarintLen64]byte
	for i, r := range raw {
		v, err := facet.ValueOf(r)
		if err != nil {
			return key{}, fmt.Errorf("key value: %w", err)
		}
		v = foldUint(v)
		k.values[i] = v

		text := canonical(v)
		head[0] = byte(v.Kind())
		n := binary.PutUvarint(head[1:], uint64(len(text)))
		_, _ = d.Write(head[:1+n])
		_, _ = d.WriteString(text)
	}
	k.hash = d.Sum64()
	return k, nil
}

// foldUint turns unsigned integers that fit an int64 into signed ones so
// integers compare by value regardless of signedness.
func foldUint(v facet.Value) facet.Value {
	if v.Kind() != facet.KindUint {
		return v
	}
	if u := v.Interface().(uint64); u <= math.MaxInt64 {
		return facet.Int(int64(u))
	}
	return v
}

// canonical renders v so that values reported Equal render the same.
func canonical(v facet.Value) string {
	if v.Kind() == facet.KindTime {
		return v.Interface().(time.Time).UTC().Format(time.RFC3339Nano)
	}
	return v.String()
}

func (k key) equal(o key) bool {
	if k.hash != o.hash || len(k.values) != len(o.values) {
		return false
	}
	for i := range k.values {
		if !k.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// keySet is a set of row keys bucketed by hash.
type keySet struct {
	buckets map[uint64][]key
	size    int
}

func newKeySet() *keySet {
	return &keySet{buckets: make(map[uint64][]key)}
}

// add inserts k and reports whether it was new.
func (s *keySet) add(k key) bool {
	for _, e := range s.buckets[k.hash] {
		if e.equal(k) {
			return false
		}
	}
	s.buckets[k.hash] = append(s.buckets[k.hash], k)
	s.size++
	return true
}

func (s *keySet) len() int { return s.size }

// keyIndex maps row keys to values, bucketed by hash.
type keyIndex[V any] struct {
	buckets map[uint64][]keyEntry[V]
}

type keyEntry[V any] struct {
	key   key
	value V
}

func newKeyIndex[V any]() *keyIndex[V] {
	return &keyIndex[V]{buckets: make(map[uint64][]keyEntry[V])}
}

// get returns the value stored under k.
func (x *keyIndex[V]) get(k key) (V, bool) {
	for _, e := range x.buckets[k.hash] {
		if e.key.equal(k) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// put stores value under k unless k is present; it reports whether the
// value was stored.
func (x *keyIndex[V]) put(k key, value V) bool {
	for _, e := range x.buckets[k.hash] {
		if e.key.equal(k) {
			return false
		}
	}
	x.buckets[k.hash] = append(x.buckets[k.hash], keyEntry[V]{key: k, value: value})
	return true
}
