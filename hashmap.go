package main

import "hash/fnv"

// symbolMap is a chained hash map from symbol name to *Symbol.
//
// Grounded on xyproto/flapc's hashmap.go (FlapHashMap): the same
// fixed-bucket-array-plus-chain shape, generalized from a uint64-key/
// float64-value map (Flap's universal value representation) to a
// string-key/*Symbol-value map for the assembler's symbol table.
type symbolMap struct {
	buckets []symbolBucket
	size    int
	count   int
}

type symbolBucket struct {
	key      string
	value    *Symbol
	occupied bool
	next     *symbolBucket
}

func newSymbolMap(initialSize int) *symbolMap {
	if initialSize < 16 {
		initialSize = 16
	}
	return &symbolMap{buckets: make([]symbolBucket, initialSize), size: initialSize}
}

func (m *symbolMap) hash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

func (m *symbolMap) Get(key string) (*Symbol, bool) {
	idx := m.hash(key) % uint64(m.size)
	bucket := &m.buckets[idx]
	if bucket.occupied && bucket.key == key {
		return bucket.value, true
	}
	for cur := bucket.next; cur != nil; cur = cur.next {
		if cur.key == key {
			return cur.value, true
		}
	}
	return nil, false
}

func (m *symbolMap) Set(key string, value *Symbol) {
	idx := m.hash(key) % uint64(m.size)
	bucket := &m.buckets[idx]
	if !bucket.occupied {
		bucket.key = key
		bucket.value = value
		bucket.occupied = true
		m.count++
		return
	}
	if bucket.key == key {
		bucket.value = value
		return
	}
	for cur := bucket.next; cur != nil; cur = cur.next {
		if cur.key == key {
			cur.value = value
			return
		}
	}
	bucket.next = &symbolBucket{key: key, value: value, occupied: true, next: bucket.next}
	m.count++
}

// Each calls fn for every entry. Iteration order is unspecified;
// SymbolTable.Each, which the ELF symbol table pass uses, walks its
// own first-mention order list instead.
func (m *symbolMap) Each(fn func(name string, sym *Symbol)) {
	for i := range m.buckets {
		bucket := &m.buckets[i]
		if !bucket.occupied {
			continue
		}
		fn(bucket.key, bucket.value)
		for cur := bucket.next; cur != nil; cur = cur.next {
			fn(cur.key, cur.value)
		}
	}
}

func (m *symbolMap) Len() int { return m.count }
