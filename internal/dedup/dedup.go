// Package dedup implements the fragment deduplication lookup of §4.2: a
// bucket-hashed table keyed by the first three bytes of a fragment's SHA-1,
// confirmed by full 20-byte comparison, rebuilt from the fragment index.
package dedup

import "github.com/jidac/jidac/internal/index"

// bucketCount is 2^22, per §4.2.
const bucketCount = 1 << 22

// Map is the deduplication lookup structure. It does not own the fragment
// index; it stores ids and asks the caller's HT for the full hash on
// lookup collisions.
type Map struct {
	buckets [][]int64 // bucket -> candidate fragment ids, sorted by insertion
}

// New creates an empty Map.
func New() *Map {
	return &Map{buckets: make([][]int64, bucketCount)}
}

func bucketOf(sha1 [20]byte) uint32 {
	return (uint32(sha1[0])<<16 | uint32(sha1[1])<<8 | uint32(sha1[2])) & (bucketCount - 1)
}

// Add records a fragment id discovered at HT[id]. Call this after every HT
// append, per §4.2.
func (m *Map) Add(id int64, sha1 [20]byte) {
	b := bucketOf(sha1)
	m.buckets[b] = append(m.buckets[b], id)
}

// Lookup returns the id of a previously indexed fragment with the given
// SHA-1, confirmed by full-hash comparison against ht, or 0 (no such
// fragment id) if none is found.
func (m *Map) Lookup(sha1 [20]byte, ht []index.Fragment) int64 {
	b := bucketOf(sha1)
	for _, id := range m.buckets[b] {
		if int(id) < len(ht) && ht[id].SHA1 == sha1 {
			return id
		}
	}
	return 0
}

// BuildFromModel rebuilds the dedup map from an archive model's HT,
// indexing exactly the fragments with USize >= 0 (§4.2: "Indexed fragments
// are exactly those with usize >= 0").
func BuildFromModel(ht []index.Fragment) *Map {
	m := New()
	for id := 1; id < len(ht); id++ {
		if ht[id].USize >= 0 {
			m.Add(int64(id), ht[id].SHA1)
		}
	}
	return m
}
