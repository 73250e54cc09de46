package cbor

import "github.com/cespare/xxhash/v2"

// valueHash returns a content hash of v's canonical wire encoding, used
// to bucket map keys and set entries so duplicate detection on large
// containers does not degrade into an O(n^2) scan of Equal calls. A
// write failure (an unsupported dispatch key, say) just disables
// bucketing for that value; the caller always falls back to Equal.
func valueHash(c *Codec, v any) (uint64, bool) {
	w := NewCborWriter(WithConformanceMode(ConformanceCanonical))
	if err := c.encodeValue(w, v); err != nil {
		return 0, false
	}
	return xxhash.Sum64(w.Bytes()), true
}

// duplicateIndexSet buckets items by valueHash so repeated-entry checks
// (map keys, set members) only compare against same-hash candidates.
type duplicateIndexSet struct {
	c       *Codec
	buckets map[uint64][]int
}

func newDuplicateIndexSet(c *Codec) *duplicateIndexSet {
	return &duplicateIndexSet{c: c, buckets: make(map[uint64][]int)}
}

// addIfNew records v at index idx and reports whether an equal value
// was already present.
func (d *duplicateIndexSet) addIfNew(v any, idx int, existing func(int) any) bool {
	h, ok := valueHash(d.c, v)
	if !ok {
		for other := 0; other < idx; other++ {
			if Equal(existing(other), v) {
				return true
			}
		}
		return false
	}
	for _, other := range d.buckets[h] {
		if Equal(existing(other), v) {
			return true
		}
	}
	d.buckets[h] = append(d.buckets[h], idx)
	return false
}
