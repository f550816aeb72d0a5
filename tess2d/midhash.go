package tess2d

import "github.com/go-gl/mathgl/mgl64"

// Add statuses for the midpoint cache.
const (
	midNew = iota
	midDuplicate
)

// primetab supplies chained-hash table sizes. The table is sized to
// the next prime at or above the requested capacity and never
// rehashed.
var primetab = [...]int{
	127, 251, 509, 1021, 2039, 4093, 8191, 16381, 32749, 65521,
	131071, 262139, 524287, 1048573, 2097143, 4194301, 8388593,
	16777213, 33554393, 67108859, 134217689, 268435399, 536870909,
	1073741789, 2147483647,
}

type midEntry struct {
	key   [3]int
	close bool
	xyz   mgl64.Vec3
	next  *midEntry
}

// midHash memoizes surface-evaluated centroids keyed by the
// unordered triple of a triangle's vertex indices. It lives for the
// duration of one refinement phase.
type midHash struct {
	buckets []*midEntry
}

func newMidHash(capacity int) *midHash {
	n := primetab[len(primetab)-1]
	for _, p := range primetab {
		if p >= capacity {
			n = p
			break
		}
	}
	return &midHash{buckets: make([]*midEntry, n)}
}

// midKey sorts the triple as (min, middle, max).
func midKey(i0, i1, i2 int) [3]int {
	min, max := i0, i0
	if i1 < min {
		min = i1
	}
	if i2 < min {
		min = i2
	}
	if i1 > max {
		max = i1
	}
	if i2 > max {
		max = i2
	}
	return [3]int{min, i0 + i1 + i2 - min - max, max}
}

func (m *midHash) bucket(key [3]int) int {
	return (key[0] + key[1] + key[2]) % len(m.buckets)
}

// find looks up the triple and reports whether it is cached.
func (m *midHash) find(i0, i1, i2 int) (close bool, xyz mgl64.Vec3, ok bool) {
	key := midKey(i0, i1, i2)
	for e := m.buckets[m.bucket(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.close, e.xyz, true
		}
	}
	return false, mgl64.Vec3{}, false
}

// add stores the centroid for the triple, reporting midDuplicate
// when an entry already exists (the stored value is refreshed).
func (m *midHash) add(i0, i1, i2 int, close bool, xyz mgl64.Vec3) int {
	key := midKey(i0, i1, i2)
	b := m.bucket(key)
	for e := m.buckets[b]; e != nil; e = e.next {
		if e.key == key {
			e.close = close
			e.xyz = xyz
			return midDuplicate
		}
	}
	m.buckets[b] = &midEntry{key: key, close: close, xyz: xyz, next: m.buckets[b]}
	return midNew
}
