package knowledge

import (
	"cmp"
	"slices"
)

// Fuse merges two ranked result lists by identity. Each item ranks at the
// lower of its first positions in lead and other, with a missing position
// counting as unbounded. Ties keep lead items ahead of other-only items,
// each in list order. The result is truncated to limit when limit > 0.
func Fuse[T any, K comparable](lead, other []T, key func(T) K, limit int) []T {
	type entry struct {
		item T
		rank int
	}

	index := make(map[K]int, len(lead)+len(other))
	entries := make([]entry, 0, len(lead)+len(other))

	add := func(list []T) {
		for i, item := range list {
			k := key(item)
			if at, ok := index[k]; ok {
				entries[at].rank = min(entries[at].rank, i)
				continue
			}
			index[k] = len(entries)
			entries = append(entries, entry{item: item, rank: i})
		}
	}

	add(lead)
	add(other)

	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.rank, b.rank)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	fused := make([]T, len(entries))
	for i, e := range entries {
		fused[i] = e.item
	}
	return fused
}
