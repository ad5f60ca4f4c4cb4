//go:build debug

package store

import "fmt"

// checkInvariants is compiled into debug builds only; it panics loudly the
// moment I1, I3 or I4 (spec.md §3) doesn't hold, rather than letting
// corruption spread. Release builds use the no-op in invariants_release.go
// and perform no invariant check at all; this is an expensive cross-check
// for development and tests. Grounded on the
// teacher's internal/docdb/invariants_debug.go / invariants_release.go
// split.
func (s *Store) checkInvariants(where string) {
	if len(s.data) != len(s.order) {
		panic(fmt.Sprintf("store invariant I1 violated at %s: len(order)=%d len(data)=%d", where, len(s.order), len(s.data)))
	}
	for _, descriptor := range s.idx.Descriptors() {
		for _, key := range s.idx.Keys(descriptor) {
			ids, _ := s.idx.Lookup(descriptor, key)
			if len(ids) == 0 {
				panic(fmt.Sprintf("store invariant I4 violated at %s: descriptor %q key %q has an empty set", where, descriptor, key))
			}
			for _, id := range ids {
				if _, ok := s.data[id]; !ok {
					panic(fmt.Sprintf("store invariant I3 violated at %s: descriptor %q key %q references absent id %q", where, descriptor, key, id))
				}
			}
		}
	}
}
