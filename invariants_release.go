//go:build !debug

package store

// checkInvariants is a no-op in release builds; see invariants_debug.go
// for the debug-build cross-check this mirrors.
func (s *Store) checkInvariants(where string) {}
