// Package version implements per-id version history (spec.md §4.G): before
// every update (never the first insert), the pre-update value is appended
// to the id's history. History is read-only from the outside and is
// dropped on delete and on clear.
package version

import (
	"sync"

	"github.com/indexedstore/store/internal/codec"
	"github.com/indexedstore/store/internal/types"
)

// History tracks, per id, the ordered list of prior stored values.
type History struct {
	mu      sync.RWMutex
	enabled bool
	byID    map[string][]types.Record
}

func New(enabled bool) *History {
	return &History{
		enabled: enabled,
		byID:    make(map[string][]types.Record),
	}
}

func (h *History) Enabled() bool { return h.enabled }

// Allocate creates an empty history slot for a newly-inserted id. A no-op
// when versioning is disabled.
func (h *History) Allocate(id string) {
	if !h.enabled {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[id]; !ok {
		h.byID[id] = nil
	}
}

// Snapshot appends the pre-update value of id to its history. A no-op when
// versioning is disabled.
func (h *History) Snapshot(id string, previous types.Record) {
	if !h.enabled {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[id] = append(h.byID[id], codec.Clone(previous))
}

// Get returns id's version history in insertion-update order (spec.md I5).
// The returned slice and its records are independent copies.
func (h *History) Get(id string) []types.Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := h.byID[id]
	out := make([]types.Record, len(entries))
	for i, r := range entries {
		out[i] = codec.Clone(r)
	}
	return out
}

// Drop discards id's history (on delete).
func (h *History) Drop(id string) {
	if !h.enabled {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, id)
}

// Clear discards all history (on store clear).
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID = make(map[string][]types.Record)
}

// Count returns the total number of history entries across all ids, used
// by Store.Stats.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, entries := range h.byID {
		n += len(entries)
	}
	return n
}

// IDCount returns the number of ids carrying an allocated history slot
// (every stored id when versioning is enabled, zero otherwise).
func (h *History) IDCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}

// Clone returns a deep, independent copy, for the immutable store variant.
func (h *History) Clone() *History {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := &History{enabled: h.enabled, byID: make(map[string][]types.Record, len(h.byID))}
	for id, entries := range h.byID {
		cloned := make([]types.Record, len(entries))
		for i, r := range entries {
			cloned[i] = codec.Clone(r)
		}
		out.byID[id] = cloned
	}
	return out
}
