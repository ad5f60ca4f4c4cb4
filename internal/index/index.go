// Package index implements the index manager (spec.md §4.C): the mapping
// {descriptor -> {index key -> set of record ids}}, kept in sync with the
// primary map by the storage engine's add/remove deltas on every mutation.
//
// Each descriptor gets its own lock, the same sharding idea the teacher's
// internal/docdb/index.go applies per document-id shard — here the natural
// shard axis is the descriptor itself, since add/remove for one descriptor
// never touches another's key set.
package index

import (
	"sort"
	"sync"

	"github.com/indexedstore/store/internal/keybuilder"
	"github.com/indexedstore/store/internal/types"
)

// idSet is one index key's set of record ids. Membership is deduplicated
// via present, but order preserves first-insertion order so SortBy can
// emit ids within a key in insertion order (spec.md §4.E).
type idSet struct {
	order   []string
	present map[string]struct{}
}

func newIDSet() *idSet {
	return &idSet{present: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	if _, ok := s.present[id]; ok {
		return
	}
	s.present[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *idSet) remove(id string) {
	if _, ok := s.present[id]; !ok {
		return
	}
	delete(s.present, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *idSet) len() int { return len(s.order) }

func (s *idSet) ids() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *idSet) clone() *idSet {
	out := newIDSet()
	out.order = append(out.order, s.order...)
	for id := range s.present {
		out.present[id] = struct{}{}
	}
	return out
}

// descriptorIndex holds one descriptor's key -> id-set mapping.
type descriptorIndex struct {
	mu   sync.RWMutex
	keys map[string]*idSet
}

func newDescriptorIndex() *descriptorIndex {
	return &descriptorIndex{keys: make(map[string]*idSet)}
}

func (d *descriptorIndex) add(key, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.keys[key]
	if !ok {
		set = newIDSet()
		d.keys[key] = set
	}
	set.add(id)
}

// remove deletes id from key's set, pruning the set if it becomes empty
// (spec.md I4: no index set is empty).
func (d *descriptorIndex) remove(key, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.keys[key]
	if !ok {
		return
	}
	set.remove(id)
	if set.len() == 0 {
		delete(d.keys, key)
	}
}

func (d *descriptorIndex) lookup(key string) ([]string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set, ok := d.keys[key]
	if !ok {
		return nil, false
	}
	return set.ids(), true
}

func (d *descriptorIndex) allKeys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.keys))
	for k := range d.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d *descriptorIndex) keyCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.keys)
}

func (d *descriptorIndex) idCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, set := range d.keys {
		n += set.len()
	}
	return n
}

func (d *descriptorIndex) clone() *descriptorIndex {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := newDescriptorIndex()
	for key, set := range d.keys {
		out.keys[key] = set.clone()
	}
	return out
}

// Manager is the index manager: every descriptor the store has declared,
// plus the delimiter used to expand them.
type Manager struct {
	mu          sync.RWMutex
	delim       string
	order       []string // declaration order, for stable Dump output
	descriptors map[string]*descriptorIndex
}

func New(delim string) *Manager {
	return &Manager{
		delim:       delim,
		descriptors: make(map[string]*descriptorIndex),
	}
}

// CreateDescriptor declares descriptor if it isn't already declared. It is
// always safe to call redundantly.
func (m *Manager) CreateDescriptor(descriptor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(descriptor)
}

func (m *Manager) createLocked(descriptor string) *descriptorIndex {
	if di, ok := m.descriptors[descriptor]; ok {
		return di
	}
	di := newDescriptorIndex()
	m.descriptors[descriptor] = di
	m.order = append(m.order, descriptor)
	return di
}

// Has reports whether descriptor has been declared.
func (m *Manager) Has(descriptor string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.descriptors[descriptor]
	return ok
}

// Descriptors returns the declared descriptors in declaration order.
func (m *Manager) Descriptors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// AddEntries expands record under every declared descriptor and inserts id
// into each resulting key's set (spec.md §4.C).
func (m *Manager) AddEntries(id string, record types.Record) {
	for _, descriptor := range m.Descriptors() {
		di := m.get(descriptor)
		if di == nil {
			continue
		}
		for _, key := range keybuilder.Expand(descriptor, m.delim, record) {
			di.add(key, id)
		}
	}
}

// RemoveEntries is AddEntries's inverse, used before an update (against the
// old value) and on delete.
func (m *Manager) RemoveEntries(id string, record types.Record) {
	for _, descriptor := range m.Descriptors() {
		di := m.get(descriptor)
		if di == nil {
			continue
		}
		for _, key := range keybuilder.Expand(descriptor, m.delim, record) {
			di.remove(key, id)
		}
	}
}

func (m *Manager) get(descriptor string) *descriptorIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.descriptors[descriptor]
}

// Lookup returns the ids indexed under descriptor's key, if any.
func (m *Manager) Lookup(descriptor, key string) ([]string, bool) {
	di := m.get(descriptor)
	if di == nil {
		return nil, false
	}
	return di.lookup(key)
}

// Keys returns descriptor's index keys in ascending lexical (byte-wise
// string) order (used by SortBy).
func (m *Manager) Keys(descriptor string) []string {
	di := m.get(descriptor)
	if di == nil {
		return nil
	}
	return di.allKeys()
}

// KeyCount and IDCount report a descriptor's cardinality (spec_full.md
// §5 IndexStats).
func (m *Manager) KeyCount(descriptor string) int {
	di := m.get(descriptor)
	if di == nil {
		return 0
	}
	return di.keyCount()
}

func (m *Manager) IDCount(descriptor string) int {
	di := m.get(descriptor)
	if di == nil {
		return 0
	}
	return di.idCount()
}

// DropAll clears every descriptor's key/id data but keeps the descriptors
// themselves declared (spec.md §4.D Clear: "descriptors persist").
func (m *Manager) DropAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, descriptor := range m.order {
		m.descriptors[descriptor] = newDescriptorIndex()
	}
}

// ReindexAll clears every descriptor and re-adds every record. Idempotent:
// applying it twice is equivalent to applying it once (spec.md §8).
func (m *Manager) ReindexAll(records map[string]types.Record) {
	m.DropAll()
	for id, record := range records {
		m.AddEntries(id, record)
	}
}

// IndexExisting retroactively indexes records under a single, already
// declared descriptor, without touching any other descriptor's data. Used
// when a descriptor is declared after records already exist (spec_full.md
// §5 CreateIndex).
func (m *Manager) IndexExisting(descriptor string, records map[string]types.Record) {
	di := m.get(descriptor)
	if di == nil {
		return
	}
	for id, record := range records {
		for _, key := range keybuilder.Expand(descriptor, m.delim, record) {
			di.add(key, id)
		}
	}
}

// Dump produces the stable indexes-dump representation (spec.md §6):
// an ordered sequence of [descriptor, [[indexKey, idList]...]].
func (m *Manager) Dump() []types.IndexEntry {
	descriptors := m.Descriptors()
	out := make([]types.IndexEntry, 0, len(descriptors))
	for _, descriptor := range descriptors {
		di := m.get(descriptor)
		keys := di.allKeys()
		entry := types.IndexEntry{Descriptor: descriptor, Keys: make([]types.IndexKeyEntry, 0, len(keys))}
		for _, key := range keys {
			ids, _ := di.lookup(key)
			entry.Keys = append(entry.Keys, types.IndexKeyEntry{Key: key, IDs: ids})
		}
		out = append(out, entry)
	}
	return out
}

// Restore discards all existing index data and rebuilds it from a prior
// Dump, without validating it against any primary map (spec.md §4.F).
func (m *Manager) Restore(entries []types.IndexEntry) {
	m.mu.Lock()
	m.descriptors = make(map[string]*descriptorIndex)
	m.order = nil
	m.mu.Unlock()

	for _, entry := range entries {
		m.mu.Lock()
		di := m.createLocked(entry.Descriptor)
		m.mu.Unlock()
		for _, ke := range entry.Keys {
			for _, id := range ke.IDs {
				di.add(ke.Key, id)
			}
		}
	}
}

// Clone returns a deep, independent copy of the manager. Used by the
// immutable store variant when it needs to branch index state alongside
// the persistent radix tree that holds the primary map.
func (m *Manager) Clone() *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := &Manager{
		delim:       m.delim,
		order:       append([]string(nil), m.order...),
		descriptors: make(map[string]*descriptorIndex, len(m.descriptors)),
	}
	for descriptor, di := range m.descriptors {
		out.descriptors[descriptor] = di.clone()
	}
	return out
}
