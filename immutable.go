package store

import (
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/panjf2000/ants/v2"

	"github.com/indexedstore/store/internal/codec"
	"github.com/indexedstore/store/internal/config"
	storeerrors "github.com/indexedstore/store/internal/errors"
	"github.com/indexedstore/store/internal/index"
	"github.com/indexedstore/store/internal/types"
	"github.com/indexedstore/store/internal/version"
)

// snapshot is one immutable generation of the store's primary data: a
// persistent radix tree (structural sharing across generations via
// path-copying, spec.md §9) plus the ancillary index/version state that
// generation was built against. Ancillary state is plain copy-on-write
// rather than structurally shared — the small-size alternative spec.md §9
// explicitly permits, since a descriptor's key/id sets don't benefit from
// radix-tree sharing the way the primary map does.
type snapshot struct {
	version int
	tree    *iradix.Tree
	order   []string
	idx     *index.Manager
	hist    *version.History
}

// ImmutableStore is the copy-on-write variant of Store: every mutation
// produces a new numbered snapshot rather than mutating state in place,
// and every prior snapshot stays retained and reachable by version number
// via At until it is dropped with Forget (spec.md §6 immutable mode).
type ImmutableStore struct {
	mu      sync.RWMutex
	cfg     *config.Config
	current *snapshot
	byVer   map[int]*snapshot
	pool    *ants.Pool
}

// NewImmutable constructs an ImmutableStore from cfg, starting at version 0
// with no records.
func NewImmutable(cfg *config.Config) *ImmutableStore {
	cfg = cfg.Normalize()
	cfg.Immutable = true

	idx := index.New(cfg.Delimiter)
	for _, descriptor := range cfg.Index {
		idx.CreateDescriptor(descriptor)
	}

	pool, err := ants.NewPool(4)
	if err != nil {
		pool = nil
	}

	first := &snapshot{
		version: 0,
		tree:    iradix.New(),
		idx:     idx,
		hist:    version.New(cfg.Versioning),
	}

	return &ImmutableStore{
		cfg:     cfg,
		current: first,
		byVer:   map[int]*snapshot{0: first},
		pool:    pool,
	}
}

// RestoreFromDump builds a fresh generation-0 ImmutableStore directly from
// a prior Dump (spec.md §4.F): records are loaded into the radix tree as
// given, then indexes are either restored verbatim from an indexes dump
// (if provided) or rebuilt from the records (if nil).
func RestoreFromDump(cfg *config.Config, records []types.RecordEntry, indexes []types.IndexEntry) *ImmutableStore {
	s := NewImmutable(cfg)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	txn := cur.tree.Txn()
	order := make([]string, 0, len(records))
	byID := make(map[string]types.Record, len(records))
	for _, entry := range records {
		cloned := codec.Clone(entry.Record)
		txn.Insert([]byte(entry.ID), cloned)
		order = append(order, entry.ID)
		byID[entry.ID] = cloned
		cur.hist.Allocate(entry.ID)
	}

	if indexes != nil {
		cur.idx.Restore(indexes)
	} else {
		cur.idx.ReindexAll(byID)
	}

	cur.tree = txn.Commit()
	cur.order = order
	return s
}

// Close releases the store's worker pool.
func (s *ImmutableStore) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Version returns the current generation number.
func (s *ImmutableStore) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.version
}

// Set inserts or updates id in a new generation, leaving every prior
// generation unaffected and still reachable via At. Semantics otherwise
// match Store.Set (deep-merge unless override, id resolution rule).
func (s *ImmutableStore) Set(id string, record Record, override bool, raw bool) (Record, int, error) {
	if record == nil {
		record = Record{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	resolvedID := id
	if resolvedID == "" {
		resolvedID = resolveImmutableID(s.cfg, cur, record)
	}

	var previous types.Record
	existed := false
	if storedVal, ok := cur.tree.Get([]byte(resolvedID)); ok {
		previous, existed = storedVal.(types.Record), true
	}

	final := record
	if existed && !override {
		final = deepMerge(previous, record)
	}
	final = codec.Clone(final)

	txn := cur.tree.Txn()
	txn.Insert([]byte(resolvedID), final)
	newTree := txn.Commit()

	newIdx := cur.idx.Clone()
	if existed {
		newIdx.RemoveEntries(resolvedID, previous)
	}
	newIdx.AddEntries(resolvedID, final)

	newHist := cur.hist.Clone()
	newOrder := cur.order
	if existed {
		if newHist.Enabled() {
			newHist.Snapshot(resolvedID, previous)
		}
	} else {
		newOrder = append(append([]string(nil), cur.order...), resolvedID)
		newHist.Allocate(resolvedID)
	}

	next := &snapshot{
		version: cur.version + 1,
		tree:    newTree,
		order:   newOrder,
		idx:     newIdx,
		hist:    newHist,
	}
	s.current = next
	s.byVer[next.version] = next

	return view(final, raw), next.version, nil
}

func resolveImmutableID(cfg *config.Config, cur *snapshot, record Record) string {
	if cfg.Key != "" {
		if v, ok := record[cfg.Key]; ok {
			if idStr, ok := v.(string); ok && idStr != "" {
				return idStr
			}
		}
	}
	return generatedID()
}

// Del removes id in a new generation. Returns storeerrors.ErrNotFound if
// id is absent in the current generation.
func (s *ImmutableStore) Del(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	raw, ok := cur.tree.Get([]byte(id))
	if !ok {
		return cur.version, storeerrors.NotFound(id)
	}
	previous := raw.(types.Record)

	txn := cur.tree.Txn()
	txn.Delete([]byte(id))
	newTree := txn.Commit()

	newIdx := cur.idx.Clone()
	newIdx.RemoveEntries(id, previous)

	newHist := cur.hist.Clone()
	newHist.Drop(id)

	newOrder := make([]string, 0, len(cur.order)-1)
	for _, existing := range cur.order {
		if existing != id {
			newOrder = append(newOrder, existing)
		}
	}

	next := &snapshot{
		version: cur.version + 1,
		tree:    newTree,
		order:   newOrder,
		idx:     newIdx,
		hist:    newHist,
	}
	s.current = next
	s.byVer[next.version] = next
	return next.version, nil
}

// Clear drops every record and all index/version state in a new
// generation. Declared descriptors persist.
func (s *ImmutableStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	next := &snapshot{
		version: cur.version + 1,
		tree:    iradix.New(),
		idx:     cur.idx.Clone(),
		hist:    version.New(cur.hist.Enabled()),
	}
	next.idx.DropAll()
	s.current = next
	s.byVer[next.version] = next
	return next.version
}

// Get reads id from the current generation.
func (s *ImmutableStore) Get(id string, raw bool) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getFromSnapshot(s.current, id, raw)
}

// At returns a read-only view bound to a specific prior generation. It
// returns false if ver is not (or is no longer) retained.
func (s *ImmutableStore) At(ver int) (*SnapshotView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byVer[ver]
	if !ok {
		return nil, false
	}
	return &SnapshotView{snap: snap}, true
}

// Forget drops a prior generation from retention, freeing it for GC once
// no other reference remains. The current generation can never be
// forgotten.
func (s *ImmutableStore) Forget(ver int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ver == s.current.version {
		return
	}
	delete(s.byVer, ver)
}

// SnapshotView is a read-only handle onto one immutable generation,
// returned by ImmutableStore.At.
type SnapshotView struct {
	snap *snapshot
}

func (v *SnapshotView) Version() int { return v.snap.version }

func (v *SnapshotView) Get(id string, raw bool) (Record, error) {
	return getFromSnapshot(v.snap, id, raw)
}

func (v *SnapshotView) Has(id string) bool {
	_, ok := v.snap.tree.Get([]byte(id))
	return ok
}

func (v *SnapshotView) Size() int { return len(v.snap.order) }

func (v *SnapshotView) Keys() []string {
	out := make([]string, len(v.snap.order))
	copy(out, v.snap.order)
	return out
}

func (v *SnapshotView) Entries(raw bool) []types.RecordEntry {
	out := make([]types.RecordEntry, 0, len(v.snap.order))
	for _, id := range v.snap.order {
		if record, ok := getFromSnapshot(v.snap, id, raw); ok == nil {
			out = append(out, types.RecordEntry{ID: id, Record: record})
		}
	}
	return out
}

// Dump produces the same stable representation Store.Dump does, for this
// generation.
func (v *SnapshotView) Dump(kind types.DumpKind) (interface{}, error) {
	switch kind {
	case types.DumpRecords:
		return v.Entries(true), nil
	case types.DumpIndexes:
		return v.snap.idx.Dump(), nil
	default:
		return nil, storeerrors.InvalidArgument("unknown dump kind")
	}
}

func getFromSnapshot(snap *snapshot, id string, raw bool) (Record, error) {
	rawVal, ok := snap.tree.Get([]byte(id))
	if !ok {
		return nil, storeerrors.NotFound(id)
	}
	return view(rawVal.(types.Record), raw), nil
}
