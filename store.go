// Package store implements an in-memory, indexed record store for
// structured documents keyed by opaque identifiers. A Store is a primary
// map from id to Record, plus zero or more user-declared secondary
// indexes kept consistent with every mutation, plus an optional per-id
// version history.
package store

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/indexedstore/store/internal/codec"
	"github.com/indexedstore/store/internal/config"
	storeerrors "github.com/indexedstore/store/internal/errors"
	"github.com/indexedstore/store/internal/index"
	"github.com/indexedstore/store/internal/keybuilder"
	"github.com/indexedstore/store/internal/logger"
	"github.com/indexedstore/store/internal/query"
	"github.com/indexedstore/store/internal/types"
	"github.com/indexedstore/store/internal/version"
)

// Store is the mutable, in-process record store (spec.md §3-§4). The zero
// value is not usable; construct one with New.
type Store struct {
	mu  sync.RWMutex
	cfg *config.Config

	data  map[string]types.Record
	order []string // insertion order of ids, for deterministic Keys/Values/Entries/ForEach/Dump

	idx  *index.Manager
	hist *version.History

	planCache *query.PlanCache
	pool      *ants.Pool
	log       *logger.Logger
}

// Stats summarizes store-wide cardinality (spec_full.md §5).
type Stats struct {
	Size           int
	Descriptors    int
	VersionedIDs   int
	VersionEntries int
}

// IndexStats summarizes one descriptor's cardinality.
type IndexStats struct {
	Descriptor string
	KeyCount   int
	IDCount    int
}

// New constructs a Store from cfg. A nil cfg yields the defaults
// (spec.md §6).
func New(cfg *config.Config) *Store {
	cfg = cfg.Normalize()

	pool, err := ants.NewPool(runtimeWorkers(), ants.WithPanicHandler(func(v any) {
		cfg.Logger.Error("store worker panic: %v", v)
	}))
	if err != nil {
		// ants.NewPool only fails on an invalid (negative, non -1) size;
		// runtimeWorkers never produces one. Fall back to a minimal pool
		// rather than leaving s.pool nil.
		pool, _ = ants.NewPool(1)
	}

	s := &Store{
		cfg:       cfg,
		data:      make(map[string]types.Record),
		idx:       index.New(cfg.Delimiter),
		hist:      version.New(cfg.Versioning),
		planCache: query.NewPlanCache(256),
		pool:      pool,
		log:       cfg.Logger,
	}
	for _, descriptor := range cfg.Index {
		if err := keybuilder.ValidateDescriptor(descriptor, cfg.Delimiter); err != nil {
			s.log.Warn("skipping malformed descriptor %q: %v", descriptor, err)
			continue
		}
		s.idx.CreateDescriptor(descriptor)
	}
	return s
}

func runtimeWorkers() int {
	n := runtime.NumCPU() * 2
	if n < 4 {
		n = 4
	}
	if n > 64 {
		n = 64
	}
	return n
}

// Close releases the store's worker pool. Safe to call once; a Store is
// not usable afterward.
func (s *Store) Close() {
	s.pool.Release()
}

// CreateIndex declares a new secondary index descriptor and retroactively
// indexes every existing record under it (spec_full.md §5). Redeclaring an
// already-declared descriptor is a no-op.
func (s *Store) CreateIndex(descriptor string) error {
	if err := keybuilder.ValidateDescriptor(descriptor, s.cfg.Delimiter); err != nil {
		return storeerrors.InvalidArgument(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx.Has(descriptor) {
		return nil
	}
	s.idx.CreateDescriptor(descriptor)
	s.idx.IndexExisting(descriptor, s.data)
	return nil
}

// Descriptors returns the declared index descriptors in declaration order.
func (s *Store) Descriptors() []string {
	return s.idx.Descriptors()
}

// Set inserts or updates id's record. When id is empty, an id is resolved
// via the configured key field or a generated UUIDv4 (spec.md §3). Unless
// override is true, a prior value is deep-merged with record rather than
// replaced (spec.md §4.D). Set returns the stored record as it stands
// after the write, as a view governed by raw (see Get).
func (s *Store) Set(id string, record Record, override bool, raw bool) (Record, error) {
	if record == nil {
		record = Record{}
	}

	s.mu.Lock()
	resolvedID := s.newID(id, record)

	previous, existed := s.data[resolvedID]

	if s.cfg.Hooks.BeforeSet != nil {
		if err := s.cfg.Hooks.BeforeSet(resolvedID, record); err != nil {
			s.mu.Unlock()
			s.onError("Set", err)
			return nil, err
		}
	}

	final := record
	if existed && !override {
		final = deepMerge(previous, record)
	}
	final = codec.Clone(final)

	if existed {
		s.idx.RemoveEntries(resolvedID, previous)
		if s.hist.Enabled() {
			s.hist.Snapshot(resolvedID, previous)
		}
	} else {
		s.order = append(s.order, resolvedID)
		s.hist.Allocate(resolvedID)
	}

	s.data[resolvedID] = final
	s.idx.AddEntries(resolvedID, final)
	s.runInvariants("Set")

	onSet := s.cfg.Hooks.OnSet
	result := view(final, raw)
	s.mu.Unlock()

	if onSet != nil {
		onSet(resolvedID, view(final, raw))
	}
	return result, nil
}

// Del removes id's record, its version history, and its entries in every
// declared index. It returns storeerrors.ErrNotFound if id is absent.
func (s *Store) Del(id string) error {
	s.mu.Lock()

	record, ok := s.data[id]
	if !ok {
		s.mu.Unlock()
		err := storeerrors.NotFound(id)
		s.onError("Del", err)
		return err
	}

	if s.cfg.Hooks.BeforeDelete != nil {
		if err := s.cfg.Hooks.BeforeDelete(id); err != nil {
			s.mu.Unlock()
			s.onError("Del", err)
			return err
		}
	}

	delete(s.data, id)
	s.removeFromOrder(id)
	s.idx.RemoveEntries(id, record)
	s.hist.Drop(id)
	s.runInvariants("Del")

	onDelete := s.cfg.Hooks.OnDelete
	s.mu.Unlock()

	if onDelete != nil {
		onDelete(id, view(record, s.cfg.RawDefault))
	}
	return nil
}

func (s *Store) removeFromOrder(id string) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Clear removes every record, all index data, and all version history.
// Declared descriptors themselves persist (spec.md §4.D).
func (s *Store) Clear() error {
	s.mu.Lock()

	if s.cfg.Hooks.BeforeClear != nil {
		if err := s.cfg.Hooks.BeforeClear(); err != nil {
			s.mu.Unlock()
			s.onError("Clear", err)
			return err
		}
	}

	s.data = make(map[string]types.Record)
	s.order = nil
	s.idx.DropAll()
	s.hist.Clear()

	onClear := s.cfg.Hooks.OnClear
	s.mu.Unlock()

	if onClear != nil {
		onClear()
	}
	return nil
}

// Batch applies a sequence of set/delete operations as one logical unit
// (spec.md §4.D, §7): BeforeBatch may veto the whole batch before any item
// is applied; items then apply in order, but the first item to fail stops
// the batch right there — its error becomes Batch's own returned error,
// and no further items are applied. OnBatch observes the results gathered
// up to (and including) that failure, or every item's result if all
// succeeded.
func (s *Store) Batch(items []types.BatchItem) ([]types.BatchResult, error) {
	if s.cfg.Hooks.BeforeBatch != nil {
		if err := s.cfg.Hooks.BeforeBatch(items); err != nil {
			s.onError("Batch", err)
			return nil, err
		}
	}

	results := make([]types.BatchResult, 0, len(items))
	var batchErr error
	for _, item := range items {
		switch item.Op {
		case types.BatchSet:
			record, err := s.Set(item.ID, item.Record, item.Override, s.cfg.RawDefault)
			results = append(results, types.BatchResult{ID: item.ID, Record: record, Err: err})
			if err != nil {
				batchErr = err
			}
		case types.BatchDelete:
			err := s.Del(item.ID)
			results = append(results, types.BatchResult{ID: item.ID, Err: err})
			if err != nil {
				batchErr = err
			}
		default:
			err := storeerrors.InvalidArgument(fmt.Sprintf("unknown batch op %q", item.Op))
			results = append(results, types.BatchResult{ID: item.ID, Err: err})
			batchErr = err
		}
		if batchErr != nil {
			break
		}
	}

	if onBatch := s.cfg.Hooks.OnBatch; onBatch != nil {
		onBatch(results)
	}
	if batchErr != nil {
		s.onError("Batch", batchErr)
		return results, batchErr
	}
	return results, nil
}

// Get returns id's record, or storeerrors.ErrNotFound if absent.
func (s *Store) Get(id string, raw bool) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.data[id]
	if !ok {
		return nil, storeerrors.NotFound(id)
	}
	return view(record, raw), nil
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok
}

// Size returns the number of stored records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns every stored id in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Values returns every stored record in insertion order.
func (s *Store) Values(raw bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.order))
	for i, id := range s.order {
		out[i] = view(s.data[id], raw)
	}
	return out
}

// Entries returns every (id, record) pair in insertion order.
func (s *Store) Entries(raw bool) []types.RecordEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.RecordEntry, len(s.order))
	for i, id := range s.order {
		out[i] = types.RecordEntry{ID: id, Record: view(s.data[id], raw)}
	}
	return out
}

// ForEach calls fn for every (id, record) pair in insertion order, stopping
// early if fn returns false.
func (s *Store) ForEach(raw bool, fn func(id string, record Record) bool) {
	for _, entry := range s.Entries(raw) {
		if !fn(entry.ID, entry.Record) {
			return
		}
	}
}

// Version returns id's prior stored values, oldest first (spec.md §4.G).
// Returns an empty slice if versioning is disabled or id has no history.
func (s *Store) Version(id string) []Record {
	return s.hist.Get(id)
}

// Stats reports store-wide cardinality.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Size:           len(s.data),
		Descriptors:    len(s.idx.Descriptors()),
		VersionedIDs:   s.hist.IDCount(),
		VersionEntries: s.hist.Count(),
	}
}

// IndexStats reports one descriptor's cardinality.
func (s *Store) IndexStats(descriptor string) IndexStats {
	return IndexStats{
		Descriptor: descriptor,
		KeyCount:   s.idx.KeyCount(descriptor),
		IDCount:    s.idx.IDCount(descriptor),
	}
}

// Reindex rebuilds every declared descriptor from the current primary map,
// fanning the per-descriptor rebuild out across the worker pool. Idempotent
// and safe to call at any time; it exists for callers who mutate records in
// bulk via lower-level means and need the indexes brought back into sync.
func (s *Store) Reindex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	descriptors := s.idx.Descriptors()
	s.idx.DropAll()

	records := make(map[string]types.Record, len(s.data))
	for id, record := range s.data {
		records[id] = record
	}

	g, _ := errgroup.WithContext(ctx)
	for _, descriptor := range descriptors {
		descriptor := descriptor
		done := make(chan struct{})
		if err := s.pool.Submit(func() {
			defer close(done)
			s.idx.IndexExisting(descriptor, records)
		}); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		g.Go(func() error {
			<-done
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	s.runInvariants("Reindex")
	return nil
}

func (s *Store) onError(op string, err error) {
	if hook := s.cfg.Hooks.OnError; hook != nil {
		hook(op, err)
	}
}

// runInvariants is a no-op unless built with -tags debug; see
// invariants_debug.go / invariants_release.go. Always called with s.mu held.
func (s *Store) runInvariants(where string) {
	s.checkInvariants(where)
}
