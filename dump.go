package store

import (
	"github.com/indexedstore/store/internal/codec"
	storeerrors "github.com/indexedstore/store/internal/errors"
	"github.com/indexedstore/store/internal/types"
)

// Dump produces a stable, serializable snapshot of one half of the store
// (spec.md §4.F / §6): DumpRecords yields every (id, record) pair in
// insertion order; DumpIndexes yields every declared descriptor's key/id
// data in declaration order, each descriptor's keys in ascending order.
func (s *Store) Dump(kind types.DumpKind) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case types.DumpRecords:
		out := make([]types.RecordEntry, len(s.order))
		for i, id := range s.order {
			out[i] = types.RecordEntry{ID: id, Record: codec.Clone(s.data[id])}
		}
		return out, nil
	case types.DumpIndexes:
		return s.idx.Dump(), nil
	default:
		return nil, storeerrors.InvalidArgument("unknown dump kind")
	}
}

// Override replaces one half of the store's state wholesale (spec.md
// §4.F). Overriding records does not repopulate index data: the prior
// index contents are dropped (descriptors stay declared) but the new
// records are not automatically reindexed, since an Override is meant to
// restore a specific, previously Dump-ed pairing of records and indexes
// together — call Reindex explicitly if only a records dump is being
// restored. Overriding indexes replaces index data outright and does not
// validate it against the current primary map; a caller restoring a
// records dump and an indexes dump together is expected to apply the
// records Override first.
func (s *Store) Override(kind types.DumpKind, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case types.DumpRecords:
		entries, ok := data.([]types.RecordEntry)
		if !ok {
			return storeerrors.InvalidArgument("records override payload must be []types.RecordEntry")
		}
		s.data = make(map[string]types.Record, len(entries))
		s.order = make([]string, 0, len(entries))
		for _, entry := range entries {
			s.data[entry.ID] = codec.Clone(entry.Record)
			s.order = append(s.order, entry.ID)
		}
		s.idx.DropAll()
		s.hist.Clear()
		for _, id := range s.order {
			s.hist.Allocate(id)
		}
		return nil
	case types.DumpIndexes:
		entries, ok := data.([]types.IndexEntry)
		if !ok {
			return storeerrors.InvalidArgument("indexes override payload must be []types.IndexEntry")
		}
		s.idx.Restore(entries)
		return nil
	default:
		return storeerrors.InvalidArgument("unknown dump kind")
	}
}
