package store

import (
	"github.com/google/uuid"

	"github.com/indexedstore/store/internal/codec"
	"github.com/indexedstore/store/internal/types"
)

// Record is a JSON-compatible document: the unit the store keys, indexes,
// and returns. Values may be nil, bool, a number, a string, a []interface{}
// (arrays fan out into multiple index keys or multiple match candidates,
// spec.md §3), or a nested map[string]interface{}.
type Record = types.Record

// FrozenRecord is the read-only-by-convention view Get/Find/Search/... and
// friends return when raw is false (spec.md §6 immutable-mode note, §3
// Ownership). It shares Record's shape; the distinct name signals to
// callers that it is a private copy the store has no further interest in
// mutating, not license to treat it as a live view into store state —
// every FrozenRecord returned is already an independent clone (the codec,
// spec.md §4.A, is what actually guarantees no alias escapes).
type FrozenRecord = types.Record

// newID resolves the id for a Set call: explicit id wins, then the
// configured key field, then a generated UUIDv4 (spec.md §3 "Record
// identifier").
func (s *Store) newID(explicit string, record Record) string {
	if explicit != "" {
		return explicit
	}
	if s.cfg.Key != "" {
		if v, ok := record[s.cfg.Key]; ok {
			if idStr := stringifyID(v); idStr != "" {
				return idStr
			}
		}
	}
	return uuid.NewString()
}

// generatedID produces a fresh UUIDv4, used wherever an id must be
// resolved outside of a *Store method (the immutable store variant has no
// s.cfg.Key special-casing shortcut to lean on here).
func generatedID() string {
	return uuid.NewString()
}

func stringifyID(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// view returns a value to hand back to a caller: a fresh clone always (so
// no internal alias ever escapes, per spec.md §3 Ownership), whether or not
// raw was requested. The raw flag only changes which type is returned — the
// isolation guarantee is unconditional.
func view(record Record, raw bool) Record {
	clone := codec.Clone(record)
	if raw {
		return clone
	}
	return FrozenRecord(clone)
}
