package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	storeerrors "github.com/indexedstore/store/internal/errors"
	"github.com/indexedstore/store/internal/keybuilder"
	"github.com/indexedstore/store/internal/query"
	"github.com/indexedstore/store/internal/types"
)

// Find looks up records by exact equality on a declared index (spec.md
// §4.E): match's field set, joined in sorted order with the store's
// delimiter, must name a descriptor the store has declared, or Find
// returns storeerrors.ErrInvalidArgument. A field whose value is an
// array is treated as "any of these values" (array-as-multi-value,
// spec.md §3).
func (s *Store) Find(match map[string]interface{}, raw bool) ([]Record, error) {
	fields := query.FieldsOf(match)
	sort.Strings(fields)
	descriptor := keybuilder.Join(fields, s.cfg.Delimiter)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.idx.Has(descriptor) {
		return nil, storeerrors.InvalidArgument(fmt.Sprintf("no index declared for fields %v", fields))
	}

	keys := keybuilder.ExpandQuery(fields, s.cfg.Delimiter, match)
	ids := s.unionIDs(descriptor, keys)
	return s.materialize(ids, raw), nil
}

// Where evaluates a compiled predicate against every record (spec.md
// §4.E). logical combines the per-field leaves; query.LogicalAnd is used
// when logical is empty. Compiled predicates are cached by match (field
// names, values and logical operator) so a repeated identical Where skips
// recompiling.
//
// The fields named in match must belong to a declared index — the sorted
// join of match's field names must name a descriptor the store has
// declared, exactly as Find requires — or Where returns an empty slice
// with no error (spec.md §4.E, §9 "deliberate safety rail": callers
// cannot silently fall back to an undeclared-field scan).
func (s *Store) Where(match map[string]interface{}, logical query.Logical, raw bool) []Record {
	fields := query.FieldsOf(match)
	sort.Strings(fields)
	descriptor := keybuilder.Join(fields, s.cfg.Delimiter)

	expr := s.compilePredicate(match, logical)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.idx.Has(descriptor) {
		return nil
	}

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		record := s.data[id]
		if expr.Eval(record) {
			out = append(out, view(record, raw))
		}
	}
	return out
}

func (s *Store) compilePredicate(match map[string]interface{}, logical query.Logical) *query.Expr {
	fields := query.FieldsOf(match)
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s=%#v", f, match[f])
	}
	planKey := string(logical) + "|" + strings.Join(parts, ",")
	return s.planCache.GetOrCompile(planKey, func() *query.Expr {
		return query.Compile(match, logical)
	})
}

// Filter evaluates an arbitrary caller-supplied predicate against every
// record, in insertion order (spec.md §4.E). Unlike Where, fn is not
// constrained to the compiled-equality/array/regex shape.
func (s *Store) Filter(raw bool, fn func(id string, record Record) bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		rv := view(s.data[id], raw)
		if fn(id, rv) {
			out = append(out, rv)
		}
	}
	return out
}

// Search matches needle (a scalar, a *regexp.Regexp, or a
// func(key, descriptor string) bool) against index keys directly, rather
// than against record field values (spec.md §4.E) — useful for
// prefix/substring/regex exploration over the index itself. descriptors
// selects which declared descriptors to iterate; with none given, every
// declared descriptor is searched. Matches across descriptors are unioned
// into a single result set.
func (s *Store) Search(needle interface{}, raw bool, descriptors ...string) ([]Record, error) {
	matcher := query.CompileNeedle(needle)

	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := descriptors
	if len(targets) == 0 {
		targets = s.idx.Descriptors()
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, descriptor := range targets {
		matched, err := s.matchDescriptorKeys(descriptor, matcher)
		if err != nil {
			return nil, err
		}
		for _, id := range matched {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return s.materialize(ids, raw), nil
}

// matchDescriptorKeys returns the union of ids under descriptor's keys
// that matcher matches. Must be called with s.mu held (read or write).
func (s *Store) matchDescriptorKeys(descriptor string, matcher query.Needle) ([]string, error) {
	if !s.idx.Has(descriptor) {
		return nil, storeerrors.InvalidArgument(fmt.Sprintf("no index declared for descriptor %q", descriptor))
	}
	var keys []string
	for _, key := range s.idx.Keys(descriptor) {
		if matcher(key, descriptor) {
			keys = append(keys, key)
		}
	}
	return s.unionIDs(descriptor, keys), nil
}

// SortBy returns every record ordered by a declared index's natural key
// order (spec.md §4.E): ascending over the index's keys, and within a key,
// insertion order. This is the index-backed sort; Sort below resorts an
// arbitrary field with no index required.
func (s *Store) SortBy(descriptor string, raw bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.idx.Has(descriptor) {
		return nil, storeerrors.InvalidArgument(fmt.Sprintf("no index declared for descriptor %q", descriptor))
	}

	var ids []string
	for _, key := range s.idx.Keys(descriptor) {
		keyIDs, _ := s.idx.Lookup(descriptor, key)
		ids = append(ids, keyIDs...)
	}
	return s.materialize(ids, raw), nil
}

// Sort returns every record ordered by field's value, ascending unless
// desc is true, stable on ties (insertion order preserved). No declared
// index is required; comparison falls back to numeric, then lexical,
// ordering (internal/query.CompareValues).
func (s *Store) Sort(field string, desc bool, raw bool) []Record {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	records := make(map[string]types.Record, len(s.data))
	for id, r := range s.data {
		records[id] = r
	}
	s.mu.RUnlock()

	if desc {
		sort.SliceStable(ids, func(i, j int) bool {
			return query.CompareValues(records[ids[i]][field], records[ids[j]][field]) > 0
		})
	} else {
		query.SortRecordsBy(ids, records, field)
	}

	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = view(records[id], raw)
	}
	return out
}

// Map applies fn to every record in insertion order and returns the
// collected results.
func (s *Store) Map(raw bool, fn func(id string, record Record) interface{}) []interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]interface{}, len(s.order))
	for i, id := range s.order {
		out[i] = fn(id, view(s.data[id], raw))
	}
	return out
}

// Reduce folds every record, in insertion order, into a single
// accumulated value starting from init.
func (s *Store) Reduce(raw bool, init interface{}, fn func(acc interface{}, id string, record Record) interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc := init
	for _, id := range s.order {
		acc = fn(acc, id, view(s.data[id], raw))
	}
	return acc
}

// Limit materializes a page of records by slicing ids directly from
// registry order — the primary map's deterministic insertion order
// (spec.md §4.E) — starting at offset and taking at most count ids, then
// resolving each to a view. offset beyond the end yields an empty page;
// count <= 0 takes every remaining id from offset onward.
func (s *Store) Limit(offset, count int, raw bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) {
		return []Record{}
	}
	end := len(s.order)
	if count > 0 && offset+count < end {
		end = offset + count
	}

	page := s.order[offset:end]
	out := make([]Record, 0, len(page))
	for _, id := range page {
		out = append(out, view(s.data[id], raw))
	}
	return out
}

// unionIDs collects the deduplicated, first-seen-order union of every id
// indexed under descriptor across keys. Must be called with s.mu held.
func (s *Store) unionIDs(descriptor string, keys []string) []string {
	if len(keys) == 1 {
		ids, _ := s.idx.Lookup(descriptor, keys[0])
		return ids
	}
	seen := make(map[string]struct{})
	var out []string
	for _, key := range keys {
		ids, _ := s.idx.Lookup(descriptor, key)
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// materialize resolves ids to views. Must be called with s.mu held (read
// or write).
func (s *Store) materialize(ids []string, raw bool) []Record {
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.data[id]; ok {
			out = append(out, view(record, raw))
		}
	}
	return out
}

// SearchAny runs Search's per-descriptor matching concurrently across
// several descriptors via the worker pool and returns each descriptor's
// matches keyed by descriptor name, rather than unioned into one set.
// Useful when a caller wants to know which specific declared indexes a
// needle hit, not just the combined membership Search returns.
func (s *Store) SearchAny(ctx context.Context, descriptors []string, needle interface{}, raw bool) (map[string][]Record, error) {
	matcher := query.CompileNeedle(needle)
	results, err := s.scatterGather(ctx, descriptors, func(descriptor string) ([]Record, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		ids, err := s.matchDescriptorKeys(descriptor, matcher)
		if err != nil {
			return nil, err
		}
		return s.materialize(ids, raw), nil
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Record, len(descriptors))
	for i, descriptor := range descriptors {
		out[descriptor] = results[i]
	}
	return out, nil
}

// scatterGather runs fn concurrently over descriptors via the worker pool,
// bounding fan-out to the pool's capacity; used by callers (e.g. a REPL's
// multi-index search) that want to query several descriptors at once
// without hand-rolling goroutine/waitgroup bookkeeping.
func (s *Store) scatterGather(ctx context.Context, descriptors []string, fn func(descriptor string) ([]Record, error)) ([][]Record, error) {
	results := make([][]Record, len(descriptors))
	errs := make([]error, len(descriptors))

	var wg sync.WaitGroup
	for i, descriptor := range descriptors {
		i, descriptor := i, descriptor
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = fn(descriptor)
		})
		if submitErr != nil {
			wg.Done()
			return nil, fmt.Errorf("scatterGather: %w", submitErr)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
