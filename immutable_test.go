package store

import (
	"testing"

	"github.com/indexedstore/store/internal/config"
	"github.com/indexedstore/store/internal/types"
)

func newTestImmutable(t *testing.T, index ...string) *ImmutableStore {
	t.Helper()
	s := NewImmutable(&config.Config{Delimiter: "|", Index: index})
	t.Cleanup(s.Close)
	return s
}

func TestImmutableSetProducesNewVersionWithoutMutatingPrior(t *testing.T) {
	s := newTestImmutable(t)

	_, v1, err := s.Set("1", Record{"n": 1.0}, true, true)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	_, v2, err := s.Set("1", Record{"n": 2.0}, true, true)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if v2 != v1+1 {
		t.Fatalf("expected version to increment, got %d then %d", v1, v2)
	}

	old, ok := s.At(v1)
	if !ok {
		t.Fatalf("expected old version to still be retained")
	}
	oldRecord, err := old.Get("1", true)
	if err != nil {
		t.Fatalf("get from old snapshot: %v", err)
	}
	if oldRecord["n"] != 1.0 {
		t.Fatalf("expected old snapshot to keep its original value, got %v", oldRecord)
	}

	current, _ := s.Get("1", true)
	if current["n"] != 2.0 {
		t.Fatalf("expected current generation to reflect the latest write, got %v", current)
	}
}

func TestImmutableDelProducesNewVersion(t *testing.T) {
	s := newTestImmutable(t)
	_, v1, _ := s.Set("1", Record{"n": 1.0}, true, true)

	v2, err := s.Del("1")
	if err != nil {
		t.Fatalf("del: %v", err)
	}
	if v2 != v1+1 {
		t.Fatalf("expected version increment on delete")
	}

	old, _ := s.At(v1)
	if !old.Has("1") {
		t.Fatalf("expected prior snapshot to still have the deleted record")
	}
	if s.Version() != v2 {
		t.Fatalf("expected current version to be the post-delete version")
	}
}

func TestImmutableForgetDropsRetention(t *testing.T) {
	s := newTestImmutable(t)
	_, v1, _ := s.Set("1", Record{"n": 1.0}, true, true)
	s.Set("1", Record{"n": 2.0}, true, true)

	s.Forget(v1)
	if _, ok := s.At(v1); ok {
		t.Fatalf("expected forgotten version to no longer be retrievable")
	}
}

func TestRestoreFromDumpRebuildsIndexesWhenNoneGiven(t *testing.T) {
	s := New(&config.Config{Delimiter: "|", Index: []string{"status"}})
	t.Cleanup(s.Close)
	s.Set("1", Record{"status": "active"}, true, true)
	dumped, _ := s.Dump(types.DumpRecords)
	records := dumped.([]types.RecordEntry)

	restored := RestoreFromDump(&config.Config{Delimiter: "|", Index: []string{"status"}}, records, nil)
	t.Cleanup(restored.Close)

	if restored.current.idx.IDCount("status") != 1 {
		t.Fatalf("expected rebuilt index to reflect restored record")
	}
}
