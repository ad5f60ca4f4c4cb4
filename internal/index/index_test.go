package index

import (
	"reflect"
	"testing"

	"github.com/indexedstore/store/internal/types"
)

func TestAddEntriesThenLookup(t *testing.T) {
	m := New("|")
	m.CreateDescriptor("status")

	m.AddEntries("1", types.Record{"status": "active"})
	m.AddEntries("2", types.Record{"status": "active"})
	m.AddEntries("3", types.Record{"status": "retired"})

	ids, ok := m.Lookup("status", "active")
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Fatalf("expected insertion order [1 2], got %v", ids)
	}
}

func TestRemoveEntriesPrunesEmptyKey(t *testing.T) {
	m := New("|")
	m.CreateDescriptor("status")
	m.AddEntries("1", types.Record{"status": "active"})
	m.RemoveEntries("1", types.Record{"status": "active"})

	if _, ok := m.Lookup("status", "active"); ok {
		t.Fatalf("expected key to be pruned once its set is empty")
	}
}

func TestDropAllKeepsDescriptorsDeclared(t *testing.T) {
	m := New("|")
	m.CreateDescriptor("status")
	m.AddEntries("1", types.Record{"status": "active"})
	m.DropAll()

	if !m.Has("status") {
		t.Fatalf("expected descriptor to remain declared after DropAll")
	}
	if m.KeyCount("status") != 0 {
		t.Fatalf("expected no keys after DropAll")
	}
}

func TestReindexAllIsIdempotent(t *testing.T) {
	m := New("|")
	m.CreateDescriptor("status")
	records := map[string]types.Record{
		"1": {"status": "active"},
		"2": {"status": "retired"},
	}
	m.ReindexAll(records)
	first := m.Dump()
	m.ReindexAll(records)
	second := m.Dump()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected reindex to be idempotent: %v != %v", first, second)
	}
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	m := New("|")
	m.CreateDescriptor("status")
	m.AddEntries("1", types.Record{"status": "active"})
	m.AddEntries("2", types.Record{"status": "active"})

	dumped := m.Dump()

	restored := New("|")
	restored.Restore(dumped)

	ids, _ := restored.Lookup("status", "active")
	if !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Fatalf("got %v", ids)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New("|")
	m.CreateDescriptor("status")
	m.AddEntries("1", types.Record{"status": "active"})

	clone := m.Clone()
	clone.AddEntries("2", types.Record{"status": "active"})

	if m.IDCount("status") != 1 {
		t.Fatalf("expected original manager unaffected by clone mutation, got %d ids", m.IDCount("status"))
	}
	if clone.IDCount("status") != 2 {
		t.Fatalf("expected clone to reflect its own mutation, got %d ids", clone.IDCount("status"))
	}
}
