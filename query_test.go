package store

import (
	"context"
	"testing"

	storeerrors "github.com/indexedstore/store/internal/errors"
	"github.com/indexedstore/store/internal/query"
)

func TestFindByDeclaredIndex(t *testing.T) {
	s := newTestStore(t, "status")
	s.Set("1", Record{"status": "active"}, true, true)
	s.Set("2", Record{"status": "retired"}, true, true)
	s.Set("3", Record{"status": "active"}, true, true)

	found, err := s.Find(map[string]interface{}{"status": "active"}, true)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}
}

func TestFindWithoutDeclaredIndexFails(t *testing.T) {
	s := newTestStore(t)
	s.Set("1", Record{"status": "active"}, true, true)

	_, err := s.Find(map[string]interface{}{"status": "active"}, true)
	if storeerrors.Classify(err) != storeerrors.KindInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestWhereEvaluatesFullScanPredicate(t *testing.T) {
	s := newTestStore(t, "status|tier")
	s.Set("1", Record{"status": "active", "tier": "gold"}, true, true)
	s.Set("2", Record{"status": "active", "tier": "silver"}, true, true)

	matches := s.Where(map[string]interface{}{"status": "active", "tier": "gold"}, query.LogicalAnd, true)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestWhereWithoutDeclaredIndexReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	s.Set("1", Record{"status": "active"}, true, true)

	matches := s.Where(map[string]interface{}{"status": "active"}, query.LogicalAnd, true)
	if len(matches) != 0 {
		t.Fatalf("expected no matches without a declared index, got %d", len(matches))
	}
}

func TestWhereArrayMembership(t *testing.T) {
	s := newTestStore(t, "category")
	s.Set("1", Record{"category": "A"}, true, true)
	s.Set("2", Record{"category": "B"}, true, true)
	s.Set("3", Record{"category": "C"}, true, true)
	s.Set("4", Record{"category": "A"}, true, true)

	matches := s.Where(map[string]interface{}{"category": []interface{}{"A", "B"}}, query.LogicalAnd, true)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches (scenario 6, spec.md §8), got %d", len(matches))
	}
}

func TestFilterArbitraryPredicate(t *testing.T) {
	s := newTestStore(t)
	s.Set("1", Record{"n": 1.0}, true, true)
	s.Set("2", Record{"n": 2.0}, true, true)
	s.Set("3", Record{"n": 3.0}, true, true)

	matches := s.Filter(true, func(id string, r Record) bool {
		return r["n"].(float64) >= 2.0
	})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestSortByUsesIndexKeyOrder(t *testing.T) {
	s := newTestStore(t, "tier")
	s.Set("1", Record{"tier": "silver"}, true, true)
	s.Set("2", Record{"tier": "gold"}, true, true)
	s.Set("3", Record{"tier": "bronze"}, true, true)

	sorted, err := s.SortBy("tier", true)
	if err != nil {
		t.Fatalf("sortby: %v", err)
	}
	want := []string{"bronze", "gold", "silver"}
	for i, w := range want {
		if sorted[i]["tier"] != w {
			t.Fatalf("expected ascending key order %v, got %v", want, sorted)
		}
	}
}

func TestSortWithoutIndex(t *testing.T) {
	s := newTestStore(t)
	s.Set("1", Record{"n": 3.0}, true, true)
	s.Set("2", Record{"n": 1.0}, true, true)
	s.Set("3", Record{"n": 2.0}, true, true)

	sorted := s.Sort("n", false, true)
	want := []float64{1.0, 2.0, 3.0}
	for i, w := range want {
		if sorted[i]["n"] != w {
			t.Fatalf("expected ascending %v, got %v", want, sorted)
		}
	}
}

func TestMapReduce(t *testing.T) {
	s := newTestStore(t)
	s.Set("1", Record{"n": 1.0}, true, true)
	s.Set("2", Record{"n": 2.0}, true, true)

	mapped := s.Map(true, func(id string, r Record) interface{} { return r["n"] })
	if len(mapped) != 2 {
		t.Fatalf("expected 2 mapped values, got %d", len(mapped))
	}

	total := s.Reduce(true, 0.0, func(acc interface{}, id string, r Record) interface{} {
		return acc.(float64) + r["n"].(float64)
	})
	if total != 3.0 {
		t.Fatalf("expected sum 3.0, got %v", total)
	}
}

func TestLimitPagesFromRegistryOrder(t *testing.T) {
	s := newTestStore(t)
	s.Set("a", Record{"n": 1.0}, true, true)
	s.Set("b", Record{"n": 2.0}, true, true)
	s.Set("c", Record{"n": 3.0}, true, true)

	page := s.Limit(0, 2, true)
	if len(page) != 2 || page[0]["n"] != 1.0 || page[1]["n"] != 2.0 {
		t.Fatalf("expected first page [1 2], got %v", page)
	}

	next := s.Limit(2, 2, true)
	if len(next) != 1 || next[0]["n"] != 3.0 {
		t.Fatalf("expected second page [3], got %v", next)
	}

	if got := s.Limit(0, 0, true); len(got) != 3 {
		t.Fatalf("expected count<=0 to return every remaining id, got %d", len(got))
	}

	if got := s.Limit(10, 2, true); len(got) != 0 {
		t.Fatalf("expected offset past the end to return no records, got %v", got)
	}
}

func TestSearchMatchesIndexKeysDirectly(t *testing.T) {
	s := newTestStore(t, "email")
	s.Set("1", Record{"email": "ada@example.com"}, true, true)
	s.Set("2", Record{"email": "grace@example.com"}, true, true)

	matches, err := s.Search("ada@example.com", true, "email")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestSearchDefaultsToEveryDeclaredDescriptor(t *testing.T) {
	s := newTestStore(t, "email", "status")
	s.Set("1", Record{"email": "ada@example.com", "status": "active"}, true, true)
	s.Set("2", Record{"email": "grace@example.com", "status": "active"}, true, true)

	matches, err := s.Search("active", true)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected search with no descriptors to union matches across all declared indexes, got %d", len(matches))
	}
}

func TestSearchAnyFansOutAcrossDescriptors(t *testing.T) {
	s := newTestStore(t, "email", "status")
	s.Set("1", Record{"email": "ada@example.com", "status": "active"}, true, true)
	s.Set("2", Record{"email": "grace@example.com", "status": "retired"}, true, true)

	results, err := s.SearchAny(context.Background(), []string{"email", "status"}, "active", true)
	if err != nil {
		t.Fatalf("searchany: %v", err)
	}
	if len(results["status"]) != 1 {
		t.Fatalf("expected 1 status match, got %v", results["status"])
	}
	if len(results["email"]) != 0 {
		t.Fatalf("expected 0 email matches for needle %q, got %v", "active", results["email"])
	}
}
