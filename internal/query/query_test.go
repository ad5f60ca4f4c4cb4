package query

import (
	"regexp"
	"testing"

	"github.com/indexedstore/store/internal/types"
)

func TestCompileEqualsAnd(t *testing.T) {
	expr := Compile(map[string]interface{}{"status": "active", "tier": "gold"}, LogicalAnd)
	if !expr.Eval(types.Record{"status": "active", "tier": "gold"}) {
		t.Fatalf("expected match")
	}
	if expr.Eval(types.Record{"status": "active", "tier": "silver"}) {
		t.Fatalf("expected no match")
	}
}

func TestCompileOr(t *testing.T) {
	expr := Compile(map[string]interface{}{"status": "active", "tier": "gold"}, LogicalOr)
	if !expr.Eval(types.Record{"status": "active", "tier": "silver"}) {
		t.Fatalf("expected match on first field alone")
	}
	if expr.Eval(types.Record{"status": "retired", "tier": "silver"}) {
		t.Fatalf("expected no match on neither field")
	}
}

func TestCompileInArray(t *testing.T) {
	expr := Compile(map[string]interface{}{"tier": []interface{}{"gold", "platinum"}}, LogicalAnd)
	if !expr.Eval(types.Record{"tier": "gold"}) {
		t.Fatalf("expected match")
	}
	if expr.Eval(types.Record{"tier": "silver"}) {
		t.Fatalf("expected no match")
	}
}

func TestEvalAgainstArrayFieldIsAnyMatch(t *testing.T) {
	expr := Compile(map[string]interface{}{"tags": "urgent"}, LogicalAnd)
	if !expr.Eval(types.Record{"tags": []interface{}{"low", "urgent"}}) {
		t.Fatalf("expected array-field any-match to succeed")
	}
}

func TestCompileNeedleRegex(t *testing.T) {
	needle := CompileNeedle(regexp.MustCompile(`^gold`))
	if !needle("gold|1", "tier") {
		t.Fatalf("expected regex match")
	}
	if needle("silver|1", "tier") {
		t.Fatalf("expected no match")
	}
}

func TestCompareValuesNumeric(t *testing.T) {
	if CompareValues(1.0, 2.0) >= 0 {
		t.Fatalf("expected 1 < 2")
	}
	if CompareValues("b", "a") <= 0 {
		t.Fatalf("expected b > a lexically")
	}
}

func TestSortRecordsByStable(t *testing.T) {
	records := map[string]types.Record{
		"a": {"n": 1.0},
		"b": {"n": 1.0},
		"c": {"n": 0.0},
	}
	ids := []string{"a", "b", "c"}
	SortRecordsBy(ids, records, "n")
	if ids[0] != "c" {
		t.Fatalf("expected c first, got %v", ids)
	}
	if ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("expected stable order among ties, got %v", ids)
	}
}
