package store

import "testing"

func TestDeepMergeRecursesOnNestedMaps(t *testing.T) {
	old := Record{"meta": map[string]interface{}{"a": 1.0, "b": 2.0}}
	merged := deepMerge(old, Record{"meta": map[string]interface{}{"b": 3.0, "c": 4.0}})
	meta := merged["meta"].(map[string]interface{})
	if meta["a"] != 1.0 || meta["b"] != 3.0 || meta["c"] != 4.0 {
		t.Fatalf("unexpected merged meta: %v", meta)
	}
}

func TestDeepMergeConcatenatesArraysWithoutDedup(t *testing.T) {
	old := Record{"tags": []interface{}{"a", "b"}}
	merged := deepMerge(old, Record{"tags": []interface{}{"b", "c"}})
	tags := merged["tags"].([]interface{})
	want := []interface{}{"a", "b", "b", "c"}
	if len(tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, tags)
		}
	}
}

func TestDeepMergeReplacesMismatchedTypes(t *testing.T) {
	old := Record{"field": []interface{}{"a"}}
	merged := deepMerge(old, Record{"field": "scalar"})
	if merged["field"] != "scalar" {
		t.Fatalf("expected mismatched-type field to be replaced, got %v", merged["field"])
	}
}
