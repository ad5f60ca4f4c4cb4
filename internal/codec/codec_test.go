package codec

import (
	"testing"

	"github.com/indexedstore/store/internal/types"
)

func TestCloneIsIndependent(t *testing.T) {
	original := types.Record{"name": "ada", "tags": []interface{}{"a", "b"}}
	cloned := Clone(original)

	cloned["name"] = "grace"
	if original["name"] != "ada" {
		t.Fatalf("mutating clone affected original: %v", original)
	}

	tags := cloned["tags"].([]interface{})
	tags[0] = "z"
	originalTags := original["tags"].([]interface{})
	if originalTags[0] != "a" {
		t.Fatalf("mutating cloned nested slice affected original: %v", originalTags)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	record := types.Record{"n": 42.0, "ok": true, "child": map[string]interface{}{"x": 1.0}}
	data, err := Encode(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["n"] != 42.0 || decoded["ok"] != true {
		t.Fatalf("round trip lost fields: %v", decoded)
	}
}

func TestDecodeEmptyIsEmptyRecord(t *testing.T) {
	decoded, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty record, got %v", decoded)
	}
}
