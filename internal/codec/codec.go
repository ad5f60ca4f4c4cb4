// Package codec implements the value codec (spec.md §4.A): it is the sole
// mechanism by which the store achieves value isolation, encoding a record
// to an internal representation on write and decoding a fresh copy on read
// so a caller can never obtain a mutable alias into store-owned memory.
//
// The strategy is JSON serialize-on-write, parse-on-read (one of the two
// equivalent strategies spec.md §4.A names); it is lossless over the
// JSON-compatible value space the store accepts.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/indexedstore/store/internal/types"
)

// Encode serializes a record to its storage-internal representation.
func Encode(record types.Record) ([]byte, error) {
	if record == nil {
		record = types.Record{}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return data, nil
}

// Decode deserializes stored bytes into a fresh Record. The returned value
// shares no memory with any previously decoded value.
func Decode(data []byte) (types.Record, error) {
	if len(data) == 0 {
		return types.Record{}, nil
	}
	var record types.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	if record == nil {
		record = types.Record{}
	}
	return record, nil
}

// Clone produces a defensive, independent copy of record by round-tripping
// it through the codec. Used whenever a record crosses the store boundary
// (in either direction) and a plain copy, rather than a frozen view, is
// required.
func Clone(record types.Record) types.Record {
	data, err := Encode(record)
	if err != nil {
		// record was already a types.Record built from a prior Decode, so a
		// re-encode failure means the caller handed us a value the codec
		// can't round-trip (e.g. a channel or func field); degrade to a
		// shallow copy rather than losing the record.
		out := make(types.Record, len(record))
		for k, v := range record {
			out[k] = v
		}
		return out
	}
	cloned, err := Decode(data)
	if err != nil {
		out := make(types.Record, len(record))
		for k, v := range record {
			out[k] = v
		}
		return out
	}
	return cloned
}
