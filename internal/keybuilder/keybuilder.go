// Package keybuilder implements the composite-key builder (spec.md §4.B):
// expanding an index descriptor and a record into the set of flat index
// keys the Cartesian-product expansion rule (spec.md §3) describes.
//
// Field access is a single flat lookup (R[fieldName]); spec.md's descriptor
// grammar only ever names top-level fields, so there is no JSON-pointer-style
// path traversal here, unlike the teacher's internal/docdb/path.go (which
// walks nested paths for PATCH payloads — a different problem this store
// doesn't have).
package keybuilder

import (
	"fmt"
	"strings"

	"github.com/indexedstore/store/internal/types"
)

// Fields splits a descriptor into its component field names using delim.
// A simple descriptor (spec.md §3) yields a single-element slice.
func Fields(descriptor, delim string) []string {
	if descriptor == "" {
		return nil
	}
	return strings.Split(descriptor, delim)
}

// Join re-assembles a descriptor from field names in the given order. Used
// by Find to build the sorted-field-name descriptor (spec.md §4.E).
func Join(fields []string, delim string) string {
	return strings.Join(fields, delim)
}

// ValidateDescriptor rejects a descriptor that can't be expanded: empty, or
// with any empty component field name (spec.md §4.B "malformed descriptor").
func ValidateDescriptor(descriptor, delim string) error {
	if descriptor == "" {
		return fmt.Errorf("empty descriptor")
	}
	for _, f := range Fields(descriptor, delim) {
		if f == "" {
			return fmt.Errorf("descriptor %q has an empty field component", descriptor)
		}
	}
	return nil
}

// valuesOf returns the set of values a record contributes for one field,
// per the array-as-multi-value rule in spec.md §3 rule 1: an array value is
// treated as the set of its elements, any other value (including an absent
// field, stringified as "") as a singleton.
func valuesOf(record types.Record, field string) []interface{} {
	v, ok := record[field]
	if !ok || v == nil {
		// Absent and explicit-null both stringify to "" (spec.md §4.B).
		return []interface{}{nil}
	}
	if arr, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(arr))
		copy(out, arr)
		return out
	}
	return []interface{}{v}
}

// Stringify renders a field value as the string used inside a composite
// key. The caller contract (spec.md §3 rule 3) is that this representation
// never contains the delimiter.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return formatFloat(x)
	case int:
		return fmt.Sprintf("%d", x)
	case int64:
		return fmt.Sprintf("%d", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Expand computes the set of index keys record contributes under
// descriptor, per spec.md §3's Cartesian-product expansion rule. An empty
// array component (spec.md §4.B) collapses the whole product to empty: the
// record contributes no entries for this descriptor.
func Expand(descriptor, delim string, record types.Record) []string {
	fields := Fields(descriptor, delim)
	if len(fields) == 0 {
		return nil
	}

	tuples := [][]string{{}}
	for _, field := range fields {
		values := valuesOf(record, field)
		if len(values) == 0 {
			return nil
		}
		next := make([][]string, 0, len(tuples)*len(values))
		for _, prefix := range tuples {
			for _, v := range values {
				tuple := make([]string, len(prefix)+1)
				copy(tuple, prefix)
				tuple[len(prefix)] = Stringify(v)
				next = append(next, tuple)
			}
		}
		tuples = next
	}

	keys := make([]string, len(tuples))
	for i, tuple := range tuples {
		keys[i] = strings.Join(tuple, delim)
	}
	return keys
}

// ExpandQuery computes the candidate index keys a query object (as opposed
// to a stored record) contributes under descriptor. Field order follows the
// sorted field-name join Find uses, so the caller passes fields explicitly
// rather than relying on map iteration order.
func ExpandQuery(fields []string, delim string, query map[string]interface{}) []string {
	return Expand(Join(fields, delim), delim, types.Record(query))
}
