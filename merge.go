package store

import "github.com/indexedstore/store/internal/types"

// deepMerge implements the deep-merge rule (spec.md §4.D): for each field in
// newRecord, if both the old and new values are plain mappings, recurse; if
// both are arrays, concatenate (arrays are never deduplicated); otherwise
// the new value replaces the old. Fields present only in old are kept;
// fields present only in new are added.
func deepMerge(old, incoming types.Record) types.Record {
	if old == nil {
		old = types.Record{}
	}
	out := make(types.Record, len(old)+len(incoming))
	for k, v := range old {
		out[k] = v
	}
	for field, newVal := range incoming {
		oldVal, existed := out[field]
		if !existed {
			out[field] = newVal
			continue
		}
		out[field] = mergeValue(oldVal, newVal)
	}
	return out
}

func mergeValue(oldVal, newVal interface{}) interface{} {
	oldMap, oldIsMap := oldVal.(map[string]interface{})
	newMap, newIsMap := newVal.(map[string]interface{})
	if oldIsMap && newIsMap {
		return deepMergeMaps(oldMap, newMap)
	}

	oldArr, oldIsArr := oldVal.([]interface{})
	newArr, newIsArr := newVal.([]interface{})
	if oldIsArr && newIsArr {
		merged := make([]interface{}, 0, len(oldArr)+len(newArr))
		merged = append(merged, oldArr...)
		merged = append(merged, newArr...)
		return merged
	}

	return newVal
}

func deepMergeMaps(old, incoming map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(old)+len(incoming))
	for k, v := range old {
		out[k] = v
	}
	for field, newVal := range incoming {
		oldVal, existed := out[field]
		if !existed {
			out[field] = newVal
			continue
		}
		out[field] = mergeValue(oldVal, newVal)
	}
	return out
}
