// Sort comparison helpers, grounded on the teacher's internal/query/merge.go
// (compareValuesForOrder / toFloatOrder / toStringOrder), adapted from
// comparing encoded WAL rows to comparing decoded record field values
// directly.
package query

import (
	"fmt"
	"sort"

	"github.com/indexedstore/store/internal/types"
)

// CompareValues orders two field values: numerically if both are numbers,
// lexically if both are strings, otherwise by their stringified form. It
// returns -1, 0, or 1.
func CompareValues(a, b interface{}) int {
	if fa, oka := toFloat(a); oka {
		if fb, okb := toFloat(b); okb {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	sa, sb := toDisplayString(a), toDisplayString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func toDisplayString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// SortRecordsBy sorts a slice of (id, record) pairs by a comparator over
// record[field], stable so equal keys keep their relative (insertion)
// order — this is what Sort (as opposed to the index-backed SortBy)
// operates on, when no index exists for the field.
func SortRecordsBy(ids []string, records map[string]types.Record, field string) {
	sort.SliceStable(ids, func(i, j int) bool {
		vi := records[ids[i]][field]
		vj := records[ids[j]][field]
		return CompareValues(vi, vj) < 0
	})
}
