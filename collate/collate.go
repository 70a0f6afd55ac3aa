// Package collate provides the fixed total ordering used by every range
// and sort operation in the store. Ordering is raw code-unit comparison
// for document ids and a type-ranked comparison for JSON values; neither
// depends on locale or runtime state.
package collate

import (
	"slices"
	"strings"
)

// CompareIDs orders two document ids by raw code units.
func CompareIDs(a, b string) int {
	return strings.Compare(a, b)
}

// Type ranks for heterogeneous value comparison. Lower sorts first.
const (
	rankNull = iota
	rankFalse
	rankTrue
	rankNumber
	rankString
	rankList
	rankMap
)

func rank(v any) int {
	switch t := v.(type) {
	case nil:
		return rankNull
	case bool:
		if t {
			return rankTrue
		}
		return rankFalse
	case int64, float64:
		return rankNumber
	case string:
		return rankString
	case []any:
		return rankList
	case map[string]any:
		return rankMap
	default:
		return rankMap
	}
}

// Compare orders two JSON-like values. Values of different types order by
// type rank: null < false < true < number < string < array < object.
// Values of the same type order by value, element-wise for arrays and
// sorted-key-wise for objects.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp(ra, rb)
	}
	switch ra {
	case rankNull, rankFalse, rankTrue:
		return 0
	case rankNumber:
		return cmpFloat(asFloat(a), asFloat(b))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankList:
		return compareLists(a.([]any), b.([]any))
	default:
		return compareMaps(a.(map[string]any), b.(map[string]any))
	}
}

func compareLists(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp(len(a), len(b))
}

func compareMaps(a, b map[string]any) int {
	ka, kb := sortedKeys(a), sortedKeys(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := Compare(a[ka[i]], b[kb[i]]); c != 0 {
			return c
		}
	}
	return cmp(len(ka), len(kb))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
