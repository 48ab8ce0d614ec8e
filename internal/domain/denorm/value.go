package denorm

import (
	"fmt"
	"reflect"
	"strings"
)

// normalize folds driver-specific scalar types onto a small set so values
// from different row sources compare equal.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// asID returns v as a positive identity.
func asID(v any) (uint64, bool) {
	switch x := normalize(v).(type) {
	case int64:
		if x > 0 {
			return uint64(x), true
		}
	case uint64:
		if x > 0 {
			return x, true
		}
	case uint:
		if x > 0 {
			return uint64(x), true
		}
	}
	return 0, false
}

func sameValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// valueKey renders the item columns of row into a membership key.
func valueKey(row Row, items []boundField) string {
	var b strings.Builder
	for _, f := range items {
		v := normalize(row[f.col])
		fmt.Fprintf(&b, "%T:%v\x1f", v, v)
	}
	return b.String()
}
