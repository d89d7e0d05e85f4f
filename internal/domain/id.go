package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ID is the canonical identifier of an individual. The zero value means the
// record had no identifier.
type ID string

// None is the "nothing selected" identifier.
const None ID = ""

// CanonicalID normalizes an identifier from any producer. Numbers and
// numeric strings with an integral value become their integer form, other
// numbers their shortest float form, and everything else the trimmed string.
// It reports false when v carries no identifier.
func CanonicalID(v any) (ID, bool) {
	switch t := v.(type) {
	case nil:
		return None, false
	case string:
		return canonicalString(t)
	case json.Number:
		return canonicalString(t.String())
	case float64:
		return canonicalFloat(t)
	case float32:
		return canonicalFloat(float64(t))
	case int:
		return ID(strconv.Itoa(t)), true
	case int64:
		return ID(strconv.FormatInt(t, 10)), true
	case int32:
		return ID(strconv.FormatInt(int64(t), 10)), true
	case ID:
		return canonicalString(string(t))
	default:
		return None, false
	}
}

func canonicalString(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if id, ok := canonicalFloat(f); ok {
			return id, true
		}
	}
	return ID(s), true
}

func canonicalFloat(f float64) (ID, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return None, false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return ID(strconv.FormatInt(int64(f), 10)), true
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64)), true
}
