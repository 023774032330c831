package httpx

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float decodes a JSON number, a numeric string or null. Anything that
// does not parse is 0, so "missing" and "zero" are the same value.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	*f = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !isBad(v) {
			*f = Float(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err == nil && !isBad(v) {
		*f = Float(v)
	}
	return nil
}

func (f Float) F() float64 { return float64(f) }

// Int64 is Float truncated toward zero, clamped to the int64 range.
func (f Float) Int64() int64 {
	switch {
	case f >= 0x1p63: // float64(math.MaxInt64) округляется до 2^63
		return math.MaxInt64
	case f < -0x1p63:
		return math.MinInt64
	}
	return int64(f)
}

func isBad(v float64) bool { return v != v || v > 1e308 || v < -1e308 }
