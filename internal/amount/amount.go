// Package amount coerces loosely typed third-party JSON values into finite
// float64 amounts.
//
// Provider billing APIs disagree on how money is encoded: plain numbers,
// decimal strings, nested {"value": ...} objects, or nothing at all. Every
// function here is total: it never panics and never returns NaN or ±Inf.
package amount

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// DefaultCurrency is used when a provider does not report one.
const DefaultCurrency = "USD"

// ExtractAmount converts v to a finite float64.
//
// Numbers are returned as-is when finite, strings are parsed as floats, maps
// carrying a "value" key are unwrapped recursively, and everything else
// (nil, slices, other objects, unparsable or non-finite input) yields 0.
func ExtractAmount(v any) float64 {
	switch x := v.(type) {
	case float64:
		return Finite(x)
	case float32:
		return Finite(float64(x))
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case uintptr:
		return float64(x)
	case json.Number:
		return parse(x.String())
	case string:
		return parse(x)
	case map[string]any:
		if inner, ok := x["value"]; ok {
			return ExtractAmount(inner)
		}
		return 0
	default:
		return 0
	}
}

func parse(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return Finite(f)
}

// Finite maps NaN and ±Inf to 0.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// SumAmounts adds ExtractAmount of field across every map element of
// records. Non-map elements and missing fields contribute 0. The field is
// matched under its given spelling and its snake_case and camelCase variants.
func SumAmounts(records any, field string) float64 {
	var sum float64
	for _, m := range Objects(records) {
		sum += ExtractAmount(Field(m, field))
	}
	return Finite(sum)
}

// Objects returns the map elements of a decoded JSON array, skipping
// anything else. Non-array input yields nil.
func Objects(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, el := range x {
			if m, ok := el.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// Object returns v as a JSON object, or nil.
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// Field looks name up in m, falling back to its snake_case and camelCase
// spellings. It returns nil when none is present.
func Field(m map[string]any, name string) any {
	if m == nil {
		return nil
	}
	if v, ok := m[name]; ok {
		return v
	}
	if v, ok := m[SnakeCase(name)]; ok {
		return v
	}
	if v, ok := m[CamelCase(name)]; ok {
		return v
	}
	return nil
}

// Path walks nested objects, e.g. Path(order, "attributes", "total").
func Path(v any, keys ...string) any {
	for _, k := range keys {
		m := Object(v)
		if m == nil {
			return nil
		}
		v = Field(m, k)
	}
	return v
}

// String returns v when it is a string, or "".
func String(v any) string {
	s, _ := v.(string)
	return s
}

// SnakeCase converts amountPaid to amount_paid.
func SnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CamelCase converts amount_paid to amountPaid.
func CamelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// MinorToMajor converts minor currency units (cents) to major units.
func MinorToMajor(minor float64) float64 {
	return Finite(minor / 100)
}

// Percentage returns current/limit*100 clamped to [0, 100], or 0 when limit
// is not positive.
func Percentage(current, limit float64) float64 {
	if !(limit > 0) {
		return 0
	}
	p := Finite(current / limit * 100)
	return math.Max(0, math.Min(100, p))
}

// Currency normalises an ISO-4217 code to upper case, defaulting to USD.
func Currency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
