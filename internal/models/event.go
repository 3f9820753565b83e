package models

import (
	"strconv"
	"time"
)

// Event is an opaque record of named diagnostic fields supplied by a
// collector. The engine never mutates an event after ingestion.
type Event map[string]any

// Field returns the raw value for name.
func (e Event) Field(name string) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e[name]
	return v, ok
}

// String returns the field rendered as a string. Non-string scalars are
// formatted; missing fields report ok=false.
func (e Event) String(name string) (string, bool) {
	v, ok := e.Field(name)
	if !ok {
		return "", false
	}
	return RenderScalar(v)
}

// Float returns the field as a float64 when the value is numeric or a
// numeric string. Anything else reports ok=false.
func (e Event) Float(name string) (float64, bool) {
	v, ok := e.Field(name)
	if !ok {
		return 0, false
	}
	return CoerceFloat(v)
}

// Time returns the field as a time.Time, accepting time values and
// RFC3339 strings.
func (e Event) Time(name string) (time.Time, bool) {
	v, ok := e.Field(name)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// RenderScalar formats a scalar value as a string. Non-scalars report
// ok=false.
func RenderScalar(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case time.Time:
		return s.Format(time.RFC3339), true
	default:
		return "", false
	}
}

// CoerceFloat converts numeric values and numeric strings to float64.
func CoerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Severity captures impact levels attached to pattern rules by their authors.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)
