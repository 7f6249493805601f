package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// IsNull reports whether a raw cell value counts as null for pipeline
// purposes: nil, empty/whitespace strings, and the literal spreadsheet
// artifacts "nan"/"null"/"none"/"n/a"/"na" (case-insensitive).
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none", "n/a", "na":
		return true
	}
	return false
}

// CoerceFloat converts a cell to a float64, or nil when the value is null or
// not coercible. Strings tolerate surrounding whitespace, thousands commas
// and a trailing percent sign ("1,234.5", "12%").
func CoerceFloat(v any) *float64 {
	if IsNull(v) {
		return nil
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return &t
	case float32:
		f := float64(t)
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSuffix(s, "%")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
	return nil
}

// CoerceInt converts a cell to an int64 via numeric coercion then integer
// cast, or nil.
func CoerceInt(v any) *int64 {
	f := CoerceFloat(v)
	if f == nil {
		return nil
	}
	i := int64(*f)
	return &i
}

// CoerceString converts a cell to a trimmed string, or nil when null.
// Non-string values go through their default formatting; floats that are
// whole numbers render without a fractional part (a spreadsheet "2024"
// arrives as 2024.0 and must not become "2024.000000").
func CoerceString(v any) *string {
	if IsNull(v) {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			s = strconv.FormatInt(int64(t), 10)
		} else {
			s = strconv.FormatFloat(t, 'f', -1, 64)
		}
	case time.Time:
		s = t.Format("2006-01-02")
	default:
		s = strings.TrimSpace(fmt.Sprint(t))
	}
	if s == "" {
		return nil
	}
	return &s
}

// CoerceDate converts a cell holding an already-normalized month value into
// a first-of-month UTC date, or nil. It accepts time.Time and ISO date
// strings; free-form month parsing lives in the cleaning stage.
func CoerceDate(v any) *time.Time {
	if IsNull(v) {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		m := MonthOf(t)
		return &m
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				m := MonthOf(parsed)
				return &m
			}
		}
	}
	return nil
}
