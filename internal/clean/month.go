package clean

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dsmetl/internal/schema"
)

// Layouts tried against free-form month strings, most specific first.
// Every successful parse is truncated to the first day of the month.
var monthLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
	"2006-01",
	"01/2006",
	"1/2006",
	"01-2006",
	"Jan 2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var titler = cases.Title(language.English)

// Excel serial day 0; serials count days from here (with the fictitious
// 1900-02-29 already folded in for post-1900 dates).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Month parses a heterogeneous month cell into a first-of-month UTC date.
// Accepted forms: time.Time values, Excel serial numbers, ISO and common
// date strings, and the abbreviated "Mon-YY"/"Mon-YYYY" form (two-digit
// years below 50 map to 20xx, the rest to 19xx). Unparseable input returns
// nil — downstream null-key filtering excludes the row; nothing is ever
// zero-filled.
func Month(v any) *time.Time {
	if schema.IsNull(v) {
		return nil
	}

	switch t := v.(type) {
	case time.Time:
		m := schema.MonthOf(t)
		return &m
	case float64:
		return serialMonth(t)
	case int:
		return serialMonth(float64(t))
	case int64:
		return serialMonth(float64(t))
	}

	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// A bare number inside a string is still a serial date.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return serialMonth(serial)
	}

	// Month names arrive in any casing; layouts want "Jan".
	titled := titler.String(strings.ToLower(s))

	for _, layout := range monthLayouts {
		if parsed, err := time.Parse(layout, titled); err == nil {
			m := schema.MonthOf(parsed)
			return &m
		}
	}

	return abbrevMonth(titled)
}

// abbrevMonth handles "Jan-25" and "Jan-2025".
func abbrevMonth(s string) *time.Time {
	if len(s) > 8 || !strings.Contains(s, "-") {
		return nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return nil
	}
	year := strings.TrimSpace(parts[1])
	if len(year) == 2 {
		n, err := strconv.Atoi(year)
		if err != nil {
			return nil
		}
		if n < 50 {
			year = "20" + year
		} else {
			year = "19" + year
		}
	}
	parsed, err := time.Parse("Jan 2006", strings.TrimSpace(parts[0])+" "+year)
	if err != nil {
		return nil
	}
	m := schema.MonthOf(parsed)
	return &m
}

func serialMonth(serial float64) *time.Time {
	// Plausible spreadsheet serials only (roughly 1927..2199). The lower
	// bound also keeps bare year numbers like 2025 from being misread as
	// serial dates.
	if serial < 10000 || serial > 109573 {
		return nil
	}
	m := schema.MonthOf(excelEpoch.AddDate(0, 0, int(serial)))
	return &m
}
