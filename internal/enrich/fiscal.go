package enrich

import (
	"fmt"
	"time"
)

// FinancialYear renders the Indian financial year (April–March) a month
// falls in: April 2025 → "FY2026", January 2026 → "FY2026".
func FinancialYear(m time.Time) string {
	year := m.Year()
	if m.Month() >= time.April {
		year++
	}
	return fmt.Sprintf("FY%d", year)
}

// FinancialQuarter renders the fiscal quarter: Q1 Apr–Jun, Q2 Jul–Sep,
// Q3 Oct–Dec, Q4 Jan–Mar.
func FinancialQuarter(m time.Time) string {
	switch m.Month() {
	case time.April, time.May, time.June:
		return "Q1"
	case time.July, time.August, time.September:
		return "Q2"
	case time.October, time.November, time.December:
		return "Q3"
	default:
		return "Q4"
	}
}
