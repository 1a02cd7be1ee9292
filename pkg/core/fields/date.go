package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE TOKENS
// =============================================================================

// Date is a calendar date without time-of-day.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.Year == 0 }

// PivotYear splits two-digit years: >= PivotYear → 19xx, otherwise 20xx.
const PivotYear = 50

var (
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDate   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	monthSlash  = regexp.MustCompile(`\b(\d{1,2})/(\d{4})\b`)
	monthNames  = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)`
	monthDayYr  = regexp.MustCompile(`(?i)\b` + monthNames + `\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	monthYear   = regexp.MustCompile(`(?i)\b` + monthNames + `\.?,?\s+(\d{4}|'?\d{2})\b`)
	monthPrefix = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
	}
)

// ExpandYear applies the two-digit year pivot.
func ExpandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y >= PivotYear {
		return 1900 + y
	}
	return 2000 + y
}

// ParseDate extracts the first date token from raw.
// Recognized forms, in order:
//
//	"2023-11-14"        → 2023-11-14
//	"11/14/2023"        → 2023-11-14
//	"11/14/23"          → 2023-11-14
//	"November 14, 2023" → 2023-11-14
//	"11/2026"           → 2026-11-01
//	"November 2026"     → 2026-11-01
func ParseDate(raw string) (Date, bool) {
	s := strings.TrimSpace(raw)
	if IsBlank(s) {
		return Date{}, false
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := slashDate.FindStringSubmatch(s); m != nil {
		return makeDate(ExpandYear(atoi(m[3])), atoi(m[1]), atoi(m[2]))
	}
	if m := monthDayYr.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[3]), monthNumber(m[1]), atoi(m[2]))
	}
	if m := monthSlash.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[2]), atoi(m[1]), 1)
	}
	if m := monthYear.FindStringSubmatch(s); m != nil {
		return makeDate(ExpandYear(atoi(strings.TrimPrefix(m[2], "'"))), monthNumber(m[1]), 1)
	}
	return Date{}, false
}

// makeDate rejects impossible calendar dates such as 02/30.
func makeDate(year, month, day int) (Date, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2199 {
		return Date{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

func monthNumber(name string) int {
	name = strings.ToLower(name)
	if n, ok := monthPrefix[name]; ok {
		return n
	}
	return monthPrefix[name[:3]]
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
