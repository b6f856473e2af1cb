package domain

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date form stored on sources.
const DateLayout = "2006-01-02"

var (
	fullDateExpr  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearMonthExpr = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearExpr      = regexp.MustCompile(`^\d{4}$`)
)

// DatePrecision tells how much of a resolved date is real.
type DatePrecision string

const (
	PrecisionDay  DatePrecision = "day"
	PrecisionYear DatePrecision = "year"
)

// ParseCalendarDate accepts YYYY-MM-DD only and rejects impossible dates such as 2023-02-30.
func ParseCalendarDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if !fullDateExpr.MatchString(value) {
		return time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// ParseYear turns a four digit year into January 1st of that year.
func ParseYear(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if !yearExpr.MatchString(value) {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006", value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// NormalizeInferredDate converts an externally inferred date into canonical form.
// YYYY-MM-DD is kept, YYYY-MM gets day 01, YYYY gets 01-01. Anything else is rejected.
func NormalizeInferredDate(value string) (date string, year string, ok bool) {
	value = strings.TrimSpace(value)

	var candidate string
	switch {
	case fullDateExpr.MatchString(value):
		candidate = value
	case yearMonthExpr.MatchString(value):
		candidate = value + "-01"
	case yearExpr.MatchString(value):
		candidate = value + "-01-01"
	default:
		return "", "", false
	}

	if _, valid := ParseCalendarDate(candidate); !valid {
		return "", "", false
	}
	return candidate, candidate[:4], true
}

// lenientDate accepts canonical dates and timestamps, returning the date as written.
// The offset is ignored so 2020-03-04T23:30:00-05:00 stays on March 4th.
func lenientDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if _, ok := ParseCalendarDate(value); ok {
		return value, true
	}
	if len(value) > len(DateLayout) && (value[len(DateLayout)] == 'T' || value[len(DateLayout)] == ' ') {
		if _, ok := ParseCalendarDate(value[:len(DateLayout)]); ok {
			return value[:len(DateLayout)], true
		}
	}
	return "", false
}

// DaysSince counts whole days between then and now, never negative.
func DaysSince(then, now time.Time) int {
	days := int(now.Sub(then).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
