// Package dates normalizes the localized date strings carriers print on
// tracking pages into absolute timestamps.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	winterOffset = 1 * 60 * 60
	summerOffset = 2 * 60 * 60
	minYear      = 2000
)

var (
	winterZone = time.FixedZone("CET", winterOffset)
	summerZone = time.FixedZone("CEST", summerOffset)
)

const (
	weekdayPart = `(?:maandag|dinsdag|woensdag|donderdag|vrijdag|zaterdag|zondag|monday|tuesday|wednesday|thursday|friday|saturday|sunday|ma|di|wo|do|vr|za|zo|mon|tue|wed|thu|fri|sat|sun)`
	timePart    = `\s*,?\s*(?:om|at|-)?\s*(\d{1,2})[:.](\d{2})`
	monthPart   = `((?:jan|feb|mrt|maa|mar|apr|mei|may|jun|jul|aug|sep|okt|oct|nov|dec)\p{L}*)`
	namedPart   = `(\d{1,2})\s+` + monthPart + `\.?\s+(\d{4})`
)

// layout is one supported date shape. Group indexes are 1-based positions in
// the submatch slice; hour and minute are 0 when the layout has no time.
type layout struct {
	name   string
	re     *regexp.Regexp
	day    int
	month  int
	year   int
	hour   int
	minute int
	named  bool
}

// layouts are tried richest to leanest; the first structural match decides.
var layouts = []layout{
	{name: "weekday_named_time", re: regexp.MustCompile(`\b` + weekdayPart + `\.?,?\s+` + namedPart + timePart), day: 1, month: 2, year: 3, hour: 4, minute: 5, named: true},
	{name: "named_time", re: regexp.MustCompile(`\b` + namedPart + timePart), day: 1, month: 2, year: 3, hour: 4, minute: 5, named: true},
	{name: "iso_time", re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})(?:t|\s+)(\d{1,2}):(\d{2})`), year: 1, month: 2, day: 3, hour: 4, minute: 5},
	{name: "dash_time", re: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})` + timePart), day: 1, month: 2, year: 3, hour: 4, minute: 5},
	{name: "slash_time", re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})` + timePart), day: 1, month: 2, year: 3, hour: 4, minute: 5},
	{name: "named", re: regexp.MustCompile(`\b` + namedPart + `\b`), day: 1, month: 2, year: 3, named: true},
	{name: "dash", re: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`), day: 1, month: 2, year: 3},
	{name: "slash", re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`), day: 1, month: 2, year: 3},
	{name: "iso", re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), year: 1, month: 2, day: 3},
}

var (
	timeOnlyRe = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})(?:\s*(?:uur|u|h))?$`)
	dateTimeRe = regexp.MustCompile(`(?i)\b(?:\d{1,2}\s+(?:jan|feb|mrt|maa|mar|apr|mei|may|jun|jul|aug|sep|okt|oct|nov|dec)\p{L}*\.?\s+\d{4}|\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4})(?:t|\s*,?\s*(?:om|at|-)?\s*)\d{1,2}[:.]\d{2}`)
)

// Parse extracts the first recognizable date in text and returns it as an
// absolute instant. The wall-clock value is interpreted with the seasonal
// offset from Offset rather than a timezone database. Dates are read day
// first, so month-first English text such as "January 15, 2025" is rejected.
func Parse(text string) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, false
	}

	for _, l := range layouts {
		m := l.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		return l.build(m)
	}
	return time.Time{}, false
}

func (l layout) build(m []string) (time.Time, bool) {
	day, err := strconv.Atoi(m[l.day])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[l.year])
	if err != nil {
		return time.Time{}, false
	}

	var month int
	if l.named {
		month = LookupMonth(m[l.month])
	} else if month, err = strconv.Atoi(m[l.month]); err != nil {
		return time.Time{}, false
	}

	hour, minute := 0, 0
	if l.hour > 0 {
		hour, _ = strconv.Atoi(m[l.hour])
		minute, _ = strconv.Atoi(m[l.minute])
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < minYear {
		return time.Time{}, false
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, Zone(time.Month(month), day))
	// time.Date normalizes 31 februari into march; such input is invalid.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// Offset returns the UTC offset in seconds applied to a wall-clock date.
// Summer time runs from 25 March up to 24 October inclusive. The real
// transitions fall on the last Sunday of those months, so dates close to the
// boundary can be off by one hour.
func Offset(month time.Month, day int) int {
	switch {
	case month > time.March && month < time.October:
		return summerOffset
	case month == time.March && day >= 25:
		return summerOffset
	case month == time.October && day < 25:
		return summerOffset
	default:
		return winterOffset
	}
}

// Zone returns the fixed zone matching Offset
func Zone(month time.Month, day int) *time.Location {
	if Offset(month, day) == summerOffset {
		return summerZone
	}
	return winterZone
}

// HasDate reports whether text contains any supported date shape
func HasDate(text string) bool {
	s := strings.ToLower(text)
	for _, l := range layouts {
		if l.re.MatchString(s) {
			return true
		}
	}
	return false
}

// HasDateTime reports whether text contains a date followed by a time
func HasDateTime(text string) bool {
	return dateTimeRe.MatchString(text)
}

// IsTimeOnly reports whether text is a bare time such as "14:30" or "9.05 uur"
func IsTimeOnly(text string) bool {
	return timeOnlyRe.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

// FindDateTimes returns every date+time substring in text, in order of appearance
func FindDateTimes(text string) []string {
	return dateTimeRe.FindAllString(text, -1)
}

// CountDates returns how many supported date shapes occur in text
func CountDates(text string) int {
	return len(anyDateRe.FindAllString(strings.ToLower(text), -1))
}

var anyDateRe = regexp.MustCompile(`\b(?:\d{1,2}\s+(?:jan|feb|mrt|maa|mar|apr|mei|may|jun|jul|aug|sep|okt|oct|nov|dec)\p{L}*\.?\s+\d{4}|\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`)

// FindDate returns the first date substring in text, lowercased, or ""
func FindDate(text string) string {
	return anyDateRe.FindString(strings.ToLower(text))
}
