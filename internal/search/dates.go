package search

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// DatePrefs resolves ambiguous numeric dates such as 03/04/05.
type DatePrefs struct {
	DayFirst  bool
	YearFirst bool
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
}

var numericDateRe = regexp.MustCompile(`^(\d{1,4})[/.-](\d{1,2})[/.-](\d{1,4})$`)

// ParseDate parses s as ISO-8601 first, then as a numeric date ordered by
// prefs, then with a fuzzy parser. The result is in UTC.
func ParseDate(s string, prefs DatePrefs) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		if t, ok := numericDate(m[1], m[2], m[3], prefs); ok {
			return t, nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(!prefs.DayFirst))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cannot parse date %q", ErrTypeMismatch, s)
	}
	return t.UTC(), nil
}

// numericDate orders three numeric fields. A four-digit field is always the
// year; otherwise prefs decide, defaulting to month/day/year.
func numericDate(a, b, c string, prefs DatePrefs) (time.Time, bool) {
	var ys, ms, ds string
	switch {
	case len(a) == 4:
		ys, ms, ds = a, b, c
	case len(c) == 4:
		ys = c
		if prefs.DayFirst {
			ds, ms = a, b
		} else {
			ms, ds = a, b
		}
	case prefs.YearFirst:
		ys, ms, ds = a, b, c
	case prefs.DayFirst:
		ds, ms, ys = a, b, c
	default:
		ms, ds, ys = a, b, c
	}
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if len(ys) <= 2 {
		y += 2000
		if y > time.Now().Year()+10 {
			y -= 100
		}
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
