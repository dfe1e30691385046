package settlement

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Period is one calendar month in the report time zone.
type Period struct {
	Label string
	Start time.Time // first instant of the month
	End   time.Time // last millisecond of the month
}

// ResolvePeriod parses "YYYY-MM". Anything else, including an out-of-range month, falls
// back to the month containing now. It never fails.
func ResolvePeriod(raw string, now time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.Local
	}
	base := now.In(loc)
	year, month := base.Year(), base.Month()

	raw = strings.TrimSpace(raw)
	if periodPattern.MatchString(raw) {
		y, _ := strconv.Atoi(raw[:4])
		m, _ := strconv.Atoi(raw[5:])
		if m >= 1 && m <= 12 {
			year, month = y, time.Month(m)
		}
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{
		Label: MonthKey(start, loc),
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Millisecond),
	}
}

// MonthKey formats t as "YYYY-MM" in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01")
}

// isoTime matches the millisecond UTC timestamps the dashboard already consumes.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
