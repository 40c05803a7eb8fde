package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/practice-booking/internal/apperr"
	"github.com/hackgods/practice-booking/internal/availability"
)

// Occurrence is one concrete candidate of a recurring series.
type Occurrence struct {
	Index     int       `json:"index"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ParseEndDate accepts YYYY-MM-DD or an RFC 3339 timestamp, which is read as a calendar
// day in loc.
func ParseEndDate(s string, loc *time.Location) (availability.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := availability.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return availability.Date{}, fmt.Errorf("endDate %q must be YYYY-MM-DD", s)
	}
	return availability.DateOf(t.In(loc)), nil
}

// Expand produces the candidates of a series starting at [start, end), stepping by the
// pattern's period in loc so wall-clock time survives DST changes. The endDate day is
// inclusive. More than limit candidates is a validation error.
func Expand(start, end time.Time, pattern RecurringPattern, loc *time.Location, limit int) ([]Occurrence, error) {
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	freq, err := ParseFrequency(string(pattern.Frequency))
	if err != nil {
		return nil, apperr.Validation("invalid_recurring_pattern", err.Error())
	}
	endDate, err := ParseEndDate(pattern.EndDate, loc)
	if err != nil {
		return nil, apperr.Validation("invalid_recurring_pattern", err.Error())
	}

	base := start.In(loc)
	if endDate.Before(availability.DateOf(base)) {
		return nil, apperr.Validation("invalid_recurring_pattern", "endDate is before the first occurrence")
	}
	cutoff := endDate.AddDays(1).Midnight(loc)
	length := end.Sub(start)

	var out []Occurrence
	for i := 0; ; i++ {
		s := nthStart(base, freq, i, loc)
		if !s.Before(cutoff) {
			break
		}
		if limit > 0 && len(out) == limit {
			return nil, apperr.Validation("series_too_long",
				fmt.Sprintf("recurring series would exceed %d occurrences", limit))
		}
		out = append(out, Occurrence{Index: i, StartTime: s, EndTime: s.Add(length)})
	}
	return out, nil
}

// nthStart computes each start from the base rather than from the previous start, so a
// monthly series on the 31st clamps to short months without drifting.
func nthStart(base time.Time, freq Frequency, n int, loc *time.Location) time.Time {
	y, m, d := base.Date()
	hh, mm, ss := base.Clock()
	ns := base.Nanosecond()

	switch freq {
	case FrequencyWeekly:
		return time.Date(y, m, d+7*n, hh, mm, ss, ns, loc)
	case FrequencyBiweekly:
		return time.Date(y, m, d+14*n, hh, mm, ss, ns, loc)
	case FrequencyMonthly:
		first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, loc)
		if last := daysIn(first.Year(), first.Month()); d > last {
			d = last
		}
		return time.Date(first.Year(), first.Month(), d, hh, mm, ss, ns, loc)
	}
	panic("unreachable: frequency validated by ParseFrequency")
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
