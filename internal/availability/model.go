package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/apperr"
)

const minutesPerDay = 24 * 60

// TimeWindow is a local time-of-day range in HH:MM.
type TimeWindow struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type DaySchedule struct {
	DayOfWeek   int          `json:"dayOfWeek"` // 0 = Sunday
	IsAvailable bool         `json:"isAvailable"`
	TimeSlots   []TimeWindow `json:"timeSlots"`
}

// Profile is a therapist's recurring availability. One per therapist.
type Profile struct {
	TherapistID          uuid.UUID     `json:"therapistId"`
	Timezone             string        `json:"timezone"`
	WeeklySchedule       []DaySchedule `json:"weeklySchedule"`
	BufferTime           int           `json:"bufferTime"`           // minutes
	MaxDailyAppointments int           `json:"maxDailyAppointments"` // 0 = no cap
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

type BlockedTime struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapistId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Window is a resolved time-of-day window in minutes after local midnight.
type Window struct {
	StartMinute int
	EndMinute   int
}

// On anchors the window to a calendar day in loc.
func (w Window) On(d Date, loc *time.Location) (time.Time, time.Time) {
	midnight := d.Midnight(loc)
	start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), w.StartMinute/60, w.StartMinute%60, 0, 0, loc)
	end := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), w.EndMinute/60, w.EndMinute%60, 0, 0, loc)
	return start, end
}

// Date is a calendar day without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DayBounds returns [midnight, next midnight) of d in loc.
func DayBounds(d Date, loc *time.Location) (time.Time, time.Time) {
	return d.Midnight(loc), d.AddDays(1).Midnight(loc)
}

// ParseClock parses HH:MM into minutes after midnight. 24:00 is accepted as an end of day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

// Location resolves the profile timezone, falling back when it is empty.
func (p *Profile) Location(fallback *time.Location) (*time.Location, error) {
	if p.Timezone == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// WindowsFor returns the sorted windows for a weekday, or nil when the day is unavailable.
func (p *Profile) WindowsFor(day time.Weekday) []Window {
	for _, ds := range p.WeeklySchedule {
		if ds.DayOfWeek != int(day) {
			continue
		}
		if !ds.IsAvailable {
			return nil
		}
		out := make([]Window, 0, len(ds.TimeSlots))
		for _, ts := range ds.TimeSlots {
			start, err1 := ParseClock(ts.StartTime)
			end, err2 := ParseClock(ts.EndTime)
			if err1 != nil || err2 != nil || end <= start {
				continue
			}
			out = append(out, Window{StartMinute: start, EndMinute: end})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
		return out
	}
	return nil
}

// Validate checks the profile shape. Missing weekdays are treated as unavailable,
// so the schedule may carry fewer than seven entries but never duplicates.
func (p *Profile) Validate() error {
	if p.TherapistID == uuid.Nil {
		return apperr.Validation("invalid_profile", "therapistId is required")
	}
	if p.BufferTime < 0 {
		return apperr.Validation("invalid_profile", "bufferTime must be >= 0")
	}
	if p.MaxDailyAppointments < 0 {
		return apperr.Validation("invalid_profile", "maxDailyAppointments must be >= 0")
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return apperr.Validation("invalid_timezone", fmt.Sprintf("unknown timezone %q", p.Timezone))
		}
	}
	if len(p.WeeklySchedule) > 7 {
		return apperr.Validation("invalid_profile", "weeklySchedule has more than 7 days")
	}

	seen := make(map[int]bool, 7)
	for _, ds := range p.WeeklySchedule {
		if ds.DayOfWeek < 0 || ds.DayOfWeek > 6 {
			return apperr.Validation("invalid_profile", fmt.Sprintf("dayOfWeek %d out of range 0-6", ds.DayOfWeek))
		}
		if seen[ds.DayOfWeek] {
			return apperr.Validation("invalid_profile", fmt.Sprintf("dayOfWeek %d listed twice", ds.DayOfWeek))
		}
		seen[ds.DayOfWeek] = true

		windows := make([]Window, 0, len(ds.TimeSlots))
		for _, ts := range ds.TimeSlots {
			start, err := ParseClock(ts.StartTime)
			if err != nil {
				return apperr.Validation("invalid_time_window", err.Error())
			}
			end, err := ParseClock(ts.EndTime)
			if err != nil {
				return apperr.Validation("invalid_time_window", err.Error())
			}
			if end <= start || end > minutesPerDay {
				return apperr.Validation("invalid_time_window",
					fmt.Sprintf("window %s-%s must end after it starts", ts.StartTime, ts.EndTime))
			}
			windows = append(windows, Window{StartMinute: start, EndMinute: end})
		}

		sort.Slice(windows, func(i, j int) bool { return windows[i].StartMinute < windows[j].StartMinute })
		for i := 1; i < len(windows); i++ {
			if windows[i].StartMinute < windows[i-1].EndMinute {
				return apperr.Validation("invalid_time_window",
					fmt.Sprintf("windows on day %d overlap", ds.DayOfWeek))
			}
		}
	}
	return nil
}

func (b *BlockedTime) Validate() error {
	if b.TherapistID == uuid.Nil {
		return apperr.Validation("invalid_blocked_time", "therapistId is required")
	}
	if b.StartTime.IsZero() || b.EndTime.IsZero() {
		return apperr.Validation("invalid_blocked_time", "startTime and endTime are required")
	}
	if !b.EndTime.After(b.StartTime) {
		return apperr.Validation("invalid_time_range", "endTime must be after startTime")
	}
	return nil
}
