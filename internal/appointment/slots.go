package appointment

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/availability"
)

type Slot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// SlotGenerator lists bookable starts for a day. It reads without locking; callers
// must re-check at commit time.
type SlotGenerator struct {
	checker *ConflictChecker
	appts   ActiveReader
	step    time.Duration
	now     func() time.Time
}

func NewSlotGenerator(checker *ConflictChecker, appts ActiveReader, step time.Duration, now func() time.Time) *SlotGenerator {
	if step <= 0 {
		step = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &SlotGenerator{checker: checker, appts: appts, step: step, now: now}
}

func (g *SlotGenerator) Generate(ctx context.Context, therapistID uuid.UUID, date availability.Date, durationMinutes int) ([]Slot, error) {
	if durationMinutes <= 0 || durationMinutes > MaxDurationMinutes {
		return nil, ErrInvalidDuration
	}

	st, err := g.checker.Settings(ctx, therapistID)
	if err != nil {
		return nil, err
	}

	now := g.now()
	if date.Before(availability.DateOf(now.In(st.Location))) {
		return nil, ErrDateInPast
	}

	slots := []Slot{}
	if st.Profile == nil {
		return slots, nil
	}
	windows := st.Profile.WindowsFor(date.Weekday())
	if len(windows) == 0 {
		return slots, nil
	}

	dayStart, dayEnd := availability.DayBounds(date, st.Location)
	if st.MaxDaily > 0 {
		n, err := g.appts.CountActiveInRange(ctx, therapistID, dayStart, dayEnd, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if n >= st.MaxDaily {
			return slots, nil
		}
	}

	occ, err := g.checker.Occupancy(ctx, therapistID, st, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	length := time.Duration(durationMinutes) * time.Minute
	for _, w := range windows {
		winStart, winEnd := w.On(date, st.Location)
		for t := winStart; !t.Add(length).After(winEnd); t = t.Add(g.step) {
			if t.Before(now) {
				continue
			}
			candidate := Interval{Start: t, End: t.Add(length)}
			if len(occ.Conflicts(candidate, uuid.Nil)) > 0 {
				continue
			}
			slots = append(slots, Slot{StartTime: candidate.Start, EndTime: candidate.End})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots, nil
}
