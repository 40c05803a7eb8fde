package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/availability"
)

type ConflictKind string

const (
	ConflictAppointment ConflictKind = "appointment"
	ConflictBlocked     ConflictKind = "blocked"
	ConflictDailyCap    ConflictKind = "daily_cap"
)

// Conflict describes one reason a proposed interval cannot be booked.
type Conflict struct {
	Kind          ConflictKind `json:"kind"`
	StartTime     time.Time    `json:"startTime"`
	EndTime       time.Time    `json:"endTime"`
	AppointmentID *uuid.UUID   `json:"appointmentId,omitempty"`
	BlockedTimeID *uuid.UUID   `json:"blockedTimeId,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// ActiveReader is the slice of the repository conflict checking needs.
type ActiveReader interface {
	// ListActiveInRange returns pending/confirmed appointments intersecting [from, to).
	ListActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]Appointment, error)
	// CountActiveInRange counts pending/confirmed appointments starting in [from, to).
	CountActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time, exclude uuid.UUID) (int, error)
}

// Settings are the scheduling parameters in force for one therapist.
type Settings struct {
	Profile  *availability.Profile // nil when the therapist has no profile
	Location *time.Location
	Buffer   time.Duration
	MaxDaily int // <= 0 means no cap
}

type ConflictChecker struct {
	appts         ActiveReader
	avail         availability.Reader
	defaultBuffer time.Duration
	defaultLoc    *time.Location
}

func NewConflictChecker(appts ActiveReader, avail availability.Reader, defaultBufferMinutes int, defaultLoc *time.Location) *ConflictChecker {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &ConflictChecker{
		appts:         appts,
		avail:         avail,
		defaultBuffer: time.Duration(defaultBufferMinutes) * time.Minute,
		defaultLoc:    defaultLoc,
	}
}

// Settings resolves the therapist's profile, falling back to configured defaults when
// there is none.
func (c *ConflictChecker) Settings(ctx context.Context, therapistID uuid.UUID) (Settings, error) {
	p, err := c.avail.Profile(ctx, therapistID)
	if err != nil {
		if errors.Is(err, availability.ErrProfileNotFound) {
			return Settings{Location: c.defaultLoc, Buffer: c.defaultBuffer}, nil
		}
		return Settings{}, fmt.Errorf("load availability profile: %w", err)
	}

	loc, err := p.Location(c.defaultLoc)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Profile:  p,
		Location: loc,
		Buffer:   time.Duration(p.BufferTime) * time.Minute,
		MaxDaily: p.MaxDailyAppointments,
	}, nil
}

// Occupancy loads everything that can conflict with a proposal inside [from, to).
func (c *ConflictChecker) Occupancy(ctx context.Context, therapistID uuid.UUID, st Settings, from, to time.Time) (*Occupancy, error) {
	appts, err := c.appts.ListActiveInRange(ctx, therapistID, from.Add(-st.Buffer), to.Add(st.Buffer))
	if err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}
	blocked, err := c.avail.BlockedIntervals(ctx, therapistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked times: %w", err)
	}

	items := make([]IndexedInterval, 0, len(appts))
	for _, a := range appts {
		items = append(items, IndexedInterval{ID: a.ID, Interval: a.Interval()})
	}
	return &Occupancy{
		buffer:  st.Buffer,
		appts:   NewIntervalIndex(items),
		blocked: blocked,
	}, nil
}

// Check lists the conflicts of [start, end) for therapistID. exclude skips one appointment,
// the one being edited.
func (c *ConflictChecker) Check(ctx context.Context, therapistID uuid.UUID, start, end time.Time, exclude uuid.UUID) ([]Conflict, error) {
	st, err := c.Settings(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	occ, err := c.Occupancy(ctx, therapistID, st, start, end)
	if err != nil {
		return nil, err
	}
	return occ.Conflicts(Interval{Start: start, End: end}, exclude), nil
}

func (c *ConflictChecker) HasConflict(ctx context.Context, therapistID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	conflicts, err := c.Check(ctx, therapistID, start, end, exclude)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// DailyCapConflict reports a daily_cap conflict when the local day of start already holds
// MaxDaily active appointments, not counting exclude.
func (c *ConflictChecker) DailyCapConflict(ctx context.Context, therapistID uuid.UUID, st Settings, start time.Time, exclude uuid.UUID) (*Conflict, error) {
	if st.MaxDaily <= 0 {
		return nil, nil
	}
	dayStart, dayEnd := availability.DayBounds(availability.DateOf(start.In(st.Location)), st.Location)
	n, err := c.appts.CountActiveInRange(ctx, therapistID, dayStart, dayEnd, exclude)
	if err != nil {
		return nil, fmt.Errorf("count daily appointments: %w", err)
	}
	if n < st.MaxDaily {
		return nil, nil
	}
	return &Conflict{
		Kind:      ConflictDailyCap,
		StartTime: dayStart,
		EndTime:   dayEnd,
		Reason:    fmt.Sprintf("%d of %d daily appointments already booked", n, st.MaxDaily),
	}, nil
}

// Occupancy is a point-in-time snapshot of a therapist's calendar. It is not safe for
// concurrent mutation.
type Occupancy struct {
	buffer  time.Duration
	appts   *IntervalIndex
	blocked []availability.BlockedTime
}

// Conflicts applies the booking rule: the proposal widened by the buffer on both sides
// must not intersect an active appointment, and the raw proposal must not intersect a block.
func (o *Occupancy) Conflicts(iv Interval, exclude uuid.UUID) []Conflict {
	var out []Conflict
	for _, hit := range o.appts.Overlapping(iv.Expand(o.buffer), exclude) {
		id := hit.ID
		out = append(out, Conflict{
			Kind:          ConflictAppointment,
			StartTime:     hit.Start,
			EndTime:       hit.End,
			AppointmentID: &id,
		})
	}
	for _, b := range o.blocked {
		if !iv.Intersects(Interval{Start: b.StartTime, End: b.EndTime}) {
			continue
		}
		id := b.ID
		out = append(out, Conflict{
			Kind:          ConflictBlocked,
			StartTime:     b.StartTime,
			EndTime:       b.EndTime,
			BlockedTimeID: &id,
			Reason:        b.Reason,
		})
	}
	return out
}

// Add records a newly committed appointment so later checks against this snapshot see it.
func (o *Occupancy) Add(a Appointment) {
	o.appts.Insert(a.ID, a.Interval())
}

func (o *Occupancy) Remove(id uuid.UUID) {
	o.appts.Remove(id)
}
