package appointment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hackgods/practice-booking/internal/availability"
)

// settingsHorizon bounds how far ahead SaveProfile looks for bookings that new
// settings would invalidate.
const settingsHorizon = 10 * 365 * 24 * time.Hour

// CreateBlockedTime blocks off part of the calendar. A block may not cover an active
// appointment; that appointment has to be moved or cancelled first.
func (s *Service) CreateBlockedTime(ctx context.Context, b availability.BlockedTime) (_ *availability.BlockedTime, err error) {
	ctx, span := s.startSpan(ctx, "appointment.CreateBlockedTime", b.TherapistID)
	defer func() { endSpan(span, err) }()

	if err := b.Validate(); err != nil {
		return nil, err
	}

	var created *availability.BlockedTime
	err = s.withTherapistLock(ctx, b.TherapistID, func(ctx context.Context) error {
		active, err := s.repo.ListActiveInRange(ctx, b.TherapistID, b.StartTime, b.EndTime)
		if err != nil {
			return fmt.Errorf("list active appointments: %w", err)
		}

		block := Interval{Start: b.StartTime, End: b.EndTime}
		var conflicts []Conflict
		for _, a := range active {
			if !a.Interval().Intersects(block) {
				continue
			}
			id := a.ID
			conflicts = append(conflicts, Conflict{
				Kind:          ConflictAppointment,
				StartTime:     a.StartTime,
				EndTime:       a.EndTime,
				AppointmentID: &id,
			})
		}
		if len(conflicts) > 0 {
			return ErrOverlap.WithDetails(conflicts)
		}

		created, err = s.avail.CreateBlockedTime(ctx, b)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("therapist_id", b.TherapistID.String()).
		Str("blocked_time_id", created.ID.String()).
		Time("start", created.StartTime).
		Time("end", created.EndTime).
		Msg("blocked time created")
	return created, nil
}

// SaveProfile replaces the therapist's availability profile. A buffer or daily cap
// that upcoming active appointments would already break is rejected, with those
// appointments and days as details.
func (s *Service) SaveProfile(ctx context.Context, p availability.Profile) (_ *availability.Profile, err error) {
	ctx, span := s.startSpan(ctx, "appointment.SaveProfile", p.TherapistID)
	defer func() { endSpan(span, err) }()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	loc, err := p.Location(s.opts.DefaultLocation)
	if err != nil {
		return nil, err
	}

	var saved *availability.Profile
	err = s.withTherapistLock(ctx, p.TherapistID, func(ctx context.Context) error {
		from, _ := availability.DayBounds(availability.DateOf(s.opts.Now().In(loc)), loc)
		active, err := s.repo.ListActiveInRange(ctx, p.TherapistID, from, from.Add(settingsHorizon))
		if err != nil {
			return fmt.Errorf("list active appointments: %w", err)
		}
		if conflicts := settingsConflicts(active, p, loc); len(conflicts) > 0 {
			return ErrSettingsConflict.WithDetails(conflicts)
		}

		saved, err = s.avail.SaveProfile(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("therapist_id", p.TherapistID.String()).
		Int("buffer_minutes", saved.BufferTime).
		Int("max_daily", saved.MaxDailyAppointments).
		Msg("availability profile saved")
	return saved, nil
}

// settingsConflicts lists the appointments that sit closer together than the new
// buffer and the local days holding more appointments than the new cap.
func settingsConflicts(active []Appointment, p availability.Profile, loc *time.Location) []Conflict {
	sort.Slice(active, func(i, j int) bool { return active[i].StartTime.Before(active[j].StartTime) })

	var out []Conflict
	if buffer := time.Duration(p.BufferTime) * time.Minute; buffer > 0 {
		var latestEnd time.Time
		for i, a := range active {
			if i > 0 && a.StartTime.Before(latestEnd.Add(buffer)) {
				id := a.ID
				out = append(out, Conflict{
					Kind:          ConflictAppointment,
					StartTime:     a.StartTime,
					EndTime:       a.EndTime,
					AppointmentID: &id,
					Reason:        fmt.Sprintf("starts within %d minutes of the previous appointment", p.BufferTime),
				})
			}
			if a.EndTime.After(latestEnd) {
				latestEnd = a.EndTime
			}
		}
	}

	if p.MaxDailyAppointments > 0 {
		perDay := make(map[availability.Date]int)
		var days []availability.Date
		for _, a := range active {
			d := availability.DateOf(a.StartTime.In(loc))
			if perDay[d] == 0 {
				days = append(days, d)
			}
			perDay[d]++
		}
		for _, d := range days {
			n := perDay[d]
			if n <= p.MaxDailyAppointments {
				continue
			}
			dayStart, dayEnd := availability.DayBounds(d, loc)
			out = append(out, Conflict{
				Kind:      ConflictDailyCap,
				StartTime: dayStart,
				EndTime:   dayEnd,
				Reason:    fmt.Sprintf("%d active appointments, cap would be %d", n, p.MaxDailyAppointments),
			})
		}
	}
	return out
}
