package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/apperr"
	"github.com/hackgods/practice-booking/internal/availability"
)

func conflictDetails(t *testing.T, err error) []Conflict {
	t.Helper()
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	conflicts, ok := ae.Details.([]Conflict)
	require.True(t, ok)
	return conflicts
}

func TestCreateBlockedTime_RejectsActiveAppointment(t *testing.T) {
	f := newFixture(t, 15, 0)
	a := f.book(t, mon(10, 0), mon(11, 0))

	_, err := f.svc.CreateBlockedTime(context.Background(), availability.BlockedTime{
		TherapistID: f.therapist,
		StartTime:   mon(9, 0),
		EndTime:     mon(12, 0),
		Reason:      "dentist",
	})
	require.ErrorIs(t, err, ErrOverlap)
	conflicts := conflictDetails(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictAppointment, conflicts[0].Kind)
	assert.Equal(t, a.ID, *conflicts[0].AppointmentID)

	blocks, err := f.avail.BlockedIntervals(context.Background(), f.therapist, mon(0, 0), mon(23, 0))
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestCreateBlockedTime_IgnoresBufferAndInactive(t *testing.T) {
	f := newFixture(t, 15, 0)
	f.book(t, mon(10, 0), mon(11, 0))
	cancelled := f.book(t, mon(13, 0), mon(14, 0))
	_, err := f.svc.Cancel(context.Background(), f.therapist, cancelled.ID, "", "therapist")
	require.NoError(t, err)

	// Touching the appointment inside its buffer is allowed; blocks compare raw intervals.
	b, err := f.svc.CreateBlockedTime(context.Background(), availability.BlockedTime{
		TherapistID: f.therapist,
		StartTime:   mon(11, 0),
		EndTime:     mon(11, 10),
	})
	require.NoError(t, err)
	assert.True(t, b.StartTime.Equal(mon(11, 0)))

	_, err = f.svc.CreateBlockedTime(context.Background(), availability.BlockedTime{
		TherapistID: f.therapist,
		StartTime:   mon(12, 30),
		EndTime:     mon(14, 30),
	})
	require.NoError(t, err)
}

func TestCreateBlockedTime_Validation(t *testing.T) {
	f := newFixture(t, 0, 0)
	_, err := f.svc.CreateBlockedTime(context.Background(), availability.BlockedTime{
		TherapistID: f.therapist,
		StartTime:   mon(12, 0),
		EndTime:     mon(11, 0),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSaveProfile_RejectsBufferBreakingBookings(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.book(t, mon(10, 0), mon(11, 0))
	second := f.book(t, mon(11, 0), mon(12, 0))

	p, err := f.avail.Profile(context.Background(), f.therapist)
	require.NoError(t, err)

	raised := *p
	raised.BufferTime = 15
	_, err = f.svc.SaveProfile(context.Background(), raised)
	require.ErrorIs(t, err, ErrSettingsConflict)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	conflicts := conflictDetails(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictAppointment, conflicts[0].Kind)
	assert.Equal(t, second.ID, *conflicts[0].AppointmentID)

	stored, err := f.avail.Profile(context.Background(), f.therapist)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.BufferTime)

	// Cancelling the neighbour frees the change.
	_, err = f.svc.Cancel(context.Background(), f.therapist, second.ID, "", "therapist")
	require.NoError(t, err)
	saved, err := f.svc.SaveProfile(context.Background(), raised)
	require.NoError(t, err)
	assert.Equal(t, 15, saved.BufferTime)
}

func TestSaveProfile_RejectsCapBelowBookedDay(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.book(t, mon(9, 0), mon(10, 0))
	f.book(t, mon(10, 0), mon(11, 0))
	f.book(t, mon(14, 0), mon(15, 0))

	p, err := f.avail.Profile(context.Background(), f.therapist)
	require.NoError(t, err)

	capped := *p
	capped.MaxDailyAppointments = 2
	_, err = f.svc.SaveProfile(context.Background(), capped)
	require.ErrorIs(t, err, ErrSettingsConflict)
	conflicts := conflictDetails(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictDailyCap, conflicts[0].Kind)
	assert.True(t, conflicts[0].StartTime.Equal(mon(0, 0)))

	capped.MaxDailyAppointments = 3
	saved, err := f.svc.SaveProfile(context.Background(), capped)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.MaxDailyAppointments)
}

func TestSaveProfile_PastBookingsDoNotCount(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.book(t, mon(10, 0), mon(11, 0))
	f.book(t, mon(11, 0), mon(12, 0))
	f.clock = mon(0, 0).Add(7 * 24 * time.Hour)

	p, err := f.avail.Profile(context.Background(), f.therapist)
	require.NoError(t, err)
	p.BufferTime = 30
	p.MaxDailyAppointments = 1
	_, err = f.svc.SaveProfile(context.Background(), *p)
	require.NoError(t, err)
}

func TestSaveProfile_Validation(t *testing.T) {
	f := newFixture(t, 0, 0)
	_, err := f.svc.SaveProfile(context.Background(), availability.Profile{
		TherapistID: f.therapist,
		Timezone:    "Mars/Olympus",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
