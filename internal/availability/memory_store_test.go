package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/apperr"
)

func TestMemoryStore_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := mondayProfile()

	_, err := s.Profile(ctx, p.TherapistID)
	require.ErrorIs(t, err, ErrProfileNotFound)

	saved, err := s.SaveProfile(ctx, p)
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := s.Profile(ctx, p.TherapistID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.BufferTime)

	// mutating the returned copy must not leak into the store
	got.WeeklySchedule[0].TimeSlots[0].StartTime = "00:00"
	again, err := s.Profile(ctx, p.TherapistID)
	require.NoError(t, err)
	assert.Equal(t, "17:00", again.WeeklySchedule[0].TimeSlots[0].StartTime)

	monday := Date{Year: 2025, Month: time.December, Day: 15}
	windows, err := s.WeeklyWindows(ctx, p.TherapistID, monday)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestMemoryStore_SaveProfileValidates(t *testing.T) {
	s := NewMemoryStore()
	p := mondayProfile()
	p.BufferTime = -5

	_, err := s.SaveProfile(context.Background(), p)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMemoryStore_BlockedIntervals(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	therapist := uuid.New()
	base := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)

	for _, h := range []int{14, 9, 11} {
		_, err := s.CreateBlockedTime(ctx, BlockedTime{
			TherapistID: therapist,
			StartTime:   base.Add(time.Duration(h) * time.Hour),
			EndTime:     base.Add(time.Duration(h+1) * time.Hour),
			Reason:      "block",
		})
		require.NoError(t, err)
	}

	got, err := s.BlockedIntervals(ctx, therapist, base.Add(10*time.Hour), base.Add(14*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1, "09-10 touches the range start, 14-15 touches its end")
	assert.Equal(t, 11, got[0].StartTime.Hour())

	all, err := s.BlockedIntervals(ctx, therapist, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 9, all[0].StartTime.Hour())

	require.NoError(t, s.DeleteBlockedTime(ctx, therapist, all[0].ID))
	assert.ErrorIs(t, s.DeleteBlockedTime(ctx, therapist, all[0].ID), ErrBlockedTimeNotFound)

	_, err = s.CreateBlockedTime(ctx, BlockedTime{TherapistID: therapist, StartTime: base, EndTime: base})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
