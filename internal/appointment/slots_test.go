package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/apperr"
	"github.com/hackgods/practice-booking/internal/availability"
)

func starts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.StartTime.Format("15:04"))
	}
	return out
}

func TestSlots_BufferAroundExistingBooking(t *testing.T) {
	f := newFixture(t, 15, 0)
	f.book(t, mon(10, 0), mon(11, 0))

	slots, err := f.svc.Slots(context.Background(), f.therapist, monday, 60)
	require.NoError(t, err)

	got := starts(slots)
	require.NotEmpty(t, got)
	assert.Equal(t, "11:15", got[0], "buffer clears at 11:15")
	assert.Equal(t, "16:00", got[len(got)-1])
	assert.Len(t, got, 20)
	for _, blocked := range []string{"09:00", "09:45", "10:00", "10:30", "11:00"} {
		assert.NotContains(t, got, blocked)
	}
	for _, s := range slots {
		assert.Equal(t, time.Hour, s.EndTime.Sub(s.StartTime))
	}
}

func TestSlots_NoBufferAllowsBackToBack(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.book(t, mon(10, 0), mon(11, 0))

	slots, err := f.svc.Slots(context.Background(), f.therapist, monday, 60)
	require.NoError(t, err)

	got := starts(slots)
	assert.Contains(t, got, "09:00")
	assert.Contains(t, got, "11:00")
	assert.NotContains(t, got, "09:15")
	assert.NotContains(t, got, "10:45")
}

func TestSlots_NeverInThePast(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.clock = mon(12, 5)

	slots, err := f.svc.Slots(context.Background(), f.therapist, monday, 30)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "12:15", starts(slots)[0])
	for _, s := range slots {
		assert.False(t, s.StartTime.Before(f.clock))
	}
}

func TestSlots_PastDateRejected(t *testing.T) {
	f := newFixture(t, 0, 0)

	_, err := f.svc.Slots(context.Background(), f.therapist, availability.Date{Year: 2025, Month: time.December, Day: 8}, 60)
	assert.ErrorIs(t, err, ErrDateInPast)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSlots_DailyCapReached(t *testing.T) {
	f := newFixture(t, 0, 1)
	ctx := context.Background()
	a := f.book(t, mon(10, 0), mon(11, 0))
	_, err := f.svc.Confirm(ctx, f.therapist, a.ID)
	require.NoError(t, err)

	slots, err := f.svc.Slots(ctx, f.therapist, monday, 60)
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}

func TestSlots_MultipleWindowsAndBlocks(t *testing.T) {
	f := newFixture(t, 0, 0)
	wednesday := monday.AddDays(2)
	f.block(t, time.Date(2025, 12, 17, 10, 0, 0, 0, time.UTC), time.Date(2025, 12, 17, 17, 0, 0, 0, time.UTC))

	slots, err := f.svc.Slots(context.Background(), f.therapist, wednesday, 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "17:00", "17:15", "17:30", "17:45", "18:00"}, starts(slots))
}

func TestSlots_EmptyWhenUnavailable(t *testing.T) {
	f := newFixture(t, 0, 0)
	ctx := context.Background()

	slots, err := f.svc.Slots(ctx, f.therapist, monday.AddDays(1), 60) // Tuesday off
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = f.svc.Slots(ctx, uuid.New(), monday, 60) // no profile
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlots_IsReadOnly(t *testing.T) {
	f := newFixture(t, 15, 0)
	f.book(t, mon(10, 0), mon(11, 0))
	events := len(f.repo.Events())

	first, err := f.svc.Slots(context.Background(), f.therapist, monday, 45)
	require.NoError(t, err)
	second, err := f.svc.Slots(context.Background(), f.therapist, monday, 45)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.repo.Events(), events)
}

func TestSlots_InvalidDuration(t *testing.T) {
	f := newFixture(t, 0, 0)
	for _, d := range []int{0, -30, MaxDurationMinutes + 1, 200000000} {
		slots, err := f.svc.Slots(context.Background(), f.therapist, monday, d)
		assert.ErrorIs(t, err, apperr.ErrValidation, "duration %d", d)
		assert.Nil(t, slots)
	}

	_, err := f.svc.Slots(context.Background(), f.therapist, monday, 200000000)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}
