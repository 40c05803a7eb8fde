package appointment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/availability"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
)

// monday is 2025-12-15; the default clock sits on the Sunday before.
var monday = availability.Date{Year: 2025, Month: time.December, Day: 15}

type fixture struct {
	svc       *Service
	repo      *MemoryRepository
	avail     *availability.MemoryStore
	therapist uuid.UUID
	client    uuid.UUID
	clock     time.Time
}

func newFixture(t *testing.T, bufferMinutes, maxDaily int) *fixture {
	t.Helper()

	f := &fixture{
		repo:      NewMemoryRepository(),
		avail:     availability.NewMemoryStore(),
		therapist: uuid.New(),
		clock:     time.Date(2025, 12, 14, 8, 0, 0, 0, time.UTC),
	}

	_, err := f.avail.SaveProfile(context.Background(), availability.Profile{
		TherapistID: f.therapist,
		Timezone:    "UTC",
		WeeklySchedule: []availability.DaySchedule{
			{DayOfWeek: 1, IsAvailable: true, TimeSlots: []availability.TimeWindow{{StartTime: "09:00", EndTime: "17:00"}}},
			{DayOfWeek: 2, IsAvailable: false},
			{DayOfWeek: 3, IsAvailable: true, TimeSlots: []availability.TimeWindow{
				{StartTime: "09:00", EndTime: "12:00"},
				{StartTime: "16:00", EndTime: "19:00"},
			}},
		},
		BufferTime:           bufferMinutes,
		MaxDailyAppointments: maxDaily,
	})
	require.NoError(t, err)

	f.client = f.repo.AddClient(Client{TherapistID: f.therapist, Name: "Dana"}).ID

	f.svc = NewService(f.repo, f.repo, f.avail, redisclient.NewLocalLocker(time.Second), zerolog.Nop(), Options{
		SlotStep:             15 * time.Minute,
		DefaultLocation:      time.UTC,
		MaxSeriesOccurrences: 52,
		Now:                  func() time.Time { return f.clock },
	})
	return f
}

// mon returns hh:mm on the fixture Monday in UTC.
func mon(h, m int) time.Time {
	return time.Date(2025, 12, 15, h, m, 0, 0, time.UTC)
}

func (f *fixture) book(t *testing.T, start, end time.Time) *Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateInput{
		TherapistID: f.therapist,
		ClientID:    f.client,
		StartTime:   start,
		EndTime:     end,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) block(t *testing.T, start, end time.Time) {
	t.Helper()
	_, err := f.avail.CreateBlockedTime(context.Background(), availability.BlockedTime{
		TherapistID: f.therapist,
		StartTime:   start,
		EndTime:     end,
		Reason:      "vacation",
	})
	require.NoError(t, err)
}

// mustField returns the raw JSON of one top-level field of an event payload.
func mustField(t *testing.T, payload []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &m))
	v, ok := m[key]
	require.True(t, ok, "payload has no %q", key)
	return string(v)
}
