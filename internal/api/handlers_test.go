package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
)

type testServer struct {
	handler   http.Handler
	repo      *appointment.MemoryRepository
	avail     *availability.MemoryStore
	therapist uuid.UUID
	client    uuid.UUID
}

type stubLimiter struct {
	allow bool
	err   error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) { return l.allow, l.err }

func newTestServer(t *testing.T, limiter Limiter, opts ...func(*RouterConfig)) *testServer {
	t.Helper()

	ts := &testServer{
		repo:      appointment.NewMemoryRepository(),
		avail:     availability.NewMemoryStore(),
		therapist: uuid.New(),
	}
	_, err := ts.avail.SaveProfile(context.Background(), availability.Profile{
		TherapistID: ts.therapist,
		Timezone:    "UTC",
		WeeklySchedule: []availability.DaySchedule{
			{DayOfWeek: 1, IsAvailable: true, TimeSlots: []availability.TimeWindow{{StartTime: "09:00", EndTime: "17:00"}}},
		},
		BufferTime: 15,
	})
	require.NoError(t, err)
	ts.client = ts.repo.AddClient(appointment.Client{TherapistID: ts.therapist, Name: "Robin"}).ID

	clock := time.Date(2025, 12, 14, 8, 0, 0, 0, time.UTC)
	svc := appointment.NewService(ts.repo, ts.repo, ts.avail, redisclient.NewLocalLocker(time.Second), zerolog.Nop(), appointment.Options{
		SlotStep:        15 * time.Minute,
		DefaultLocation: time.UTC,
		Now:             func() time.Time { return clock },
	})

	cfg := RouterConfig{
		Service:      svc,
		Availability: ts.avail,
		Auth:         NewDevAuthenticator(),
		Limiter:      limiter,
		Logger:       zerolog.Nop(),
		Env:          "test",
		Version:      "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ts.handler = NewRouter(cfg)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, role string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Therapist-Id", ts.therapist.String())
		req.Header.Set("X-Role", role)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) booking(start, end string) map[string]any {
	return map[string]any{
		"clientId":  ts.client.String(),
		"startTime": start,
		"endTime":   end,
	}
}

func TestCreateAppointment_OverlapIs409(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[appointment.Appointment](t, rec)
	assert.Equal(t, appointment.StatusPending, created.Status)
	assert.Equal(t, 60, created.Duration)

	rec = ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:30:00Z", "2025-12-15T11:30:00Z"), RoleTherapist)
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decode[struct {
		Error   string                 `json:"error"`
		Details []appointment.Conflict `json:"details"`
	}](t, rec)
	assert.Equal(t, "appointment_conflict", body.Error)
	require.Len(t, body.Details, 1)
	assert.Equal(t, appointment.ConflictAppointment, body.Details[0].Kind)
}

func TestCreateAppointment_ValidationIs400(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T11:00:00Z", "2025-12-15T10:00:00Z"), RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_time_range", decode[ErrorResponse](t, rec).Error)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json"))
	req.Header.Set("X-Therapist-Id", ts.therapist.String())
	raw := httptest.NewRecorder()
	ts.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCreateAppointment_Recurring(t *testing.T) {
	ts := newTestServer(t, nil)

	body := ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z")
	body["isRecurring"] = true
	body["recurringPattern"] = map[string]string{"frequency": "weekly", "endDate": "2025-12-29"}

	rec := ts.do(t, http.MethodPost, "/appointments", body, RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[appointment.SeriesResult](t, rec)
	assert.Len(t, res.Created, 3)
	assert.Empty(t, res.Skipped)

	// the same series again conflicts on every occurrence
	rec = ts.do(t, http.MethodPost, "/appointments/bulk", body, RoleTherapist)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "series_conflict", decode[ErrorResponse](t, rec).Error)
}

func TestAppointments_RequireAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/appointments", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAppointment(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/appointments/not-a-uuid", nil, RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil, RoleTherapist)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "appointment_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestCancelTwiceIs400(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[appointment.Appointment](t, rec).ID.String()

	cancel := CancelRequest{Reason: "client requested", CancelledBy: "client"}
	rec = ts.do(t, http.MethodPost, "/appointments/"+id+"/cancel", cancel, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[appointment.Appointment](t, rec)
	assert.Equal(t, appointment.StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "client requested", *got.CancellationReason)

	rec = ts.do(t, http.MethodPost, "/appointments/"+id+"/cancel", cancel, RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status_transition", decode[ErrorResponse](t, rec).Error)
}

func TestTransitions(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[appointment.Appointment](t, rec).ID.String()

	rec = ts.do(t, http.MethodPost, "/appointments/"+id+"/no-show", nil, RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments/"+id+"/confirm", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments/"+id+"/complete", CompleteRequest{Summary: "follow up in two weeks"}, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[appointment.Appointment](t, rec)
	assert.Equal(t, appointment.StatusCompleted, done.Status)
	assert.Equal(t, "follow up in two weeks", done.Summary)
}

func TestUpdateAppointment(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T13:00:00Z", "2025-12-15T14:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[appointment.Appointment](t, rec).ID.String()

	rec = ts.do(t, http.MethodPut, "/appointments/"+id, map[string]any{"startTime": "2025-12-15T11:00:00Z"}, RoleTherapist)
	assert.Equal(t, http.StatusConflict, rec.Code, "inside the 15 minute buffer")

	rec = ts.do(t, http.MethodPut, "/appointments/"+id, map[string]any{"startTime": "2025-12-15T11:15:00Z", "notes": "moved"}, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[appointment.Appointment](t, rec)
	assert.Equal(t, "moved", got.Notes)
	assert.True(t, got.EndTime.Equal(time.Date(2025, 12, 15, 12, 15, 0, 0, time.UTC)))
}

func TestDeleteRequiresAdmin(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[appointment.Appointment](t, rec).ID.String()

	rec = ts.do(t, http.MethodDelete, "/appointments/"+id, nil, RoleTherapist)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/appointments/"+id, nil, RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/appointments/"+id, nil, RoleAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConflictsAndStats(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, start := range []string{"09:00", "11:00", "14:00"} {
		rec := ts.do(t, http.MethodPost, "/appointments", map[string]any{
			"clientId":  ts.client.String(),
			"startTime": "2025-12-15T" + start + ":00Z",
			"duration":  60,
		}, RoleTherapist)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := ts.do(t, http.MethodGet, "/appointments?startDate=2025-12-15&endDate=2025-12-15&limit=2&sort=-startTime", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[appointment.ListResult](t, rec)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	rec = ts.do(t, http.MethodGet, "/appointments?status=bogus", nil, RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/conflicts?startTime=2025-12-15T10:00:00Z&duration=30", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[appointment.ConflictReport](t, rec)
	assert.True(t, report.HasConflict)

	rec = ts.do(t, http.MethodGet, "/appointments/conflicts?endTime=2025-12-15T10:00:00Z", nil, RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/stats", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[appointment.Stats](t, rec)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Counts[appointment.StatusPending])
}

func TestPublicSlots(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/public/availability/slots?therapistId="+ts.therapist.String()+"&date=2025-12-15&duration=60", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[SlotsResponse](t, rec)
	require.NotEmpty(t, res.Slots)
	assert.True(t, res.Slots[0].StartTime.Equal(time.Date(2025, 12, 15, 11, 15, 0, 0, time.UTC)))

	rec = ts.do(t, http.MethodGet, "/public/availability/slots?therapistId="+ts.therapist.String()+"&date=2025-12-01", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date_in_past", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/public/availability/slots?therapistId=nope&date=2025-12-15", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicBooking(t *testing.T) {
	ts := newTestServer(t, nil)

	body := PublicBookingRequest{
		TherapistID: ts.therapist.String(),
		Name:        "Jordan",
		Email:       ptr("jordan@example.com"),
		StartTime:   time.Date(2025, 12, 15, 14, 0, 0, 0, time.UTC),
		Duration:    60,
	}
	rec := ts.do(t, http.MethodPost, "/public/appointments", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/public/appointments", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	body.StartTime = time.Date(2025, 12, 16, 14, 0, 0, 0, time.UTC)
	rec = ts.do(t, http.MethodPost, "/public/appointments", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "outside_availability", decode[ErrorResponse](t, rec).Error)
}

func TestPublicRateLimit(t *testing.T) {
	ts := newTestServer(t, stubLimiter{allow: false})
	rec := ts.do(t, http.MethodGet, "/public/availability/slots?therapistId="+ts.therapist.String()+"&date=2025-12-15", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	ts = newTestServer(t, stubLimiter{err: errors.New("redis down")})
	rec = ts.do(t, http.MethodGet, "/public/availability/slots?therapistId="+ts.therapist.String()+"&date=2025-12-15", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, "limiter errors fail open")

	// practitioner routes are not limited
	ts = newTestServer(t, stubLimiter{allow: false})
	rec = ts.do(t, http.MethodGet, "/appointments", nil, RoleTherapist)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// oncePerKey admits the first hit for each key.
type oncePerKey struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (l *oncePerKey) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	if l.seen[key] {
		return false, nil
	}
	l.seen[key] = true
	return true, nil
}

func TestRateLimit_ForwardedForIgnoredUnlessTrusted(t *testing.T) {
	slots := func(ts *testServer, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/public/availability/slots?therapistId="+ts.therapist.String()+"&date=2025-12-15", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	ts := newTestServer(t, &oncePerKey{})
	assert.Equal(t, http.StatusOK, slots(ts, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, slots(ts, "10.0.0.2"), "a spoofed header must not buy a fresh bucket")

	ts = newTestServer(t, &oncePerKey{}, func(c *RouterConfig) { c.TrustProxy = true })
	assert.Equal(t, http.StatusOK, slots(ts, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, slots(ts, "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, slots(ts, "10.0.0.1"))
}

func TestAvailabilityRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/availability", AvailabilityRequest{
		Timezone: "Europe/Berlin",
		WeeklySchedule: []availability.DaySchedule{
			{DayOfWeek: 2, IsAvailable: true, TimeSlots: []availability.TimeWindow{{StartTime: "08:00", EndTime: "12:00"}}},
		},
		BufferTime:           10,
		MaxDailyAppointments: 4,
	}, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/availability", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[availability.Profile](t, rec)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
	assert.Equal(t, 4, p.MaxDailyAppointments)

	rec = ts.do(t, http.MethodPut, "/availability", AvailabilityRequest{Timezone: "Mars/Olympus"}, RoleTherapist)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/availability/blocked", BlockedTimeRequest{
		StartTime: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2030, 1, 1, 17, 0, 0, 0, time.UTC),
		Reason:    "conference",
	}, RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	blocked := decode[availability.BlockedTime](t, rec)

	rec = ts.do(t, http.MethodGet, "/availability/blocked?startDate=2030-01-01&endDate=2030-01-31", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[BlockedTimesResponse](t, rec).Items, 1)

	rec = ts.do(t, http.MethodDelete, "/availability/blocked/"+blocked.ID.String(), nil, RoleTherapist)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/availability/blocked/"+blocked.ID.String(), nil, RoleTherapist)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBlockedTime_OverBookingIs409(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.booking("2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"), RoleTherapist)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/availability/blocked", BlockedTimeRequest{
		StartTime: time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC),
		Reason:    "errand",
	}, RoleTherapist)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "appointment_conflict", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/availability/blocked?startDate=2025-12-15&endDate=2025-12-16", nil, RoleTherapist)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[BlockedTimesResponse](t, rec).Items)
}

func TestPutAvailability_BufferOverBookingsIs409(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, b := range [][2]string{
		{"2025-12-15T10:00:00Z", "2025-12-15T11:00:00Z"},
		{"2025-12-15T11:15:00Z", "2025-12-15T12:15:00Z"},
	} {
		rec := ts.do(t, http.MethodPost, "/appointments", ts.booking(b[0], b[1]), RoleTherapist)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	req := AvailabilityRequest{
		Timezone: "UTC",
		WeeklySchedule: []availability.DaySchedule{
			{DayOfWeek: 1, IsAvailable: true, TimeSlots: []availability.TimeWindow{{StartTime: "09:00", EndTime: "17:00"}}},
		},
		BufferTime: 30,
	}
	rec := ts.do(t, http.MethodPut, "/availability", req, RoleTherapist)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "settings_conflict", decode[ErrorResponse](t, rec).Error)

	req.BufferTime = 15
	rec = ts.do(t, http.MethodPut, "/availability", req, RoleTherapist)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDurationParamIsBounded(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/public/availability/slots?therapistId="+ts.therapist.String()+"&date=2025-12-15&duration=200000000", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "invalid_duration", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/appointments/conflicts?startTime=2025-12-15T10:00:00Z&duration=1441", nil, RoleTherapist)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "invalid_duration", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/appointments", map[string]any{
		"clientId":  ts.client.String(),
		"startTime": "2025-12-15T10:00:00Z",
		"duration":  200000000,
	}, RoleTherapist)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "invalid_duration", decode[ErrorResponse](t, rec).Error)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = ts.do(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "disabled", ready.Dependencies["postgres"])
}

func ptr[T any](v T) *T { return &v }
