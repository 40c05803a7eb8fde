package appointment

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/notify"
)

// MemoryRepository implements Repository and ClientDirectory in process memory. Active
// appointments are indexed per therapist for range lookups.
type MemoryRepository struct {
	mu      sync.RWMutex
	appts   map[uuid.UUID]Appointment
	active  map[uuid.UUID]*IntervalIndex // therapist -> active intervals
	clients map[uuid.UUID]Client

	events      []EventLog
	nextEventID int64

	now func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appts:   make(map[uuid.UUID]Appointment),
		active:  make(map[uuid.UUID]*IntervalIndex),
		clients: make(map[uuid.UUID]Client),
		now:     time.Now,
	}
}

func (r *MemoryRepository) index(therapistID uuid.UUID) *IntervalIndex {
	idx, ok := r.active[therapistID]
	if !ok {
		idx = NewIntervalIndex(nil)
		r.active[therapistID] = idx
	}
	return idx
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, therapistID, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appts[id]
	if !ok || a.TherapistID != therapistID {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f ListFilter) ([]Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Appointment
	for _, a := range r.appts {
		if a.TherapistID != f.TherapistID {
			continue
		}
		if f.From != nil && a.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.StartTime.Before(*f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			continue
		}
		if f.ClientID != nil && a.ClientID != *f.ClientID {
			continue
		}
		if f.ServiceType != "" && !strings.EqualFold(a.ServiceType, f.ServiceType) {
			continue
		}
		matched = append(matched, a)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.Sort {
		case SortStartDesc:
			return a.StartTime.After(b.StartTime)
		case SortCreatedDesc:
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.StartTime.Before(b.StartTime)
		}
	})

	total := len(matched)
	offset := (f.Page - 1) * f.Limit
	if offset >= total || offset < 0 {
		return []Appointment{}, total, nil
	}
	end := offset + f.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func containsStatus(list []Status, s Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) ListActiveInRange(_ context.Context, therapistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.active[therapistID]
	if !ok {
		return nil, nil
	}
	hits := idx.Overlapping(Interval{Start: from, End: to}, uuid.Nil)
	out := make([]Appointment, 0, len(hits))
	for _, h := range hits {
		out = append(out, r.appts[h.ID])
	}
	return out, nil
}

func (r *MemoryRepository) CountActiveInRange(_ context.Context, therapistID uuid.UUID, from, to time.Time, exclude uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.active[therapistID]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, h := range idx.Overlapping(Interval{Start: from, End: to}, exclude) {
		if !h.Start.Before(from) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	r.appts[a.ID] = a
	if a.Status.Active() {
		r.index(a.TherapistID).Insert(a.ID, a.Interval())
	}
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.appts[a.ID]
	if !ok || cur.TherapistID != a.TherapistID {
		return nil, ErrAppointmentNotFound
	}

	// status and lifecycle fields only change through TransitionAppointment
	a.Status = cur.Status
	a.CancellationReason, a.CancelledBy = cur.CancellationReason, cur.CancelledBy
	a.ConfirmedAt, a.CompletedAt, a.CancelledAt, a.NoShowAt = cur.ConfirmedAt, cur.CompletedAt, cur.CancelledAt, cur.NoShowAt
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = r.now()

	r.appts[a.ID] = a
	if a.Status.Active() {
		idx := r.index(a.TherapistID)
		idx.Remove(a.ID)
		idx.Insert(a.ID, a.Interval())
	}
	return &a, nil
}

func (r *MemoryRepository) TransitionAppointment(_ context.Context, a Appointment, from Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.appts[a.ID]
	if !ok || cur.TherapistID != a.TherapistID {
		return nil, ErrAppointmentNotFound
	}
	if cur.Status != from {
		return nil, ErrInvalidTransition
	}

	cur.Status = a.Status
	cur.Summary = a.Summary
	cur.CancellationReason, cur.CancelledBy = a.CancellationReason, a.CancelledBy
	cur.ConfirmedAt, cur.CompletedAt, cur.CancelledAt, cur.NoShowAt = a.ConfirmedAt, a.CompletedAt, a.CancelledAt, a.NoShowAt
	cur.UpdatedAt = a.UpdatedAt

	r.appts[cur.ID] = cur
	if !cur.Status.Active() {
		r.index(cur.TherapistID).Remove(cur.ID)
	}
	return &cur, nil
}

func (r *MemoryRepository) DeleteAppointment(_ context.Context, therapistID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.appts[id]
	if !ok || cur.TherapistID != therapistID {
		return ErrAppointmentNotFound
	}
	delete(r.appts, id)
	r.index(therapistID).Remove(id)
	return nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, therapistID uuid.UUID, from, to *time.Time) (map[Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Status]int)
	for _, a := range r.appts {
		if a.TherapistID != therapistID {
			continue
		}
		if from != nil && a.StartTime.Before(*from) {
			continue
		}
		if to != nil && !a.StartTime.Before(*to) {
			continue
		}
		out[a.Status]++
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	ev.ID = r.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventLog(nil), r.events...)
}

// ProcessUnpublished publishes outside the lock; it assumes a single relay per process.
func (r *MemoryRepository) ProcessUnpublished(ctx context.Context, limit int, publish func(context.Context, []notify.Event) error) (int, error) {
	r.mu.RLock()
	var batch []notify.Event
	for _, ev := range r.events {
		if ev.PublishedAt != nil {
			continue
		}
		batch = append(batch, toNotifyEvent(ev))
		if len(batch) == limit {
			break
		}
	}
	r.mu.RUnlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := publish(ctx, batch); err != nil {
		return 0, err
	}

	published := make(map[int64]bool, len(batch))
	for _, ev := range batch {
		published[ev.ID] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for i := range r.events {
		if published[r.events[i].ID] {
			r.events[i].PublishedAt = &now
		}
	}
	return len(batch), nil
}

func toNotifyEvent(ev EventLog) notify.Event {
	out := notify.Event{
		ID:        ev.ID,
		Type:      ev.EventType,
		Payload:   json.RawMessage(ev.Payload),
		CreatedAt: ev.CreatedAt,
	}
	if ev.TherapistID != nil {
		out.TherapistID = ev.TherapistID.String()
	}
	if ev.AppointmentID != nil {
		out.AppointmentID = ev.AppointmentID.String()
	}
	return out
}

func (r *MemoryRepository) GetClient(_ context.Context, therapistID, id uuid.UUID) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok || c.TherapistID != therapistID {
		return nil, ErrClientNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) ResolveClient(_ context.Context, therapistID uuid.UUID, name string, email, phone *string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if email != nil {
		for id, c := range r.clients {
			if c.TherapistID == therapistID && c.Email != nil && strings.EqualFold(*c.Email, *email) {
				if name != "" {
					c.Name = name
				}
				if phone != nil {
					c.Phone = phone
				}
				c.UpdatedAt = now
				r.clients[id] = c
				return &c, nil
			}
		}
	}

	c := Client{
		ID:          uuid.New(),
		TherapistID: therapistID,
		Name:        name,
		Email:       email,
		Phone:       phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.clients[c.ID] = c
	return &c, nil
}

// AddClient registers a client directly. Used by seeding and tests.
func (r *MemoryRepository) AddClient(c Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.clients[c.ID] = c
	return &c
}
