package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps profiles and blocks in process memory. Used with STORAGE=memory and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]Profile
	blocked  map[uuid.UUID][]BlockedTime // therapist -> blocks, sorted by start
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[uuid.UUID]Profile),
		blocked:  make(map[uuid.UUID][]BlockedTime),
		now:      time.Now,
	}
}

func (s *MemoryStore) Profile(_ context.Context, therapistID uuid.UUID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[therapistID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	p.WeeklySchedule = cloneSchedule(p.WeeklySchedule)
	return &p, nil
}

func (s *MemoryStore) WeeklyWindows(ctx context.Context, therapistID uuid.UUID, date Date) ([]Window, error) {
	return weeklyWindows(ctx, s, therapistID, date)
}

func (s *MemoryStore) BlockedIntervals(_ context.Context, therapistID uuid.UUID, from, to time.Time) ([]BlockedTime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []BlockedTime
	for _, b := range s.blocked[therapistID] {
		if !b.StartTime.Before(to) {
			break
		}
		if from.Before(b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, p Profile) (*Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.profiles[p.TherapistID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.WeeklySchedule = cloneSchedule(p.WeeklySchedule)
	s.profiles[p.TherapistID] = p

	out := p
	out.WeeklySchedule = cloneSchedule(p.WeeklySchedule)
	return &out, nil
}

func (s *MemoryStore) CreateBlockedTime(_ context.Context, b BlockedTime) (*BlockedTime, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = s.now()

	list := append(s.blocked[b.TherapistID], b)
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	s.blocked[b.TherapistID] = list

	out := b
	return &out, nil
}

func (s *MemoryStore) DeleteBlockedTime(_ context.Context, therapistID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.blocked[therapistID]
	for i, b := range list {
		if b.ID == id {
			s.blocked[therapistID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrBlockedTimeNotFound
}

func cloneSchedule(in []DaySchedule) []DaySchedule {
	if in == nil {
		return nil
	}
	out := make([]DaySchedule, len(in))
	for i, ds := range in {
		out[i] = ds
		out[i].TimeSlots = append([]TimeWindow(nil), ds.TimeSlots...)
	}
	return out
}
