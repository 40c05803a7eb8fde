package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/apperr"
)

var (
	ErrProfileNotFound     = apperr.NotFound("profile_not_found", "availability profile not found")
	ErrBlockedTimeNotFound = apperr.NotFound("blocked_time_not_found", "blocked time not found")
)

// Reader is the read side used by conflict checking and slot generation.
type Reader interface {
	Profile(ctx context.Context, therapistID uuid.UUID) (*Profile, error)
	WeeklyWindows(ctx context.Context, therapistID uuid.UUID, date Date) ([]Window, error)
	// BlockedIntervals returns blocks intersecting [from, to), ordered by start.
	BlockedIntervals(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]BlockedTime, error)
}

// Store adds the practitioner-facing write side.
type Store interface {
	Reader
	SaveProfile(ctx context.Context, p Profile) (*Profile, error)
	CreateBlockedTime(ctx context.Context, b BlockedTime) (*BlockedTime, error)
	DeleteBlockedTime(ctx context.Context, therapistID, id uuid.UUID) error
}

func weeklyWindows(ctx context.Context, r Reader, therapistID uuid.UUID, date Date) ([]Window, error) {
	p, err := r.Profile(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	return p.WindowsFor(date.Weekday()), nil
}
