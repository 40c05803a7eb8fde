package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/notify"
)

type SortOrder string

const (
	SortStartAsc    SortOrder = "startTime"
	SortStartDesc   SortOrder = "-startTime"
	SortCreatedDesc SortOrder = "-createdAt"
)

// ListFilter selects a page of one therapist's appointments. From/To bound startTime as [From, To).
type ListFilter struct {
	TherapistID uuid.UUID
	From        *time.Time
	To          *time.Time
	Statuses    []Status
	ClientID    *uuid.UUID
	ServiceType string
	Page        int // 1-based
	Limit       int
	Sort        SortOrder
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ActiveReader
	notify.Source

	GetAppointmentByID(ctx context.Context, therapistID, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, int, error)

	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// UpdateAppointment writes the editable fields and times of a.
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// TransitionAppointment persists a status change only if the stored status is still from.
	TransitionAppointment(ctx context.Context, a Appointment, from Status) (*Appointment, error)
	DeleteAppointment(ctx context.Context, therapistID, id uuid.UUID) error

	CountByStatus(ctx context.Context, therapistID uuid.UUID, from, to *time.Time) (map[Status]int, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// ClientDirectory is the boundary to client records, which this service does not own.
type ClientDirectory interface {
	GetClient(ctx context.Context, therapistID, id uuid.UUID) (*Client, error)
	// ResolveClient finds a client of the therapist by email, creating one when absent.
	ResolveClient(ctx context.Context, therapistID uuid.UUID, name string, email, phone *string) (*Client, error)
}
