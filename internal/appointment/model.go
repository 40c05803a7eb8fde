package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Active statuses occupy the therapist's calendar.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed:
		return true
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return false
	default:
		return false
	}
}

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

type RecurringPattern struct {
	Frequency Frequency `json:"frequency"`
	EndDate   string    `json:"endDate"` // YYYY-MM-DD in the therapist's timezone, inclusive
}

type Appointment struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"clientId"`
	TherapistID uuid.UUID `json:"therapistId"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int       `json:"duration"` // minutes

	ServiceType   string  `json:"serviceType"`
	Location      string  `json:"location"`
	MeetingURL    string  `json:"meetingUrl"`
	Notes         string  `json:"notes"`
	Summary       string  `json:"summary"`
	PaymentAmount float64 `json:"paymentAmount"`

	Status             Status  `json:"status"`
	CancellationReason *string `json:"cancellationReason,omitempty"`
	CancelledBy        *string `json:"cancelledBy,omitempty"`

	IsRecurring      bool              `json:"isRecurring"`
	RecurringPattern *RecurringPattern `json:"recurringPattern,omitempty"`
	SeriesID         *uuid.UUID        `json:"seriesId,omitempty"`

	// BufferMinutes is the buffer in force when the booking was committed.
	BufferMinutes int `json:"-"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	NoShowAt    *time.Time `json:"noShowAt,omitempty"`
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// OccupiedUntil is the end of the booking plus its committed buffer.
func (a *Appointment) OccupiedUntil() time.Time {
	return a.EndTime.Add(time.Duration(a.BufferMinutes) * time.Minute)
}

type Client struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapistId"`
	Name        string    `json:"name"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type EventLog struct {
	ID            int64
	EventType     string
	TherapistID   *uuid.UUID
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}
