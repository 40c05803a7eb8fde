package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one committed booking change leaving the service. The payload is the
// JSON stored with the event log row.
type Event struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	TherapistID   string          `json:"therapistId,omitempty"`
	AppointmentID string          `json:"appointmentId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Notifier delivers events to whatever external system syncs calendars or sends reminders.
// Publish must be all-or-nothing from the caller's view: on error the batch is retried.
type Notifier interface {
	Publish(ctx context.Context, events []Event) error
	Close() error
}
