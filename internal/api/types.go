package api

import (
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
)

type CreateAppointmentRequest struct {
	ClientID         string                        `json:"clientId"`
	StartTime        time.Time                     `json:"startTime"`
	EndTime          time.Time                     `json:"endTime"`
	Duration         int                           `json:"duration"`
	ServiceType      string                        `json:"serviceType"`
	Location         string                        `json:"location"`
	MeetingURL       string                        `json:"meetingUrl"`
	Notes            string                        `json:"notes"`
	PaymentAmount    float64                       `json:"paymentAmount"`
	IsRecurring      bool                          `json:"isRecurring"`
	RecurringPattern *appointment.RecurringPattern `json:"recurringPattern"`
}

// UpdateAppointmentRequest uses pointers so omitted fields stay unchanged.
type UpdateAppointmentRequest struct {
	ClientID      *string    `json:"clientId"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Duration      *int       `json:"duration"`
	ServiceType   *string    `json:"serviceType"`
	Location      *string    `json:"location"`
	MeetingURL    *string    `json:"meetingUrl"`
	Notes         *string    `json:"notes"`
	Summary       *string    `json:"summary"`
	PaymentAmount *float64   `json:"paymentAmount"`
}

type CancelRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelledBy"`
}

type CompleteRequest struct {
	Summary string `json:"summary"`
}

type PublicBookingRequest struct {
	TherapistID string    `json:"therapistId"`
	ClientID    *string   `json:"clientId"`
	Name        string    `json:"name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Duration    int       `json:"duration"`
	ServiceType string    `json:"serviceType"`
	Notes       string    `json:"notes"`
}

type BlockedTimeRequest struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Reason    string    `json:"reason"`
}

type AvailabilityRequest struct {
	Timezone             string                     `json:"timezone"`
	WeeklySchedule       []availability.DaySchedule `json:"weeklySchedule"`
	BufferTime           int                        `json:"bufferTime"`
	MaxDailyAppointments int                        `json:"maxDailyAppointments"`
}

type SlotsResponse struct {
	Slots []appointment.Slot `json:"slots"`
}

type BlockedTimesResponse struct {
	Items []availability.BlockedTime `json:"items"`
}

type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
