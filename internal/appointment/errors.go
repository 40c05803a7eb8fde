package appointment

import (
	"fmt"

	"github.com/hackgods/practice-booking/internal/apperr"
)

// MaxDurationMinutes caps a single appointment or slot length at one day.
const MaxDurationMinutes = 24 * 60

var (
	ErrAppointmentNotFound = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrClientNotFound      = apperr.NotFound("client_not_found", "client not found")

	ErrInvalidTransition = apperr.InvalidTransition("invalid_status_transition", "invalid status transition")

	ErrOverlap          = apperr.Conflict("appointment_conflict", "requested time conflicts with an existing appointment or blocked time")
	ErrDailyCapReached  = apperr.Conflict("daily_cap_reached", "maximum number of appointments for that day reached")
	ErrTherapistBusy    = apperr.Conflict("in_progress", "another booking for this therapist is in progress, please retry")
	ErrSeriesConflict   = apperr.Conflict("series_conflict", "no occurrence of the recurring series could be booked")
	ErrSettingsConflict = apperr.Conflict("settings_conflict", "buffer or daily cap conflicts with existing appointments")

	ErrInvalidTimeRange    = apperr.Validation("invalid_time_range", "endTime must be after startTime")
	ErrDurationMismatch    = apperr.Validation("duration_mismatch", "duration must equal endTime - startTime in minutes")
	ErrDateInPast          = apperr.Validation("date_in_past", "date is in the past")
	ErrOutsideAvailability = apperr.Validation("outside_availability", "requested time is outside the therapist's working hours")
	ErrNotEditable         = apperr.Validation("not_editable", "time can only be changed on pending or confirmed appointments")
	ErrInvalidDuration     = apperr.Validation("invalid_duration", fmt.Sprintf("duration must be between 1 and %d minutes", MaxDurationMinutes))
)
