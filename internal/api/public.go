package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/appointment"
)

const defaultSlotMinutes = 60

// publicSlotsHandler serves GET /public/availability/slots?therapistId&date&duration.
func publicSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		therapist, err := uuid.Parse(q.Get("therapistId"))
		if err != nil {
			badRequest(w, "invalid_therapist_id", "therapistId must be a valid UUID")
			return
		}
		date, err := parseDateParam(q.Get("date"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		duration, err := parseDurationParam(q.Get("duration"), defaultSlotMinutes)
		if err != nil {
			handleError(w, r, err)
			return
		}

		slots, err := svc.Slots(r.Context(), therapist, date, duration)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots})
	}
}

func publicBookingHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PublicBookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		therapist, err := uuid.Parse(req.TherapistID)
		if err != nil {
			badRequest(w, "invalid_therapist_id", "therapistId must be a valid UUID")
			return
		}
		in := appointment.PublicBookingInput{
			TherapistID: therapist,
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Duration:    req.Duration,
			ServiceType: req.ServiceType,
			Notes:       req.Notes,
		}
		if req.ClientID != nil {
			clientID, err := uuid.Parse(*req.ClientID)
			if err != nil {
				badRequest(w, "invalid_client_id", "clientId must be a valid UUID")
				return
			}
			in.ClientID = &clientID
		}

		appt, err := svc.PublicBook(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}
