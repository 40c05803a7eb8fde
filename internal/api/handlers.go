package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/apperr"
	"github.com/hackgods/practice-booking/internal/appointment"
)

func therapistID(r *http.Request) uuid.UUID {
	return PrincipalFrom(r.Context()).TherapistID
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseListFilter(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		res, err := svc.List(r.Context(), f)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func parseListFilter(r *http.Request) (appointment.ListFilter, error) {
	q := r.URL.Query()
	f := appointment.ListFilter{
		TherapistID: therapistID(r),
		ServiceType: strings.TrimSpace(q.Get("serviceType")),
		Sort:        appointment.SortOrder(q.Get("sort")),
	}

	var err error
	if f.From, f.To, err = parseDateRange(r); err != nil {
		return f, err
	}
	if f.ClientID, err = parseUUIDParam(q.Get("clientId"), "clientId"); err != nil {
		return f, err
	}
	if f.Page, err = parseIntParam(q.Get("page"), "page", 1); err != nil {
		return f, err
	}
	if f.Limit, err = parseIntParam(q.Get("limit"), "limit", 0); err != nil {
		return f, err
	}
	for _, raw := range splitList(q.Get("status")) {
		st, err := appointment.ParseStatus(raw)
		if err != nil {
			return f, apperr.Validation("invalid_status", err.Error())
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		appt, err := svc.Get(r.Context(), therapistID(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func (req CreateAppointmentRequest) toInput(therapist uuid.UUID) (appointment.CreateInput, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return appointment.CreateInput{}, apperr.Validation("invalid_client_id", "clientId must be a valid UUID")
	}
	return appointment.CreateInput{
		TherapistID:      therapist,
		ClientID:         clientID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Duration:         req.Duration,
		ServiceType:      req.ServiceType,
		Location:         req.Location,
		MeetingURL:       req.MeetingURL,
		Notes:            req.Notes,
		PaymentAmount:    req.PaymentAmount,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
	}, nil
}

// createAppointmentHandler books a single appointment, or a series when isRecurring is set.
func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.toInput(therapistID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}

		if in.IsRecurring {
			res, err := svc.CreateSeries(r.Context(), in)
			if err != nil {
				handleError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, res)
			return
		}

		appt, err := svc.Create(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func bulkCreateHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.toInput(therapistID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		in.IsRecurring = true

		res, err := svc.CreateSeries(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req UpdateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in := appointment.UpdateInput{
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Duration:      req.Duration,
			ServiceType:   req.ServiceType,
			Location:      req.Location,
			MeetingURL:    req.MeetingURL,
			Notes:         req.Notes,
			Summary:       req.Summary,
			PaymentAmount: req.PaymentAmount,
		}
		if req.ClientID != nil {
			clientID, err := uuid.Parse(*req.ClientID)
			if err != nil {
				badRequest(w, "invalid_client_id", "clientId must be a valid UUID")
				return
			}
			in.ClientID = &clientID
		}

		appt, err := svc.Update(r.Context(), therapistID(r), id, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), therapistID(r), id); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, DeletedResponse{ID: id.String(), Deleted: true})
	}
}

func confirmAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		appt, err := svc.Confirm(r.Context(), therapistID(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req CancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.Cancel(r.Context(), therapistID(r), id, req.Reason, req.CancelledBy)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req CompleteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.Complete(r.Context(), therapistID(r), id, req.Summary)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func noShowAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		appt, err := svc.MarkNoShow(r.Context(), therapistID(r), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func conflictsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		start, err := parseTimeParam(q.Get("startTime"), false)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if start == nil {
			badRequest(w, "missing_start_time", "startTime is required")
			return
		}
		end, err := parseTimeParam(q.Get("endTime"), false)
		if err != nil {
			handleError(w, r, err)
			return
		}
		duration, err := parseDurationParam(q.Get("duration"), 0)
		if err != nil {
			handleError(w, r, err)
			return
		}
		exclude, err := parseUUIDParam(q.Get("excludeId"), "excludeId")
		if err != nil {
			handleError(w, r, err)
			return
		}

		var endTime time.Time
		if end != nil {
			endTime = *end
		}
		excludeID := uuid.Nil
		if exclude != nil {
			excludeID = *exclude
		}

		report, err := svc.CheckConflicts(r.Context(), therapistID(r), *start, endTime, duration, excludeID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func statsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseDateRange(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		stats, err := svc.Summarize(r.Context(), therapistID(r), from, to)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
