package api

import (
	"net/http"
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
)

// upcomingBlockWindow bounds GET /availability/blocked when no range is given.
const upcomingBlockWindow = 365 * 24 * time.Hour

func getAvailabilityHandler(store availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.Profile(r.Context(), therapistID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func putAvailabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := svc.SaveProfile(r.Context(), availability.Profile{
			TherapistID:          therapistID(r),
			Timezone:             req.Timezone,
			WeeklySchedule:       req.WeeklySchedule,
			BufferTime:           req.BufferTime,
			MaxDailyAppointments: req.MaxDailyAppointments,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func listBlockedTimesHandler(store availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseDateRange(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		now := time.Now().UTC()
		if from == nil {
			from = &now
		}
		if to == nil {
			end := from.Add(upcomingBlockWindow)
			to = &end
		}
		if !to.After(*from) {
			badRequest(w, "invalid_date_range", "endDate must be after startDate")
			return
		}

		items, err := store.BlockedIntervals(r.Context(), therapistID(r), *from, *to)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if items == nil {
			items = []availability.BlockedTime{}
		}
		writeJSON(w, http.StatusOK, BlockedTimesResponse{Items: items})
	}
}

func createBlockedTimeHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockedTimeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		b, err := svc.CreateBlockedTime(r.Context(), availability.BlockedTime{
			TherapistID: therapistID(r),
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Reason:      req.Reason,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

func deleteBlockedTimeHandler(store availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := store.DeleteBlockedTime(r.Context(), therapistID(r), id); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, DeletedResponse{ID: id.String(), Deleted: true})
	}
}
