package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/apperr"
	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid_request_body", fmt.Sprintf("could not parse JSON: %v", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseTimeParam accepts RFC3339 or YYYY-MM-DD (midnight UTC). endOfDay moves a bare
// date to the following midnight so date ranges read as inclusive days.
func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Validation("invalid_date", fmt.Sprintf("%q is not an RFC3339 time or YYYY-MM-DD date", raw))
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func parseDateRange(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if from, err = parseTimeParam(q.Get("startDate"), false); err != nil {
		return nil, nil, err
	}
	if to, err = parseTimeParam(q.Get("endDate"), true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseIntParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid_"+name, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

// parseDurationParam reads a length in minutes, bounded to one day.
func parseDurationParam(raw string, def int) (int, error) {
	n, err := parseIntParam(raw, "duration", def)
	if err != nil {
		return 0, err
	}
	if n > appointment.MaxDurationMinutes {
		return 0, appointment.ErrInvalidDuration
	}
	return n, nil
}

func parseUUIDParam(raw, name string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid_"+name, fmt.Sprintf("%s must be a valid UUID", name))
	}
	return &id, nil
}

func parseDateParam(raw string) (availability.Date, error) {
	if raw == "" {
		return availability.Date{}, apperr.Validation("missing_date", "date is required (YYYY-MM-DD)")
	}
	d, err := availability.ParseDate(raw)
	if err != nil {
		return availability.Date{}, apperr.Validation("invalid_date", "date must be YYYY-MM-DD")
	}
	return d, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
