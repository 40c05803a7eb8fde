package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/practice-booking/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message, Details: details})
}

// handleError maps the error taxonomy onto HTTP. Anything outside it is logged and
// reported as a bare 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindValidation, apperr.KindInvalidTransition:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	}
	writeError(w, status, ae.Code, ae.Message, ae.Details)
}

func badRequest(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusBadRequest, code, message, nil)
}
