package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/model"
	"shiftlog/internal/service"
	"shiftlog/internal/store"
)

var validate = validator.New()

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse acknowledges an admin action.
type messageResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, messageID string, data map[string]any) {
	writeJSON(w, status, errorResponse{Error: i18n.T(r.Context(), messageID, data)})
}

// decodeJSON reads the request body into dst and validates its tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, "error.invalid_request", map[string]any{"Detail": err.Error()})
}

// writeServiceError maps a service or store error to a status and a
// localized message. Unknown errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error, data map[string]any) {
	var ite *service.InvalidTimeError
	switch {
	case errors.As(err, &ite):
		writeError(w, r, http.StatusBadRequest, "error.invalid_time", map[string]any{"Field": ite.Field})
	case errors.Is(err, service.ErrUserInactive):
		writeError(w, r, http.StatusForbidden, "attendance.reject.user_inactive", data)
	case errors.Is(err, service.ErrNoSession):
		writeError(w, r, http.StatusNotFound, "attendance.no_session", data)
	case errors.Is(err, store.ErrUserExists):
		writeError(w, r, http.StatusConflict, "error.user_exists", data)
	case errors.Is(err, model.ErrNotFound) && data["User"] != nil:
		writeError(w, r, http.StatusNotFound, "error.user_not_found", data)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "error.not_found", data)
	case errors.Is(err, model.ErrImportValidation):
		writeError(w, r, http.StatusBadRequest, "error.import_failed", map[string]any{"Detail": err.Error()})
	case errors.Is(err, model.ErrInvalidRecord):
		writeBadRequest(w, r, err)
	default:
		log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "error.internal", nil)
	}
}
