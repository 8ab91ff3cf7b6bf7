package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (string, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return "", false
	}
	return id.String(), true
}

// invalidResponse is the body of a 422 response.
type invalidResponse struct {
	Error  string          `json:"error"`
	Code   string          `json:"code"`
	Report validate.Report `json:"report"`
	State  any             `json:"state,omitempty"`
}

// errorToHTTP maps store, session, editor and validation errors to HTTP
// responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	var verr *validate.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, invalidResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Report: verr.Report,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusConflict, "SESSION_CLOSED", err.Error())
	case errors.Is(err, session.ErrBadAction):
		writeError(w, http.StatusBadRequest, "INVALID_ACTION", err.Error())
	case errors.Is(err, editor.ErrNotComposing):
		writeError(w, http.StatusConflict, "NOT_COMPOSING", err.Error())
	case errors.Is(err, editor.ErrUnknownField):
		writeError(w, http.StatusNotFound, "UNKNOWN_FIELD", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
