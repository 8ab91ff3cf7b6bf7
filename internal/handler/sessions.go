package handler

import (
	"errors"
	"net/http"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// SessionHandler implements the REST alternative to the WebSocket edit
// protocol.
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	ModelID string `json:"model_id,omitempty"`
}

type sessionResponse struct {
	SessionID string       `json:"session_id"`
	ModelID   string       `json:"model_id,omitempty"`
	State     editor.State `json:"state"`
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}
	sess, err := h.sessions.Begin(r.Context(), req.ModelID)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: sess.ID,
		ModelID:   req.ModelID,
		State:     sess.State(),
	})
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// ApplyAction runs one action. A blocked commit or save answers 422 with the
// validation report and the draft's state.
func (h *SessionHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var action session.Action
	if err := decodeJSON(r, &action); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	out, err := sess.Apply(r.Context(), action)
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, invalidResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Report: verr.Report,
			State:  out.State,
		})
		return
	}
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return nil, false
	}
	sess := h.sessions.Get(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired")
		return nil, false
	}
	return sess, true
}
