package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/modeleditor/internal/command"
	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/meta"
	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// Handler manages WebSocket connections for edit sessions. Each connection
// edits at most one model at a time.
type Handler struct {
	sessions *session.Manager
	meta     *meta.Handler
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(sessions *session.Manager, metaHandler *meta.Handler) *Handler {
	return &Handler{
		sessions: sessions,
		meta:     metaHandler,
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. Messages are
// handled one at a time in the order they arrive.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("wire: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	var sess *session.Session
	defer func() {
		if sess != nil {
			h.sessions.Remove(sess.ID)
		}
	}()

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("wire: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "open":
			sess = h.handleOpen(ctx, conn, sess, msg)
		case "action":
			var action session.Action
			if err := json.Unmarshal(msg.Data, &action); err != nil {
				h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid action data")
				continue
			}
			sess = h.handleAction(ctx, conn, sess, msg.ID, action)
		case "command":
			sess = h.handleCommand(ctx, conn, sess, msg)
		case "complete":
			h.handleComplete(ctx, conn, sess, msg)
		case "meta":
			h.handleMeta(ctx, conn, sess, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleOpen(ctx context.Context, conn *websocket.Conn, current *session.Session, msg ClientMessage) *session.Session {
	var data OpenData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid open data")
			return current
		}
	}

	sess, err := h.sessions.Begin(ctx, data.ModelID)
	if errors.Is(err, store.ErrNotFound) {
		h.sendError(ctx, conn, msg.ID, "not_found", err.Error())
		return current
	}
	if err != nil {
		log.Printf("wire: opening session: %v", err)
		h.sendError(ctx, conn, msg.ID, "internal", "could not open session")
		return current
	}
	if current != nil {
		h.sessions.Remove(current.ID)
	}

	h.send(ctx, conn, ServerMessage{
		Type:      "session",
		RequestID: msg.ID,
		Data: SessionData{
			SessionID: sess.ID,
			ModelID:   data.ModelID,
			State:     sess.State(),
		},
	})
	return sess
}

func (h *Handler) handleAction(ctx context.Context, conn *websocket.Conn, sess *session.Session, requestID string, action session.Action) *session.Session {
	if sess == nil {
		h.sendError(ctx, conn, requestID, "no_session", "send an open message first")
		return nil
	}

	out, err := sess.Apply(ctx, action)
	var verr *validate.ValidationError
	switch {
	case errors.As(err, &verr):
		h.send(ctx, conn, ServerMessage{
			Type:      "invalid",
			RequestID: requestID,
			Data:      InvalidData{Report: verr.Report, State: out.State},
		})
		return sess
	case errors.Is(err, session.ErrClosed):
		h.sendError(ctx, conn, requestID, "closed", err.Error())
		return nil
	case err != nil:
		h.sendError(ctx, conn, requestID, "action_error", err.Error())
		return sess
	}

	switch {
	case out.Saved != nil:
		h.send(ctx, conn, ServerMessage{Type: "saved", RequestID: requestID, Data: SavedData{Model: *out.Saved}})
		return nil
	case out.Cancelled:
		h.send(ctx, conn, ServerMessage{Type: "cancelled", RequestID: requestID})
		return nil
	}
	h.send(ctx, conn, ServerMessage{Type: "state", RequestID: requestID, Data: out.State})
	return sess
}

// handleCommand parses a line of text and runs it as an action or a
// meta-command.
func (h *Handler) handleCommand(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) *session.Session {
	var data CommandData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid command data")
		return sess
	}
	cmd, err := command.Parse(data.Line)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "parse_error", err.Error())
		return sess
	}
	if cmd.Action == nil {
		h.runMeta(ctx, conn, sess, msg.ID, cmd.Meta, cmd.Args)
		return sess
	}
	return h.handleAction(ctx, conn, sess, msg.ID, *cmd.Action)
}

func (h *Handler) handleComplete(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data CompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid complete data")
		return
	}
	var st *editor.State
	if sess != nil {
		s := sess.State()
		st = &s
	}
	items := command.Complete(data.Text, data.Cursor, st)
	if items == nil {
		items = []command.CompletionItem{}
	}
	h.send(ctx, conn, ServerMessage{Type: "completions", RequestID: msg.ID, Data: CompletionsData{Items: items}})
}

func (h *Handler) handleMeta(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var data MetaCommandData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid meta data")
		return
	}
	h.runMeta(ctx, conn, sess, msg.ID, data.Command, data.Args)
}

func (h *Handler) runMeta(ctx context.Context, conn *websocket.Conn, sess *session.Session, requestID, name string, args []string) {
	result, err := h.meta.Execute(sess, name, args)
	if err != nil {
		h.sendError(ctx, conn, requestID, "meta_error", err.Error())
		return
	}
	h.send(ctx, conn, ServerMessage{Type: "meta", RequestID: requestID, Data: result})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("wire: write error: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
