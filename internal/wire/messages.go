// Package wire defines the WebSocket protocol for edit sessions.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/modeleditor/internal/command"
	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "open", "action", "command", "complete", "meta", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// OpenData is the payload for "open" messages. An empty ModelID starts a
// new model.
type OpenData struct {
	ModelID string `json:"model_id,omitempty"`
}

// CommandData is the payload for "command" messages: one line of text such
// as `edit_field 3 required true` or `:model`.
type CommandData struct {
	Line string `json:"line"`
}

// CompleteData is the payload for "complete" messages.
type CompleteData struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor"`
}

// MetaCommandData is the payload for "meta" messages.
type MetaCommandData struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "state", "invalid", "saved", "cancelled", "meta", "completions", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string       `json:"session_id"`
	ModelID   string       `json:"model_id,omitempty"`
	State     editor.State `json:"state"`
}

// InvalidData is sent when a commit or save is blocked by validation.
type InvalidData struct {
	Report validate.Report `json:"report"`
	State  editor.State    `json:"state"`
}

// SavedData is sent once the model is persisted.
type SavedData struct {
	Model types.Model `json:"model"`
}

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []command.CompletionItem `json:"items"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
