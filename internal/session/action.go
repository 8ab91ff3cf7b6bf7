package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/types"
)

// Action types accepted by Apply.
const (
	ActionStartField   = "start_field"
	ActionCancelField  = "cancel_field"
	ActionEditNewField = "edit_new_field"
	ActionCommitField  = "commit_field"
	ActionEditField    = "edit_field"
	ActionDeleteField  = "delete_field"
	ActionSetName      = "set_name"
	ActionSave         = "save"
	ActionCancel       = "cancel"
)

// ErrBadAction marks actions that could not be decoded.
var ErrBadAction = errors.New("session: bad action")

// Action is one user command against an edit session, independent of the
// transport it arrived on.
type Action struct {
	Type    string          `json:"type"`
	FieldID types.FieldID   `json:"field_id,omitempty"`
	Attr    string          `json:"attr,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

func (a Action) String() string {
	switch a.Type {
	case ActionEditNewField:
		return fmt.Sprintf("%s %s=%s", a.Type, a.Attr, a.Value)
	case ActionEditField:
		return fmt.Sprintf("%s #%d %s=%s", a.Type, a.FieldID, a.Attr, a.Value)
	case ActionDeleteField:
		return fmt.Sprintf("%s #%d", a.Type, a.FieldID)
	case ActionSetName:
		return fmt.Sprintf("%s %s", a.Type, a.Value)
	default:
		return a.Type
	}
}

// Outcome is the session after an action.
type Outcome struct {
	State     editor.State `json:"state"`
	Saved     *types.Model `json:"saved,omitempty"`
	Cancelled bool         `json:"cancelled,omitempty"`
}

// Apply runs one action. Validation failures from commit_field and save are
// returned as *validate.ValidationError alongside the updated state.
func (s *Session) Apply(ctx context.Context, a Action) (Outcome, error) {
	out, err := s.apply(ctx, a)
	if out.Saved != nil || out.Cancelled {
		if s.onClose != nil {
			s.onClose(s.ID)
		}
	}
	return out, err
}

func (s *Session) apply(ctx context.Context, a Action) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Outcome{State: s.editor.State()}, ErrClosed
	}
	s.AddHistory(a.String())

	err := s.dispatch(ctx, a)
	out := Outcome{State: s.editor.State()}
	if s.closed {
		out.Saved = s.saved
		out.Cancelled = s.saved == nil
	}
	return out, err
}

func (s *Session) dispatch(ctx context.Context, a Action) error {
	e := s.editor
	switch a.Type {
	case ActionStartField:
		e.StartField()
		return nil
	case ActionCancelField:
		e.CancelField()
		return nil
	case ActionEditNewField:
		edit, err := editor.ParseEdit(a.Attr, a.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadAction, err)
		}
		return e.EditNewField(edit)
	case ActionCommitField:
		_, err := e.CommitField()
		return err
	case ActionEditField:
		edit, err := editor.ParseEdit(a.Attr, a.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadAction, err)
		}
		return e.EditField(a.FieldID, edit)
	case ActionDeleteField:
		return e.DeleteField(a.FieldID)
	case ActionSetName:
		var name string
		if err := json.Unmarshal(a.Value, &name); err != nil {
			return fmt.Errorf("%w: set_name: expected string: %v", ErrBadAction, err)
		}
		e.SetName(name)
		return nil
	case ActionSave:
		_, err := e.Save(ctx)
		return err
	case ActionCancel:
		return e.Cancel(ctx)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrBadAction, a.Type)
	}
}

// Snapshot is a read-only view of a session for transports.
type Snapshot struct {
	ID        string       `json:"id"`
	ModelID   string       `json:"model_id,omitempty"`
	Actions   int          `json:"actions"`
	Closed    bool         `json:"closed"`
	State     editor.State `json:"state"`
	CreatedAt string       `json:"created_at"`
}

// Snapshot returns the session's current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		ModelID:   s.ModelID,
		Actions:   len(s.History),
		Closed:    s.closed,
		State:     s.editor.State(),
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

// HistoryEntries returns a copy of the applied actions.
func (s *Session) HistoryEntries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.History...)
}
