package editor

import (
	"strings"

	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// ErrorView is a list of codes with their display messages.
type ErrorView struct {
	Codes    []validate.ErrorCode `json:"codes"`
	Messages []string             `json:"messages"`
}

func newErrorView(codes []validate.ErrorCode) ErrorView {
	if codes == nil {
		codes = []validate.ErrorCode{}
	}
	return ErrorView{Codes: codes, Messages: validate.Messages(codes)}
}

// FieldState is one existing field with its errors.
type FieldState struct {
	Field  types.Field `json:"field"`
	Errors ErrorView   `json:"errors"`
}

// State is a snapshot of the editor for presentation.
type State struct {
	Model          types.Model   `json:"model"`
	ModelErrors    ErrorView     `json:"model_errors"`
	Fields         []FieldState  `json:"fields"`
	Composing      bool          `json:"composing"`
	NewField       *types.Field  `json:"new_field,omitempty"`
	NewFieldErrors ErrorView     `json:"new_field_errors"`
	NextFieldID    types.FieldID `json:"next_field_id"`
	CanSave        bool          `json:"can_save"`
	Done           bool          `json:"done"`
}

// State returns a snapshot of the draft. Fields appear in model order.
func (e *Editor) State() State {
	st := State{
		Model:       e.Model(),
		ModelErrors: newErrorView(e.ModelErrors()),
		Fields:      make([]FieldState, 0, len(e.model.Fields)),
		Composing:   e.Composing(),
		NextFieldID: e.nextFieldID,
		CanSave:     !e.HasErrors() && !e.done && strings.TrimSpace(e.model.Name) != "",
		Done:        e.done,
	}
	for _, f := range e.model.Fields {
		codes, _ := e.FieldErrors(f.ID)
		st.Fields = append(st.Fields, FieldState{Field: f, Errors: newErrorView(codes)})
	}
	nf, codes := e.NewField()
	st.NewField = nf
	st.NewFieldErrors = newErrorView(codes)
	return st
}
