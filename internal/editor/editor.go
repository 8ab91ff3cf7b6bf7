// Package editor implements the edit session state for a single model: the
// draft, the field being composed, and the validation errors attached to
// each of them.
//
// Errors are recomputed lazily. An entity (the model, the composing field or
// an existing field) is only revalidated on edit once it has been validated
// by CommitField or Save, so a user typing into a fresh form never sees
// errors before their first submit.
package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

var (
	// ErrNotComposing is returned by new-field operations while no field is
	// being composed.
	ErrNotComposing = errors.New("editor: no field is being composed")
	// ErrUnknownField is returned for a field id that is not in the draft.
	ErrUnknownField = errors.New("editor: unknown field")
)

// Result is handed to Handler.OnSave.
type Result struct {
	Model       types.Model   `json:"model"`
	NextFieldID types.FieldID `json:"next_field_id"`
}

// Handler receives the outcome of an edit session.
type Handler interface {
	OnSave(ctx context.Context, res Result) error
	OnCancel(ctx context.Context) error
}

// errorState is the validation state of one entity.
type errorState struct {
	validated bool
	codes     []validate.ErrorCode
}

func (s *errorState) set(codes []validate.ErrorCode) {
	s.validated = true
	s.codes = codes
}

func (s *errorState) reset() {
	s.validated = false
	s.codes = []validate.ErrorCode{}
}

func (s errorState) failing() bool { return len(s.codes) > 0 }

// Editor holds the draft of one model. It is not safe for concurrent use.
type Editor struct {
	handler  Handler
	siblings []types.Model

	model       types.Model
	modelErrors errorState

	newField       *types.Field
	newFieldErrors errorState

	fieldErrors map[types.FieldID]*errorState
	nextFieldID types.FieldID
	done        bool
}

// New starts editing model. siblings is the full model list used for name
// uniqueness; it may include model itself. nextFieldID is the first id handed
// to committed fields; ids start at 1 because 0 marks a field that has not
// been committed.
func New(model types.Model, siblings []types.Model, nextFieldID types.FieldID, h Handler) *Editor {
	e := &Editor{
		handler:     h,
		siblings:    cloneModels(siblings),
		model:       model.Clone(),
		fieldErrors: make(map[types.FieldID]*errorState, len(model.Fields)),
		nextFieldID: nextFieldID,
	}
	if e.nextFieldID < 1 {
		e.nextFieldID = 1
	}
	e.modelErrors.reset()
	e.newFieldErrors.reset()
	for _, f := range e.model.Fields {
		st := &errorState{}
		st.reset()
		e.fieldErrors[f.ID] = st
		if f.ID >= e.nextFieldID {
			e.nextFieldID = f.ID + 1
		}
	}
	return e
}

func cloneModels(ms []types.Model) []types.Model {
	out := make([]types.Model, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

// ── Model ───────────────────────────────────────────────────────────────────

// SetName replaces the model name.
func (e *Editor) SetName(name string) {
	e.model.Name = name
	if e.modelErrors.validated {
		e.modelErrors.set(validate.ValidateModel(validate.FormatModel(e.model), e.siblings))
	}
}

// SetSiblings replaces the models used for name uniqueness. The current
// model errors are kept until the next validation.
func (e *Editor) SetSiblings(siblings []types.Model) {
	e.siblings = cloneModels(siblings)
}

// ── New field ───────────────────────────────────────────────────────────────

// Composing reports whether a new field is being drafted.
func (e *Editor) Composing() bool {
	return e.newField != nil
}

// StartField begins composing a new field with default values. Calling it
// while already composing discards the current draft.
func (e *Editor) StartField() {
	e.newField = &types.Field{}
	e.newFieldErrors.reset()
}

// CancelField discards the field being composed without validating it.
func (e *Editor) CancelField() {
	e.newField = nil
	e.newFieldErrors.reset()
}

// EditNewField applies edit to the field being composed.
func (e *Editor) EditNewField(edit Edit) error {
	if e.newField == nil {
		return ErrNotComposing
	}
	edit(e.newField)
	if e.newFieldErrors.validated {
		e.newFieldErrors.set(validate.ValidateField(validate.FormatField(*e.newField), e.model.Fields))
	}
	return nil
}

// CommitField validates the field being composed and, if it passes, appends
// it to the model with the next field id. On failure the draft stays open
// with its errors and a *validate.ValidationError is returned.
func (e *Editor) CommitField() (types.Field, error) {
	if e.newField == nil {
		return types.Field{}, ErrNotComposing
	}
	draft := validate.FormatField(*e.newField)
	codes := validate.ValidateField(draft, e.model.Fields)
	if len(codes) > 0 {
		e.newField = &draft
		e.newFieldErrors.set(codes)
		var rep validate.Report
		rep.AddField(draft, codes)
		return types.Field{}, rep.Err()
	}

	draft.ID = e.nextFieldID
	e.nextFieldID++
	e.model.Fields = append(e.model.Fields, draft)
	st := &errorState{}
	st.reset()
	e.fieldErrors[draft.ID] = st

	e.newField = nil
	e.newFieldErrors.reset()
	return draft, nil
}

// ── Existing fields ─────────────────────────────────────────────────────────

// EditField applies edit to the field with the given id. Only that field is
// revalidated, and only if it has been validated before.
func (e *Editor) EditField(id types.FieldID, edit Edit) error {
	idx := e.fieldIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownField, id)
	}
	f := e.model.Fields[idx]
	edit(&f)
	f.ID = id
	e.model.Fields[idx] = f

	st := e.errorsFor(id)
	if st.validated {
		st.set(validate.ValidateField(validate.FormatField(f), e.model.Fields))
	}
	return nil
}

// DeleteField removes a field and its errors. Other fields keep their
// current errors.
func (e *Editor) DeleteField(id types.FieldID) error {
	idx := e.fieldIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownField, id)
	}
	fields := make([]types.Field, 0, len(e.model.Fields)-1)
	fields = append(fields, e.model.Fields[:idx]...)
	fields = append(fields, e.model.Fields[idx+1:]...)
	e.model.Fields = fields
	delete(e.fieldErrors, id)
	return nil
}

func (e *Editor) fieldIndex(id types.FieldID) int {
	for i, f := range e.model.Fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) errorsFor(id types.FieldID) *errorState {
	st, ok := e.fieldErrors[id]
	if !ok {
		st = &errorState{}
		st.reset()
		e.fieldErrors[id] = st
	}
	return st
}

// ── Save / cancel ───────────────────────────────────────────────────────────

// Save formats the draft and validates the model and every field. If
// anything fails, all errors are attached to the draft and a
// *validate.ValidationError is returned without calling the handler.
// Otherwise the formatted model and the field id counter are passed to
// Handler.OnSave. A *validate.ValidationError from the handler is attached
// to the model like any other validation failure.
func (e *Editor) Save(ctx context.Context) (Result, error) {
	formatted, rep := validate.Check(e.model, e.siblings)
	e.model = formatted
	e.modelErrors.set(rep.Model)
	for _, fr := range rep.Fields {
		e.errorsFor(fr.FieldID).set(fr.Codes)
	}
	if err := rep.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Model: formatted.Clone(), NextFieldID: e.nextFieldID}
	if e.handler != nil {
		if err := e.handler.OnSave(ctx, res); err != nil {
			var verr *validate.ValidationError
			if errors.As(err, &verr) {
				e.modelErrors.set(verr.Report.Model)
				return Result{}, verr
			}
			return Result{}, fmt.Errorf("saving model: %w", err)
		}
	}
	e.done = true
	return res, nil
}

// Cancel ends the session without validating or saving.
func (e *Editor) Cancel(ctx context.Context) error {
	e.done = true
	if e.handler == nil {
		return nil
	}
	return e.handler.OnCancel(ctx)
}

// Done reports whether the session ended through Save or Cancel.
func (e *Editor) Done() bool {
	return e.done
}

// HasErrors reports whether any entity currently carries errors, including
// the field being composed.
func (e *Editor) HasErrors() bool {
	if e.modelErrors.failing() || e.newFieldErrors.failing() {
		return true
	}
	for _, st := range e.fieldErrors {
		if st.failing() {
			return true
		}
	}
	return false
}

// Model returns a copy of the current draft.
func (e *Editor) Model() types.Model {
	return e.model.Clone()
}

// NextFieldID returns the id the next committed field will receive.
func (e *Editor) NextFieldID() types.FieldID {
	return e.nextFieldID
}

// ModelErrors returns the current model-level codes.
func (e *Editor) ModelErrors() []validate.ErrorCode {
	return append([]validate.ErrorCode{}, e.modelErrors.codes...)
}

// FieldErrors returns the current codes for a field and whether the field
// has an entry.
func (e *Editor) FieldErrors(id types.FieldID) ([]validate.ErrorCode, bool) {
	st, ok := e.fieldErrors[id]
	if !ok {
		return nil, false
	}
	return append([]validate.ErrorCode{}, st.codes...), true
}

// NewField returns the field being composed and its codes.
func (e *Editor) NewField() (*types.Field, []validate.ErrorCode) {
	if e.newField == nil {
		return nil, nil
	}
	f := *e.newField
	return &f, append([]validate.ErrorCode{}, e.newFieldErrors.codes...)
}
