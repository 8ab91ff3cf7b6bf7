package handler

import (
	"net/http"

	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// ModelHandler implements HTTP handlers for stored models.
type ModelHandler struct {
	store store.Store
	bus   event.Publisher
}

// NewModelHandler creates a new ModelHandler. bus may be nil.
func NewModelHandler(st store.Store, bus event.Publisher) *ModelHandler {
	return &ModelHandler{store: st, bus: bus}
}

// modelSummary is one row of the model list.
type modelSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FieldCount int    `json:"field_count"`
}

func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.store.ListModels(r.Context())
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	out := make([]modelSummary, 0, len(models))
	for _, m := range models {
		out = append(out, modelSummary{ID: m.ID, Name: m.Name, FieldCount: len(m.Fields)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ModelHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.store.GetModel(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ModelHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	m, err := h.store.GetModel(ctx, id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if err := h.store.DeleteModel(ctx, id); err != nil {
		errorToHTTP(w, err)
		return
	}
	if h.bus != nil {
		h.bus.Publish(ctx, event.NewModelDeleted(m))
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateResponse is returned when a model passes validation.
type validateResponse struct {
	Model  types.Model     `json:"model"`
	Report validate.Report `json:"report"`
}

// ValidateModel checks a model against the stored models without saving it.
func (h *ModelHandler) ValidateModel(w http.ResponseWriter, r *http.Request) {
	var m types.Model
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	models, err := h.store.ListModels(r.Context())
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	formatted, rep := validate.Check(m, models)
	if !rep.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, invalidResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Report: rep,
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Model: formatted, Report: rep})
}

// ListTypes returns the data type options offered for fields.
func (h *ModelHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.Options())
}
