// Package store persists models and the field id counter shared by all edit
// sessions.
package store

import (
	"context"
	"errors"

	"github.com/matthewbaird/modeleditor/internal/types"
)

// ErrNotFound is returned when a model id is not stored.
var ErrNotFound = errors.New("store: model not found")

// Store is the interface for reading and writing models.
type Store interface {
	// ListModels returns every model ordered by name.
	ListModels(ctx context.Context) ([]types.Model, error)

	// GetModel returns one model with its fields in order.
	GetModel(ctx context.Context, id string) (types.Model, error)

	// SaveModel inserts m when it has no id and otherwise updates the
	// stored model, returning ErrNotFound if it was deleted. The field id
	// counter is raised to nextFieldID. It returns the stored model.
	SaveModel(ctx context.Context, m types.Model, nextFieldID types.FieldID) (types.Model, error)

	// DeleteModel removes a model and its fields.
	DeleteModel(ctx context.Context, id string) error

	// NextFieldID returns the id the next committed field should receive.
	NextFieldID(ctx context.Context) (types.FieldID, error)
}
