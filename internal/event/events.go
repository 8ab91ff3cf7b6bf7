// Package event defines the domain events emitted when models change.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/modeleditor/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	ModelID    string
	Summary    string
	Payload    json.RawMessage
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// ModelSavedPayload carries event-specific data for ModelCreated and
// ModelUpdated.
type ModelSavedPayload struct {
	ModelID     string        `json:"model_id"`
	Name        string        `json:"name"`
	FieldCount  int           `json:"field_count"`
	NextFieldID types.FieldID `json:"next_field_id"`
}

func savedPayload(m types.Model, next types.FieldID) ModelSavedPayload {
	return ModelSavedPayload{
		ModelID:     m.ID,
		Name:        m.Name,
		FieldCount:  len(m.Fields),
		NextFieldID: next,
	}
}

func NewModelCreated(m types.Model, next types.FieldID) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "model_created",
		OccurredAt: time.Now(),
		ModelID:    m.ID,
		Summary:    fmt.Sprintf("Model %q created with %d fields", m.Name, len(m.Fields)),
		Payload:    mustJSON(savedPayload(m, next)),
	}
}

func NewModelUpdated(m types.Model, next types.FieldID) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "model_updated",
		OccurredAt: time.Now(),
		ModelID:    m.ID,
		Summary:    fmt.Sprintf("Model %q updated, %d fields", m.Name, len(m.Fields)),
		Payload:    mustJSON(savedPayload(m, next)),
	}
}

// ModelDeletedPayload carries event-specific data for ModelDeleted.
type ModelDeletedPayload struct {
	ModelID string `json:"model_id"`
	Name    string `json:"name"`
}

func NewModelDeleted(m types.Model) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "model_deleted",
		OccurredAt: time.Now(),
		ModelID:    m.ID,
		Summary:    fmt.Sprintf("Model %q deleted", m.Name),
		Payload:    mustJSON(ModelDeletedPayload{ModelID: m.ID, Name: m.Name}),
	}
}
