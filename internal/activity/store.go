package activity

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one recorded change to a model.
type Entry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	ModelID    string          `json:"model_id"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries appends entries. Entries whose EventID is already stored
	// are ignored.
	WriteEntries(ctx context.Context, entries []Entry) error

	// QueryByModel returns the entries for one model, newest first.
	QueryByModel(ctx context.Context, modelID string, opts QueryOptions) (entries []Entry, nextCursor string, totalCount int, err error)

	// Search returns entries whose summary contains query, case-insensitively.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []Entry, totalCount int, err error)
}
