package activity

import (
	"context"

	"github.com/matthewbaird/modeleditor/internal/event"
)

// Indexer consumes domain events and writes one activity entry per event.
// It is registered on the event bus as a subscriber.
type Indexer struct {
	store Store
}

// NewIndexer creates a new activity indexer.
func NewIndexer(store Store) *Indexer {
	return &Indexer{store: store}
}

// HandleEvent records evt. Events without a model id are ignored.
func (idx *Indexer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.ModelID == "" {
		return nil
	}
	return idx.store.WriteEntries(ctx, []Entry{{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		ModelID:    evt.ModelID,
		Summary:    evt.Summary,
		Payload:    evt.Payload,
	}})
}
