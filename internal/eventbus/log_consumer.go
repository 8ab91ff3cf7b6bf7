package eventbus

import (
	"context"
	"log"

	"github.com/matthewbaird/modeleditor/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	log.Printf("event: %s model=%s %s", evt.EventType, evt.ModelID, evt.Summary)
	return nil
}
