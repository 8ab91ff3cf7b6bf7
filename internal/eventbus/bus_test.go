package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/types"
)

type collector struct {
	mu   sync.Mutex
	seen []string
}

func (c *collector) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, evt.EventType)
	return nil
}

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := New(8)
	c := &collector{}
	bus.Subscribe("collector", c)
	bus.Subscribe("log", NewLogConsumer())
	bus.Start(context.Background())

	m := types.Model{ID: "m1", Name: "Customer"}
	bus.Publish(context.Background(), event.NewModelCreated(m, 2))
	bus.Publish(context.Background(), event.NewModelUpdated(m, 3))
	bus.Publish(context.Background(), event.NewModelDeleted(m))
	bus.Stop()

	assert.Equal(t, []string{"model_created", "model_updated", "model_deleted"}, c.seen)

	// Publishing after Stop is dropped rather than panicking.
	bus.Publish(context.Background(), event.NewModelDeleted(m))
}

func TestBus_HandlerFunc(t *testing.T) {
	bus := New(0)
	var got event.DomainEvent
	bus.Subscribe("fn", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		got = evt
		return nil
	}))
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.NewModelCreated(types.Model{ID: "m2", Name: "Order"}, 1))
	bus.Stop()

	assert.Equal(t, "m2", got.ModelID)
	assert.Contains(t, got.Summary, "Order")
	assert.JSONEq(t, `{"model_id":"m2","name":"Order","field_count":0,"next_field_id":1}`, string(got.Payload))
}

func TestBus_FiltersByEventType(t *testing.T) {
	bus := New(8)
	deletes := &collector{}
	all := &collector{}
	bus.Subscribe("deletes", deletes, "model_deleted")
	bus.Subscribe("all", all)
	bus.Start(context.Background())

	m := types.Model{ID: "m1", Name: "Customer"}
	bus.Publish(context.Background(), event.NewModelCreated(m, 2))
	bus.Publish(context.Background(), event.NewModelDeleted(m))
	bus.Stop()

	assert.Equal(t, []string{"model_deleted"}, deletes.seen)
	assert.Equal(t, []string{"model_created", "model_deleted"}, all.seen)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	m := types.Model{ID: "m1", Name: "Customer"}
	// Not started, so the second event cannot be queued.
	bus.Publish(context.Background(), event.NewModelCreated(m, 2))
	bus.Publish(context.Background(), event.NewModelUpdated(m, 3))
	assert.Equal(t, uint64(1), bus.Dropped())

	c := &collector{}
	bus.Subscribe("collector", c)
	bus.Start(context.Background())
	bus.Stop()
	assert.Equal(t, []string{"model_created"}, c.seen)

	bus.Publish(context.Background(), event.NewModelDeleted(m))
	assert.Equal(t, uint64(2), bus.Dropped())
}

func TestBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := New(4)
	c := &collector{}
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("index unavailable")
	}))
	bus.Subscribe("panicking", HandlerFunc(func(context.Context, event.DomainEvent) error {
		panic("boom")
	}))
	bus.Subscribe("collector", c)
	bus.Start(context.Background())

	bus.Publish(context.Background(), event.NewModelCreated(types.Model{ID: "m1", Name: "Customer"}, 1))
	bus.Stop()
	assert.Equal(t, []string{"model_created"}, c.seen)
}

func TestBus_DrainsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := New(4)
	var live []bool
	var mu sync.Mutex
	bus.Subscribe("ctx", HandlerFunc(func(ctx context.Context, _ event.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		live = append(live, ctx.Err() == nil)
		return nil
	}))

	m := types.Model{ID: "m1", Name: "Customer"}
	bus.Publish(ctx, event.NewModelCreated(m, 2))
	bus.Publish(ctx, event.NewModelUpdated(m, 3))
	cancel()
	bus.Start(ctx)
	bus.Stop()

	assert.Equal(t, []bool{true, true}, live)
}
