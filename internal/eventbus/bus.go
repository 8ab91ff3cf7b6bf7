// Package eventbus delivers model change events to in-process consumers.
//
// Sessions and HTTP handlers publish an event after the store commits a
// create, update or delete. A single goroutine hands each event to every
// interested subscriber, so the activity feed and the log see model changes
// in the order they were committed.
package eventbus

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/matthewbaird/modeleditor/internal/event"
)

const defaultQueueSize = 256

// Handler consumes model events.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// subscription is one named consumer and the event types it wants. An empty
// set means every type.
type subscription struct {
	name    string
	handler Handler
	types   map[string]bool
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// Bus queues model events and delivers them from one goroutine.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscription
	queue   chan event.DomainEvent
	closed  bool
	dropped atomic.Uint64
	done    chan struct{}
}

// New creates a bus whose queue holds queueSize events. Values below 1 use
// the default size.
func New(queueSize int) *Bus {
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}
	return &Bus{
		queue: make(chan event.DomainEvent, queueSize),
		done:  make(chan struct{}),
	}
}

// Subscribe registers h under name for the given event types, or for every
// type when none are given. Call it before Start.
func (b *Bus) Subscribe(name string, h Handler, eventTypes ...string) {
	sub := subscription{name: name, handler: h}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = true
		}
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Publish queues evt without blocking the caller. When the queue is full or
// the bus is stopped the event is counted as dropped and logged.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.drop(evt, "bus stopped")
		return
	}
	select {
	case b.queue <- evt:
	default:
		b.drop(evt, "queue full")
	}
}

func (b *Bus) drop(evt event.DomainEvent, reason string) {
	b.dropped.Add(1)
	log.Printf("eventbus: %s, dropping %s for model %s", reason, evt.EventType, evt.ModelID)
}

// Dropped returns how many events were not queued.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Start runs delivery until Stop is called or ctx is done. Handlers get a
// context that is not cancelled with ctx, and events already queued when
// ctx ends are still delivered.
func (b *Bus) Start(ctx context.Context) {
	go b.run(ctx)
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)
	dctx := context.WithoutCancel(ctx)
	for {
		select {
		case evt, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(dctx, evt)
		case <-ctx.Done():
			b.drain(dctx)
			return
		}
	}
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(ctx, evt)
		default:
			return
		}
	}
}

// Stop closes the queue and waits until every queued event is delivered.
// Start must have been called. Stop may be called more than once.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) deliver(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		if s.wants(evt.EventType) {
			b.call(ctx, s, evt)
		}
	}
}

// call runs one handler. A failing or panicking handler is logged and does
// not keep the event from the others.
func (b *Bus) call(ctx context.Context, s subscription, evt event.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus: %s panicked on %s: %v", s.name, evt.EventType, r)
		}
	}()
	if err := s.handler.HandleEvent(ctx, evt); err != nil {
		log.Printf("eventbus: %s failed on %s for model %s: %v", s.name, evt.EventType, evt.ModelID, err)
	}
}
