package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	// Drain blocks until in-flight async handlers finish or ctx ends.
	Drain(ctx context.Context) error
}

// inMemoryDispatcher fans events out to subscribers in process.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
	async     bool
	inflight  sync.WaitGroup
}

// NewInMemoryDispatcher creates a synchronous dispatcher: Publish returns after
// every handler ran.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	return newDispatcher(logger, false)
}

// NewAsyncDispatcher runs every handler on its own goroutine so publishers never
// wait for slow sinks such as SMTP.
func NewAsyncDispatcher(logger *zap.Logger) Dispatcher {
	return newDispatcher(logger, true)
}

func newDispatcher(logger *zap.Logger, async bool) *inMemoryDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
		async:     async,
	}
}

// Publish invokes handlers for the given event. Handler errors are logged and
// never returned to the publisher.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	if !d.async {
		for _, handler := range handlers {
			d.run(ctx, handler, event)
		}
		return nil
	}

	// Handlers outlive the request that published the event.
	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		d.inflight.Add(1)
		go func(h EventHandler) {
			defer d.inflight.Done()
			d.run(detached, h, event)
		}(handler)
	}
	return nil
}

func (d *inMemoryDispatcher) run(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Any("panic", r))
		}
	}()
	if err := handler(ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

func (d *inMemoryDispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
