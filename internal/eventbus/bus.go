// Package eventbus fans device notifications out to sinks on a bounded
// worker pool.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeDeviceAdded   EventType = "device_added"
	EventTypeDeviceRemoved EventType = "device_removed"
	EventTypeState         EventType = "state"
	EventTypeAction        EventType = "action"
	EventTypeBridge        EventType = "bridge"
)

// Default configuration
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event represents an event in the system
type Event struct {
	Type EventType
	// Key orders events: events with the same key reach each handler in
	// publish order. Events without a key are spread over all workers.
	Key  string
	Data map[string]any
}

// Handler is a function that handles events
type Handler func(Event)

// work represents a unit of work for the worker pool
type work struct {
	event   Event
	handler Handler
}

// Bus provides event routing with a bounded worker pool. Each worker owns
// a queue; a key always maps to the same worker.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler

	queues []chan work
	next   atomic.Uint32
	wg     sync.WaitGroup

	// sendMu guards queue sends against Close closing the queues.
	sendMu sync.RWMutex
	closed bool
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a new event bus with custom worker count and
// per-worker queue size
func NewWithConfig(workerCount, queueSize int) *Bus {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	b := &Bus{
		handlers: make(map[EventType][]Handler),
		queues:   make([]chan work, workerCount),
	}

	for i := range b.queues {
		b.queues[i] = make(chan work, queueSize)
		b.wg.Add(1)
		go b.worker(i, b.queues[i])
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus worker pool started")
	return b
}

// worker processes events from its queue
func (b *Bus) worker(id int, queue <-chan work) {
	defer b.wg.Done()

	for w := range queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(w.event.Type)).
						Int("worker", id).
						Msg("Event handler panicked")
				}
			}()
			w.handler(w.event)
		}()
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.all = append(b.all, handler)
}

func (b *Bus) queueFor(key string) chan work {
	n := uint64(len(b.queues))
	if key == "" {
		return b.queues[uint64(b.next.Add(1))%n]
	}
	return b.queues[xxhash.Sum64String(key)%n]
}

// Publish sends an event to all subscribed handlers. It never blocks: when
// the worker queue is full or the bus is closed the event is dropped and
// Publish reports false.
func (b *Bus) Publish(event Event) bool {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return true
	}

	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed {
		eventsDroppedTotal.WithLabelValues(string(event.Type), "closed").Inc()
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closed, dropping event")
		return false
	}

	queue := b.queueFor(event.Key)
	delivered := true
	for _, handler := range handlers {
		select {
		case queue <- work{event: event, handler: handler}:
			eventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
		default:
			delivered = false
			eventsDroppedTotal.WithLabelValues(string(event.Type), "queue_full").Inc()
			log.Warn().
				Str("event_type", string(event.Type)).
				Str("key", event.Key).
				Msg("Event bus queue full, dropping event")
		}
	}
	return delivered
}

// Close stops accepting events, lets the workers drain their queues and
// waits for them until ctx is done.
func (b *Bus) Close(ctx context.Context) {
	b.sendMu.Lock()
	if b.closed {
		b.sendMu.Unlock()
		return
	}
	b.closed = true
	for _, q := range b.queues {
		close(q)
	}
	b.sendMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}

// Clear removes all handlers
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = make(map[EventType][]Handler)
	b.all = nil
}
