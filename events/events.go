package events

import (
	"context"
	"sync"

	"autocheckin/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRunStarted      EventType = "run_started"
	EventTypeAccountOutcome  EventType = "account_outcome"
	EventTypeRunCompleted    EventType = "run_completed"
	EventTypeRecordsIngested EventType = "records_ingested"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RunStartedEvent marks the beginning of a batch run
type RunStartedEvent struct {
	RunID         int64
	TriggerKind   models.TriggerKind
	TriggerBy     string
	TotalAccounts int
}

func (e RunStartedEvent) Type() EventType {
	return EventTypeRunStarted
}

// AccountOutcomeEvent carries the final outcome for one account in a run
type AccountOutcomeEvent struct {
	RunID   int64
	Email   string
	Outcome models.Outcome
	Reward  int64
	Message string
}

func (e AccountOutcomeEvent) Type() EventType {
	return EventTypeAccountOutcome
}

// RunCompletedEvent carries the finalized summary of a batch run
type RunCompletedEvent struct {
	Summary models.RunSummary
}

func (e RunCompletedEvent) Type() EventType {
	return EventTypeRunCompleted
}

// RecordsIngestedEvent reports newly synced ledger rows for an account
type RecordsIngestedEvent struct {
	Email      string
	NewRecords int
	PagesRead  int
}

func (e RecordsIngestedEvent) Type() EventType {
	return EventTypeRecordsIngested
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the run loop
	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Drain blocks until every handler goroutine started so far has returned,
// or the context is cancelled. A short-lived process must drain before
// exiting or in-flight handlers are killed mid-delivery.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransactionalBus stashes events until the owning database transaction
// commits, then flushes them to the real bus. Discarded on rollback.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after rollback to drop any buffered events
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
