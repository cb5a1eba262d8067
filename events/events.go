package events

import (
	"context"
	"sync"

	"gamestake/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeMatchUpdated     EventType = "match_updated"
	EventTypeMatchSettled     EventType = "match_settled"
	EventTypeTokensPurchased  EventType = "tokens_purchased"
	EventTypeConsistencyAlert EventType = "consistency_alert"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// MatchUpdatedEvent carries the state of a match after a lifecycle transition
type MatchUpdatedEvent struct {
	Match    *models.MatchRecord `json:"match"`
	Cause    models.EventKind    `json:"cause"`
	Identity models.Identity     `json:"identity"`
}

func (e MatchUpdatedEvent) Type() EventType {
	return EventTypeMatchUpdated
}

// MatchSettledEvent represents a settlement credited to the winner
type MatchSettledEvent struct {
	MatchID string          `json:"matchId"`
	Winner  string          `json:"winner"`
	Loser   string          `json:"loser"`
	Payout  decimal.Decimal `json:"payout"`
}

func (e MatchSettledEvent) Type() EventType {
	return EventTypeMatchSettled
}

// TokensPurchasedEvent represents a token store purchase
type TokensPurchasedEvent struct {
	Buyer      string          `json:"buyer"`
	USDTAmount decimal.Decimal `json:"usdtAmount"`
	GTOut      decimal.Decimal `json:"gtOut"`
}

func (e TokensPurchasedEvent) Type() EventType {
	return EventTypeTokensPurchased
}

// AlertCategory classifies what an operator has to look at
type AlertCategory string

const (
	AlertCategoryConflict       AlertCategory = "conflict"
	AlertCategoryMissingParent  AlertCategory = "missing_predecessor"
	AlertCategoryResourceLimit  AlertCategory = "resource_limit"
	AlertCategoryUnreconcilable AlertCategory = "unreconcilable"
)

// ConsistencyAlertEvent represents an event that was rejected and needs manual reconciliation
type ConsistencyAlertEvent struct {
	Category AlertCategory     `json:"category"`
	MatchID  string            `json:"matchId,omitempty"`
	Kind     models.EventKind  `json:"kind"`
	Identity models.Identity   `json:"identity"`
	Order    models.BlockOrder `json:"order"`
	Reason   string            `json:"reason"`
}

func (e ConsistencyAlertEvent) Type() EventType {
	return EventTypeConsistencyAlert
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
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

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so the ingestion writer never waits on a consumer
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
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

// TransactionalBus holds events published during a store mutation.
// Flushes to the underlying event bus once the mutation is committed.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the events not yet flushed
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// called after the mutation is published
func (b *TransactionalBus) Flush(ctx context.Context) error {
	if b.real == nil {
		b.pending = nil
		return nil
	}

	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events to main event bus")

	// Handlers outlive the mutation, so they get a context that is not tied to it
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// called after an aborted mutation or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
