package events

import (
	"context"
	"sync"

	"raffler/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRaffleCreated        EventType = "raffle_created"
	EventTypeTicketsPurchased     EventType = "tickets_purchased"
	EventTypeRandomnessRequested  EventType = "randomness_requested"
	EventTypeRandomnessConsumed   EventType = "randomness_consumed"
	EventTypePrizeClaimed         EventType = "prize_claimed"
	EventTypePrizeCollected       EventType = "prize_collected"
	EventTypeRaffleDeleted        EventType = "raffle_deleted"
	EventTypeUniqueAssetRecovered EventType = "unique_asset_recovered"
	EventTypeTicketAssetCollected EventType = "ticket_asset_collected"
)

// AllEventTypes lists every event type emitted by the raffle services
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeRaffleCreated,
		EventTypeTicketsPurchased,
		EventTypeRandomnessRequested,
		EventTypeRandomnessConsumed,
		EventTypePrizeClaimed,
		EventTypePrizeCollected,
		EventTypeRaffleDeleted,
		EventTypeUniqueAssetRecovered,
		EventTypeTicketAssetCollected,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RaffleCreatedEvent is emitted once a raffle and its ledger exist and the prize is escrowed
type RaffleCreatedEvent struct {
	Raffle   models.Address           `json:"raffle"`
	Sponsor  models.Address           `json:"sponsor"`
	Entrants models.Address           `json:"entrants"`
	Prize    models.Address           `json:"prize"`
	Payment  models.PaymentPolicyKind `json:"payment"`
	Entry    models.EntryPolicyKind   `json:"entry"`
	Max      uint32                   `json:"max"`
	EndTime  int64                    `json:"end_time"`
}

func (e RaffleCreatedEvent) Type() EventType {
	return EventTypeRaffleCreated
}

// TicketsPurchasedEvent records tickets appended to a ledger
type TicketsPurchasedEvent struct {
	Raffle     models.Address `json:"raffle"`
	Entrant    models.Address `json:"entrant"`
	Amount     uint32         `json:"amount"`
	Cost       uint64         `json:"cost"`
	FirstIndex uint32         `json:"first_index"`
	Total      uint32         `json:"total"`
	Burned     bool           `json:"burned"`
}

func (e TicketsPurchasedEvent) Type() EventType {
	return EventTypeTicketsPurchased
}

// RandomnessRequestedEvent is handed to the oracle transport after commit
type RandomnessRequestedEvent struct {
	RequestID   uuid.UUID      `json:"request_id"`
	Raffle      models.Address `json:"raffle"`
	ByteCount   int            `json:"byte_count"`
	PriorityFee uint64         `json:"priority_fee"`
}

func (e RandomnessRequestedEvent) Type() EventType {
	return EventTypeRandomnessRequested
}

// RandomnessConsumedEvent is emitted once per raffle when the seed is stored
type RandomnessConsumedEvent struct {
	RequestID uuid.UUID      `json:"request_id"`
	Raffle    models.Address `json:"raffle"`
	Entrants  uint32         `json:"entrants"`
}

func (e RandomnessConsumedEvent) Type() EventType {
	return EventTypeRandomnessConsumed
}

// PrizeClaimedEvent is emitted when a raffle settles through the claim path
type PrizeClaimedEvent struct {
	Raffle      models.Address `json:"raffle"`
	Winner      models.Address `json:"winner"`
	TicketIndex *uint32        `json:"ticket_index,omitempty"`
	Proceeds    uint64         `json:"proceeds"`
	Fee         uint64         `json:"fee"`
	Treasury    uint64         `json:"treasury"`
}

func (e PrizeClaimedEvent) Type() EventType {
	return EventTypePrizeClaimed
}

// PrizeCollectedEvent is emitted when the sponsor takes back an unclaimed prize
type PrizeCollectedEvent struct {
	Raffle   models.Address `json:"raffle"`
	Treasury models.Address `json:"treasury"`
	Proceeds uint64         `json:"proceeds"`
	Fee      uint64         `json:"fee"`
}

func (e PrizeCollectedEvent) Type() EventType {
	return EventTypePrizeCollected
}

// RaffleDeletedEvent is emitted when the protocol authority removes a raffle record
type RaffleDeletedEvent struct {
	Raffle   models.Address `json:"raffle"`
	Entrants models.Address `json:"entrants"`
}

func (e RaffleDeletedEvent) Type() EventType {
	return EventTypeRaffleDeleted
}

// UniqueAssetRecoveredEvent is emitted when leftover escrow of a deleted raffle is released
type UniqueAssetRecoveredEvent struct {
	Entrants    models.Address `json:"entrants"`
	Asset       models.Address `json:"asset"`
	Destination models.Address `json:"destination"`
}

func (e UniqueAssetRecoveredEvent) Type() EventType {
	return EventTypeUniqueAssetRecovered
}

// TicketAssetCollectedEvent is emitted when a surrendered ticket asset moves to the sponsor treasury
type TicketAssetCollectedEvent struct {
	Raffle   models.Address `json:"raffle"`
	Asset    models.Address `json:"asset"`
	Treasury models.Address `json:"treasury"`
}

func (e TicketAssetCollectedEvent) Type() EventType {
	return EventTypeTicketAssetCollected
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

	// Call handlers asynchronously to avoid blocking the committing caller
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

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event until commit")
	b.pending = append(b.pending, e)
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Handlers outlive the request, so they must not inherit its cancellation
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}

	log.WithField("eventCount", len(b.pending)).Debug("Flushed pending events")
	b.pending = nil
	return nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	if len(b.pending) > 0 {
		log.WithField("eventCount", len(b.pending)).Debug("Discarding events of rolled back unit of work")
	}
	b.pending = nil
}
