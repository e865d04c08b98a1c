package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"raffler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan TicketsPurchasedEvent, 1)
	mainBus.Subscribe(EventTypeTicketsPurchased, func(ctx context.Context, event Event) {
		purchased, ok := event.(TicketsPurchasedEvent)
		if !ok {
			t.Errorf("Expected TicketsPurchasedEvent, got %T", event)
			return
		}
		eventReceived <- purchased
	})

	testEvent := TicketsPurchasedEvent{
		Raffle:     models.Address{1},
		Entrant:    models.Address{2},
		Amount:     3,
		Cost:       300,
		FirstIndex: 0,
		Total:      3,
	}

	transactionalBus.Publish(testEvent)
	require.Len(t, transactionalBus.Pending(), 1)

	require.NoError(t, transactionalBus.Flush(context.Background()))
	assert.Empty(t, transactionalBus.Pending())

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan Event, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	handler := func(ctx context.Context, event Event) {
		defer wg.Done()
		received <- event
	}
	mainBus.Subscribe(EventTypeRaffleCreated, handler)
	mainBus.Subscribe(EventTypeRandomnessConsumed, handler)
	mainBus.Subscribe(EventTypePrizeClaimed, handler)

	transactionalBus.Publish(RaffleCreatedEvent{Raffle: models.Address{1}})
	transactionalBus.Publish(RandomnessConsumedEvent{Raffle: models.Address{1}, Entrants: 3})
	transactionalBus.Publish(PrizeClaimedEvent{Raffle: models.Address{1}, Fee: 7, Treasury: 293})

	require.NoError(t, transactionalBus.Flush(context.Background()))
	wg.Wait()
	close(received)

	types := make(map[EventType]bool)
	for ev := range received {
		types[ev.Type()] = true
	}
	assert.Len(t, types, 3)
}

// TestDiscardDropsPendingEvents verifies that rolled back work never reaches subscribers
func TestDiscardDropsPendingEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := make(chan Event, 1)
	mainBus.Subscribe(EventTypeTicketsPurchased, func(ctx context.Context, event Event) {
		delivered <- event
	})

	transactionalBus.Publish(TicketsPurchasedEvent{Amount: 1})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case ev := <-delivered:
		t.Fatalf("unexpected event delivered: %v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestHandlerPanicIsContained checks that a panicking subscriber does not take down the bus
func TestHandlerPanicIsContained(t *testing.T) {
	mainBus := NewBus()

	done := make(chan struct{})
	mainBus.Subscribe(EventTypeRaffleDeleted, func(ctx context.Context, event Event) {
		panic("boom")
	})
	mainBus.Subscribe(EventTypeRaffleDeleted, func(ctx context.Context, event Event) {
		close(done)
	})

	mainBus.Emit(context.Background(), RaffleDeletedEvent{Raffle: models.Address{9}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler did not run")
	}
}
