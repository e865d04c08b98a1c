package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"raffler/events"
	"raffler/models"
	"raffler/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRandomnessRequestWorker_AttachDispatchesCommittedDraws(t *testing.T) {
	dispatcher := new(service.MockRandomnessDispatcher)
	worker := NewRandomnessRequestWorker(dispatcher, time.Hour)

	bus := events.NewBus()
	worker.Attach(bus)

	requestID := uuid.New()
	dispatched := make(chan struct{})
	dispatcher.On("Dispatch", mock.Anything, requestID).
		Return(errors.New("nats unavailable")).
		Run(func(args mock.Arguments) { close(dispatched) }).
		Once()

	bus.Emit(context.Background(), events.RandomnessRequestedEvent{
		RequestID: requestID,
		Raffle:    models.Address{0x01},
	})

	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("request was not dispatched")
	}
	dispatcher.AssertExpectations(t)
}

func TestRandomnessRequestWorker_StartSweepsImmediately(t *testing.T) {
	dispatcher := new(service.MockRandomnessDispatcher)
	worker := NewRandomnessRequestWorker(dispatcher, time.Hour)

	swept := make(chan struct{}, 1)
	dispatcher.On("DispatchStale", mock.Anything).
		Return(0, nil).
		Run(func(args mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		})

	stop := worker.Start(context.Background())

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("startup sweep did not run")
	}

	stop()
	// Stopping twice is safe
	stop()
	dispatcher.AssertCalled(t, "DispatchStale", mock.Anything)
}

func TestRandomnessRequestWorker_StopsOnContextCancel(t *testing.T) {
	dispatcher := new(service.MockRandomnessDispatcher)
	var sweeps atomic.Int32
	dispatcher.On("DispatchStale", mock.Anything).
		Return(0, errors.New("database unavailable")).
		Run(func(args mock.Arguments) { sweeps.Add(1) })

	worker := NewRandomnessRequestWorker(dispatcher, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	stop := worker.Start(ctx)

	// Errors do not stop the ticker
	assert.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	stop()
}
