package worker

import (
	"context"
	"time"

	"raffler/events"
	"raffler/service"

	log "github.com/sirupsen/logrus"
)

// RandomnessRequestWorker delivers randomness requests to the oracle.
// Fresh draws are dispatched as soon as they commit; a periodic sweep
// republishes requests the oracle never answered.
type RandomnessRequestWorker struct {
	dispatcher service.RandomnessDispatcher
	interval   time.Duration
}

// NewRandomnessRequestWorker creates a worker that sweeps every interval
func NewRandomnessRequestWorker(dispatcher service.RandomnessDispatcher, interval time.Duration) *RandomnessRequestWorker {
	return &RandomnessRequestWorker{
		dispatcher: dispatcher,
		interval:   interval,
	}
}

// Attach dispatches each randomness request once its draw has committed
func (w *RandomnessRequestWorker) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRandomnessRequested, func(ctx context.Context, e events.Event) {
		requested, ok := e.(events.RandomnessRequestedEvent)
		if !ok {
			return
		}
		if err := w.dispatcher.Dispatch(ctx, requested.RequestID); err != nil {
			// The sweep picks it up on the next tick
			log.WithFields(log.Fields{
				"requestID": requested.RequestID,
				"raffle":    requested.Raffle,
			}).WithError(err).Warn("Failed to dispatch randomness request")
		}
	})
}

// Start runs the stale request sweep in the background.
// Returns a cleanup function to stop the worker gracefully.
func (w *RandomnessRequestWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})

	sweep := func() {
		if _, err := w.dispatcher.DispatchStale(ctx); err != nil {
			log.WithError(err).Error("Error republishing stale randomness requests")
		}
	}

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Randomness request worker started")

		// Run immediately on startup
		sweep()

		for {
			select {
			case <-ctx.Done():
				log.Info("Randomness request worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Randomness request worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()

	return func() {
		ticker.Stop()
		select {
		case <-stopChan:
		default:
			close(stopChan)
		}
		<-done
	}
}
