package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// defaultDispatchBatchSize bounds how many requests one stale sweep republishes
const defaultDispatchBatchSize = 50

type randomnessDispatcher struct {
	uowFactory UnitOfWorkFactory
	oracle     RandomnessOracle
	staleAfter time.Duration
	batchSize  int
	now        Clock
}

// NewRandomnessDispatcher creates a dispatcher that publishes pending requests to oracle.
// A request published less than staleAfter ago is not published again. A nil clock uses wall time.
func NewRandomnessDispatcher(uowFactory UnitOfWorkFactory, oracle RandomnessOracle, staleAfter time.Duration, clock Clock) RandomnessDispatcher {
	if clock == nil {
		clock = time.Now
	}
	return &randomnessDispatcher{
		uowFactory: uowFactory,
		oracle:     oracle,
		staleAfter: staleAfter,
		batchSize:  defaultDispatchBatchSize,
		now:        clock,
	}
}

func (d *randomnessDispatcher) Dispatch(ctx context.Context, requestID uuid.UUID) error {
	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests := uow.RandomnessRequestRepository()
	request, err := requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to get randomness request: %w", err)
	}
	if request == nil || !request.IsPending() {
		log.WithField("requestID", requestID).Debug("Randomness request no longer pending, skipping dispatch")
		return nil
	}

	now := d.now()
	if request.PublishedAt != nil && now.Sub(*request.PublishedAt) < d.staleAfter {
		log.WithField("requestID", requestID).Debug("Randomness request already published")
		return nil
	}

	if err := d.oracle.RequestRandomness(ctx, request); err != nil {
		return fmt.Errorf("failed to publish randomness request: %w", err)
	}
	if err := requests.MarkPublished(ctx, request.ID, now); err != nil {
		return fmt.Errorf("failed to mark randomness request published: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"requestID": request.ID,
		"raffle":    request.Raffle,
	}).Info("Randomness request dispatched")
	return nil
}

func (d *randomnessDispatcher) DispatchStale(ctx context.Context) (int, error) {
	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := d.now()
	requests := uow.RandomnessRequestRepository()
	stale, err := requests.ListUnpublished(ctx, now.Add(-d.staleAfter), d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpublished randomness requests: %w", err)
	}

	published := 0
	for _, request := range stale {
		if err := d.oracle.RequestRandomness(ctx, request); err != nil {
			log.WithFields(log.Fields{
				"requestID":    request.ID,
				"raffle":       request.Raffle,
				"publishCount": request.PublishCount,
			}).WithError(err).Warn("Failed to republish randomness request")
			continue
		}
		if err := requests.MarkPublished(ctx, request.ID, now); err != nil {
			return 0, fmt.Errorf("failed to mark randomness request published: %w", err)
		}
		published++
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(stale) > 0 {
		log.WithFields(log.Fields{
			"candidates": len(stale),
			"published":  published,
		}).Info("Republished stale randomness requests")
	}
	return published, nil
}
