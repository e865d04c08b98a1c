package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"raffler/infrastructure/observability"
	"raffler/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Oracle round-trip subjects
const (
	RandomnessRequestSubject   = "randomness.requests"
	RandomnessFulfilledSubject = "randomness.fulfilled"
)

// RandomnessRequestMessage is what the oracle receives for every draw
type RandomnessRequestMessage struct {
	RequestID   uuid.UUID      `json:"request_id"`
	Raffle      models.Address `json:"raffle"`
	Payer       models.Address `json:"payer"`
	NumBytes    int            `json:"num_bytes"`
	PriorityFee uint64         `json:"priority_fee"`
	ReplyTo     string         `json:"reply_to"`
	Attempt     int            `json:"attempt"`
}

// RandomnessFulfilledMessage is the oracle's reply. Randomness is base64 in JSON.
type RandomnessFulfilledMessage struct {
	RequestID  uuid.UUID      `json:"request_id"`
	Oracle     models.Address `json:"oracle"`
	Randomness []byte         `json:"randomness"`
}

// NATSRandomnessOracle publishes randomness requests for the external oracle
type NATSRandomnessOracle struct {
	bus     MessageBus
	metrics *observability.MetricsProvider
}

// NewNATSRandomnessOracle creates the oracle transport. metrics may be nil.
func NewNATSRandomnessOracle(bus MessageBus, metrics *observability.MetricsProvider) *NATSRandomnessOracle {
	return &NATSRandomnessOracle{bus: bus, metrics: metrics}
}

// RequestRandomness publishes the request to the oracle subject
func (o *NATSRandomnessOracle) RequestRandomness(ctx context.Context, request *models.RandomnessRequest) error {
	data, err := json.Marshal(RandomnessRequestMessage{
		RequestID:   request.ID,
		Raffle:      request.Raffle,
		Payer:       request.Payer,
		NumBytes:    request.ByteCount,
		PriorityFee: request.PriorityFee,
		ReplyTo:     RandomnessFulfilledSubject,
		Attempt:     request.PublishCount + 1,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal randomness request: %w", err)
	}

	if err := o.bus.Publish(ctx, RandomnessRequestSubject, data); err != nil {
		return err
	}
	o.metrics.RecordNATSMessagePublished(RandomnessRequestSubject)
	o.metrics.RecordRandomnessRequested(request.PublishCount > 0)

	log.WithFields(log.Fields{
		"requestID": request.ID,
		"raffle":    request.Raffle,
		"attempt":   request.PublishCount + 1,
	}).Debug("Published randomness request")
	return nil
}

// RandomnessConsumer stores oracle replies
type RandomnessConsumer interface {
	ConsumeRandomness(ctx context.Context, requestID uuid.UUID, oracle models.Address, seed []byte) error
}

// RandomnessFulfillmentListener routes oracle replies from NATS to the raffle service
type RandomnessFulfillmentListener struct {
	consumer RandomnessConsumer
	metrics  *observability.MetricsProvider
}

// NewRandomnessFulfillmentListener creates a new listener. metrics may be nil.
func NewRandomnessFulfillmentListener(consumer RandomnessConsumer, metrics *observability.MetricsProvider) *RandomnessFulfillmentListener {
	return &RandomnessFulfillmentListener{consumer: consumer, metrics: metrics}
}

// Start subscribes the listener to the fulfilment subject
func (l *RandomnessFulfillmentListener) Start(bus MessageBus) error {
	return bus.Subscribe(RandomnessFulfilledSubject, func(data []byte) error {
		return l.HandleFulfilled(context.Background(), data)
	})
}

// HandleFulfilled consumes one oracle reply. Only infrastructure failures are
// returned, so that rejected replies are acked instead of redelivered.
func (l *RandomnessFulfillmentListener) HandleFulfilled(ctx context.Context, data []byte) error {
	l.metrics.RecordNATSMessageReceived(RandomnessFulfilledSubject)

	var msg RandomnessFulfilledMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.WithError(err).Error("Discarding undecodable randomness fulfilment")
		l.metrics.RecordRandomnessFulfilment(observability.OutcomeDiscarded)
		return nil
	}

	fields := log.Fields{
		"requestID": msg.RequestID,
		"oracle":    msg.Oracle,
	}

	err := l.consumer.ConsumeRandomness(ctx, msg.RequestID, msg.Oracle, msg.Randomness)
	var raffleErr *models.RaffleError
	switch {
	case err == nil:
		l.metrics.RecordRandomnessFulfilment(observability.OutcomeConsumed)
		return nil
	case models.IsFatal(err):
		log.WithFields(fields).WithError(err).Error("Oracle delivered unusable randomness")
		l.metrics.RecordRandomnessFulfilment(observability.OutcomeFatal)
		return nil
	case errors.As(err, &raffleErr):
		log.WithFields(fields).WithError(err).Warn("Randomness fulfilment rejected")
		l.metrics.RecordRandomnessFulfilment(observability.OutcomeRejected)
		return nil
	default:
		l.metrics.RecordRandomnessFulfilment(observability.OutcomeRetried)
		return fmt.Errorf("failed to consume randomness: %w", err)
	}
}
