package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"raffler/infrastructure/observability"
	"raffler/models"
	"raffler/service"

	log "github.com/sirupsen/logrus"
)

// MessageHandler defines a function that handles raw message bytes
type MessageHandler func(ctx context.Context, data []byte) error

// invalidCommandError marks a payload that could not be decoded
type invalidCommandError struct {
	err error
}

func (e *invalidCommandError) Error() string {
	return fmt.Sprintf("invalid command payload: %v", e.err)
}

func (e *invalidCommandError) Unwrap() error {
	return e.err
}

// command adapts a typed command function to a MessageHandler
func command[T any](fn func(ctx context.Context, cmd T) error) MessageHandler {
	return func(ctx context.Context, data []byte) error {
		var cmd T
		if err := json.Unmarshal(data, &cmd); err != nil {
			return &invalidCommandError{err: err}
		}
		return fn(ctx, cmd)
	}
}

// RaffleCommandConsumer routes raffle commands from NATS to the services.
// Callers are expected to be authenticated by the NATS account that may publish on the command subjects.
type RaffleCommandConsumer struct {
	raffles  service.RaffleService
	tickets  service.TicketService
	bus      MessageBus
	metrics  *observability.MetricsProvider
	handlers map[string]MessageHandler
	mu       sync.RWMutex
}

// NewRaffleCommandConsumer creates a consumer with a handler for every command subject
func NewRaffleCommandConsumer(raffles service.RaffleService, tickets service.TicketService, bus MessageBus, metrics *observability.MetricsProvider) *RaffleCommandConsumer {
	c := &RaffleCommandConsumer{
		raffles:  raffles,
		tickets:  tickets,
		bus:      bus,
		metrics:  metrics,
		handlers: make(map[string]MessageHandler),
	}

	c.RegisterHandler(InitRaffleSubject, command(func(ctx context.Context, cmd InitRaffleCommand) error {
		_, err := c.raffles.InitRaffle(ctx, cmd.params())
		return err
	}))
	c.RegisterHandler(BuyTicketsTokenSubject, command(func(ctx context.Context, cmd BuyTicketsTokenCommand) error {
		_, err := c.tickets.BuyTicketsToken(ctx, cmd.params())
		return err
	}))
	c.RegisterHandler(BuyTicketUniqueSendSubject, command(func(ctx context.Context, cmd BuyTicketUniqueCommand) error {
		_, err := c.tickets.BuyTicketUniqueSend(ctx, cmd.params())
		return err
	}))
	c.RegisterHandler(BuyTicketUniqueBurnSubject, command(func(ctx context.Context, cmd BuyTicketUniqueCommand) error {
		_, err := c.tickets.BuyTicketUniqueBurn(ctx, cmd.params())
		return err
	}))
	c.RegisterHandler(DrawWinnerSubject, command(func(ctx context.Context, cmd DrawWinnerCommand) error {
		_, err := c.raffles.DrawWinner(ctx, models.DrawWinnerParams{
			Raffle:      cmd.Raffle,
			Payer:       cmd.Payer,
			URI:         cmd.URI,
			PriorityFee: cmd.PriorityFee,
		})
		return err
	}))
	c.RegisterHandler(ClaimPrizeSubject, command(func(ctx context.Context, cmd ClaimPrizeCommand) error {
		_, err := c.raffles.ClaimPrize(ctx, models.ClaimPrizeParams{
			Raffle:      cmd.Raffle,
			Winner:      cmd.Winner,
			Payer:       cmd.Payer,
			TicketIndex: cmd.TicketIndex,
		})
		return err
	}))
	c.RegisterHandler(CollectPrizeSubject, command(func(ctx context.Context, cmd CollectPrizeCommand) error {
		_, err := c.raffles.CollectUnclaimedPrize(ctx, cmd.Raffle, cmd.Caller)
		return err
	}))
	c.RegisterHandler(CollectTicketAssetSubject, command(func(ctx context.Context, cmd CollectTicketAssetCommand) error {
		return c.raffles.CollectTicketAsset(ctx, cmd.Raffle, cmd.Asset, cmd.Caller)
	}))
	c.RegisterHandler(SetEntrantsURISubject, command(func(ctx context.Context, cmd SetEntrantsURICommand) error {
		return c.raffles.SetEntrantsURI(ctx, cmd.Raffle, cmd.Caller, cmd.URI)
	}))
	c.RegisterHandler(DeleteRaffleSubject, command(func(ctx context.Context, cmd DeleteRaffleCommand) error {
		return c.raffles.DeleteRaffle(ctx, cmd.Raffle, cmd.Caller)
	}))
	c.RegisterHandler(RecoverUniqueAssetSubject, command(func(ctx context.Context, cmd RecoverUniqueAssetCommand) error {
		return c.raffles.RecoverUniqueAsset(ctx, models.RecoverUniqueAssetParams{
			Entrants:    cmd.Entrants,
			Asset:       cmd.Asset,
			Destination: cmd.Destination,
			Caller:      cmd.Caller,
		})
	}))

	return c
}

// RegisterHandler registers a handler for a specific subject
func (c *RaffleCommandConsumer) RegisterHandler(subject string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[subject] = handler
	log.WithField("subject", subject).Debug("Registered command handler")
}

// Subjects returns every registered command subject in a stable order
func (c *RaffleCommandConsumer) Subjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subjects := make([]string, 0, len(c.handlers))
	for subject := range c.handlers {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// Start subscribes to every registered command subject
func (c *RaffleCommandConsumer) Start(bus MessageBus) error {
	subjects := c.Subjects()
	for _, subject := range subjects {
		subject := subject
		err := bus.Subscribe(subject, func(data []byte) error {
			return c.Handle(context.Background(), subject, data)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	log.WithField("subjects", subjects).Info("Raffle command consumer started")
	return nil
}

// Handle executes one command. Rejected commands are reported on CommandRejectedSubject
// and acknowledged; only infrastructure failures are returned for redelivery.
func (c *RaffleCommandConsumer) Handle(ctx context.Context, subject string, data []byte) error {
	c.metrics.RecordNATSMessageReceived(subject)

	c.mu.RLock()
	handler, exists := c.handlers[subject]
	c.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no handler registered for subject: %s", subject)
	}

	err := handler(ctx, data)
	if err == nil {
		return nil
	}

	var header commandHeader
	if headerErr := json.Unmarshal(data, &header); headerErr != nil {
		log.WithField("subject", subject).WithError(headerErr).Debug("Command header could not be decoded, rejecting without command_id")
	}
	rejection := CommandRejection{
		CommandID: header.CommandID,
		Subject:   subject,
	}

	var raffleErr *models.RaffleError
	var invalid *invalidCommandError
	switch {
	case errors.As(err, &raffleErr):
		rejection.Code = raffleErr.Code
		rejection.Name = raffleErr.Name
		rejection.Message = raffleErr.Message
	case errors.As(err, &invalid):
		rejection.Name = "InvalidCommand"
		rejection.Message = invalid.Error()
	default:
		log.WithFields(log.Fields{
			"subject":   subject,
			"commandID": header.CommandID,
		}).WithError(err).Error("Failed to handle command")
		return err
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"commandID": header.CommandID,
		"code":      rejection.Code,
		"name":      rejection.Name,
	}).Warn("Command rejected")

	payload, marshalErr := json.Marshal(rejection)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal command rejection: %w", marshalErr)
	}
	if pubErr := c.bus.Publish(ctx, CommandRejectedSubject, payload); pubErr != nil {
		return fmt.Errorf("failed to publish command rejection: %w", pubErr)
	}
	c.metrics.RecordNATSMessagePublished(CommandRejectedSubject)
	return nil
}
