package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"raffler/models"
	"raffler/service"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCommandConsumer() (*RaffleCommandConsumer, *service.MockRaffleService, *service.MockTicketService, *fakeMessageBus) {
	raffles := new(service.MockRaffleService)
	tickets := new(service.MockTicketService)
	bus := newFakeMessageBus()
	return NewRaffleCommandConsumer(raffles, tickets, bus, nil), raffles, tickets, bus
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRaffleCommandConsumer_InitRaffle(t *testing.T) {
	consumer, raffles, _, bus := newTestCommandConsumer()

	paymentAsset := models.Address{0x60}
	price := uint64(100)
	maxTickets := uint32(3)
	cmd := InitRaffleCommand{
		CommandID:       "cmd-1",
		Sponsor:         models.Address{0x01},
		Authority:       models.Address{0x02},
		Prize:           models.Address{0x03},
		MaxTickets:      &maxTickets,
		EntryPolicy:     models.SpendEntry(),
		PaymentAsset:    &paymentAsset,
		TicketPrice:     &price,
		DurationSeconds: 3600,
	}

	raffles.On("InitRaffle", mock.Anything, mock.MatchedBy(func(p models.InitRaffleParams) bool {
		return p.Sponsor == cmd.Sponsor &&
			p.Prize == cmd.Prize &&
			p.Duration == time.Hour &&
			p.Entrants.IsZero() &&
			*p.PaymentAsset == paymentAsset &&
			*p.TicketPrice == price &&
			*p.MaxTickets == maxTickets
	})).Return(&models.Raffle{}, nil).Once()

	require.NoError(t, consumer.Handle(context.Background(), InitRaffleSubject, mustJSON(t, cmd)))
	raffles.AssertExpectations(t)
	assert.Empty(t, bus.messages())
}

func TestRaffleCommandConsumer_BuyTicketsWithGate(t *testing.T) {
	consumer, _, tickets, _ := newTestCommandConsumer()

	gate := models.Address{0x70}
	cmd := BuyTicketsTokenCommand{
		Raffle:       models.Address{0x01},
		Entrant:      models.Address{0x02},
		PaymentAsset: models.Address{0x03},
		Amount:       4,
		GateAsset:    &gate,
	}
	tickets.On("BuyTicketsToken", mock.Anything, models.BuyTicketsTokenParams{
		Raffle:       cmd.Raffle,
		Entrant:      cmd.Entrant,
		PaymentAsset: cmd.PaymentAsset,
		Amount:       4,
		Gate:         &models.GateProof{Asset: gate},
	}).Return(&models.PurchaseResult{Amount: 4}, nil).Once()

	require.NoError(t, consumer.Handle(context.Background(), BuyTicketsTokenSubject, mustJSON(t, cmd)))
	tickets.AssertExpectations(t)
}

func TestRaffleCommandConsumer_UniquePurchaseSubjects(t *testing.T) {
	consumer, _, tickets, _ := newTestCommandConsumer()

	cmd := BuyTicketUniqueCommand{
		Raffle:  models.Address{0x01},
		Entrant: models.Address{0x02},
		Asset:   models.Address{0x03},
	}
	params := models.BuyTicketUniqueParams{Raffle: cmd.Raffle, Entrant: cmd.Entrant, Asset: cmd.Asset}
	tickets.On("BuyTicketUniqueSend", mock.Anything, params).Return(&models.PurchaseResult{}, nil).Once()
	tickets.On("BuyTicketUniqueBurn", mock.Anything, params).Return(&models.PurchaseResult{}, nil).Once()

	require.NoError(t, consumer.Handle(context.Background(), BuyTicketUniqueSendSubject, mustJSON(t, cmd)))
	require.NoError(t, consumer.Handle(context.Background(), BuyTicketUniqueBurnSubject, mustJSON(t, cmd)))
	tickets.AssertExpectations(t)
}

func TestRaffleCommandConsumer_RejectionsArePublished(t *testing.T) {
	consumer, raffles, _, bus := newTestCommandConsumer()

	cmd := ClaimPrizeCommand{
		CommandID: "cmd-claim",
		Raffle:    models.Address{0x01},
		Winner:    models.Address{0x02},
	}
	raffles.On("ClaimPrize", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("failed to settle: %w", models.ErrNotWinner)).Once()

	require.NoError(t, consumer.Handle(context.Background(), ClaimPrizeSubject, mustJSON(t, cmd)))

	messages := bus.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, CommandRejectedSubject, messages[0].subject)

	var rejection CommandRejection
	require.NoError(t, json.Unmarshal(messages[0].data, &rejection))
	assert.Equal(t, "cmd-claim", rejection.CommandID)
	assert.Equal(t, ClaimPrizeSubject, rejection.Subject)
	assert.Equal(t, models.ErrNotWinner.Code, rejection.Code)
	assert.Equal(t, "NotWinner", rejection.Name)
}

func TestRaffleCommandConsumer_InvalidPayload(t *testing.T) {
	consumer, raffles, _, bus := newTestCommandConsumer()

	require.NoError(t, consumer.Handle(context.Background(), DeleteRaffleSubject, []byte(`{"raffle": "not-base58!"}`)))
	raffles.AssertNotCalled(t, "DeleteRaffle", mock.Anything, mock.Anything, mock.Anything)

	messages := bus.messages()
	require.Len(t, messages, 1)
	var rejection CommandRejection
	require.NoError(t, json.Unmarshal(messages[0].data, &rejection))
	assert.Equal(t, "InvalidCommand", rejection.Name)
}

func TestRaffleCommandConsumer_DuplicateInitIsRejected(t *testing.T) {
	consumer, raffles, _, bus := newTestCommandConsumer()

	entrants := models.Address{0x05}
	raffles.On("InitRaffle", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %s", models.ErrRaffleAlreadyExists, entrants)).Once()

	cmd := InitRaffleCommand{CommandID: "cmd-dup", Entrants: &entrants, DurationSeconds: 60}
	require.NoError(t, consumer.Handle(context.Background(), InitRaffleSubject, mustJSON(t, cmd)))

	messages := bus.messages()
	require.Len(t, messages, 1)
	var rejection CommandRejection
	require.NoError(t, json.Unmarshal(messages[0].data, &rejection))
	assert.Equal(t, "cmd-dup", rejection.CommandID)
	assert.Equal(t, models.ErrRaffleAlreadyExists.Code, rejection.Code)
	assert.Equal(t, "RaffleAlreadyExists", rejection.Name)
}

func TestRaffleCommandConsumer_UndecodableHeaderIsLogged(t *testing.T) {
	hook := logtest.NewGlobal()
	level := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.SetLevel(level)
		log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
	})

	consumer, _, _, bus := newTestCommandConsumer()
	require.NoError(t, consumer.Handle(context.Background(), ClaimPrizeSubject, []byte("not json")))

	messages := bus.messages()
	require.Len(t, messages, 1)
	var rejection CommandRejection
	require.NoError(t, json.Unmarshal(messages[0].data, &rejection))
	assert.Empty(t, rejection.CommandID)
	assert.Equal(t, "InvalidCommand", rejection.Name)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.DebugLevel && entry.Data["subject"] == ClaimPrizeSubject {
			logged = true
		}
	}
	assert.True(t, logged, "header decode failure is logged at debug level")
}

func TestRaffleCommandConsumer_InfrastructureErrorsAreRedelivered(t *testing.T) {
	consumer, raffles, _, bus := newTestCommandConsumer()

	raffles.On("DeleteRaffle", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("failed to begin transaction: connection refused")).Once()

	err := consumer.Handle(context.Background(), DeleteRaffleSubject, mustJSON(t, DeleteRaffleCommand{}))
	assert.Error(t, err)
	assert.Empty(t, bus.messages())

	assert.Error(t, consumer.Handle(context.Background(), "raffle.commands.unknown", []byte(`{}`)))
}

func TestRaffleCommandConsumer_StartSubscribesEverySubject(t *testing.T) {
	consumer, raffles, _, bus := newTestCommandConsumer()
	require.NoError(t, consumer.Start(bus))

	assert.Len(t, consumer.Subjects(), 11)
	for _, subject := range consumer.Subjects() {
		assert.Contains(t, bus.handlers, subject)
	}

	raffles.On("SetEntrantsURI", mock.Anything, models.Address{0x01}, models.Address{0x02}, "ipfs://log").Return(nil).Once()
	require.NoError(t, bus.deliver(SetEntrantsURISubject, mustJSON(t, SetEntrantsURICommand{
		Raffle: models.Address{0x01},
		Caller: models.Address{0x02},
		URI:    "ipfs://log",
	})))
	raffles.AssertExpectations(t)
}
