package service

import (
	"context"

	"raffler/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRaffleService is a mock implementation of RaffleService
type MockRaffleService struct {
	mock.Mock
}

func (m *MockRaffleService) InitRaffle(ctx context.Context, params models.InitRaffleParams) (*models.Raffle, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Raffle), args.Error(1)
}

func (m *MockRaffleService) GetRaffle(ctx context.Context, address models.Address) (*models.RaffleDetail, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaffleDetail), args.Error(1)
}

func (m *MockRaffleService) SetEntrantsURI(ctx context.Context, raffle, caller models.Address, uri string) error {
	args := m.Called(ctx, raffle, caller, uri)
	return args.Error(0)
}

func (m *MockRaffleService) DrawWinner(ctx context.Context, params models.DrawWinnerParams) (*models.RandomnessRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RandomnessRequest), args.Error(1)
}

func (m *MockRaffleService) ConsumeRandomness(ctx context.Context, requestID uuid.UUID, oracle models.Address, seed []byte) error {
	args := m.Called(ctx, requestID, oracle, seed)
	return args.Error(0)
}

func (m *MockRaffleService) ClaimPrize(ctx context.Context, params models.ClaimPrizeParams) (*models.Settlement, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settlement), args.Error(1)
}

func (m *MockRaffleService) CollectUnclaimedPrize(ctx context.Context, raffle, caller models.Address) (*models.Settlement, error) {
	args := m.Called(ctx, raffle, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settlement), args.Error(1)
}

func (m *MockRaffleService) CollectTicketAsset(ctx context.Context, raffle, asset, caller models.Address) error {
	args := m.Called(ctx, raffle, asset, caller)
	return args.Error(0)
}

func (m *MockRaffleService) DeleteRaffle(ctx context.Context, raffle, caller models.Address) error {
	args := m.Called(ctx, raffle, caller)
	return args.Error(0)
}

func (m *MockRaffleService) RecoverUniqueAsset(ctx context.Context, params models.RecoverUniqueAssetParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockTicketService is a mock implementation of TicketService
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) BuyTicketsToken(ctx context.Context, params models.BuyTicketsTokenParams) (*models.PurchaseResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func (m *MockTicketService) BuyTicketUniqueSend(ctx context.Context, params models.BuyTicketUniqueParams) (*models.PurchaseResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func (m *MockTicketService) BuyTicketUniqueBurn(ctx context.Context, params models.BuyTicketUniqueParams) (*models.PurchaseResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}
