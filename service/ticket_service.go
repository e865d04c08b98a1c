package service

import (
	"context"
	"fmt"
	"time"

	"raffler/config"
	"raffler/events"
	"raffler/models"

	log "github.com/sirupsen/logrus"
)

type ticketService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	now        Clock
}

// NewTicketService creates a new ticket service. A nil clock uses wall time.
func NewTicketService(uowFactory UnitOfWorkFactory, cfg *config.Config, clock Clock) TicketService {
	if clock == nil {
		clock = time.Now
	}
	return &ticketService{
		uowFactory: uowFactory,
		config:     cfg,
		now:        clock,
	}
}

func (s *ticketService) BuyTicketsToken(ctx context.Context, params models.BuyTicketsTokenParams) (*models.PurchaseResult, error) {
	if params.Amount == 0 {
		return nil, models.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := lockRaffle(ctx, uow, params.Raffle)
	if err != nil {
		return nil, err
	}
	if raffle.PaymentPolicy.Kind != models.PaymentPolicyToken {
		return nil, models.ErrUniqueAssetInstruction
	}
	if err := raffle.CheckPurchaseWindow(s.now()); err != nil {
		return nil, err
	}

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	if err := checkGate(ctx, custody, raffle, params.Entrant, params.Gate); err != nil {
		return nil, err
	}
	if raffle.EntryPolicy.Kind == models.EntryPolicyStake {
		return nil, models.ErrInvalidInstruction
	}

	asset := raffle.PaymentPolicy.AssetType
	if params.PaymentAsset != asset {
		return nil, models.ErrInvalidTokenMint
	}
	cost, err := models.TicketCost(raffle.PaymentPolicy.TicketPrice, params.Amount)
	if err != nil {
		return nil, err
	}

	ledger, err := lockLedger(ctx, uow, raffle)
	if err != nil {
		return nil, err
	}
	if params.Amount > ledger.Remaining() {
		return nil, fmt.Errorf("%w: %d requested, %d left", models.ErrSoldOut, params.Amount, ledger.Remaining())
	}

	source := models.AssociatedAccount(params.Entrant, asset)
	native := asset == s.config.NativeMint
	if native {
		if err := s.wrapNative(ctx, custody, params.Entrant, cost); err != nil {
			return nil, err
		}
	}

	burned := raffle.EntryPolicy.Kind == models.EntryPolicyBurn
	if burned {
		if err := custody.Burn(ctx, asset, cost, source, params.Entrant); err != nil {
			return nil, fmt.Errorf("failed to burn ticket payment: %w", err)
		}
	} else {
		escrow := models.AssociatedAccount(raffle.Address, asset)
		if err := custody.Transfer(ctx, asset, cost, source, escrow, params.Entrant); err != nil {
			return nil, fmt.Errorf("failed to transfer ticket payment: %w", err)
		}
	}

	if err := closeIfEmpty(ctx, custody, source, params.Entrant); err != nil {
		return nil, err
	}

	first, err := AppendTickets(ctx, uow, custody, ledger, params.Entrant, params.Entrant, params.Amount)
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.TicketsPurchasedEvent{
		Raffle:     raffle.Address,
		Entrant:    params.Entrant,
		Amount:     params.Amount,
		Cost:       cost,
		FirstIndex: first,
		Total:      ledger.Total,
		Burned:     burned,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":  raffle.Address,
		"entrant": params.Entrant,
		"amount":  params.Amount,
		"cost":    cost,
		"total":   ledger.Total,
	}).Info("Tickets purchased")

	return &models.PurchaseResult{
		Raffle:     raffle.Address,
		Entrant:    params.Entrant,
		FirstIndex: first,
		Amount:     params.Amount,
		Cost:       cost,
		Total:      ledger.Total,
	}, nil
}

func (s *ticketService) BuyTicketUniqueSend(ctx context.Context, params models.BuyTicketUniqueParams) (*models.PurchaseResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	raffle, ledger, err := s.prepareUniquePurchase(ctx, uow, custody, params, models.EntryPolicySpend)
	if err != nil {
		return nil, err
	}

	escrow, err := custody.EnsureAccount(ctx, raffle.Address, params.Asset, params.Entrant)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset escrow: %w", err)
	}
	source := models.AssociatedAccount(params.Entrant, params.Asset)
	if err := custody.TransferUnique(ctx, params.Asset, source, escrow.Address, params.Entrant, params.Royalty); err != nil {
		return nil, fmt.Errorf("failed to transfer ticket asset: %w", err)
	}
	if err := closeIfEmpty(ctx, custody, source, params.Entrant); err != nil {
		return nil, err
	}

	first, err := AppendTickets(ctx, uow, custody, ledger, params.Entrant, params.Entrant, 1)
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.TicketsPurchasedEvent{
		Raffle:     raffle.Address,
		Entrant:    params.Entrant,
		Amount:     1,
		FirstIndex: first,
		Total:      ledger.Total,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":  raffle.Address,
		"entrant": params.Entrant,
		"asset":   params.Asset,
	}).Info("Ticket purchased with unique asset")

	return &models.PurchaseResult{
		Raffle:     raffle.Address,
		Entrant:    params.Entrant,
		FirstIndex: first,
		Amount:     1,
		Total:      ledger.Total,
	}, nil
}

func (s *ticketService) BuyTicketUniqueBurn(ctx context.Context, params models.BuyTicketUniqueParams) (*models.PurchaseResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	raffle, ledger, err := s.prepareUniquePurchase(ctx, uow, custody, params, models.EntryPolicyBurn)
	if err != nil {
		return nil, err
	}

	before, err := custody.NativeBalance(ctx, params.Entrant)
	if err != nil {
		return nil, fmt.Errorf("failed to read entrant balance: %w", err)
	}
	source := models.AssociatedAccount(params.Entrant, params.Asset)
	if err := custody.BurnUnique(ctx, params.Asset, source, params.Entrant); err != nil {
		return nil, fmt.Errorf("failed to burn ticket asset: %w", err)
	}

	var withheld uint64
	if raffle.EntryPolicy.WithholdProceeds {
		after, err := custody.NativeBalance(ctx, params.Entrant)
		if err != nil {
			return nil, fmt.Errorf("failed to read entrant balance: %w", err)
		}
		if withheld, err = models.CheckedSub(after, before); err != nil {
			return nil, err
		}
		escrow := models.AssociatedAccount(raffle.Address, s.config.NativeMint)
		if err := custody.TransferNative(ctx, params.Entrant, escrow, withheld); err != nil {
			return nil, fmt.Errorf("failed to withhold burn proceeds: %w", err)
		}
		if err := custody.SyncNative(ctx, escrow); err != nil {
			return nil, fmt.Errorf("failed to sync proceeds escrow: %w", err)
		}
	}

	first, err := AppendTickets(ctx, uow, custody, ledger, params.Entrant, params.Entrant, 1)
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.TicketsPurchasedEvent{
		Raffle:     raffle.Address,
		Entrant:    params.Entrant,
		Amount:     1,
		Cost:       withheld,
		FirstIndex: first,
		Total:      ledger.Total,
		Burned:     true,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":   raffle.Address,
		"entrant":  params.Entrant,
		"asset":    params.Asset,
		"withheld": withheld,
	}).Info("Ticket purchased by burning unique asset")

	return &models.PurchaseResult{
		Raffle:           raffle.Address,
		Entrant:          params.Entrant,
		FirstIndex:       first,
		Amount:           1,
		Total:            ledger.Total,
		WithheldProceeds: withheld,
	}, nil
}

// prepareUniquePurchase runs the checks shared by both unique-asset purchase paths
func (s *ticketService) prepareUniquePurchase(ctx context.Context, uow UnitOfWork, custody AssetCustody, params models.BuyTicketUniqueParams, entry models.EntryPolicyKind) (*models.Raffle, *models.EntrantLedger, error) {
	raffle, err := lockRaffle(ctx, uow, params.Raffle)
	if err != nil {
		return nil, nil, err
	}
	if raffle.PaymentPolicy.Kind != models.PaymentPolicyUniqueAsset {
		return nil, nil, models.ErrTokenInstruction
	}
	if err := raffle.CheckPurchaseWindow(s.now()); err != nil {
		return nil, nil, err
	}
	if err := checkGate(ctx, custody, raffle, params.Entrant, params.Gate); err != nil {
		return nil, nil, err
	}
	if raffle.EntryPolicy.Kind != entry {
		return nil, nil, models.ErrInvalidInstruction
	}

	asset, err := custody.AssetType(ctx, params.Asset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get ticket asset: %w", err)
	}
	if asset == nil {
		return nil, nil, fmt.Errorf("%w: asset type %s", models.ErrAccountNotFound, params.Asset)
	}
	if !asset.IsUnique() {
		return nil, nil, models.ErrTokenNotUnique
	}
	if !asset.InCollection(raffle.PaymentPolicy.RequiredCollection) {
		return nil, nil, models.ErrInvalidCollection
	}

	ledger, err := lockLedger(ctx, uow, raffle)
	if err != nil {
		return nil, nil, err
	}
	if ledger.IsSoldOut() {
		return nil, nil, models.ErrSoldOut
	}
	return raffle, ledger, nil
}

// wrapNative tops up the entrant's wrapped-native account so it holds at least cost
func (s *ticketService) wrapNative(ctx context.Context, custody AssetCustody, entrant models.Address, cost uint64) error {
	account, err := custody.EnsureAccount(ctx, entrant, s.config.NativeMint, entrant)
	if err != nil {
		return fmt.Errorf("failed to open wrapped native account: %w", err)
	}
	if account.Amount >= cost {
		return nil
	}
	if err := custody.TransferNative(ctx, entrant, account.Address, cost-account.Amount); err != nil {
		return fmt.Errorf("failed to wrap native payment: %w", err)
	}
	if err := custody.SyncNative(ctx, account.Address); err != nil {
		return fmt.Errorf("failed to sync wrapped native account: %w", err)
	}
	return nil
}

// closeIfEmpty returns the deposit of a drained payment account to its owner
func closeIfEmpty(ctx context.Context, custody AssetCustody, account, owner models.Address) error {
	acct, err := custody.Account(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get payment account: %w", err)
	}
	if acct == nil || acct.Amount != 0 {
		return nil
	}
	if err := custody.CloseEmptyAccount(ctx, account, owner, owner); err != nil {
		return fmt.Errorf("failed to close payment account: %w", err)
	}
	return nil
}
