package service

import (
	"context"
	"fmt"

	"raffler/models"
)

// AppendTickets grows the ledger if needed, reserves amount consecutive slots for
// entrant and persists them. The ledger must be locked by the caller.
// It is the single entry point for writing ledger entries.
func AppendTickets(ctx context.Context, uow UnitOfWork, custody AssetCustody, ledger *models.EntrantLedger, entrant, payer models.Address, amount uint32) (uint32, error) {
	if amount > ledger.Remaining() {
		return 0, fmt.Errorf("%w: %d requested, %d left", models.ErrSoldOut, amount, ledger.Remaining())
	}
	if err := ensureCapacity(ctx, custody, ledger, payer, amount); err != nil {
		return 0, err
	}

	first, err := ledger.Append()
	if err != nil {
		return 0, err
	}
	for i := uint32(1); i < amount; i++ {
		if _, err := ledger.Append(); err != nil {
			return 0, err
		}
	}

	if err := uow.EntrantRepository().AppendEntrants(ctx, ledger.Address, first, entrant, amount); err != nil {
		return 0, fmt.Errorf("failed to append entrants: %w", err)
	}
	if err := uow.EntrantRepository().UpdateLedger(ctx, ledger); err != nil {
		return 0, fmt.Errorf("failed to update ledger: %w", err)
	}
	return first, nil
}

// ensureCapacity funds the ledger deposit for amount more entries and records the new size
func ensureCapacity(ctx context.Context, custody AssetCustody, ledger *models.EntrantLedger, payer models.Address, amount uint32) error {
	required := ledger.RequiredStorage(amount)
	if required <= ledger.StorageBytes {
		return nil
	}

	deposit := models.RentExemptMinimum(required)
	balance, err := custody.NativeBalance(ctx, ledger.Address)
	if err != nil {
		return fmt.Errorf("failed to read ledger deposit: %w", err)
	}
	if deposit > balance {
		if err := custody.TransferNative(ctx, payer, ledger.Address, deposit-balance); err != nil {
			return fmt.Errorf("failed to fund ledger growth: %w", err)
		}
	}
	ledger.Grow(required)
	return nil
}

// checkGate verifies the entrant holds a verified member of the raffle's gating collection
func checkGate(ctx context.Context, custody AssetCustody, raffle *models.Raffle, entrant models.Address, proof *models.GateProof) error {
	if !raffle.IsGated() {
		return nil
	}
	if proof == nil {
		return models.ErrGatedRaffle
	}

	asset, err := custody.AssetType(ctx, proof.Asset)
	if err != nil {
		return fmt.Errorf("failed to get gating asset: %w", err)
	}
	if asset == nil || !asset.InCollection(*raffle.GatedCollection) {
		return models.ErrInvalidCollection
	}

	holding, err := custody.Account(ctx, models.AssociatedAccount(entrant, proof.Asset))
	if err != nil {
		return fmt.Errorf("failed to get gating account: %w", err)
	}
	if holding == nil || holding.Owner != entrant || holding.Amount != 1 {
		return models.ErrGatedRaffle
	}
	return nil
}

// lockRaffle loads a raffle for update and maps a missing row to ErrRaffleNotFound
func lockRaffle(ctx context.Context, uow UnitOfWork, address models.Address) (*models.Raffle, error) {
	raffle, err := uow.RaffleRepository().GetByAddressForUpdate(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, models.ErrRaffleNotFound
	}
	return raffle, nil
}

// lockLedger loads the ledger of raffle for update
func lockLedger(ctx context.Context, uow UnitOfWork, raffle *models.Raffle) (*models.EntrantLedger, error) {
	ledger, err := uow.EntrantRepository().GetLedgerForUpdate(ctx, raffle.Entrants)
	if err != nil {
		return nil, fmt.Errorf("failed to get entrant ledger: %w", err)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: entrant ledger %s", models.ErrAccountNotFound, raffle.Entrants)
	}
	return ledger, nil
}
