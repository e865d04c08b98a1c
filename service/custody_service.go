package service

import (
	"context"
	"fmt"

	"raffler/models"

	log "github.com/sirupsen/logrus"
)

// ledgerCustody implements AssetCustody on top of the custody tables of the
// current unit of work, so value moves commit or roll back with the raffle state.
type ledgerCustody struct {
	repo       CustodyRepository
	nativeMint models.Address
}

// NewLedgerCustody creates an asset custody bound to one unit of work's repository
func NewLedgerCustody(repo CustodyRepository, nativeMint models.Address) AssetCustody {
	return &ledgerCustody{
		repo:       repo,
		nativeMint: nativeMint,
	}
}

func (c *ledgerCustody) Transfer(ctx context.Context, assetType models.Address, amount uint64, from, to, authority models.Address) error {
	source, err := c.ownedAccount(ctx, from, assetType, authority)
	if err != nil {
		return err
	}
	if source.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, source.Amount, amount)
	}
	if from == to {
		return nil
	}

	dest, err := c.repo.GetAccount(ctx, to)
	if err != nil {
		return fmt.Errorf("failed to get destination account: %w", err)
	}
	if dest == nil {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, to)
	}
	if dest.AssetType != assetType {
		return models.ErrInvalidTokenMint
	}

	newDest, err := models.CheckedAdd(dest.Amount, amount)
	if err != nil {
		return err
	}
	source.Amount -= amount
	dest.Amount = newDest

	// Wrapped native value lives in the backing balance as well
	if assetType == c.nativeMint {
		if source.Lamports, err = models.CheckedSub(source.Lamports, amount); err != nil {
			return err
		}
		if dest.Lamports, err = models.CheckedAdd(dest.Lamports, amount); err != nil {
			return err
		}
	}

	if err := c.repo.SaveAccount(ctx, source); err != nil {
		return fmt.Errorf("failed to save source account: %w", err)
	}
	if err := c.repo.SaveAccount(ctx, dest); err != nil {
		return fmt.Errorf("failed to save destination account: %w", err)
	}
	return nil
}

func (c *ledgerCustody) Burn(ctx context.Context, assetType models.Address, amount uint64, from, authority models.Address) error {
	if assetType == c.nativeMint {
		return models.ErrCannotBurnNative
	}
	source, err := c.ownedAccount(ctx, from, assetType, authority)
	if err != nil {
		return err
	}
	if source.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, source.Amount, amount)
	}

	asset, err := c.repo.GetAssetType(ctx, assetType)
	if err != nil {
		return fmt.Errorf("failed to get asset type: %w", err)
	}
	if asset == nil {
		return fmt.Errorf("%w: asset type %s", models.ErrAccountNotFound, assetType)
	}
	if asset.Supply, err = models.CheckedSub(asset.Supply, amount); err != nil {
		return err
	}

	source.Amount -= amount
	if err := c.repo.SaveAccount(ctx, source); err != nil {
		return fmt.Errorf("failed to save source account: %w", err)
	}
	if err := c.repo.SaveAssetType(ctx, asset); err != nil {
		return fmt.Errorf("failed to save asset type: %w", err)
	}
	return nil
}

func (c *ledgerCustody) CloseEmptyAccount(ctx context.Context, account, depositDestination, authority models.Address) error {
	acct, err := c.repo.GetAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if acct == nil {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, account)
	}
	if acct.Owner != authority {
		return models.ErrUnauthorized
	}
	// A wrapped native account may be closed with value in it; the value leaves with the deposit
	if acct.Amount != 0 && acct.AssetType != c.nativeMint {
		return models.ErrAccountNotEmpty
	}

	if err := c.repo.DeleteAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return c.credit(ctx, depositDestination, acct.Lamports)
}

func (c *ledgerCustody) TransferUnique(ctx context.Context, assetID, from, to, authority models.Address, royalty *models.RoyaltyContext) error {
	asset, err := c.uniqueAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if royalty != nil {
		log.WithFields(log.Fields{
			"asset":        asset.Address,
			"token_record": royalty.TokenRecord,
			"rule_set":     royalty.RuleSet,
		}).Debug("Transferring unique asset with royalty context")
	}
	return c.Transfer(ctx, assetID, 1, from, to, authority)
}

func (c *ledgerCustody) BurnUnique(ctx context.Context, assetID, from, authority models.Address) error {
	asset, err := c.uniqueAsset(ctx, assetID)
	if err != nil {
		return err
	}
	source, err := c.ownedAccount(ctx, from, assetID, authority)
	if err != nil {
		return err
	}
	if source.Amount != 1 {
		return fmt.Errorf("%w: account does not hold the asset", models.ErrInsufficientFunds)
	}

	// Burning a unique asset closes its account and releases every deposit to the holder
	refund, err := models.CheckedAdd(source.Lamports, asset.MetadataDeposit)
	if err != nil {
		return err
	}
	asset.Supply = 0
	asset.MetadataDeposit = 0

	if err := c.repo.DeleteAccount(ctx, from); err != nil {
		return fmt.Errorf("failed to delete burned account: %w", err)
	}
	if err := c.repo.SaveAssetType(ctx, asset); err != nil {
		return fmt.Errorf("failed to save asset type: %w", err)
	}
	return c.credit(ctx, authority, refund)
}

func (c *ledgerCustody) EnsureAccount(ctx context.Context, owner, assetType, payer models.Address) (*models.TokenAccount, error) {
	address := models.AssociatedAccount(owner, assetType)
	existing, err := c.repo.GetAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if assetType != c.nativeMint {
		asset, err := c.repo.GetAssetType(ctx, assetType)
		if err != nil {
			return nil, fmt.Errorf("failed to get asset type: %w", err)
		}
		if asset == nil {
			return nil, fmt.Errorf("%w: asset type %s", models.ErrAccountNotFound, assetType)
		}
	}

	deposit := models.RentExemptMinimum(models.TokenAccountSize)
	if err := c.debit(ctx, payer, deposit); err != nil {
		return nil, fmt.Errorf("failed to fund account deposit: %w", err)
	}

	account := &models.TokenAccount{
		Address:   address,
		Owner:     owner,
		AssetType: assetType,
		Lamports:  deposit,
	}
	if err := c.repo.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (c *ledgerCustody) TransferNative(ctx context.Context, from, to models.Address, lamports uint64) error {
	if lamports == 0 || from == to {
		return nil
	}
	if err := c.debit(ctx, from, lamports); err != nil {
		return err
	}
	return c.credit(ctx, to, lamports)
}

func (c *ledgerCustody) SyncNative(ctx context.Context, account models.Address) error {
	acct, err := c.repo.GetAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if acct == nil {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, account)
	}
	if acct.AssetType != c.nativeMint {
		return models.ErrInvalidTokenMint
	}

	amount, err := models.CheckedSub(acct.Lamports, models.RentExemptMinimum(models.TokenAccountSize))
	if err != nil {
		return err
	}
	acct.Amount = amount
	if err := c.repo.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("failed to sync native account: %w", err)
	}
	return nil
}

func (c *ledgerCustody) CloseWallet(ctx context.Context, wallet, destination models.Address) error {
	w, err := c.repo.GetWallet(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	if w == nil {
		return fmt.Errorf("%w: %s", models.ErrAccountNotFound, wallet)
	}
	if err := c.repo.DeleteWallet(ctx, wallet); err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return c.credit(ctx, destination, w.Lamports)
}

func (c *ledgerCustody) NativeBalance(ctx context.Context, address models.Address) (uint64, error) {
	w, err := c.repo.GetWallet(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get wallet: %w", err)
	}
	if w != nil {
		return w.Lamports, nil
	}
	acct, err := c.repo.GetAccount(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if acct != nil {
		return acct.Lamports, nil
	}
	return 0, nil
}

func (c *ledgerCustody) Account(ctx context.Context, address models.Address) (*models.TokenAccount, error) {
	return c.repo.GetAccount(ctx, address)
}

func (c *ledgerCustody) AssetType(ctx context.Context, address models.Address) (*models.AssetType, error) {
	return c.repo.GetAssetType(ctx, address)
}

// ownedAccount loads a token account of assetType and checks authority may spend from it
func (c *ledgerCustody) ownedAccount(ctx context.Context, address, assetType, authority models.Address) (*models.TokenAccount, error) {
	acct, err := c.repo.GetAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, address)
	}
	if acct.AssetType != assetType {
		return nil, models.ErrInvalidTokenMint
	}
	if acct.Owner != authority {
		return nil, models.ErrUnauthorized
	}
	return acct, nil
}

func (c *ledgerCustody) uniqueAsset(ctx context.Context, assetID models.Address) (*models.AssetType, error) {
	asset, err := c.repo.GetAssetType(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset type: %w", err)
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: asset type %s", models.ErrAccountNotFound, assetID)
	}
	if !asset.IsUnique() {
		return nil, models.ErrTokenNotUnique
	}
	return asset, nil
}

// debit takes native balance from a wallet
func (c *ledgerCustody) debit(ctx context.Context, address models.Address, lamports uint64) error {
	w, err := c.repo.GetWallet(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	if w == nil || w.Lamports < lamports {
		return fmt.Errorf("%w: wallet %s cannot pay %d", models.ErrInsufficientFunds, address, lamports)
	}
	w.Lamports -= lamports
	if err := c.repo.SaveWallet(ctx, w); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

// credit adds native balance to a token account's backing balance, or to a wallet created on demand
func (c *ledgerCustody) credit(ctx context.Context, address models.Address, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	acct, err := c.repo.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if acct != nil {
		if acct.Lamports, err = models.CheckedAdd(acct.Lamports, lamports); err != nil {
			return err
		}
		if err := c.repo.SaveAccount(ctx, acct); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
		return nil
	}

	w, err := c.repo.GetWallet(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	if w == nil {
		w = &models.Wallet{Address: address}
	}
	if w.Lamports, err = models.CheckedAdd(w.Lamports, lamports); err != nil {
		return err
	}
	if err := c.repo.SaveWallet(ctx, w); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}
