package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/database"
	"raffler/models"

	"github.com/jackc/pgx/v5"
)

// CustodyRepository implements the CustodyRepository interface over the
// wallets, token_accounts and asset_types tables. Every read locks its row.
type CustodyRepository struct {
	q Queryable
}

// NewCustodyRepository creates a custody repository outside of a transaction.
// Row locks taken by its reads are released immediately.
func NewCustodyRepository(db *database.DB) *CustodyRepository {
	return &CustodyRepository{q: db.Pool}
}

func newCustodyRepositoryWithTx(tx Queryable) *CustodyRepository {
	return &CustodyRepository{q: tx}
}

func (r *CustodyRepository) GetWallet(ctx context.Context, address models.Address) (*models.Wallet, error) {
	query := `SELECT lamports FROM wallets WHERE address = $1 FOR UPDATE`

	var lamports int64
	err := r.q.QueryRow(ctx, query, address.String()).Scan(&lamports)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %s: %w", address, err)
	}
	return &models.Wallet{Address: address, Lamports: unsigned(lamports)}, nil
}

// SaveWallet upserts a wallet balance
func (r *CustodyRepository) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	lamports, err := bigint(wallet.Lamports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO wallets (address, lamports)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET lamports = EXCLUDED.lamports
	`

	if _, err := r.q.Exec(ctx, query, wallet.Address.String(), lamports); err != nil {
		return fmt.Errorf("failed to save wallet %s: %w", wallet.Address, err)
	}
	return nil
}

func (r *CustodyRepository) DeleteWallet(ctx context.Context, address models.Address) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM wallets WHERE address = $1`, address.String()); err != nil {
		return fmt.Errorf("failed to delete wallet %s: %w", address, err)
	}
	return nil
}

func (r *CustodyRepository) GetAccount(ctx context.Context, address models.Address) (*models.TokenAccount, error) {
	query := `
		SELECT owner, asset_type, amount, lamports, updated_at
		FROM token_accounts
		WHERE address = $1
		FOR UPDATE
	`

	account := models.TokenAccount{Address: address}
	var owner, assetType string
	var amount, lamports int64
	err := r.q.QueryRow(ctx, query, address.String()).Scan(
		&owner,
		&assetType,
		&amount,
		&lamports,
		&account.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token account %s: %w", address, err)
	}

	var p addressParser
	account.Owner = p.parse(owner)
	account.AssetType = p.parse(assetType)
	if p.err != nil {
		return nil, p.err
	}
	account.Amount = unsigned(amount)
	account.Lamports = unsigned(lamports)
	return &account, nil
}

// SaveAccount upserts a token account. Owner and asset type never change after creation.
func (r *CustodyRepository) SaveAccount(ctx context.Context, account *models.TokenAccount) error {
	amount, err := bigint(account.Amount)
	if err != nil {
		return err
	}
	lamports, err := bigint(account.Lamports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO token_accounts (address, owner, asset_type, amount, lamports)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE
		SET amount = EXCLUDED.amount, lamports = EXCLUDED.lamports
		RETURNING updated_at
	`

	err = r.q.QueryRow(ctx, query,
		account.Address.String(),
		account.Owner.String(),
		account.AssetType.String(),
		amount,
		lamports,
	).Scan(&account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save token account %s: %w", account.Address, err)
	}
	return nil
}

func (r *CustodyRepository) DeleteAccount(ctx context.Context, address models.Address) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM token_accounts WHERE address = $1`, address.String()); err != nil {
		return fmt.Errorf("failed to delete token account %s: %w", address, err)
	}
	return nil
}

func (r *CustodyRepository) GetAssetType(ctx context.Context, address models.Address) (*models.AssetType, error) {
	query := `
		SELECT decimals, supply, collection, collection_verified, metadata_deposit, created_at
		FROM asset_types
		WHERE address = $1
		FOR UPDATE
	`

	asset := models.AssetType{Address: address}
	var decimals int16
	var supply, deposit int64
	var collection *string
	err := r.q.QueryRow(ctx, query, address.String()).Scan(
		&decimals,
		&supply,
		&collection,
		&asset.CollectionVerified,
		&deposit,
		&asset.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset type %s: %w", address, err)
	}

	asset.Collection, err = parseOptionalAddress(collection)
	if err != nil {
		return nil, err
	}
	asset.Decimals = uint8(decimals)
	asset.Supply = unsigned(supply)
	asset.MetadataDeposit = unsigned(deposit)
	return &asset, nil
}

// SaveAssetType upserts an asset type. Collection membership is fixed at mint.
func (r *CustodyRepository) SaveAssetType(ctx context.Context, asset *models.AssetType) error {
	supply, err := bigint(asset.Supply)
	if err != nil {
		return err
	}
	deposit, err := bigint(asset.MetadataDeposit)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO asset_types (address, decimals, supply, collection, collection_verified, metadata_deposit)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE
		SET supply = EXCLUDED.supply, metadata_deposit = EXCLUDED.metadata_deposit
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		asset.Address.String(),
		int16(asset.Decimals),
		supply,
		optionalAddress(asset.Collection),
		asset.CollectionVerified,
		deposit,
	).Scan(&asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save asset type %s: %w", asset.Address, err)
	}
	return nil
}
