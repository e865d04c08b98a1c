package models

import "time"

// AssetType describes a fungible or unique asset known to custody
type AssetType struct {
	Address            Address  `db:"address"`
	Decimals           uint8    `db:"decimals"`
	Supply             uint64   `db:"supply"`
	Collection         *Address `db:"collection"`
	CollectionVerified bool     `db:"collection_verified"`
	// MetadataDeposit is refunded to the holder when a unique asset is burned
	MetadataDeposit uint64    `db:"metadata_deposit"`
	CreatedAt       time.Time `db:"created_at"`
}

// IsUnique reports whether the asset is a single indivisible item
func (a *AssetType) IsUnique() bool {
	return a.Supply == 1 && a.Decimals == 0
}

// InCollection reports verified membership of collection
func (a *AssetType) InCollection(collection Address) bool {
	return a.Collection != nil && *a.Collection == collection && a.CollectionVerified
}

// TokenAccount holds one asset type on behalf of an owner
type TokenAccount struct {
	Address   Address `db:"address"`
	Owner     Address `db:"owner"`
	AssetType Address `db:"asset_type"`
	Amount    uint64  `db:"amount"`
	// Lamports is the native balance backing the account, deposit included
	Lamports  uint64    `db:"lamports"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Wallet is a plain native balance
type Wallet struct {
	Address  Address `db:"address"`
	Lamports uint64  `db:"lamports"`
}

// RoyaltyContext is forwarded with unique-asset transfers for assets that enforce creator rules
type RoyaltyContext struct {
	TokenRecord *Address `json:"token_record,omitempty"`
	RuleSet     *Address `json:"rule_set,omitempty"`
}
