package service

import (
	"context"
	"time"

	"raffler/events"
	"raffler/models"

	"github.com/google/uuid"
)

// ProgramConfigRepository reads the administrative configuration row
type ProgramConfigRepository interface {
	// Get returns the current program configuration, or nil if it was never seeded
	Get(ctx context.Context) (*models.ProgramConfig, error)

	// Save upserts the program configuration
	Save(ctx context.Context, cfg *models.ProgramConfig) error
}

// SponsorRepository defines the interface for sponsor profile access
type SponsorRepository interface {
	GetByAddress(ctx context.Context, address models.Address) (*models.Sponsor, error)
	Create(ctx context.Context, sponsor *models.Sponsor) error
}

// RaffleRepository defines the interface for raffle record access
type RaffleRepository interface {
	// Create inserts a new raffle record
	Create(ctx context.Context, raffle *models.Raffle) error

	// GetByAddress retrieves a raffle without locking
	GetByAddress(ctx context.Context, address models.Address) (*models.Raffle, error)

	// GetByAddressForUpdate retrieves a raffle and locks its row until the transaction ends
	GetByAddressForUpdate(ctx context.Context, address models.Address) (*models.Raffle, error)

	// Update persists the mutable fields (claimed, uri)
	Update(ctx context.Context, raffle *models.Raffle) error

	// SetRandomness stores the seed only if none is stored yet
	SetRandomness(ctx context.Context, address models.Address, seed models.Seed) error

	// Delete removes the raffle record
	Delete(ctx context.Context, address models.Address) error
}

// EntrantRepository defines the interface for entrant ledger access
type EntrantRepository interface {
	CreateLedger(ctx context.Context, ledger *models.EntrantLedger) error
	GetLedger(ctx context.Context, address models.Address) (*models.EntrantLedger, error)
	GetLedgerForUpdate(ctx context.Context, address models.Address) (*models.EntrantLedger, error)

	// UpdateLedger persists total and storage size
	UpdateLedger(ctx context.Context, ledger *models.EntrantLedger) error

	// AppendEntrants records count consecutive tickets for entrant starting at firstIndex
	AppendEntrants(ctx context.Context, ledger models.Address, firstIndex uint32, entrant models.Address, count uint32) error

	// GetEntrant returns the entrant at index, or nil if the slot is empty
	GetEntrant(ctx context.Context, ledger models.Address, index uint32) (*models.Entrant, error)

	// DeleteLedger removes the ledger and every entry
	DeleteLedger(ctx context.Context, address models.Address) error
}

// RandomnessRequestRepository tracks oracle round trips
type RandomnessRequestRepository interface {
	Create(ctx context.Context, request *models.RandomnessRequest) error
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RandomnessRequest, error)
	GetPendingByRaffle(ctx context.Context, raffle models.Address) (*models.RandomnessRequest, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) error

	// ListUnpublished returns pending requests never published or last published before cutoff
	ListUnpublished(ctx context.Context, cutoff time.Time, limit int) ([]*models.RandomnessRequest, error)
}

// CustodyRepository stores the balances behind the asset custody service.
// Reads lock the returned row for the rest of the transaction.
type CustodyRepository interface {
	GetWallet(ctx context.Context, address models.Address) (*models.Wallet, error)
	SaveWallet(ctx context.Context, wallet *models.Wallet) error
	DeleteWallet(ctx context.Context, address models.Address) error

	GetAccount(ctx context.Context, address models.Address) (*models.TokenAccount, error)
	SaveAccount(ctx context.Context, account *models.TokenAccount) error
	DeleteAccount(ctx context.Context, address models.Address) error

	GetAssetType(ctx context.Context, address models.Address) (*models.AssetType, error)
	SaveAssetType(ctx context.Context, asset *models.AssetType) error
}

// AssetCustody moves value on behalf of the raffle program.
// Every call either fully applies or returns an error without effect.
type AssetCustody interface {
	// Transfer moves amount of a fungible asset out of an account owned by authority
	Transfer(ctx context.Context, assetType models.Address, amount uint64, from, to, authority models.Address) error

	// Burn destroys amount of a fungible asset held by from
	Burn(ctx context.Context, assetType models.Address, amount uint64, from, authority models.Address) error

	// CloseEmptyAccount deletes a drained token account and releases its deposit
	CloseEmptyAccount(ctx context.Context, account, depositDestination, authority models.Address) error

	// TransferUnique moves a unique asset between token accounts
	TransferUnique(ctx context.Context, assetID, from, to, authority models.Address, royalty *models.RoyaltyContext) error

	// BurnUnique destroys a unique asset and refunds its deposits to authority
	BurnUnique(ctx context.Context, assetID, from, authority models.Address) error

	// EnsureAccount returns the associated account of owner for assetType, creating it funded by payer
	EnsureAccount(ctx context.Context, owner, assetType, payer models.Address) (*models.TokenAccount, error)

	// TransferNative moves native balance out of a wallet into a wallet or token account
	TransferNative(ctx context.Context, from, to models.Address, lamports uint64) error

	// SyncNative reconciles a wrapped-native account's amount with its backing balance
	SyncNative(ctx context.Context, account models.Address) error

	// CloseWallet moves the whole balance of a program-owned wallet to destination
	CloseWallet(ctx context.Context, wallet, destination models.Address) error

	NativeBalance(ctx context.Context, address models.Address) (uint64, error)
	Account(ctx context.Context, address models.Address) (*models.TokenAccount, error)
	AssetType(ctx context.Context, address models.Address) (*models.AssetType, error)
}

// RandomnessOracle delivers randomness requests to the external oracle
type RandomnessOracle interface {
	RequestRandomness(ctx context.Context, request *models.RandomnessRequest) error
}

// RandomnessDispatcher hands pending randomness requests to the oracle transport
type RandomnessDispatcher interface {
	// Dispatch publishes one request unless it was fulfilled or published recently
	Dispatch(ctx context.Context, requestID uuid.UUID) error

	// DispatchStale republishes pending requests that were never published or whose last publish went stale
	DispatchStale(ctx context.Context) (int, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repository access into one database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ProgramConfigRepository() ProgramConfigRepository
	SponsorRepository() SponsorRepository
	RaffleRepository() RaffleRepository
	EntrantRepository() EntrantRepository
	RandomnessRequestRepository() RandomnessRequestRepository
	CustodyRepository() CustodyRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// RaffleService drives the raffle lifecycle outside of ticket sales
type RaffleService interface {
	// InitRaffle creates the raffle record and its empty ledger and escrows the prize
	InitRaffle(ctx context.Context, params models.InitRaffleParams) (*models.Raffle, error)

	// GetRaffle returns the raffle, its ledger and the resolved winner when drawn
	GetRaffle(ctx context.Context, address models.Address) (*models.RaffleDetail, error)

	// SetEntrantsURI updates the distribution log reference
	SetEntrantsURI(ctx context.Context, raffle, caller models.Address, uri string) error

	// DrawWinner requests randomness for an ended raffle
	DrawWinner(ctx context.Context, params models.DrawWinnerParams) (*models.RandomnessRequest, error)

	// ConsumeRandomness stores the oracle seed exactly once
	ConsumeRandomness(ctx context.Context, requestID uuid.UUID, oracle models.Address, seed []byte) error

	// ClaimPrize settles proceeds and delivers the prize to the winner
	ClaimPrize(ctx context.Context, params models.ClaimPrizeParams) (*models.Settlement, error)

	// CollectUnclaimedPrize returns the prize of a drawn raffle to the sponsor treasury
	CollectUnclaimedPrize(ctx context.Context, raffle, caller models.Address) (*models.Settlement, error)

	// CollectTicketAsset moves a unique asset surrendered as a ticket to the sponsor treasury
	CollectTicketAsset(ctx context.Context, raffle, asset, caller models.Address) error

	// DeleteRaffle removes a raffle record without touching its escrow
	DeleteRaffle(ctx context.Context, raffle, caller models.Address) error

	// RecoverUniqueAsset releases escrow left behind by a deleted raffle
	RecoverUniqueAsset(ctx context.Context, params models.RecoverUniqueAssetParams) error
}

// TicketService sells raffle tickets
type TicketService interface {
	BuyTicketsToken(ctx context.Context, params models.BuyTicketsTokenParams) (*models.PurchaseResult, error)
	BuyTicketUniqueSend(ctx context.Context, params models.BuyTicketUniqueParams) (*models.PurchaseResult, error)
	BuyTicketUniqueBurn(ctx context.Context, params models.BuyTicketUniqueParams) (*models.PurchaseResult, error)
}

// Clock returns the current time
type Clock func() time.Time
