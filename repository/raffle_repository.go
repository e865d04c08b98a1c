package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/database"
	"raffler/models"

	"github.com/jackc/pgx/v5"
)

const raffleColumns = `
	address, sponsor, entrants, prize, randomness,
	entry_policy, withhold_burn_proceeds, stake_minimum_period,
	payment_policy, payment_asset, ticket_price, required_collection,
	gated_collection, start_time, end_time, claimed, max_entrant_pct, uri,
	created_at, updated_at`

// RaffleRepository implements the RaffleRepository interface
type RaffleRepository struct {
	q Queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *database.DB) *RaffleRepository {
	return &RaffleRepository{q: db.Pool}
}

func newRaffleRepositoryWithTx(tx Queryable) *RaffleRepository {
	return &RaffleRepository{q: tx}
}

// Create inserts a new raffle record
func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	var paymentAsset, requiredCollection *string
	var ticketPrice *int64
	switch raffle.PaymentPolicy.Kind {
	case models.PaymentPolicyToken:
		asset := raffle.PaymentPolicy.AssetType.String()
		price, err := bigint(raffle.PaymentPolicy.TicketPrice)
		if err != nil {
			return fmt.Errorf("invalid ticket price: %w", err)
		}
		paymentAsset = &asset
		ticketPrice = &price
	case models.PaymentPolicyUniqueAsset:
		collection := raffle.PaymentPolicy.RequiredCollection.String()
		requiredCollection = &collection
	default:
		return fmt.Errorf("unknown payment policy %q", raffle.PaymentPolicy.Kind)
	}

	query := `
		INSERT INTO raffles (
			address, sponsor, entrants, prize,
			entry_policy, withhold_burn_proceeds, stake_minimum_period,
			payment_policy, payment_asset, ticket_price, required_collection,
			gated_collection, start_time, end_time, max_entrant_pct, uri
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		raffle.Address.String(),
		raffle.Sponsor.String(),
		raffle.Entrants.String(),
		raffle.Prize.String(),
		string(raffle.EntryPolicy.Kind),
		raffle.EntryPolicy.WithholdProceeds,
		raffle.EntryPolicy.MinimumPeriod,
		string(raffle.PaymentPolicy.Kind),
		paymentAsset,
		ticketPrice,
		requiredCollection,
		optionalAddress(raffle.GatedCollection),
		raffle.StartTime,
		raffle.EndTime,
		int32(raffle.MaxEntrantPct),
		raffle.URI,
	).Scan(&raffle.CreatedAt, &raffle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create raffle %s: %w", raffle.Address, err)
	}
	return nil
}

// GetByAddress retrieves a raffle without locking
func (r *RaffleRepository) GetByAddress(ctx context.Context, address models.Address) (*models.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE address = $1`
	return r.get(ctx, query, address)
}

// GetByAddressForUpdate retrieves a raffle and holds its row lock until the transaction ends
func (r *RaffleRepository) GetByAddressForUpdate(ctx context.Context, address models.Address) (*models.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE address = $1 FOR UPDATE`
	return r.get(ctx, query, address)
}

func (r *RaffleRepository) get(ctx context.Context, query string, address models.Address) (*models.Raffle, error) {
	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, address.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %s: %w", address, err)
	}
	return raffle, nil
}

// Update persists the claimed flag and the distribution log uri
func (r *RaffleRepository) Update(ctx context.Context, raffle *models.Raffle) error {
	query := `
		UPDATE raffles
		SET claimed = $2, uri = $3
		WHERE address = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, raffle.Address.String(), raffle.Claimed, raffle.URI).Scan(&raffle.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrRaffleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update raffle %s: %w", raffle.Address, err)
	}
	return nil
}

// SetRandomness writes the seed only while none is stored, so a second oracle
// reply racing the first loses at the row level.
func (r *RaffleRepository) SetRandomness(ctx context.Context, address models.Address, seed models.Seed) error {
	query := `
		UPDATE raffles
		SET randomness = $2
		WHERE address = $1 AND randomness IS NULL
	`

	result, err := r.q.Exec(ctx, query, address.String(), seed[:])
	if err != nil {
		return fmt.Errorf("failed to set randomness for raffle %s: %w", address, err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM raffles WHERE address = $1)`, address.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check raffle %s: %w", address, err)
	}
	if !exists {
		return models.ErrRaffleNotFound
	}
	return models.ErrWinnerAlreadyDrawn
}

// Delete removes the raffle record
func (r *RaffleRepository) Delete(ctx context.Context, address models.Address) error {
	result, err := r.q.Exec(ctx, `DELETE FROM raffles WHERE address = $1`, address.String())
	if err != nil {
		return fmt.Errorf("failed to delete raffle %s: %w", address, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrRaffleNotFound
	}
	return nil
}

func scanRaffle(row pgx.Row) (*models.Raffle, error) {
	var raffle models.Raffle
	var address, sponsor, entrants, prize string
	var randomness []byte
	var entryKind, paymentKind string
	var paymentAsset, requiredCollection, gatedCollection *string
	var ticketPrice *int64
	var maxEntrantPct int32

	err := row.Scan(
		&address,
		&sponsor,
		&entrants,
		&prize,
		&randomness,
		&entryKind,
		&raffle.EntryPolicy.WithholdProceeds,
		&raffle.EntryPolicy.MinimumPeriod,
		&paymentKind,
		&paymentAsset,
		&ticketPrice,
		&requiredCollection,
		&gatedCollection,
		&raffle.StartTime,
		&raffle.EndTime,
		&raffle.Claimed,
		&maxEntrantPct,
		&raffle.URI,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var p addressParser
	raffle.Address = p.parse(address)
	raffle.Sponsor = p.parse(sponsor)
	raffle.Entrants = p.parse(entrants)
	raffle.Prize = p.parse(prize)
	raffle.GatedCollection = p.parseOptional(gatedCollection)
	raffle.EntryPolicy.Kind = models.EntryPolicyKind(entryKind)
	raffle.MaxEntrantPct = uint16(maxEntrantPct)

	switch models.PaymentPolicyKind(paymentKind) {
	case models.PaymentPolicyToken:
		if paymentAsset == nil || ticketPrice == nil {
			return nil, fmt.Errorf("token raffle %s is missing its payment asset or price", address)
		}
		raffle.PaymentPolicy = models.TokenPayment(p.parse(*paymentAsset), unsigned(*ticketPrice))
	case models.PaymentPolicyUniqueAsset:
		if requiredCollection == nil {
			return nil, fmt.Errorf("unique asset raffle %s is missing its collection", address)
		}
		raffle.PaymentPolicy = models.UniqueAssetPayment(p.parse(*requiredCollection))
	default:
		return nil, fmt.Errorf("raffle %s has unknown payment policy %q", address, paymentKind)
	}
	if p.err != nil {
		return nil, p.err
	}

	if randomness != nil {
		seed, err := models.SeedFromBytes(randomness)
		if err != nil {
			return nil, err
		}
		raffle.Randomness = &seed
	}
	return &raffle, nil
}
