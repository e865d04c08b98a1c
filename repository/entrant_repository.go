package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/database"
	"raffler/models"

	"github.com/jackc/pgx/v5"
)

// EntrantRepository implements the EntrantRepository interface.
// The ledger row carries counts and funded storage, entries live one row per ticket.
type EntrantRepository struct {
	q Queryable
}

// NewEntrantRepository creates a new entrant repository
func NewEntrantRepository(db *database.DB) *EntrantRepository {
	return &EntrantRepository{q: db.Pool}
}

func newEntrantRepositoryWithTx(tx Queryable) *EntrantRepository {
	return &EntrantRepository{q: tx}
}

// CreateLedger inserts an empty ledger
func (r *EntrantRepository) CreateLedger(ctx context.Context, ledger *models.EntrantLedger) error {
	storage, err := bigint(ledger.StorageBytes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO entrant_ledgers (address, total, max, storage_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		ledger.Address.String(),
		int64(ledger.Total),
		int64(ledger.Max),
		storage,
	).Scan(&ledger.CreatedAt, &ledger.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entrant ledger %s: %w", ledger.Address, err)
	}
	return nil
}

// GetLedger retrieves a ledger without locking
func (r *EntrantRepository) GetLedger(ctx context.Context, address models.Address) (*models.EntrantLedger, error) {
	query := `
		SELECT address, total, max, storage_bytes, created_at, updated_at
		FROM entrant_ledgers
		WHERE address = $1
	`
	return r.getLedger(ctx, query, address)
}

// GetLedgerForUpdate retrieves a ledger and locks it, serializing appends
func (r *EntrantRepository) GetLedgerForUpdate(ctx context.Context, address models.Address) (*models.EntrantLedger, error) {
	query := `
		SELECT address, total, max, storage_bytes, created_at, updated_at
		FROM entrant_ledgers
		WHERE address = $1
		FOR UPDATE
	`
	return r.getLedger(ctx, query, address)
}

func (r *EntrantRepository) getLedger(ctx context.Context, query string, address models.Address) (*models.EntrantLedger, error) {
	var ledger models.EntrantLedger
	var addr string
	var total, maxTickets, storage int64
	err := r.q.QueryRow(ctx, query, address.String()).Scan(
		&addr,
		&total,
		&maxTickets,
		&storage,
		&ledger.CreatedAt,
		&ledger.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entrant ledger %s: %w", address, err)
	}

	ledger.Address, err = parseAddress(addr)
	if err != nil {
		return nil, err
	}
	ledger.Total = uint32(total)
	ledger.Max = uint32(maxTickets)
	ledger.StorageBytes = unsigned(storage)
	return &ledger, nil
}

// UpdateLedger persists total and storage size
func (r *EntrantRepository) UpdateLedger(ctx context.Context, ledger *models.EntrantLedger) error {
	storage, err := bigint(ledger.StorageBytes)
	if err != nil {
		return err
	}

	query := `
		UPDATE entrant_ledgers
		SET total = $2, storage_bytes = $3
		WHERE address = $1
		RETURNING updated_at
	`

	err = r.q.QueryRow(ctx, query, ledger.Address.String(), int64(ledger.Total), storage).Scan(&ledger.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: entrant ledger %s", models.ErrAccountNotFound, ledger.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to update entrant ledger %s: %w", ledger.Address, err)
	}
	return nil
}

// AppendEntrants records count consecutive tickets in a single statement
func (r *EntrantRepository) AppendEntrants(ctx context.Context, ledger models.Address, firstIndex uint32, entrant models.Address, count uint32) error {
	if count == 0 {
		return nil
	}

	query := `
		INSERT INTO entrants (ledger, idx, address)
		SELECT $1, idx, $3
		FROM generate_series($2::BIGINT, $2::BIGINT + $4::BIGINT - 1) AS idx
	`

	result, err := r.q.Exec(ctx, query, ledger.String(), int64(firstIndex), entrant.String(), int64(count))
	if err != nil {
		return fmt.Errorf("failed to append %d entrants to ledger %s: %w", count, ledger, err)
	}
	if result.RowsAffected() != int64(count) {
		return fmt.Errorf("appended %d entrants to ledger %s, expected %d", result.RowsAffected(), ledger, count)
	}
	return nil
}

// GetEntrant returns the entrant at index, or nil if the slot is empty
func (r *EntrantRepository) GetEntrant(ctx context.Context, ledger models.Address, index uint32) (*models.Entrant, error) {
	query := `
		SELECT address, created_at
		FROM entrants
		WHERE ledger = $1 AND idx = $2
	`

	entrant := models.Entrant{Ledger: ledger, Index: index}
	var addr string
	err := r.q.QueryRow(ctx, query, ledger.String(), int64(index)).Scan(&addr, &entrant.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entrant %d of ledger %s: %w", index, ledger, err)
	}

	entrant.Address, err = parseAddress(addr)
	if err != nil {
		return nil, err
	}
	return &entrant, nil
}

// DeleteLedger removes the ledger; entries go with it through the cascade
func (r *EntrantRepository) DeleteLedger(ctx context.Context, address models.Address) error {
	result, err := r.q.Exec(ctx, `DELETE FROM entrant_ledgers WHERE address = $1`, address.String())
	if err != nil {
		return fmt.Errorf("failed to delete entrant ledger %s: %w", address, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: entrant ledger %s", models.ErrAccountNotFound, address)
	}
	return nil
}
