package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffler/database"
	"raffler/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const randomnessRequestColumns = `
	id, raffle, payer, byte_count, priority_fee, status,
	published_at, publish_count, fulfilled_at, created_at`

// RandomnessRequestRepository implements the RandomnessRequestRepository interface
type RandomnessRequestRepository struct {
	q Queryable
}

// NewRandomnessRequestRepository creates a new randomness request repository
func NewRandomnessRequestRepository(db *database.DB) *RandomnessRequestRepository {
	return &RandomnessRequestRepository{q: db.Pool}
}

func newRandomnessRequestRepositoryWithTx(tx Queryable) *RandomnessRequestRepository {
	return &RandomnessRequestRepository{q: tx}
}

// Create inserts a pending request. The partial unique index rejects a second pending request per raffle.
func (r *RandomnessRequestRepository) Create(ctx context.Context, request *models.RandomnessRequest) error {
	priorityFee, err := bigint(request.PriorityFee)
	if err != nil {
		return err
	}
	if request.Status == "" {
		request.Status = models.RandomnessRequestPending
	}

	query := `
		INSERT INTO randomness_requests (id, raffle, payer, byte_count, priority_fee, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		request.ID,
		request.Raffle.String(),
		request.Payer.String(),
		request.ByteCount,
		priorityFee,
		string(request.Status),
	).Scan(&request.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create randomness request for raffle %s: %w", request.Raffle, err)
	}
	return nil
}

// GetByIDForUpdate retrieves a request and locks it against a concurrent fulfilment
func (r *RandomnessRequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RandomnessRequest, error) {
	query := `SELECT ` + randomnessRequestColumns + ` FROM randomness_requests WHERE id = $1 FOR UPDATE`

	request, err := scanRandomnessRequest(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get randomness request %s: %w", id, err)
	}
	return request, nil
}

// GetPendingByRaffle returns the outstanding request of a raffle, if any
func (r *RandomnessRequestRepository) GetPendingByRaffle(ctx context.Context, raffle models.Address) (*models.RandomnessRequest, error) {
	query := `SELECT ` + randomnessRequestColumns + `
		FROM randomness_requests
		WHERE raffle = $1 AND status = 'pending'`

	request, err := scanRandomnessRequest(r.q.QueryRow(ctx, query, raffle.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending randomness request for raffle %s: %w", raffle, err)
	}
	return request, nil
}

// MarkPublished records a delivery attempt to the oracle
func (r *RandomnessRequestRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE randomness_requests
		SET published_at = $2, publish_count = publish_count + 1
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark randomness request %s published: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrRandomnessRequestNotFound
	}
	return nil
}

// MarkFulfilled closes a pending request
func (r *RandomnessRequestRepository) MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE randomness_requests
		SET status = 'fulfilled', fulfilled_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark randomness request %s fulfilled: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrRandomnessRequestNotFound
	}
	return nil
}

// ListUnpublished returns pending requests that were never published or were last published before cutoff.
// Rows locked by another worker are skipped.
func (r *RandomnessRequestRepository) ListUnpublished(ctx context.Context, cutoff time.Time, limit int) ([]*models.RandomnessRequest, error) {
	query := `SELECT ` + randomnessRequestColumns + `
		FROM randomness_requests
		WHERE status = 'pending' AND (published_at IS NULL OR published_at < $1)
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpublished randomness requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.RandomnessRequest
	for rows.Next() {
		request, err := scanRandomnessRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan randomness request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate randomness requests: %w", err)
	}
	return requests, nil
}

func scanRandomnessRequest(row pgx.Row) (*models.RandomnessRequest, error) {
	var request models.RandomnessRequest
	var raffle, payer, status string
	var priorityFee int64

	err := row.Scan(
		&request.ID,
		&raffle,
		&payer,
		&request.ByteCount,
		&priorityFee,
		&status,
		&request.PublishedAt,
		&request.PublishCount,
		&request.FulfilledAt,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var p addressParser
	request.Raffle = p.parse(raffle)
	request.Payer = p.parse(payer)
	if p.err != nil {
		return nil, p.err
	}
	request.PriorityFee = unsigned(priorityFee)
	request.Status = models.RandomnessRequestStatus(status)
	return &request, nil
}
