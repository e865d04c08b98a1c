package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/database"
	"raffler/models"

	"github.com/jackc/pgx/v5"
)

// SponsorRepository implements the SponsorRepository interface
type SponsorRepository struct {
	q Queryable
}

// NewSponsorRepository creates a new sponsor repository
func NewSponsorRepository(db *database.DB) *SponsorRepository {
	return &SponsorRepository{q: db.Pool}
}

func newSponsorRepositoryWithTx(tx Queryable) *SponsorRepository {
	return &SponsorRepository{q: tx}
}

// GetByAddress retrieves a sponsor profile by its derived address
func (r *SponsorRepository) GetByAddress(ctx context.Context, address models.Address) (*models.Sponsor, error) {
	query := `
		SELECT address, authority, slug, name, treasury, is_active, created_at
		FROM sponsors
		WHERE address = $1
	`

	var sponsor models.Sponsor
	var addr, authority, treasury string
	err := r.q.QueryRow(ctx, query, address.String()).Scan(
		&addr,
		&authority,
		&sponsor.Slug,
		&sponsor.Name,
		&treasury,
		&sponsor.IsActive,
		&sponsor.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsor %s: %w", address, err)
	}

	var p addressParser
	sponsor.Address = p.parse(addr)
	sponsor.Authority = p.parse(authority)
	sponsor.Treasury = p.parse(treasury)
	if p.err != nil {
		return nil, p.err
	}
	return &sponsor, nil
}

// Create inserts a sponsor profile
func (r *SponsorRepository) Create(ctx context.Context, sponsor *models.Sponsor) error {
	query := `
		INSERT INTO sponsors (address, authority, slug, name, treasury, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		sponsor.Address.String(),
		sponsor.Authority.String(),
		sponsor.Slug,
		sponsor.Name,
		sponsor.Treasury.String(),
		sponsor.IsActive,
	).Scan(&sponsor.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sponsor %s: %w", sponsor.Slug, err)
	}
	return nil
}
