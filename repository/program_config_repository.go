package repository

import (
	"context"
	"errors"
	"fmt"

	"raffler/database"
	"raffler/models"

	"github.com/jackc/pgx/v5"
)

// ProgramConfigRepository implements the ProgramConfigRepository interface
type ProgramConfigRepository struct {
	q Queryable
}

// NewProgramConfigRepository creates a program config repository outside of a transaction
func NewProgramConfigRepository(db *database.DB) *ProgramConfigRepository {
	return &ProgramConfigRepository{q: db.Pool}
}

func newProgramConfigRepositoryWithTx(tx Queryable) *ProgramConfigRepository {
	return &ProgramConfigRepository{q: tx}
}

// Get returns the singleton configuration row
func (r *ProgramConfigRepository) Get(ctx context.Context) (*models.ProgramConfig, error) {
	query := `
		SELECT raffle_fee, proceeds_share, fees_wallet, authority, updated_at
		FROM program_config
		WHERE id = 1
	`

	var cfg models.ProgramConfig
	var raffleFee int64
	var proceedsShare int32
	var feesWallet, authority string
	err := r.q.QueryRow(ctx, query).Scan(
		&raffleFee,
		&proceedsShare,
		&feesWallet,
		&authority,
		&cfg.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program config: %w", err)
	}

	var p addressParser
	cfg.RaffleFee = unsigned(raffleFee)
	cfg.ProceedsShare = uint16(proceedsShare)
	cfg.FeesWallet = p.parse(feesWallet)
	cfg.Authority = p.parse(authority)
	if p.err != nil {
		return nil, p.err
	}
	return &cfg, nil
}

// Save upserts the configuration row
func (r *ProgramConfigRepository) Save(ctx context.Context, cfg *models.ProgramConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	raffleFee, err := bigint(cfg.RaffleFee)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO program_config (id, raffle_fee, proceeds_share, fees_wallet, authority)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET raffle_fee = EXCLUDED.raffle_fee,
		    proceeds_share = EXCLUDED.proceeds_share,
		    fees_wallet = EXCLUDED.fees_wallet,
		    authority = EXCLUDED.authority,
		    updated_at = NOW()
		RETURNING updated_at
	`

	err = r.q.QueryRow(ctx, query,
		raffleFee,
		int32(cfg.ProceedsShare),
		cfg.FeesWallet.String(),
		cfg.Authority.String(),
	).Scan(&cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save program config: %w", err)
	}
	return nil
}
