package service

import (
	"context"
	"fmt"

	"raffler/config"
	"raffler/models"

	log "github.com/sirupsen/logrus"
)

// EnsureProgramConfig seeds the administrative configuration from cfg when the row does not exist.
// An existing row is returned untouched.
func EnsureProgramConfig(ctx context.Context, uowFactory UnitOfWorkFactory, cfg *config.Config) (*models.ProgramConfig, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.ProgramConfigRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get program config: %w", err)
	}
	if existing != nil {
		log.WithFields(log.Fields{
			"raffleFee":     existing.RaffleFee,
			"proceedsShare": existing.ProceedsShare,
		}).Info("Using stored program config")
		return existing, nil
	}

	seeded := &models.ProgramConfig{
		RaffleFee:     cfg.RaffleFee,
		ProceedsShare: cfg.ProceedsShareBP,
		FeesWallet:    cfg.FeesWallet,
		Authority:     cfg.ProgramAuthority,
	}
	if err := seeded.Validate(); err != nil {
		return nil, err
	}
	if err := uow.ProgramConfigRepository().Save(ctx, seeded); err != nil {
		return nil, fmt.Errorf("failed to save program config: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffleFee":     seeded.RaffleFee,
		"proceedsShare": seeded.ProceedsShare,
		"feesWallet":    seeded.FeesWallet,
	}).Info("Seeded program config")
	return seeded, nil
}
