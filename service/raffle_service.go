package service

import (
	"context"
	"fmt"
	"time"

	"raffler/config"
	"raffler/events"
	"raffler/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type raffleService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	now        Clock
}

// NewRaffleService creates a new raffle service. A nil clock uses wall time.
func NewRaffleService(uowFactory UnitOfWorkFactory, cfg *config.Config, clock Clock) RaffleService {
	if clock == nil {
		clock = time.Now
	}
	return &raffleService{
		uowFactory: uowFactory,
		config:     cfg,
		now:        clock,
	}
}

func (s *raffleService) InitRaffle(ctx context.Context, params models.InitRaffleParams) (*models.Raffle, error) {
	now := s.now()

	if params.Duration <= 0 {
		return nil, models.ErrInvalidDuration
	}
	if params.Duration > models.MaxRaffleDuration {
		return nil, models.ErrRaffleTooLong
	}
	start := now
	if params.StartTime != nil {
		if params.StartTime.Before(now) {
			return nil, models.ErrInvalidStartTime
		}
		start = *params.StartTime
	}

	if err := params.EntryPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInstruction, err)
	}
	payment, err := s.paymentPolicy(params)
	if err != nil {
		return nil, err
	}

	maxEntrantPct := models.DefaultMaxEntrantPct
	if params.MaxEntrantPct != nil {
		maxEntrantPct = *params.MaxEntrantPct
	}
	if maxEntrantPct > models.BasisPointsDenominator {
		return nil, models.ErrInvalidMaxEntrantPct
	}
	maxTickets := models.DefaultMaxTickets
	if params.MaxTickets != nil {
		maxTickets = *params.MaxTickets
	}
	if maxTickets == 0 {
		return nil, models.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pcfg, err := loadProgramConfig(ctx, uow)
	if err != nil {
		return nil, err
	}
	sponsor, err := getSponsor(ctx, uow, params.Sponsor)
	if err != nil {
		return nil, err
	}
	if !sponsor.IsActive {
		return nil, models.ErrSponsorInactive
	}
	if params.Authority != sponsor.Authority {
		return nil, models.ErrUnauthorized
	}

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	prize, err := custody.AssetType(ctx, params.Prize)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize asset: %w", err)
	}
	if prize == nil {
		return nil, fmt.Errorf("%w: prize %s", models.ErrAccountNotFound, params.Prize)
	}
	if !prize.IsUnique() {
		return nil, models.ErrTokenNotUnique
	}

	entrants := params.Entrants
	if entrants.IsZero() {
		id := uuid.New()
		entrants = models.DeriveProgramAddress(s.config.ProgramID, []byte("entrants"), id[:])
	}

	raffle := &models.Raffle{
		Address:         models.RaffleAddress(s.config.ProgramID, entrants),
		Sponsor:         sponsor.Address,
		Entrants:        entrants,
		Prize:           params.Prize,
		EntryPolicy:     params.EntryPolicy,
		PaymentPolicy:   payment,
		GatedCollection: params.GatedCollection,
		StartTime:       start,
		EndTime:         start.Add(params.Duration),
		MaxEntrantPct:   maxEntrantPct,
	}

	existing, err := uow.RaffleRepository().GetByAddress(ctx, raffle.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing raffle: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrRaffleAlreadyExists, raffle.Address)
	}

	if err := custody.TransferNative(ctx, params.Authority, pcfg.FeesWallet, pcfg.RaffleFee); err != nil {
		return nil, fmt.Errorf("failed to charge raffle fee: %w", err)
	}

	ledger := models.NewEntrantLedger(entrants, maxTickets)
	if err := custody.TransferNative(ctx, params.Authority, entrants, models.RentExemptMinimum(ledger.StorageBytes)); err != nil {
		return nil, fmt.Errorf("failed to fund entrant ledger: %w", err)
	}

	prizeEscrow, err := custody.EnsureAccount(ctx, raffle.Address, params.Prize, params.Authority)
	if err != nil {
		return nil, fmt.Errorf("failed to open prize escrow: %w", err)
	}
	source := models.AssociatedAccount(params.Authority, params.Prize)
	if err := custody.TransferUnique(ctx, params.Prize, source, prizeEscrow.Address, params.Authority, nil); err != nil {
		return nil, fmt.Errorf("failed to escrow prize: %w", err)
	}
	if err := closeIfEmpty(ctx, custody, source, params.Authority); err != nil {
		return nil, err
	}

	if raffle.SettlesProceeds() {
		if _, err := custody.EnsureAccount(ctx, raffle.Address, raffle.ProceedsAssetType(s.config.NativeMint), params.Authority); err != nil {
			return nil, fmt.Errorf("failed to open proceeds escrow: %w", err)
		}
	}

	if err := uow.EntrantRepository().CreateLedger(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to create entrant ledger: %w", err)
	}
	if err := uow.RaffleRepository().Create(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	uow.EventBus().Publish(events.RaffleCreatedEvent{
		Raffle:   raffle.Address,
		Sponsor:  raffle.Sponsor,
		Entrants: raffle.Entrants,
		Prize:    raffle.Prize,
		Payment:  raffle.PaymentPolicy.Kind,
		Entry:    raffle.EntryPolicy.Kind,
		Max:      ledger.Max,
		EndTime:  raffle.EndTime.Unix(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":  raffle.Address,
		"sponsor": raffle.Sponsor,
		"prize":   raffle.Prize,
		"payment": raffle.PaymentPolicy.Kind,
		"entry":   raffle.EntryPolicy.Kind,
		"max":     ledger.Max,
		"endTime": raffle.EndTime,
	}).Info("Raffle created")

	return raffle, nil
}

// paymentPolicy resolves the payment variant from the init parameters
func (s *raffleService) paymentPolicy(params models.InitRaffleParams) (models.PaymentPolicy, error) {
	if params.RequiredCollection != nil {
		if params.TicketPrice != nil {
			return models.PaymentPolicy{}, models.ErrUnexpectedTicketPrice
		}
		if params.PaymentAsset != nil {
			return models.PaymentPolicy{}, models.ErrInvalidTokenMint
		}
		return models.UniqueAssetPayment(*params.RequiredCollection), nil
	}

	if params.PaymentAsset == nil {
		return models.PaymentPolicy{}, models.ErrInvalidTokenMint
	}
	if params.TicketPrice == nil {
		return models.PaymentPolicy{}, models.ErrTicketPriceRequired
	}
	if params.EntryPolicy.Kind == models.EntryPolicyBurn && *params.PaymentAsset == s.config.NativeMint {
		return models.PaymentPolicy{}, models.ErrCannotBurnNative
	}
	return models.TokenPayment(*params.PaymentAsset, *params.TicketPrice), nil
}

func (s *raffleService) GetRaffle(ctx context.Context, address models.Address) (*models.RaffleDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := uow.RaffleRepository().GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, models.ErrRaffleNotFound
	}

	detail := &models.RaffleDetail{Raffle: raffle}
	detail.Ledger, err = uow.EntrantRepository().GetLedger(ctx, raffle.Entrants)
	if err != nil {
		return nil, fmt.Errorf("failed to get entrant ledger: %w", err)
	}
	if !raffle.IsDrawn() || detail.Ledger == nil || detail.Ledger.Total == 0 {
		return detail, nil
	}

	index, err := models.WinnerIndex(*raffle.Randomness, detail.Ledger.Total)
	if err != nil {
		return nil, err
	}
	entrant, err := uow.EntrantRepository().GetEntrant(ctx, raffle.Entrants, index)
	if err != nil {
		return nil, fmt.Errorf("failed to get winning entrant: %w", err)
	}
	detail.WinnerIndex = &index
	if entrant != nil {
		detail.Winner = &entrant.Address
	}
	return detail, nil
}

func (s *raffleService) SetEntrantsURI(ctx context.Context, raffleAddress, caller models.Address, uri string) error {
	if err := models.ValidateURI(uri); err != nil {
		return err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := lockRaffle(ctx, uow, raffleAddress)
	if err != nil {
		return err
	}
	sponsor, err := getSponsor(ctx, uow, raffle.Sponsor)
	if err != nil {
		return err
	}
	if caller != sponsor.Authority {
		return models.ErrUnauthorized
	}

	raffle.URI = uri
	if err := uow.RaffleRepository().Update(ctx, raffle); err != nil {
		return fmt.Errorf("failed to update raffle: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *raffleService) DrawWinner(ctx context.Context, params models.DrawWinnerParams) (*models.RandomnessRequest, error) {
	if err := models.ValidateURI(params.URI); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := lockRaffle(ctx, uow, params.Raffle)
	if err != nil {
		return nil, err
	}
	if raffle.Claimed {
		return nil, models.ErrAlreadyClaimed
	}
	// Entrant count must be frozen before a seed can exist
	if !raffle.HasEnded(s.now()) {
		return nil, models.ErrRaffleNotEnded
	}
	if raffle.IsDrawn() {
		return nil, models.ErrWinnerAlreadyDrawn
	}

	pending, err := uow.RandomnessRequestRepository().GetPendingByRaffle(ctx, raffle.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending randomness: %w", err)
	}
	if pending != nil {
		return nil, models.ErrRandomnessPending
	}

	priorityFee := models.DefaultPriorityFee
	if params.PriorityFee != nil {
		priorityFee = *params.PriorityFee
	}
	request := &models.RandomnessRequest{
		ID:          uuid.New(),
		Raffle:      raffle.Address,
		Payer:       params.Payer,
		ByteCount:   models.SeedLength,
		PriorityFee: priorityFee,
		Status:      models.RandomnessRequestPending,
	}
	if err := uow.RandomnessRequestRepository().Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create randomness request: %w", err)
	}

	raffle.URI = params.URI
	if err := uow.RaffleRepository().Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	uow.EventBus().Publish(events.RandomnessRequestedEvent{
		RequestID:   request.ID,
		Raffle:      raffle.Address,
		ByteCount:   request.ByteCount,
		PriorityFee: request.PriorityFee,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":    raffle.Address,
		"requestID": request.ID,
	}).Info("Randomness requested")

	return request, nil
}

func (s *raffleService) ConsumeRandomness(ctx context.Context, requestID uuid.UUID, oracle models.Address, result []byte) error {
	if oracle != s.config.OracleAuthority {
		return models.ErrUnauthorized
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.RandomnessRequestRepository().GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to get randomness request: %w", err)
	}
	if request == nil {
		return models.ErrRandomnessRequestNotFound
	}

	raffle, err := lockRaffle(ctx, uow, request.Raffle)
	if err != nil {
		return err
	}
	if raffle.IsDrawn() || !request.IsPending() {
		return models.ErrWinnerAlreadyDrawn
	}

	seed, err := models.SeedFromBytes(result)
	if err != nil {
		log.WithFields(log.Fields{
			"raffle":    raffle.Address,
			"requestID": requestID,
			"length":    len(result),
		}).WithError(err).Error("Oracle returned malformed randomness")
		return err
	}

	if err := raffle.SetRandomness(seed); err != nil {
		return err
	}
	// Guarded again at write time against a concurrent duplicate reply
	if err := uow.RaffleRepository().SetRandomness(ctx, raffle.Address, seed); err != nil {
		return err
	}
	if err := uow.RandomnessRequestRepository().MarkFulfilled(ctx, request.ID, s.now()); err != nil {
		return fmt.Errorf("failed to mark randomness request fulfilled: %w", err)
	}

	var total uint32
	ledger, err := uow.EntrantRepository().GetLedger(ctx, raffle.Entrants)
	if err != nil {
		return fmt.Errorf("failed to get entrant ledger: %w", err)
	}
	if ledger != nil {
		total = ledger.Total
	}

	uow.EventBus().Publish(events.RandomnessConsumedEvent{
		RequestID: request.ID,
		Raffle:    raffle.Address,
		Entrants:  total,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":    raffle.Address,
		"requestID": request.ID,
		"entrants":  total,
	}).Info("Randomness consumed")

	return nil
}

func (s *raffleService) ClaimPrize(ctx context.Context, params models.ClaimPrizeParams) (*models.Settlement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := lockRaffle(ctx, uow, params.Raffle)
	if err != nil {
		return nil, err
	}
	if raffle.Claimed {
		return nil, models.ErrAlreadyClaimed
	}
	sponsor, err := getSponsor(ctx, uow, raffle.Sponsor)
	if err != nil {
		return nil, err
	}
	ledger, err := lockLedger(ctx, uow, raffle)
	if err != nil {
		return nil, err
	}

	var ticketIndex *uint32
	if ledger.Total == 0 {
		if params.Winner != sponsor.Authority {
			return nil, models.ErrOnlyAdminCanClaim
		}
	} else {
		if err := s.checkWinner(ctx, uow, raffle, ledger, params, sponsor); err != nil {
			return nil, err
		}
		index := params.TicketIndex
		ticketIndex = &index
	}

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	plan, err := s.prepareSettlement(ctx, uow, custody, raffle, sponsor)
	if err != nil {
		return nil, err
	}
	if err := s.executeSettlement(ctx, uow, custody, plan, params.Winner, params.Payer); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.PrizeClaimedEvent{
		Raffle:      raffle.Address,
		Winner:      params.Winner,
		TicketIndex: ticketIndex,
		Proceeds:    plan.split.Proceeds,
		Fee:         plan.split.Fee,
		Treasury:    plan.split.Treasury,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":   raffle.Address,
		"winner":   params.Winner,
		"proceeds": plan.split.Proceeds,
		"fee":      plan.split.Fee,
	}).Info("Prize claimed")

	return plan.settlement(params.Winner), nil
}

// checkWinner recomputes the winning ticket and authorizes the claimant
func (s *raffleService) checkWinner(ctx context.Context, uow UnitOfWork, raffle *models.Raffle, ledger *models.EntrantLedger, params models.ClaimPrizeParams, sponsor *models.Sponsor) error {
	if !raffle.IsDrawn() {
		return models.ErrWinnerNotDrawn
	}
	winnerIndex, err := models.WinnerIndex(*raffle.Randomness, ledger.Total)
	if err != nil {
		return err
	}
	if params.TicketIndex != winnerIndex {
		return models.ErrTicketNotWinner
	}

	entrant, err := uow.EntrantRepository().GetEntrant(ctx, raffle.Entrants, params.TicketIndex)
	if err != nil {
		return fmt.Errorf("failed to get winning entrant: %w", err)
	}
	if entrant == nil {
		return models.ErrTicketOutOfRange
	}
	if entrant.Address != params.Winner {
		return models.ErrNotWinner
	}
	if params.Payer != params.Winner && params.Payer != sponsor.Authority {
		return models.ErrOnlyWinnerOrAdminCanSettle
	}
	return nil
}

func (s *raffleService) CollectUnclaimedPrize(ctx context.Context, raffleAddress, caller models.Address) (*models.Settlement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := lockRaffle(ctx, uow, raffleAddress)
	if err != nil {
		return nil, err
	}
	sponsor, err := getSponsor(ctx, uow, raffle.Sponsor)
	if err != nil {
		return nil, err
	}
	if caller != sponsor.Authority {
		return nil, models.ErrUnauthorized
	}
	if raffle.Claimed {
		return nil, models.ErrAlreadyClaimed
	}
	if !raffle.IsDrawn() {
		return nil, models.ErrNotDrawn
	}
	if _, err := lockLedger(ctx, uow, raffle); err != nil {
		return nil, err
	}

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	plan, err := s.prepareSettlement(ctx, uow, custody, raffle, sponsor)
	if err != nil {
		return nil, err
	}
	if err := s.executeSettlement(ctx, uow, custody, plan, sponsor.Treasury, caller); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.PrizeCollectedEvent{
		Raffle:   raffle.Address,
		Treasury: sponsor.Treasury,
		Proceeds: plan.split.Proceeds,
		Fee:      plan.split.Fee,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":   raffle.Address,
		"treasury": sponsor.Treasury,
	}).Info("Unclaimed prize collected")

	return plan.settlement(sponsor.Treasury), nil
}

func (s *raffleService) CollectTicketAsset(ctx context.Context, raffleAddress, asset, caller models.Address) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raffle, err := lockRaffle(ctx, uow, raffleAddress)
	if err != nil {
		return err
	}
	sponsor, err := getSponsor(ctx, uow, raffle.Sponsor)
	if err != nil {
		return err
	}
	if caller != sponsor.Authority {
		return models.ErrUnauthorized
	}
	if !raffle.IsDrawn() {
		return models.ErrNotDrawn
	}
	if raffle.PaymentPolicy.Kind != models.PaymentPolicyUniqueAsset {
		return models.ErrTokenInstruction
	}
	if asset == raffle.Prize {
		return models.ErrInvalidInstruction
	}

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	dest, err := custody.EnsureAccount(ctx, sponsor.Treasury, asset, caller)
	if err != nil {
		return fmt.Errorf("failed to open treasury account: %w", err)
	}
	escrow := models.AssociatedAccount(raffle.Address, asset)
	if err := custody.TransferUnique(ctx, asset, escrow, dest.Address, raffle.Address, nil); err != nil {
		return fmt.Errorf("failed to collect ticket asset: %w", err)
	}
	if err := custody.CloseEmptyAccount(ctx, escrow, sponsor.Authority, raffle.Address); err != nil {
		return fmt.Errorf("failed to close ticket escrow: %w", err)
	}

	uow.EventBus().Publish(events.TicketAssetCollectedEvent{
		Raffle:   raffle.Address,
		Asset:    asset,
		Treasury: sponsor.Treasury,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *raffleService) DeleteRaffle(ctx context.Context, raffleAddress, caller models.Address) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pcfg, err := loadProgramConfig(ctx, uow)
	if err != nil {
		return err
	}
	if caller != pcfg.Authority {
		return models.ErrAdminOnly
	}

	raffle, err := lockRaffle(ctx, uow, raffleAddress)
	if err != nil {
		return err
	}
	if err := uow.RaffleRepository().Delete(ctx, raffle.Address); err != nil {
		return fmt.Errorf("failed to delete raffle: %w", err)
	}

	uow.EventBus().Publish(events.RaffleDeletedEvent{
		Raffle:   raffle.Address,
		Entrants: raffle.Entrants,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("raffle", raffle.Address).Warn("Raffle deleted by protocol authority")
	return nil
}

func (s *raffleService) RecoverUniqueAsset(ctx context.Context, params models.RecoverUniqueAssetParams) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pcfg, err := loadProgramConfig(ctx, uow)
	if err != nil {
		return err
	}
	if params.Caller != pcfg.Authority {
		return models.ErrAdminOnly
	}

	raffleAddress := models.RaffleAddress(s.config.ProgramID, params.Entrants)
	existing, err := uow.RaffleRepository().GetByAddress(ctx, raffleAddress)
	if err != nil {
		return fmt.Errorf("failed to get raffle: %w", err)
	}
	if existing != nil {
		return models.ErrRaffleStillExists
	}

	custody := NewLedgerCustody(uow.CustodyRepository(), s.config.NativeMint)
	dest, err := custody.EnsureAccount(ctx, params.Destination, params.Asset, params.Caller)
	if err != nil {
		return fmt.Errorf("failed to open destination account: %w", err)
	}
	// The raffle address still signs for its escrow after the record is gone
	escrow := models.AssociatedAccount(raffleAddress, params.Asset)
	if err := custody.TransferUnique(ctx, params.Asset, escrow, dest.Address, raffleAddress, nil); err != nil {
		return fmt.Errorf("failed to recover asset: %w", err)
	}
	if err := custody.CloseEmptyAccount(ctx, escrow, params.Caller, raffleAddress); err != nil {
		return fmt.Errorf("failed to close escrow: %w", err)
	}

	uow.EventBus().Publish(events.UniqueAssetRecoveredEvent{
		Entrants:    params.Entrants,
		Asset:       params.Asset,
		Destination: params.Destination,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"raffle":      raffleAddress,
		"asset":       params.Asset,
		"destination": params.Destination,
	}).Warn("Recovered escrowed asset of deleted raffle")
	return nil
}

// settlementPlan is everything settlement needs, read and validated before the first transfer
type settlementPlan struct {
	raffle         *models.Raffle
	sponsor        *models.Sponsor
	config         *models.ProgramConfig
	prizeEscrow    models.Address
	proceedsAsset  models.Address
	proceedsEscrow models.Address
	settles        bool
	split          models.ProceedsSplit
}

func (p *settlementPlan) settlement(recipient models.Address) *models.Settlement {
	return &models.Settlement{
		Raffle:          p.raffle.Address,
		Recipient:       recipient,
		Split:           p.split,
		ProceedsSettled: p.settles,
	}
}

func (s *raffleService) prepareSettlement(ctx context.Context, uow UnitOfWork, custody AssetCustody, raffle *models.Raffle, sponsor *models.Sponsor) (*settlementPlan, error) {
	pcfg, err := loadProgramConfig(ctx, uow)
	if err != nil {
		return nil, err
	}

	plan := &settlementPlan{
		raffle:      raffle,
		sponsor:     sponsor,
		config:      pcfg,
		prizeEscrow: models.AssociatedAccount(raffle.Address, raffle.Prize),
		settles:     raffle.SettlesProceeds(),
	}

	prize, err := custody.Account(ctx, plan.prizeEscrow)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize escrow: %w", err)
	}
	if prize == nil || prize.Amount != 1 {
		return nil, fmt.Errorf("%w: prize escrow %s is empty", models.ErrAccountNotFound, plan.prizeEscrow)
	}

	if !plan.settles {
		return plan, nil
	}
	plan.proceedsAsset = raffle.ProceedsAssetType(s.config.NativeMint)
	plan.proceedsEscrow = models.AssociatedAccount(raffle.Address, plan.proceedsAsset)
	escrow, err := custody.Account(ctx, plan.proceedsEscrow)
	if err != nil {
		return nil, fmt.Errorf("failed to get proceeds escrow: %w", err)
	}
	if escrow == nil {
		return nil, fmt.Errorf("%w: proceeds escrow %s", models.ErrAccountNotFound, plan.proceedsEscrow)
	}
	plan.split, err = models.SplitProceeds(escrow.Amount, pcfg.ProceedsShare)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// executeSettlement moves proceeds and the prize and tears down the raffle's escrow and ledger
func (s *raffleService) executeSettlement(ctx context.Context, uow UnitOfWork, custody AssetCustody, plan *settlementPlan, recipient, payer models.Address) error {
	raffle := plan.raffle

	if plan.settles {
		payouts := []struct {
			owner  models.Address
			amount uint64
		}{
			{plan.config.FeesWallet, plan.split.Fee},
			{plan.sponsor.Treasury, plan.split.Treasury},
		}
		for _, p := range payouts {
			if p.amount == 0 {
				continue
			}
			dest, err := custody.EnsureAccount(ctx, p.owner, plan.proceedsAsset, payer)
			if err != nil {
				return fmt.Errorf("failed to open proceeds destination: %w", err)
			}
			if err := custody.Transfer(ctx, plan.proceedsAsset, p.amount, plan.proceedsEscrow, dest.Address, raffle.Address); err != nil {
				return fmt.Errorf("failed to transfer proceeds: %w", err)
			}
		}
		if err := custody.CloseEmptyAccount(ctx, plan.proceedsEscrow, plan.config.Authority, raffle.Address); err != nil {
			return fmt.Errorf("failed to close proceeds escrow: %w", err)
		}
	}

	if err := raffle.MarkClaimed(); err != nil {
		return err
	}
	if err := uow.RaffleRepository().Update(ctx, raffle); err != nil {
		return fmt.Errorf("failed to update raffle: %w", err)
	}

	dest, err := custody.EnsureAccount(ctx, recipient, raffle.Prize, payer)
	if err != nil {
		return fmt.Errorf("failed to open prize destination: %w", err)
	}
	if err := custody.TransferUnique(ctx, raffle.Prize, plan.prizeEscrow, dest.Address, raffle.Address, nil); err != nil {
		return fmt.Errorf("failed to transfer prize: %w", err)
	}
	if err := custody.CloseEmptyAccount(ctx, plan.prizeEscrow, plan.sponsor.Authority, raffle.Address); err != nil {
		return fmt.Errorf("failed to close prize escrow: %w", err)
	}

	if err := custody.CloseWallet(ctx, raffle.Entrants, plan.config.FeesWallet); err != nil {
		return fmt.Errorf("failed to release ledger deposit: %w", err)
	}
	if err := uow.EntrantRepository().DeleteLedger(ctx, raffle.Entrants); err != nil {
		return fmt.Errorf("failed to delete entrant ledger: %w", err)
	}
	return nil
}

func loadProgramConfig(ctx context.Context, uow UnitOfWork) (*models.ProgramConfig, error) {
	pcfg, err := uow.ProgramConfigRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get program config: %w", err)
	}
	if pcfg == nil {
		return nil, models.ErrProgramConfigMissing
	}
	return pcfg, nil
}

func getSponsor(ctx context.Context, uow UnitOfWork, address models.Address) (*models.Sponsor, error) {
	sponsor, err := uow.SponsorRepository().GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsor: %w", err)
	}
	if sponsor == nil {
		return nil, models.ErrSponsorNotFound
	}
	return sponsor, nil
}
