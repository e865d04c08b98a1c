package service

import (
	"context"
	"time"

	"raffler/events"
	"raffler/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProgramConfigRepository is a mock implementation of ProgramConfigRepository
type MockProgramConfigRepository struct {
	mock.Mock
}

func (m *MockProgramConfigRepository) Get(ctx context.Context) (*models.ProgramConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgramConfig), args.Error(1)
}

func (m *MockProgramConfigRepository) Save(ctx context.Context, cfg *models.ProgramConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

// MockSponsorRepository is a mock implementation of SponsorRepository
type MockSponsorRepository struct {
	mock.Mock
}

func (m *MockSponsorRepository) GetByAddress(ctx context.Context, address models.Address) (*models.Sponsor, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Sponsor), args.Error(1)
}

func (m *MockSponsorRepository) Create(ctx context.Context, sponsor *models.Sponsor) error {
	args := m.Called(ctx, sponsor)
	return args.Error(0)
}

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetByAddress(ctx context.Context, address models.Address) (*models.Raffle, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetByAddressForUpdate(ctx context.Context, address models.Address) (*models.Raffle, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) Update(ctx context.Context, raffle *models.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) SetRandomness(ctx context.Context, address models.Address, seed models.Seed) error {
	args := m.Called(ctx, address, seed)
	return args.Error(0)
}

func (m *MockRaffleRepository) Delete(ctx context.Context, address models.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

// MockEntrantRepository is a mock implementation of EntrantRepository
type MockEntrantRepository struct {
	mock.Mock
}

func (m *MockEntrantRepository) CreateLedger(ctx context.Context, ledger *models.EntrantLedger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

func (m *MockEntrantRepository) GetLedger(ctx context.Context, address models.Address) (*models.EntrantLedger, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EntrantLedger), args.Error(1)
}

func (m *MockEntrantRepository) GetLedgerForUpdate(ctx context.Context, address models.Address) (*models.EntrantLedger, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EntrantLedger), args.Error(1)
}

func (m *MockEntrantRepository) UpdateLedger(ctx context.Context, ledger *models.EntrantLedger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

func (m *MockEntrantRepository) AppendEntrants(ctx context.Context, ledger models.Address, firstIndex uint32, entrant models.Address, count uint32) error {
	args := m.Called(ctx, ledger, firstIndex, entrant, count)
	return args.Error(0)
}

func (m *MockEntrantRepository) GetEntrant(ctx context.Context, ledger models.Address, index uint32) (*models.Entrant, error) {
	args := m.Called(ctx, ledger, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entrant), args.Error(1)
}

func (m *MockEntrantRepository) DeleteLedger(ctx context.Context, address models.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

// MockRandomnessRequestRepository is a mock implementation of RandomnessRequestRepository
type MockRandomnessRequestRepository struct {
	mock.Mock
}

func (m *MockRandomnessRequestRepository) Create(ctx context.Context, request *models.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRandomnessRequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RandomnessRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RandomnessRequest), args.Error(1)
}

func (m *MockRandomnessRequestRepository) GetPendingByRaffle(ctx context.Context, raffle models.Address) (*models.RandomnessRequest, error) {
	args := m.Called(ctx, raffle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RandomnessRequest), args.Error(1)
}

func (m *MockRandomnessRequestRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockRandomnessRequestRepository) MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockRandomnessRequestRepository) ListUnpublished(ctx context.Context, cutoff time.Time, limit int) ([]*models.RandomnessRequest, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RandomnessRequest), args.Error(1)
}

// MockCustodyRepository is a mock implementation of CustodyRepository
type MockCustodyRepository struct {
	mock.Mock
}

func (m *MockCustodyRepository) GetWallet(ctx context.Context, address models.Address) (*models.Wallet, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockCustodyRepository) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockCustodyRepository) DeleteWallet(ctx context.Context, address models.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockCustodyRepository) GetAccount(ctx context.Context, address models.Address) (*models.TokenAccount, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockCustodyRepository) SaveAccount(ctx context.Context, account *models.TokenAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockCustodyRepository) DeleteAccount(ctx context.Context, address models.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockCustodyRepository) GetAssetType(ctx context.Context, address models.Address) (*models.AssetType, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssetType), args.Error(1)
}

func (m *MockCustodyRepository) SaveAssetType(ctx context.Context, asset *models.AssetType) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockRandomnessOracle is a mock implementation of RandomnessOracle
type MockRandomnessOracle struct {
	mock.Mock
}

func (m *MockRandomnessOracle) RequestRandomness(ctx context.Context, request *models.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

// MockRandomnessDispatcher is a mock implementation of RandomnessDispatcher
type MockRandomnessDispatcher struct {
	mock.Mock
}

func (m *MockRandomnessDispatcher) Dispatch(ctx context.Context, requestID uuid.UUID) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *MockRandomnessDispatcher) DispatchStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Repository getters return whatever was installed with the setters.
type MockUnitOfWork struct {
	mock.Mock

	programConfigRepo ProgramConfigRepository
	sponsorRepo       SponsorRepository
	raffleRepo        RaffleRepository
	entrantRepo       EntrantRepository
	requestRepo       RandomnessRequestRepository
	custodyRepo       CustodyRepository
	eventBus          EventPublisher
}

// SetRepositories installs the raffle-side repositories
func (m *MockUnitOfWork) SetRepositories(programConfig ProgramConfigRepository, sponsors SponsorRepository, raffles RaffleRepository, entrants EntrantRepository) {
	m.programConfigRepo = programConfig
	m.sponsorRepo = sponsors
	m.raffleRepo = raffles
	m.entrantRepo = entrants
}

func (m *MockUnitOfWork) SetRandomnessRequestRepository(repo RandomnessRequestRepository) {
	m.requestRepo = repo
}

func (m *MockUnitOfWork) SetCustodyRepository(repo CustodyRepository) {
	m.custodyRepo = repo
}

func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) ProgramConfigRepository() ProgramConfigRepository {
	return m.programConfigRepo
}

func (m *MockUnitOfWork) SponsorRepository() SponsorRepository {
	return m.sponsorRepo
}

func (m *MockUnitOfWork) RaffleRepository() RaffleRepository {
	return m.raffleRepo
}

func (m *MockUnitOfWork) EntrantRepository() EntrantRepository {
	return m.entrantRepo
}

func (m *MockUnitOfWork) RandomnessRequestRepository() RandomnessRequestRepository {
	return m.requestRepo
}

func (m *MockUnitOfWork) CustodyRepository() CustodyRepository {
	return m.custodyRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return &noopPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}
