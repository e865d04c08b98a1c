package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"raffler/config"
	"raffler/events"
	"raffler/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memoryState is one consistent snapshot of every table the services touch
type memoryState struct {
	programConfig *models.ProgramConfig
	sponsors      map[models.Address]models.Sponsor
	raffles       map[models.Address]models.Raffle
	ledgers       map[models.Address]models.EntrantLedger
	entrants      map[models.Address]map[uint32]models.Address
	requests      map[uuid.UUID]models.RandomnessRequest
	wallets       map[models.Address]models.Wallet
	accounts      map[models.Address]models.TokenAccount
	assets        map[models.Address]models.AssetType
}

func newMemoryState() *memoryState {
	return &memoryState{
		sponsors: make(map[models.Address]models.Sponsor),
		raffles:  make(map[models.Address]models.Raffle),
		ledgers:  make(map[models.Address]models.EntrantLedger),
		entrants: make(map[models.Address]map[uint32]models.Address),
		requests: make(map[uuid.UUID]models.RandomnessRequest),
		wallets:  make(map[models.Address]models.Wallet),
		accounts: make(map[models.Address]models.TokenAccount),
		assets:   make(map[models.Address]models.AssetType),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	if s.programConfig != nil {
		pc := *s.programConfig
		c.programConfig = &pc
	}
	for k, v := range s.sponsors {
		c.sponsors[k] = v
	}
	for k, v := range s.raffles {
		c.raffles[k] = v
	}
	for k, v := range s.ledgers {
		c.ledgers[k] = v
	}
	for k, v := range s.entrants {
		entries := make(map[uint32]models.Address, len(v))
		for i, a := range v {
			entries[i] = a
		}
		c.entrants[k] = entries
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = v
	}
	return c
}

// memoryStore serializes units of work the way row locks serialize writers of one raffle
type memoryStore struct {
	mu        sync.Mutex
	state     *memoryState
	published []events.Event
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: newMemoryState()}
}

func (s *memoryStore) Create() UnitOfWork {
	return &memoryUnitOfWork{store: s}
}

// seed mutates committed state directly, for fixtures
func (s *memoryStore) seed(fn func(st *memoryState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// snapshot returns a copy of committed state
func (s *memoryStore) snapshot() *memoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *memoryStore) publishedEvents() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.published))
	copy(out, s.published)
	return out
}

type memoryUnitOfWork struct {
	store   *memoryStore
	working *memoryState
	pending []events.Event
	active  bool
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	u.store.mu.Lock()
	u.working = u.store.state.clone()
	u.active = true
	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if !u.active {
		return nil
	}
	u.store.state = u.working
	u.store.published = append(u.store.published, u.pending...)
	u.active = false
	u.store.mu.Unlock()
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.working = nil
	u.pending = nil
	u.active = false
	u.store.mu.Unlock()
	return nil
}

func (u *memoryUnitOfWork) ProgramConfigRepository() ProgramConfigRepository {
	return memoryRepos{u}
}

func (u *memoryUnitOfWork) SponsorRepository() SponsorRepository {
	return memorySponsors{u}
}

func (u *memoryUnitOfWork) RaffleRepository() RaffleRepository {
	return memoryRaffles{u}
}

func (u *memoryUnitOfWork) EntrantRepository() EntrantRepository {
	return memoryEntrants{u}
}

func (u *memoryUnitOfWork) RandomnessRequestRepository() RandomnessRequestRepository {
	return memoryRequests{u}
}

func (u *memoryUnitOfWork) CustodyRepository() CustodyRepository {
	return memoryCustody{u}
}

func (u *memoryUnitOfWork) EventBus() EventPublisher {
	return memoryPublisher{u}
}

type memoryPublisher struct{ u *memoryUnitOfWork }

func (p memoryPublisher) Publish(event events.Event) {
	p.u.pending = append(p.u.pending, event)
}

type memoryRepos struct{ u *memoryUnitOfWork }

func (r memoryRepos) Get(ctx context.Context) (*models.ProgramConfig, error) {
	if r.u.working.programConfig == nil {
		return nil, nil
	}
	pc := *r.u.working.programConfig
	return &pc, nil
}

func (r memoryRepos) Save(ctx context.Context, cfg *models.ProgramConfig) error {
	pc := *cfg
	r.u.working.programConfig = &pc
	return nil
}

type memorySponsors struct{ u *memoryUnitOfWork }

func (r memorySponsors) GetByAddress(ctx context.Context, address models.Address) (*models.Sponsor, error) {
	s, ok := r.u.working.sponsors[address]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r memorySponsors) Create(ctx context.Context, sponsor *models.Sponsor) error {
	r.u.working.sponsors[sponsor.Address] = *sponsor
	return nil
}

type memoryRaffles struct{ u *memoryUnitOfWork }

func (r memoryRaffles) Create(ctx context.Context, raffle *models.Raffle) error {
	r.u.working.raffles[raffle.Address] = *raffle
	return nil
}

func (r memoryRaffles) GetByAddress(ctx context.Context, address models.Address) (*models.Raffle, error) {
	raffle, ok := r.u.working.raffles[address]
	if !ok {
		return nil, nil
	}
	return &raffle, nil
}

func (r memoryRaffles) GetByAddressForUpdate(ctx context.Context, address models.Address) (*models.Raffle, error) {
	return r.GetByAddress(ctx, address)
}

func (r memoryRaffles) Update(ctx context.Context, raffle *models.Raffle) error {
	stored, ok := r.u.working.raffles[raffle.Address]
	if !ok {
		return models.ErrRaffleNotFound
	}
	stored.Claimed = raffle.Claimed
	stored.URI = raffle.URI
	r.u.working.raffles[raffle.Address] = stored
	return nil
}

func (r memoryRaffles) SetRandomness(ctx context.Context, address models.Address, seed models.Seed) error {
	stored, ok := r.u.working.raffles[address]
	if !ok {
		return models.ErrRaffleNotFound
	}
	if stored.Randomness != nil {
		return models.ErrWinnerAlreadyDrawn
	}
	stored.Randomness = &seed
	r.u.working.raffles[address] = stored
	return nil
}

func (r memoryRaffles) Delete(ctx context.Context, address models.Address) error {
	delete(r.u.working.raffles, address)
	return nil
}

type memoryEntrants struct{ u *memoryUnitOfWork }

func (r memoryEntrants) CreateLedger(ctx context.Context, ledger *models.EntrantLedger) error {
	r.u.working.ledgers[ledger.Address] = *ledger
	r.u.working.entrants[ledger.Address] = make(map[uint32]models.Address)
	return nil
}

func (r memoryEntrants) GetLedger(ctx context.Context, address models.Address) (*models.EntrantLedger, error) {
	ledger, ok := r.u.working.ledgers[address]
	if !ok {
		return nil, nil
	}
	return &ledger, nil
}

func (r memoryEntrants) GetLedgerForUpdate(ctx context.Context, address models.Address) (*models.EntrantLedger, error) {
	return r.GetLedger(ctx, address)
}

func (r memoryEntrants) UpdateLedger(ctx context.Context, ledger *models.EntrantLedger) error {
	r.u.working.ledgers[ledger.Address] = *ledger
	return nil
}

func (r memoryEntrants) AppendEntrants(ctx context.Context, ledger models.Address, firstIndex uint32, entrant models.Address, count uint32) error {
	entries := r.u.working.entrants[ledger]
	for i := uint32(0); i < count; i++ {
		entries[firstIndex+i] = entrant
	}
	return nil
}

func (r memoryEntrants) GetEntrant(ctx context.Context, ledger models.Address, index uint32) (*models.Entrant, error) {
	addr, ok := r.u.working.entrants[ledger][index]
	if !ok {
		return nil, nil
	}
	return &models.Entrant{Ledger: ledger, Index: index, Address: addr}, nil
}

func (r memoryEntrants) DeleteLedger(ctx context.Context, address models.Address) error {
	delete(r.u.working.ledgers, address)
	delete(r.u.working.entrants, address)
	return nil
}

type memoryRequests struct{ u *memoryUnitOfWork }

func (r memoryRequests) Create(ctx context.Context, request *models.RandomnessRequest) error {
	r.u.working.requests[request.ID] = *request
	return nil
}

func (r memoryRequests) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RandomnessRequest, error) {
	req, ok := r.u.working.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r memoryRequests) GetPendingByRaffle(ctx context.Context, raffle models.Address) (*models.RandomnessRequest, error) {
	for _, req := range r.u.working.requests {
		if req.Raffle == raffle && req.IsPending() {
			return &req, nil
		}
	}
	return nil, nil
}

func (r memoryRequests) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	req := r.u.working.requests[id]
	req.PublishedAt = &at
	req.PublishCount++
	r.u.working.requests[id] = req
	return nil
}

func (r memoryRequests) MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) error {
	req := r.u.working.requests[id]
	req.Status = models.RandomnessRequestFulfilled
	req.FulfilledAt = &at
	r.u.working.requests[id] = req
	return nil
}

func (r memoryRequests) ListUnpublished(ctx context.Context, cutoff time.Time, limit int) ([]*models.RandomnessRequest, error) {
	var out []*models.RandomnessRequest
	for _, req := range r.u.working.requests {
		if !req.IsPending() {
			continue
		}
		if req.PublishedAt == nil || req.PublishedAt.Before(cutoff) {
			req := req
			out = append(out, &req)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memoryCustody struct{ u *memoryUnitOfWork }

func (r memoryCustody) GetWallet(ctx context.Context, address models.Address) (*models.Wallet, error) {
	w, ok := r.u.working.wallets[address]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r memoryCustody) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	r.u.working.wallets[wallet.Address] = *wallet
	return nil
}

func (r memoryCustody) DeleteWallet(ctx context.Context, address models.Address) error {
	delete(r.u.working.wallets, address)
	return nil
}

func (r memoryCustody) GetAccount(ctx context.Context, address models.Address) (*models.TokenAccount, error) {
	a, ok := r.u.working.accounts[address]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memoryCustody) SaveAccount(ctx context.Context, account *models.TokenAccount) error {
	r.u.working.accounts[account.Address] = *account
	return nil
}

func (r memoryCustody) DeleteAccount(ctx context.Context, address models.Address) error {
	delete(r.u.working.accounts, address)
	return nil
}

func (r memoryCustody) GetAssetType(ctx context.Context, address models.Address) (*models.AssetType, error) {
	a, ok := r.u.working.assets[address]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memoryCustody) SaveAssetType(ctx context.Context, asset *models.AssetType) error {
	r.u.working.assets[asset.Address] = *asset
	return nil
}

// Fixtures

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

const (
	testWalletFunds       uint64        = 100_000_000
	testMetadataDeposit   uint64        = 5_000_000
	testProceedsShareBP   uint16        = 250
	testTicketPrice       uint64        = 100
	testRaffleDuration    time.Duration = 24 * time.Hour
	testProtocolRaffleFee uint64        = 50_000
)

type raffleFixture struct {
	store   *memoryStore
	cfg     *config.Config
	clock   *testClock
	raffles RaffleService
	tickets TicketService

	sponsor   *models.Sponsor
	authority models.Address
	treasury  models.Address
	protocol  models.Address

	payAsset   models.Address
	collection models.Address
	nextByte   byte
}

func newRaffleFixture(t *testing.T) *raffleFixture {
	t.Helper()

	cfg := config.NewTestConfig()
	store := newMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	f := &raffleFixture{
		store:     store,
		cfg:       cfg,
		clock:     clock,
		raffles:   NewRaffleService(store, cfg, clock.Now),
		tickets:   NewTicketService(store, cfg, clock.Now),
		authority: models.Address{0x10},
		treasury:  models.Address{0x11},
		protocol:  cfg.ProgramAuthority,
		nextByte:  0x40,
	}
	f.sponsor = &models.Sponsor{
		Address:   models.SponsorAddress(cfg.ProgramID, f.authority),
		Authority: f.authority,
		Slug:      "sponsor",
		Name:      "Sponsor",
		Treasury:  f.treasury,
		IsActive:  true,
	}

	store.seed(func(st *memoryState) {
		st.programConfig = &models.ProgramConfig{
			RaffleFee:     testProtocolRaffleFee,
			ProceedsShare: testProceedsShareBP,
			FeesWallet:    cfg.FeesWallet,
			Authority:     cfg.ProgramAuthority,
		}
		st.sponsors[f.sponsor.Address] = *f.sponsor
	})

	f.fund(f.authority, testWalletFunds)
	f.fund(f.protocol, testWalletFunds)
	f.payAsset = f.newFungible()
	f.collection = f.newAddress()
	return f
}

func (f *raffleFixture) newAddress() models.Address {
	f.nextByte++
	return models.Address{0xEE, f.nextByte}
}

func (f *raffleFixture) fund(owner models.Address, lamports uint64) {
	f.store.seed(func(st *memoryState) {
		w := st.wallets[owner]
		w.Address = owner
		w.Lamports += lamports
		st.wallets[owner] = w
	})
}

func (f *raffleFixture) newFungible() models.Address {
	asset := f.newAddress()
	f.store.seed(func(st *memoryState) {
		st.assets[asset] = models.AssetType{Address: asset, Decimals: 6, Supply: 1_000_000_000}
	})
	return asset
}

// newUnique mints a unique asset held by owner, optionally as a verified collection member
func (f *raffleFixture) newUnique(owner models.Address, collection *models.Address) models.Address {
	asset := f.newAddress()
	f.store.seed(func(st *memoryState) {
		st.assets[asset] = models.AssetType{
			Address:            asset,
			Supply:             1,
			Collection:         collection,
			CollectionVerified: collection != nil,
			MetadataDeposit:    testMetadataDeposit,
		}
		account := models.AssociatedAccount(owner, asset)
		st.accounts[account] = models.TokenAccount{
			Address:   account,
			Owner:     owner,
			AssetType: asset,
			Amount:    1,
			Lamports:  models.RentExemptMinimum(models.TokenAccountSize),
		}
	})
	return asset
}

func (f *raffleFixture) giveTokens(owner, asset models.Address, amount uint64) {
	f.store.seed(func(st *memoryState) {
		account := models.AssociatedAccount(owner, asset)
		a := st.accounts[account]
		a.Address = account
		a.Owner = owner
		a.AssetType = asset
		a.Amount += amount
		a.Lamports = models.RentExemptMinimum(models.TokenAccountSize)
		st.accounts[account] = a
	})
}

// newEntrant creates a funded entrant holding tokens of the fixture payment asset
func (f *raffleFixture) newEntrant(tokens uint64) models.Address {
	entrant := f.newAddress()
	f.fund(entrant, testWalletFunds)
	if tokens > 0 {
		f.giveTokens(entrant, f.payAsset, tokens)
	}
	return entrant
}

func (f *raffleFixture) tokenRaffle(t *testing.T, maxTickets uint32, entry models.EntryPolicy) *models.Raffle {
	t.Helper()
	price := testTicketPrice
	params := f.baseParams(maxTickets, entry)
	params.PaymentAsset = &f.payAsset
	params.TicketPrice = &price

	raffle, err := f.raffles.InitRaffle(context.Background(), params)
	require.NoError(t, err)
	return raffle
}

func (f *raffleFixture) uniqueRaffle(t *testing.T, maxTickets uint32, entry models.EntryPolicy) *models.Raffle {
	t.Helper()
	params := f.baseParams(maxTickets, entry)
	params.RequiredCollection = &f.collection

	raffle, err := f.raffles.InitRaffle(context.Background(), params)
	require.NoError(t, err)
	return raffle
}

func (f *raffleFixture) baseParams(maxTickets uint32, entry models.EntryPolicy) models.InitRaffleParams {
	return models.InitRaffleParams{
		Sponsor:     f.sponsor.Address,
		Authority:   f.authority,
		Prize:       f.newUnique(f.authority, nil),
		MaxTickets:  &maxTickets,
		EntryPolicy: entry,
		Duration:    testRaffleDuration,
	}
}

// draw ends the raffle and feeds the oracle reply
func (f *raffleFixture) draw(t *testing.T, raffle *models.Raffle, seed models.Seed) {
	t.Helper()
	ctx := context.Background()
	f.clock.Set(raffle.EndTime)

	request, err := f.raffles.DrawWinner(ctx, models.DrawWinnerParams{
		Raffle: raffle.Address,
		Payer:  f.authority,
		URI:    "ipfs://entrants",
	})
	require.NoError(t, err)
	require.NoError(t, f.raffles.ConsumeRandomness(ctx, request.ID, f.cfg.OracleAuthority, seed[:]))
}

func (f *raffleFixture) account(owner, asset models.Address) *models.TokenAccount {
	a, ok := f.store.snapshot().accounts[models.AssociatedAccount(owner, asset)]
	if !ok {
		return nil
	}
	return &a
}

func (f *raffleFixture) wallet(owner models.Address) uint64 {
	return f.store.snapshot().wallets[owner].Lamports
}

func (f *raffleFixture) ledger(raffle *models.Raffle) *models.EntrantLedger {
	l, ok := f.store.snapshot().ledgers[raffle.Entrants]
	if !ok {
		return nil
	}
	return &l
}

func seedOne() models.Seed {
	var seed models.Seed
	seed[models.SeedLength-1] = 0x01
	return seed
}
