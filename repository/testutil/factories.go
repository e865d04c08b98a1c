package testutil

import (
	"time"

	"raffler/models"
)

// TestProgramID is the program every factory derives addresses under
var TestProgramID = models.Address{0xAA}

// CreateTestAddress returns a deterministic address distinct per seed
func CreateTestAddress(seed byte) models.Address {
	return models.Address{0xEE, seed}
}

// CreateTestProgramConfig creates a program config with a 250 bp proceeds share
func CreateTestProgramConfig() *models.ProgramConfig {
	return &models.ProgramConfig{
		RaffleFee:     50_000,
		ProceedsShare: 250,
		FeesWallet:    CreateTestAddress(0xAD),
		Authority:     CreateTestAddress(0xAB),
	}
}

// CreateTestSponsor creates an active sponsor controlled by authority
func CreateTestSponsor(authority models.Address, slug string) *models.Sponsor {
	return &models.Sponsor{
		Address:   models.SponsorAddress(TestProgramID, authority),
		Authority: authority,
		Slug:      slug,
		Name:      slug,
		Treasury:  models.Address{0x11, authority[1]},
		IsActive:  true,
	}
}

// CreateTestTokenRaffle creates a token raffle of sponsor that is open for a day
func CreateTestTokenRaffle(sponsor *models.Sponsor, entrants, prize, paymentAsset models.Address, ticketPrice uint64) *models.Raffle {
	start := time.Now().UTC().Truncate(time.Second)
	return &models.Raffle{
		Address:       models.RaffleAddress(TestProgramID, entrants),
		Sponsor:       sponsor.Address,
		Entrants:      entrants,
		Prize:         prize,
		EntryPolicy:   models.SpendEntry(),
		PaymentPolicy: models.TokenPayment(paymentAsset, ticketPrice),
		StartTime:     start,
		EndTime:       start.Add(24 * time.Hour),
		MaxEntrantPct: models.DefaultMaxEntrantPct,
	}
}

// CreateTestUniqueRaffle creates a burn-entry raffle paid with members of collection
func CreateTestUniqueRaffle(sponsor *models.Sponsor, entrants, prize, collection models.Address) *models.Raffle {
	raffle := CreateTestTokenRaffle(sponsor, entrants, prize, models.Address{}, 0)
	raffle.EntryPolicy = models.BurnEntry(true)
	raffle.PaymentPolicy = models.UniqueAssetPayment(collection)
	raffle.GatedCollection = &collection
	return raffle
}

// CreateTestTokenAccount creates the associated account of owner holding amount of asset
func CreateTestTokenAccount(owner, asset models.Address, amount uint64) *models.TokenAccount {
	return &models.TokenAccount{
		Address:   models.AssociatedAccount(owner, asset),
		Owner:     owner,
		AssetType: asset,
		Amount:    amount,
		Lamports:  models.RentExemptMinimum(models.TokenAccountSize),
	}
}
