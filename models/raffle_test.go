package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRaffle_CheckPurchaseWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name    string
		now     time.Time
		claimed bool
		wantErr error
	}{
		{
			name:    "before start",
			now:     start.Add(-time.Second),
			wantErr: ErrNotStarted,
		},
		{
			name: "exactly at start",
			now:  start,
		},
		{
			name: "inside window",
			now:  start.Add(time.Hour),
		},
		{
			name:    "exactly at end",
			now:     end,
			wantErr: ErrEnded,
		},
		{
			name:    "after end",
			now:     end.Add(time.Minute),
			wantErr: ErrEnded,
		},
		{
			name:    "claimed raffle inside window",
			now:     start.Add(time.Hour),
			claimed: true,
			wantErr: ErrAlreadyClaimed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raffle := &Raffle{StartTime: start, EndTime: end, Claimed: tt.claimed}
			err := raffle.CheckPurchaseWindow(tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRaffle_SettlesProceeds(t *testing.T) {
	t.Parallel()

	mint := Address{7}
	collection := Address{9}

	tests := []struct {
		name    string
		entry   EntryPolicy
		payment PaymentPolicy
		want    bool
	}{
		{"token spend", SpendEntry(), TokenPayment(mint, 100), true},
		{"token burn", BurnEntry(false), TokenPayment(mint, 100), true},
		{"unique send", SpendEntry(), UniqueAssetPayment(collection), false},
		{"unique burn without withholding", BurnEntry(false), UniqueAssetPayment(collection), false},
		{"unique burn withholding proceeds", BurnEntry(true), UniqueAssetPayment(collection), true},
		{"unique stake", StakeEntry(3600), UniqueAssetPayment(collection), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raffle := &Raffle{EntryPolicy: tt.entry, PaymentPolicy: tt.payment}
			assert.Equal(t, tt.want, raffle.SettlesProceeds())
		})
	}
}

func TestRaffle_ProceedsAssetType(t *testing.T) {
	t.Parallel()

	mint := Address{7}
	native := Address{1}

	token := &Raffle{PaymentPolicy: TokenPayment(mint, 5)}
	assert.Equal(t, mint, token.ProceedsAssetType(native))

	unique := &Raffle{PaymentPolicy: UniqueAssetPayment(Address{2})}
	assert.Equal(t, native, unique.ProceedsAssetType(native))
}

func TestRaffle_WriteOnceTransitions(t *testing.T) {
	t.Parallel()

	raffle := &Raffle{}
	first := Seed{1}
	second := Seed{2}

	assert.NoError(t, raffle.SetRandomness(first))
	assert.ErrorIs(t, raffle.SetRandomness(second), ErrWinnerAlreadyDrawn)
	assert.Equal(t, first, *raffle.Randomness)

	assert.NoError(t, raffle.MarkClaimed())
	assert.ErrorIs(t, raffle.MarkClaimed(), ErrAlreadyClaimed)
	assert.True(t, raffle.Claimed)
}

func TestEntryPolicy_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, SpendEntry().Validate())
	assert.NoError(t, BurnEntry(true).Validate())
	assert.NoError(t, StakeEntry(60).Validate())
	assert.Error(t, EntryPolicy{Kind: EntryPolicySpend, WithholdProceeds: true}.Validate())
	assert.Error(t, EntryPolicy{Kind: EntryPolicyStake, MinimumPeriod: -1}.Validate())
	assert.Error(t, EntryPolicy{Kind: "lease"}.Validate())
}

func TestValidateURI(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ValidateURI(""), ErrURIRequired)
	assert.NoError(t, ValidateURI("ar://distribution-log"))
	assert.NoError(t, ValidateURI(string(make([]byte, MaxURILength))))
	assert.ErrorIs(t, ValidateURI(string(make([]byte, MaxURILength+1))), ErrURITooLong)
}
