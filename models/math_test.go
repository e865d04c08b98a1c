package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketCost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		price   uint64
		amount  uint32
		want    uint64
		wantErr error
	}{
		{name: "single ticket", price: 100, amount: 1, want: 100},
		{name: "bulk tickets", price: 250_000, amount: 40, want: 10_000_000},
		{name: "free tickets", price: 0, amount: 7, want: 0},
		{name: "largest exact product", price: math.MaxUint64 / 5, amount: 5, want: (math.MaxUint64 / 5) * 5},
		{name: "overflow", price: math.MaxUint64/2 + 1, amount: 2, wantErr: ErrMulOverflow},
		{name: "overflow with max amount", price: math.MaxUint64, amount: math.MaxUint32, wantErr: ErrMulOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := TicketCost(tt.price, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckedAddSub(t *testing.T) {
	t.Parallel()

	sum, err := CheckedAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrAddOverflow)

	diff, err := CheckedSub(5, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), diff)

	_, err = CheckedSub(4, 5)
	assert.ErrorIs(t, err, ErrSubOverflow)
}

func TestSplitProceeds(t *testing.T) {
	t.Parallel()

	split, err := SplitProceeds(300, 250)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), split.Fee)
	assert.Equal(t, uint64(293), split.Treasury)

	split, err = SplitProceeds(math.MaxUint64, BasisPointsDenominator)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), split.Fee)
	assert.Equal(t, uint64(0), split.Treasury)

	_, err = SplitProceeds(1000, BasisPointsDenominator+1)
	assert.ErrorIs(t, err, ErrInvalidFeeShare)
}

func TestSplitProceeds_SumsToProceeds(t *testing.T) {
	t.Parallel()

	proceeds := []uint64{0, 1, 9, 10_000, 123_456_789, math.MaxUint64 / 3, math.MaxUint64 - 1, math.MaxUint64}
	shares := []uint16{0, 1, 250, 333, 5_000, 9_999, 10_000}

	for _, p := range proceeds {
		for _, f := range shares {
			split, err := SplitProceeds(p, f)
			require.NoError(t, err)
			assert.Equal(t, p, split.Fee+split.Treasury, "proceeds=%d fee_bp=%d", p, f)
			assert.LessOrEqual(t, split.Fee, p)
		}
	}
}

func TestRentExemptMinimum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(2_039_280), RentExemptMinimum(TokenAccountSize))
	assert.Greater(t, RentExemptMinimum(CapacityFor(2)), RentExemptMinimum(CapacityFor(1)))
}
