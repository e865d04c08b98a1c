package models

import "math/bits"

const (
	// BasisPointsDenominator is 100% expressed in basis points
	BasisPointsDenominator = 10_000

	// accountStorageOverhead and lamportsPerByte mirror the host's rent-exemption schedule
	accountStorageOverhead = 128
	lamportsPerByte        = 6_960

	// TokenAccountSize is the storage footprint of a fungible custody account
	TokenAccountSize = 165
)

// RentExemptMinimum returns the deposit that keeps an account of dataLen bytes alive
func RentExemptMinimum(dataLen uint64) uint64 {
	return (accountStorageOverhead + dataLen) * lamportsPerByte
}

// CheckedAdd returns a+b or ErrAddOverflow
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrAddOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrSubOverflow
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrSubOverflow
	}
	return diff, nil
}

// CheckedMul returns a*b or ErrMulOverflow
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMulOverflow
	}
	return lo, nil
}

// TicketCost is price × amount, failing closed on overflow
func TicketCost(price uint64, amount uint32) (uint64, error) {
	return CheckedMul(price, uint64(amount))
}

// ProceedsSplit is the outcome of dividing escrowed proceeds at settlement
type ProceedsSplit struct {
	Proceeds uint64
	Fee      uint64
	Treasury uint64
}

// SplitProceeds computes fee = floor(proceeds·feeBP/10000) with a 128-bit intermediate
// and gives the remainder to the treasury.
func SplitProceeds(proceeds uint64, feeBP uint16) (ProceedsSplit, error) {
	if feeBP > BasisPointsDenominator {
		return ProceedsSplit{}, ErrInvalidFeeShare
	}

	hi, lo := bits.Mul64(proceeds, uint64(feeBP))
	// hi < denominator always holds because feeBP ≤ denominator
	fee, _ := bits.Div64(hi, lo, BasisPointsDenominator)

	treasury, err := CheckedSub(proceeds, fee)
	if err != nil {
		return ProceedsSplit{}, err
	}

	return ProceedsSplit{Proceeds: proceeds, Fee: fee, Treasury: treasury}, nil
}
