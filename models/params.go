package models

import "time"

// InitRaffleParams carries the sponsor's raffle configuration
type InitRaffleParams struct {
	Sponsor   Address
	Authority Address
	// Entrants is the ledger address; a fresh one is generated when zero
	Entrants Address
	Prize    Address

	MaxTickets  *uint32
	EntryPolicy EntryPolicy

	// PaymentAsset selects token payment; RequiredCollection selects unique-asset payment
	PaymentAsset       *Address
	TicketPrice        *uint64
	RequiredCollection *Address

	StartTime       *time.Time
	Duration        time.Duration
	GatedCollection *Address
	MaxEntrantPct   *uint16
}

// GateProof points at the gating asset the entrant holds
type GateProof struct {
	Asset Address
}

// BuyTicketsTokenParams is a fungible-asset ticket purchase
type BuyTicketsTokenParams struct {
	Raffle       Address
	Entrant      Address
	PaymentAsset Address
	Amount       uint32
	Gate         *GateProof
}

// BuyTicketUniqueParams is a single-ticket purchase paid with a unique asset
type BuyTicketUniqueParams struct {
	Raffle  Address
	Entrant Address
	Asset   Address
	Gate    *GateProof
	Royalty *RoyaltyContext
}

// PurchaseResult reports the tickets a purchase appended
type PurchaseResult struct {
	Raffle     Address
	Entrant    Address
	FirstIndex uint32
	Amount     uint32
	Cost       uint64
	Total      uint32
	// WithheldProceeds is the burn refund forwarded into escrow
	WithheldProceeds uint64
}

// DrawWinnerParams requests randomness for a raffle
type DrawWinnerParams struct {
	Raffle      Address
	Payer       Address
	URI         string
	PriorityFee *uint64
}

// ClaimPrizeParams settles a raffle in favour of Winner
type ClaimPrizeParams struct {
	Raffle      Address
	Winner      Address
	Payer       Address
	TicketIndex uint32
}

// RecoverUniqueAssetParams releases escrow of a deleted raffle
type RecoverUniqueAssetParams struct {
	Entrants    Address
	Asset       Address
	Destination Address
	Caller      Address
}

// Settlement reports the value moved when a raffle is settled
type Settlement struct {
	Raffle    Address
	Recipient Address
	Split     ProceedsSplit
	// ProceedsSettled is false when the payment policy creates no proceeds
	ProceedsSettled bool
}

// RaffleDetail is a read model of one raffle
type RaffleDetail struct {
	Raffle      *Raffle
	Ledger      *EntrantLedger
	WinnerIndex *uint32
	Winner      *Address
}
