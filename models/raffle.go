package models

import (
	"fmt"
	"math"
	"time"
)

const (
	// MaxRaffleDuration bounds end_time - start_time
	MaxRaffleDuration = 30 * 24 * time.Hour

	// MaxURILength bounds the distribution log reference
	MaxURILength = 63

	// DefaultMaxTickets is used when the sponsor leaves capacity open
	DefaultMaxTickets uint32 = math.MaxUint32

	// DefaultMaxEntrantPct lets a single entrant hold every ticket
	DefaultMaxEntrantPct uint16 = BasisPointsDenominator
)

// EntryPolicyKind discriminates EntryPolicy
type EntryPolicyKind string

const (
	EntryPolicySpend EntryPolicyKind = "spend"
	EntryPolicyBurn  EntryPolicyKind = "burn"
	EntryPolicyStake EntryPolicyKind = "stake"
)

// EntryPolicy says how a ticket payment is consumed
type EntryPolicy struct {
	Kind EntryPolicyKind `json:"kind"`
	// WithholdProceeds is only meaningful for EntryPolicyBurn
	WithholdProceeds bool `json:"withhold_proceeds,omitempty"`
	// MinimumPeriod is only meaningful for EntryPolicyStake
	MinimumPeriod int64 `json:"minimum_period,omitempty"`
}

func SpendEntry() EntryPolicy {
	return EntryPolicy{Kind: EntryPolicySpend}
}

func BurnEntry(withholdProceeds bool) EntryPolicy {
	return EntryPolicy{Kind: EntryPolicyBurn, WithholdProceeds: withholdProceeds}
}

func StakeEntry(minimumPeriod int64) EntryPolicy {
	return EntryPolicy{Kind: EntryPolicyStake, MinimumPeriod: minimumPeriod}
}

// Validate rejects unknown kinds and fields set on the wrong variant
func (p EntryPolicy) Validate() error {
	switch p.Kind {
	case EntryPolicySpend:
		if p.WithholdProceeds || p.MinimumPeriod != 0 {
			return fmt.Errorf("spend entry policy carries burn or stake options")
		}
	case EntryPolicyBurn:
		if p.MinimumPeriod != 0 {
			return fmt.Errorf("burn entry policy carries a stake period")
		}
	case EntryPolicyStake:
		if p.WithholdProceeds {
			return fmt.Errorf("stake entry policy carries burn options")
		}
		if p.MinimumPeriod < 0 {
			return fmt.Errorf("stake minimum period cannot be negative")
		}
	default:
		return fmt.Errorf("unknown entry policy %q", p.Kind)
	}
	return nil
}

// PaymentPolicyKind discriminates PaymentPolicy
type PaymentPolicyKind string

const (
	PaymentPolicyToken       PaymentPolicyKind = "token"
	PaymentPolicyUniqueAsset PaymentPolicyKind = "unique_asset"
)

// PaymentPolicy says what a ticket costs
type PaymentPolicy struct {
	Kind PaymentPolicyKind `json:"kind"`
	// AssetType and TicketPrice are set for PaymentPolicyToken
	AssetType   Address `json:"asset_type,omitempty"`
	TicketPrice uint64  `json:"ticket_price,omitempty"`
	// RequiredCollection is set for PaymentPolicyUniqueAsset
	RequiredCollection Address `json:"required_collection,omitempty"`
}

func TokenPayment(assetType Address, ticketPrice uint64) PaymentPolicy {
	return PaymentPolicy{Kind: PaymentPolicyToken, AssetType: assetType, TicketPrice: ticketPrice}
}

func UniqueAssetPayment(requiredCollection Address) PaymentPolicy {
	return PaymentPolicy{Kind: PaymentPolicyUniqueAsset, RequiredCollection: requiredCollection}
}

// Raffle is the lifecycle record of one raffle
type Raffle struct {
	Address         Address       `db:"address"`
	Sponsor         Address       `db:"sponsor"`
	Entrants        Address       `db:"entrants"`
	Prize           Address       `db:"prize"`
	Randomness      *Seed         `db:"randomness"`
	EntryPolicy     EntryPolicy   `db:"entry_policy"`
	PaymentPolicy   PaymentPolicy `db:"payment_policy"`
	GatedCollection *Address      `db:"gated_collection"`
	StartTime       time.Time     `db:"start_time"`
	EndTime         time.Time     `db:"end_time"`
	Claimed         bool          `db:"claimed"`
	MaxEntrantPct   uint16        `db:"max_entrant_pct"`
	URI             string        `db:"uri"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// IsGated reports whether purchases need a gating proof
func (r *Raffle) IsGated() bool {
	return r.GatedCollection != nil
}

// IsDrawn reports whether the oracle seed has been stored
func (r *Raffle) IsDrawn() bool {
	return r.Randomness != nil
}

// HasEnded reports whether the purchase window has closed
func (r *Raffle) HasEnded(now time.Time) bool {
	return !now.Before(r.EndTime)
}

// CheckPurchaseWindow enforces start_time ≤ now < end_time on an unsettled raffle
func (r *Raffle) CheckPurchaseWindow(now time.Time) error {
	if r.Claimed {
		return ErrAlreadyClaimed
	}
	if now.Before(r.StartTime) {
		return ErrNotStarted
	}
	if r.HasEnded(now) {
		return ErrEnded
	}
	return nil
}

// SettlesProceeds reports whether claim moves escrowed proceeds
func (r *Raffle) SettlesProceeds() bool {
	switch r.PaymentPolicy.Kind {
	case PaymentPolicyToken:
		return true
	case PaymentPolicyUniqueAsset:
		return r.EntryPolicy.Kind == EntryPolicyBurn && r.EntryPolicy.WithholdProceeds
	default:
		return false
	}
}

// ProceedsAssetType is the asset held by the proceeds escrow
func (r *Raffle) ProceedsAssetType(nativeMint Address) Address {
	switch r.PaymentPolicy.Kind {
	case PaymentPolicyToken:
		return r.PaymentPolicy.AssetType
	default:
		return nativeMint
	}
}

// SetRandomness performs the write-once seed transition
func (r *Raffle) SetRandomness(seed Seed) error {
	if r.Randomness != nil {
		return ErrWinnerAlreadyDrawn
	}
	r.Randomness = &seed
	return nil
}

// MarkClaimed performs the one-way claimed transition
func (r *Raffle) MarkClaimed() error {
	if r.Claimed {
		return ErrAlreadyClaimed
	}
	r.Claimed = true
	return nil
}

// ValidateURI checks the distribution log reference
func ValidateURI(uri string) error {
	if uri == "" {
		return ErrURIRequired
	}
	if len(uri) > MaxURILength {
		return ErrURITooLong
	}
	return nil
}

// Sponsor is the raffler profile that owns raffles
type Sponsor struct {
	Address   Address   `db:"address"`
	Authority Address   `db:"authority"`
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	Treasury  Address   `db:"treasury"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// ProgramConfig is the administrative configuration consumed by the raffle program
type ProgramConfig struct {
	// RaffleFee is the native creation fee charged to the sponsor
	RaffleFee uint64 `db:"raffle_fee"`
	// ProceedsShare is the protocol fee in basis points
	ProceedsShare uint16    `db:"proceeds_share"`
	FeesWallet    Address   `db:"fees_wallet"`
	Authority     Address   `db:"authority"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (c *ProgramConfig) Validate() error {
	if c.ProceedsShare > BasisPointsDenominator {
		return ErrInvalidFeeShare
	}
	return nil
}
