package models

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// SeedLength is the number of random bytes requested from the oracle
const SeedLength = 32

// DefaultPriorityFee is attached to randomness requests when the caller supplies none
const DefaultPriorityFee uint64 = 100

// Seed is the write-once randomness stored on a raffle
type Seed [SeedLength]byte

// SeedFromBytes accepts exactly SeedLength bytes. Any other length is a fatal oracle fault.
func SeedFromBytes(b []byte) (Seed, error) {
	var seed Seed
	if len(b) != SeedLength {
		return seed, fmt.Errorf("%w: got %d bytes", ErrMalformedRandomness, len(b))
	}
	copy(seed[:], b)
	return seed, nil
}

// ExpandRandomness hashes the seed with Keccak-256 and reads the first four bytes little-endian
func ExpandRandomness(seed Seed) uint32 {
	h := sha3.NewLegacyKeccak256()
	h.Write(seed[:])
	digest := h.Sum(nil)
	return binary.LittleEndian.Uint32(digest[:4])
}

// WinnerIndex resolves the winning ticket for a frozen entrant count
func WinnerIndex(seed Seed, total uint32) (uint32, error) {
	if total == 0 {
		return 0, ErrTicketOutOfRange
	}
	return ExpandRandomness(seed) % total, nil
}

// RandomnessRequestStatus tracks an oracle round trip
type RandomnessRequestStatus string

const (
	RandomnessRequestPending   RandomnessRequestStatus = "pending"
	RandomnessRequestFulfilled RandomnessRequestStatus = "fulfilled"
)

// RandomnessRequest is an outstanding ask to the oracle on behalf of one raffle
type RandomnessRequest struct {
	ID           uuid.UUID               `db:"id"`
	Raffle       Address                 `db:"raffle"`
	Payer        Address                 `db:"payer"`
	ByteCount    int                     `db:"byte_count"`
	PriorityFee  uint64                  `db:"priority_fee"`
	Status       RandomnessRequestStatus `db:"status"`
	PublishedAt  *time.Time              `db:"published_at"`
	PublishCount int                     `db:"publish_count"`
	FulfilledAt  *time.Time              `db:"fulfilled_at"`
	CreatedAt    time.Time               `db:"created_at"`
}

// IsPending reports whether the oracle has yet to answer
func (r *RandomnessRequest) IsPending() bool {
	return r.Status == RandomnessRequestPending
}
