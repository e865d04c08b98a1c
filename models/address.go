package models

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressLength is the width of every identity stored by the raffle program
const AddressLength = 32

// pdaMarker is appended to every derivation so derived addresses never collide with key-backed ones
const pdaMarker = "ProgramDerivedAddress"

// Address identifies a wallet, custody account, asset type or record
type Address [AddressLength]byte

// ZeroAddress is the unset address
var ZeroAddress Address

// ParseAddress decodes a base58 address
func ParseAddress(s string) (Address, error) {
	var addr Address
	decoded := base58.Decode(s)
	if len(decoded) != AddressLength {
		return addr, fmt.Errorf("invalid address %q: decoded length %d", s, len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// MustParseAddress is ParseAddress for constants and tests
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromBytes copies b into an Address
func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("invalid address length %d", len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns a copy of the raw address
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DeriveProgramAddress deterministically derives an address owned by programID from seeds.
// Nothing holds a private key for the result; the program presents it as a signing capability.
func DeriveProgramAddress(programID Address, seeds ...[]byte) Address {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// RaffleAddress derives the raffle record address (and escrow authority) from its entrant ledger
func RaffleAddress(programID, entrants Address) Address {
	return DeriveProgramAddress(programID, []byte("RAFFLE"), entrants[:], []byte("raffle"))
}

// SponsorAddress derives the sponsor profile address from its administrative authority
func SponsorAddress(programID, authority Address) Address {
	return DeriveProgramAddress(programID, []byte("RAFFLE"), authority[:], []byte("raffler"))
}

// AssociatedAccount derives the custody account holding assetType on behalf of owner
func AssociatedAccount(owner, assetType Address) Address {
	h := sha256.New()
	h.Write(owner[:])
	h.Write([]byte("associated"))
	h.Write(assetType[:])

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}
