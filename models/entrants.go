package models

import "time"

const (
	// EntrantLedgerHeaderSize covers the discriminator, total and max fields
	EntrantLedgerHeaderSize = 8 + 4 + 4

	// EntrantEntrySize is the width of one recorded entrant
	EntrantEntrySize = AddressLength
)

// EntrantLedger is the append-only list of ticket holders of one raffle.
// Entries live in their own table; the ledger tracks counts and funded storage.
type EntrantLedger struct {
	Address      Address   `db:"address"`
	Total        uint32    `db:"total"`
	Max          uint32    `db:"max"`
	StorageBytes uint64    `db:"storage_bytes"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// NewEntrantLedger returns an empty ledger sized for its header only
func NewEntrantLedger(address Address, max uint32) *EntrantLedger {
	return &EntrantLedger{
		Address:      address,
		Max:          max,
		StorageBytes: CapacityFor(0),
	}
}

// CapacityFor returns the bytes needed to hold n entries
func CapacityFor(n uint64) uint64 {
	return EntrantLedgerHeaderSize + EntrantEntrySize*n
}

// EntryOffset is where entry index starts inside the ledger's storage
func EntryOffset(index uint32) uint64 {
	return EntrantLedgerHeaderSize + EntrantEntrySize*uint64(index)
}

// Remaining is the number of tickets still available
func (l *EntrantLedger) Remaining() uint32 {
	return l.Max - l.Total
}

// IsSoldOut reports whether no further append can succeed
func (l *EntrantLedger) IsSoldOut() bool {
	return l.Total >= l.Max
}

// RequiredStorage returns the storage needed after appending amount more entries
func (l *EntrantLedger) RequiredStorage(amount uint32) uint64 {
	return CapacityFor(uint64(l.Total) + uint64(amount))
}

// Grow records that storage has been funded up to size bytes. Storage never shrinks.
func (l *EntrantLedger) Grow(size uint64) {
	if size > l.StorageBytes {
		l.StorageBytes = size
	}
}

// Append reserves the next slot and returns its index.
// Fails with ErrSoldOut when the ledger is full.
func (l *EntrantLedger) Append() (uint32, error) {
	if l.IsSoldOut() {
		return 0, ErrSoldOut
	}
	if EntryOffset(l.Total)+EntrantEntrySize > l.StorageBytes {
		return 0, ErrInsufficientFunds
	}
	index := l.Total
	l.Total++
	return index, nil
}

// CheckIndex validates a read position
func (l *EntrantLedger) CheckIndex(index uint32) error {
	if index >= l.Total {
		return ErrTicketOutOfRange
	}
	return nil
}

// Entrant is one recorded ticket
type Entrant struct {
	Ledger    Address   `db:"ledger"`
	Index     uint32    `db:"idx"`
	Address   Address   `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}
