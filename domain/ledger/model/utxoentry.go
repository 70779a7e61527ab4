package model

import "bytes"

// UTXOEntry houses details about an individual unspent transaction output:
// how much it pays and which key owns it. Entries are immutable; the pool
// hands out the same entry to every reader.
type UTXOEntry struct {
	amount         uint64
	ownerPublicKey []byte
}

// NewUTXOEntry creates a new UTXOEntry with the given amount, in lepton,
// and owner public key
func NewUTXOEntry(amount uint64, ownerPublicKey []byte) *UTXOEntry {
	ownerClone := make([]byte, len(ownerPublicKey))
	copy(ownerClone, ownerPublicKey)
	return &UTXOEntry{
		amount:         amount,
		ownerPublicKey: ownerClone,
	}
}

// Amount returns the amount this entry pays, in lepton
func (entry *UTXOEntry) Amount() uint64 {
	return entry.amount
}

// OwnerPublicKey returns the serialized Schnorr public key that owns this
// entry. Callers must not modify the returned slice.
func (entry *UTXOEntry) OwnerPublicKey() []byte {
	return entry.ownerPublicKey
}

// Equal returns whether entry equals to other
func (entry *UTXOEntry) Equal(other *UTXOEntry) bool {
	if entry == nil || other == nil {
		return entry == other
	}
	return entry.amount == other.amount &&
		bytes.Equal(entry.ownerPublicKey, other.ownerPublicKey)
}

// Clone returns a copy of this entry
func (entry *UTXOEntry) Clone() *UTXOEntry {
	return NewUTXOEntry(entry.amount, entry.ownerPublicKey)
}
