package model

import "encoding/hex"

// TransactionID is the stable content hash of a transaction, computed over
// its canonical encoding excluding signatures. Transactions are keyed by
// their ID everywhere in the ledger.
type TransactionID Hash

// NewTransactionIDFromByteArray constructs a TransactionID from the given byte array
func NewTransactionIDFromByteArray(transactionIDBytes *[HashSize]byte) *TransactionID {
	return &TransactionID{
		hashArray: *transactionIDBytes,
	}
}

// NewTransactionIDFromByteSlice constructs a TransactionID from the given byte slice
func NewTransactionIDFromByteSlice(transactionIDBytes []byte) (*TransactionID, error) {
	hash, err := NewHashFromByteSlice(transactionIDBytes)
	if err != nil {
		return nil, err
	}
	return (*TransactionID)(hash), nil
}

// NewTransactionIDFromString constructs a TransactionID from the hexadecimal
// representation of a transaction ID
func NewTransactionIDFromString(transactionIDString string) (*TransactionID, error) {
	hash, err := NewHashFromString(transactionIDString)
	if err != nil {
		return nil, err
	}
	return (*TransactionID)(hash), nil
}

// String stringifies a transaction ID.
func (id TransactionID) String() string {
	return hex.EncodeToString(id.hashArray[:])
}

// ByteSlice returns the bytes in this transaction ID represented as a byte slice.
// The bytes are cloned, therefore it is safe to modify the resulting slice.
func (id *TransactionID) ByteSlice() []byte {
	return (*Hash)(id).ByteSlice()
}

// Equal returns whether id equals to other
func (id *TransactionID) Equal(other *TransactionID) bool {
	return (*Hash)(id).Equal((*Hash)(other))
}

// Less returns true if id is less than other
func (id *TransactionID) Less(other *TransactionID) bool {
	return (*Hash)(id).Less((*Hash)(other))
}

// LessOrEqual returns true if id is less than or equal to other
func (id *TransactionID) LessOrEqual(other *TransactionID) bool {
	return (*Hash)(id).LessOrEqual((*Hash)(other))
}
