package model

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize is the size, in bytes, of hashes used throughout the ledger.
const HashSize = 32

// Hash is the domain representation of a blake2b-256 hash
type Hash struct {
	hashArray [HashSize]byte
}

// NewHashFromByteArray constructs a Hash from the given byte array
func NewHashFromByteArray(hashBytes *[HashSize]byte) *Hash {
	return &Hash{
		hashArray: *hashBytes,
	}
}

// NewHashFromByteSlice constructs a Hash from the given byte slice
func NewHashFromByteSlice(hashBytes []byte) (*Hash, error) {
	if len(hashBytes) != HashSize {
		return nil, errors.Errorf("invalid hash size. Want: %d, got: %d",
			HashSize, len(hashBytes))
	}
	hash := Hash{
		hashArray: [HashSize]byte{},
	}
	copy(hash.hashArray[:], hashBytes)
	return &hash, nil
}

// NewHashFromString constructs a Hash from the hexadecimal representation
// of a hash
func NewHashFromString(hashString string) (*Hash, error) {
	expectedLength := HashSize * 2
	if len(hashString) != expectedLength {
		return nil, errors.Errorf("hash string length is %d, while it should be %d",
			len(hashString), expectedLength)
	}

	hashBytes, err := hex.DecodeString(hashString)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return NewHashFromByteSlice(hashBytes)
}

// String returns the Hash as the hexadecimal string of the hash.
func (hash Hash) String() string {
	return hex.EncodeToString(hash.hashArray[:])
}

// ByteArray returns the bytes in this hash represented as a byte array.
// The hash bytes are cloned, therefore it is safe to modify the resulting array.
func (hash *Hash) ByteArray() *[HashSize]byte {
	arrayClone := hash.hashArray
	return &arrayClone
}

// ByteSlice returns the bytes in this hash represented as a byte slice.
// The hash bytes are cloned, therefore it is safe to modify the resulting slice.
func (hash *Hash) ByteSlice() []byte {
	return hash.ByteArray()[:]
}

// Equal returns whether hash equals to other
func (hash *Hash) Equal(other *Hash) bool {
	if hash == nil || other == nil {
		return hash == other
	}

	return hash.hashArray == other.hashArray
}

// Less returns true if hash is less than other
func (hash *Hash) Less(other *Hash) bool {
	// Hashes are compared backwards, since they're stored as
	// little endian byte arrays.
	for i := HashSize - 1; i >= 0; i-- {
		switch {
		case hash.hashArray[i] < other.hashArray[i]:
			return true
		case hash.hashArray[i] > other.hashArray[i]:
			return false
		}
	}
	return false
}

// LessOrEqual returns true if hash is less than or equal to other
func (hash *Hash) LessOrEqual(other *Hash) bool {
	return !other.Less(hash)
}
