package hashing

import (
	"hash"

	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	transactionIDDomain      = "ObolTransactionID"
	transactionSigningDomain = "ObolTransactionSigningHash"
)

// HashWriter is used to incrementally hash data without concatenating all of
// the data to a single buffer. It exposes an io.Writer api and a Finalize
// function to get the resulting hash. The used hash function is blake2b,
// keyed per domain, so hashes from different domains can never collide.
// HashWriters can only be created via one of the domain separated constructors.
type HashWriter struct {
	hash.Hash
}

// NewTransactionIDWriter returns a new HashWriter used for transaction IDs
func NewTransactionIDWriter() HashWriter {
	return newKeyedWriter(transactionIDDomain)
}

// NewTransactionSigningHashWriter returns a new HashWriter used for
// per-input signing hashes
func NewTransactionSigningHashWriter() HashWriter {
	return newKeyedWriter(transactionSigningDomain)
}

func newKeyedWriter(domain string) HashWriter {
	blake, err := blake2b.New256([]byte(domain))
	if err != nil {
		panic(errors.Wrapf(err, "blake2b.New256(%s) should never fail", domain))
	}
	return HashWriter{blake}
}

// InfallibleWrite is just like write but doesn't return anything
func (h HashWriter) InfallibleWrite(p []byte) {
	// This write can never return an error, as per the hash.Hash interface contract.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// Finalize returns the resulting hash
func (h HashWriter) Finalize() *model.Hash {
	var sum [model.HashSize]byte
	copy(sum[:], h.Sum(sum[:0]))
	return model.NewHashFromByteArray(&sum)
}
