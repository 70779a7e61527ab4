package hashing

import (
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/serialization"
	"github.com/pkg/errors"
)

// TransactionID returns the given transaction's ID: the hash of its
// canonical encoding with all signatures blanked out, so that signing a
// transaction does not change its ID.
func TransactionID(tx *model.Transaction) *model.TransactionID {
	writer := NewTransactionIDWriter()
	txCopy := clearSignatures(tx)
	err := serialization.SerializeTransaction(writer, &txCopy)
	if err != nil {
		// The hash writer never returns errors, and serialization has no
		// other error path.
		panic(errors.Wrap(err, "this should never happen. Serializing a transaction into a hash writer should never fail"))
	}
	return (*model.TransactionID)(writer.Finalize())
}

// TransactionSigningHash returns the signable payload for the input at
// inputIndex: the hash of the transaction's canonical signature-free
// encoding followed by the input index. Every input signs the same
// transaction content, but each at its own position, so signatures cannot
// be transplanted between inputs.
func TransactionSigningHash(tx *model.Transaction, inputIndex int) (*model.Hash, error) {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return nil, errors.Errorf("transaction signing hash input index %d "+
			"is out of bounds for a transaction with %d inputs",
			inputIndex, len(tx.Inputs))
	}

	writer := NewTransactionSigningHashWriter()
	txCopy := clearSignatures(tx)
	err := serialization.SerializeTransaction(writer, &txCopy)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Serializing a transaction into a hash writer should never fail"))
	}
	err = serialization.WriteUint32(writer, uint32(inputIndex))
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Hash writers should never fail"))
	}
	return writer.Finalize(), nil
}

// clearSignatures makes a shallow copy of the transaction with all input
// signatures blanked out. It is used over a deep copy since the copy only
// exists for the duration of one serialization.
func clearSignatures(tx *model.Transaction) model.Transaction {
	txCopy := *tx
	txCopy.Inputs = make([]*model.TransactionInput, len(tx.Inputs))
	for i, input := range tx.Inputs {
		inputCopy := *input
		inputCopy.Signature = nil
		txCopy.Inputs[i] = &inputCopy
	}
	return txCopy
}
