package model

import (
	"fmt"
)

// Transaction represents an Obol transaction: an ordered list of inputs
// spending previously-unspent outputs, and an ordered list of newly-created
// outputs.
//
// A transaction must be treated as immutable once its ID has been computed;
// mutating inputs or outputs afterwards invalidates every collection keyed
// by its ID.
type Transaction struct {
	Version uint16
	Inputs  []*TransactionInput
	Outputs []*TransactionOutput

	// Fee is populated by validation and is not part of the
	// transaction's canonical encoding.
	Fee uint64
}

// Clone returns a deep copy of this transaction
func (tx *Transaction) Clone() *Transaction {
	inputsClone := make([]*TransactionInput, len(tx.Inputs))
	for i, input := range tx.Inputs {
		inputsClone[i] = input.Clone()
	}
	outputsClone := make([]*TransactionOutput, len(tx.Outputs))
	for i, output := range tx.Outputs {
		outputsClone[i] = output.Clone()
	}
	return &Transaction{
		Version: tx.Version,
		Inputs:  inputsClone,
		Outputs: outputsClone,
		Fee:     tx.Fee,
	}
}

// TransactionInput spends the output referenced by PreviousOutpoint.
// Signature signs the transaction's signing hash at this input's position
// and must verify under the referenced output's owner key.
type TransactionInput struct {
	PreviousOutpoint Outpoint
	Signature        []byte

	// UTXOEntry is the pool entry referenced by PreviousOutpoint. It is
	// populated during validation, is not part of the transaction's
	// canonical encoding, and is re-derived from the current pool on
	// every validation pass.
	UTXOEntry *UTXOEntry
}

// Clone returns a deep copy of this transaction input
func (input *TransactionInput) Clone() *TransactionInput {
	var signatureClone []byte
	if input.Signature != nil {
		signatureClone = make([]byte, len(input.Signature))
		copy(signatureClone, input.Signature)
	}
	return &TransactionInput{
		PreviousOutpoint: input.PreviousOutpoint,
		Signature:        signatureClone,
		UTXOEntry:        input.UTXOEntry,
	}
}

// TransactionOutput holds Value lepton owned by OwnerPublicKey, a 32-byte
// serialized Schnorr public key.
type TransactionOutput struct {
	Value          uint64
	OwnerPublicKey []byte
}

// Clone returns a deep copy of this transaction output
func (output *TransactionOutput) Clone() *TransactionOutput {
	ownerClone := make([]byte, len(output.OwnerPublicKey))
	copy(ownerClone, output.OwnerPublicKey)
	return &TransactionOutput{
		Value:          output.Value,
		OwnerPublicKey: ownerClone,
	}
}

// Outpoint identifies the output at index Index of the transaction whose ID
// is TransactionID. An outpoint uniquely keys the UTXO pool.
type Outpoint struct {
	TransactionID TransactionID
	Index         uint32
}

// String stringifies an outpoint.
func (op Outpoint) String() string {
	return fmt.Sprintf("%s:%d", op.TransactionID, op.Index)
}
