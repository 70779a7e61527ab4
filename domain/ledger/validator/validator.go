package validator

import (
	"github.com/obolnet/obold/domain/ledger/constants"
	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/ruleerrors"
	"github.com/obolnet/obold/domain/ledger/signature"
	"github.com/obolnet/obold/domain/ledger/utxopool"
	"github.com/pkg/errors"
)

// Validator checks transactions against a UTXO pool. It holds no state of
// its own besides the signature oracle, so a single validator may serve any
// number of pools.
type Validator struct {
	signatureVerifier signature.Verifier
}

// New creates a new Validator that verifies input signatures with the given
// signature oracle
func New(signatureVerifier signature.Verifier) *Validator {
	return &Validator{signatureVerifier: signatureVerifier}
}

// ValidateTransaction fully validates the given transaction against the
// given pool: structural checks, input existence, per-input signatures,
// output amounts and conservation of value. On success the transaction's
// input UTXO entries and Fee field are populated; on failure there's no
// guarantee they remain unaffected.
//
// All failures are returned as rule errors, except internal ones. Input
// entries are re-derived from the pool on every call, so a transaction may
// safely be re-validated after the pool has changed.
func (v *Validator) ValidateTransaction(tx *model.Transaction, pool *utxopool.Pool) error {
	err := v.checkTransactionStructure(tx)
	if err != nil {
		return err
	}

	missingOutpoints := v.populateInputEntries(tx, pool)
	if len(missingOutpoints) > 0 {
		return ruleerrors.NewErrMissingUTXOEntry(missingOutpoints)
	}

	err = v.checkTransactionSignatures(tx)
	if err != nil {
		return err
	}

	return v.checkTransactionAmounts(tx)
}

// ValidateTransactionIgnoringMissingEntries validates the given transaction
// the same way ValidateTransaction does, except that inputs whose outpoints
// are not in the pool are tolerated and returned to the caller instead of
// failing the transaction. Signatures are still checked for every input that
// did resolve. Conservation and fee cannot be determined until every input
// resolves, so they are deferred whenever any outpoint is missing.
//
// This is the candidate-relative validation used during batch
// classification, where a missing outpoint may yet be produced by a sibling
// candidate.
func (v *Validator) ValidateTransactionIgnoringMissingEntries(tx *model.Transaction, pool *utxopool.Pool) (
	missingOutpoints []*model.Outpoint, err error) {

	err = v.checkTransactionStructure(tx)
	if err != nil {
		return nil, err
	}

	missingOutpoints = v.populateInputEntries(tx, pool)

	err = v.checkTransactionSignatures(tx)
	if err != nil {
		return nil, err
	}

	if len(missingOutpoints) > 0 {
		return missingOutpoints, nil
	}

	return nil, v.checkTransactionAmounts(tx)
}

// checkTransactionStructure applies the checks that depend on nothing but
// the transaction itself. A transaction failing any of them is permanently
// malformed and can never become valid, no matter what the pool holds.
func (v *Validator) checkTransactionStructure(tx *model.Transaction) error {
	if len(tx.Inputs) == 0 {
		return errors.WithStack(ruleerrors.ErrNoTxInputs)
	}

	existingOutpoints := make(map[model.Outpoint]struct{}, len(tx.Inputs))
	for _, input := range tx.Inputs {
		if _, ok := existingOutpoints[input.PreviousOutpoint]; ok {
			return errors.Wrapf(ruleerrors.ErrDuplicateTxInputs, "transaction "+
				"spends outpoint %s more than once", input.PreviousOutpoint)
		}
		existingOutpoints[input.PreviousOutpoint] = struct{}{}
	}

	var totalOut uint64
	for _, output := range tx.Outputs {
		if output.Value > constants.MaxLepton {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "output value of %d is "+
				"higher than max allowed value of %d", output.Value, constants.MaxLepton)
		}
		if len(output.OwnerPublicKey) != constants.OwnerPublicKeySize {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "output owner public key "+
				"is %d bytes, while it should be %d", len(output.OwnerPublicKey),
				constants.OwnerPublicKeySize)
		}

		newTotalOut := totalOut + output.Value
		if newTotalOut < totalOut || newTotalOut > constants.MaxLepton {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "total value of all "+
				"transaction outputs exceeds max allowed value of %d", constants.MaxLepton)
		}
		totalOut = newTotalOut
	}

	return nil
}

// populateInputEntries resolves every input's UTXO entry from the pool,
// overwriting whatever entry a previous validation pass may have left, and
// returns the outpoints that could not be resolved.
func (v *Validator) populateInputEntries(tx *model.Transaction, pool *utxopool.Pool) []*model.Outpoint {
	var missingOutpoints []*model.Outpoint
	for _, input := range tx.Inputs {
		entry, err := pool.Get(input.PreviousOutpoint)
		if err != nil {
			input.UTXOEntry = nil
			outpoint := input.PreviousOutpoint
			missingOutpoints = append(missingOutpoints, &outpoint)
			continue
		}
		input.UTXOEntry = entry
	}
	return missingOutpoints
}

// checkTransactionSignatures verifies each resolved input's signature over
// the transaction's signing hash at that input's position, under the owner
// key of the entry it spends. Inputs with no resolved entry are skipped;
// the caller decides whether those are fatal.
func (v *Validator) checkTransactionSignatures(tx *model.Transaction) error {
	for i, input := range tx.Inputs {
		if input.UTXOEntry == nil {
			continue
		}

		signingHash, err := hashing.TransactionSigningHash(tx, i)
		if err != nil {
			return err
		}
		valid, err := v.signatureVerifier.Verify(input.UTXOEntry.OwnerPublicKey(), signingHash, input.Signature)
		if err != nil {
			return errors.Wrapf(ruleerrors.ErrBadSignature, "input %d: %s", i, err)
		}
		if !valid {
			return errors.Wrapf(ruleerrors.ErrBadSignature, "signature on input %d does "+
				"not verify under the owner key of %s", i, input.PreviousOutpoint)
		}
	}
	return nil
}

// checkTransactionAmounts checks conservation of value and populates the
// transaction's fee. Every input entry must already be resolved.
func (v *Validator) checkTransactionAmounts(tx *model.Transaction) error {
	var totalIn uint64
	for _, input := range tx.Inputs {
		amount := input.UTXOEntry.Amount()
		newTotalIn := totalIn + amount
		if newTotalIn < totalIn || newTotalIn > constants.MaxLepton {
			return errors.Wrapf(ruleerrors.ErrBadTxOutValue, "total value of all "+
				"transaction inputs exceeds max allowed value of %d", constants.MaxLepton)
		}
		totalIn = newTotalIn
	}

	var totalOut uint64
	for _, output := range tx.Outputs {
		// Range and overflow were already checked by checkTransactionStructure.
		totalOut += output.Value
	}

	if totalOut > totalIn {
		return errors.Wrapf(ruleerrors.ErrSpendTooHigh, "total outputs %d of "+
			"transaction %s is higher than total inputs %d",
			totalOut, hashing.TransactionID(tx), totalIn)
	}

	tx.Fee = totalIn - totalOut
	return nil
}
