package ruleerrors

import (
	"fmt"

	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrNoTxInputs indicates a transaction does not have any inputs. A
	// valid transaction must have at least one input.
	ErrNoTxInputs = newRuleError("ErrNoTxInputs")

	// ErrDuplicateTxInputs indicates a transaction references the same
	// outpoint more than once: a double-spend within a single transaction.
	ErrDuplicateTxInputs = newRuleError("ErrDuplicateTxInputs")

	// ErrBadTxOutValue indicates an output value for a transaction is
	// invalid in some way, such as being out of range or overflowing the
	// transaction's total.
	ErrBadTxOutValue = newRuleError("ErrBadTxOutValue")

	// ErrSpendTooHigh indicates a transaction is attempting to spend more
	// value than the sum of all of its inputs.
	ErrSpendTooHigh = newRuleError("ErrSpendTooHigh")

	// ErrBadSignature indicates an input's signature does not verify under
	// the owner key of the output it spends.
	ErrBadSignature = newRuleError("ErrBadSignature")
)

// RuleError identifies a rule violation: the transaction at fault is
// permanently invalid, but the failure is purely local and never aborts
// processing of the rest of the batch. It has full support for
// errors.Is and errors.As, so the caller can differentiate between
// specific rule violations.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ErrMissingUTXOEntry indicates that an outpoint referenced by an input
// either does not exist in the pool or has already been spent. Whether this
// is terminal depends on the caller: during batch resolution a missing
// outpoint produced by a sibling candidate only defers validation.
type ErrMissingUTXOEntry struct {
	MissingOutpoints []*model.Outpoint
}

func (e ErrMissingUTXOEntry) Error() string {
	return fmt.Sprintf("missing the following outpoints: %v", e.MissingOutpoints)
}

// NewErrMissingUTXOEntry creates a new ErrMissingUTXOEntry error wrapped in a RuleError
func NewErrMissingUTXOEntry(missingOutpoints []*model.Outpoint) error {
	return errors.WithStack(RuleError{
		message: "ErrMissingUTXOEntry",
		inner:   ErrMissingUTXOEntry{missingOutpoints},
	})
}
