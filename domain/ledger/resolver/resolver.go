package resolver

import (
	"fmt"

	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/ruleerrors"
	"github.com/obolnet/obold/domain/ledger/utxopool"
	"github.com/obolnet/obold/domain/ledger/validator"
	"github.com/obolnet/obold/infrastructure/logger"
	"github.com/pkg/errors"
)

// Resolver consumes unordered batches of candidate transactions and commits
// a mutually consistent subset of them to its pool. It owns the canonical
// pool: the commit step here is the only code path that mutates it.
type Resolver struct {
	pool      *utxopool.Pool
	validator *validator.Validator
}

// New creates a Resolver over the given pool. The pool is owned by the
// resolver from this point on; callers must not mutate it directly.
func New(pool *utxopool.Pool, validator *validator.Validator) *Resolver {
	return &Resolver{
		pool:      pool,
		validator: validator,
	}
}

// Pool returns the canonical pool. Callers may read it between batches but
// must never mutate it.
func (r *Resolver) Pool() *utxopool.Pool {
	return r.pool
}

// BatchResult is the outcome of resolving one batch: the committed subset in
// commit order, and the candidates that were not committed along with the
// reason each one was rejected.
type BatchResult struct {
	AcceptedTransactions []*model.Transaction
	RejectedTransactions []*RejectedTransaction
}

// RejectedTransaction is a batch member that was not committed, along with
// the error explaining why
type RejectedTransaction struct {
	Transaction *model.Transaction
	ID          model.TransactionID
	Err         error
}

// ResolveBatch resolves the batch with fee-priority propagation: every
// currently-valid candidate is seeded into a fee-ordered priority structure;
// the highest-fee candidate is re-validated against the current pool,
// committed if still valid, and each candidate that depended on one of its
// outputs is re-classified and admitted if it became valid. The committed
// set only ever grows, and a candidate invalidated along the way is never
// reconsidered.
//
// The returned error is nil for any mix of valid and invalid candidates;
// it is non-nil only for internal failures, chiefly a pool invariant
// violation, which voids the whole batch.
func (r *Resolver) ResolveBatch(batch []*model.Transaction) (*BatchResult, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, fmt.Sprintf("ResolveBatch with %d transactions", len(batch)))
	defer onEnd()

	context, err := r.newBatchContext(batch)
	if err != nil {
		return nil, err
	}
	return r.resolveContext(context, nil)
}

// resolveContext runs the fee-priority propagation loop over a classified
// batch context. When allowed is non-nil, only candidates in it may be
// seeded, admitted or committed; this is how an exhaustively-selected set is
// re-validated through the same commit path.
func (r *Resolver) resolveContext(context *batchContext,
	allowed map[model.TransactionID]struct{}) (*BatchResult, error) {

	isAllowed := func(candidate *candidateTransaction) bool {
		if allowed == nil {
			return true
		}
		_, ok := allowed[candidate.id]
		return ok
	}

	queue := &transactionsOrderedByFee{}
	for _, candidate := range context.order {
		if candidate.status == statusValid && isAllowed(candidate) {
			queue.push(candidate)
			candidate.inQueue = true
		}
	}

	var accepted []*model.Transaction
	for queue.len() > 0 {
		candidate := queue.popHighestFee()
		candidate.inQueue = false

		// The pool may have changed since this candidate was classified:
		// a sibling that committed first may have consumed one of its
		// inputs. Validity and fee are re-derived, never cached.
		err := r.validator.ValidateTransaction(candidate.transaction, r.pool)
		if err != nil {
			var ruleErr ruleerrors.RuleError
			if !errors.As(err, &ruleErr) {
				return nil, err
			}
			candidate.status = statusInvalid
			candidate.rejectionErr = err
			log.Debugf("Transaction %s became invalid before commit: %s", candidate.id, err)
			continue
		}

		err = r.pool.CommitTransaction(candidate.transaction)
		if err != nil {
			// The transaction was fully valid against the pool a moment
			// ago, so a failing commit means the pool's invariants are
			// already broken. Nothing in this batch can be trusted.
			return nil, errors.Wrapf(err, "pool invariant violation while "+
				"committing transaction %s", candidate.id)
		}
		candidate.status = statusCommitted
		accepted = append(accepted, candidate.transaction)
		log.Debugf("Committed transaction %s with fee %d", candidate.id, candidate.transaction.Fee)

		r.admitDependents(context, candidate, queue, isAllowed)
	}

	result := &BatchResult{AcceptedTransactions: accepted}
	for _, candidate := range context.order {
		if candidate.status == statusCommitted {
			continue
		}
		result.RejectedTransactions = append(result.RejectedTransactions, &RejectedTransaction{
			Transaction: candidate.transaction,
			ID:          candidate.id,
			Err:         candidate.rejectionError(),
		})
	}

	log.Infof("Resolved batch: %d accepted, %d rejected, pool holds %d entries",
		len(result.AcceptedTransactions), len(result.RejectedTransactions), r.pool.Size())
	return result, nil
}

// admitDependents re-classifies every candidate that was waiting for one of
// the committed transaction's outputs, and inserts into the queue those that
// became valid now that the output is spendable.
func (r *Resolver) admitDependents(context *batchContext, committed *candidateTransaction,
	queue *transactionsOrderedByFee, isAllowed func(*candidateTransaction) bool) {

	for index := range committed.transaction.Outputs {
		outpoint := model.Outpoint{TransactionID: committed.id, Index: uint32(index)}
		for _, dependent := range context.dependentsByOutpoint[outpoint] {
			if dependent.status != statusPotentiallyValid || dependent.inQueue || !isAllowed(dependent) {
				continue
			}

			missingOutpoints, err := r.validator.ValidateTransactionIgnoringMissingEntries(dependent.transaction, r.pool)
			if err != nil {
				dependent.status = statusInvalid
				dependent.rejectionErr = err
				log.Debugf("Dependent transaction %s is invalid: %s", dependent.id, err)
				continue
			}
			if len(missingOutpoints) > 0 {
				// Still waiting for other siblings.
				dependent.missingOutpoints = missingOutpoints
				continue
			}

			dependent.status = statusValid
			dependent.missingOutpoints = nil
			queue.push(dependent)
			dependent.inQueue = true
			log.Debugf("Transaction %s became valid after %s was committed", dependent.id, committed.id)
		}
	}
}
