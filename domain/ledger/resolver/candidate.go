package resolver

import (
	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/ruleerrors"
	"github.com/pkg/errors"
)

// candidateStatus tracks a batch candidate through resolution:
//
//	unseen -> {invalid, valid, potentiallyValid} -> committed
//
// invalid and committed are terminal. potentiallyValid may become valid when
// a sibling it depends on commits, or remain unresolved for the whole run,
// in which case the candidate is silently dropped.
type candidateStatus int

const (
	statusUnseen candidateStatus = iota
	statusInvalid
	statusValid
	statusPotentiallyValid
	statusCommitted
)

// candidateTransaction wraps one batch transaction together with its
// resolution state. Validity and fee are never trusted across pool changes:
// they are re-derived from the current pool every time the candidate is
// reconsidered.
type candidateTransaction struct {
	transaction *model.Transaction
	id          model.TransactionID
	status      candidateStatus

	// missingOutpoints holds the outpoints that did not resolve at the
	// latest classification. Non-empty only while potentiallyValid.
	missingOutpoints []*model.Outpoint

	// rejectionErr holds the rule error that made this candidate invalid.
	rejectionErr error

	// inQueue guards against inserting the candidate into the priority
	// structure more than once.
	inQueue bool
}

// conflictGraph is a symmetric adjacency mapping between candidates that
// claim the same outpoint as an input. Candidates are represented by their
// stable transaction IDs.
type conflictGraph map[model.TransactionID]map[model.TransactionID]struct{}

func (cg conflictGraph) addEdge(a, b model.TransactionID) {
	if _, ok := cg[a]; !ok {
		cg[a] = map[model.TransactionID]struct{}{}
	}
	if _, ok := cg[b]; !ok {
		cg[b] = map[model.TransactionID]struct{}{}
	}
	cg[a][b] = struct{}{}
	cg[b][a] = struct{}{}
}

func (cg conflictGraph) conflicting(a, b model.TransactionID) bool {
	_, ok := cg[a][b]
	return ok
}

// batchContext holds everything the resolver derives from one batch against
// one pool snapshot: the classified candidates, the dependency index and the
// conflict graph.
type batchContext struct {
	candidates map[model.TransactionID]*candidateTransaction

	// order preserves the batch order of the deduplicated candidates.
	order []*candidateTransaction

	// dependentsByOutpoint indexes potentially-valid candidates by the
	// sibling-produced outpoints they are waiting for, so that committing
	// a transaction can re-examine exactly the candidates that depended
	// on it.
	dependentsByOutpoint map[model.Outpoint][]*candidateTransaction

	conflicts conflictGraph
}

// newBatchContext classifies every transaction in the batch against the
// resolver's current pool and derives the dependency and conflict
// structures. Duplicate occurrences of the same transaction ID are
// collapsed into the first one.
func (r *Resolver) newBatchContext(batch []*model.Transaction) (*batchContext, error) {
	context := &batchContext{
		candidates:           make(map[model.TransactionID]*candidateTransaction, len(batch)),
		order:                make([]*candidateTransaction, 0, len(batch)),
		dependentsByOutpoint: map[model.Outpoint][]*candidateTransaction{},
		conflicts:            conflictGraph{},
	}

	for _, transaction := range batch {
		transactionID := *hashing.TransactionID(transaction)
		if _, ok := context.candidates[transactionID]; ok {
			log.Debugf("Ignoring duplicate occurrence of transaction %s in batch", transactionID)
			continue
		}
		candidate := &candidateTransaction{
			transaction: transaction,
			id:          transactionID,
			status:      statusUnseen,
		}
		context.candidates[transactionID] = candidate
		context.order = append(context.order, candidate)
	}

	// Index of every outpoint produced by a batch member, for resolving
	// candidates that spend a sibling's not-yet-committed output.
	producedOutpoints := make(map[model.Outpoint]*candidateTransaction)
	for _, candidate := range context.order {
		for index := range candidate.transaction.Outputs {
			outpoint := model.Outpoint{TransactionID: candidate.id, Index: uint32(index)}
			producedOutpoints[outpoint] = candidate
		}
	}

	for _, candidate := range context.order {
		r.classifyCandidate(context, candidate, producedOutpoints)
	}

	buildConflictGraph(context)

	return context, nil
}

// classifyCandidate tags the candidate valid, potentially valid or invalid
// relative to the resolver's current pool, recording dependency edges for
// every missing outpoint that a sibling produces.
func (r *Resolver) classifyCandidate(context *batchContext, candidate *candidateTransaction,
	producedOutpoints map[model.Outpoint]*candidateTransaction) {

	missingOutpoints, err := r.validator.ValidateTransactionIgnoringMissingEntries(candidate.transaction, r.pool)
	if err != nil {
		candidate.status = statusInvalid
		candidate.rejectionErr = err
		log.Debugf("Transaction %s is invalid: %s", candidate.id, err)
		return
	}

	if len(missingOutpoints) == 0 {
		candidate.status = statusValid
		return
	}

	// Every missing outpoint must be produced by a sibling candidate,
	// otherwise the input is unresolvable and the transaction can never
	// become valid within this batch.
	var unresolvableOutpoints []*model.Outpoint
	for _, missingOutpoint := range missingOutpoints {
		producer, ok := producedOutpoints[*missingOutpoint]
		if !ok || producer == candidate {
			unresolvableOutpoints = append(unresolvableOutpoints, missingOutpoint)
		}
	}
	if len(unresolvableOutpoints) > 0 {
		candidate.status = statusInvalid
		candidate.rejectionErr = ruleerrors.NewErrMissingUTXOEntry(unresolvableOutpoints)
		log.Debugf("Transaction %s references outpoints satisfied neither by the pool "+
			"nor by the batch: %v", candidate.id, unresolvableOutpoints)
		return
	}

	candidate.status = statusPotentiallyValid
	candidate.missingOutpoints = missingOutpoints
	for _, missingOutpoint := range missingOutpoints {
		context.dependentsByOutpoint[*missingOutpoint] =
			append(context.dependentsByOutpoint[*missingOutpoint], candidate)
	}
}

// buildConflictGraph records a conflict edge between every pair of
// non-invalid candidates claiming the same outpoint as an input. Conflict
// edges are independent of dependency edges: two candidates spending the
// same sibling-produced output conflict just like two candidates spending
// the same pool entry.
func buildConflictGraph(context *batchContext) {
	claimants := make(map[model.Outpoint][]*candidateTransaction)
	for _, candidate := range context.order {
		if candidate.status == statusInvalid {
			continue
		}
		for _, input := range candidate.transaction.Inputs {
			claimants[input.PreviousOutpoint] = append(claimants[input.PreviousOutpoint], candidate)
		}
	}

	for _, conflicting := range claimants {
		if len(conflicting) < 2 {
			continue
		}
		for i := 0; i < len(conflicting); i++ {
			for j := i + 1; j < len(conflicting); j++ {
				context.conflicts.addEdge(conflicting[i].id, conflicting[j].id)
			}
		}
	}
}

// rejectionError returns the error to report for a candidate that was not
// committed. Candidates dropped because a dependency never materialized
// report the outpoints they were waiting for.
func (candidate *candidateTransaction) rejectionError() error {
	if candidate.rejectionErr != nil {
		return candidate.rejectionErr
	}
	if candidate.status == statusPotentiallyValid {
		return ruleerrors.NewErrMissingUTXOEntry(candidate.missingOutpoints)
	}
	return errors.Errorf("transaction %s was not selected", candidate.id)
}
