package resolver

import (
	"fmt"
	"sort"

	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/infrastructure/logger"
)

// maximumExhaustiveBatchSize bounds the exhaustive strategy: enumeration is
// exponential in the conflict graph's size in the worst case, so batches
// with more candidates than this fall back to fee-priority propagation.
const maximumExhaustiveBatchSize = 20

// ResolveBatchExhaustive resolves the batch by enumerating every maximal
// set of pairwise non-conflicting candidates, discarding the sets whose
// intra-batch dependencies cannot be satisfied, and selecting the surviving
// set with the highest total fee. The selected set is then re-validated and
// committed through the same fee-priority path ResolveBatch uses, so pool
// mutation stays on a single code path.
//
// Batches with more candidates than maximumExhaustiveBatchSize are resolved
// with plain ResolveBatch instead.
func (r *Resolver) ResolveBatchExhaustive(batch []*model.Transaction) (*BatchResult, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, fmt.Sprintf("ResolveBatchExhaustive with %d transactions", len(batch)))
	defer onEnd()

	context, err := r.newBatchContext(batch)
	if err != nil {
		return nil, err
	}

	vertices := make([]*candidateTransaction, 0, len(context.order))
	for _, candidate := range context.order {
		if candidate.status != statusInvalid {
			vertices = append(vertices, candidate)
		}
	}
	if len(vertices) > maximumExhaustiveBatchSize {
		log.Warnf("Batch holds %d resolvable candidates, more than the maximum of %d "+
			"for exhaustive resolution. Falling back to fee-priority resolution.",
			len(vertices), maximumExhaustiveBatchSize)
		return r.resolveContext(context, nil)
	}

	// Sort by ID so that enumeration order, and therefore tie-breaking
	// between equal-fee sets, is deterministic.
	sort.Slice(vertices, func(i, j int) bool {
		return vertices[i].id.Less(&vertices[j].id)
	})

	var selected []*candidateTransaction
	var selectedFee uint64
	setCount := 0
	enumerateMaximalIndependentSets(nil, vertices, nil, context.conflicts,
		func(set []*candidateTransaction) {
			setCount++
			totalFee, consistent := r.replayCandidateSet(set)
			if !consistent {
				return
			}
			if selected == nil || totalFee > selectedFee {
				selected = set
				selectedFee = totalFee
			}
		})
	log.Debugf("Enumerated %d maximal conflict-free sets, selected one with total fee %d",
		setCount, selectedFee)

	allowed := make(map[model.TransactionID]struct{}, len(selected))
	for _, candidate := range selected {
		allowed[candidate.id] = struct{}{}
	}
	return r.resolveContext(context, allowed)
}

// enumerateMaximalIndependentSets recursively enumerates every maximal set
// of pairwise non-conflicting candidates, calling emit for each one. It is
// the classic (taken, candidates, excluded) branch-and-bound: the first
// unprocessed candidate is either taken, restricting the future candidate
// and excluded sets to its non-conflicting neighborhood, or moved to the
// excluded set. A set is emitted only when both the candidate and excluded
// sets are empty, which is exactly when no further candidate could join it.
//
// Each branch operates on copies: sibling branches must not observe each
// other's pruning.
func enumerateMaximalIndependentSets(taken, candidates, excluded []*candidateTransaction,
	conflicts conflictGraph, emit func([]*candidateTransaction)) {

	if len(candidates) == 0 {
		if len(excluded) == 0 {
			emit(cloneCandidateSlice(taken))
		}
		return
	}

	next := candidates[0]

	// Branch with next taken.
	enumerateMaximalIndependentSets(
		append(cloneCandidateSlice(taken), next),
		withoutConflicting(candidates[1:], next, conflicts),
		withoutConflicting(excluded, next, conflicts),
		conflicts, emit)

	// Branch with next excluded.
	enumerateMaximalIndependentSets(
		cloneCandidateSlice(taken),
		cloneCandidateSlice(candidates[1:]),
		append(cloneCandidateSlice(excluded), next),
		conflicts, emit)
}

func cloneCandidateSlice(candidates []*candidateTransaction) []*candidateTransaction {
	clone := make([]*candidateTransaction, len(candidates))
	copy(clone, candidates)
	return clone
}

// withoutConflicting returns a copy of candidates with every candidate
// conflicting with the given one removed
func withoutConflicting(candidates []*candidateTransaction, taken *candidateTransaction,
	conflicts conflictGraph) []*candidateTransaction {

	result := make([]*candidateTransaction, 0, len(candidates))
	for _, candidate := range candidates {
		if !conflicts.conflicting(candidate.id, taken.id) {
			result = append(result, candidate)
		}
	}
	return result
}

// replayCandidateSet replays the whole set's commits against a clone of the
// current pool, letting outputs produced within the set satisfy intra-set
// inputs. It reports the set's total fee and whether the replay was
// consistent: every input resolved exactly once and every member conserved
// value. Signatures are not re-checked here; the selected set goes through
// full validation on the commit path afterwards.
func (r *Resolver) replayCandidateSet(set []*candidateTransaction) (totalFee uint64, consistent bool) {
	poolCopy := r.pool.Clone()

	producedEntries := make(map[model.Outpoint]*model.UTXOEntry)
	for _, candidate := range set {
		for index, output := range candidate.transaction.Outputs {
			outpoint := model.Outpoint{TransactionID: candidate.id, Index: uint32(index)}
			producedEntries[outpoint] = model.NewUTXOEntry(output.Value, output.OwnerPublicKey)
		}
	}

	for _, candidate := range set {
		var totalIn uint64
		for _, input := range candidate.transaction.Inputs {
			outpoint := input.PreviousOutpoint
			if entry, err := poolCopy.Get(outpoint); err == nil {
				totalIn += entry.Amount()
				err = poolCopy.Remove(outpoint)
				if err != nil {
					return 0, false
				}
				continue
			}
			if entry, ok := producedEntries[outpoint]; ok {
				totalIn += entry.Amount()
				delete(producedEntries, outpoint)
				continue
			}
			return 0, false
		}

		var totalOut uint64
		for _, output := range candidate.transaction.Outputs {
			totalOut += output.Value
		}
		if totalOut > totalIn {
			return 0, false
		}
		totalFee += totalIn - totalOut
	}

	return totalFee, true
}
