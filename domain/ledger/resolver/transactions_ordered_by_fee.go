package resolver

import (
	"sort"
)

// transactionsOrderedByFee represents a set of candidate transactions
// ordered by fee, ascending, with candidates of equal fee ordered by
// transaction ID. Ordering by ID makes the resolver's commit order fully
// deterministic for any given batch and pool.
type transactionsOrderedByFee struct {
	slice []*candidateTransaction
}

func (tobf *transactionsOrderedByFee) len() int {
	return len(tobf.slice)
}

// push inserts a candidate into the set, placing it in the correct place to
// preserve order
func (tobf *transactionsOrderedByFee) push(candidate *candidateTransaction) {
	index := tobf.findCandidateIndex(candidate)
	tobf.slice = append(tobf.slice[:index],
		append([]*candidateTransaction{candidate}, tobf.slice[index:]...)...)
}

// popHighestFee removes and returns the candidate with the highest fee
func (tobf *transactionsOrderedByFee) popHighestFee() *candidateTransaction {
	candidate := tobf.slice[len(tobf.slice)-1]
	tobf.slice = tobf.slice[:len(tobf.slice)-1]
	return candidate
}

func (tobf *transactionsOrderedByFee) findCandidateIndex(candidate *candidateTransaction) int {
	fee := candidate.transaction.Fee
	return sort.Search(len(tobf.slice), func(i int) bool {
		element := tobf.slice[i]
		if element.transaction.Fee > fee {
			return true
		}
		if element.transaction.Fee == fee && candidate.id.LessOrEqual(&element.id) {
			return true
		}
		return false
	})
}
