package ledger

import (
	"sync"

	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/resolver"
	"github.com/obolnet/obold/domain/ledger/signature"
	"github.com/obolnet/obold/domain/ledger/utxopool"
	"github.com/obolnet/obold/domain/ledger/validator"
)

// Ledger ties the UTXO pool, the transaction validator and the batch
// resolver together behind a single mutex. One batch is resolved to
// completion before the next one begins: signature verification inside a
// batch is free to be parallelized, but pool mutation is strictly
// serialized here.
type Ledger struct {
	mtx      sync.Mutex
	resolver *resolver.Resolver
}

// BatchResult is the outcome of resolving one batch
type BatchResult = resolver.BatchResult

// New creates a Ledger whose pool is initialized from the given snapshot.
// The snapshot is defensively copied; the caller is expected to hand over
// confirmed state only.
func New(snapshot map[model.Outpoint]*model.UTXOEntry) *Ledger {
	pool := utxopool.NewFromEntries(snapshot)
	txValidator := validator.New(signature.NewSchnorrVerifier())
	return &Ledger{
		resolver: resolver.New(pool, txValidator),
	}
}

// ResolveBatch validates the batch and commits a mutually consistent subset
// of it, selected by fee-priority propagation
func (l *Ledger) ResolveBatch(batch []*model.Transaction) (*resolver.BatchResult, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.resolver.ResolveBatch(batch)
}

// ResolveBatchExhaustive validates the batch and commits the best maximal
// conflict-free subset of it, found by exhaustive enumeration
func (l *Ledger) ResolveBatchExhaustive(batch []*model.Transaction) (*resolver.BatchResult, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.resolver.ResolveBatchExhaustive(batch)
}

// PoolEntries returns a copy of the pool's current outpoint-to-entry mapping
func (l *Ledger) PoolEntries() map[model.Outpoint]*model.UTXOEntry {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.resolver.Pool().Entries()
}

// PoolCommitment returns the ECMH commitment over the pool's current contents
func (l *Ledger) PoolCommitment() *model.Hash {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.resolver.Pool().Commitment()
}

// PoolSize returns the amount of unspent entries in the pool
func (l *Ledger) PoolSize() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.resolver.Pool().Size()
}
