package utxopool

import (
	"bytes"

	"github.com/kaspanet/go-muhash"
	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/serialization"
	"github.com/pkg/errors"
)

var (
	// ErrEntryNotFound indicates a get or remove of an outpoint that is not
	// in the pool. When returned from CommitTransaction it signals a pool
	// invariant violation: the resolver attempted to commit an inconsistent
	// set, and the whole batch must be aborted.
	ErrEntryNotFound = errors.New("utxo entry not found in the pool")

	// ErrEntryAlreadyExists indicates an add of an outpoint that is already
	// in the pool. Under correct transaction hashing this must never
	// happen, so it is treated the same way as ErrEntryNotFound.
	ErrEntryAlreadyExists = errors.New("utxo entry already exists in the pool")
)

// Pool is the set of unspent transaction outputs: the ground truth for what
// is spendable now. It is mutated only by committing a transaction, and the
// commit is atomic: either every consumed outpoint is removed and every
// produced outpoint is added, or the pool is left untouched.
//
// Alongside the entries the pool maintains an ECMH multiset over their
// serialized form, so two pools holding the same entries always report the
// same commitment, regardless of the order of operations that built them.
type Pool struct {
	entries    utxoCollection
	commitment *muhash.MuHash
}

// New creates an empty Pool
func New() *Pool {
	return &Pool{
		entries:    utxoCollection{},
		commitment: muhash.NewMuHash(),
	}
}

// NewFromEntries creates a Pool holding a defensive copy of the given
// snapshot. Later mutation of the snapshot by the caller does not leak into
// the pool.
func NewFromEntries(snapshot map[model.Outpoint]*model.UTXOEntry) *Pool {
	pool := New()
	for outpoint, entry := range snapshot {
		entryClone := entry.Clone()
		pool.entries.add(outpoint, entryClone)
		pool.commitment.Add(serializeOutpointEntryPair(outpoint, entryClone))
	}
	return pool
}

// Contains returns whether the given outpoint is unspent
func (p *Pool) Contains(outpoint model.Outpoint) bool {
	return p.entries.contains(outpoint)
}

// Get returns the entry the given outpoint refers to
func (p *Pool) Get(outpoint model.Outpoint) (*model.UTXOEntry, error) {
	entry, ok := p.entries.get(outpoint)
	if !ok {
		return nil, errors.Wrapf(ErrEntryNotFound, "outpoint %s", outpoint)
	}
	return entry, nil
}

// Add adds the given entry to the pool under the given outpoint
func (p *Pool) Add(outpoint model.Outpoint, entry *model.UTXOEntry) error {
	if p.entries.contains(outpoint) {
		return errors.Wrapf(ErrEntryAlreadyExists, "outpoint %s", outpoint)
	}
	p.entries.add(outpoint, entry)
	p.commitment.Add(serializeOutpointEntryPair(outpoint, entry))
	return nil
}

// Remove removes the entry the given outpoint refers to from the pool
func (p *Pool) Remove(outpoint model.Outpoint) error {
	entry, ok := p.entries.get(outpoint)
	if !ok {
		return errors.Wrapf(ErrEntryNotFound, "outpoint %s", outpoint)
	}
	p.entries.remove(outpoint)
	p.commitment.Remove(serializeOutpointEntryPair(outpoint, entry))
	return nil
}

// CommitTransaction atomically spends all of the given transaction's inputs
// and credits all of its outputs. The transaction is checked against the
// pool before any mutation, so a failed commit leaves the pool untouched.
// A failure here means the caller tried to commit a transaction that is not
// valid against this pool, which breaks the resolver's consistency
// guarantee and must abort the whole batch.
func (p *Pool) CommitTransaction(tx *model.Transaction) error {
	transactionID := hashing.TransactionID(tx)

	consumed := make(map[model.Outpoint]struct{}, len(tx.Inputs))
	for _, input := range tx.Inputs {
		if !p.entries.contains(input.PreviousOutpoint) {
			return errors.Wrapf(ErrEntryNotFound, "cannot commit transaction %s: "+
				"outpoint %s", transactionID, input.PreviousOutpoint)
		}
		if _, ok := consumed[input.PreviousOutpoint]; ok {
			return errors.Wrapf(ErrEntryAlreadyExists, "cannot commit transaction %s: "+
				"outpoint %s is consumed twice", transactionID, input.PreviousOutpoint)
		}
		consumed[input.PreviousOutpoint] = struct{}{}
	}
	for index := range tx.Outputs {
		producedOutpoint := model.Outpoint{TransactionID: *transactionID, Index: uint32(index)}
		if p.entries.contains(producedOutpoint) {
			return errors.Wrapf(ErrEntryAlreadyExists, "cannot commit transaction %s: "+
				"outpoint %s", transactionID, producedOutpoint)
		}
	}

	for _, input := range tx.Inputs {
		err := p.Remove(input.PreviousOutpoint)
		if err != nil {
			return err
		}
	}
	for index, output := range tx.Outputs {
		producedOutpoint := model.Outpoint{TransactionID: *transactionID, Index: uint32(index)}
		err := p.Add(producedOutpoint, model.NewUTXOEntry(output.Value, output.OwnerPublicKey))
		if err != nil {
			return err
		}
	}

	return nil
}

// Clone returns a snapshot of this pool that can be mutated independently
func (p *Pool) Clone() *Pool {
	return &Pool{
		entries:    p.entries.clone(),
		commitment: p.commitment.Clone(),
	}
}

// Size returns the amount of unspent entries in the pool
func (p *Pool) Size() int {
	return len(p.entries)
}

// Entries returns a copy of the pool's outpoint-to-entry mapping
func (p *Pool) Entries() map[model.Outpoint]*model.UTXOEntry {
	entries := make(map[model.Outpoint]*model.UTXOEntry, len(p.entries))
	for outpoint, entry := range p.entries {
		entries[outpoint] = entry
	}
	return entries
}

// Commitment returns the ECMH multiset hash of the pool's current contents
func (p *Pool) Commitment() *model.Hash {
	finalized := p.commitment.Finalize()
	return model.NewHashFromByteArray(finalized.AsArray())
}

func (p *Pool) String() string {
	return p.entries.String()
}

func serializeOutpointEntryPair(outpoint model.Outpoint, entry *model.UTXOEntry) []byte {
	buffer := &bytes.Buffer{}
	err := serialization.SerializeOutpoint(buffer, &outpoint)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Writing to a bytes.Buffer should never fail"))
	}
	err = serialization.SerializeUTXOEntry(buffer, entry)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Writing to a bytes.Buffer should never fail"))
	}
	return buffer.Bytes()
}
