package utxopool

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/obolnet/obold/domain/ledger/constants"
	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
)

func testOutpoint(transactionIDFirstByte byte, index uint32) model.Outpoint {
	var transactionIDBytes [model.HashSize]byte
	transactionIDBytes[0] = transactionIDFirstByte
	return model.Outpoint{
		TransactionID: *model.NewTransactionIDFromByteArray(&transactionIDBytes),
		Index:         index,
	}
}

func testEntry(amount uint64) *model.UTXOEntry {
	ownerPublicKey := make([]byte, constants.OwnerPublicKeySize)
	ownerPublicKey[0] = 0x42
	return model.NewUTXOEntry(amount, ownerPublicKey)
}

func TestPoolAddGetRemove(t *testing.T) {
	pool := New()
	outpoint := testOutpoint(1, 0)
	entry := testEntry(100)

	if pool.Contains(outpoint) {
		t.Fatalf("An empty pool claims to contain %s", outpoint)
	}
	_, err := pool.Get(outpoint)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Expected %s, got: %v", ErrEntryNotFound, err)
	}

	err = pool.Add(outpoint, entry)
	if err != nil {
		t.Fatalf("Add: %s", err)
	}
	if !pool.Contains(outpoint) {
		t.Fatalf("The pool does not contain the added outpoint %s", outpoint)
	}
	gotEntry, err := pool.Get(outpoint)
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if !gotEntry.Equal(entry) {
		t.Fatalf("Got entry %v, while %v was expected", gotEntry, entry)
	}

	err = pool.Add(outpoint, entry)
	if !errors.Is(err, ErrEntryAlreadyExists) {
		t.Fatalf("Expected %s, got: %v", ErrEntryAlreadyExists, err)
	}

	err = pool.Remove(outpoint)
	if err != nil {
		t.Fatalf("Remove: %s", err)
	}
	if pool.Contains(outpoint) {
		t.Fatalf("The pool still contains the removed outpoint %s", outpoint)
	}
	err = pool.Remove(outpoint)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Expected %s, got: %v", ErrEntryNotFound, err)
	}
}

func TestCommitTransaction(t *testing.T) {
	pool := New()
	firstOutpoint := testOutpoint(1, 0)
	secondOutpoint := testOutpoint(2, 0)
	err := pool.Add(firstOutpoint, testEntry(70))
	if err != nil {
		t.Fatalf("Add: %s", err)
	}
	err = pool.Add(secondOutpoint, testEntry(50))
	if err != nil {
		t.Fatalf("Add: %s", err)
	}

	tx := &model.Transaction{
		Version: constants.TransactionVersion,
		Inputs: []*model.TransactionInput{
			{PreviousOutpoint: firstOutpoint},
			{PreviousOutpoint: secondOutpoint},
		},
		Outputs: []*model.TransactionOutput{
			{Value: 100, OwnerPublicKey: make([]byte, constants.OwnerPublicKeySize)},
			{Value: 15, OwnerPublicKey: make([]byte, constants.OwnerPublicKeySize)},
		},
	}
	err = pool.CommitTransaction(tx)
	if err != nil {
		t.Fatalf("CommitTransaction: %s", err)
	}

	if pool.Contains(firstOutpoint) || pool.Contains(secondOutpoint) {
		t.Fatalf("A consumed outpoint is still in the pool")
	}
	transactionID := hashing.TransactionID(tx)
	for index, output := range tx.Outputs {
		producedOutpoint := model.Outpoint{TransactionID: *transactionID, Index: uint32(index)}
		entry, err := pool.Get(producedOutpoint)
		if err != nil {
			t.Fatalf("The produced outpoint %s is not in the pool: %s", producedOutpoint, err)
		}
		if entry.Amount() != output.Value {
			t.Fatalf("The produced entry holds %d, while %d was expected",
				entry.Amount(), output.Value)
		}
	}
	if pool.Size() != 2 {
		t.Fatalf("Expected a pool of size 2, got %d", pool.Size())
	}
}

func TestCommitTransactionAtomicity(t *testing.T) {
	pool := New()
	presentOutpoint := testOutpoint(1, 0)
	err := pool.Add(presentOutpoint, testEntry(100))
	if err != nil {
		t.Fatalf("Add: %s", err)
	}
	commitmentBefore := pool.Commitment()

	// The second input is not in the pool, so the commit must fail without
	// consuming the first one.
	tx := &model.Transaction{
		Version: constants.TransactionVersion,
		Inputs: []*model.TransactionInput{
			{PreviousOutpoint: presentOutpoint},
			{PreviousOutpoint: testOutpoint(2, 0)},
		},
		Outputs: []*model.TransactionOutput{
			{Value: 90, OwnerPublicKey: make([]byte, constants.OwnerPublicKeySize)},
		},
	}
	err = pool.CommitTransaction(tx)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Expected %s, got: %v", ErrEntryNotFound, err)
	}
	if !pool.Contains(presentOutpoint) {
		t.Fatalf("A failed commit consumed outpoint %s", presentOutpoint)
	}
	if !pool.Commitment().Equal(commitmentBefore) {
		t.Fatalf("A failed commit changed the pool commitment")
	}
}

func TestPoolClone(t *testing.T) {
	pool := New()
	outpoint := testOutpoint(1, 0)
	err := pool.Add(outpoint, testEntry(100))
	if err != nil {
		t.Fatalf("Add: %s", err)
	}

	clone := pool.Clone()
	err = clone.Remove(outpoint)
	if err != nil {
		t.Fatalf("Remove: %s", err)
	}

	if !pool.Contains(outpoint) {
		t.Fatalf("Removing from a clone leaked into the original pool")
	}
	if clone.Contains(outpoint) {
		t.Fatalf("The clone still contains the removed outpoint")
	}
	if pool.Commitment().Equal(clone.Commitment()) {
		t.Fatalf("Pools with different contents report the same commitment")
	}
}

func TestPoolCommitment(t *testing.T) {
	firstOutpoint := testOutpoint(1, 0)
	secondOutpoint := testOutpoint(2, 0)
	firstEntry := testEntry(70)
	secondEntry := testEntry(50)

	// The commitment is over contents, not over the order of operations.
	forward := New()
	for _, err := range []error{
		forward.Add(firstOutpoint, firstEntry),
		forward.Add(secondOutpoint, secondEntry),
	} {
		if err != nil {
			t.Fatalf("Add: %s", err)
		}
	}
	backward := New()
	for _, err := range []error{
		backward.Add(secondOutpoint, secondEntry),
		backward.Add(firstOutpoint, firstEntry),
	} {
		if err != nil {
			t.Fatalf("Add: %s", err)
		}
	}
	if !forward.Commitment().Equal(backward.Commitment()) {
		t.Fatalf("Pools with the same contents report different commitments: %s and %s",
			forward.Commitment(), backward.Commitment())
	}

	// Removing an entry restores the commitment of a pool that never had it.
	err := forward.Remove(secondOutpoint)
	if err != nil {
		t.Fatalf("Remove: %s", err)
	}
	single := New()
	err = single.Add(firstOutpoint, firstEntry)
	if err != nil {
		t.Fatalf("Add: %s", err)
	}
	if !forward.Commitment().Equal(single.Commitment()) {
		t.Fatalf("Add followed by Remove did not restore the commitment")
	}

	snapshot := map[model.Outpoint]*model.UTXOEntry{firstOutpoint: firstEntry}
	fromEntries := NewFromEntries(snapshot)
	if !fromEntries.Commitment().Equal(single.Commitment()) {
		t.Fatalf("NewFromEntries reports a different commitment than incremental adds")
	}
}
