package resolver

import (
	"testing"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/obolnet/obold/domain/ledger/constants"
	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/ruleerrors"
	"github.com/obolnet/obold/domain/ledger/signature"
	"github.com/obolnet/obold/domain/ledger/utxopool"
	"github.com/obolnet/obold/domain/ledger/validator"
)

type testHarness struct {
	t               *testing.T
	keyPair         *secp256k1.SchnorrKeyPair
	ownerPublicKey  []byte
	strangerKeyPair *secp256k1.SchnorrKeyPair
	pool            *utxopool.Pool
	resolver        *Resolver

	coinCounter byte
}

func newTestHarness(t *testing.T) *testHarness {
	keyPair, ownerPublicKey := generateKeyPair(t)
	strangerKeyPair, _ := generateKeyPair(t)
	pool := utxopool.New()
	return &testHarness{
		t:               t,
		keyPair:         keyPair,
		ownerPublicKey:  ownerPublicKey,
		strangerKeyPair: strangerKeyPair,
		pool:            pool,
		resolver:        New(pool, validator.New(signature.NewSchnorrVerifier())),
	}
}

func generateKeyPair(t *testing.T) (*secp256k1.SchnorrKeyPair, []byte) {
	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate a key pair: %s", err)
	}
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("Failed to derive the public key: %s", err)
	}
	serializedPublicKey, err := publicKey.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize the public key: %s", err)
	}
	return keyPair, serializedPublicKey[:]
}

// addCoin adds a spendable entry to the pool under a synthetic outpoint and
// returns the outpoint.
func (h *testHarness) addCoin(amount uint64) model.Outpoint {
	h.coinCounter++
	var transactionIDBytes [model.HashSize]byte
	transactionIDBytes[0] = h.coinCounter
	outpoint := model.Outpoint{
		TransactionID: *model.NewTransactionIDFromByteArray(&transactionIDBytes),
		Index:         0,
	}
	err := h.pool.Add(outpoint, model.NewUTXOEntry(amount, h.ownerPublicKey))
	if err != nil {
		h.t.Fatalf("Failed to add a coin to the pool: %s", err)
	}
	return outpoint
}

func (h *testHarness) buildTransaction(outpoints []model.Outpoint, outputValues []uint64) *model.Transaction {
	return h.buildTransactionWithKey(h.keyPair, outpoints, outputValues)
}

func (h *testHarness) buildTransactionWithKey(keyPair *secp256k1.SchnorrKeyPair,
	outpoints []model.Outpoint, outputValues []uint64) *model.Transaction {

	tx := &model.Transaction{Version: constants.TransactionVersion}
	for _, outpoint := range outpoints {
		tx.Inputs = append(tx.Inputs, &model.TransactionInput{PreviousOutpoint: outpoint})
	}
	for _, value := range outputValues {
		tx.Outputs = append(tx.Outputs, &model.TransactionOutput{
			Value:          value,
			OwnerPublicKey: h.ownerPublicKey,
		})
	}
	for i, input := range tx.Inputs {
		signingHash, err := hashing.TransactionSigningHash(tx, i)
		if err != nil {
			h.t.Fatalf("Failed to calculate the signing hash for input %d: %s", i, err)
		}
		inputSignature, err := signature.SignHash(keyPair, signingHash)
		if err != nil {
			h.t.Fatalf("Failed to sign input %d: %s", i, err)
		}
		input.Signature = inputSignature
	}
	return tx
}

func (h *testHarness) checkAccepted(result *BatchResult, transactions ...*model.Transaction) {
	h.t.Helper()
	if len(result.AcceptedTransactions) != len(transactions) {
		h.t.Fatalf("Expected %d accepted transactions, got %d",
			len(transactions), len(result.AcceptedTransactions))
	}
	for i, tx := range transactions {
		if result.AcceptedTransactions[i] != tx {
			h.t.Fatalf("Accepted transaction %d is %s, while %s was expected",
				i, hashing.TransactionID(result.AcceptedTransactions[i]), hashing.TransactionID(tx))
		}
	}
}

func (h *testHarness) findRejection(result *BatchResult, tx *model.Transaction) *RejectedTransaction {
	h.t.Helper()
	transactionID := hashing.TransactionID(tx)
	for _, rejected := range result.RejectedTransactions {
		if rejected.ID.Equal(transactionID) {
			return rejected
		}
	}
	h.t.Fatalf("Transaction %s was not rejected", transactionID)
	return nil
}

func TestResolveBatchSingleTransaction(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	tx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{90})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{tx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	harness.checkAccepted(result, tx)
	if len(result.RejectedTransactions) != 0 {
		t.Fatalf("Expected no rejections, got %d", len(result.RejectedTransactions))
	}
	if tx.Fee != 10 {
		t.Fatalf("Expected a fee of 10, got %d", tx.Fee)
	}

	if harness.pool.Contains(coin) {
		t.Fatalf("The consumed outpoint %s was not removed from the pool", coin)
	}
	producedOutpoint := model.Outpoint{TransactionID: *hashing.TransactionID(tx), Index: 0}
	entry, err := harness.pool.Get(producedOutpoint)
	if err != nil {
		t.Fatalf("The produced outpoint %s was not added to the pool: %s", producedOutpoint, err)
	}
	if entry.Amount() != 90 {
		t.Fatalf("The produced entry holds %d, while 90 was expected", entry.Amount())
	}
}

func TestResolveBatchDoubleSpend(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	highFeeTx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{80})
	lowFeeTx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{90})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{lowFeeTx, highFeeTx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}

	// Both transactions are individually valid, so the higher-fee one wins.
	harness.checkAccepted(result, highFeeTx)
	rejected := harness.findRejection(result, lowFeeTx)
	missingErr := &ruleerrors.ErrMissingUTXOEntry{}
	if !errors.As(rejected.Err, missingErr) {
		t.Fatalf("Expected the rejection to report missing outpoints, got: %s", rejected.Err)
	}
}

func TestResolveBatchOverspend(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	tx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{150})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{tx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	if len(result.AcceptedTransactions) != 0 {
		t.Fatalf("An overspending transaction was committed")
	}
	rejected := harness.findRejection(result, tx)
	if !errors.Is(rejected.Err, ruleerrors.ErrSpendTooHigh) {
		t.Fatalf("Expected %s, got: %s", ruleerrors.ErrSpendTooHigh, rejected.Err)
	}
	if !harness.pool.Contains(coin) {
		t.Fatalf("The pool changed although nothing was committed")
	}
}

func TestResolveBatchDuplicateInputs(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	tx := harness.buildTransaction([]model.Outpoint{coin, coin}, []uint64{150})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{tx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	if len(result.AcceptedTransactions) != 0 {
		t.Fatalf("A transaction with duplicate inputs was committed")
	}
	rejected := harness.findRejection(result, tx)
	if !errors.Is(rejected.Err, ruleerrors.ErrDuplicateTxInputs) {
		t.Fatalf("Expected %s, got: %s", ruleerrors.ErrDuplicateTxInputs, rejected.Err)
	}
}

func TestResolveBatchForgedSignature(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	forgedTx := harness.buildTransactionWithKey(harness.strangerKeyPair, []model.Outpoint{coin}, []uint64{90})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{forgedTx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	if len(result.AcceptedTransactions) != 0 {
		t.Fatalf("A transaction with a forged signature was committed")
	}
	rejected := harness.findRejection(result, forgedTx)
	if !errors.Is(rejected.Err, ruleerrors.ErrBadSignature) {
		t.Fatalf("Expected %s, got: %s", ruleerrors.ErrBadSignature, rejected.Err)
	}
}

func TestResolveBatchChainedDependency(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	parentTx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{60, 30})
	parentOutpoint := model.Outpoint{TransactionID: *hashing.TransactionID(parentTx), Index: 0}
	childTx := harness.buildTransaction([]model.Outpoint{parentOutpoint}, []uint64{50})

	// The child appears before its parent: batch order must not matter.
	result, err := harness.resolver.ResolveBatch([]*model.Transaction{childTx, parentTx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	harness.checkAccepted(result, parentTx, childTx)
	if len(result.RejectedTransactions) != 0 {
		t.Fatalf("Expected no rejections, got %d", len(result.RejectedTransactions))
	}
}

func TestResolveBatchUnresolvableDependency(t *testing.T) {
	harness := newTestHarness(t)
	var unknownIDBytes [model.HashSize]byte
	unknownIDBytes[0] = 0xff
	unknownOutpoint := model.Outpoint{
		TransactionID: *model.NewTransactionIDFromByteArray(&unknownIDBytes),
		Index:         7,
	}
	tx := harness.buildTransaction([]model.Outpoint{unknownOutpoint}, []uint64{10})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{tx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	if len(result.AcceptedTransactions) != 0 {
		t.Fatalf("A transaction spending an unknown outpoint was committed")
	}
	rejected := harness.findRejection(result, tx)
	missingErr := &ruleerrors.ErrMissingUTXOEntry{}
	if !errors.As(rejected.Err, missingErr) {
		t.Fatalf("Expected the rejection to report missing outpoints, got: %s", rejected.Err)
	}
	if len(missingErr.MissingOutpoints) != 1 || *missingErr.MissingOutpoints[0] != unknownOutpoint {
		t.Fatalf("Expected the rejection to report outpoint %s, got: %v",
			unknownOutpoint, missingErr.MissingOutpoints)
	}
}

func TestResolveBatchDependencyOnRejectedParent(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	parentTx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{150})
	parentOutpoint := model.Outpoint{TransactionID: *hashing.TransactionID(parentTx), Index: 0}
	childTx := harness.buildTransaction([]model.Outpoint{parentOutpoint}, []uint64{140})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{parentTx, childTx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	if len(result.AcceptedTransactions) != 0 {
		t.Fatalf("A descendant of an invalid transaction was committed")
	}
	// The child's nominal dependency exists as a batch member, so the child
	// waits on it and is dropped only when resolution ends.
	rejected := harness.findRejection(result, childTx)
	missingErr := &ruleerrors.ErrMissingUTXOEntry{}
	if !errors.As(rejected.Err, missingErr) {
		t.Fatalf("Expected the rejection to report missing outpoints, got: %s", rejected.Err)
	}
}

func TestResolveBatchDuplicateOccurrence(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)
	tx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{90})

	result, err := harness.resolver.ResolveBatch([]*model.Transaction{tx, tx})
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	harness.checkAccepted(result, tx)
	if len(result.RejectedTransactions) != 0 {
		t.Fatalf("A duplicate batch occurrence was reported as a rejection")
	}
}

func TestResolveBatchEmpty(t *testing.T) {
	harness := newTestHarness(t)
	result, err := harness.resolver.ResolveBatch(nil)
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	if len(result.AcceptedTransactions) != 0 || len(result.RejectedTransactions) != 0 {
		t.Fatalf("An empty batch produced a non-empty result")
	}
}

func TestResolveBatchExhaustiveSelectsHighestTotalFee(t *testing.T) {
	harness := newTestHarness(t)
	firstCoin := harness.addCoin(100)
	secondCoin := harness.addCoin(100)

	// The sweeping transaction has the highest individual fee, so greedy
	// fee-priority resolution commits it first and starves the other two.
	// The pair yields a higher total fee, and exhaustive resolution finds it.
	sweepTx := harness.buildTransaction([]model.Outpoint{firstCoin, secondCoin}, []uint64{170})
	firstTx := harness.buildTransaction([]model.Outpoint{firstCoin}, []uint64{80})
	secondTx := harness.buildTransaction([]model.Outpoint{secondCoin}, []uint64{80})
	batch := []*model.Transaction{sweepTx, firstTx, secondTx}

	greedyHarness := newTestHarness(t)
	greedyFirstCoin := greedyHarness.addCoin(100)
	greedySecondCoin := greedyHarness.addCoin(100)
	greedyBatch := []*model.Transaction{
		greedyHarness.buildTransaction([]model.Outpoint{greedyFirstCoin, greedySecondCoin}, []uint64{170}),
		greedyHarness.buildTransaction([]model.Outpoint{greedyFirstCoin}, []uint64{80}),
		greedyHarness.buildTransaction([]model.Outpoint{greedySecondCoin}, []uint64{80}),
	}
	greedyResult, err := greedyHarness.resolver.ResolveBatch(greedyBatch)
	if err != nil {
		t.Fatalf("ResolveBatch: %s", err)
	}
	greedyHarness.checkAccepted(greedyResult, greedyBatch[0])

	result, err := harness.resolver.ResolveBatchExhaustive(batch)
	if err != nil {
		t.Fatalf("ResolveBatchExhaustive: %s", err)
	}
	if len(result.AcceptedTransactions) != 2 {
		t.Fatalf("Expected 2 accepted transactions, got %d", len(result.AcceptedTransactions))
	}
	var totalFee uint64
	for _, tx := range result.AcceptedTransactions {
		if tx == sweepTx {
			t.Fatalf("The exhaustive strategy committed the lower-total-fee sweep")
		}
		totalFee += tx.Fee
	}
	if totalFee != 40 {
		t.Fatalf("Expected a total fee of 40, got %d", totalFee)
	}
	harness.findRejection(result, sweepTx)
}

func TestResolveBatchExhaustiveSkipsInconsistentSets(t *testing.T) {
	harness := newTestHarness(t)
	coin := harness.addCoin(100)

	parentTx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{90})
	parentOutpoint := model.Outpoint{TransactionID: *hashing.TransactionID(parentTx), Index: 0}
	childTx := harness.buildTransaction([]model.Outpoint{parentOutpoint}, []uint64{80})
	// Conflicts with the parent over the coin, but not with the child.
	rivalTx := harness.buildTransaction([]model.Outpoint{coin}, []uint64{70})

	// {child, rival} is a maximal conflict-free set, but the child's input
	// cannot resolve without the parent. Only {parent, child} survives the
	// replay, despite the rival's higher fee.
	result, err := harness.resolver.ResolveBatchExhaustive(
		[]*model.Transaction{parentTx, childTx, rivalTx})
	if err != nil {
		t.Fatalf("ResolveBatchExhaustive: %s", err)
	}
	if len(result.AcceptedTransactions) != 2 {
		t.Fatalf("Expected 2 accepted transactions, got %d", len(result.AcceptedTransactions))
	}
	harness.checkAccepted(result, parentTx, childTx)
	harness.findRejection(result, rivalTx)
}

func TestResolveBatchExhaustiveFallsBackOnLargeBatches(t *testing.T) {
	harness := newTestHarness(t)
	batch := make([]*model.Transaction, 0, maximumExhaustiveBatchSize+1)
	for i := 0; i < maximumExhaustiveBatchSize+1; i++ {
		coin := harness.addCoin(100)
		batch = append(batch, harness.buildTransaction([]model.Outpoint{coin}, []uint64{90}))
	}

	result, err := harness.resolver.ResolveBatchExhaustive(batch)
	if err != nil {
		t.Fatalf("ResolveBatchExhaustive: %s", err)
	}
	if len(result.AcceptedTransactions) != len(batch) {
		t.Fatalf("Expected all %d independent transactions to be committed, got %d",
			len(batch), len(result.AcceptedTransactions))
	}
}
