package ledgerstore

import (
	"bytes"

	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/serialization"
	"github.com/obolnet/obold/infrastructure/db/ldb"
	"github.com/pkg/errors"
)

var (
	utxoKeyPrefix        = []byte("utxo/")
	transactionKeyPrefix = []byte("tx/")
	commitmentKey        = []byte("pool-commitment")
)

// Store persists the ledger between daemon runs: the current UTXO pool, the
// pool's commitment, and every transaction ever accepted. A batch result is
// applied through a single leveldb write batch, so a crash mid-apply can
// never leave a half-updated pool on disk.
type Store struct {
	db *ldb.LevelDB
}

// Open opens (or creates) a ledger store under the given path
func Open(path string) (*Store, error) {
	db, err := ldb.NewLevelDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// PoolSnapshot loads the persisted UTXO pool
func (s *Store) PoolSnapshot() (map[model.Outpoint]*model.UTXOEntry, error) {
	snapshot := make(map[model.Outpoint]*model.UTXOEntry)
	err := s.db.ForEachWithPrefix(utxoKeyPrefix, func(key, value []byte) error {
		outpoint, err := serialization.DeserializeOutpoint(bytes.NewReader(key[len(utxoKeyPrefix):]))
		if err != nil {
			return err
		}
		entry, err := serialization.DeserializeUTXOEntry(bytes.NewReader(value))
		if err != nil {
			return err
		}
		snapshot[*outpoint] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ImportPoolSnapshot seeds the store with the given pool entries. It is
// meant for initializing an empty store from an externally-supplied
// snapshot and fails if the store already holds any UTXO.
func (s *Store) ImportPoolSnapshot(snapshot map[model.Outpoint]*model.UTXOEntry) error {
	existing, err := s.PoolSnapshot()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return errors.Errorf("cannot import a pool snapshot into a store that "+
			"already holds %d UTXO entries", len(existing))
	}

	err = s.db.WriteBatch(func(batch *ldb.Batch) {
		for outpoint, entry := range snapshot {
			batch.Put(utxoKey(&outpoint), serializeEntry(entry))
		}
	})
	if err != nil {
		return err
	}
	log.Infof("Imported a pool snapshot with %d UTXO entries", len(snapshot))
	return nil
}

// ApplyBatchResult persists the effects of one resolved batch: for every
// accepted transaction, in commit order, its consumed outpoints are deleted
// and its produced outpoints are added, the transaction itself is recorded,
// and the pool commitment is updated. All of it lands atomically.
func (s *Store) ApplyBatchResult(acceptedTransactions []*model.Transaction, commitment *model.Hash) error {
	return s.db.WriteBatch(func(batch *ldb.Batch) {
		for _, tx := range acceptedTransactions {
			transactionID := hashing.TransactionID(tx)
			for _, input := range tx.Inputs {
				batch.Delete(utxoKey(&input.PreviousOutpoint))
			}
			for index, output := range tx.Outputs {
				outpoint := model.Outpoint{TransactionID: *transactionID, Index: uint32(index)}
				batch.Put(utxoKey(&outpoint), serializeEntry(model.NewUTXOEntry(output.Value, output.OwnerPublicKey)))
			}
			batch.Put(transactionKey(transactionID), serializeTransaction(tx))
		}
		batch.Put(commitmentKey, commitment.ByteSlice())
	})
}

// Transaction loads a previously-accepted transaction by its ID. Returns
// ldb.ErrNotFound if no such transaction was ever accepted.
func (s *Store) Transaction(transactionID *model.TransactionID) (*model.Transaction, error) {
	data, err := s.db.Get(transactionKey(transactionID))
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeTransaction(bytes.NewReader(data))
}

// Commitment loads the persisted pool commitment. Returns ldb.ErrNotFound
// if no batch was ever applied.
func (s *Store) Commitment() (*model.Hash, error) {
	data, err := s.db.Get(commitmentKey)
	if err != nil {
		return nil, err
	}
	return model.NewHashFromByteSlice(data)
}

func utxoKey(outpoint *model.Outpoint) []byte {
	buffer := bytes.NewBuffer(make([]byte, 0, len(utxoKeyPrefix)+model.HashSize+4))
	buffer.Write(utxoKeyPrefix)
	err := serialization.SerializeOutpoint(buffer, outpoint)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Writing to a bytes.Buffer should never fail"))
	}
	return buffer.Bytes()
}

func transactionKey(transactionID *model.TransactionID) []byte {
	key := make([]byte, 0, len(transactionKeyPrefix)+model.HashSize)
	key = append(key, transactionKeyPrefix...)
	return append(key, transactionID.ByteSlice()...)
}

func serializeEntry(entry *model.UTXOEntry) []byte {
	buffer := &bytes.Buffer{}
	err := serialization.SerializeUTXOEntry(buffer, entry)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Writing to a bytes.Buffer should never fail"))
	}
	return buffer.Bytes()
}

func serializeTransaction(tx *model.Transaction) []byte {
	buffer := &bytes.Buffer{}
	err := serialization.SerializeTransaction(buffer, tx)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. Writing to a bytes.Buffer should never fail"))
	}
	return buffer.Bytes()
}
