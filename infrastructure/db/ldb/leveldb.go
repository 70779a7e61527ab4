package ldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound denotes that the requested key was not found in the database
var ErrNotFound = errors.New("ldb: key not found")

// LevelDB defines a thin wrapper around leveldb.
type LevelDB struct {
	ldb *leveldb.DB
}

// NewLevelDB opens a leveldb instance defined by the given path.
func NewLevelDB(path string) (*LevelDB, error) {
	// Open leveldb. If it doesn't exist, create it.
	ldb, err := leveldb.OpenFile(path, nil)

	// If the database is corrupted, attempt to recover.
	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		log.Warnf("LevelDB corruption detected for path %s: %s", path, err)
		var recoverErr error
		ldb, recoverErr = leveldb.RecoverFile(path, nil)
		if recoverErr != nil {
			return nil, errors.WithStack(recoverErr)
		}
		log.Warnf("LevelDB recovered from corruption for path %s", path)
		err = nil
	}

	// If the database cannot be opened for any other reason, return the
	// error as-is.
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the leveldb instance.
func (db *LevelDB) Close() error {
	return errors.WithStack(db.ldb.Close())
}

// Put sets the value for the given key. It overwrites any previous value
// for that key.
func (db *LevelDB) Put(key []byte, value []byte) error {
	return errors.WithStack(db.ldb.Put(key, value, nil))
}

// Get gets the value for the given key. It returns ErrNotFound if the
// given key does not exist.
func (db *LevelDB) Get(key []byte) ([]byte, error) {
	data, err := db.ldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "key %x", key)
		}
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// Has returns true if the database contains the given key.
func (db *LevelDB) Has(key []byte) (bool, error) {
	exists, err := db.ldb.Has(key, nil)
	return exists, errors.WithStack(err)
}

// Delete deletes the value for the given key. Deleting a non-existent key
// is not an error.
func (db *LevelDB) Delete(key []byte) error {
	return errors.WithStack(db.ldb.Delete(key, nil))
}

// ForEachWithPrefix calls fn for every key/value pair whose key starts with
// the given prefix. Iteration stops at the first error.
func (db *LevelDB) ForEachWithPrefix(prefix []byte, fn func(key, value []byte) error) error {
	iterator := db.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	defer iterator.Release()

	for iterator.Next() {
		// The iterator reuses its buffers, so both the key and the value
		// must be copied out before the next advance.
		key := make([]byte, len(iterator.Key()))
		copy(key, iterator.Key())
		value := make([]byte, len(iterator.Value()))
		copy(value, iterator.Value())

		err := fn(key, value)
		if err != nil {
			return err
		}
	}
	return errors.WithStack(iterator.Error())
}

// WriteBatch atomically applies a set of put and delete operations built by
// the given function.
func (db *LevelDB) WriteBatch(fn func(batch *Batch)) error {
	batch := &Batch{batch: new(leveldb.Batch)}
	fn(batch)
	return errors.WithStack(db.ldb.Write(batch.batch, nil))
}

// Batch accumulates put and delete operations that are applied atomically
// via WriteBatch.
type Batch struct {
	batch *leveldb.Batch
}

// Put schedules setting the value for the given key
func (b *Batch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete schedules deleting the value for the given key
func (b *Batch) Delete(key []byte) {
	b.batch.Delete(key)
}
