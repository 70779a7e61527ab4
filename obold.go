package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/obolnet/obold/domain/ledger"
	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/serialization"
	"github.com/obolnet/obold/domain/ledgerstore"
	"github.com/obolnet/obold/infrastructure/config"
	"github.com/obolnet/obold/infrastructure/logger"
	"github.com/obolnet/obold/util/panics"
	"github.com/obolnet/obold/version"
)

const ledgerDbName = "ledger"

func oboldMain() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		fmt.Printf("%s version %s\n", appName, version.Version())
		return nil
	}

	logger.InitLog(cfg.LogFile(), cfg.ErrLogFile())
	defer logger.Close()
	err = logger.ParseAndSetLogLevels(cfg.DebugLevel)
	if err != nil {
		return err
	}
	defer panics.HandlePanic(log, nil)

	log.Infof("Version %s", version.Version())

	store, err := ledgerstore.Open(filepath.Join(cfg.DataDir, ledgerDbName))
	if err != nil {
		return err
	}
	defer func() {
		closeErr := store.Close()
		if closeErr != nil {
			log.Errorf("Error closing the ledger store: %s", closeErr)
		}
	}()

	if cfg.UTXOSeedFile != "" {
		err = seedPool(store, cfg.UTXOSeedFile)
		if err != nil {
			return err
		}
	}

	if cfg.BatchFile == "" {
		return nil
	}

	return resolveBatchFile(store, cfg)
}

// seedPool imports a serialized UTXO pool snapshot into an empty store.
func seedPool(store *ledgerstore.Store, seedFile string) error {
	seedBytes, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrapf(err, "error reading UTXO seed file %s", seedFile)
	}
	snapshot, err := serialization.DeserializePoolSnapshot(bytes.NewReader(seedBytes))
	if err != nil {
		return errors.Wrapf(err, "error deserializing UTXO seed file %s", seedFile)
	}
	err = store.ImportPoolSnapshot(snapshot)
	if err != nil {
		return err
	}
	log.Infof("Seeded the UTXO pool with %d entries from %s", len(snapshot), seedFile)
	return nil
}

// resolveBatchFile reads a serialized transaction batch, resolves it against
// the stored UTXO pool, and persists the outcome.
func resolveBatchFile(store *ledgerstore.Store, cfg *config.Config) error {
	batchBytes, err := os.ReadFile(cfg.BatchFile)
	if err != nil {
		return errors.Wrapf(err, "error reading batch file %s", cfg.BatchFile)
	}
	batch, err := serialization.DeserializeTransactionBatch(bytes.NewReader(batchBytes))
	if err != nil {
		return errors.Wrapf(err, "error deserializing batch file %s", cfg.BatchFile)
	}
	log.Infof("Read a batch of %d candidate transactions from %s", len(batch), cfg.BatchFile)

	snapshot, err := store.PoolSnapshot()
	if err != nil {
		return err
	}
	ldgr := ledger.New(snapshot)
	log.Infof("Loaded a UTXO pool of %d entries, commitment %s",
		ldgr.PoolSize(), ldgr.PoolCommitment())

	var result *ledger.BatchResult
	if cfg.Exhaustive {
		result, err = ldgr.ResolveBatchExhaustive(batch)
	} else {
		result, err = ldgr.ResolveBatch(batch)
	}
	if err != nil {
		return err
	}

	for _, tx := range result.AcceptedTransactions {
		log.Infof("Accepted transaction %s (fee %d)", hashing.TransactionID(tx), tx.Fee)
	}
	for _, rejected := range result.RejectedTransactions {
		log.Infof("Rejected transaction %s: %s", rejected.ID, rejected.Err)
	}

	commitment := ldgr.PoolCommitment()
	err = store.ApplyBatchResult(result.AcceptedTransactions, commitment)
	if err != nil {
		return err
	}

	log.Infof("Committed %d of %d transactions, new pool commitment %s",
		len(result.AcceptedTransactions), len(batch), commitment)
	fmt.Printf("Accepted %d of %d transactions\nPool commitment: %s\n",
		len(result.AcceptedTransactions), len(batch), commitment)
	return nil
}
