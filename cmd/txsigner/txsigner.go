package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/kaspanet/go-secp256k1"
	"golang.org/x/term"

	"github.com/obolnet/obold/domain/ledger/hashing"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/obolnet/obold/domain/ledger/serialization"
	"github.com/obolnet/obold/domain/ledger/signature"
)

func main() {
	cfg, err := parseCommandLine()
	if err != nil {
		printErrorAndExit(err, "Failed to parse arguments")
	}

	keyPair, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		printErrorAndExit(err, "Failed to decode private key")
	}

	transaction, err := parseTransaction(cfg.Transaction)
	if err != nil {
		printErrorAndExit(err, "Failed to decode transaction")
	}

	err = signTransaction(transaction, keyPair)
	if err != nil {
		printErrorAndExit(err, "Failed to sign transaction")
	}

	serializedTransaction, err := serializeTransaction(transaction)
	if err != nil {
		printErrorAndExit(err, "Failed to serialize transaction")
	}

	fmt.Printf("Signed transaction (hex): %s\n", serializedTransaction)
}

func parsePrivateKey(privateKeyHex string) (*secp256k1.SchnorrKeyPair, error) {
	if privateKeyHex == "" {
		fmt.Print("Enter private key (hex): ")
		privateKeyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, err
		}
		privateKeyHex = string(privateKeyBytes)
	}
	serializedPrivateKey, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return secp256k1.DeserializeSchnorrPrivateKeyFromSlice(serializedPrivateKey)
}

func parseTransaction(transactionHex string) (*model.Transaction, error) {
	serializedTx, err := hex.DecodeString(transactionHex)
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeTransaction(bytes.NewReader(serializedTx))
}

func signTransaction(transaction *model.Transaction, keyPair *secp256k1.SchnorrKeyPair) error {
	for i, transactionInput := range transaction.Inputs {
		signingHash, err := hashing.TransactionSigningHash(transaction, i)
		if err != nil {
			return err
		}
		inputSignature, err := signature.SignHash(keyPair, signingHash)
		if err != nil {
			return err
		}
		transactionInput.Signature = inputSignature
	}
	return nil
}

func serializeTransaction(transaction *model.Transaction) (string, error) {
	buf := &bytes.Buffer{}
	err := serialization.SerializeTransaction(buf, transaction)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func printErrorAndExit(err error, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", message, err)
	os.Exit(1)
}
