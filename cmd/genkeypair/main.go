package main

import (
	"fmt"
	"os"

	"github.com/kaspanet/go-secp256k1"
	"github.com/tyler-smith/go-bip39"
)

func main() {
	cfg, err := parseConfig()
	if err != nil {
		printErrorAndExit(err, "Failed to parse arguments")
	}

	mnemonic := cfg.Mnemonic
	if mnemonic == "" {
		entropy, err := bip39.NewEntropy(256)
		if err != nil {
			printErrorAndExit(err, "Failed to generate entropy")
		}
		mnemonic, err = bip39.NewMnemonic(entropy)
		if err != nil {
			printErrorAndExit(err, "Failed to generate mnemonic")
		}
	} else if !bip39.IsMnemonicValid(mnemonic) {
		fmt.Fprintln(os.Stderr, "The given mnemonic is invalid")
		os.Exit(1)
	}

	seed := bip39.NewSeed(mnemonic, "")
	keyPair, err := secp256k1.DeserializeSchnorrPrivateKeyFromSlice(seed[:32])
	if err != nil {
		printErrorAndExit(err, "Failed to derive a private key from the mnemonic")
	}
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		printErrorAndExit(err, "Failed to derive the public key")
	}
	serializedPublicKey, err := publicKey.Serialize()
	if err != nil {
		printErrorAndExit(err, "Failed to serialize the public key")
	}

	fmt.Printf("Mnemonic:    %s\n", mnemonic)
	fmt.Printf("Private key: %x\n", keyPair.SerializePrivateKey()[:])
	fmt.Printf("Public key:  %x\n", serializedPublicKey[:])
}

func printErrorAndExit(err error, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", message, err)
	os.Exit(1)
}
