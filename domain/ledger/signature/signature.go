package signature

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/obolnet/obold/domain/ledger/model"
	"github.com/pkg/errors"
)

// Verifier is the signature oracle the validator depends on. It reports
// whether signature is a valid signature by ownerPublicKey over signingHash.
// A well-formed-but-wrong signature yields (false, nil); a signature or key
// that cannot even be deserialized yields an error.
type Verifier interface {
	Verify(ownerPublicKey []byte, signingHash *model.Hash, signature []byte) (bool, error)
}

type schnorrVerifier struct{}

// NewSchnorrVerifier returns a Verifier backed by secp256k1 Schnorr
// signatures over 32-byte serialized public keys.
func NewSchnorrVerifier() Verifier {
	return schnorrVerifier{}
}

func (schnorrVerifier) Verify(ownerPublicKey []byte, signingHash *model.Hash, signature []byte) (bool, error) {
	publicKey, err := secp256k1.DeserializeSchnorrPubKey(ownerPublicKey)
	if err != nil {
		return false, errors.Wrapf(err, "failed deserializing owner public key %x", ownerPublicKey)
	}
	schnorrSignature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(signature)
	if err != nil {
		return false, errors.Wrapf(err, "failed deserializing signature %x", signature)
	}
	secpHash := secp256k1.Hash(*signingHash.ByteArray())
	return publicKey.SchnorrVerify(&secpHash, schnorrSignature), nil
}

// SignHash signs signingHash with keyPair and returns the serialized
// signature. It is the signing-side counterpart of NewSchnorrVerifier, used
// by the signing tools and tests.
func SignHash(keyPair *secp256k1.SchnorrKeyPair, signingHash *model.Hash) ([]byte, error) {
	secpHash := secp256k1.Hash(*signingHash.ByteArray())
	schnorrSignature, err := keyPair.SchnorrSign(&secpHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed signing hash %s", signingHash)
	}
	return schnorrSignature.Serialize()[:], nil
}
