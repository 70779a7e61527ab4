package constants

const (
	// TransactionVersion is the current transaction version
	TransactionVersion uint16 = 0

	// LeptonPerObol is the number of lepton in one obol
	LeptonPerObol = 100_000_000

	// MaxLepton is the maximum transaction amount allowed in lepton
	MaxLepton = uint64(29_000_000_000 * LeptonPerObol)

	// OwnerPublicKeySize is the size of a serialized Schnorr public key
	// owning an output
	OwnerPublicKeySize = 32

	// SignatureSize is the size of a serialized Schnorr signature
	SignatureSize = 64
)
