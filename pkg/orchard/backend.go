// Package orchard defines the pluggable backend for Orchard cryptography.
//
// The Pallas curve arithmetic, note encryption, RedPallas signing, and
// Halo 2 proving that shielded outputs require are not implemented here.
// Callers supply a Backend (typically backed by a native library) and the
// construction roles drive it. Builds without a backend still handle the
// full transparent lifecycle; any operation that needs Orchard
// cryptography fails with pczt.UnsupportedError.
package orchard

import (
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// DummySpend is the synthetic spend half of an output-only action. All
// fields are internally consistent: the nullifier is derived from the
// synthetic note, rk from the spending key and alpha.
type DummySpend struct {
	Nullifier [32]byte
	Rk        [32]byte
	Rho       [32]byte
	Rseed     [32]byte
	Recipient [43]byte
	Alpha     [32]byte
	Fvk       [96]byte
	DummySk   [32]byte

	WitnessPosition uint32
	WitnessPath     [32][32]byte
}

// EncryptedNote is the result of note encryption for one Orchard output.
type EncryptedNote struct {
	Cmx           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext []byte // 580 bytes
	OutCiphertext []byte // 80 bytes
}

// Backend performs the Orchard cryptographic operations the construction
// roles cannot. Implementations must be safe for concurrent use.
type Backend interface {
	// CreateDummySpend generates a fresh synthetic spend for an
	// output-only action.
	CreateDummySpend() (*DummySpend, error)

	// GenerateRcv samples value commitment randomness (a Pallas scalar).
	GenerateRcv() ([32]byte, error)

	// EncryptNote builds and encrypts the output note, returning the
	// note commitment, ephemeral key, and both ciphertexts.
	EncryptNote(recipient [43]byte, value uint64, rho, rseed [32]byte, memo [512]byte) (*EncryptedNote, error)

	// ValueCommitment computes cv = [value]V + [rcv]R on Pallas.
	ValueCommitment(value uint64, rcv [32]byte) ([32]byte, error)

	// ScalarAdd adds two Pallas scalars mod the group order. The roles
	// use it to fold per-action rcv values into the binding key.
	ScalarAdd(a, b [32]byte) ([32]byte, error)

	// SignSpendAuth produces a RedPallas spend authorization signature
	// under the key randomized by alpha.
	SignSpendAuth(sk, alpha, sighash [32]byte) ([64]byte, error)

	// SignBinding produces the RedPallas binding signature under bsk.
	SignBinding(bsk, sighash [32]byte) ([64]byte, error)

	// Prove generates the Halo 2 proof covering all actions and stores
	// it in the bundle.
	Prove(p *pczt.PCZT) error
}

// ErrNoBackend returns the error reported when an operation needs Orchard
// cryptography but no backend is configured.
func ErrNoBackend(operation string) error {
	return &pczt.UnsupportedError{Operation: operation}
}
