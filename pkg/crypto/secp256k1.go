package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey is a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey is a secp256k1 public key.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// ParsePrivateKeyWIF parses a WIF-encoded private key.
func ParsePrivateKeyWIF(wif string) (*PrivateKey, error) {
	decoded, err := decodeWIF(wif)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(decoded)}, nil
}

// PrivateKeyFromBytes creates a private key from a raw 32-byte scalar.
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(keyBytes)}, nil
}

// Sign produces a DER-encoded ECDSA signature over hash.
func (pk *PrivateKey) Sign(hash [32]byte) ([]byte, error) {
	return ecdsa.Sign(pk.key, hash[:]).Serialize(), nil
}

// SignCompact produces a 64-byte r||s signature over hash. This is the
// form external signers hand back; AppendSignature converts it to DER
// before storing it.
func (pk *PrivateKey) SignCompact(hash [32]byte) [64]byte {
	sig := ecdsa.SignCompact(pk.key, hash[:], true)

	// SignCompact prepends a recovery byte; the remaining 64 bytes are
	// r||s with low-S normalization already applied.
	var out [64]byte
	copy(out[:], sig[1:])
	return out
}

// PublicKey derives the public key.
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key.
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// SerializeCompressed returns the 33-byte compressed public key.
func (pub *PublicKey) SerializeCompressed() [33]byte {
	var result [33]byte
	copy(result[:], pub.key.SerializeCompressed())
	return result
}

// Bytes returns the compressed public key bytes.
func (pub *PublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// ParsePublicKey parses a 33-byte compressed public key.
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	if len(pubKeyBytes) != 33 {
		return nil, fmt.Errorf("compressed public key must be 33 bytes, got %d", len(pubKeyBytes))
	}
	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &PublicKey{key: pubKey}, nil
}

// VerifySignature verifies a DER-encoded ECDSA signature.
func VerifySignature(pubkey *PublicKey, hash [32]byte, signature []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash[:], pubkey.key)
}

// parseCompact rebuilds a signature from its 64-byte r||s form. Either
// scalar overflowing the group order or being zero makes the signature
// invalid.
func parseCompact(signature [64]byte) (*ecdsa.Signature, error) {
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow {
		return nil, errors.New("signature r overflows group order")
	}
	if overflow := s.SetByteSlice(signature[32:]); overflow {
		return nil, errors.New("signature s overflows group order")
	}
	if r.IsZero() || s.IsZero() {
		return nil, errors.New("signature scalar is zero")
	}
	return ecdsa.NewSignature(&r, &s), nil
}

// VerifyCompactSignature verifies a 64-byte r||s signature.
func VerifyCompactSignature(pubkey *PublicKey, hash [32]byte, signature [64]byte) bool {
	sig, err := parseCompact(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash[:], pubkey.key)
}

// CompactSignatureToDER converts a 64-byte r||s signature to DER.
func CompactSignatureToDER(signature [64]byte) ([]byte, error) {
	sig, err := parseCompact(signature)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// decodeWIF decodes a WIF string into the raw 32-byte private key.
// Layout: version || key (32) || [0x01 compression flag] || checksum (4).
func decodeWIF(wif string) ([]byte, error) {
	decoded := base58.Decode(wif)
	if len(decoded) != 37 && len(decoded) != 38 {
		return nil, errors.New("invalid WIF length")
	}

	version := decoded[0]
	if version != 0x80 && version != 0xef {
		return nil, fmt.Errorf("invalid WIF version byte: 0x%02x", version)
	}

	checksumOffset := len(decoded) - 4
	providedChecksum := decoded[checksumOffset:]
	payload := decoded[:checksumOffset]

	hash1 := sha256.Sum256(payload)
	hash2 := sha256.Sum256(hash1[:])
	computedChecksum := hash2[:4]

	for i := 0; i < 4; i++ {
		if providedChecksum[i] != computedChecksum[i] {
			return nil, errors.New("WIF checksum mismatch")
		}
	}

	return payload[1:33], nil
}

// EncodeWIF encodes a raw private key as WIF. Version 0x80 for mainnet,
// 0xef for testnet.
func EncodeWIF(privateKey []byte, compressed bool, testnet bool) (string, error) {
	if len(privateKey) != 32 {
		return "", errors.New("private key must be 32 bytes")
	}

	version := byte(0x80)
	if testnet {
		version = 0xef
	}

	payload := append([]byte{version}, privateKey...)
	if compressed {
		payload = append(payload, 0x01)
	}

	hash1 := sha256.Sum256(payload)
	hash2 := sha256.Sum256(hash1[:])
	payload = append(payload, hash2[:4]...)

	return base58.Encode(payload), nil
}
