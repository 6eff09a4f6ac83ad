// Package address encodes and decodes Zcash payment addresses.
//
// Transparent addresses are Base58Check with a two-byte version prefix
// (t1/t3 on mainnet, tm/t2 on testnet). Unified addresses (ZIP 316) are
// Bech32m over an F4Jumbled receiver list; only the Orchard receiver
// (typecode 0x03) is consumed by this module.
package address

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160"

	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
)

// Script opcodes used by the standard transparent script templates.
const (
	opDup         = 0x76
	opHash160     = 0xA9
	opEqual       = 0x87
	opEqualVerify = 0x88
	opCheckSig    = 0xAC
)

// Two-byte Base58Check version prefixes.
var (
	mainP2PKHPrefix = [2]byte{0x1C, 0xB8} // t1
	mainP2SHPrefix  = [2]byte{0x1C, 0xBD} // t3
	testP2PKHPrefix = [2]byte{0x1D, 0x25} // tm
	testP2SHPrefix  = [2]byte{0x1C, 0xBA} // t2
)

var (
	ErrBadChecksum    = errors.New("address: bad checksum")
	ErrUnknownPrefix  = errors.New("address: unknown version prefix")
	ErrWrongNetwork   = errors.New("address: wrong network")
	ErrNotTransparent = errors.New("address: not a transparent address")
)

// Kind distinguishes the transparent script templates.
type Kind uint8

const (
	P2PKH Kind = iota
	P2SH
)

// Hash160 returns RIPEMD160(SHA256(data)), the hash used in P2PKH and
// P2SH scripts.
func Hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

func checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

func encodeBase58Check(prefix [2]byte, hash [20]byte) string {
	payload := make([]byte, 0, 26)
	payload = append(payload, prefix[:]...)
	payload = append(payload, hash[:]...)
	sum := checksum(payload)
	return base58.Encode(append(payload, sum[:]...))
}

// EncodeP2PKH returns the transparent pay-to-pubkey-hash address for the
// given key hash on the given network.
func EncodeP2PKH(hash [20]byte, network consensus.Network) string {
	if network == consensus.MainNetwork {
		return encodeBase58Check(mainP2PKHPrefix, hash)
	}
	return encodeBase58Check(testP2PKHPrefix, hash)
}

// EncodeP2SH returns the transparent pay-to-script-hash address for the
// given script hash on the given network.
func EncodeP2SH(hash [20]byte, network consensus.Network) string {
	if network == consensus.MainNetwork {
		return encodeBase58Check(mainP2SHPrefix, hash)
	}
	return encodeBase58Check(testP2SHPrefix, hash)
}

// P2PKHFromPubkey returns the P2PKH address of a 33-byte compressed
// secp256k1 public key.
func P2PKHFromPubkey(pubkey []byte, network consensus.Network) (string, error) {
	if len(pubkey) != 33 {
		return "", fmt.Errorf("address: pubkey must be 33 bytes, got %d", len(pubkey))
	}
	return EncodeP2PKH(Hash160(pubkey), network), nil
}

// DecodeTransparent parses a transparent address and returns its kind and
// 20-byte hash. The address must belong to the given network.
func DecodeTransparent(addr string, network consensus.Network) (Kind, [20]byte, error) {
	var hash [20]byte

	decoded := base58.Decode(addr)
	if len(decoded) != 26 {
		return 0, hash, ErrNotTransparent
	}

	payload, sum := decoded[:22], decoded[22:]
	want := checksum(payload)
	if !bytes.Equal(sum, want[:]) {
		return 0, hash, ErrBadChecksum
	}

	var prefix [2]byte
	copy(prefix[:], payload[:2])
	copy(hash[:], payload[2:])

	var kind Kind
	var net consensus.Network
	switch prefix {
	case mainP2PKHPrefix:
		kind, net = P2PKH, consensus.MainNetwork
	case mainP2SHPrefix:
		kind, net = P2SH, consensus.MainNetwork
	case testP2PKHPrefix:
		kind, net = P2PKH, consensus.TestNetwork
	case testP2SHPrefix:
		kind, net = P2SH, consensus.TestNetwork
	default:
		return 0, hash, ErrUnknownPrefix
	}

	if net != network {
		return 0, hash, ErrWrongNetwork
	}
	return kind, hash, nil
}

// PayToAddrScript returns the scriptPubKey paying to a transparent
// address.
func PayToAddrScript(addr string, network consensus.Network) ([]byte, error) {
	kind, hash, err := DecodeTransparent(addr, network)
	if err != nil {
		return nil, err
	}
	switch kind {
	case P2PKH:
		return P2PKHScript(hash), nil
	default:
		return P2SHScript(hash), nil
	}
}

// P2PKHScript builds OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func P2PKHScript(hash [20]byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, 0x14)
	script = append(script, hash[:]...)
	return append(script, opEqualVerify, opCheckSig)
}

// P2SHScript builds OP_HASH160 <hash> OP_EQUAL.
func P2SHScript(hash [20]byte) []byte {
	script := make([]byte, 0, 23)
	script = append(script, opHash160, 0x14)
	script = append(script, hash[:]...)
	return append(script, opEqual)
}

// IsTransparent reports whether the string decodes as a transparent
// address on the given network.
func IsTransparent(addr string, network consensus.Network) bool {
	_, _, err := DecodeTransparent(addr, network)
	return err == nil
}
