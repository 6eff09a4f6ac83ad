package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
)

// Unified address HRPs (ZIP 316).
const (
	MainUnifiedHRP = "u"
	TestUnifiedHRP = "utest"
)

// Receiver typecodes within a unified address.
const (
	TypecodeP2PKH   = 0x00
	TypecodeP2SH    = 0x01
	TypecodeSapling = 0x02
	TypecodeOrchard = 0x03
)

// OrchardReceiverLen is the raw Orchard receiver size: an 11-byte
// diversifier followed by a 32-byte transmission key.
const OrchardReceiverLen = 43

var (
	ErrNotUnified        = errors.New("address: not a unified address")
	ErrNoOrchardReceiver = errors.New("address: unified address has no Orchard receiver")
	ErrBadPadding        = errors.New("address: unified address padding mismatch")
)

func unifiedHRP(network consensus.Network) string {
	if network == consensus.MainNetwork {
		return MainUnifiedHRP
	}
	return TestUnifiedHRP
}

func hrpPadding(hrp string) [16]byte {
	var pad [16]byte
	copy(pad[:], hrp)
	return pad
}

// EncodeUnified builds an Orchard-only unified address for the given raw
// receiver.
func EncodeUnified(receiver [43]byte, network consensus.Network) (string, error) {
	hrp := unifiedHRP(network)

	// Receiver TLV followed by the 16-byte HRP padding.
	raw := make([]byte, 0, 2+OrchardReceiverLen+16)
	raw = append(raw, TypecodeOrchard, OrchardReceiverLen)
	raw = append(raw, receiver[:]...)
	pad := hrpPadding(hrp)
	raw = append(raw, pad[:]...)

	if err := F4Jumble(raw); err != nil {
		return "", err
	}

	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(hrp, converted)
}

// DecodeUnified parses a unified address and returns its Orchard
// receiver. Addresses without an Orchard receiver are rejected; this
// module cannot pay Sapling or transparent receivers embedded in a
// unified address.
func DecodeUnified(addr string, network consensus.Network) ([43]byte, error) {
	var receiver [43]byte

	hrp, data, version, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return receiver, fmt.Errorf("address: bech32 decode: %w", err)
	}
	if version != bech32.VersionM {
		return receiver, ErrNotUnified
	}
	if hrp != unifiedHRP(network) {
		if hrp == MainUnifiedHRP || hrp == TestUnifiedHRP {
			return receiver, ErrWrongNetwork
		}
		return receiver, ErrNotUnified
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return receiver, fmt.Errorf("address: bech32 convert: %w", err)
	}
	if len(raw) < 16 {
		return receiver, ErrNotUnified
	}
	if err := F4JumbleInverse(raw); err != nil {
		return receiver, err
	}

	pad := hrpPadding(hrp)
	body, gotPad := raw[:len(raw)-16], raw[len(raw)-16:]
	if !bytes.Equal(gotPad, pad[:]) {
		return receiver, ErrBadPadding
	}

	found := false
	for len(body) > 0 {
		typecode, n, err := readCompactSize(body)
		if err != nil {
			return receiver, err
		}
		body = body[n:]

		length, n, err := readCompactSize(body)
		if err != nil {
			return receiver, err
		}
		body = body[n:]
		if uint64(len(body)) < length {
			return receiver, ErrNotUnified
		}

		if typecode == TypecodeOrchard {
			if length != OrchardReceiverLen {
				return receiver, fmt.Errorf("address: Orchard receiver has %d bytes", length)
			}
			copy(receiver[:], body[:OrchardReceiverLen])
			found = true
		}
		body = body[length:]
	}
	if !found {
		return receiver, ErrNoOrchardReceiver
	}
	return receiver, nil
}

// IsUnified reports whether the string decodes as a unified address with
// an Orchard receiver on the given network.
func IsUnified(addr string, network consensus.Network) bool {
	_, err := DecodeUnified(addr, network)
	return err == nil
}

// readCompactSize decodes a Bitcoin-style CompactSize integer, returning
// the value and the number of bytes consumed.
func readCompactSize(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errors.New("address: truncated compact size")
	}
	switch {
	case b[0] < 0xFD:
		return uint64(b[0]), 1, nil
	case b[0] == 0xFD:
		if len(b) < 3 {
			return 0, 0, errors.New("address: truncated compact size")
		}
		return uint64(b[1]) | uint64(b[2])<<8, 3, nil
	default:
		// Receiver lists never approach 4-byte lengths.
		return 0, 0, errors.New("address: oversized compact size")
	}
}
