package roles

import (
	"bytes"
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// SpendFinalizer collapses partial signatures into final scriptSigs. Once
// an input is finalized its construction-time maps are cleared; the
// scriptSig alone carries the authorization from then on.
type SpendFinalizer struct {
	pczt *pczt.PCZT
}

// NewSpendFinalizer wraps a signed PCZT.
func NewSpendFinalizer(p *pczt.PCZT) *SpendFinalizer {
	return &SpendFinalizer{pczt: p}
}

// Finalize builds the scriptSig for every transparent input. P2SH inputs
// are recognized by their redeem script; everything else is treated as
// P2PKH.
func (f *SpendFinalizer) Finalize() error {
	for i := range f.pczt.Transparent.Inputs {
		input := &f.pczt.Transparent.Inputs[i]

		var err error
		if input.RedeemScript != nil {
			err = finalizeP2SH(input)
		} else {
			err = finalizeP2PKH(input)
		}
		if err != nil {
			return &pczt.FinalizationError{
				Code:    pczt.ErrIncompletePCZT,
				Message: fmt.Sprintf("finalizing input %d", i),
				Cause:   err,
			}
		}

		clearInputMetadata(input)
	}
	return nil
}

// finalizeP2PKH builds <signature> <pubkey>.
func finalizeP2PKH(input *pczt.TransparentInput) error {
	if len(input.PartialSignatures) != 1 {
		return fmt.Errorf("P2PKH requires exactly 1 signature, got %d", len(input.PartialSignatures))
	}

	for pubkey, signature := range input.PartialSignatures {
		input.ScriptSig = buildP2PKHScriptSig(signature, pubkey[:])
	}
	return nil
}

// finalizeP2SH builds OP_0 <sig...> <redeemScript> for standard multisig.
func finalizeP2SH(input *pczt.TransparentInput) error {
	if len(input.PartialSignatures) == 0 {
		return fmt.Errorf("P2SH input has no signatures")
	}

	signatures := make([][]byte, 0, len(input.PartialSignatures))
	for _, sig := range input.PartialSignatures {
		signatures = append(signatures, sig)
	}
	input.ScriptSig = buildP2SHScriptSig(signatures, input.RedeemScript)
	return nil
}

// clearInputMetadata drops the maps finalization consumed. The scriptSig
// now carries the signatures and the rest is dead weight.
func clearInputMetadata(input *pczt.TransparentInput) {
	input.PartialSignatures = nil
	input.Bip32Derivation = nil
	input.Ripemd160Preimages = nil
	input.Sha256Preimages = nil
	input.Hash160Preimages = nil
	input.Hash256Preimages = nil
}

// Finish returns the finalized PCZT, ready for extraction.
func (f *SpendFinalizer) Finish() *pczt.PCZT {
	return f.pczt
}

func buildP2PKHScriptSig(signature, pubkey []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(signature)))
	buf.Write(signature)
	buf.WriteByte(byte(len(pubkey)))
	buf.Write(pubkey)
	return buf.Bytes()
}

func buildP2SHScriptSig(signatures [][]byte, redeemScript []byte) []byte {
	var buf bytes.Buffer

	// OP_0 dummy for the CHECKMULTISIG extra-pop quirk.
	buf.WriteByte(0x00)

	for _, sig := range signatures {
		buf.WriteByte(byte(len(sig)))
		buf.Write(sig)
	}

	switch {
	case len(redeemScript) <= 75:
		buf.WriteByte(byte(len(redeemScript)))
	case len(redeemScript) <= 0xFF:
		buf.WriteByte(0x4C) // OP_PUSHDATA1
		buf.WriteByte(byte(len(redeemScript)))
	default:
		buf.WriteByte(0x4D) // OP_PUSHDATA2
		buf.WriteByte(byte(len(redeemScript)))
		buf.WriteByte(byte(len(redeemScript) >> 8))
	}
	buf.Write(redeemScript)
	return buf.Bytes()
}
