package roles

import (
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// Signer attaches transparent signatures to a PCZT.
//
// Signatures normally arrive from an external signer as 64-byte compact
// (r || s) secp256k1 ECDSA over the input's ZIP 244 digest; the Signer
// verifies them against the input's recorded pubkey before attaching.
// An in-process convenience path signs directly with a private key.
// Multiple signers can work on copies of the same PCZT in parallel and
// the Combiner merges the results.
type Signer struct {
	pczt *pczt.PCZT
}

// NewSigner wraps a PCZT whose I/O set is locked.
func NewSigner(p *pczt.PCZT) *Signer {
	return &Signer{pczt: p}
}

// AppendSignature verifies an externally produced compact signature for
// the given input and attaches it. The expected pubkey comes from the
// input's derivation map; for P2PKH inputs it must also hash to the
// scriptPubKey. The PCZT is unchanged on any failure.
func (s *Signer) AppendSignature(inputIndex uint32, signature [64]byte) error {
	if int(inputIndex) >= len(s.pczt.Transparent.Inputs) {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message: fmt.Sprintf("input index out of bounds (have %d inputs)",
				len(s.pczt.Transparent.Inputs)),
		}
	}
	input := &s.pczt.Transparent.Inputs[inputIndex]

	sighash, err := crypto.GetSignatureHash(s.pczt, inputIndex, input.SighashType)
	if err != nil {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "computing sighash",
			Cause:      err,
		}
	}

	pubkey, err := s.matchingPubkey(inputIndex, input, sighash, signature)
	if err != nil {
		return err
	}
	if err := s.checkNotSigned(inputIndex, input, pubkey); err != nil {
		return err
	}

	der, err := crypto.CompactSignatureToDER(signature)
	if err != nil {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "malformed compact signature",
			Cause:      err,
		}
	}

	s.attach(input, pubkey, der)
	return nil
}

// matchingPubkey finds the recorded pubkey the signature verifies under.
func (s *Signer) matchingPubkey(inputIndex uint32, input *pczt.TransparentInput, sighash [32]byte, signature [64]byte) ([33]byte, error) {
	if len(input.Bip32Derivation) == 0 {
		return [33]byte{}, &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "input has no recorded pubkey to verify against",
		}
	}

	for candidate := range input.Bip32Derivation {
		if !s.pubkeyLocksInput(candidate, input) {
			continue
		}
		pub, err := crypto.ParsePublicKey(candidate[:])
		if err != nil {
			continue
		}
		if crypto.VerifyCompactSignature(pub, sighash, signature) {
			return candidate, nil
		}
	}
	return [33]byte{}, &pczt.SignatureError{
		InputIndex: inputIndex,
		Message:    "signature does not verify against any recorded pubkey",
	}
}

// checkNotSigned rejects a second signature for an input that already
// carries one. P2SH multisig inputs accept signatures from distinct
// pubkeys; everything else takes exactly one.
func (s *Signer) checkNotSigned(inputIndex uint32, input *pczt.TransparentInput, pubkey [33]byte) error {
	if _, exists := input.PartialSignatures[pubkey]; exists {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "input already signed by this pubkey",
		}
	}
	if input.RedeemScript == nil && len(input.PartialSignatures) > 0 {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "input already signed",
		}
	}
	return nil
}

// pubkeyLocksInput reports whether the pubkey can satisfy the input's
// scriptPubKey. P2PKH scripts pin the pubkey hash; other script shapes
// defer to the redeem script and accept any recorded pubkey.
func (s *Signer) pubkeyLocksInput(pubkey [33]byte, input *pczt.TransparentInput) bool {
	script := input.ScriptPubKey
	if len(script) == 25 && script[0] == 0x76 && script[1] == 0xA9 && script[2] == 0x14 {
		hash := address.Hash160(pubkey[:])
		for i := 0; i < 20; i++ {
			if script[3+i] != hash[i] {
				return false
			}
		}
	}
	return true
}

// SignTransparentInput computes the input's ZIP 244 digest and signs it
// in process. The pubkey is recorded alongside the signature so later
// roles can finalize without extra context.
func (s *Signer) SignTransparentInput(inputIndex uint32, privateKey *crypto.PrivateKey) error {
	if int(inputIndex) >= len(s.pczt.Transparent.Inputs) {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message: fmt.Sprintf("input index out of bounds (have %d inputs)",
				len(s.pczt.Transparent.Inputs)),
		}
	}
	input := &s.pczt.Transparent.Inputs[inputIndex]

	sighash, err := crypto.GetSignatureHash(s.pczt, inputIndex, input.SighashType)
	if err != nil {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "computing sighash",
			Cause:      err,
		}
	}

	pubkey := privateKey.PublicKey().SerializeCompressed()
	if err := s.checkNotSigned(inputIndex, input, pubkey); err != nil {
		return err
	}

	der, err := privateKey.Sign(sighash)
	if err != nil {
		return &pczt.SignatureError{
			InputIndex: inputIndex,
			Message:    "signing",
			Cause:      err,
		}
	}

	s.attach(input, pubkey, der)
	return nil
}

// attach stores DER || sighash-type under the pubkey and narrows the
// modifiable flags to what the signature still permits.
func (s *Signer) attach(input *pczt.TransparentInput, pubkey [33]byte, der []byte) {
	if input.PartialSignatures == nil {
		input.PartialSignatures = make(map[[33]byte][]byte)
	}
	input.PartialSignatures[pubkey] = append(der, input.SighashType)
	s.updateModifiableFlags(input.SighashType)
}

// updateModifiableFlags clears the flags a signature of this type commits
// to. Without ANYONECANPAY the inputs are pinned; SIGHASH_ALL pins the
// outputs; SIGHASH_SINGLE marks its presence for later validation.
func (s *Signer) updateModifiableFlags(sighashType uint8) {
	base := sighashType & 0x1F
	anyoneCanPay := sighashType&pczt.SighashAnyoneCanPay != 0

	if !anyoneCanPay {
		s.pczt.Global.TxModifiable &^= pczt.FlagTransparentInputsModifiable
		s.pczt.Global.TxModifiable &^= pczt.FlagShieldedModifiable
	}
	if base == pczt.SighashAll {
		s.pczt.Global.TxModifiable &^= pczt.FlagTransparentOutputsModifiable
		s.pczt.Global.TxModifiable &^= pczt.FlagShieldedModifiable
	}
	if base == pczt.SighashSingle {
		s.pczt.Global.TxModifiable |= pczt.FlagHasSighashSingle
	}
}

// Finish returns the signed PCZT.
func (s *Signer) Finish() *pczt.PCZT {
	return s.pczt
}
