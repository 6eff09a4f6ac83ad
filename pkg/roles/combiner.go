package roles

import (
	"bytes"
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// Combiner merges PCZTs that descend from the same proposal. Parallel
// signers each hold their own copy; the Combiner folds their partial
// signatures and metadata back into one PCZT. Merging is first-wins per
// map entry, so the operation is commutative and associative over
// disjoint signature sets.
type Combiner struct {
	pczts []*pczt.PCZT
}

// NewCombiner takes the PCZTs to merge. They must share the same global
// header and record skeletons.
func NewCombiner(pczts []*pczt.PCZT) *Combiner {
	return &Combiner{pczts: pczts}
}

// Combine merges everything into the first PCZT and returns it.
func (c *Combiner) Combine() (*pczt.PCZT, error) {
	if len(c.pczts) == 0 {
		return nil, &pczt.CombineError{Message: "no PCZTs to combine"}
	}

	result := c.pczts[0]
	for i := 1; i < len(c.pczts); i++ {
		if err := mergeInto(result, c.pczts[i]); err != nil {
			return nil, &pczt.CombineError{
				Message: fmt.Sprintf("merging PCZT %d", i),
				Cause:   err,
			}
		}
	}
	return result, nil
}

func mergeInto(dst, src *pczt.PCZT) error {
	if err := validateCompatible(dst, src); err != nil {
		return err
	}

	mergeGlobal(&dst.Global, &src.Global)
	if err := mergeTransparentInputs(dst, src); err != nil {
		return err
	}
	mergeTransparentOutputs(dst, src)
	mergeOrchard(dst, src)
	return nil
}

// validateCompatible rejects PCZTs that do not describe the same
// transaction: the global header, record counts, input prevouts, and
// action commitments must all agree.
func validateCompatible(a, b *pczt.PCZT) error {
	if a.Global.TxVersion != b.Global.TxVersion {
		return fmt.Errorf("tx versions differ: %d != %d", a.Global.TxVersion, b.Global.TxVersion)
	}
	if a.Global.ConsensusBranchID != b.Global.ConsensusBranchID {
		return fmt.Errorf("consensus branch IDs differ: 0x%x != 0x%x",
			a.Global.ConsensusBranchID, b.Global.ConsensusBranchID)
	}
	if a.Global.ExpiryHeight != b.Global.ExpiryHeight {
		return fmt.Errorf("expiry heights differ: %d != %d", a.Global.ExpiryHeight, b.Global.ExpiryHeight)
	}
	if len(a.Transparent.Inputs) != len(b.Transparent.Inputs) {
		return fmt.Errorf("input counts differ: %d != %d",
			len(a.Transparent.Inputs), len(b.Transparent.Inputs))
	}
	if len(a.Transparent.Outputs) != len(b.Transparent.Outputs) {
		return fmt.Errorf("output counts differ: %d != %d",
			len(a.Transparent.Outputs), len(b.Transparent.Outputs))
	}
	if len(a.Orchard.Actions) != len(b.Orchard.Actions) {
		return fmt.Errorf("action counts differ: %d != %d",
			len(a.Orchard.Actions), len(b.Orchard.Actions))
	}

	for i := range a.Transparent.Inputs {
		aIn, bIn := &a.Transparent.Inputs[i], &b.Transparent.Inputs[i]
		if aIn.PrevoutTxID != bIn.PrevoutTxID {
			return fmt.Errorf("input %d prevout txid differs", i)
		}
		if aIn.PrevoutIndex != bIn.PrevoutIndex {
			return fmt.Errorf("input %d prevout index differs: %d != %d",
				i, aIn.PrevoutIndex, bIn.PrevoutIndex)
		}
	}

	for i := range a.Orchard.Actions {
		aAct, bAct := &a.Orchard.Actions[i], &b.Orchard.Actions[i]
		if aAct.CvNet != bAct.CvNet || aAct.Output.Cmx != bAct.Output.Cmx {
			return fmt.Errorf("action %d differs", i)
		}
	}
	return nil
}

func mergeGlobal(dst, src *pczt.Global) {
	for key, value := range src.Proprietary {
		if _, exists := dst.Proprietary[key]; !exists {
			dst.Proprietary[key] = value
		}
	}
}

func mergeTransparentInputs(dst, src *pczt.PCZT) error {
	for i := range dst.Transparent.Inputs {
		dstInput := &dst.Transparent.Inputs[i]
		srcInput := &src.Transparent.Inputs[i]

		for pubkey, signature := range srcInput.PartialSignatures {
			if existing, exists := dstInput.PartialSignatures[pubkey]; exists {
				if !bytes.Equal(existing, signature) {
					return fmt.Errorf("input %d: conflicting signatures for pubkey %x", i, pubkey)
				}
				continue
			}
			if dstInput.PartialSignatures == nil {
				dstInput.PartialSignatures = make(map[[33]byte][]byte)
			}
			dstInput.PartialSignatures[pubkey] = signature
		}

		for pubkey, derivation := range srcInput.Bip32Derivation {
			if _, exists := dstInput.Bip32Derivation[pubkey]; !exists {
				if dstInput.Bip32Derivation == nil {
					dstInput.Bip32Derivation = make(map[[33]byte]pczt.Zip32Derivation)
				}
				dstInput.Bip32Derivation[pubkey] = derivation
			}
		}

		mergeHashPreimages(dstInput, srcInput)

		for key, value := range srcInput.Proprietary {
			if _, exists := dstInput.Proprietary[key]; !exists {
				dstInput.Proprietary[key] = value
			}
		}

		if dstInput.RedeemScript == nil && srcInput.RedeemScript != nil {
			dstInput.RedeemScript = srcInput.RedeemScript
		}
		if dstInput.ScriptSig == nil && srcInput.ScriptSig != nil {
			dstInput.ScriptSig = srcInput.ScriptSig
		}
	}
	return nil
}

// mergeHashPreimages folds the hash-lock preimage maps, first-wins.
func mergeHashPreimages(dst, src *pczt.TransparentInput) {
	for hash, preimage := range src.Ripemd160Preimages {
		if _, exists := dst.Ripemd160Preimages[hash]; !exists {
			dst.Ripemd160Preimages[hash] = preimage
		}
	}
	for hash, preimage := range src.Sha256Preimages {
		if _, exists := dst.Sha256Preimages[hash]; !exists {
			dst.Sha256Preimages[hash] = preimage
		}
	}
	for hash, preimage := range src.Hash160Preimages {
		if _, exists := dst.Hash160Preimages[hash]; !exists {
			dst.Hash160Preimages[hash] = preimage
		}
	}
	for hash, preimage := range src.Hash256Preimages {
		if _, exists := dst.Hash256Preimages[hash]; !exists {
			dst.Hash256Preimages[hash] = preimage
		}
	}
}

func mergeTransparentOutputs(dst, src *pczt.PCZT) {
	for i := range dst.Transparent.Outputs {
		dstOutput := &dst.Transparent.Outputs[i]
		srcOutput := &src.Transparent.Outputs[i]

		for pubkey, derivation := range srcOutput.Bip32Derivation {
			if _, exists := dstOutput.Bip32Derivation[pubkey]; !exists {
				dstOutput.Bip32Derivation[pubkey] = derivation
			}
		}
		if dstOutput.UserAddress == nil && srcOutput.UserAddress != nil {
			dstOutput.UserAddress = srcOutput.UserAddress
		}
		for key, value := range srcOutput.Proprietary {
			if _, exists := dstOutput.Proprietary[key]; !exists {
				dstOutput.Proprietary[key] = value
			}
		}
	}
}

// mergeOrchard carries over proof, binding key, and per-action spend auth
// signatures when only one side holds them.
func mergeOrchard(dst, src *pczt.PCZT) {
	if dst.Orchard.ZkProof == nil && src.Orchard.ZkProof != nil {
		dst.Orchard.ZkProof = src.Orchard.ZkProof
	}
	if dst.Orchard.Bsk == nil && src.Orchard.Bsk != nil {
		dst.Orchard.Bsk = src.Orchard.Bsk
	}
	if dst.Orchard.BindingSig == nil && src.Orchard.BindingSig != nil {
		dst.Orchard.BindingSig = src.Orchard.BindingSig
	}
	for i := range dst.Orchard.Actions {
		dstAct := &dst.Orchard.Actions[i]
		srcAct := &src.Orchard.Actions[i]
		if dstAct.Spend.SpendAuthSig == nil && srcAct.Spend.SpendAuthSig != nil {
			dstAct.Spend.SpendAuthSig = srcAct.Spend.SpendAuthSig
		}
	}
}
