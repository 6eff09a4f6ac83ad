package roles

import (
	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// Constructor adds inputs and outputs to a PCZT. For transactions funding
// the Orchard pool it builds actions around dummy spends, delegating the
// note cryptography to the backend.
type Constructor struct {
	pczt    *pczt.PCZT
	backend orchard.Backend
}

// NewConstructor wraps a PCZT produced by the Creator. The backend may be
// nil; AddOrchardOutput then fails with an unsupported-operation error.
func NewConstructor(p *pczt.PCZT, backend orchard.Backend) *Constructor {
	return &Constructor{pczt: p, backend: backend}
}

// AddTransparentInput records a UTXO to spend. The input is added with
// SIGHASH_ALL; signatures arrive later via the Signer. A nil sequence
// means 0xFFFFFFFF.
func (c *Constructor) AddTransparentInput(
	prevoutTxID [32]byte,
	prevoutIndex uint32,
	value uint64,
	scriptPubKey []byte,
	redeemScript []byte,
	sequence *uint32,
) error {
	if c.pczt.Global.TxModifiable&pczt.FlagTransparentInputsModifiable == 0 {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "transparent inputs are no longer modifiable",
		}
	}
	if len(scriptPubKey) == 0 {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "input has empty scriptPubKey",
		}
	}
	if value == 0 {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "input has zero value",
		}
	}

	c.pczt.Transparent.Inputs = append(c.pczt.Transparent.Inputs, pczt.TransparentInput{
		PrevoutTxID:        prevoutTxID,
		PrevoutIndex:       prevoutIndex,
		Value:              value,
		ScriptPubKey:       scriptPubKey,
		SighashType:        pczt.SighashAll,
		Sequence:           sequence,
		RedeemScript:       redeemScript,
		PartialSignatures:  make(map[[33]byte][]byte),
		Bip32Derivation:    make(map[[33]byte]pczt.Zip32Derivation),
		Ripemd160Preimages: make(map[[20]byte][]byte),
		Sha256Preimages:    make(map[[32]byte][]byte),
		Hash160Preimages:   make(map[[20]byte][]byte),
		Hash256Preimages:   make(map[[32]byte][]byte),
		Proprietary:        make(map[string][]byte),
	})
	return nil
}

// RecordInputPubkey attaches the compressed pubkey expected to sign an
// input, keyed into the derivation map so signers and verifiers can find
// it. The derivation itself may be empty for externally held keys.
func (c *Constructor) RecordInputPubkey(inputIndex int, pubkey [33]byte, derivation pczt.Zip32Derivation) error {
	if inputIndex < 0 || inputIndex >= len(c.pczt.Transparent.Inputs) {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "input index out of range",
		}
	}
	c.pczt.Transparent.Inputs[inputIndex].Bip32Derivation[pubkey] = derivation
	return nil
}

// AddTransparentOutput records a coin to create, typically a payment to a
// transparent recipient or change back to the sender.
func (c *Constructor) AddTransparentOutput(
	value uint64,
	scriptPubKey []byte,
	userAddress *string,
) error {
	if c.pczt.Global.TxModifiable&pczt.FlagTransparentOutputsModifiable == 0 {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "transparent outputs are no longer modifiable",
		}
	}

	c.pczt.Transparent.Outputs = append(c.pczt.Transparent.Outputs, pczt.TransparentOutput{
		Value:           value,
		ScriptPubKey:    scriptPubKey,
		Bip32Derivation: make(map[[33]byte]pczt.Zip32Derivation),
		UserAddress:     userAddress,
		Proprietary:     make(map[string][]byte),
	})
	return nil
}

// AddOrchardOutput adds a shielded output wrapped in an action with a
// dummy spend. The backend supplies the dummy spend material, the value
// commitment randomness, and the encrypted note.
func (c *Constructor) AddOrchardOutput(
	recipient [43]byte,
	value uint64,
	memo [512]byte,
	userAddress *string,
) error {
	if c.pczt.Global.TxModifiable&pczt.FlagShieldedModifiable == 0 {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "shielded outputs are no longer modifiable",
		}
	}
	if c.backend == nil {
		return orchard.ErrNoBackend("orchard output construction")
	}

	dummy, err := c.backend.CreateDummySpend()
	if err != nil {
		return &pczt.ProposalError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "creating dummy spend",
			Cause:   err,
		}
	}

	// The output note's rho is the nullifier of the paired spend.
	rho := dummy.Nullifier

	rcv, err := c.backend.GenerateRcv()
	if err != nil {
		return &pczt.ProposalError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "sampling value commitment randomness",
			Cause:   err,
		}
	}

	rseed := dummy.Rseed
	note, err := c.backend.EncryptNote(recipient, value, rho, rseed, memo)
	if err != nil {
		return &pczt.ProposalError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "encrypting output note",
			Cause:   err,
		}
	}

	cvNet, err := c.backend.ValueCommitment(value, rcv)
	if err != nil {
		return &pczt.ProposalError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "computing value commitment",
			Cause:   err,
		}
	}

	zeroValue := uint64(0)
	dummySpend := pczt.OrchardSpend{
		Nullifier: dummy.Nullifier,
		Rk:        dummy.Rk,
		Value:     &zeroValue,
		Rho:       &dummy.Rho,
		Rseed:     &dummy.Rseed,
		Recipient: &dummy.Recipient,
		Alpha:     &dummy.Alpha,
		Fvk:       &dummy.Fvk,
		Witness: &pczt.MerkleWitness{
			Position: dummy.WitnessPosition,
			Path:     dummy.WitnessPath,
		},
		DummySk:     &dummy.DummySk,
		Proprietary: make(map[string][]byte),
	}

	output := pczt.OrchardOutput{
		Cmx:           note.Cmx,
		EphemeralKey:  note.EphemeralKey,
		EncCiphertext: note.EncCiphertext,
		OutCiphertext: note.OutCiphertext,
		Recipient:     &recipient,
		Value:         &value,
		Rseed:         &rseed,
		UserAddress:   userAddress,
		Proprietary:   make(map[string][]byte),
	}

	c.pczt.Orchard.Actions = append(c.pczt.Orchard.Actions, pczt.OrchardAction{
		CvNet:  cvNet,
		Spend:  dummySpend,
		Output: output,
		Rcv:    &rcv,
	})

	// Value entering the pool keeps the balance positive.
	c.pczt.Orchard.ValueSum.Magnitude += value
	c.pczt.Orchard.ValueSum.IsNegative = false
	return nil
}

// Finish returns the constructed PCZT, ready for the IOFinalizer.
func (c *Constructor) Finish() *pczt.PCZT {
	return c.pczt
}
