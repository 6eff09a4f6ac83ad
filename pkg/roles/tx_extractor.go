package roles

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// TxExtractor produces the final v5 wire transaction from a finalized
// PCZT. This is the last role; the result is ready for broadcast.
type TxExtractor struct {
	pczt    *pczt.PCZT
	backend orchard.Backend
}

// NewTxExtractor wraps a finalized PCZT. The backend signs the Orchard
// binding signature and may be nil for transparent-only transactions.
func NewTxExtractor(p *pczt.PCZT, backend orchard.Backend) *TxExtractor {
	return &TxExtractor{pczt: p, backend: backend}
}

// Extract validates completeness, creates the binding signature when
// Orchard actions exist, and returns the raw transaction bytes together
// with the ZIP 244 transaction ID.
func (e *TxExtractor) Extract() ([]byte, [32]byte, error) {
	if err := e.validate(); err != nil {
		return nil, [32]byte{}, err
	}

	if len(e.pczt.Orchard.Actions) > 0 && e.pczt.Orchard.BindingSig == nil {
		if err := e.signBinding(); err != nil {
			return nil, [32]byte{}, err
		}
	}

	txBytes, err := e.serializeTransaction()
	if err != nil {
		return nil, [32]byte{}, &pczt.FinalizationError{
			Code:    pczt.ErrInvalidPCZT,
			Message: "serializing transaction",
			Cause:   err,
		}
	}

	txid, err := crypto.ComputeTxID(e.pczt)
	if err != nil {
		return nil, [32]byte{}, &pczt.FinalizationError{
			Code:    pczt.ErrInvalidPCZT,
			Message: "computing txid",
			Cause:   err,
		}
	}
	return txBytes, txid, nil
}

// validate requires a locked transaction with every input finalized and,
// for shielded bundles, proof and spend authorizations in place. Errors
// name the first incomplete record.
func (e *TxExtractor) validate() error {
	if e.pczt.Global.TxModifiable != 0 {
		return &pczt.FinalizationError{
			Code:    pczt.ErrIncompletePCZT,
			Message: fmt.Sprintf("transaction still modifiable (flags 0x%02x)", e.pczt.Global.TxModifiable),
		}
	}

	for i, input := range e.pczt.Transparent.Inputs {
		if input.ScriptSig == nil {
			return &pczt.FinalizationError{
				Code:    pczt.ErrIncompletePCZT,
				Message: fmt.Sprintf("input %d has no final scriptSig", i),
			}
		}
	}

	if len(e.pczt.Orchard.Actions) > 0 {
		if e.pczt.Orchard.ZkProof == nil {
			return &pczt.FinalizationError{
				Code:    pczt.ErrIncompletePCZT,
				Message: "orchard bundle has no proof",
			}
		}
		for i, action := range e.pczt.Orchard.Actions {
			if action.Spend.SpendAuthSig == nil {
				return &pczt.FinalizationError{
					Code:    pczt.ErrIncompletePCZT,
					Message: fmt.Sprintf("action %d has no spend auth signature", i),
				}
			}
		}
		if e.pczt.Orchard.BindingSig == nil && e.pczt.Orchard.Bsk == nil {
			return &pczt.FinalizationError{
				Code:    pczt.ErrIncompletePCZT,
				Message: "orchard bundle has neither binding signature nor binding key",
			}
		}
	}
	return nil
}

// signBinding signs the shielded sighash with bsk and discards the key.
func (e *TxExtractor) signBinding() error {
	if e.backend == nil {
		return orchard.ErrNoBackend("orchard binding signature")
	}

	sighash, err := crypto.ShieldedSignatureHash(e.pczt)
	if err != nil {
		return &pczt.FinalizationError{
			Code:    pczt.ErrInvalidSighash,
			Message: "computing binding sighash",
			Cause:   err,
		}
	}

	sig, err := e.backend.SignBinding(*e.pczt.Orchard.Bsk, sighash)
	if err != nil {
		return &pczt.FinalizationError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "signing binding signature",
			Cause:   err,
		}
	}
	e.pczt.Orchard.BindingSig = &sig
	e.pczt.Orchard.Bsk = nil
	return nil
}

// serializeTransaction emits the ZIP 225 v5 wire format: the five-field
// header, the transparent bundle, an empty Sapling bundle, and the
// Orchard bundle.
func (e *TxExtractor) serializeTransaction() ([]byte, error) {
	var buf bytes.Buffer

	e.writeHeader(&buf)
	e.writeTransparentBundle(&buf)

	// Sapling spends and outputs are always empty here.
	writeCompactSize(&buf, 0)
	writeCompactSize(&buf, 0)

	if err := e.writeOrchardBundle(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *TxExtractor) writeHeader(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, e.pczt.Global.TxVersion|1<<31)
	binary.Write(buf, binary.LittleEndian, e.pczt.Global.VersionGroupID)
	binary.Write(buf, binary.LittleEndian, e.pczt.Global.ConsensusBranchID)

	lockTime := uint32(0)
	if e.pczt.Global.FallbackLockTime != nil {
		lockTime = *e.pczt.Global.FallbackLockTime
	}
	binary.Write(buf, binary.LittleEndian, lockTime)
	binary.Write(buf, binary.LittleEndian, e.pczt.Global.ExpiryHeight)
}

func (e *TxExtractor) writeTransparentBundle(buf *bytes.Buffer) {
	writeCompactSize(buf, uint64(len(e.pczt.Transparent.Inputs)))
	for _, input := range e.pczt.Transparent.Inputs {
		buf.Write(input.PrevoutTxID[:])
		binary.Write(buf, binary.LittleEndian, input.PrevoutIndex)

		writeCompactSize(buf, uint64(len(input.ScriptSig)))
		buf.Write(input.ScriptSig)

		sequence := uint32(0xFFFFFFFF)
		if input.Sequence != nil {
			sequence = *input.Sequence
		}
		binary.Write(buf, binary.LittleEndian, sequence)
	}

	writeCompactSize(buf, uint64(len(e.pczt.Transparent.Outputs)))
	for _, output := range e.pczt.Transparent.Outputs {
		binary.Write(buf, binary.LittleEndian, output.Value)
		writeCompactSize(buf, uint64(len(output.ScriptPubKey)))
		buf.Write(output.ScriptPubKey)
	}
}

func (e *TxExtractor) writeOrchardBundle(buf *bytes.Buffer) error {
	numActions := len(e.pczt.Orchard.Actions)
	if numActions == 0 {
		writeCompactSize(buf, 0)
		return nil
	}

	writeCompactSize(buf, uint64(numActions))
	for i, action := range e.pczt.Orchard.Actions {
		buf.Write(action.CvNet[:])
		buf.Write(action.Spend.Nullifier[:])
		buf.Write(action.Spend.Rk[:])
		buf.Write(action.Output.Cmx[:])
		buf.Write(action.Output.EphemeralKey[:])

		if len(action.Output.EncCiphertext) != 580 {
			return fmt.Errorf("action %d: enc_ciphertext is %d bytes, want 580", i, len(action.Output.EncCiphertext))
		}
		buf.Write(action.Output.EncCiphertext)

		if len(action.Output.OutCiphertext) != 80 {
			return fmt.Errorf("action %d: out_ciphertext is %d bytes, want 80", i, len(action.Output.OutCiphertext))
		}
		buf.Write(action.Output.OutCiphertext)
	}

	buf.WriteByte(e.pczt.Orchard.Flags)

	valueBalance := int64(e.pczt.Orchard.ValueSum.Magnitude)
	if e.pczt.Orchard.ValueSum.IsNegative {
		valueBalance = -valueBalance
	}
	binary.Write(buf, binary.LittleEndian, valueBalance)

	buf.Write(e.pczt.Orchard.Anchor[:])

	writeCompactSize(buf, uint64(len(e.pczt.Orchard.ZkProof)))
	buf.Write(e.pczt.Orchard.ZkProof)

	for _, action := range e.pczt.Orchard.Actions {
		buf.Write((*action.Spend.SpendAuthSig)[:])
	}

	buf.Write((*e.pczt.Orchard.BindingSig)[:])
	return nil
}

// writeCompactSize writes a Bitcoin-style variable-length integer.
func writeCompactSize(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xFD:
		buf.WriteByte(byte(n))
	case n <= 0xFFFF:
		buf.WriteByte(0xFD)
		binary.Write(buf, binary.LittleEndian, uint16(n))
	case n <= 0xFFFFFFFF:
		buf.WriteByte(0xFE)
		binary.Write(buf, binary.LittleEndian, uint32(n))
	default:
		buf.WriteByte(0xFF)
		binary.Write(buf, binary.LittleEndian, n)
	}
}
