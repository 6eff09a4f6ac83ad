package crypto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// V5Tx is a decoded v5 (NU5) wire transaction. It bridges raw transaction
// bytes back into PCZT form for txid computation and inspection of
// extracted transactions.
type V5Tx struct {
	Version           int32 // bit 31 is the overwinter flag
	VersionGroupID    uint32
	ConsensusBranchID uint32
	LockTime          uint32
	ExpiryHeight      uint32

	Inputs  []V5TxIn
	Outputs []V5TxOut

	SaplingSpends  []V5SaplingSpend
	SaplingOutputs []V5SaplingOutput
	SaplingValue   int64
	SaplingAnchor  [32]byte

	OrchardActions      []V5OrchardAction
	OrchardFlags        uint8
	OrchardValueBalance int64
	OrchardAnchor       [32]byte
	OrchardProof        []byte
	OrchardBindingSig   [64]byte
}

// V5TxIn is a transparent input as it appears on the wire.
type V5TxIn struct {
	PrevoutTxID  [32]byte
	PrevoutIndex uint32
	ScriptSig    []byte
	Sequence     uint32
}

// V5TxOut is a transparent output as it appears on the wire.
type V5TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// V5SaplingSpend holds the v5 spend description. The anchor is shared at
// the bundle level; proofs and signatures trail the descriptors.
type V5SaplingSpend struct {
	CV           [32]byte
	Nullifier    [32]byte
	Rk           [32]byte
	Proof        [192]byte
	SpendAuthSig [64]byte
}

// V5SaplingOutput holds the v5 output description.
type V5SaplingOutput struct {
	CV            [32]byte
	Cmu           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext [580]byte
	OutCiphertext [80]byte
	Proof         [192]byte
}

// V5OrchardAction holds one action description plus its spend auth
// signature.
type V5OrchardAction struct {
	CV            [32]byte
	Nullifier     [32]byte
	Rk            [32]byte
	Cmx           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext [580]byte
	OutCiphertext [80]byte
	SpendAuthSig  [64]byte
}

// DecodeV5Tx decodes raw v5 transaction bytes per ZIP 225. Trailing bytes
// after the last bundle are rejected.
func DecodeV5Tx(data []byte) (*V5Tx, error) {
	r := bytes.NewReader(data)
	tx := &V5Tx{}

	if err := binary.Read(r, binary.LittleEndian, &tx.Version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if tx.Version>>31 == 0 {
		return nil, fmt.Errorf("not an overwintered transaction (version=%d)", tx.Version)
	}
	if v := tx.Version & 0x7FFFFFFF; v != 5 {
		return nil, fmt.Errorf("not a v5 transaction (version=%d)", v)
	}

	if err := binary.Read(r, binary.LittleEndian, &tx.VersionGroupID); err != nil {
		return nil, fmt.Errorf("reading version_group_id: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &tx.ConsensusBranchID); err != nil {
		return nil, fmt.Errorf("reading consensus_branch_id: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &tx.LockTime); err != nil {
		return nil, fmt.Errorf("reading lock_time: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &tx.ExpiryHeight); err != nil {
		return nil, fmt.Errorf("reading expiry_height: %w", err)
	}

	if err := decodeTransparent(r, tx); err != nil {
		return nil, fmt.Errorf("decoding transparent bundle: %w", err)
	}
	if err := decodeSapling(r, tx); err != nil {
		return nil, fmt.Errorf("decoding sapling bundle: %w", err)
	}
	if err := decodeOrchard(r, tx); err != nil {
		return nil, fmt.Errorf("decoding orchard bundle: %w", err)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after orchard bundle", r.Len())
	}
	return tx, nil
}

func decodeTransparent(r *bytes.Reader, tx *V5Tx) error {
	numInputs, err := readCompactSize(r)
	if err != nil {
		return fmt.Errorf("reading input count: %w", err)
	}
	tx.Inputs = make([]V5TxIn, numInputs)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if _, err := io.ReadFull(r, in.PrevoutTxID[:]); err != nil {
			return fmt.Errorf("input %d prevout txid: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &in.PrevoutIndex); err != nil {
			return fmt.Errorf("input %d prevout index: %w", i, err)
		}
		if in.ScriptSig, err = readVarBytes(r); err != nil {
			return fmt.Errorf("input %d script_sig: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
			return fmt.Errorf("input %d sequence: %w", i, err)
		}
	}

	numOutputs, err := readCompactSize(r)
	if err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	tx.Outputs = make([]V5TxOut, numOutputs)
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
			return fmt.Errorf("output %d value: %w", i, err)
		}
		if out.ScriptPubKey, err = readVarBytes(r); err != nil {
			return fmt.Errorf("output %d script_pubkey: %w", i, err)
		}
	}
	return nil
}

func decodeSapling(r *bytes.Reader, tx *V5Tx) error {
	numSpends, err := readCompactSize(r)
	if err != nil {
		return fmt.Errorf("reading spend count: %w", err)
	}
	tx.SaplingSpends = make([]V5SaplingSpend, numSpends)
	for i := range tx.SaplingSpends {
		spend := &tx.SaplingSpends[i]
		for _, field := range [][]byte{spend.CV[:], spend.Nullifier[:], spend.Rk[:]} {
			if _, err := io.ReadFull(r, field); err != nil {
				return fmt.Errorf("spend %d: %w", i, err)
			}
		}
	}

	numOutputs, err := readCompactSize(r)
	if err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	tx.SaplingOutputs = make([]V5SaplingOutput, numOutputs)
	for i := range tx.SaplingOutputs {
		out := &tx.SaplingOutputs[i]
		for _, field := range [][]byte{out.CV[:], out.Cmu[:], out.EphemeralKey[:], out.EncCiphertext[:], out.OutCiphertext[:]} {
			if _, err := io.ReadFull(r, field); err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
		}
	}

	if numSpends == 0 && numOutputs == 0 {
		return nil
	}

	if err := binary.Read(r, binary.LittleEndian, &tx.SaplingValue); err != nil {
		return fmt.Errorf("reading value balance: %w", err)
	}
	if numSpends > 0 {
		if _, err := io.ReadFull(r, tx.SaplingAnchor[:]); err != nil {
			return fmt.Errorf("reading anchor: %w", err)
		}
	}
	for i := range tx.SaplingSpends {
		if _, err := io.ReadFull(r, tx.SaplingSpends[i].Proof[:]); err != nil {
			return fmt.Errorf("spend %d proof: %w", i, err)
		}
	}
	for i := range tx.SaplingSpends {
		if _, err := io.ReadFull(r, tx.SaplingSpends[i].SpendAuthSig[:]); err != nil {
			return fmt.Errorf("spend %d auth sig: %w", i, err)
		}
	}
	for i := range tx.SaplingOutputs {
		if _, err := io.ReadFull(r, tx.SaplingOutputs[i].Proof[:]); err != nil {
			return fmt.Errorf("output %d proof: %w", i, err)
		}
	}
	var bindingSig [64]byte
	if _, err := io.ReadFull(r, bindingSig[:]); err != nil {
		return fmt.Errorf("reading binding sig: %w", err)
	}
	return nil
}

func decodeOrchard(r *bytes.Reader, tx *V5Tx) error {
	numActions, err := readCompactSize(r)
	if err != nil {
		return fmt.Errorf("reading action count: %w", err)
	}
	if numActions == 0 {
		return nil
	}

	tx.OrchardActions = make([]V5OrchardAction, numActions)
	for i := range tx.OrchardActions {
		a := &tx.OrchardActions[i]
		for _, field := range [][]byte{a.CV[:], a.Nullifier[:], a.Rk[:], a.Cmx[:], a.EphemeralKey[:], a.EncCiphertext[:], a.OutCiphertext[:]} {
			if _, err := io.ReadFull(r, field); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
		}
	}

	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	tx.OrchardFlags = flags[0]

	if err := binary.Read(r, binary.LittleEndian, &tx.OrchardValueBalance); err != nil {
		return fmt.Errorf("reading value balance: %w", err)
	}
	if _, err := io.ReadFull(r, tx.OrchardAnchor[:]); err != nil {
		return fmt.Errorf("reading anchor: %w", err)
	}
	if tx.OrchardProof, err = readVarBytes(r); err != nil {
		return fmt.Errorf("reading proof: %w", err)
	}
	for i := range tx.OrchardActions {
		if _, err := io.ReadFull(r, tx.OrchardActions[i].SpendAuthSig[:]); err != nil {
			return fmt.Errorf("action %d auth sig: %w", i, err)
		}
	}
	if _, err := io.ReadFull(r, tx.OrchardBindingSig[:]); err != nil {
		return fmt.Errorf("reading binding sig: %w", err)
	}
	return nil
}

// readCompactSize reads a Bitcoin-style variable-length integer.
func readCompactSize(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}
	switch first[0] {
	case 253:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 254:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 255:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return uint64(first[0]), nil
	}
}

func readVarBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, fmt.Errorf("declared length %d exceeds remaining %d bytes", n, r.Len())
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ToPCZT converts a decoded transaction back into PCZT form. Input
// amounts and scriptPubKeys are not on the wire; callers that need
// sighash recomputation supply them, callers computing a txid may pass
// nil.
func (tx *V5Tx) ToPCZT(amounts []uint64, scriptPubkeys [][]byte) *pczt.PCZT {
	p := &pczt.PCZT{
		Global: pczt.Global{
			TxVersion:         uint32(tx.Version & 0x7FFFFFFF),
			VersionGroupID:    tx.VersionGroupID,
			ConsensusBranchID: tx.ConsensusBranchID,
			ExpiryHeight:      tx.ExpiryHeight,
		},
	}
	if tx.LockTime != 0 {
		lockTime := tx.LockTime
		p.Global.FallbackLockTime = &lockTime
	}

	p.Transparent.Inputs = make([]pczt.TransparentInput, len(tx.Inputs))
	for i, txin := range tx.Inputs {
		seq := txin.Sequence
		p.Transparent.Inputs[i] = pczt.TransparentInput{
			PrevoutTxID:  txin.PrevoutTxID,
			PrevoutIndex: txin.PrevoutIndex,
			ScriptSig:    txin.ScriptSig,
			Sequence:     &seq,
		}
		if i < len(amounts) {
			p.Transparent.Inputs[i].Value = amounts[i]
		}
		if i < len(scriptPubkeys) {
			p.Transparent.Inputs[i].ScriptPubKey = scriptPubkeys[i]
		}
	}

	p.Transparent.Outputs = make([]pczt.TransparentOutput, len(tx.Outputs))
	for i, txout := range tx.Outputs {
		p.Transparent.Outputs[i] = pczt.TransparentOutput{
			Value:        txout.Value,
			ScriptPubKey: txout.ScriptPubKey,
		}
	}

	if len(tx.OrchardActions) > 0 {
		p.Orchard.Flags = tx.OrchardFlags
		p.Orchard.Anchor = tx.OrchardAnchor
		p.Orchard.ZkProof = tx.OrchardProof
		if tx.OrchardValueBalance >= 0 {
			p.Orchard.ValueSum = pczt.ValueBalance{Magnitude: uint64(tx.OrchardValueBalance)}
		} else {
			p.Orchard.ValueSum = pczt.ValueBalance{Magnitude: uint64(-tx.OrchardValueBalance), IsNegative: true}
		}
		bindingSig := tx.OrchardBindingSig
		p.Orchard.BindingSig = &bindingSig

		p.Orchard.Actions = make([]pczt.OrchardAction, len(tx.OrchardActions))
		for i, action := range tx.OrchardActions {
			spendAuthSig := action.SpendAuthSig
			p.Orchard.Actions[i] = pczt.OrchardAction{
				CvNet: action.CV,
				Spend: pczt.OrchardSpend{
					Nullifier:    action.Nullifier,
					Rk:           action.Rk,
					SpendAuthSig: &spendAuthSig,
				},
				Output: pczt.OrchardOutput{
					Cmx:           action.Cmx,
					EphemeralKey:  action.EphemeralKey,
					EncCiphertext: action.EncCiphertext[:],
					OutCiphertext: action.OutCiphertext[:],
				},
			}
		}
	}
	return p
}

// ComputeTxID computes the ZIP 244 transaction ID of a PCZT.
func ComputeTxID(p *pczt.PCZT) ([32]byte, error) {
	digests, err := ComputeTxDigests(p)
	if err != nil {
		return [32]byte{}, err
	}
	return combineDigests(p.Global.ConsensusBranchID,
		digests.HeaderDigest, digests.TransparentDigest,
		digests.SaplingDigest, digests.OrchardDigest), nil
}

// TxID computes the ZIP 244 transaction ID of a decoded transaction,
// including any Sapling data PCZT cannot carry.
func (tx *V5Tx) TxID() ([32]byte, error) {
	p := tx.ToPCZT(nil, nil)

	headerDigest, err := computeHeaderDigest(p)
	if err != nil {
		return [32]byte{}, err
	}
	transparentDigest, err := computeTransparentDigest(p)
	if err != nil {
		return [32]byte{}, err
	}
	saplingDigest := ComputeSaplingDigestWithData(tx.saplingDigestData())
	orchardDigest, err := computeOrchardDigest(p)
	if err != nil {
		return [32]byte{}, err
	}

	return combineDigests(tx.ConsensusBranchID,
		headerDigest, transparentDigest, saplingDigest, orchardDigest), nil
}

func combineDigests(branchID uint32, header, transparent, sapling, orchard [32]byte) [32]byte {
	personalization := make([]byte, 16)
	copy(personalization, Zip244HashPersonalization)
	binary.LittleEndian.PutUint32(personalization[12:], branchID)

	h, _ := blake2bNew256(personalization)
	h.Write(header[:])
	h.Write(transparent[:])
	h.Write(sapling[:])
	h.Write(orchard[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (tx *V5Tx) saplingDigestData() *SaplingDigestData {
	if len(tx.SaplingSpends) == 0 && len(tx.SaplingOutputs) == 0 {
		return nil
	}
	data := &SaplingDigestData{ValueBalance: tx.SaplingValue}
	for _, spend := range tx.SaplingSpends {
		data.Spends = append(data.Spends, SaplingSpendData{
			CV:        spend.CV,
			Anchor:    tx.SaplingAnchor,
			Nullifier: spend.Nullifier,
			Rk:        spend.Rk,
		})
	}
	for _, out := range tx.SaplingOutputs {
		data.Outputs = append(data.Outputs, SaplingOutputData{
			CV:            out.CV,
			Cmu:           out.Cmu,
			EphemeralKey:  out.EphemeralKey,
			EncCiphertext: out.EncCiphertext,
			OutCiphertext: out.OutCiphertext,
		})
	}
	return data
}

// ShieldedSignatureHash computes the sighash that authorizes shielded
// spends. The transparent leg uses SIGHASH_ALL over all inputs with an
// empty txin digest; coinbase and purely shielded transactions fall back
// to the txid transparent digest.
func ShieldedSignatureHash(p *pczt.PCZT) ([32]byte, error) {
	digests, err := ComputeTxDigests(p)
	if err != nil {
		return [32]byte{}, err
	}
	transparentSigDigest := shieldedTransparentSigDigest(p)
	return combineDigests(p.Global.ConsensusBranchID,
		digests.HeaderDigest, transparentSigDigest,
		digests.SaplingDigest, digests.OrchardDigest), nil
}

func shieldedTransparentSigDigest(p *pczt.PCZT) [32]byte {
	if len(p.Transparent.Inputs) == 0 || isCoinbase(p) {
		digest, _ := computeTransparentDigest(p)
		return digest
	}

	h, _ := blake2bNew256([]byte(TransparentDigestPersonalization))
	h.Write([]byte{pczt.SighashAll})

	prevoutsDigest := computePrevoutsSigDigest(p.Transparent.Inputs, false)
	h.Write(prevoutsDigest[:])
	amountsDigest := computeAmountsSigDigest(p.Transparent.Inputs, false)
	h.Write(amountsDigest[:])
	scriptsDigest := computeScriptsSigDigest(p.Transparent.Inputs, false)
	h.Write(scriptsDigest[:])
	sequenceDigest := computeSequenceSigDigest(p.Transparent.Inputs, false)
	h.Write(sequenceDigest[:])
	outputsDigest := computeOutputsSigDigest(p.Transparent.Outputs, pczt.SighashAll, 0)
	h.Write(outputsDigest[:])

	// txin_sig_digest is empty for shielded authorization.
	emptyTxIn, _ := blake2bNew256([]byte(TxInDigestPersonalization))
	h.Write(emptyTxIn.Sum(nil))

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// isCoinbase reports whether the single input spends the null prevout.
func isCoinbase(p *pczt.PCZT) bool {
	if len(p.Transparent.Inputs) != 1 {
		return false
	}
	input := p.Transparent.Inputs[0]
	if input.PrevoutIndex != 0xffffffff {
		return false
	}
	return input.PrevoutTxID == [32]byte{}
}
