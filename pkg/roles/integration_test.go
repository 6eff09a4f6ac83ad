package roles

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

func keyFromSeed(t *testing.T, seed string) *crypto.PrivateKey {
	t.Helper()
	digest := sha256.Sum256([]byte(seed))
	key, err := crypto.PrivateKeyFromBytes(digest[:])
	require.NoError(t, err)
	return key
}

// buildTransparentPCZT assembles a locked single-input transaction:
// 100000 in, 50000 payment, 40000 change, 10000 fee.
func buildTransparentPCZT(t *testing.T, key *crypto.PrivateKey) *pczt.PCZT {
	t.Helper()

	pubkey := key.PublicKey().SerializeCompressed()
	hash := address.Hash160(pubkey[:])

	creator := NewCreator(consensus.BranchNU5, 2_500_040, 133, [32]byte{})
	constructor := NewConstructor(creator.Create(), nil)

	require.NoError(t, constructor.AddTransparentInput(
		[32]byte{0xAA}, 0, 100_000, address.P2PKHScript(hash), nil, nil))
	require.NoError(t, constructor.RecordInputPubkey(0, pubkey, pczt.Zip32Derivation{}))

	var payHash [20]byte
	payHash[0] = 0x11
	require.NoError(t, constructor.AddTransparentOutput(50_000, address.P2PKHScript(payHash), nil))
	require.NoError(t, constructor.AddTransparentOutput(40_000, address.P2PKHScript(hash), nil))

	finalizer := NewIOFinalizer(constructor.Finish(), nil)
	require.NoError(t, finalizer.Finalize())
	return finalizer.Finish()
}

func copyPCZT(t *testing.T, p *pczt.PCZT) *pczt.PCZT {
	t.Helper()
	data, err := pczt.Serialize(p)
	require.NoError(t, err)
	dup, err := pczt.Parse(data)
	require.NoError(t, err)
	return dup
}

func TestTransparentLifecycle(t *testing.T) {
	key := keyFromSeed(t, "lifecycle key")
	p := buildTransparentPCZT(t, key)

	// Transparent-only PCZTs pass through proving unchanged.
	require.NoError(t, NewProver(nil).Prove(p))

	// External signing: a compact signature over the ZIP 244 digest.
	sighash, err := crypto.GetSignatureHash(p, 0, pczt.SighashAll)
	require.NoError(t, err)
	require.NoError(t, NewSigner(p).AppendSignature(0, key.SignCompact(sighash)))

	require.NoError(t, NewSpendFinalizer(p).Finalize())
	assert.NotNil(t, p.Transparent.Inputs[0].ScriptSig)
	assert.Nil(t, p.Transparent.Inputs[0].PartialSignatures)

	txBytes, txid, err := NewTxExtractor(p, nil).Extract()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, txid)

	// The wire transaction decodes back to what was built.
	tx, err := crypto.DecodeV5Tx(txBytes)
	require.NoError(t, err)
	assert.Equal(t, consensus.BranchNU5, tx.ConsensusBranchID)
	assert.Equal(t, uint32(2_500_040), tx.ExpiryHeight)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, uint64(50_000), tx.Outputs[0].Value)
	assert.Equal(t, uint64(40_000), tx.Outputs[1].Value)

	decodedTxid, err := tx.TxID()
	require.NoError(t, err)
	assert.Equal(t, txid, decodedTxid)
}

func TestAppendSignatureRejectsWrongKey(t *testing.T) {
	key := keyFromSeed(t, "honest key")
	wrong := keyFromSeed(t, "wrong key")
	p := buildTransparentPCZT(t, key)

	sighash, err := crypto.GetSignatureHash(p, 0, pczt.SighashAll)
	require.NoError(t, err)

	err = NewSigner(p).AppendSignature(0, wrong.SignCompact(sighash))
	var sigErr *pczt.SignatureError
	require.ErrorAs(t, err, &sigErr)

	// Failure leaves the PCZT untouched.
	assert.Empty(t, p.Transparent.Inputs[0].PartialSignatures)
}

func TestAppendSignatureRejectsAlreadySignedInput(t *testing.T) {
	key := keyFromSeed(t, "double sign key")
	p := buildTransparentPCZT(t, key)

	sighash, err := crypto.GetSignatureHash(p, 0, pczt.SighashAll)
	require.NoError(t, err)
	sig := key.SignCompact(sighash)
	require.NoError(t, NewSigner(p).AppendSignature(0, sig))

	// A second valid signature for the same input must be refused.
	err = NewSigner(p).AppendSignature(0, sig)
	var sigErr *pczt.SignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Len(t, p.Transparent.Inputs[0].PartialSignatures, 1)

	err = NewSigner(p).SignTransparentInput(0, key)
	require.ErrorAs(t, err, &sigErr)
	assert.Len(t, p.Transparent.Inputs[0].PartialSignatures, 1)
}

func TestAppendSignatureOutOfRange(t *testing.T) {
	key := keyFromSeed(t, "range key")
	p := buildTransparentPCZT(t, key)

	err := NewSigner(p).AppendSignature(5, [64]byte{1})
	var sigErr *pczt.SignatureError
	require.ErrorAs(t, err, &sigErr)
}

// buildTwoInputPCZT locks a transaction spending coins held by two keys:
// 60000 + 60000 in, 100000 payment, 10000 change, fee(2,2,0) = 10000.
func buildTwoInputPCZT(t *testing.T, keyA, keyB *crypto.PrivateKey) *pczt.PCZT {
	t.Helper()

	pubA := keyA.PublicKey().SerializeCompressed()
	pubB := keyB.PublicKey().SerializeCompressed()
	hashA := address.Hash160(pubA[:])
	hashB := address.Hash160(pubB[:])

	creator := NewCreator(consensus.BranchNU5, 2_500_040, 133, [32]byte{})
	constructor := NewConstructor(creator.Create(), nil)

	require.NoError(t, constructor.AddTransparentInput(
		[32]byte{0x01}, 0, 60_000, address.P2PKHScript(hashA), nil, nil))
	require.NoError(t, constructor.RecordInputPubkey(0, pubA, pczt.Zip32Derivation{}))
	require.NoError(t, constructor.AddTransparentInput(
		[32]byte{0x02}, 1, 60_000, address.P2PKHScript(hashB), nil, nil))
	require.NoError(t, constructor.RecordInputPubkey(1, pubB, pczt.Zip32Derivation{}))

	var payHash [20]byte
	payHash[0] = 0x22
	require.NoError(t, constructor.AddTransparentOutput(100_000, address.P2PKHScript(payHash), nil))
	require.NoError(t, constructor.AddTransparentOutput(10_000, address.P2PKHScript(hashA), nil))

	finalizer := NewIOFinalizer(constructor.Finish(), nil)
	require.NoError(t, finalizer.Finalize())
	return finalizer.Finish()
}

func TestParallelSignAndCombine(t *testing.T) {
	keyA := keyFromSeed(t, "signer A")
	keyB := keyFromSeed(t, "signer B")
	base := buildTwoInputPCZT(t, keyA, keyB)

	// Each party signs its own input on an independent copy.
	copyA := copyPCZT(t, base)
	require.NoError(t, NewSigner(copyA).SignTransparentInput(0, keyA))
	copyB := copyPCZT(t, base)
	require.NoError(t, NewSigner(copyB).SignTransparentInput(1, keyB))

	combined, err := NewCombiner([]*pczt.PCZT{copyA, copyB}).Combine()
	require.NoError(t, err)
	assert.Len(t, combined.Transparent.Inputs[0].PartialSignatures, 1)
	assert.Len(t, combined.Transparent.Inputs[1].PartialSignatures, 1)

	require.NoError(t, NewSpendFinalizer(combined).Finalize())
	_, _, err = NewTxExtractor(combined, nil).Extract()
	require.NoError(t, err)
}

func TestCombineIsCommutative(t *testing.T) {
	keyA := keyFromSeed(t, "signer A")
	keyB := keyFromSeed(t, "signer B")
	base := buildTwoInputPCZT(t, keyA, keyB)

	makeHalves := func() (*pczt.PCZT, *pczt.PCZT) {
		a := copyPCZT(t, base)
		require.NoError(t, NewSigner(a).SignTransparentInput(0, keyA))
		b := copyPCZT(t, base)
		require.NoError(t, NewSigner(b).SignTransparentInput(1, keyB))
		return a, b
	}

	a1, b1 := makeHalves()
	ab, err := NewCombiner([]*pczt.PCZT{a1, b1}).Combine()
	require.NoError(t, err)

	a2, b2 := makeHalves()
	ba, err := NewCombiner([]*pczt.PCZT{b2, a2}).Combine()
	require.NoError(t, err)

	abBytes, err := pczt.Serialize(ab)
	require.NoError(t, err)
	baBytes, err := pczt.Serialize(ba)
	require.NoError(t, err)
	assert.Equal(t, abBytes, baBytes)
}

func TestCombineRejectsConflictingSignatures(t *testing.T) {
	key := keyFromSeed(t, "conflict key")
	base := buildTransparentPCZT(t, key)

	a := copyPCZT(t, base)
	require.NoError(t, NewSigner(a).SignTransparentInput(0, key))

	// Same pubkey, different signature bytes.
	b := copyPCZT(t, base)
	require.NoError(t, NewSigner(b).SignTransparentInput(0, key))
	pubkey := key.PublicKey().SerializeCompressed()
	b.Transparent.Inputs[0].PartialSignatures[pubkey][4] ^= 0xFF

	_, err := NewCombiner([]*pczt.PCZT{a, b}).Combine()
	var combineErr *pczt.CombineError
	require.ErrorAs(t, err, &combineErr)
}

func TestCombineRejectsDifferentTransactions(t *testing.T) {
	key := keyFromSeed(t, "mismatch key")
	a := buildTransparentPCZT(t, key)
	b := buildTransparentPCZT(t, key)
	b.Global.ExpiryHeight++

	_, err := NewCombiner([]*pczt.PCZT{a, b}).Combine()
	assert.Error(t, err)
}

func TestExtractorRequiresFinalizedInputs(t *testing.T) {
	key := keyFromSeed(t, "unfinalized key")
	p := buildTransparentPCZT(t, key)
	require.NoError(t, NewSigner(p).SignTransparentInput(0, key))

	// Skipping the SpendFinalizer leaves input 0 without a scriptSig.
	_, _, err := NewTxExtractor(p, nil).Extract()
	var finErr *pczt.FinalizationError
	require.ErrorAs(t, err, &finErr)
	assert.Contains(t, finErr.Message, "input 0")
}

// stubBackend fabricates deterministic bytes for every Orchard primitive
// so the shielded control flow can be exercised without the real curve.
type stubBackend struct{}

func (stubBackend) tag(domain string, parts ...[]byte) [32]byte {
	mac := hmac.New(sha256.New, []byte(domain))
	for _, part := range parts {
		mac.Write(part)
	}
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

func (s stubBackend) CreateDummySpend() (*orchard.DummySpend, error) {
	dummy := &orchard.DummySpend{
		Nullifier: s.tag("nullifier"),
		Rk:        s.tag("rk"),
		Rho:       s.tag("rho"),
		Rseed:     s.tag("rseed"),
		Alpha:     s.tag("alpha"),
		DummySk:   s.tag("sk"),
	}
	copy(dummy.Recipient[:], "stub-recipient")
	return dummy, nil
}

func (s stubBackend) GenerateRcv() ([32]byte, error) {
	return s.tag("rcv"), nil
}

func (s stubBackend) EncryptNote(recipient [43]byte, value uint64, rho, rseed [32]byte, memo [512]byte) (*orchard.EncryptedNote, error) {
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], value)
	note := &orchard.EncryptedNote{
		Cmx:           s.tag("cmx", recipient[:], valueBytes[:], rho[:], rseed[:]),
		EphemeralKey:  s.tag("epk", rseed[:]),
		EncCiphertext: make([]byte, 580),
		OutCiphertext: make([]byte, 80),
	}
	copy(note.EncCiphertext, memo[:])
	return note, nil
}

func (s stubBackend) ValueCommitment(value uint64, rcv [32]byte) ([32]byte, error) {
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], value)
	return s.tag("cv", valueBytes[:], rcv[:]), nil
}

func (s stubBackend) ScalarAdd(a, b [32]byte) ([32]byte, error) {
	return s.tag("add", a[:], b[:]), nil
}

func (s stubBackend) SignSpendAuth(sk, alpha, sighash [32]byte) ([64]byte, error) {
	var sig [64]byte
	left := s.tag("auth-l", sk[:], alpha[:], sighash[:])
	right := s.tag("auth-r", sk[:], alpha[:], sighash[:])
	copy(sig[:32], left[:])
	copy(sig[32:], right[:])
	return sig, nil
}

func (s stubBackend) SignBinding(bsk, sighash [32]byte) ([64]byte, error) {
	var sig [64]byte
	left := s.tag("bind-l", bsk[:], sighash[:])
	right := s.tag("bind-r", bsk[:], sighash[:])
	copy(sig[:32], left[:])
	copy(sig[32:], right[:])
	return sig, nil
}

func (s stubBackend) Prove(p *pczt.PCZT) error {
	p.Orchard.ZkProof = make([]byte, 2720)
	return nil
}

func TestShieldedLifecycleWithBackend(t *testing.T) {
	backend := stubBackend{}
	key := keyFromSeed(t, "shielded funding key")
	pubkey := key.PublicKey().SerializeCompressed()
	hash := address.Hash160(pubkey[:])

	creator := NewCreator(consensus.BranchNU5, 2_500_040, 133, [32]byte{0xCC})
	constructor := NewConstructor(creator.Create(), backend)

	// 100000 in, 85000 shielded, 5000 change, fee(1,1,1) = 10000.
	require.NoError(t, constructor.AddTransparentInput(
		[32]byte{0xAB}, 0, 100_000, address.P2PKHScript(hash), nil, nil))
	require.NoError(t, constructor.RecordInputPubkey(0, pubkey, pczt.Zip32Derivation{}))

	var receiver [43]byte
	copy(receiver[:], "orchard-receiver")
	var memo [512]byte
	memo[0] = 0xF6
	require.NoError(t, constructor.AddOrchardOutput(receiver, 85_000, memo, nil))
	require.NoError(t, constructor.AddTransparentOutput(5_000, address.P2PKHScript(hash), nil))

	finalizer := NewIOFinalizer(constructor.Finish(), backend)
	require.NoError(t, finalizer.Finalize())
	p := finalizer.Finish()

	// Dummy spends are signed and their keys dropped.
	require.Len(t, p.Orchard.Actions, 1)
	assert.NotNil(t, p.Orchard.Actions[0].Spend.SpendAuthSig)
	assert.Nil(t, p.Orchard.Actions[0].Spend.DummySk)
	require.NotNil(t, p.Orchard.Bsk)

	require.NoError(t, NewProver(backend).Prove(p))
	require.NotNil(t, p.Orchard.ZkProof)

	require.NoError(t, NewSigner(p).SignTransparentInput(0, key))
	require.NoError(t, NewSpendFinalizer(p).Finalize())

	txBytes, txid, err := NewTxExtractor(p, backend).Extract()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, txid)
	assert.Nil(t, p.Orchard.Bsk)
	require.NotNil(t, p.Orchard.BindingSig)

	tx, err := crypto.DecodeV5Tx(txBytes)
	require.NoError(t, err)
	require.Len(t, tx.OrchardActions, 1)
	assert.Equal(t, int64(85_000), tx.OrchardValueBalance)
	assert.Equal(t, [32]byte{0xCC}, tx.OrchardAnchor)
}

func TestProverWithoutBackend(t *testing.T) {
	p := &pczt.PCZT{
		Orchard: pczt.OrchardBundle{
			Actions: []pczt.OrchardAction{{
				Output: pczt.OrchardOutput{
					EncCiphertext: make([]byte, 580),
					OutCiphertext: make([]byte, 80),
				},
			}},
		},
	}

	err := NewProver(nil).Prove(p)
	var unsupported *pczt.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}
