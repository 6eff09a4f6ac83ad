package t2z

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/builder"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
	"github.com/suffix-labs/zcash-t2z/pkg/request"
	"github.com/suffix-labs/zcash-t2z/pkg/roles"
)

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	seed := sha256.Sum256([]byte("handle layer key"))
	key, err := crypto.PrivateKeyFromBytes(seed[:])
	require.NoError(t, err)
	return key
}

func testUTXO(t *testing.T, value uint64) builder.UTXO {
	t.Helper()
	pubkey := testKey(t).PublicKey().SerializeCompressed()
	return builder.UTXO{
		TxID:         [32]byte{0xAA},
		Vout:         0,
		Value:        value,
		ScriptPubKey: address.P2PKHScript(address.Hash160(pubkey[:])),
		Pubkey:       pubkey,
	}
}

func testRequest(t *testing.T, amount uint64) *request.TransactionRequest {
	t.Helper()
	var hash [20]byte
	hash[0] = 0x42
	req, err := request.New([]request.Payment{{
		Address: address.EncodeP2PKH(hash, consensus.MainNetwork),
		Amount:  amount,
	}})
	require.NoError(t, err)
	return req
}

func proposeHandle(t *testing.T) (*Handle, *request.TransactionRequest, *roles.ExpectedChange) {
	t.Helper()
	req := testRequest(t, 50_000)
	h, change, err := Propose(req, []builder.UTXO{testUTXO(t, 100_000)}, builder.Options{})
	require.NoError(t, err)
	return h, req, change
}

func TestLifecycleThroughHandles(t *testing.T) {
	h, req, change := proposeHandle(t)
	require.NoError(t, h.Verify(req, change))

	// Prove consumes and hands back a fresh handle.
	h, err := Prove(h, nil)
	require.NoError(t, err)

	sighash, err := h.Sighash(0)
	require.NoError(t, err)

	key := testKey(t)
	h, err = AppendSignature(h, 0, key.SignCompact(sighash))
	require.NoError(t, err)

	txBytes, txid, err := FinalizeAndExtract(h, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, txBytes)
	assert.NotEqual(t, [32]byte{}, txid)

	tx, err := crypto.DecodeV5Tx(txBytes)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, uint64(50_000), tx.Outputs[0].Value)
	assert.Equal(t, uint64(40_000), tx.Outputs[1].Value)
}

func TestConsumedHandleIsTombstoned(t *testing.T) {
	h, _, _ := proposeHandle(t)

	fresh, err := Prove(h, nil)
	require.NoError(t, err)
	_ = fresh

	// The old handle is dead for borrowing and consuming alike.
	_, err = h.Serialize()
	require.Error(t, err)
	assert.Equal(t, ResultNullInput, Code(err))

	_, err = Prove(h, nil)
	require.Error(t, err)
	assert.Equal(t, ResultNullInput, Code(err))
}

func TestFailedConsumingOpStillConsumes(t *testing.T) {
	h, _, _ := proposeHandle(t)

	// A garbage signature fails but the handle is spent regardless.
	_, err := AppendSignature(h, 0, [64]byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, ResultSignatureError, Code(err))

	_, err = h.Serialize()
	assert.Equal(t, ResultNullInput, Code(err))
}

func TestSerializeParseCheckpoint(t *testing.T) {
	h, _, _ := proposeHandle(t)

	data, err := h.Serialize()
	require.NoError(t, err)
	checkpoint, err := Parse(data)
	require.NoError(t, err)

	// Consuming the original leaves the checkpoint alive.
	_, err = Prove(h, nil)
	require.NoError(t, err)

	again, err := checkpoint.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestBorrowingOpsDoNotConsume(t *testing.T) {
	h, req, change := proposeHandle(t)

	_, err := h.Sighash(0)
	require.NoError(t, err)
	require.NoError(t, h.Verify(req, change))
	_, err = h.Serialize()
	require.NoError(t, err)

	// Still consumable afterwards.
	_, err = Prove(h, nil)
	require.NoError(t, err)
}

func TestSerializeInto(t *testing.T) {
	h, _, _ := proposeHandle(t)

	data, err := h.Serialize()
	require.NoError(t, err)

	buf := make([]byte, len(data))
	n, err := h.SerializeInto(buf)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf)

	_, err = h.SerializeInto(make([]byte, len(data)-1))
	require.Error(t, err)
	assert.Equal(t, ResultBufferTooSmall, Code(err))
}

func TestSighashOutOfRange(t *testing.T) {
	h, _, _ := proposeHandle(t)

	_, err := h.Sighash(7)
	require.Error(t, err)
	assert.Equal(t, ResultSighashError, Code(err))
}

func TestCombineConsumesAllHandles(t *testing.T) {
	h, _, _ := proposeHandle(t)
	data, err := h.Serialize()
	require.NoError(t, err)
	other, err := Parse(data)
	require.NoError(t, err)

	combined, err := Combine(h, other)
	require.NoError(t, err)
	require.NotNil(t, combined)

	_, err = h.Serialize()
	assert.Equal(t, ResultNullInput, Code(err))
	_, err = other.Serialize()
	assert.Equal(t, ResultNullInput, Code(err))
}

func TestCombineNoHandles(t *testing.T) {
	_, err := Combine()
	require.Error(t, err)
	assert.Equal(t, ResultNullInput, Code(err))
}

func TestNilHandle(t *testing.T) {
	var h *Handle
	_, err := h.Serialize()
	require.Error(t, err)
	assert.Equal(t, ResultNullInput, Code(err))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not a pczt"))
	require.Error(t, err)
	assert.Equal(t, ResultParseError, Code(err))

	_, err = Parse(nil)
	require.Error(t, err)
	assert.Equal(t, ResultNullInput, Code(err))
}

func TestLastError(t *testing.T) {
	ClearLastError()
	assert.Empty(t, LastError())

	_, err := Parse([]byte("bogus"))
	require.Error(t, err)
	assert.Equal(t, err.Error(), LastError())

	ClearLastError()
	assert.Empty(t, LastError())
}

func TestResultCodeTaxonomy(t *testing.T) {
	assert.Equal(t, ResultOK, Code(nil))
	assert.Equal(t, ResultProposalError, Code(&pczt.ProposalError{Code: pczt.ErrInsufficientFunds}))
	assert.Equal(t, ResultProvingError, Code(&pczt.ProverError{}))
	assert.Equal(t, ResultVerificationError, Code(&pczt.VerificationFailure{}))
	assert.Equal(t, ResultCombineError, Code(&pczt.CombineError{}))
	assert.Equal(t, ResultFinalizationError, Code(&pczt.FinalizationError{}))
	assert.Equal(t, ResultUnsupported, Code(&pczt.UnsupportedError{Operation: "x"}))
	assert.Equal(t, "null-input", ResultNullInput.String())
	assert.Equal(t, "ok", ResultOK.String())
}
