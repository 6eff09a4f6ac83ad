// Package t2z is the top-level entry point for the transparent-to-shielded
// transaction lifecycle. It wraps the role packages behind a handle type
// with move semantics: operations that advance the lifecycle consume their
// input handle, even when they fail, so a stale PCZT can never be signed
// or extracted twice. Borrowing operations (Sighash, Verify, Serialize)
// leave the handle usable.
//
// Serialize followed by Parse yields an independent fresh handle; that is
// the supported way to checkpoint a PCZT before a consuming operation.
package t2z

import (
	"fmt"
	"sync"

	"github.com/suffix-labs/zcash-t2z/pkg/builder"
	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
	"github.com/suffix-labs/zcash-t2z/pkg/request"
	"github.com/suffix-labs/zcash-t2z/pkg/roles"
)

// Handle owns one PCZT as it moves through the lifecycle. A Handle is
// safe for concurrent use; once consumed it is tombstoned and every
// later use fails with a null-input error.
type Handle struct {
	mu       sync.Mutex
	pczt     *pczt.PCZT
	consumed bool
}

func newHandle(p *pczt.PCZT) *Handle {
	return &Handle{pczt: p}
}

// take consumes the handle. The tombstone is set before the caller's
// operation runs, so a failing operation still invalidates the handle.
func (h *Handle) take(op string) (*pczt.PCZT, error) {
	if h == nil {
		return nil, record(&UseError{Message: op + ": nil handle"})
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.consumed {
		return nil, record(&UseError{Message: op + ": handle already consumed"})
	}
	h.consumed = true
	p := h.pczt
	h.pczt = nil
	return p, nil
}

// borrow grants read access without consuming.
func (h *Handle) borrow(op string) (*pczt.PCZT, error) {
	if h == nil {
		return nil, record(&UseError{Message: op + ": nil handle"})
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.consumed {
		return nil, record(&UseError{Message: op + ": handle already consumed"})
	}
	return h.pczt, nil
}

// Propose builds a balanced PCZT from a transaction request and funding
// UTXOs and returns a fresh handle to it.
func Propose(req *request.TransactionRequest, utxos []builder.UTXO, opts builder.Options) (*Handle, *roles.ExpectedChange, error) {
	if req == nil {
		return nil, nil, record(&UseError{Message: "propose: nil request"})
	}
	result, err := builder.Propose(req, utxos, opts)
	if err != nil {
		return nil, nil, record(err)
	}
	return newHandle(result.PCZT), result.Change, nil
}

// Parse deserializes PCZT bytes into a fresh handle.
func Parse(data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, record(&UseError{Message: "parse: empty input"})
	}
	p, err := pczt.Parse(data)
	if err != nil {
		return nil, record(err)
	}
	return newHandle(p), nil
}

// Serialize borrows the handle and returns the PCZT wire bytes.
func (h *Handle) Serialize() ([]byte, error) {
	p, err := h.borrow("serialize")
	if err != nil {
		return nil, err
	}
	data, err := pczt.Serialize(p)
	if err != nil {
		return nil, record(err)
	}
	return data, nil
}

// SerializeInto writes the PCZT wire bytes into a caller-supplied buffer
// and returns the number of bytes written. A too-small buffer fails
// without partial writes.
func (h *Handle) SerializeInto(buf []byte) (int, error) {
	data, err := h.Serialize()
	if err != nil {
		return 0, err
	}
	if len(buf) < len(data) {
		return 0, record(&BufferError{Needed: len(data), Got: len(buf)})
	}
	return copy(buf, data), nil
}

// Sighash borrows the handle and returns the ZIP 244 signature digest for
// one transparent input, using the input's recorded sighash type.
func (h *Handle) Sighash(inputIndex uint32) ([32]byte, error) {
	p, err := h.borrow("sighash")
	if err != nil {
		return [32]byte{}, err
	}
	if int(inputIndex) >= len(p.Transparent.Inputs) {
		return [32]byte{}, record(&pczt.SighashError{
			InputIndex: inputIndex,
			Message:    fmt.Sprintf("input index %d out of bounds (have %d inputs)", inputIndex, len(p.Transparent.Inputs)),
		})
	}
	sighash, err := crypto.GetSignatureHash(p, inputIndex, p.Transparent.Inputs[inputIndex].SighashType)
	if err != nil {
		return [32]byte{}, record(err)
	}
	return sighash, nil
}

// Verify borrows the handle and checks the PCZT against the request it
// is supposed to pay, plus the declared change. This is the caller's
// last chance to refuse before signing.
func (h *Handle) Verify(req *request.TransactionRequest, change *roles.ExpectedChange) error {
	p, err := h.borrow("verify")
	if err != nil {
		return err
	}
	if err := roles.Verify(p, req, change); err != nil {
		return record(err)
	}
	return nil
}

// Prove consumes the handle, attaches the Orchard proof, and returns a
// new handle. Transparent-only PCZTs pass through unchanged.
func Prove(h *Handle, backend orchard.Backend) (*Handle, error) {
	p, err := h.take("prove")
	if err != nil {
		return nil, err
	}
	if err := roles.NewProver(backend).Prove(p); err != nil {
		return nil, record(err)
	}
	return newHandle(p), nil
}

// AppendSignature consumes the handle, verifies and attaches an external
// 64-byte compact signature for one input, and returns a new handle.
func AppendSignature(h *Handle, inputIndex uint32, signature [64]byte) (*Handle, error) {
	p, err := h.take("append-signature")
	if err != nil {
		return nil, err
	}
	if err := roles.NewSigner(p).AppendSignature(inputIndex, signature); err != nil {
		return nil, record(err)
	}
	return newHandle(p), nil
}

// Sign consumes the handle and signs one input with an in-process key.
func Sign(h *Handle, inputIndex uint32, key *crypto.PrivateKey) (*Handle, error) {
	p, err := h.take("sign")
	if err != nil {
		return nil, err
	}
	if err := roles.NewSigner(p).SignTransparentInput(inputIndex, key); err != nil {
		return nil, record(err)
	}
	return newHandle(p), nil
}

// Combine consumes every input handle and merges the partial signatures
// into one PCZT under a new handle. All handles must descend from the
// same proposal.
func Combine(handles ...*Handle) (*Handle, error) {
	if len(handles) == 0 {
		return nil, record(&UseError{Message: "combine: no handles"})
	}

	pczts := make([]*pczt.PCZT, 0, len(handles))
	var takeErr error
	for _, h := range handles {
		p, err := h.take("combine")
		if err != nil {
			takeErr = err
			continue
		}
		pczts = append(pczts, p)
	}
	if takeErr != nil {
		return nil, takeErr
	}

	combined, err := roles.NewCombiner(pczts).Combine()
	if err != nil {
		return nil, record(err)
	}
	return newHandle(combined), nil
}

// FinalizeAndExtract consumes the handle, finalizes every input's
// scriptSig, and emits the broadcast-ready transaction bytes with the
// ZIP 244 txid. The backend signs the Orchard binding signature and may
// be nil for transparent-only transactions.
func FinalizeAndExtract(h *Handle, backend orchard.Backend) ([]byte, [32]byte, error) {
	p, err := h.take("finalize-and-extract")
	if err != nil {
		return nil, [32]byte{}, err
	}
	if err := roles.NewSpendFinalizer(p).Finalize(); err != nil {
		return nil, [32]byte{}, record(err)
	}
	txBytes, txid, err := roles.NewTxExtractor(p, backend).Extract()
	if err != nil {
		return nil, [32]byte{}, record(err)
	}
	return txBytes, txid, nil
}
