package roles

import (
	"github.com/suffix-labs/zcash-t2z/pkg/crypto"
	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// IOFinalizer locks the input/output set and prepares the shielded bundle
// for proving. After it runs no role may add or remove records.
type IOFinalizer struct {
	pczt    *pczt.PCZT
	backend orchard.Backend
}

// NewIOFinalizer wraps a fully constructed PCZT. The backend may be nil
// for transparent-only transactions.
func NewIOFinalizer(p *pczt.PCZT, backend orchard.Backend) *IOFinalizer {
	return &IOFinalizer{pczt: p, backend: backend}
}

// Finalize clears the modification flags, folds the per-action rcv values
// into the binding signature key, and signs the dummy spends with their
// throwaway keys. Dummy secret keys are cleared once their signatures
// exist.
func (f *IOFinalizer) Finalize() error {
	f.pczt.Global.TxModifiable = 0

	if len(f.pczt.Orchard.Actions) == 0 {
		return nil
	}
	if f.backend == nil {
		return orchard.ErrNoBackend("orchard io finalization")
	}

	if err := f.computeBindingKey(); err != nil {
		return err
	}
	return f.signDummySpends()
}

// computeBindingKey sets bsk = sum(rcv_i) over all actions. The Extractor
// signs the binding signature with it.
func (f *IOFinalizer) computeBindingKey() error {
	var bsk [32]byte
	for i := range f.pczt.Orchard.Actions {
		action := &f.pczt.Orchard.Actions[i]
		if action.Rcv == nil {
			return &pczt.ProposalError{
				Code:    pczt.ErrIncompletePCZT,
				Message: "action missing value commitment randomness",
			}
		}
		sum, err := f.backend.ScalarAdd(bsk, *action.Rcv)
		if err != nil {
			return &pczt.ProposalError{
				Code:    pczt.ErrProofCreationFailed,
				Message: "folding rcv into binding key",
				Cause:   err,
			}
		}
		bsk = sum
	}
	f.pczt.Orchard.Bsk = &bsk
	return nil
}

// signDummySpends authorizes every synthetic spend. The signature covers
// the shielded sighash over the locked I/O set; the dummy key is dropped
// immediately after.
func (f *IOFinalizer) signDummySpends() error {
	sighash, err := crypto.ShieldedSignatureHash(f.pczt)
	if err != nil {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidSighash,
			Message: "computing shielded sighash",
			Cause:   err,
		}
	}

	for i := range f.pczt.Orchard.Actions {
		action := &f.pczt.Orchard.Actions[i]
		if action.Spend.DummySk == nil {
			continue
		}

		var alpha [32]byte
		if action.Spend.Alpha != nil {
			alpha = *action.Spend.Alpha
		}
		sig, err := f.backend.SignSpendAuth(*action.Spend.DummySk, alpha, sighash)
		if err != nil {
			return &pczt.ProposalError{
				Code:    pczt.ErrProofCreationFailed,
				Message: "signing dummy spend",
				Cause:   err,
			}
		}
		action.Spend.SpendAuthSig = &sig
		action.Spend.DummySk = nil
	}
	return nil
}

// Finish returns the locked PCZT, ready for the Prover and Signer.
func (f *IOFinalizer) Finish() *pczt.PCZT {
	return f.pczt
}
