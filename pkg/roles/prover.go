package roles

import (
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// Prover attaches the Orchard proof to a PCZT. Transparent-only PCZTs
// pass through unchanged.
type Prover struct {
	backend orchard.Backend
}

// NewProver returns a Prover. The backend may be nil; proving a PCZT with
// Orchard actions then fails with an unsupported-operation error.
func NewProver(backend orchard.Backend) *Prover {
	return &Prover{backend: backend}
}

// Prove validates the action set and generates the proof in place.
func (pr *Prover) Prove(p *pczt.PCZT) error {
	if len(p.Orchard.Actions) == 0 {
		return nil
	}

	if err := pr.checkActions(p); err != nil {
		return err
	}
	if p.Orchard.ZkProof != nil {
		// Already proven, nothing to do.
		return nil
	}
	if pr.backend == nil {
		return orchard.ErrNoBackend("orchard proving")
	}

	if err := pr.backend.Prove(p); err != nil {
		return &pczt.ProverError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "generating orchard proof",
			Cause:   err,
		}
	}
	if p.Orchard.ZkProof == nil {
		return &pczt.ProverError{
			Code:    pczt.ErrProofCreationFailed,
			Message: "backend returned no proof",
		}
	}
	return nil
}

// checkActions enforces the structural invariants proving depends on.
// These run whether or not a backend is configured.
func (pr *Prover) checkActions(p *pczt.PCZT) error {
	var total uint64
	for i := range p.Orchard.Actions {
		action := &p.Orchard.Actions[i]
		if len(action.Output.EncCiphertext) != 580 {
			return &pczt.ProverError{
				Code:    pczt.ErrIncompletePCZT,
				Message: fmt.Sprintf("action %d: enc_ciphertext is %d bytes, want 580", i, len(action.Output.EncCiphertext)),
			}
		}
		if len(action.Output.OutCiphertext) != 80 {
			return &pczt.ProverError{
				Code:    pczt.ErrIncompletePCZT,
				Message: fmt.Sprintf("action %d: out_ciphertext is %d bytes, want 80", i, len(action.Output.OutCiphertext)),
			}
		}
		if action.Spend.Value != nil && *action.Spend.Value != 0 && action.Spend.Witness == nil {
			return &pczt.ProverError{
				Code:    pczt.ErrIncompletePCZT,
				Message: fmt.Sprintf("action %d: real spend has no merkle witness", i),
			}
		}
		if action.Output.Value != nil {
			total += *action.Output.Value
		}
	}

	// With dummy spends only, the value sum must equal the output total
	// flowing into the pool.
	if p.Orchard.ValueSum.IsNegative || p.Orchard.ValueSum.Magnitude != total {
		return &pczt.ProverError{
			Code:    pczt.ErrIncompletePCZT,
			Message: fmt.Sprintf("value sum %d does not match output total %d", p.Orchard.ValueSum.Magnitude, total),
		}
	}
	return nil
}
