package roles

import (
	"bytes"
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
	"github.com/suffix-labs/zcash-t2z/pkg/request"
	"github.com/suffix-labs/zcash-t2z/pkg/zip317"
)

// ExpectedChange declares the change output a verifier should accept
// beyond the requested payments.
type ExpectedChange struct {
	Script []byte
	Value  uint64
}

// Verify checks that a PCZT implements exactly the given request: every
// payment present with the exact amount and destination, no outputs
// beyond the payments and the declared change, and inputs minus outputs
// equal to the ZIP 317 fee for the transaction's shape. A one-zatoshi
// discrepancy anywhere fails. Verify never mutates the PCZT.
func Verify(p *pczt.PCZT, req *request.TransactionRequest, change *ExpectedChange) error {
	network := req.Network()

	transparentUsed := make([]bool, len(p.Transparent.Outputs))
	orchardUsed := make([]bool, len(p.Orchard.Actions))

	for _, payment := range req.Payments() {
		var err error
		if payment.IsShielded(network) {
			err = matchOrchardPayment(p, payment, network, orchardUsed)
		} else {
			err = matchTransparentPayment(p, payment, network, transparentUsed)
		}
		if err != nil {
			return err
		}
	}

	if err := checkChange(p, change, transparentUsed); err != nil {
		return err
	}

	// Every action must correspond to a requested shielded payment.
	for i, used := range orchardUsed {
		if !used {
			return &pczt.VerificationFailure{
				Code:    pczt.ErrConflictingData,
				Message: fmt.Sprintf("orchard action %d does not correspond to any requested payment", i),
			}
		}
	}

	return checkBalance(p)
}

// matchTransparentPayment claims the first unclaimed output whose script
// and value match the payment exactly.
func matchTransparentPayment(p *pczt.PCZT, payment request.Payment, network consensus.Network, used []bool) error {
	script, err := address.PayToAddrScript(payment.Address, network)
	if err != nil {
		return &pczt.VerificationFailure{
			Code:    pczt.ErrInvalidAddress,
			Message: fmt.Sprintf("building script for address %q: %v", payment.Address, err),
		}
	}

	for i := range p.Transparent.Outputs {
		if used[i] {
			continue
		}
		output := &p.Transparent.Outputs[i]
		if bytes.Equal(output.ScriptPubKey, script) && output.Value == payment.Amount {
			used[i] = true
			return nil
		}
	}
	return &pczt.VerificationFailure{
		Code:    pczt.ErrConflictingData,
		Message: fmt.Sprintf("payment of %d zatoshis to %s not found", payment.Amount, payment.Address),
	}
}

// matchOrchardPayment claims the first unclaimed action whose recipient
// and note value match the payment exactly.
func matchOrchardPayment(p *pczt.PCZT, payment request.Payment, network consensus.Network, used []bool) error {
	receiver, err := address.DecodeUnified(payment.Address, network)
	if err != nil {
		return &pczt.VerificationFailure{
			Code:    pczt.ErrInvalidAddress,
			Message: fmt.Sprintf("decoding unified address %q: %v", payment.Address, err),
		}
	}

	for i := range p.Orchard.Actions {
		if used[i] {
			continue
		}
		action := &p.Orchard.Actions[i]
		if action.Output.Recipient == nil || action.Output.Value == nil {
			continue
		}
		if *action.Output.Recipient == receiver && *action.Output.Value == payment.Amount {
			used[i] = true
			return nil
		}
	}
	return &pczt.VerificationFailure{
		Code:    pczt.ErrConflictingData,
		Message: fmt.Sprintf("shielded payment of %d zatoshis to %s not found", payment.Amount, payment.Address),
	}
}

// checkChange requires every unclaimed transparent output to be the one
// declared change output, byte-exact in script and value.
func checkChange(p *pczt.PCZT, change *ExpectedChange, used []bool) error {
	for i, isUsed := range used {
		if isUsed {
			continue
		}
		output := &p.Transparent.Outputs[i]
		if change == nil {
			return &pczt.VerificationFailure{
				Code:    pczt.ErrConflictingData,
				Message: fmt.Sprintf("unexpected transparent output %d", i),
			}
		}
		if !bytes.Equal(output.ScriptPubKey, change.Script) || output.Value != change.Value {
			return &pczt.VerificationFailure{
				Code:    pczt.ErrConflictingData,
				Message: fmt.Sprintf("transparent output %d does not match declared change", i),
			}
		}
		change = nil
		used[i] = true
	}
	return nil
}

// checkBalance requires inputs == outputs + shielded value + ZIP 317 fee.
func checkBalance(p *pczt.PCZT) error {
	var in, out uint64
	for _, input := range p.Transparent.Inputs {
		in += input.Value
	}
	for _, output := range p.Transparent.Outputs {
		out += output.Value
	}
	var shielded uint64
	if !p.Orchard.ValueSum.IsNegative {
		shielded = p.Orchard.ValueSum.Magnitude
	}

	fee := zip317.Fee(len(p.Transparent.Inputs), len(p.Transparent.Outputs), len(p.Orchard.Actions))
	if in != out+shielded+fee {
		return &pczt.VerificationFailure{
			Code:    pczt.ErrConflictingData,
			Message: fmt.Sprintf("inputs %d do not balance outputs %d + shielded %d + fee %d", in, out, shielded, fee),
			Details: map[string]interface{}{
				"inputs":   in,
				"outputs":  out,
				"shielded": shielded,
				"fee":      fee,
			},
		}
	}
	return nil
}
