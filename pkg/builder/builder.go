// Package builder assembles a balanced PCZT from funding UTXOs and a
// transaction request.
package builder

import (
	"fmt"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/orchard"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
	"github.com/suffix-labs/zcash-t2z/pkg/request"
	"github.com/suffix-labs/zcash-t2z/pkg/roles"
	"github.com/suffix-labs/zcash-t2z/pkg/zip317"
)

// Expiry margin in blocks past the target height (ZIP 203).
const expiryDelta = 40

// UTXO is a transparent coin available for funding.
type UTXO struct {
	TxID         [32]byte
	Vout         uint32
	Value        uint64 // zatoshis
	ScriptPubKey []byte
	Pubkey       [33]byte // compressed pubkey that can sign this coin
	RedeemScript []byte   // P2SH only
}

// Options tune proposal assembly.
type Options struct {
	// ChangeAddress receives any change. When empty, change goes to a
	// P2PKH address derived from the first input's pubkey.
	ChangeAddress string

	// OrchardAnchor is the commitment tree root referenced by shielded
	// outputs. Transparent-only proposals may leave it zero.
	OrchardAnchor [32]byte

	// Backend performs Orchard cryptography. Required when the request
	// contains shielded payments.
	Backend orchard.Backend
}

// Result is a built proposal: the PCZT plus the change the verifier
// should expect (nil when the amounts worked out exactly).
type Result struct {
	PCZT   *pczt.PCZT
	Change *roles.ExpectedChange
}

// Propose builds a PCZT paying the request from the given UTXOs,
// balanced to the zatoshi under the ZIP 317 fee for the resulting
// transaction shape.
func Propose(req *request.TransactionRequest, utxos []UTXO, opts Options) (*Result, error) {
	if len(utxos) == 0 {
		return nil, &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "no funding inputs",
		}
	}

	network := req.Network()
	if err := req.ValidateFor(network); err != nil {
		return nil, &pczt.ProposalError{
			Code:    pczt.ErrInvalidAddress,
			Message: "request does not validate for its network",
			Cause:   err,
		}
	}

	branchID, err := req.BranchID()
	if err != nil {
		return nil, &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "resolving consensus branch",
			Cause:   err,
		}
	}

	var expiry uint32
	if h := req.TargetHeight(); h != 0 {
		expiry = h + expiryDelta
	}

	var transparentPays, shieldedPays []request.Payment
	for _, payment := range req.Payments() {
		if payment.IsShielded(network) {
			shieldedPays = append(shieldedPays, payment)
		} else {
			transparentPays = append(transparentPays, payment)
		}
	}

	totalIn := uint64(0)
	for _, u := range utxos {
		totalIn += u.Value
	}
	pay := req.TotalAmount()

	changeValue, withChange, err := solveChange(totalIn, pay, len(utxos), len(transparentPays), len(shieldedPays))
	if err != nil {
		return nil, err
	}

	var changeScript []byte
	if withChange {
		changeScript, err = changeScriptFor(opts.ChangeAddress, utxos[0], network)
		if err != nil {
			return nil, err
		}
	}

	p, err := assemble(req, utxos, transparentPays, shieldedPays, assembly{
		branchID:      branchID,
		expiry:        expiry,
		coinType:      network.CoinType(),
		orchardAnchor: opts.OrchardAnchor,
		backend:       opts.Backend,
		changeScript:  changeScript,
		changeValue:   changeValue,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{PCZT: p}
	if withChange {
		result.Change = &roles.ExpectedChange{Script: changeScript, Value: changeValue}
	}
	return result, nil
}

// solveChange picks between the exact-fee shape and the shape with one
// change output added.
func solveChange(totalIn, pay uint64, nIn, nOut, nOrchard int) (uint64, bool, error) {
	exactFee := zip317.Fee(nIn, nOut, nOrchard)
	if totalIn == pay+exactFee {
		return 0, false, nil
	}

	feeWithChange := zip317.Fee(nIn, nOut+1, nOrchard)
	required := pay + feeWithChange
	if totalIn <= required {
		return 0, false, &pczt.ProposalError{
			Code: pczt.ErrInsufficientFunds,
			Message: fmt.Sprintf("need more than %d zatoshis (payments %d + fee %d), have %d",
				required, pay, feeWithChange, totalIn),
		}
	}
	return totalIn - required, true, nil
}

// changeScriptFor resolves the change destination: the explicit address
// when given, otherwise P2PKH derived from the first input's pubkey.
func changeScriptFor(changeAddress string, first UTXO, network consensus.Network) ([]byte, error) {
	if changeAddress != "" {
		script, err := address.PayToAddrScript(changeAddress, network)
		if err != nil {
			return nil, &pczt.ProposalError{
				Code:    pczt.ErrInvalidAddress,
				Message: fmt.Sprintf("change address %q", changeAddress),
				Cause:   err,
			}
		}
		return script, nil
	}

	if first.Pubkey == ([33]byte{}) {
		return nil, &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "no change address and first input has no pubkey to derive one",
		}
	}
	hash := address.Hash160(first.Pubkey[:])
	return address.P2PKHScript(hash), nil
}

type assembly struct {
	branchID      uint32
	expiry        uint32
	coinType      uint32
	orchardAnchor [32]byte
	backend       orchard.Backend
	changeScript  []byte
	changeValue   uint64
}

// assemble drives the Creator, Constructor, and IOFinalizer roles.
func assemble(req *request.TransactionRequest, utxos []UTXO, transparentPays, shieldedPays []request.Payment, a assembly) (*pczt.PCZT, error) {
	network := req.Network()

	creator := roles.NewCreator(a.branchID, a.expiry, a.coinType, a.orchardAnchor)
	constructor := roles.NewConstructor(creator.Create(), a.backend)

	for i, u := range utxos {
		if err := constructor.AddTransparentInput(u.TxID, u.Vout, u.Value, u.ScriptPubKey, u.RedeemScript, nil); err != nil {
			return nil, err
		}
		if u.Pubkey != ([33]byte{}) {
			if err := constructor.RecordInputPubkey(i, u.Pubkey, pczt.Zip32Derivation{}); err != nil {
				return nil, err
			}
		}
	}

	for _, payment := range transparentPays {
		script, err := address.PayToAddrScript(payment.Address, network)
		if err != nil {
			return nil, &pczt.ProposalError{
				Code:    pczt.ErrInvalidAddress,
				Message: fmt.Sprintf("payment address %q", payment.Address),
				Cause:   err,
			}
		}
		addr := payment.Address
		if err := constructor.AddTransparentOutput(payment.Amount, script, &addr); err != nil {
			return nil, err
		}
	}

	for _, payment := range shieldedPays {
		receiver, err := address.DecodeUnified(payment.Address, network)
		if err != nil {
			return nil, &pczt.ProposalError{
				Code:    pczt.ErrInvalidAddress,
				Message: fmt.Sprintf("unified address %q", payment.Address),
				Cause:   err,
			}
		}
		memo, err := encodeMemo(payment.Memo)
		if err != nil {
			return nil, err
		}
		addr := payment.Address
		if err := constructor.AddOrchardOutput(receiver, payment.Amount, memo, &addr); err != nil {
			return nil, err
		}
	}

	if a.changeScript != nil {
		if err := constructor.AddTransparentOutput(a.changeValue, a.changeScript, nil); err != nil {
			return nil, err
		}
	}

	finalizer := roles.NewIOFinalizer(constructor.Finish(), a.backend)
	if err := finalizer.Finalize(); err != nil {
		return nil, err
	}
	return finalizer.Finish(), nil
}

// encodeMemo pads a UTF-8 memo into the 512-byte memo field. An empty
// memo becomes the "no memo" sentinel 0xF6 followed by zeros.
func encodeMemo(memo string) ([512]byte, error) {
	var out [512]byte
	if memo == "" {
		out[0] = 0xF6
		return out, nil
	}
	if len(memo) > 512 {
		return out, &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: fmt.Sprintf("memo is %d bytes, limit 512", len(memo)),
		}
	}
	copy(out[:], memo)
	return out, nil
}
