// Package request models what a sender asked for: a list of payments with
// amounts in zatoshis, the network to build for, and the target chain
// height that selects consensus parameters.
//
// A request is validated when constructed and re-validated when the
// network changes, so downstream roles can assume every address parses.
package request

import (
	"fmt"
	"math"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
	"github.com/suffix-labs/zcash-t2z/pkg/zip321"
)

// ZatoshisPerZEC is the base-unit scale used when converting decimal ZEC
// amounts from payment URIs.
const ZatoshisPerZEC = 100_000_000

// MaxMoney is the total monetary supply in zatoshis; no payment may
// exceed it.
const MaxMoney uint64 = 2_100_000_000_000_000

// Payment is a single requested transfer.
type Payment struct {
	Address string // transparent or unified address
	Amount  uint64 // zatoshis
	Memo    string // delivered only to shielded recipients
	Label   string
	Message string
}

// IsShielded reports whether the payment targets a unified address with
// an Orchard receiver on the given network.
func (p *Payment) IsShielded(network consensus.Network) bool {
	return address.IsUnified(p.Address, network)
}

// TransactionRequest is the validated set of payments a proposal is built
// from.
type TransactionRequest struct {
	payments     []Payment
	network      consensus.Network
	targetHeight uint32 // 0 means "latest activated upgrade"
}

// New validates the payments against mainnet and returns a request.
func New(payments []Payment) (*TransactionRequest, error) {
	return NewWithTargetHeight(payments, 0)
}

// NewWithTargetHeight validates the payments against mainnet and pins the
// proposal to the given chain height.
func NewWithTargetHeight(payments []Payment, targetHeight uint32) (*TransactionRequest, error) {
	r := &TransactionRequest{
		payments:     append([]Payment(nil), payments...),
		network:      consensus.MainNetwork,
		targetHeight: targetHeight,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromZIP321 builds a request from a parsed zcash: payment URI,
// converting decimal ZEC amounts to zatoshis exactly.
func FromZIP321(pr *zip321.PaymentRequest) (*TransactionRequest, error) {
	payments := make([]Payment, 0, len(pr.Payments))
	for i, p := range pr.Payments {
		if p.Amount == nil {
			return nil, &pczt.ProposalError{
				Code:    pczt.ErrInvalidInput,
				Message: fmt.Sprintf("payment %d has no amount", i),
			}
		}
		zats, err := zecToZatoshis(*p.Amount)
		if err != nil {
			return nil, &pczt.ProposalError{
				Code:    pczt.ErrInvalidInput,
				Message: fmt.Sprintf("payment %d: %v", i, err),
			}
		}
		payment := Payment{Address: p.Address, Amount: zats}
		if p.Memo != nil {
			payment.Memo = *p.Memo
		}
		if p.Label != nil {
			payment.Label = *p.Label
		}
		if p.Message != nil {
			payment.Message = *p.Message
		}
		payments = append(payments, payment)
	}
	return New(payments)
}

func zecToZatoshis(zec float64) (uint64, error) {
	if zec < 0 {
		return 0, fmt.Errorf("negative amount %v", zec)
	}
	scaled := zec * ZatoshisPerZEC
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-3 {
		return 0, fmt.Errorf("amount %v has sub-zatoshi precision", zec)
	}
	if rounded > float64(MaxMoney) {
		return 0, fmt.Errorf("amount %v exceeds monetary supply", zec)
	}
	return uint64(rounded), nil
}

// validate checks shape and amounts. Addresses only need to parse on
// some network here; the binding to a specific network happens in
// SetNetwork and again when a proposal is built.
func (r *TransactionRequest) validate() error {
	if len(r.payments) == 0 {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: "transaction request has no payments",
		}
	}
	for i, p := range r.payments {
		if p.Amount == 0 {
			return &pczt.ProposalError{
				Code:    pczt.ErrInvalidInput,
				Message: fmt.Sprintf("payment %d has zero amount", i),
			}
		}
		if p.Amount > MaxMoney {
			return &pczt.ProposalError{
				Code:    pczt.ErrInvalidInput,
				Message: fmt.Sprintf("payment %d exceeds monetary supply", i),
			}
		}
		if !addressParses(p.Address, consensus.MainNetwork) && !addressParses(p.Address, consensus.TestNetwork) {
			return &pczt.ProposalError{
				Code:    pczt.ErrInvalidAddress,
				Message: fmt.Sprintf("payment %d: address %q is not a valid Zcash address", i, p.Address),
			}
		}
	}
	return nil
}

func addressParses(addr string, network consensus.Network) bool {
	return address.IsTransparent(addr, network) || address.IsUnified(addr, network)
}

// ValidateFor checks every payment address against a specific network.
func (r *TransactionRequest) ValidateFor(network consensus.Network) error {
	for i, p := range r.payments {
		if !addressParses(p.Address, network) {
			return &pczt.ProposalError{
				Code:    pczt.ErrInvalidAddress,
				Message: fmt.Sprintf("payment %d: address %q is not valid on %s", i, p.Address, network),
			}
		}
	}
	return nil
}

// Payments returns the validated payment list.
func (r *TransactionRequest) Payments() []Payment {
	return r.payments
}

// Network returns the network the request is built for.
func (r *TransactionRequest) Network() consensus.Network {
	return r.network
}

// TargetHeight returns the pinned chain height, or 0 when unset.
func (r *TransactionRequest) TargetHeight() uint32 {
	return r.targetHeight
}

// SetTargetHeight pins the proposal to a chain height. Heights below the
// network's NU5 activation cannot carry v5 transactions and are rejected.
func (r *TransactionRequest) SetTargetHeight(height uint32) error {
	if height != 0 && !r.network.SupportsV5(height) {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: fmt.Sprintf("height %d predates NU5 on %s", height, r.network),
		}
	}
	r.targetHeight = height
	return nil
}

// SetNetwork switches the request between mainnet and testnet,
// re-validating every payment address for the new network. On failure
// the previous network is kept.
func (r *TransactionRequest) SetNetwork(network consensus.Network) error {
	if err := r.ValidateFor(network); err != nil {
		return err
	}
	if r.targetHeight != 0 && !network.SupportsV5(r.targetHeight) {
		return &pczt.ProposalError{
			Code:    pczt.ErrInvalidInput,
			Message: fmt.Sprintf("height %d predates NU5 on %s", r.targetHeight, network),
		}
	}
	r.network = network
	return nil
}

// TotalAmount sums the requested payments in zatoshis.
func (r *TransactionRequest) TotalAmount() uint64 {
	var total uint64
	for _, p := range r.payments {
		total += p.Amount
	}
	return total
}

// BranchID resolves the consensus branch ID for the request's network and
// target height, defaulting to the latest activated upgrade when no
// height is pinned.
func (r *TransactionRequest) BranchID() (uint32, error) {
	if r.targetHeight == 0 {
		return r.network.LatestBranchID(), nil
	}
	return r.network.BranchID(r.targetHeight)
}
