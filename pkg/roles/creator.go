// Package roles implements the PCZT construction roles.
//
// Transaction construction is split into responsibilities that different
// parties can execute at different times:
//
//   - Creator: initializes the empty PCZT with transaction-wide metadata
//   - Constructor: adds transparent inputs/outputs and Orchard actions
//   - IOFinalizer: locks the I/O set, computes bsk, signs dummy spends
//   - Prover: attaches the Orchard proof
//   - Verifier: checks a PCZT against the originating request
//   - Signer: attaches transparent signatures
//   - Combiner: merges PCZTs signed in parallel
//   - SpendFinalizer: collapses signatures into final scriptSigs
//   - TxExtractor: emits the v5 wire transaction and its txid
//
// Orchard cryptography is delegated to an injected orchard.Backend; roles
// that never touch shielded state work without one.
package roles

import (
	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// Creator initializes a base PCZT with no spends or outputs. It fixes the
// transaction-wide fields every later role must agree on; inputs and
// outputs are added by the Constructor.
type Creator struct {
	consensusBranchID uint32
	expiryHeight      uint32
	coinType          uint32
	orchardAnchor     [32]byte
	fallbackLockTime  *uint32
}

// NewCreator returns a Creator for the given branch, expiry, and coin
// type. The Orchard anchor is the commitment tree root the actions will
// reference; transparent-only transactions pass the empty anchor.
func NewCreator(
	consensusBranchID uint32,
	expiryHeight uint32,
	coinType uint32,
	orchardAnchor [32]byte,
) *Creator {
	return &Creator{
		consensusBranchID: consensusBranchID,
		expiryHeight:      expiryHeight,
		coinType:          coinType,
		orchardAnchor:     orchardAnchor,
	}
}

// WithFallbackLockTime sets the nLockTime used when no input requires a
// specific lock time. Values below 500000000 are block heights, above are
// UNIX timestamps.
func (c *Creator) WithFallbackLockTime(lockTime uint32) *Creator {
	c.fallbackLockTime = &lockTime
	return c
}

// Create builds the base PCZT. All modification flags are set so the
// Constructor may add inputs and outputs freely.
func (c *Creator) Create() *pczt.PCZT {
	return &pczt.PCZT{
		Global: pczt.Global{
			TxVersion:         pczt.V5TxVersion,
			VersionGroupID:    pczt.V5VersionGroupID,
			ConsensusBranchID: c.consensusBranchID,
			FallbackLockTime:  c.fallbackLockTime,
			ExpiryHeight:      c.expiryHeight,
			CoinType:          c.coinType,
			TxModifiable: pczt.FlagTransparentInputsModifiable |
				pczt.FlagTransparentOutputsModifiable |
				pczt.FlagShieldedModifiable,
			Proprietary: make(map[string][]byte),
		},
		Transparent: pczt.TransparentBundle{
			Inputs:  []pczt.TransparentInput{},
			Outputs: []pczt.TransparentOutput{},
		},
		Sapling: pczt.SaplingBundle{
			Spends:  []interface{}{},
			Outputs: []interface{}{},
		},
		Orchard: pczt.OrchardBundle{
			Actions: []pczt.OrchardAction{},
			Flags:   pczt.OrchardFlagsEnabled,
			Anchor:  c.orchardAnchor,
		},
	}
}
