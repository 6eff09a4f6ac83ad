// Package zip317 computes conventional transaction fees per ZIP 317.
//
// The fee is proportional to the number of "logical actions" a transaction
// performs, with a floor of GraceActions so that small transactions still
// pay a minimum fee.
//
// Reference: https://zips.z.cash/zip-0317
package zip317

// MarginalFee is the fee per logical action, in zatoshis.
const MarginalFee uint64 = 5000

// GraceActions is the minimum number of actions billed regardless of
// transaction shape.
const GraceActions uint64 = 2

// Fee returns the conventional ZIP 317 fee in zatoshis for a transaction
// with the given counts of transparent inputs, transparent outputs, and
// Orchard outputs.
//
// Logical actions are max(transparentIn, transparentOut) + orchardOut.
// Each Orchard output occupies one action (the paired spend is a dummy
// for transparent-funded transactions, so spends never exceed outputs).
//
//	Fee(1, 2, 0) == 10_000
//	Fee(0, 0, 0) == 10_000
//	Fee(0, 0, 3) == 15_000
func Fee(transparentIn, transparentOut, orchardOut int) uint64 {
	transparent := transparentIn
	if transparentOut > transparent {
		transparent = transparentOut
	}

	logical := uint64(transparent) + uint64(orchardOut)
	if logical < GraceActions {
		logical = GraceActions
	}
	return logical * MarginalFee
}
