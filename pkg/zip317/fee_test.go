package zip317

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeKnownValues(t *testing.T) {
	tests := []struct {
		name            string
		tIn, tOut, oOut int
		want            uint64
	}{
		{"one input two outputs", 1, 2, 0, 10_000},
		{"empty transaction pays grace floor", 0, 0, 0, 10_000},
		{"single in single out pays floor", 1, 1, 0, 10_000},
		{"transparent to one shielded", 1, 1, 1, 10_000},
		{"consolidation", 10, 1, 0, 50_000},
		{"fan out", 1, 10, 0, 50_000},
		{"mixed", 3, 3, 2, 25_000},
		{"shielded only outputs", 0, 0, 3, 15_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fee(tt.tIn, tt.tOut, tt.oOut))
		})
	}
}

func TestFeeMonotonic(t *testing.T) {
	// Adding an input, output, or shielded output never lowers the fee.
	for tIn := 0; tIn < 8; tIn++ {
		for tOut := 0; tOut < 8; tOut++ {
			for oOut := 0; oOut < 4; oOut++ {
				base := Fee(tIn, tOut, oOut)
				assert.GreaterOrEqual(t, Fee(tIn+1, tOut, oOut), base)
				assert.GreaterOrEqual(t, Fee(tIn, tOut+1, oOut), base)
				assert.GreaterOrEqual(t, Fee(tIn, tOut, oOut+1), base)
			}
		}
	}
}

func TestFeeIsMultipleOfMarginal(t *testing.T) {
	for tIn := 0; tIn < 5; tIn++ {
		for tOut := 0; tOut < 5; tOut++ {
			assert.Zero(t, Fee(tIn, tOut, 1)%MarginalFee)
		}
	}
}
