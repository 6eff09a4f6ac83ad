package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchIDMainnet(t *testing.T) {
	tests := []struct {
		height uint32
		want   uint32
	}{
		{419_200, BranchSapling},
		{1_046_400, BranchCanopy},
		{1_687_103, BranchCanopy},
		{1_687_104, BranchNU5},
		{2_500_000, BranchNU5},
		{2_726_400, BranchNU6},
		{10_000_000, BranchNU6},
	}
	for _, tt := range tests {
		got, err := MainNetwork.BranchID(tt.height)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "height %d", tt.height)
	}
}

func TestBranchIDTestnet(t *testing.T) {
	got, err := TestNetwork.BranchID(1_842_420)
	require.NoError(t, err)
	assert.Equal(t, BranchNU5, got)

	got, err = TestNetwork.BranchID(3_000_000)
	require.NoError(t, err)
	assert.Equal(t, BranchNU6, got)
}

func TestBranchIDPreOverwinter(t *testing.T) {
	_, err := MainNetwork.BranchID(100_000)
	assert.Error(t, err)
}

func TestSupportsV5(t *testing.T) {
	assert.False(t, MainNetwork.SupportsV5(1_687_103))
	assert.True(t, MainNetwork.SupportsV5(1_687_104))
	assert.True(t, TestNetwork.SupportsV5(2_000_000))
	assert.False(t, TestNetwork.SupportsV5(1_000_000))
}

func TestCoinType(t *testing.T) {
	assert.Equal(t, uint32(133), MainNetwork.CoinType())
	assert.Equal(t, uint32(1), TestNetwork.CoinType())
}

func TestLatestBranchID(t *testing.T) {
	assert.Equal(t, BranchNU6, MainNetwork.LatestBranchID())
	assert.Equal(t, BranchNU6, TestNetwork.LatestBranchID())
}
