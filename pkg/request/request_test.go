package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
	"github.com/suffix-labs/zcash-t2z/pkg/zip321"
)

func mainnetAddr(b byte) string {
	var hash [20]byte
	for i := range hash {
		hash[i] = b
	}
	return address.EncodeP2PKH(hash, consensus.MainNetwork)
}

func testnetAddr(b byte) string {
	var hash [20]byte
	for i := range hash {
		hash[i] = b
	}
	return address.EncodeP2PKH(hash, consensus.TestNetwork)
}

func unifiedAddr(t *testing.T, net consensus.Network) string {
	t.Helper()
	var receiver [43]byte
	for i := range receiver {
		receiver[i] = byte(i)
	}
	addr, err := address.EncodeUnified(receiver, net)
	require.NoError(t, err)
	return addr
}

func TestNewRequest(t *testing.T) {
	req, err := New([]Payment{{Address: mainnetAddr(1), Amount: 100_000}})
	require.NoError(t, err)
	assert.Len(t, req.Payments(), 1)
	assert.Equal(t, consensus.MainNetwork, req.Network())
	assert.Equal(t, uint64(100_000), req.TotalAmount())
}

func TestNewRequestEmpty(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNewRequestZeroAmount(t *testing.T) {
	_, err := New([]Payment{{Address: mainnetAddr(1), Amount: 0}})
	assert.Error(t, err)
}

func TestNewRequestBadAddress(t *testing.T) {
	_, err := New([]Payment{{Address: "not-an-address", Amount: 1}})
	assert.Error(t, err)
}

func TestNewRequestAcceptsTestnetAddress(t *testing.T) {
	// Construction only requires a parseable address; the network binding
	// is applied by SetNetwork.
	req, err := New([]Payment{{Address: testnetAddr(1), Amount: 1}})
	require.NoError(t, err)

	require.NoError(t, req.SetNetwork(consensus.TestNetwork))
	assert.Equal(t, consensus.TestNetwork, req.Network())
}

func TestSetNetworkRevalidates(t *testing.T) {
	req, err := New([]Payment{{Address: mainnetAddr(1), Amount: 1000}})
	require.NoError(t, err)

	// Payments hold a mainnet address, so the switch must fail and the
	// request must keep its previous network.
	err = req.SetNetwork(consensus.TestNetwork)
	assert.Error(t, err)
	assert.Equal(t, consensus.MainNetwork, req.Network())
}

func TestSetTargetHeight(t *testing.T) {
	req, err := New([]Payment{{Address: mainnetAddr(1), Amount: 1000}})
	require.NoError(t, err)

	require.NoError(t, req.SetTargetHeight(2_500_000))
	assert.Equal(t, uint32(2_500_000), req.TargetHeight())

	// Pre-NU5 heights cannot carry v5 transactions.
	assert.Error(t, req.SetTargetHeight(1_000_000))
}

func TestBranchID(t *testing.T) {
	req, err := NewWithTargetHeight([]Payment{{Address: mainnetAddr(1), Amount: 1}}, 2_500_000)
	require.NoError(t, err)

	branch, err := req.BranchID()
	require.NoError(t, err)
	assert.Equal(t, consensus.BranchNU5, branch)
}

func TestBranchIDDefaultsToLatest(t *testing.T) {
	req, err := New([]Payment{{Address: mainnetAddr(1), Amount: 1}})
	require.NoError(t, err)

	branch, err := req.BranchID()
	require.NoError(t, err)
	assert.Equal(t, consensus.MainNetwork.LatestBranchID(), branch)
}

func TestIsShielded(t *testing.T) {
	p := Payment{Address: unifiedAddr(t, consensus.MainNetwork), Amount: 1}
	assert.True(t, p.IsShielded(consensus.MainNetwork))
	assert.False(t, p.IsShielded(consensus.TestNetwork))

	tp := Payment{Address: mainnetAddr(3), Amount: 1}
	assert.False(t, tp.IsShielded(consensus.MainNetwork))
}

func TestFromZIP321(t *testing.T) {
	amount := 1.5
	memo := "coffee"
	pr := &zip321.PaymentRequest{Payments: []zip321.Payment{
		{Address: mainnetAddr(1), Amount: &amount, Memo: &memo},
	}}

	req, err := FromZIP321(pr)
	require.NoError(t, err)
	require.Len(t, req.Payments(), 1)
	assert.Equal(t, uint64(150_000_000), req.Payments()[0].Amount)
	assert.Equal(t, "coffee", req.Payments()[0].Memo)
}

func TestFromZIP321MissingAmount(t *testing.T) {
	pr := &zip321.PaymentRequest{Payments: []zip321.Payment{
		{Address: mainnetAddr(1)},
	}}
	_, err := FromZIP321(pr)
	assert.Error(t, err)
}

func TestFromZIP321SubZatoshiPrecision(t *testing.T) {
	amount := 0.000000001 // tenth of a zatoshi
	pr := &zip321.PaymentRequest{Payments: []zip321.Payment{
		{Address: mainnetAddr(1), Amount: &amount},
	}}
	_, err := FromZIP321(pr)
	assert.Error(t, err)
}
