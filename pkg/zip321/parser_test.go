package zip321

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleRecipient(t *testing.T) {
	req, err := Parse("zcash:tm9iMLAuYMzJ6jtFLcA7rzUmfreGuKvr7Ma?amount=1.5&memo=coffee")
	require.NoError(t, err)
	require.Len(t, req.Payments, 1)

	p := req.Payments[0]
	assert.Equal(t, "tm9iMLAuYMzJ6jtFLcA7rzUmfreGuKvr7Ma", p.Address)
	require.NotNil(t, p.Amount)
	assert.InDelta(t, 1.5, *p.Amount, 1e-12)
	require.NotNil(t, p.Memo)
	assert.Equal(t, "coffee", *p.Memo)
	assert.Nil(t, p.Label)
}

func TestParseWithoutScheme(t *testing.T) {
	req, err := Parse("tm9iMLAuYMzJ6jtFLcA7rzUmfreGuKvr7Ma?amount=0.001")
	require.NoError(t, err)
	require.Len(t, req.Payments, 1)
	assert.InDelta(t, 0.001, *req.Payments[0].Amount, 1e-12)
}

func TestParseAddressOnly(t *testing.T) {
	req, err := Parse("zcash:tm9iMLAuYMzJ6jtFLcA7rzUmfreGuKvr7Ma")
	require.NoError(t, err)
	require.Len(t, req.Payments, 1)
	assert.Nil(t, req.Payments[0].Amount)
}

func TestParseMultipleRecipients(t *testing.T) {
	uri := "zcash:?address.0=tmAddrOne&amount.0=1&address.1=tmAddrTwo&amount.1=2.25&memo.1=rent"
	req, err := Parse(uri)
	require.NoError(t, err)
	require.Len(t, req.Payments, 2)

	assert.Equal(t, "tmAddrOne", req.Payments[0].Address)
	assert.InDelta(t, 1.0, *req.Payments[0].Amount, 1e-12)
	assert.Equal(t, "tmAddrTwo", req.Payments[1].Address)
	assert.InDelta(t, 2.25, *req.Payments[1].Amount, 1e-12)
	require.NotNil(t, req.Payments[1].Memo)
	assert.Equal(t, "rent", *req.Payments[1].Memo)
}

func TestParseIndexedMissingAddress(t *testing.T) {
	_, err := Parse("zcash:?amount.0=1&amount.1=2")
	assert.Error(t, err)
}

func TestParseNegativeAmount(t *testing.T) {
	_, err := Parse("zcash:tmAddr?amount=-1")
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("zcash:")
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	amount := 1.5
	memo := "coffee"
	req := &PaymentRequest{Payments: []Payment{
		{Address: "tm9iMLAuYMzJ6jtFLcA7rzUmfreGuKvr7Ma", Amount: &amount, Memo: &memo},
	}}

	parsed, err := Parse(req.Encode())
	require.NoError(t, err)
	require.Len(t, parsed.Payments, 1)
	assert.Equal(t, req.Payments[0].Address, parsed.Payments[0].Address)
	assert.InDelta(t, amount, *parsed.Payments[0].Amount, 1e-12)
	assert.Equal(t, memo, *parsed.Payments[0].Memo)
}

func TestEncodeMultiRoundTrip(t *testing.T) {
	one, two := 0.5, 0.25
	req := &PaymentRequest{Payments: []Payment{
		{Address: "tmAddrOne", Amount: &one},
		{Address: "tmAddrTwo", Amount: &two},
	}}

	parsed, err := Parse(req.Encode())
	require.NoError(t, err)
	require.Len(t, parsed.Payments, 2)
	assert.Equal(t, "tmAddrOne", parsed.Payments[0].Address)
	assert.Equal(t, "tmAddrTwo", parsed.Payments[1].Address)
}

func TestFormatAmountTrimsZeros(t *testing.T) {
	half := 0.5
	req := &PaymentRequest{Payments: []Payment{{Address: "tmAddr", Amount: &half}}}
	assert.Equal(t, "zcash:tmAddr?amount=0.5", req.Encode())
}
