package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/zcash-t2z/pkg/address"
	"github.com/suffix-labs/zcash-t2z/pkg/consensus"
)

const proposalTemplate = `
network: main
target_height: 2500000
change_address: ""
inputs:
  - txid: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
    vout: 1
    value: 100000
    script_pubkey: 76a914000102030405060708090a0b0c0d0e0f1011121388ac
    pubkey: "020102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
payments:
  - address: PAYMENT_ADDRESS
    amount: 50000
    memo: ""
`

func sampleProposal(t *testing.T) string {
	t.Helper()
	var hash [20]byte
	hash[0] = 0x42
	addr := address.EncodeP2PKH(hash, consensus.MainNetwork)
	return strings.Replace(proposalTemplate, "PAYMENT_ADDRESS", addr, 1)
}

func TestProposalFileBuild(t *testing.T) {
	var pf proposalFile
	require.NoError(t, yaml.Unmarshal([]byte(sampleProposal(t)), &pf))

	req, utxos, err := pf.build()
	require.NoError(t, err)

	assert.Equal(t, consensus.MainNetwork, req.Network())
	assert.Equal(t, uint32(2_500_000), req.TargetHeight())
	require.Len(t, req.Payments(), 1)
	assert.Equal(t, uint64(50_000), req.Payments()[0].Amount)

	require.Len(t, utxos, 1)
	assert.Equal(t, uint32(1), utxos[0].Vout)
	assert.Equal(t, uint64(100_000), utxos[0].Value)
	assert.Equal(t, byte(0xAA), utxos[0].TxID[0])
	assert.Equal(t, byte(0x02), utxos[0].Pubkey[0])
}

func TestProposalFileRejectsBadTxid(t *testing.T) {
	bad := strings.Replace(sampleProposal(t),
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "zz", 1)
	var pf proposalFile
	require.NoError(t, yaml.Unmarshal([]byte(bad), &pf))

	_, _, err := pf.build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "txid")
}

func TestProposalFileRejectsUnknownNetwork(t *testing.T) {
	bad := strings.Replace(sampleProposal(t), "network: main", "network: regtest", 1)
	var pf proposalFile
	require.NoError(t, yaml.Unmarshal([]byte(bad), &pf))

	_, _, err := pf.build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network")
}
