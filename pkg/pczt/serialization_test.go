package pczt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkRoundTrip serializes, parses, and serializes again; the two byte
// strings must be identical.
func checkRoundTrip(t *testing.T, p *PCZT) []byte {
	t.Helper()

	first, err := Serialize(p)
	require.NoError(t, err, "first serialization")

	parsed, err := Parse(first)
	require.NoError(t, err, "parse")

	second, err := Serialize(parsed)
	require.NoError(t, err, "second serialization")

	require.True(t, bytes.Equal(first, second), "round-trip bytes differ")
	return first
}

func emptyPCZT() *PCZT {
	return &PCZT{
		Global: Global{
			TxVersion:         V5TxVersion,
			VersionGroupID:    V5VersionGroupID,
			ConsensusBranchID: 0xC2D6D0B4,
			ExpiryHeight:      2_500_000,
			CoinType:          MainNetCoinType,
			TxModifiable:      0xFF,
			Proprietary:       make(map[string][]byte),
		},
		Orchard: OrchardBundle{
			Flags: OrchardFlagsEnabled,
		},
	}
}

func TestRoundTripEmpty(t *testing.T) {
	data := checkRoundTrip(t, emptyPCZT())
	assert.True(t, bytes.HasPrefix(data, []byte(MagicBytes)))
}

func TestRoundTripWithTransparentInput(t *testing.T) {
	p := emptyPCZT()
	p.Transparent.Inputs = []TransparentInput{
		{
			PrevoutTxID:  [32]byte{1, 2, 3},
			PrevoutIndex: 1,
			Value:        100_000_000,
			ScriptPubKey: []byte{0x76, 0xA9, 0x14},
			SighashType:  SighashAll,
		},
	}
	checkRoundTrip(t, p)
}

func TestRoundTripWithSignaturesAndDerivations(t *testing.T) {
	pubkeyA := [33]byte{2, 3, 4}
	pubkeyB := [33]byte{3, 5, 7}

	p := emptyPCZT()
	p.Transparent.Inputs = []TransparentInput{
		{
			PrevoutTxID:  [32]byte{9},
			Value:        50_000,
			ScriptPubKey: []byte{0x76, 0xA9, 0x14},
			SighashType:  SighashAll,
			PartialSignatures: map[[33]byte][]byte{
				pubkeyA: {0x30, 0x44, 0x02, 0x20},
				pubkeyB: {0x30, 0x45, 0x02, 0x21},
			},
			Bip32Derivation: map[[33]byte]Zip32Derivation{
				pubkeyA: {SeedFingerprint: [32]byte{1}, DerivationPath: []uint32{0x8000002C, 0x80000085, 0}},
				pubkeyB: {SeedFingerprint: [32]byte{2}},
			},
		},
	}
	checkRoundTrip(t, p)
}

func TestSerializeDeterministicMaps(t *testing.T) {
	// Map iteration order must not leak into the encoding.
	build := func() *PCZT {
		p := emptyPCZT()
		p.Global.Proprietary = map[string][]byte{
			"zeta": {1}, "alpha": {2}, "mid": {3},
		}
		p.Transparent.Inputs = []TransparentInput{
			{
				Value:        1,
				ScriptPubKey: []byte{0x51},
				SighashType:  SighashAll,
				PartialSignatures: map[[33]byte][]byte{
					{9}: {1}, {1}: {2}, {5}: {3},
				},
				Sha256Preimages: map[[32]byte][]byte{
					{7}: {1}, {2}: {2},
				},
			},
		}
		return p
	}

	a, err := Serialize(build())
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		b, err := Serialize(build())
		require.NoError(t, err)
		require.True(t, bytes.Equal(a, b), "serialization is not deterministic")
	}
}

func TestRoundTripWithOrchardAction(t *testing.T) {
	rcv := [32]byte{5, 6, 7}
	value := uint64(100_000)
	rho := [32]byte{8, 9, 10}
	rseed := [32]byte{11, 12, 13}
	alpha := [32]byte{14, 15, 16}
	dummySk := [32]byte{17, 18, 19}
	recipient := [43]byte{20, 21, 22}

	p := emptyPCZT()
	p.Orchard = OrchardBundle{
		Actions: []OrchardAction{
			{
				CvNet: [32]byte{1, 2, 3},
				Spend: OrchardSpend{
					Nullifier: [32]byte{4, 5, 6},
					Rk:        [32]byte{7, 8, 9},
					Value:     &value,
					Rho:       &rho,
					Alpha:     &alpha,
					DummySk:   &dummySk,
				},
				Output: OrchardOutput{
					Cmx:           [32]byte{10, 11, 12},
					EphemeralKey:  [32]byte{13, 14, 15},
					EncCiphertext: make([]byte, 580),
					OutCiphertext: make([]byte, 80),
					Recipient:     &recipient,
					Value:         &value,
					Rseed:         &rseed,
				},
				Rcv: &rcv,
			},
		},
		Flags:    OrchardFlagsEnabled,
		ValueSum: ValueBalance{Magnitude: 100_000, IsNegative: false},
	}
	checkRoundTrip(t, p)
}

func TestRoundTripWithProofAndBindingSig(t *testing.T) {
	bsk := [32]byte{1}
	bindingSig := [64]byte{2}

	p := emptyPCZT()
	p.Orchard.ZkProof = bytes.Repeat([]byte{0xAB}, 2720)
	p.Orchard.Bsk = &bsk
	p.Orchard.BindingSig = &bindingSig
	checkRoundTrip(t, p)
}

func TestParseRejectsBadMagic(t *testing.T) {
	data, err := Serialize(emptyPCZT())
	require.NoError(t, err)

	data[0] = 'X'
	_, err = Parse(data)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseRejectsBadVersion(t *testing.T) {
	data, err := Serialize(emptyPCZT())
	require.NoError(t, err)

	data[4] = 0x02
	_, err = Parse(data)
	assert.Error(t, err)
}

func TestParseRejectsShortData(t *testing.T) {
	_, err := Parse([]byte("PCZ"))
	assert.Error(t, err)

	_, err = Parse([]byte("PCZT\x01\x00\x00\x00"))
	assert.Error(t, err)
}

func TestParsedFieldsMatch(t *testing.T) {
	original := emptyPCZT()
	original.Global.ExpiryHeight = 2_100_000

	data, err := Serialize(original)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, original.Global.TxVersion, parsed.Global.TxVersion)
	assert.Equal(t, original.Global.VersionGroupID, parsed.Global.VersionGroupID)
	assert.Equal(t, original.Global.ConsensusBranchID, parsed.Global.ConsensusBranchID)
	assert.Equal(t, original.Global.ExpiryHeight, parsed.Global.ExpiryHeight)
	assert.Equal(t, original.Global.CoinType, parsed.Global.CoinType)
	assert.Equal(t, original.Global.TxModifiable, parsed.Global.TxModifiable)
}
