package crypto

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *PrivateKey {
	t.Helper()
	seed := sha256.Sum256([]byte("transparent input signing key"))
	key, err := PrivateKeyFromBytes(seed[:])
	require.NoError(t, err)
	return key
}

func TestSignVerifyDER(t *testing.T) {
	key := testKey(t)
	hash := sha256.Sum256([]byte("sighash"))

	sig, err := key.Sign(hash)
	require.NoError(t, err)
	assert.True(t, VerifySignature(key.PublicKey(), hash, sig))

	other := sha256.Sum256([]byte("different sighash"))
	assert.False(t, VerifySignature(key.PublicKey(), other, sig))
}

func TestSignVerifyCompact(t *testing.T) {
	key := testKey(t)
	hash := sha256.Sum256([]byte("sighash"))

	sig := key.SignCompact(hash)
	assert.True(t, VerifyCompactSignature(key.PublicKey(), hash, sig))

	// Wrong key fails.
	otherSeed := sha256.Sum256([]byte("another key"))
	otherKey, err := PrivateKeyFromBytes(otherSeed[:])
	require.NoError(t, err)
	assert.False(t, VerifyCompactSignature(otherKey.PublicKey(), hash, sig))

	// Corrupted signature fails.
	sig[10] ^= 0xFF
	assert.False(t, VerifyCompactSignature(key.PublicKey(), hash, sig))
}

func TestCompactSignatureToDER(t *testing.T) {
	key := testKey(t)
	hash := sha256.Sum256([]byte("sighash"))

	compact := key.SignCompact(hash)
	der, err := CompactSignatureToDER(compact)
	require.NoError(t, err)
	assert.True(t, VerifySignature(key.PublicKey(), hash, der))
}

func TestCompactSignatureRejectsZeroScalars(t *testing.T) {
	var zero [64]byte
	_, err := CompactSignatureToDER(zero)
	assert.Error(t, err)

	key := testKey(t)
	hash := sha256.Sum256([]byte("sighash"))
	assert.False(t, VerifyCompactSignature(key.PublicKey(), hash, zero))
}

func TestPublicKeyRoundTrip(t *testing.T) {
	key := testKey(t)
	compressed := key.PublicKey().SerializeCompressed()
	assert.Contains(t, []byte{0x02, 0x03}, compressed[0])

	parsed, err := ParsePublicKey(compressed[:])
	require.NoError(t, err)
	assert.Equal(t, compressed, parsed.SerializeCompressed())

	_, err = ParsePublicKey(compressed[:32])
	assert.Error(t, err)
}

func TestPrivateKeyFromBytesLength(t *testing.T) {
	_, err := PrivateKeyFromBytes(make([]byte, 31))
	assert.Error(t, err)
}

func TestWIFRoundTrip(t *testing.T) {
	key := testKey(t)

	for _, tc := range []struct {
		compressed bool
		testnet    bool
	}{
		{true, false}, {false, false}, {true, true}, {false, true},
	} {
		wif, err := EncodeWIF(key.Bytes(), tc.compressed, tc.testnet)
		require.NoError(t, err)

		decoded, err := ParsePrivateKeyWIF(wif)
		require.NoError(t, err)
		assert.Equal(t, key.Bytes(), decoded.Bytes())
	}
}

func TestWIFRejectsCorruption(t *testing.T) {
	key := testKey(t)
	wif, err := EncodeWIF(key.Bytes(), true, false)
	require.NoError(t, err)

	corrupted := []byte(wif)
	if corrupted[4] != 'z' {
		corrupted[4] = 'z'
	} else {
		corrupted[4] = 'x'
	}
	_, err = ParsePrivateKeyWIF(string(corrupted))
	assert.Error(t, err)
}
