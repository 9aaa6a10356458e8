package solana

import (
	"crypto/ed25519"
	"testing"

	sologo "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var arr [32]byte
	copy(arr[:], pub)

	inputs := []interface{}{
		pub,
		[]byte(pub),
		arr,
		&arr,
		base58.Encode(pub),
		"  " + base58.Encode(pub) + "\n",
		sologo.PublicKeyFromBytes(pub),
	}

	for _, in := range inputs {
		actual, err := NormalizePublicKey(in)
		require.NoError(t, err, "%T", in)
		assert.Equal(t, pub, actual, "%T", in)
	}
}

func TestNormalizePublicKey_Copies(t *testing.T) {
	raw := make([]byte, 32)
	actual, err := NormalizePublicKey(raw)
	require.NoError(t, err)

	raw[0] = 1
	assert.EqualValues(t, 0, actual[0])
}

func TestNormalizePublicKey_Invalid(t *testing.T) {
	var nilArr *[32]byte

	for _, in := range []interface{}{
		nil,
		nilArr,
		"",
		"not-base58-0OIl",
		base58.Encode(make([]byte, 31)),
		make([]byte, 33),
		42,
	} {
		_, err := NormalizePublicKey(in)
		assert.ErrorIs(t, err, ErrInvalidPublicKey, "%v", in)
	}
}

func TestMustParsePublicKey(t *testing.T) {
	assert.NotPanics(t, func() {
		MustParsePublicKey("11111111111111111111111111111111")
	})
	assert.Panics(t, func() {
		MustParsePublicKey("1111")
	})
}
