package timelockwallet

import (
	"crypto/ed25519"
	"testing"

	sologo "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

func TestGetTimeLockAddress(t *testing.T) {
	owner := make(ed25519.PublicKey, ed25519.PublicKeySize)

	for _, tc := range []struct {
		unlockTimestamp int64
		expected        string
		bump            uint8
	}{
		{1700000000, "33m4vf4RL6yqRiudpgKr7j7dqq8jPx7DL3xFFuUkERLB", 254},
		{1700000001, "EsvQmnsqmEops2UEWeWX9nHoa5TDj9EJU55tjUyLy6ro", 255},
	} {
		address, bump, err := GetTimeLockAddress(&GetTimeLockAddressArgs{
			Owner:           owner,
			UnlockTimestamp: tc.unlockTimestamp,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(address))
		assert.Equal(t, tc.bump, bump)
		assert.False(t, solana.IsOnCurve(address))

		// Repeated derivation is stable.
		again, againBump, err := GetTimeLockAddress(&GetTimeLockAddressArgs{
			Owner:           owner,
			UnlockTimestamp: tc.unlockTimestamp,
			Program:         PROGRAM_ID,
		})
		require.NoError(t, err)
		assert.Equal(t, address, again)
		assert.Equal(t, bump, againBump)
	}
}

func TestGetTimeLockAddress_Sensitivity(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherOwner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherProgram, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	base, _, err := GetTimeLockAddress(&GetTimeLockAddressArgs{Owner: owner, UnlockTimestamp: 1700000000})
	require.NoError(t, err)

	for _, args := range []*GetTimeLockAddressArgs{
		{Owner: owner, UnlockTimestamp: 1700000001},
		{Owner: owner, UnlockTimestamp: 1699999999},
		{Owner: otherOwner, UnlockTimestamp: 1700000000},
		{Owner: owner, UnlockTimestamp: 1700000000, Program: otherProgram},
	} {
		address, _, err := GetTimeLockAddress(args)
		require.NoError(t, err)
		assert.NotEqual(t, base, address)
	}
}

func TestGetTimeLockAddress_CrossImpl(t *testing.T) {
	for i := 0; i < 32; i++ {
		owner, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		unlockTimestamp := int64(1700000000 + i*3600)

		address, bump, err := GetTimeLockAddress(&GetTimeLockAddressArgs{
			Owner:           owner,
			UnlockTimestamp: unlockTimestamp,
		})
		require.NoError(t, err)

		ts := make([]byte, 8)
		var offset int
		putInt64(ts, unlockTimestamp, &offset)

		expected, expectedBump, err := sologo.FindProgramAddress(
			[][]byte{[]byte("time_lock"), owner, ts},
			sologo.PublicKeyFromBytes(PROGRAM_ID),
		)
		require.NoError(t, err)
		assert.Equal(t, expected[:], []byte(address))
		assert.Equal(t, expectedBump, bump)
	}
}

func TestGetTokenVaultAddress(t *testing.T) {
	address, err := GetTokenVaultAddress(
		mustBase58Decode("33m4vf4RL6yqRiudpgKr7j7dqq8jPx7DL3xFFuUkERLB"),
		mustBase58Decode("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
	)
	require.NoError(t, err)
	assert.Equal(t, "89cjDc5ocb9K1VJ7Q5ZCw8mf9BSmS2iRspSW1c9M3Lx3", base58.Encode(address))
}
