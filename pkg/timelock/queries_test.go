package timelock

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/timelock-wallet-client/pkg/lockcache"
	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/system"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

func TestGetRawAccount(t *testing.T) {
	env := setup(t)

	lock := env.putLock(t, &timelockwallet.TimeLockAccount{
		Owner:           env.owner.PublicKey(),
		UnlockTimestamp: testUnlockTimestamp,
		Amount:          10,
	})

	data, found, err := env.client.GetRawAccount(context.Background(), lock)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, data, timelockwallet.TimeLockAccountSize)

	data, found, err = env.client.GetRawAccount(context.Background(), generateKey(t))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestGetLock(t *testing.T) {
	env := setup(t)
	owner := env.owner.PublicKey()

	expected := &timelockwallet.TimeLockAccount{
		Owner:           owner,
		UnlockTimestamp: testUnlockTimestamp,
		AssetType:       timelockwallet.AssetTypeSol,
		Bump:            254,
		Amount:          1_000_000,
	}
	lock := env.putLock(t, expected)

	actual, err := env.client.GetLock(context.Background(), lock)
	require.NoError(t, err)
	assert.Equal(t, expected.Owner, actual.Owner)
	assert.Equal(t, expected.UnlockTimestamp, actual.UnlockTimestamp)
	assert.Equal(t, expected.Amount, actual.Amount)
	assert.Equal(t, expected.Bump, actual.Bump)

	// Closed or never created.
	_, err = env.client.GetLock(context.Background(), generateKey(t))
	assert.Equal(t, ErrLockNotFound, err)

	// Closed, then funded again.
	refunded := generateKey(t)
	env.rpc.accounts[string(refunded)] = solana.AccountInfo{Owner: system.ProgramKey, Lamports: 5000}
	_, err = env.client.GetLock(context.Background(), refunded)
	assert.Equal(t, ErrLockNotFound, err)

	// Owned by another program.
	other := generateKey(t)
	env.rpc.accounts[string(other)] = solana.AccountInfo{Owner: generateKey(t), Data: expected.Marshal()}
	_, err = env.client.GetLock(context.Background(), other)
	assert.Equal(t, ErrNotLockAccount, err)

	// Right program, wrong layout.
	garbage := generateKey(t)
	env.rpc.accounts[string(garbage)] = solana.AccountInfo{Owner: env.client.ProgramID(), Data: make([]byte, 12)}
	_, err = env.client.GetLock(context.Background(), garbage)
	assert.Error(t, err)
}

func TestGetWalletInfo(t *testing.T) {
	env := setup(t)
	owner := env.owner.PublicKey()

	lock := env.putLock(t, &timelockwallet.TimeLockAccount{
		Owner:           owner,
		UnlockTimestamp: testUnlockTimestamp,
		Amount:          500,
	})

	info, err := env.client.GetWalletInfo(context.Background(), lock)
	require.NoError(t, err)
	assert.Equal(t, lock, info.Address)
	assert.False(t, info.IsUnlocked)
	assert.Equal(t, time.Duration(testUnlockTimestamp-testNow.Unix())*time.Second, info.TimeRemaining)
	assert.EqualValues(t, 2_000_500, info.Lamports)

	env.client.conf.clock = func() time.Time { return time.Unix(testUnlockTimestamp, 0) }
	info, err = env.client.GetWalletInfo(context.Background(), lock)
	require.NoError(t, err)
	assert.True(t, info.IsUnlocked)
	assert.Zero(t, info.TimeRemaining)
}

func TestGetWalletInfo_IgnoresCache(t *testing.T) {
	env := setup(t)
	owner := env.owner.PublicKey()

	lock := env.putLock(t, &timelockwallet.TimeLockAccount{
		Owner:           owner,
		UnlockTimestamp: testUnlockTimestamp,
		Amount:          500,
	})

	cache, err := lockcache.Open(context.Background(), filepath.Join(t.TempDir(), "locks.db"))
	require.NoError(t, err)
	defer cache.Close()

	// A stale entry claiming the lock is unlocked and holds more funds.
	require.NoError(t, cache.Save(context.Background(), &lockcache.Record{
		Address:         lock,
		Owner:           owner,
		Amount:          999_999,
		UnlockTimestamp: testNow.Unix() - 1,
		IsUnlocked:      true,
	}))

	info, err := env.client.GetWalletInfo(context.Background(), lock)
	require.NoError(t, err)
	assert.False(t, info.IsUnlocked)
	assert.EqualValues(t, 500, info.Account.Amount)

	_, err = cache.Clear(context.Background())
	require.NoError(t, err)

	info, err = env.client.GetWalletInfo(context.Background(), lock)
	require.NoError(t, err)
	assert.EqualValues(t, 500, info.Account.Amount)
}

func TestListLocks(t *testing.T) {
	env := setup(t)
	owner := env.owner.PublicKey()

	var keyed []solana.KeyedAccount
	for _, ts := range []int64{testUnlockTimestamp + 20, testUnlockTimestamp, testUnlockTimestamp + 10} {
		account := &timelockwallet.TimeLockAccount{Owner: owner, UnlockTimestamp: ts, Amount: uint64(ts)}
		address, _, err := env.client.DeriveLockAddress(owner, ts)
		require.NoError(t, err)

		keyed = append(keyed, solana.KeyedAccount{
			PublicKey: address,
			Account:   solana.AccountInfo{Owner: env.client.ProgramID(), Data: account.Marshal()},
		})
	}
	keyed = append(keyed, solana.KeyedAccount{
		PublicKey: generateKey(t),
		Account:   solana.AccountInfo{Data: make([]byte, timelockwallet.TimeLockAccountSize)},
	})

	// Right discriminator, but an asset type the program never writes.
	corrupt := (&timelockwallet.TimeLockAccount{Owner: owner, UnlockTimestamp: testUnlockTimestamp}).Marshal()
	corrupt[48] = 2
	require.True(t, timelockwallet.IsTimeLockAccount(corrupt))
	keyed = append(keyed, solana.KeyedAccount{
		PublicKey: generateKey(t),
		Account:   solana.AccountInfo{Owner: env.client.ProgramID(), Data: corrupt},
	})
	env.rpc.programAccounts = keyed

	entries, err := env.client.ListLocks(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, expected := range []int64{testUnlockTimestamp, testUnlockTimestamp + 10, testUnlockTimestamp + 20} {
		assert.Equal(t, expected, entries[i].Account.UnlockTimestamp)
	}

	require.Len(t, env.rpc.filters, 2)
	assert.Equal(t, solana.FilterDataSize(timelockwallet.TimeLockAccountSize), env.rpc.filters[0])
	assert.Equal(t, solana.FilterMemcmp(timelockwallet.OwnerOffset, owner), env.rpc.filters[1])

	_, err = env.client.ListLocks(context.Background(), ed25519.PublicKey{1})
	requireValidationError(t, err, "owner")
}

func TestBalanceAndAirdrop(t *testing.T) {
	env := setup(t)
	owner := env.owner.PublicKey()
	env.rpc.balances[string(owner)] = 42

	balance, err := env.client.GetBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.EqualValues(t, 42, balance)

	sig, err := env.client.RequestAirdrop(context.Background(), owner, LamportsPerSol)
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{9}, sig)
	assert.Equal(t, []uint64{LamportsPerSol}, env.rpc.airdrops)

	_, err = env.client.RequestAirdrop(context.Background(), owner, 0)
	requireValidationError(t, err, "amount")

	for _, cluster := range []solana.Cluster{solana.Mainnet, ""} {
		env := setup(t, func(cfg *Config) {
			cfg.Cluster = cluster
		})
		_, err := env.client.RequestAirdrop(context.Background(), owner, LamportsPerSol)
		assert.Equal(t, ErrAirdropUnsupported, err)
		assert.Zero(t, env.rpc.callCount("requestAirdrop"))
	}
}
