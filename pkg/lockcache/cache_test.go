package lockcache

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func setup(t *testing.T) (*Cache, *testClock) {
	clock := &testClock{now: time.Unix(1700000000, 0)}

	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "cache", "locks.db"), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	return c, clock
}

func newRecord(t *testing.T, unlockTimestamp int64) *Record {
	address, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return &Record{
		Address:         address,
		Owner:           owner,
		Amount:          1_000_000,
		UnlockTimestamp: unlockTimestamp,
		AssetType:       timelockwallet.AssetTypeSol,
	}
}

func TestCache_SaveGet(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	record := newRecord(t, clock.now.Unix()+3600)
	require.NoError(t, c.Save(ctx, record))

	actual, err := c.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.Equal(t, record.Address, actual.Address)
	assert.Equal(t, record.Owner, actual.Owner)
	assert.Equal(t, record.Amount, actual.Amount)
	assert.Equal(t, record.UnlockTimestamp, actual.UnlockTimestamp)
	assert.Equal(t, timelockwallet.AssetTypeSol, actual.AssetType)
	assert.Nil(t, actual.TokenMint)
	assert.True(t, clock.now.Equal(actual.CreatedAt))
	assert.False(t, actual.IsUnlocked)

	// The caller's record isn't modified.
	assert.True(t, record.CreatedAt.IsZero())

	_, err = c.Get(ctx, newRecord(t, 0).Address)
	assert.Equal(t, ErrNotFound, err)
}

func TestCache_SaveKeepsCreatedAt(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	record := newRecord(t, clock.now.Unix()+60)
	require.NoError(t, c.Save(ctx, record))
	created := clock.now

	clock.now = clock.now.Add(2 * time.Minute)
	record.Amount = 5
	require.NoError(t, c.Save(ctx, record))

	actual, err := c.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 5, actual.Amount)
	assert.True(t, created.Equal(actual.CreatedAt))
	assert.True(t, actual.IsUnlocked)
}

func TestCache_TokenRecord(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	mint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	record := newRecord(t, clock.now.Unix()+60)
	record.AssetType = timelockwallet.AssetTypeToken
	record.TokenMint = mint
	require.NoError(t, c.Save(ctx, record))

	actual, err := c.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.Equal(t, timelockwallet.AssetTypeToken, actual.AssetType)
	assert.Equal(t, mint, actual.TokenMint)
}

func TestCache_StoredFormat(t *testing.T) {
	c, clock := setup(t)

	record := newRecord(t, clock.now.Unix()+60)
	require.NoError(t, c.Save(context.Background(), record))

	var raw []byte
	require.NoError(t, c.db.View(func(tx *bbolt.Tx) error {
		raw = append(raw, tx.Bucket([]byte("time_locks")).Get([]byte("time_lock_"+base58.Encode(record.Address)))...)
		return nil
	}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, base58.Encode(record.Address), decoded["address"])
	assert.Equal(t, base58.Encode(record.Owner), decoded["owner"])
	assert.EqualValues(t, record.UnlockTimestamp, decoded["unlockTimestamp"])
	assert.EqualValues(t, clock.now.UnixMilli(), decoded["createdAt"])
	assert.Equal(t, "sol", decoded["assetType"])
	assert.NotContains(t, decoded, "tokenMint")
}

func TestCache_List(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	var saved []*Record
	for i := 0; i < 5; i++ {
		r := newRecord(t, clock.now.Unix()+int64(i*10))
		require.NoError(t, c.Save(ctx, r))
		saved = append(saved, r)
		clock.now = clock.now.Add(time.Second)
	}

	records, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 5)

	// Newest first.
	for i, r := range records {
		assert.Equal(t, saved[len(saved)-1-i].Address, r.Address)
	}

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCache_CorruptEntries(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	good := newRecord(t, clock.now.Unix()+60)
	require.NoError(t, c.Save(ctx, good))

	corrupt := newRecord(t, clock.now.Unix()+60)
	mismatched := newRecord(t, clock.now.Unix()+60)
	mismatchedData, err := json.Marshal(good)
	require.NoError(t, err)

	require.NoError(t, c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		if err := b.Put(recordKey(corrupt.Address), []byte("{not json")); err != nil {
			return err
		}
		if err := b.Put([]byte("time_lock_notbase58!"), []byte("{}")); err != nil {
			return err
		}
		return b.Put(recordKey(mismatched.Address), mismatchedData)
	}))

	_, err = c.Get(ctx, corrupt.Address)
	assert.Equal(t, ErrNotFound, err)

	// Removed on read.
	require.NoError(t, c.db.View(func(tx *bbolt.Tx) error {
		assert.Nil(t, tx.Bucket(bucketLocks).Get(recordKey(corrupt.Address)))
		return nil
	}))

	records, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, good.Address, records[0].Address)

	require.NoError(t, c.db.View(func(tx *bbolt.Tx) error {
		assert.Equal(t, 1, tx.Bucket(bucketLocks).Stats().KeyN)
		return nil
	}))
}

func TestCache_RemoveClear(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	a := newRecord(t, clock.now.Unix()+60)
	b := newRecord(t, clock.now.Unix()+60)
	require.NoError(t, c.Save(ctx, a))
	require.NoError(t, c.Save(ctx, b))

	require.NoError(t, c.Remove(ctx, a.Address))
	require.NoError(t, c.Remove(ctx, a.Address))

	_, err := c.Get(ctx, a.Address)
	assert.Equal(t, ErrNotFound, err)
	_, err = c.Get(ctx, b.Address)
	assert.NoError(t, err)

	cleared, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Still usable after clearing.
	require.NoError(t, c.Save(ctx, a))
	count, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCache_Unlocked(t *testing.T) {
	c, clock := setup(t)
	ctx := context.Background()

	soon := newRecord(t, clock.now.Unix()+10)
	later := newRecord(t, clock.now.Unix()+1000)
	past := newRecord(t, clock.now.Unix()-10)
	for _, r := range []*Record{soon, later, past} {
		require.NoError(t, c.Save(ctx, r))
	}

	unlocked, err := c.UnlockedCount(ctx, clock.now)
	require.NoError(t, err)
	assert.Equal(t, 1, unlocked)

	// Nothing new until time passes.
	newlyUnlocked, err := c.MarkUnlocked(ctx, clock.now)
	require.NoError(t, err)
	assert.Empty(t, newlyUnlocked)

	at := clock.now.Add(10 * time.Second)
	newlyUnlocked, err = c.MarkUnlocked(ctx, at)
	require.NoError(t, err)
	require.Len(t, newlyUnlocked, 1)
	assert.Equal(t, soon.Address, newlyUnlocked[0].Address)

	actual, err := c.Get(ctx, soon.Address)
	require.NoError(t, err)
	assert.True(t, actual.IsUnlocked)

	newlyUnlocked, err = c.MarkUnlocked(ctx, at)
	require.NoError(t, err)
	assert.Empty(t, newlyUnlocked)

	unlocked, err = c.UnlockedCount(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 2, unlocked)
}

func TestCache_ContextCancelled(t *testing.T) {
	c, clock := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, context.Canceled, c.Save(ctx, newRecord(t, clock.now.Unix())))
	_, err := c.List(ctx)
	assert.Equal(t, context.Canceled, err)

	_, err = Open(ctx, filepath.Join(t.TempDir(), "locks.db"))
	assert.Equal(t, context.Canceled, err)
}

func TestCache_InvalidAddress(t *testing.T) {
	c, _ := setup(t)

	err := c.Save(context.Background(), &Record{Address: make([]byte, 5)})
	assert.Error(t, err)
}

func TestCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks.db")

	c, err := Open(context.Background(), path)
	require.NoError(t, err)
	record := newRecord(t, time.Now().Unix()+60)
	require.NoError(t, c.Save(context.Background(), record))
	require.NoError(t, c.Close())

	c, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()

	actual, err := c.Get(context.Background(), record.Address)
	require.NoError(t, err)
	assert.Equal(t, record.Amount, actual.Amount)
}
