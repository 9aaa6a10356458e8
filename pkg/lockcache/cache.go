// Package lockcache is a local, advisory store of locks the user has created,
// kept in a bbolt file.
package lockcache

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

const keyPrefix = "time_lock_"

var (
	bucketLocks = []byte("time_locks")

	ErrNotFound = errors.New("lock not found in cache")
)

// Cache is safe for concurrent use. bbolt serialises writers and holds an
// exclusive file lock, so only one process may have the cache open.
type Cache struct {
	log *logrus.Entry
	db  *bbolt.DB
	now func() time.Time
}

type Option func(*Cache)

// WithClock overrides the clock used for CreatedAt and unlock checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Open opens, or creates, the cache at path.
func Open(ctx context.Context, path string, opts ...Option) (*Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrap(err, "failed to create cache directory")
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache at %s", path)
	}

	c := &Cache{
		log: logrus.StandardLogger().WithField("type", "lockcache/bolt"),
		db:  db,
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLocks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize cache bucket")
	}

	return c, nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func recordKey(address ed25519.PublicKey) []byte {
	return []byte(keyPrefix + base58.Encode(address))
}

// addressFromKey returns the address a key is stored under, or nil if the
// key is malformed.
func addressFromKey(k []byte) ed25519.PublicKey {
	s := string(k)
	if !strings.HasPrefix(s, keyPrefix) {
		return nil
	}

	address, err := solana.ParsePublicKey(strings.TrimPrefix(s, keyPrefix))
	if err != nil {
		return nil
	}
	return address
}

// Save stores the record. A zero CreatedAt keeps the existing entry's value,
// or is set to now for a new entry.
func (c *Cache) Save(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	address, err := solana.NormalizePublicKey(record.Address)
	if err != nil {
		return err
	}

	now := c.now()

	toStore := record.Clone()
	toStore.Address = address
	toStore.IsUnlocked = toStore.UnlockedAt(now)

	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocks)
		key := recordKey(address)

		if toStore.CreatedAt.IsZero() {
			toStore.CreatedAt = now

			var existing Record
			if raw := bucket.Get(key); raw != nil && json.Unmarshal(raw, &existing) == nil {
				toStore.CreatedAt = existing.CreatedAt
			}
		}

		data, err := json.Marshal(toStore)
		if err != nil {
			return errors.Wrap(err, "failed to marshal record")
		}

		return bucket.Put(key, data)
	})
}

// Get returns the cached record for address. Unreadable entries are removed
// and reported as ErrNotFound.
func (c *Cache) Get(ctx context.Context, address ed25519.PublicKey) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := recordKey(address)

	var raw []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketLocks).Get(key); v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	record, err := c.decode(key, raw)
	if err != nil {
		c.discard(key, err)
		return nil, ErrNotFound
	}

	return record, nil
}

// List returns every cached record, newest first. Unreadable entries are
// removed and skipped.
func (c *Cache) List(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []*Record
	var corrupt [][]byte

	err := c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocks)

		err := bucket.ForEach(func(k, v []byte) error {
			record, err := c.decode(k, v)
			if err != nil {
				c.log.WithError(err).WithField("key", string(k)).Warn("discarding unreadable cache entry")
				corrupt = append(corrupt, append([]byte{}, k...))
				return nil
			}

			records = append(records, record)
			return nil
		})
		if err != nil {
			return err
		}

		// Deleting while iterating with ForEach is not allowed.
		for _, k := range corrupt {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// Remove deletes the entry for address. Removing a missing entry is not an
// error.
func (c *Cache) Remove(ctx context.Context, address ed25519.PublicKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLocks).Delete(recordKey(address))
	})
}

// Clear removes every entry and returns how many there were.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int
	err := c.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketLocks).ForEach(func(_, _ []byte) error {
			count++
			return nil
		})
		if err != nil {
			return err
		}

		if err := tx.DeleteBucket(bucketLocks); err != nil {
			return err
		}
		_, err = tx.CreateBucket(bucketLocks)
		return err
	})
	if err != nil {
		return 0, err
	}

	c.log.WithField("count", count).Debug("cleared cache")
	return count, nil
}

// Count returns the number of readable entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	records, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// UnlockedCount returns how many entries are unlocked at now.
func (c *Cache) UnlockedCount(ctx context.Context, now time.Time) (int, error) {
	records, err := c.List(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	for _, r := range records {
		if r.UnlockedAt(now) {
			count++
		}
	}
	return count, nil
}

// MarkUnlocked flags entries whose unlock time has passed at now and returns
// the ones that were not already flagged.
func (c *Cache) MarkUnlocked(ctx context.Context, now time.Time) ([]*Record, error) {
	records, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	var newlyUnlocked []*Record
	for _, r := range records {
		if r.IsUnlocked || !r.UnlockedAt(now) {
			continue
		}
		newlyUnlocked = append(newlyUnlocked, r)
	}
	if len(newlyUnlocked) == 0 {
		return nil, nil
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocks)

		for _, r := range newlyUnlocked {
			r.IsUnlocked = true

			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := bucket.Put(recordKey(r.Address), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return newlyUnlocked, nil
}

func (c *Cache) decode(key, raw []byte) (*Record, error) {
	address := addressFromKey(key)
	if address == nil {
		return nil, errors.Errorf("malformed key %q", string(key))
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(err, "malformed record")
	}

	if !bytes.Equal(record.Address, address) {
		return nil, errors.New("record address does not match its key")
	}

	return &record, nil
}

func (c *Cache) discard(key []byte, reason error) {
	c.log.WithError(reason).WithField("key", string(key)).Warn("discarding unreadable cache entry")

	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLocks).Delete(key)
	})
	if err != nil {
		c.log.WithError(err).Warn("failure removing unreadable cache entry")
	}
}
