package timelock

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sort"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/system"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

// WalletInfo is a decoded lock along with its state relative to the
// client's clock.
type WalletInfo struct {
	Address       ed25519.PublicKey
	Account       *timelockwallet.TimeLockAccount
	Lamports      uint64
	IsUnlocked    bool
	TimeRemaining time.Duration
}

// LockEntry is a lock returned from an owner scan.
type LockEntry struct {
	Address ed25519.PublicKey
	Account *timelockwallet.TimeLockAccount
}

// GetRawAccount returns the account data at address. found is false when the
// account doesn't exist.
func (c *Client) GetRawAccount(ctx context.Context, address ed25519.PublicKey) (data []byte, found bool, err error) {
	if err := validateKey("address", address); err != nil {
		return nil, false, err
	}

	info, err := c.rpc.GetAccountInfo(ctx, address, c.conf.commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, newNetworkError("get account info", err)
	}

	return info.Data, true, nil
}

// GetLock decodes the lock at address. ErrLockNotFound is returned when the
// account doesn't exist, which includes locks that have been closed.
func (c *Client) GetLock(ctx context.Context, address ed25519.PublicKey) (*timelockwallet.TimeLockAccount, error) {
	_, account, err := c.getLock(ctx, address)
	return account, err
}

// GetWalletInfo returns the lock at address with its unlock status.
func (c *Client) GetWalletInfo(ctx context.Context, address ed25519.PublicKey) (*WalletInfo, error) {
	info, account, err := c.getLock(ctx, address)
	if err != nil {
		return nil, err
	}

	now := c.conf.clock()
	return &WalletInfo{
		Address:       address,
		Account:       account,
		Lamports:      info.Lamports,
		IsUnlocked:    account.IsUnlocked(now),
		TimeRemaining: TimeRemaining(account.UnlockTimestamp, now),
	}, nil
}

// ListLocks returns every lock owned by owner, earliest unlock first.
// Accounts that fail to decode are skipped.
func (c *Client) ListLocks(ctx context.Context, owner ed25519.PublicKey) ([]*LockEntry, error) {
	if err := validateKey("owner", owner); err != nil {
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"method": "ListLocks",
		"owner":  base58.Encode(owner),
	})

	accounts, err := c.rpc.GetProgramAccounts(
		ctx,
		c.conf.program,
		c.conf.commitment,
		solana.FilterDataSize(timelockwallet.TimeLockAccountSize),
		solana.FilterMemcmp(timelockwallet.OwnerOffset, owner),
	)
	if err != nil {
		return nil, newNetworkError("get program accounts", err)
	}

	entries := make([]*LockEntry, 0, len(accounts))
	for _, keyed := range accounts {
		if !timelockwallet.IsTimeLockAccount(keyed.Account.Data) {
			continue
		}

		var account timelockwallet.TimeLockAccount
		if err := account.Unmarshal(keyed.Account.Data); err != nil {
			log.WithError(err).WithField("address", base58.Encode(keyed.PublicKey)).Warn("skipping undecodable account")
			continue
		}
		if !bytes.Equal(account.Owner, owner) {
			continue
		}

		entries = append(entries, &LockEntry{
			Address: keyed.PublicKey,
			Account: &account,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Account.UnlockTimestamp < entries[j].Account.UnlockTimestamp
	})
	return entries, nil
}

// GetBalance returns the lamport balance of account.
func (c *Client) GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	if err := validateKey("address", account); err != nil {
		return 0, err
	}

	balance, err := c.rpc.GetBalance(ctx, account, c.conf.commitment)
	if err != nil {
		return 0, newNetworkError("get balance", err)
	}
	return balance, nil
}

// GetTokenBalance returns the balance of a token account in base units.
func (c *Client) GetTokenBalance(ctx context.Context, account ed25519.PublicKey) (amount, decimals uint64, err error) {
	if err := validateKey("address", account); err != nil {
		return 0, 0, err
	}

	amount, decimals, err = c.rpc.GetTokenAccountBalance(ctx, account)
	if err != nil {
		return 0, 0, newNetworkError("get token account balance", err)
	}
	return amount, decimals, nil
}

// RequestAirdrop asks the cluster faucet for lamports. It is refused unless
// the configured cluster is a test network.
func (c *Client) RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	if !c.conf.cluster.SupportsAirdrop() {
		return solana.Signature{}, ErrAirdropUnsupported
	}
	if err := validateKey("address", account); err != nil {
		return solana.Signature{}, err
	}
	if err := ValidateAmount("amount", lamports); err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.rpc.RequestAirdrop(ctx, account, lamports, c.conf.commitment)
	if err != nil {
		return solana.Signature{}, newNetworkError("request airdrop", err)
	}
	return sig, nil
}

func (c *Client) getLock(ctx context.Context, address ed25519.PublicKey) (solana.AccountInfo, *timelockwallet.TimeLockAccount, error) {
	if err := validateKey("address", address); err != nil {
		return solana.AccountInfo{}, nil, err
	}

	info, err := c.rpc.GetAccountInfo(ctx, address, c.conf.commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return solana.AccountInfo{}, nil, ErrLockNotFound
	} else if err != nil {
		return solana.AccountInfo{}, nil, newNetworkError("get account info", err)
	}

	// Lamports sent to a closed lock recreate it as a plain system account.
	if system.IsSystemOwned(info.Owner) {
		return info, nil, ErrLockNotFound
	}
	if !bytes.Equal(info.Owner, c.conf.program) {
		return info, nil, ErrNotLockAccount
	}

	var account timelockwallet.TimeLockAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return info, nil, errors.Wrap(ErrNotLockAccount, err.Error())
	}
	return info, &account, nil
}
