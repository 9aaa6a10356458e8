package timelock

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/token"
)

// LockCreationResult identifies a newly created lock. The signature is set
// even when confirmation timed out.
type LockCreationResult struct {
	Address   ed25519.PublicKey
	Bump      uint8
	Signature solana.Signature
}

// CreateSolLock creates a native lock owned by the connected wallet and
// funds it with amount lamports.
func (c *Client) CreateSolLock(ctx context.Context, unlockTimestamp int64, amount uint64) (*LockCreationResult, error) {
	owner, err := c.owner()
	if err != nil {
		return nil, err
	}

	ixns, err := c.BuildCreateSolLock(owner, unlockTimestamp, amount)
	if err != nil {
		return nil, err
	}

	return c.executeCreate(ctx, owner, unlockTimestamp, ixns)
}

// CreateTokenLock creates a token lock for mint owned by the connected
// wallet and funds it with amount base units from the wallet's associated
// account.
func (c *Client) CreateTokenLock(ctx context.Context, unlockTimestamp int64, mint ed25519.PublicKey, amount uint64) (*LockCreationResult, error) {
	owner, err := c.owner()
	if err != nil {
		return nil, err
	}

	ixns, err := c.BuildCreateTokenLock(owner, unlockTimestamp, mint, amount)
	if err != nil {
		return nil, err
	}

	if amount > 0 {
		if err := c.checkTokenSource(ctx, owner, mint, amount); err != nil {
			return nil, err
		}
	}

	return c.executeCreate(ctx, owner, unlockTimestamp, ixns)
}

func (c *Client) DepositSol(ctx context.Context, timeLock ed25519.PublicKey, amount uint64) (solana.Signature, error) {
	owner, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}

	ixns, err := c.BuildDepositSol(owner, timeLock, amount)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Execute(ctx, ixns...)
}

func (c *Client) DepositToken(ctx context.Context, timeLock, mint ed25519.PublicKey, amount uint64) (solana.Signature, error) {
	owner, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}

	ixns, err := c.BuildDepositToken(owner, timeLock, mint, amount)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := c.checkTokenSource(ctx, owner, mint, amount); err != nil {
		return solana.Signature{}, err
	}
	return c.Execute(ctx, ixns...)
}

func (c *Client) WithdrawSol(ctx context.Context, timeLock ed25519.PublicKey) (solana.Signature, error) {
	owner, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}

	ixns, err := c.BuildWithdrawSol(owner, timeLock)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Execute(ctx, ixns...)
}

// WithdrawToken moves the vault balance for mint to the connected wallet.
// The vault must exist; whether the lock has expired is left to the program.
func (c *Client) WithdrawToken(ctx context.Context, timeLock, mint ed25519.PublicKey) (solana.Signature, error) {
	owner, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}

	ixns, err := c.BuildWithdrawToken(owner, timeLock, mint)
	if err != nil {
		return solana.Signature{}, err
	}

	vault, err := timelockwallet.GetTokenVaultAddress(timeLock, mint)
	if err != nil {
		return solana.Signature{}, err
	}

	_, err = token.NewClient(c.rpc, mint).GetAccount(ctx, vault, c.conf.commitment)
	switch {
	case errors.Is(err, token.ErrAccountNotFound), errors.Is(err, token.ErrInvalidTokenAccount):
		return solana.Signature{}, &ValidationError{Field: "mint", Reason: "lock has no vault for this mint"}
	case err != nil:
		return solana.Signature{}, newNetworkError("get token vault", err)
	}

	return c.Execute(ctx, ixns...)
}

func (c *Client) CloseEmpty(ctx context.Context, timeLock ed25519.PublicKey) (solana.Signature, error) {
	owner, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}

	ixns, err := c.BuildCloseEmpty(owner, timeLock)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Execute(ctx, ixns...)
}

func (c *Client) WithdrawAndCloseSol(ctx context.Context, timeLock ed25519.PublicKey) (solana.Signature, error) {
	owner, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}

	ixns, err := c.BuildWithdrawAndCloseSol(owner, timeLock)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Execute(ctx, ixns...)
}

func (c *Client) executeCreate(ctx context.Context, owner ed25519.PublicKey, unlockTimestamp int64, ixns []solana.Instruction) (*LockCreationResult, error) {
	address, bump, err := c.DeriveLockAddress(owner, unlockTimestamp)
	if err != nil {
		return nil, err
	}

	sig, err := c.Execute(ctx, ixns...)
	if err != nil && !IsUnknownOutcome(err) {
		return nil, err
	}

	return &LockCreationResult{
		Address:   address,
		Bump:      bump,
		Signature: sig,
	}, err
}

// checkTokenSource fails early when the owner's associated account can't
// cover amount.
func (c *Client) checkTokenSource(ctx context.Context, owner, mint ed25519.PublicKey, amount uint64) error {
	_, account, err := token.NewClient(c.rpc, mint).GetAssociatedAccount(ctx, owner, c.conf.commitment)
	switch {
	case errors.Is(err, token.ErrAccountNotFound), errors.Is(err, token.ErrInvalidTokenAccount):
		return &ValidationError{Field: "mint", Reason: "owner has no token account for this mint"}
	case err != nil:
		return newNetworkError("get token account", err)
	}

	if account.Amount < amount {
		return &ValidationError{Field: "amount", Reason: "exceeds the owner's token balance"}
	}
	return nil
}
