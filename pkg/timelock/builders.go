package timelock

import (
	"crypto/ed25519"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/token"
)

// DeriveLockAddress returns the lock account and bump for owner and
// unlockTimestamp under the configured program. It performs no I/O.
func (c *Client) DeriveLockAddress(owner ed25519.PublicKey, unlockTimestamp int64) (ed25519.PublicKey, uint8, error) {
	if err := validateKey("owner", owner); err != nil {
		return nil, 0, err
	}

	return timelockwallet.GetTimeLockAddress(&timelockwallet.GetTimeLockAddressArgs{
		Owner:           owner,
		UnlockTimestamp: unlockTimestamp,
		Program:         c.conf.program,
	})
}

// BuildCreateSolLock initializes a native lock and funds it with amount
// lamports. A zero amount only initializes.
func (c *Client) BuildCreateSolLock(owner ed25519.PublicKey, unlockTimestamp int64, amount uint64) ([]solana.Instruction, error) {
	timeLock, err := c.prepareCreate(owner, unlockTimestamp)
	if err != nil {
		return nil, err
	}

	ixns := []solana.Instruction{
		c.initialize(timeLock, owner, unlockTimestamp, timelockwallet.AssetTypeSol),
	}
	if amount > 0 {
		ixns = append(ixns, c.depositSol(timeLock, owner, amount))
	}
	return ixns, nil
}

// BuildCreateTokenLock initializes a token lock, creates its vault and funds
// it from the owner's associated account. A zero amount skips the deposit.
func (c *Client) BuildCreateTokenLock(owner ed25519.PublicKey, unlockTimestamp int64, mint ed25519.PublicKey, amount uint64) ([]solana.Instruction, error) {
	if err := validateKey("mint", mint); err != nil {
		return nil, err
	}

	timeLock, err := c.prepareCreate(owner, unlockTimestamp)
	if err != nil {
		return nil, err
	}

	createVault, vault, err := token.CreateAssociatedTokenAccountIdempotent(owner, timeLock, mint)
	if err != nil {
		return nil, err
	}

	ixns := []solana.Instruction{
		c.initialize(timeLock, owner, unlockTimestamp, timelockwallet.AssetTypeToken),
		createVault,
	}
	if amount > 0 {
		deposit, err := c.depositToken(timeLock, owner, mint, vault, amount)
		if err != nil {
			return nil, err
		}
		ixns = append(ixns, deposit)
	}
	return ixns, nil
}

func (c *Client) BuildDepositSol(owner, timeLock ed25519.PublicKey, amount uint64) ([]solana.Instruction, error) {
	if err := c.validateOwnerAndLock(owner, timeLock); err != nil {
		return nil, err
	}
	if err := ValidateAmount("amount", amount); err != nil {
		return nil, err
	}

	return []solana.Instruction{c.depositSol(timeLock, owner, amount)}, nil
}

func (c *Client) BuildDepositToken(owner, timeLock, mint ed25519.PublicKey, amount uint64) ([]solana.Instruction, error) {
	if err := c.validateOwnerAndLock(owner, timeLock); err != nil {
		return nil, err
	}
	if err := validateKey("mint", mint); err != nil {
		return nil, err
	}
	if err := ValidateAmount("amount", amount); err != nil {
		return nil, err
	}

	vault, err := timelockwallet.GetTokenVaultAddress(timeLock, mint)
	if err != nil {
		return nil, err
	}

	deposit, err := c.depositToken(timeLock, owner, mint, vault, amount)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{deposit}, nil
}

// BuildWithdrawSol withdraws the full balance of a native lock.
func (c *Client) BuildWithdrawSol(owner, timeLock ed25519.PublicKey) ([]solana.Instruction, error) {
	if err := c.validateOwnerAndLock(owner, timeLock); err != nil {
		return nil, err
	}

	return []solana.Instruction{
		timelockwallet.NewWithdrawSolInstruction(
			&timelockwallet.WithdrawSolInstructionAccounts{
				Program:  c.conf.program,
				TimeLock: timeLock,
				Owner:    owner,
			},
			&timelockwallet.WithdrawSolInstructionArgs{},
		).ToLegacyInstruction(),
	}, nil
}

// BuildWithdrawToken withdraws the vault balance into the owner's associated
// account, creating it first if needed.
func (c *Client) BuildWithdrawToken(owner, timeLock, mint ed25519.PublicKey) ([]solana.Instruction, error) {
	if err := c.validateOwnerAndLock(owner, timeLock); err != nil {
		return nil, err
	}
	if err := validateKey("mint", mint); err != nil {
		return nil, err
	}

	vault, err := timelockwallet.GetTokenVaultAddress(timeLock, mint)
	if err != nil {
		return nil, err
	}

	createDestination, destination, err := token.CreateAssociatedTokenAccountIdempotent(owner, owner, mint)
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		createDestination,
		timelockwallet.NewWithdrawTokenInstruction(
			&timelockwallet.WithdrawTokenInstructionAccounts{
				Program:        c.conf.program,
				TimeLock:       timeLock,
				Owner:          owner,
				TokenFromVault: vault,
				TokenToAta:     destination,
			},
			&timelockwallet.WithdrawTokenInstructionArgs{},
		).ToLegacyInstruction(),
	}, nil
}

// BuildCloseEmpty closes a drained lock and returns its rent to the owner.
func (c *Client) BuildCloseEmpty(owner, timeLock ed25519.PublicKey) ([]solana.Instruction, error) {
	if err := c.validateOwnerAndLock(owner, timeLock); err != nil {
		return nil, err
	}

	return []solana.Instruction{
		timelockwallet.NewCloseEmptyAccountInstruction(
			&timelockwallet.CloseEmptyAccountInstructionAccounts{
				Program:  c.conf.program,
				TimeLock: timeLock,
				Owner:    owner,
			},
			&timelockwallet.CloseEmptyAccountInstructionArgs{},
		).ToLegacyInstruction(),
	}, nil
}

// BuildWithdrawAndCloseSol withdraws a native lock and closes it in one
// instruction.
func (c *Client) BuildWithdrawAndCloseSol(owner, timeLock ed25519.PublicKey) ([]solana.Instruction, error) {
	if err := c.validateOwnerAndLock(owner, timeLock); err != nil {
		return nil, err
	}

	return []solana.Instruction{
		timelockwallet.NewWithdrawAndCloseSolInstruction(
			&timelockwallet.WithdrawAndCloseSolInstructionAccounts{
				Program:  c.conf.program,
				TimeLock: timeLock,
				Owner:    owner,
			},
			&timelockwallet.WithdrawAndCloseSolInstructionArgs{},
		).ToLegacyInstruction(),
	}, nil
}

func (c *Client) prepareCreate(owner ed25519.PublicKey, unlockTimestamp int64) (ed25519.PublicKey, error) {
	if err := ValidateSigner("owner", owner); err != nil {
		return nil, err
	}
	if err := ValidateUnlockTimestamp(unlockTimestamp, c.conf.clock()); err != nil {
		return nil, err
	}

	timeLock, _, err := c.DeriveLockAddress(owner, unlockTimestamp)
	return timeLock, err
}

func (c *Client) validateOwnerAndLock(owner, timeLock ed25519.PublicKey) error {
	if err := ValidateSigner("owner", owner); err != nil {
		return err
	}
	return ValidateDerivedAddress("lock", timeLock)
}

func (c *Client) initialize(timeLock, owner ed25519.PublicKey, unlockTimestamp int64, assetType timelockwallet.AssetType) solana.Instruction {
	return timelockwallet.NewInitializeInstruction(
		&timelockwallet.InitializeInstructionAccounts{
			Program:     c.conf.program,
			TimeLock:    timeLock,
			Initializer: owner,
		},
		&timelockwallet.InitializeInstructionArgs{
			UnlockTimestamp: unlockTimestamp,
			AssetType:       assetType,
		},
	).ToLegacyInstruction()
}

func (c *Client) depositSol(timeLock, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	return timelockwallet.NewDepositSolInstruction(
		&timelockwallet.DepositSolInstructionAccounts{
			Program:     c.conf.program,
			TimeLock:    timeLock,
			Initializer: owner,
		},
		&timelockwallet.DepositSolInstructionArgs{
			Amount: amount,
		},
	).ToLegacyInstruction()
}

func (c *Client) depositToken(timeLock, owner, mint, vault ed25519.PublicKey, amount uint64) (solana.Instruction, error) {
	source, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return solana.Instruction{}, err
	}

	return timelockwallet.NewDepositTokenInstruction(
		&timelockwallet.DepositTokenInstructionAccounts{
			Program:      c.conf.program,
			TimeLock:     timeLock,
			Initializer:  owner,
			TokenFromAta: source,
			TokenVault:   vault,
		},
		&timelockwallet.DepositTokenInstructionArgs{
			Amount: amount,
		},
	).ToLegacyInstruction(), nil
}
