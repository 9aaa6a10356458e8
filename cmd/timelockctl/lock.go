package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
	"github.com/code-payments/timelock-wallet-client/pkg/timelock"
	"github.com/code-payments/timelock-wallet-client/pkg/wallet"
)

type deriveView struct {
	Address         string `json:"address"`
	Bump            uint8  `json:"bump"`
	Owner           string `json:"owner"`
	UnlockTimestamp int64  `json:"unlockTimestamp"`
	Program         string `json:"program"`
	TokenVault      string `json:"tokenVault,omitempty"`
}

func newDeriveCommand(env *environment) *cobra.Command {
	var owner, unlock, mint string

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a lock address without touching the network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerKey, err := parseOptionalKey("owner", owner)
			if err != nil {
				return err
			}
			if ownerKey == nil {
				kp, err := wallet.FromKeygenFile(env.cfg.Keypair)
				if err != nil {
					return errors.Wrap(err, "--owner is required without a readable keypair")
				}
				ownerKey = kp.PublicKey()
			}

			mintKey, err := parseOptionalKey("mint", mint)
			if err != nil {
				return err
			}

			unlockTimestamp, err := parseUnlock(unlock, time.Now())
			if err != nil {
				return err
			}

			program, err := solana.ParsePublicKey(env.cfg.ProgramID)
			if err != nil {
				return errors.Wrap(err, "invalid program id")
			}

			address, bump, err := timelockwallet.GetTimeLockAddress(&timelockwallet.GetTimeLockAddressArgs{
				Owner:           ownerKey,
				UnlockTimestamp: unlockTimestamp,
				Program:         program,
			})
			if err != nil {
				return err
			}

			view := deriveView{
				Address:         base58.Encode(address),
				Bump:            bump,
				Owner:           base58.Encode(ownerKey),
				UnlockTimestamp: unlockTimestamp,
				Program:         base58.Encode(program),
			}
			if mintKey != nil {
				vault, err := timelockwallet.GetTokenVaultAddress(address, mintKey)
				if err != nil {
					return err
				}
				view.TokenVault = base58.Encode(vault)
			}

			return env.printer(cmd).print(view, func(w io.Writer) {
				fmt.Fprintf(w, "Address:\t%s\n", view.Address)
				fmt.Fprintf(w, "Bump:\t%d\n", view.Bump)
				if view.TokenVault != "" {
					fmt.Fprintf(w, "Vault:\t%s\n", view.TokenVault)
				}
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "lock owner (default: the keypair's public key)")
	cmd.Flags().StringVar(&unlock, "unlock", "", "unlock time: RFC3339, unix seconds or +duration")
	cmd.Flags().StringVar(&mint, "mint", "", "token mint, to also derive the vault")
	_ = cmd.MarkFlagRequired("unlock")

	return cmd
}

type txView struct {
	Action    string `json:"action"`
	Lock      string `json:"lock"`
	Bump      *uint8 `json:"bump,omitempty"`
	Signature string `json:"signature"`
	Confirmed bool   `json:"confirmed"`
}

func (e *environment) printTx(cmd *cobra.Command, view txView) error {
	return e.printer(cmd).print(view, func(w io.Writer) {
		fmt.Fprintf(w, "Lock:\t%s\n", view.Lock)
		if view.Bump != nil {
			fmt.Fprintf(w, "Bump:\t%d\n", *view.Bump)
		}
		fmt.Fprintf(w, "Signature:\t%s\n", view.Signature)
		if !view.Confirmed {
			fmt.Fprintf(w, "Status:\tunconfirmed\n")
		}
	})
}

func newCreateCommand(env *environment) *cobra.Command {
	var unlock, amount, mint string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and fund a new lock",
		Long: "Create a lock owned by the keypair. Without --mint the amount is in SOL; " +
			"with --mint it is in the token's base units.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := env.timelockClient(ctx, true)
			if err != nil {
				return err
			}

			unlockTimestamp, err := parseUnlock(unlock, client.Now())
			if err != nil {
				return err
			}

			mintKey, err := parseOptionalKey("mint", mint)
			if err != nil {
				return err
			}

			account := &timelockwallet.TimeLockAccount{
				Owner:           client.Wallet().PublicKey(),
				UnlockTimestamp: unlockTimestamp,
			}

			var result *timelock.LockCreationResult
			if mintKey == nil {
				lamports, parseErr := parseSolAmount(amount, true)
				if parseErr != nil {
					return parseErr
				}

				account.AssetType = timelockwallet.AssetTypeSol
				account.Amount = lamports
				result, err = client.CreateSolLock(ctx, unlockTimestamp, lamports)
			} else {
				units, parseErr := parseTokenAmount(amount, true)
				if parseErr != nil {
					return parseErr
				}

				account.AssetType = timelockwallet.AssetTypeToken
				account.Amount = units
				result, err = client.CreateTokenLock(ctx, unlockTimestamp, mintKey, units)
			}
			if result == nil {
				return err
			}

			env.log.WithFields(logrus.Fields{
				"lock":      base58.Encode(result.Address),
				"signature": result.Signature.String(),
			}).Info("lock created")

			account.Bump = result.Bump
			env.remember(ctx, result.Address, account, mintKey)

			if printErr := env.printTx(cmd, txView{
				Action:    "create",
				Lock:      base58.Encode(result.Address),
				Bump:      &result.Bump,
				Signature: result.Signature.String(),
				Confirmed: err == nil,
			}); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&unlock, "unlock", "", "unlock time: RFC3339, unix seconds or +duration (e.g. +30d)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to deposit: SOL, or token base units with --mint")
	cmd.Flags().StringVar(&mint, "mint", "", "create a token lock for this mint")
	_ = cmd.MarkFlagRequired("unlock")

	return cmd
}

func newDepositCommand(env *environment) *cobra.Command {
	var lock, amount, mint string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add funds to an existing lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			lockKey, err := parseKey("lock", lock)
			if err != nil {
				return err
			}
			mintKey, err := parseOptionalKey("mint", mint)
			if err != nil {
				return err
			}

			client, err := env.timelockClient(ctx, true)
			if err != nil {
				return err
			}

			var sig solana.Signature
			if mintKey == nil {
				lamports, parseErr := parseSolAmount(amount, false)
				if parseErr != nil {
					return parseErr
				}
				sig, err = client.DepositSol(ctx, lockKey, lamports)
			} else {
				units, parseErr := parseTokenAmount(amount, false)
				if parseErr != nil {
					return parseErr
				}
				sig, err = client.DepositToken(ctx, lockKey, mintKey, units)
			}
			if err != nil && sig == (solana.Signature{}) {
				return err
			}

			if err == nil {
				env.refresh(ctx, client, lockKey, mintKey)
			}

			if printErr := env.printTx(cmd, txView{
				Action:    "deposit",
				Lock:      base58.Encode(lockKey),
				Signature: sig.String(),
				Confirmed: err == nil,
			}); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&lock, "lock", "", "lock address")
	cmd.Flags().StringVar(&amount, "amount", "", "amount: SOL, or token base units with --mint")
	cmd.Flags().StringVar(&mint, "mint", "", "token mint of a token lock")
	_ = cmd.MarkFlagRequired("lock")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newWithdrawCommand(env *environment) *cobra.Command {
	var lock, mint string
	var closeAfter bool

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw the funds of an unlocked lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			lockKey, err := parseKey("lock", lock)
			if err != nil {
				return err
			}
			mintKey, err := parseOptionalKey("mint", mint)
			if err != nil {
				return err
			}

			client, err := env.timelockClient(ctx, true)
			if err != nil {
				return err
			}

			account, err := client.GetLock(ctx, lockKey)
			if err != nil {
				return err
			}

			var sig solana.Signature
			switch account.AssetType {
			case timelockwallet.AssetTypeSol:
				if closeAfter {
					sig, err = client.WithdrawAndCloseSol(ctx, lockKey)
				} else {
					sig, err = client.WithdrawSol(ctx, lockKey)
				}
			default:
				if mintKey == nil {
					mintKey = env.cachedMint(ctx, lockKey)
				}
				if mintKey == nil {
					return errors.New("--mint is required to withdraw a token lock")
				}

				sig, err = client.WithdrawToken(ctx, lockKey, mintKey)
				if err == nil && closeAfter {
					sig, err = closeIfOpen(ctx, env, client, lockKey, sig)
				}
			}
			if err != nil && sig == (solana.Signature{}) {
				return err
			}

			// Withdrawing closes the lock, so this normally drops the entry.
			if err == nil {
				env.refresh(ctx, client, lockKey, mintKey)
			}

			if printErr := env.printTx(cmd, txView{
				Action:    "withdraw",
				Lock:      base58.Encode(lockKey),
				Signature: sig.String(),
				Confirmed: err == nil,
			}); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&lock, "lock", "", "lock address")
	cmd.Flags().StringVar(&mint, "mint", "", "token mint of a token lock (default: the cached mint)")
	cmd.Flags().BoolVar(&closeAfter, "close", false, "close the lock after withdrawing and reclaim its rent")
	_ = cmd.MarkFlagRequired("lock")

	return cmd
}

func newCloseCommand(env *environment) *cobra.Command {
	var lock string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close an empty lock and reclaim its rent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			lockKey, err := parseKey("lock", lock)
			if err != nil {
				return err
			}

			client, err := env.timelockClient(ctx, true)
			if err != nil {
				return err
			}

			sig, err := client.CloseEmpty(ctx, lockKey)
			if err != nil && sig == (solana.Signature{}) {
				return err
			}
			if err == nil {
				env.forget(ctx, lockKey)
			}

			if printErr := env.printTx(cmd, txView{
				Action:    "close",
				Lock:      base58.Encode(lockKey),
				Signature: sig.String(),
				Confirmed: err == nil,
			}); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&lock, "lock", "", "lock address")
	_ = cmd.MarkFlagRequired("lock")

	return cmd
}

// closeIfOpen closes a lock that survived its withdrawal. withdrawn is
// returned when there is nothing left to close.
func closeIfOpen(ctx context.Context, env *environment, client *timelock.Client, lock ed25519.PublicKey, withdrawn solana.Signature) (solana.Signature, error) {
	_, err := client.GetLock(ctx, lock)
	switch {
	case errors.Is(err, timelock.ErrLockNotFound):
		return withdrawn, nil
	case err != nil:
		env.log.WithError(err).WithField("lock", base58.Encode(lock)).Warn("withdrawn, but failed to check whether the lock is still open")
		return withdrawn, nil
	}
	return client.CloseEmpty(ctx, lock)
}

// refresh re-reads a lock into the cache, dropping it once it is closed.
func (e *environment) refresh(ctx context.Context, client *timelock.Client, address, mint ed25519.PublicKey) {
	account, err := client.GetLock(ctx, address)
	if errors.Is(err, timelock.ErrLockNotFound) {
		e.forget(ctx, address)
		return
	} else if err != nil {
		e.log.WithError(err).WithField("lock", base58.Encode(address)).Warn("failed to refresh lock")
		return
	}
	e.remember(ctx, address, account, mint)
}

func (e *environment) cachedMint(ctx context.Context, address ed25519.PublicKey) ed25519.PublicKey {
	cache, err := e.lockCache(ctx)
	if err != nil {
		return nil
	}

	record, err := cache.Get(ctx, address)
	if err != nil {
		return nil
	}
	return record.TokenMint
}

func parseSolAmount(s string, allowZero bool) (uint64, error) {
	if s == "" && allowZero {
		return 0, nil
	}

	sol, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid amount %q", s)
	}

	lamports, err := timelock.SolToLamports(sol)
	if err != nil {
		return 0, err
	}
	if lamports == 0 && !allowZero {
		return 0, timelock.ValidateAmount("amount", 0)
	}
	return lamports, nil
}

func parseTokenAmount(s string, allowZero bool) (uint64, error) {
	if s == "" && allowZero {
		return 0, nil
	}

	units, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid token amount %q: expected base units", s)
	}
	if units == 0 && !allowZero {
		return 0, timelock.ValidateAmount("amount", 0)
	}
	return units, nil
}
