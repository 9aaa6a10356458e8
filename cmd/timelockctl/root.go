package main

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/timelock-wallet-client/pkg/lockcache"
	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

func newRootCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "timelockctl",
		Short:         "Create and manage time-locked wallets on Solana",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return env.load()
		},
	}

	env.bindFlags(cmd)

	cmd.AddCommand(
		newDeriveCommand(env),
		newCreateCommand(env),
		newDepositCommand(env),
		newWithdrawCommand(env),
		newCloseCommand(env),
		newInfoCommand(env),
		newListCommand(env),
		newBalanceCommand(env),
		newAirdropCommand(env),
		newCacheCommand(env),
		newWatchCommand(env),
		newDecodeCommand(env),
	)

	return cmd
}

func (e *environment) printer(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), format: e.cfg.Output}
}

func parseKey(flag, value string) (ed25519.PublicKey, error) {
	if value == "" {
		return nil, errors.Errorf("--%s is required", flag)
	}

	key, err := solana.ParsePublicKey(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --%s", flag)
	}
	return key, nil
}

func parseOptionalKey(flag, value string) (ed25519.PublicKey, error) {
	if value == "" {
		return nil, nil
	}
	return parseKey(flag, value)
}

// remember records a lock in the advisory cache. Failures are logged and
// otherwise ignored.
func (e *environment) remember(ctx context.Context, address ed25519.PublicKey, account *timelockwallet.TimeLockAccount, mint ed25519.PublicKey) {
	log := e.log.WithField("lock", base58.Encode(address))

	cache, err := e.lockCache(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to open lock cache")
		return
	}

	if mint == nil {
		if existing, err := cache.Get(ctx, address); err == nil {
			mint = existing.TokenMint
		}
	}

	err = cache.Save(ctx, &lockcache.Record{
		Address:         address,
		Owner:           account.Owner,
		Amount:          account.Amount,
		UnlockTimestamp: account.UnlockTimestamp,
		TokenMint:       mint,
		AssetType:       account.AssetType,
	})
	if err != nil {
		log.WithError(err).Warn("failed to cache lock")
	}
}

func (e *environment) forget(ctx context.Context, address ed25519.PublicKey) {
	log := e.log.WithField("lock", base58.Encode(address))

	cache, err := e.lockCache(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to open lock cache")
		return
	}
	if err := cache.Remove(ctx, address); err != nil {
		log.WithError(err).Warn("failed to remove cached lock")
	}
}
