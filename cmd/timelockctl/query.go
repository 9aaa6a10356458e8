package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/timelock-wallet-client/pkg/solana/token"
	"github.com/code-payments/timelock-wallet-client/pkg/timelock"
)

func newInfoCommand(env *environment) *cobra.Command {
	var lock string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show a lock's on-chain state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			lockKey, err := parseKey("lock", lock)
			if err != nil {
				return err
			}

			client, err := env.timelockClient(ctx, false)
			if err != nil {
				return err
			}

			info, err := client.GetWalletInfo(ctx, lockKey)
			if errors.Is(err, timelock.ErrLockNotFound) {
				env.forget(ctx, lockKey)
				return errors.Wrapf(err, "%s (closed or never created)", base58.Encode(lockKey))
			} else if err != nil {
				return err
			}

			env.remember(ctx, lockKey, info.Account, nil)

			view := newWalletInfoView(info)
			return env.printer(cmd).print(view, func(w io.Writer) {
				printLock(w, view)
			})
		},
	}

	cmd.Flags().StringVar(&lock, "lock", "", "lock address")
	_ = cmd.MarkFlagRequired("lock")

	return cmd
}

func newListCommand(env *environment) *cobra.Command {
	var owner string
	var cached bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locks owned by an address",
		Long: "List locks owned by an address, read from the chain. With --cached the local " +
			"cache is shown instead; it may be stale.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if cached {
				cache, err := env.lockCache(ctx)
				if err != nil {
					return err
				}

				records, err := cache.List(ctx)
				if err != nil {
					return err
				}

				now := time.Now()
				views := make([]cachedView, 0, len(records))
				lockViews := make([]lockView, 0, len(records))
				for _, record := range records {
					view := newCachedView(record, now)
					views = append(views, view)
					lockViews = append(lockViews, view.lockView)
				}

				return env.printer(cmd).print(views, func(w io.Writer) {
					printLockTable(w, lockViews)
				})
			}

			client, err := env.timelockClient(ctx, false)
			if err != nil {
				return err
			}

			ownerKey, err := parseOptionalKey("owner", owner)
			if err != nil {
				return err
			}
			if ownerKey == nil {
				if client.Wallet() == nil {
					return errors.New("--owner is required without a keypair")
				}
				ownerKey = client.Wallet().PublicKey()
			}

			entries, err := client.ListLocks(ctx, ownerKey)
			if err != nil {
				return err
			}

			now := client.Now()
			views := make([]lockView, 0, len(entries))
			for _, entry := range entries {
				views = append(views, newLockView(entry.Address, entry.Account, now))
				env.remember(ctx, entry.Address, entry.Account, nil)
			}

			return env.printer(cmd).print(views, func(w io.Writer) {
				printLockTable(w, views)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner address (default: the keypair's public key)")
	cmd.Flags().BoolVar(&cached, "cached", false, "show the local cache instead of querying the chain")

	return cmd
}

type balanceView struct {
	Address  string  `json:"address"`
	Mint     string  `json:"mint,omitempty"`
	Amount   uint64  `json:"amount"`
	Decimals uint64  `json:"decimals,omitempty"`
	Sol      float64 `json:"sol,omitempty"`
}

func newBalanceCommand(env *environment) *cobra.Command {
	var address, mint string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the SOL or token balance of an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := env.timelockClient(ctx, false)
			if err != nil {
				return err
			}

			key, err := parseOptionalKey("address", address)
			if err != nil {
				return err
			}
			if key == nil {
				if client.Wallet() == nil {
					return errors.New("--address is required without a keypair")
				}
				key = client.Wallet().PublicKey()
			}

			mintKey, err := parseOptionalKey("mint", mint)
			if err != nil {
				return err
			}

			view := balanceView{Address: base58.Encode(key)}
			if mintKey == nil {
				lamports, err := client.GetBalance(ctx, key)
				if err != nil {
					return err
				}
				view.Amount = lamports
				view.Sol = timelock.LamportsToSol(lamports)
			} else {
				ata, err := token.GetAssociatedAccount(key, mintKey)
				if err != nil {
					return err
				}

				amount, decimals, err := client.GetTokenBalance(ctx, ata)
				if err != nil {
					return err
				}
				view.Mint = base58.Encode(mintKey)
				view.Amount = amount
				view.Decimals = decimals
			}

			return env.printer(cmd).print(view, func(w io.Writer) {
				fmt.Fprintf(w, "Address:\t%s\n", view.Address)
				if view.Mint == "" {
					fmt.Fprintf(w, "Balance:\t%.9f SOL\n", view.Sol)
				} else {
					fmt.Fprintf(w, "Mint:\t%s\n", view.Mint)
					fmt.Fprintf(w, "Balance:\t%d (decimals %d)\n", view.Amount, view.Decimals)
				}
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "address to query (default: the keypair's public key)")
	cmd.Flags().StringVar(&mint, "mint", "", "show the balance of this token instead")

	return cmd
}

type airdropView struct {
	Address   string `json:"address"`
	Lamports  uint64 `json:"lamports"`
	Signature string `json:"signature"`
}

func newAirdropCommand(env *environment) *cobra.Command {
	var address, amount string

	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Request SOL from a test cluster faucet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := env.timelockClient(ctx, false)
			if err != nil {
				return err
			}

			key, err := parseOptionalKey("address", address)
			if err != nil {
				return err
			}
			if key == nil {
				if client.Wallet() == nil {
					return errors.New("--address is required without a keypair")
				}
				key = client.Wallet().PublicKey()
			}

			sol, err := strconv.ParseFloat(amount, 64)
			if err != nil {
				return errors.Errorf("invalid amount %q", amount)
			}
			lamports, err := timelock.SolToLamports(sol)
			if err != nil {
				return err
			}

			sig, err := client.RequestAirdrop(ctx, key, lamports)
			if err != nil {
				return err
			}

			view := airdropView{
				Address:   base58.Encode(key),
				Lamports:  lamports,
				Signature: sig.String(),
			}
			return env.printer(cmd).print(view, func(w io.Writer) {
				fmt.Fprintf(w, "Address:\t%s\n", view.Address)
				fmt.Fprintf(w, "Amount:\t%.9f SOL\n", timelock.LamportsToSol(view.Lamports))
				fmt.Fprintf(w, "Signature:\t%s\n", view.Signature)
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "recipient (default: the keypair's public key)")
	cmd.Flags().StringVar(&amount, "amount", "1", "amount of SOL")

	return cmd
}
