package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/timelock-wallet-client/pkg/lockcache"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
	"github.com/code-payments/timelock-wallet-client/pkg/timelock"
)

type printer struct {
	w      io.Writer
	format string
}

// print writes v as indented JSON, or calls text for the human readable
// form.
func (p *printer) print(v interface{}, text func(w io.Writer)) error {
	if p.format == outputJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

type lockView struct {
	Address         string `json:"address"`
	Owner           string `json:"owner"`
	AssetType       string `json:"assetType"`
	UnlockTimestamp int64  `json:"unlockTimestamp"`
	UnlockTime      string `json:"unlockTime"`
	Amount          uint64 `json:"amount"`
	TokenVault      string `json:"tokenVault,omitempty"`
	Lamports        uint64 `json:"lamports,omitempty"`
	IsUnlocked      bool   `json:"isUnlocked"`
	TimeRemaining   string `json:"timeRemaining"`
}

func newLockView(address []byte, account *timelockwallet.TimeLockAccount, now time.Time) lockView {
	view := lockView{
		Address:         base58.Encode(address),
		Owner:           base58.Encode(account.Owner),
		AssetType:       account.AssetType.String(),
		UnlockTimestamp: account.UnlockTimestamp,
		UnlockTime:      account.UnlockTime().UTC().Format(time.RFC3339),
		Amount:          account.Amount,
		IsUnlocked:      account.IsUnlocked(now),
		TimeRemaining:   timelock.FormatDuration(timelock.TimeRemaining(account.UnlockTimestamp, now)),
	}
	if account.HasTokenVault() {
		view.TokenVault = base58.Encode(account.TokenVault)
	}
	return view
}

func newWalletInfoView(info *timelock.WalletInfo) lockView {
	view := lockView{
		Address:         base58.Encode(info.Address),
		Owner:           base58.Encode(info.Account.Owner),
		AssetType:       info.Account.AssetType.String(),
		UnlockTimestamp: info.Account.UnlockTimestamp,
		UnlockTime:      info.Account.UnlockTime().UTC().Format(time.RFC3339),
		Amount:          info.Account.Amount,
		Lamports:        info.Lamports,
		IsUnlocked:      info.IsUnlocked,
		TimeRemaining:   timelock.FormatDuration(info.TimeRemaining),
	}
	if info.Account.HasTokenVault() {
		view.TokenVault = base58.Encode(info.Account.TokenVault)
	}
	return view
}

func printLock(w io.Writer, view lockView) {
	fmt.Fprintf(w, "Address:\t%s\n", view.Address)
	fmt.Fprintf(w, "Owner:\t%s\n", view.Owner)
	fmt.Fprintf(w, "Asset:\t%s\n", view.AssetType)
	fmt.Fprintf(w, "Amount:\t%s\n", formatAmount(view.AssetType, view.Amount))
	if view.TokenVault != "" {
		fmt.Fprintf(w, "Vault:\t%s\n", view.TokenVault)
	}
	fmt.Fprintf(w, "Unlocks:\t%s (%d)\n", view.UnlockTime, view.UnlockTimestamp)
	fmt.Fprintf(w, "Status:\t%s\n", lockStatus(view.IsUnlocked, view.TimeRemaining))
}

func printLockTable(w io.Writer, views []lockView) {
	fmt.Fprintln(w, "ADDRESS\tASSET\tAMOUNT\tUNLOCKS\tSTATUS")
	for _, view := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			view.Address,
			view.AssetType,
			formatAmount(view.AssetType, view.Amount),
			view.UnlockTime,
			lockStatus(view.IsUnlocked, view.TimeRemaining),
		)
	}
}

func lockStatus(unlocked bool, remaining string) string {
	if unlocked {
		return "unlocked"
	}
	return "locked, " + remaining + " left"
}

func formatAmount(assetType string, amount uint64) string {
	if assetType == timelockwallet.AssetTypeSol.String() {
		return fmt.Sprintf("%.9f SOL", timelock.LamportsToSol(amount))
	}
	return fmt.Sprintf("%d", amount)
}

type cachedView struct {
	lockView
	CreatedAt string `json:"createdAt"`
	TokenMint string `json:"tokenMint,omitempty"`
}

func newCachedView(record *lockcache.Record, now time.Time) cachedView {
	view := cachedView{
		lockView: lockView{
			Address:         base58.Encode(record.Address),
			Owner:           base58.Encode(record.Owner),
			AssetType:       record.AssetType.String(),
			UnlockTimestamp: record.UnlockTimestamp,
			UnlockTime:      record.UnlockTime().UTC().Format(time.RFC3339),
			Amount:          record.Amount,
			IsUnlocked:      record.UnlockedAt(now),
			TimeRemaining:   timelock.FormatDuration(timelock.TimeRemaining(record.UnlockTimestamp, now)),
		},
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(record.TokenMint) > 0 {
		view.TokenMint = base58.Encode(record.TokenMint)
	}
	return view
}
