package main

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/computebudget"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/token"
)

const unknownInstruction = "unknown"

type decodedInstruction struct {
	Index    int                    `json:"index"`
	Program  string                 `json:"program"`
	Name     string                 `json:"name"`
	Accounts map[string]string      `json:"accounts,omitempty"`
	Args     map[string]interface{} `json:"args,omitempty"`
}

type decodeView struct {
	Signature    string               `json:"signature,omitempty"`
	Payer        string               `json:"payer"`
	Blockhash    string               `json:"blockhash"`
	Signed       bool                 `json:"signed"`
	Instructions []decodedInstruction `json:"instructions"`
}

func newDecodeCommand(env *environment) *cobra.Command {
	var encoded string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a base64 transaction without touching the network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if encoded == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read transaction from stdin")
				}
				encoded = string(raw)
			}
			encoded = strings.TrimSpace(encoded)
			if encoded == "" {
				return errors.New("--tx is required")
			}

			txn, err := solana.TransactionFromBase64(encoded)
			if err != nil {
				return errors.Wrap(err, "invalid --tx")
			}

			program, err := solana.ParsePublicKey(env.cfg.ProgramID)
			if err != nil {
				return errors.Wrap(err, "invalid program id")
			}

			view := decodeView{
				Payer:     base58.Encode(txn.Payer()),
				Blockhash: txn.Message.RecentBlockhash.String(),
				Signed:    txn.IsFullySigned(),
			}
			if sig := txn.Signature(); sig != (solana.Signature{}) {
				view.Signature = sig.String()
			}
			for i := range txn.Message.Instructions {
				view.Instructions = append(view.Instructions, decodeInstruction(txn, i, program))
			}

			return env.printer(cmd).print(view, func(w io.Writer) {
				fmt.Fprintf(w, "Payer:\t%s\n", view.Payer)
				fmt.Fprintf(w, "Blockhash:\t%s\n", view.Blockhash)
				fmt.Fprintf(w, "Signed:\t%t\n", view.Signed)
				for _, ix := range view.Instructions {
					fmt.Fprintf(w, "#%d\t%s\t%s\n", ix.Index, ix.Name, formatDecoded(ix))
				}
			})
		},
	}

	cmd.Flags().StringVar(&encoded, "tx", "", "base64 transaction, or - to read stdin")
	_ = cmd.MarkFlagRequired("tx")

	return cmd
}

// decodeInstruction names the instruction at idx. Instructions for programs
// other than the lock program are only labelled when they're ones this tool
// emits itself.
func decodeInstruction(txn solana.Transaction, idx int, program []byte) decodedInstruction {
	ix := txn.Message.Instructions[idx]
	decoded := decodedInstruction{
		Index: idx,
		Name:  unknownInstruction,
	}
	var programKey []byte
	if int(ix.ProgramIndex) < len(txn.Message.Accounts) {
		programKey = txn.Message.Accounts[ix.ProgramIndex]
		decoded.Program = base58.Encode(programKey)
	}

	switch {
	case computebudget.IsComputeBudgetInstruction(txn.Message, idx):
		if units, err := computebudget.ParseSetComputeUnitLimitIxnData(ix.Data); err == nil {
			decoded.Name = "set_compute_unit_limit"
			decoded.Args = map[string]interface{}{"units": units}
		} else if price, err := computebudget.ParseSetComputeUnitPriceIxnData(ix.Data); err == nil {
			decoded.Name = "set_compute_unit_price"
			decoded.Args = map[string]interface{}{"microLamports": price}
		}
	case bytes.Equal(programKey, token.AssociatedTokenAccountProgramKey):
		if create, err := token.DecompileCreateAssociatedAccount(txn.Message, idx); err == nil {
			decoded.Name = "create_associated_token_account_idempotent"
			decoded.Accounts = keys(map[string][]byte{
				"payer":   create.Payer,
				"address": create.Address,
				"owner":   create.Owner,
				"mint":    create.Mint,
			})
		}
	case bytes.Equal(programKey, program):
		decodeLockInstruction(txn, idx, &decoded)
	}

	return decoded
}

func decodeLockInstruction(txn solana.Transaction, idx int, decoded *decodedInstruction) {
	if args, accounts, err := timelockwallet.InitializeInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "initialize"
		decoded.Accounts = keys(map[string][]byte{"timeLock": accounts.TimeLock, "initializer": accounts.Initializer})
		decoded.Args = map[string]interface{}{"unlockTimestamp": args.UnlockTimestamp, "assetType": args.AssetType.String()}
		return
	}
	if args, accounts, err := timelockwallet.DepositSolInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "deposit_sol"
		decoded.Accounts = keys(map[string][]byte{"timeLock": accounts.TimeLock, "initializer": accounts.Initializer})
		decoded.Args = map[string]interface{}{"amount": args.Amount}
		return
	}
	if args, accounts, err := timelockwallet.DepositTokenInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "deposit_token"
		decoded.Accounts = keys(map[string][]byte{
			"timeLock":     accounts.TimeLock,
			"initializer":  accounts.Initializer,
			"tokenFromAta": accounts.TokenFromAta,
			"tokenVault":   accounts.TokenVault,
		})
		decoded.Args = map[string]interface{}{"amount": args.Amount}
		return
	}
	if _, accounts, err := timelockwallet.WithdrawSolInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "withdraw_sol"
		decoded.Accounts = keys(map[string][]byte{"timeLock": accounts.TimeLock, "owner": accounts.Owner})
		return
	}
	if _, accounts, err := timelockwallet.WithdrawTokenInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "withdraw_token"
		decoded.Accounts = keys(map[string][]byte{
			"timeLock":       accounts.TimeLock,
			"owner":          accounts.Owner,
			"tokenFromVault": accounts.TokenFromVault,
			"tokenToAta":     accounts.TokenToAta,
		})
		return
	}
	if _, accounts, err := timelockwallet.CloseEmptyAccountInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "close_empty_account"
		decoded.Accounts = keys(map[string][]byte{"timeLock": accounts.TimeLock, "owner": accounts.Owner})
		return
	}
	if _, accounts, err := timelockwallet.WithdrawAndCloseSolInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "withdraw_and_close_sol"
		decoded.Accounts = keys(map[string][]byte{"timeLock": accounts.TimeLock, "owner": accounts.Owner})
		return
	}
	if _, accounts, err := timelockwallet.GetWalletInfoInstructionFromLegacyInstruction(txn, idx); err == nil {
		decoded.Name = "get_wallet_info"
		decoded.Accounts = keys(map[string][]byte{"timeLock": accounts.TimeLock, "owner": accounts.Owner})
	}
}

func keys(m map[string][]byte) map[string]string {
	encoded := make(map[string]string, len(m))
	for name, key := range m {
		encoded[name] = base58.Encode(key)
	}
	return encoded
}

func formatDecoded(ix decodedInstruction) string {
	var parts []string
	for name, v := range ix.Args {
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	for name, key := range ix.Accounts {
		parts = append(parts, fmt.Sprintf("%s=%s", name, key))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
