// Conversion to and from the solana package's instruction and transaction
// types.
//
// The decoders accept any program id, since the program is configurable.
// Callers that care must compare the returned accounts' Program.

package timelockwallet

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

func (i Instruction) ToLegacyInstruction() solana.Instruction {
	legacyAccountMeta := make([]solana.AccountMeta, len(i.Accounts))
	for i, accountMeta := range i.Accounts {
		legacyAccountMeta[i] = solana.AccountMeta{
			PublicKey:  accountMeta.PublicKey,
			IsSigner:   accountMeta.IsSigner,
			IsWritable: accountMeta.IsWritable,
		}
	}

	return solana.Instruction{
		Program:  programOrDefault(i.Program),
		Accounts: legacyAccountMeta,
		Data:     i.Data,
	}
}

type compiledInstruction struct {
	program  ed25519.PublicKey
	data     []byte
	accounts []ed25519.PublicKey
}

func getCompiledInstruction(txn solana.Transaction, idx int, discriminator []byte, accountsCount int) (*compiledInstruction, error) {
	if idx < 0 || idx >= len(txn.Message.Instructions) {
		return nil, ErrInvalidInstructionData
	}

	instruction := txn.Message.Instructions[idx]
	if int(instruction.ProgramIndex) >= len(txn.Message.Accounts) {
		return nil, ErrInvalidProgram
	}

	if len(instruction.Data) < discriminatorSize || !bytes.Equal(instruction.Data[:discriminatorSize], discriminator) {
		return nil, ErrInvalidInstructionData
	}

	if len(instruction.Accounts) != accountsCount {
		return nil, ErrInvalidInstructionData
	}

	accounts := make([]ed25519.PublicKey, len(instruction.Accounts))
	for i, accountIndex := range instruction.Accounts {
		if int(accountIndex) >= len(txn.Message.Accounts) {
			return nil, ErrInvalidInstructionData
		}
		accounts[i] = txn.Message.Accounts[accountIndex]
	}

	return &compiledInstruction{
		program:  txn.Message.Accounts[instruction.ProgramIndex],
		data:     instruction.Data,
		accounts: accounts,
	}, nil
}

func InitializeInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*InitializeInstructionArgs, *InitializeInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, initializeInstructionDiscriminator, InitializeInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := InitializeInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts InitializeInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Initializer = instruction.accounts[1]

	return args, &accounts, nil
}

func DepositSolInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*DepositSolInstructionArgs, *DepositSolInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, depositSolInstructionDiscriminator, DepositSolInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := DepositSolInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts DepositSolInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Initializer = instruction.accounts[1]

	return args, &accounts, nil
}

func WithdrawSolInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*WithdrawSolInstructionArgs, *WithdrawSolInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, withdrawSolInstructionDiscriminator, WithdrawSolInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := WithdrawSolInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts WithdrawSolInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Owner = instruction.accounts[1]

	return args, &accounts, nil
}

func DepositTokenInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*DepositTokenInstructionArgs, *DepositTokenInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, depositTokenInstructionDiscriminator, DepositTokenInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := DepositTokenInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts DepositTokenInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Initializer = instruction.accounts[1]
	accounts.TokenFromAta = instruction.accounts[2]
	accounts.TokenVault = instruction.accounts[3]

	return args, &accounts, nil
}

func WithdrawTokenInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*WithdrawTokenInstructionArgs, *WithdrawTokenInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, withdrawTokenInstructionDiscriminator, WithdrawTokenInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := WithdrawTokenInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts WithdrawTokenInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Owner = instruction.accounts[1]
	accounts.TokenFromVault = instruction.accounts[2]
	accounts.TokenToAta = instruction.accounts[3]

	return args, &accounts, nil
}

func CloseEmptyAccountInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*CloseEmptyAccountInstructionArgs, *CloseEmptyAccountInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, closeEmptyAccountInstructionDiscriminator, CloseEmptyAccountInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := CloseEmptyAccountInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts CloseEmptyAccountInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Owner = instruction.accounts[1]

	return args, &accounts, nil
}

func WithdrawAndCloseSolInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*WithdrawAndCloseSolInstructionArgs, *WithdrawAndCloseSolInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, withdrawAndCloseSolInstructionDiscriminator, WithdrawAndCloseSolInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := WithdrawAndCloseSolInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts WithdrawAndCloseSolInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Owner = instruction.accounts[1]

	return args, &accounts, nil
}

func GetWalletInfoInstructionFromLegacyInstruction(txn solana.Transaction, idx int) (*GetWalletInfoInstructionArgs, *GetWalletInfoInstructionAccounts, error) {
	instruction, err := getCompiledInstruction(txn, idx, getWalletInfoInstructionDiscriminator, GetWalletInfoInstructionAccountsCount)
	if err != nil {
		return nil, nil, err
	}

	args, err := GetWalletInfoInstructionFromBinary(instruction.data)
	if err != nil {
		return nil, nil, err
	}

	var accounts GetWalletInfoInstructionAccounts
	accounts.Program = instruction.program
	accounts.TimeLock = instruction.accounts[0]
	accounts.Owner = instruction.accounts[1]

	return args, &accounts, nil
}
