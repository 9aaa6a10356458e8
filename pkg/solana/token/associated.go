package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey is the address of the associated token account program that should be used.
//
// Current key: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

const (
	commandCreate uint8 = iota
	commandCreateIdempotent
)

// GetAssociatedAccount returns the associated account address for an SPL
// token. The wallet may itself be a program derived address.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		AssociatedTokenAccountProgramKey,
		wallet,
		ProgramKey,
		mint,
	)
}

// CreateAssociatedTokenAccountIdempotent creates the associated account for
// wallet unless it already exists, in which case the instruction is a no-op.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/associated-token-account-v1.1.0/associated-token-account/program/src/instruction.rs#L29
func CreateAssociatedTokenAccountIdempotent(payer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	addr, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		[]byte{commandCreateIdempotent},
		solana.NewAccountMeta(payer, true),
		solana.NewAccountMeta(addr, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey, false),
		solana.NewReadonlyAccountMeta(ProgramKey, false),
	), addr, nil
}

type DecompiledCreateAssociatedAccount struct {
	Payer   ed25519.PublicKey
	Address ed25519.PublicKey
	Owner   ed25519.PublicKey
	Mint    ed25519.PublicKey
}

// DecompileCreateAssociatedAccount parses an idempotent create instruction at
// index in the message.
func DecompileCreateAssociatedAccount(m solana.Message, index int) (*DecompiledCreateAssociatedAccount, error) {
	ix, err := m.DecompileInstruction(index)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(ix.Program, AssociatedTokenAccountProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if !bytes.Equal(ix.Data, []byte{commandCreateIdempotent}) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(ix.Accounts) != 6 {
		return nil, errors.Errorf("invalid number of accounts: %d (expected %d)", len(ix.Accounts), 6)
	}
	if !bytes.Equal(ix.Accounts[4].PublicKey, system.ProgramKey) {
		return nil, errors.New("system program key mismatch")
	}
	if !bytes.Equal(ix.Accounts[5].PublicKey, ProgramKey) {
		return nil, errors.New("token program key mismatch")
	}

	return &DecompiledCreateAssociatedAccount{
		Payer:   ix.Accounts[0].PublicKey,
		Address: ix.Accounts[1].PublicKey,
		Owner:   ix.Accounts[2].PublicKey,
		Mint:    ix.Accounts[3].PublicKey,
	}, nil
}
