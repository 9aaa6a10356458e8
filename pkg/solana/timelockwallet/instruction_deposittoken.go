package timelockwallet

import (
	"bytes"
	"crypto/ed25519"
)

var depositTokenInstructionDiscriminator = []byte{
	11, 156, 96, 218, 39, 163, 180, 19,
}

const (
	DepositTokenInstructionArgsSize = 8 // amount

	DepositTokenInstructionAccountsCount = 5
)

type DepositTokenInstructionArgs struct {
	Amount uint64
}

type DepositTokenInstructionAccounts struct {
	Program      ed25519.PublicKey
	TimeLock     ed25519.PublicKey
	Initializer  ed25519.PublicKey
	TokenFromAta ed25519.PublicKey
	TokenVault   ed25519.PublicKey
}

// NewDepositTokenInstruction moves tokens from the initializer's associated
// account into the lock's vault. The vault must already exist.
func NewDepositTokenInstruction(
	accounts *DepositTokenInstructionAccounts,
	args *DepositTokenInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte,
		len(depositTokenInstructionDiscriminator)+
			DepositTokenInstructionArgsSize)

	putDiscriminator(data, depositTokenInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return Instruction{
		Program: programOrDefault(accounts.Program),
		Data:    data,
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.TimeLock,
				IsWritable: true,
			},
			{
				PublicKey:  accounts.Initializer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.TokenFromAta,
				IsWritable: true,
			},
			{
				PublicKey:  accounts.TokenVault,
				IsWritable: true,
			},
			{
				PublicKey: SPL_TOKEN_PROGRAM_ID,
			},
		},
	}
}

func DepositTokenInstructionFromBinary(data []byte) (*DepositTokenInstructionArgs, error) {
	var offset int
	var discriminator []byte

	if len(data) != len(depositTokenInstructionDiscriminator)+DepositTokenInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, depositTokenInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args DepositTokenInstructionArgs
	getUint64(data, &args.Amount, &offset)

	return &args, nil
}
