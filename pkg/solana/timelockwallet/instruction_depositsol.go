package timelockwallet

import (
	"bytes"
	"crypto/ed25519"
)

var depositSolInstructionDiscriminator = []byte{
	108, 81, 78, 117, 125, 155, 56, 200,
}

const (
	DepositSolInstructionArgsSize = 8 // amount

	DepositSolInstructionAccountsCount = 3
)

type DepositSolInstructionArgs struct {
	Amount uint64
}

type DepositSolInstructionAccounts struct {
	Program     ed25519.PublicKey
	TimeLock    ed25519.PublicKey
	Initializer ed25519.PublicKey
}

func NewDepositSolInstruction(
	accounts *DepositSolInstructionAccounts,
	args *DepositSolInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte,
		len(depositSolInstructionDiscriminator)+
			DepositSolInstructionArgsSize)

	putDiscriminator(data, depositSolInstructionDiscriminator, &offset)
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
				PublicKey: SYSTEM_PROGRAM_ID,
			},
		},
	}
}

func DepositSolInstructionFromBinary(data []byte) (*DepositSolInstructionArgs, error) {
	var offset int
	var discriminator []byte

	if len(data) != len(depositSolInstructionDiscriminator)+DepositSolInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, depositSolInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args DepositSolInstructionArgs
	getUint64(data, &args.Amount, &offset)

	return &args, nil
}
