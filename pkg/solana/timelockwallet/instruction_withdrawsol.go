package timelockwallet

import (
	"crypto/ed25519"
)

var withdrawSolInstructionDiscriminator = []byte{
	145, 131, 74, 136, 65, 137, 42, 38,
}

const (
	WithdrawSolInstructionArgsSize = 0

	WithdrawSolInstructionAccountsCount = 3
)

type WithdrawSolInstructionArgs struct {
}

type WithdrawSolInstructionAccounts struct {
	Program  ed25519.PublicKey
	TimeLock ed25519.PublicKey
	Owner    ed25519.PublicKey
}

// NewWithdrawSolInstruction releases every lamport held by an unlocked SOL
// lock to its owner.
func NewWithdrawSolInstruction(
	accounts *WithdrawSolInstructionAccounts,
	args *WithdrawSolInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte, len(withdrawSolInstructionDiscriminator))
	putDiscriminator(data, withdrawSolInstructionDiscriminator, &offset)

	return Instruction{
		Program:  programOrDefault(accounts.Program),
		Data:     data,
		Accounts: ownerAccounts(accounts.TimeLock, accounts.Owner),
	}
}

func WithdrawSolInstructionFromBinary(data []byte) (*WithdrawSolInstructionArgs, error) {
	if err := checkArglessData(data, withdrawSolInstructionDiscriminator); err != nil {
		return nil, err
	}
	return &WithdrawSolInstructionArgs{}, nil
}

// ownerAccounts is the account list shared by the SOL withdraw and close
// instructions.
func ownerAccounts(timeLock, owner ed25519.PublicKey) []AccountMeta {
	return []AccountMeta{
		{
			PublicKey:  timeLock,
			IsWritable: true,
			IsSigner:   false,
		},
		{
			PublicKey:  owner,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  SYSTEM_PROGRAM_ID,
			IsWritable: false,
			IsSigner:   false,
		},
	}
}
