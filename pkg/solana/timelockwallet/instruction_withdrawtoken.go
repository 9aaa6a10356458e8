package timelockwallet

import (
	"crypto/ed25519"
)

var withdrawTokenInstructionDiscriminator = []byte{
	136, 235, 181, 5, 101, 109, 57, 81,
}

const (
	WithdrawTokenInstructionArgsSize = 0

	WithdrawTokenInstructionAccountsCount = 5
)

type WithdrawTokenInstructionArgs struct {
}

type WithdrawTokenInstructionAccounts struct {
	Program        ed25519.PublicKey
	TimeLock       ed25519.PublicKey
	Owner          ed25519.PublicKey
	TokenFromVault ed25519.PublicKey
	TokenToAta     ed25519.PublicKey
}

// NewWithdrawTokenInstruction sends the full vault balance to the owner's
// associated account and closes the lock. The destination must exist.
func NewWithdrawTokenInstruction(
	accounts *WithdrawTokenInstructionAccounts,
	args *WithdrawTokenInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte, len(withdrawTokenInstructionDiscriminator))
	putDiscriminator(data, withdrawTokenInstructionDiscriminator, &offset)

	return Instruction{
		Program: programOrDefault(accounts.Program),
		Data:    data,
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.TimeLock,
				IsWritable: true,
			},
			{
				PublicKey:  accounts.Owner,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.TokenFromVault,
				IsWritable: true,
			},
			{
				PublicKey:  accounts.TokenToAta,
				IsWritable: true,
			},
			{
				PublicKey: SPL_TOKEN_PROGRAM_ID,
			},
		},
	}
}

func WithdrawTokenInstructionFromBinary(data []byte) (*WithdrawTokenInstructionArgs, error) {
	if err := checkArglessData(data, withdrawTokenInstructionDiscriminator); err != nil {
		return nil, err
	}
	return &WithdrawTokenInstructionArgs{}, nil
}
