package timelockwallet

import (
	"crypto/ed25519"
)

var withdrawAndCloseSolInstructionDiscriminator = []byte{
	183, 27, 30, 22, 224, 6, 199, 192,
}

const (
	WithdrawAndCloseSolInstructionArgsSize = 0

	WithdrawAndCloseSolInstructionAccountsCount = 3
)

type WithdrawAndCloseSolInstructionArgs struct {
}

type WithdrawAndCloseSolInstructionAccounts struct {
	Program  ed25519.PublicKey
	TimeLock ed25519.PublicKey
	Owner    ed25519.PublicKey
}

// NewWithdrawAndCloseSolInstruction withdraws the balance and closes the lock
// in one instruction.
func NewWithdrawAndCloseSolInstruction(
	accounts *WithdrawAndCloseSolInstructionAccounts,
	args *WithdrawAndCloseSolInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte, len(withdrawAndCloseSolInstructionDiscriminator))
	putDiscriminator(data, withdrawAndCloseSolInstructionDiscriminator, &offset)

	return Instruction{
		Program:  programOrDefault(accounts.Program),
		Data:     data,
		Accounts: ownerAccounts(accounts.TimeLock, accounts.Owner),
	}
}

func WithdrawAndCloseSolInstructionFromBinary(data []byte) (*WithdrawAndCloseSolInstructionArgs, error) {
	if err := checkArglessData(data, withdrawAndCloseSolInstructionDiscriminator); err != nil {
		return nil, err
	}
	return &WithdrawAndCloseSolInstructionArgs{}, nil
}
