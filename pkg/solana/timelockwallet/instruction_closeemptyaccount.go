package timelockwallet

import (
	"crypto/ed25519"
)

var closeEmptyAccountInstructionDiscriminator = []byte{
	202, 111, 6, 43, 122, 78, 218, 187,
}

const (
	CloseEmptyAccountInstructionArgsSize = 0

	CloseEmptyAccountInstructionAccountsCount = 3
)

type CloseEmptyAccountInstructionArgs struct {
}

type CloseEmptyAccountInstructionAccounts struct {
	Program  ed25519.PublicKey
	TimeLock ed25519.PublicKey
	Owner    ed25519.PublicKey
}

// NewCloseEmptyAccountInstruction closes a lock holding nothing and refunds
// its rent to the owner.
func NewCloseEmptyAccountInstruction(
	accounts *CloseEmptyAccountInstructionAccounts,
	args *CloseEmptyAccountInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte, len(closeEmptyAccountInstructionDiscriminator))
	putDiscriminator(data, closeEmptyAccountInstructionDiscriminator, &offset)

	return Instruction{
		Program:  programOrDefault(accounts.Program),
		Data:     data,
		Accounts: ownerAccounts(accounts.TimeLock, accounts.Owner),
	}
}

func CloseEmptyAccountInstructionFromBinary(data []byte) (*CloseEmptyAccountInstructionArgs, error) {
	if err := checkArglessData(data, closeEmptyAccountInstructionDiscriminator); err != nil {
		return nil, err
	}
	return &CloseEmptyAccountInstructionArgs{}, nil
}
