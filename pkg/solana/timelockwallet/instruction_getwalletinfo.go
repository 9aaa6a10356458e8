package timelockwallet

import (
	"crypto/ed25519"
)

var getWalletInfoInstructionDiscriminator = []byte{
	84, 88, 202, 85, 143, 168, 42, 48,
}

const (
	GetWalletInfoInstructionArgsSize = 0

	GetWalletInfoInstructionAccountsCount = 2
)

type GetWalletInfoInstructionArgs struct {
}

type GetWalletInfoInstructionAccounts struct {
	Program  ed25519.PublicKey
	TimeLock ed25519.PublicKey
	Owner    ed25519.PublicKey
}

// NewGetWalletInfoInstruction is read only. The program logs the lock's state,
// so it is only useful for simulation.
func NewGetWalletInfoInstruction(
	accounts *GetWalletInfoInstructionAccounts,
	args *GetWalletInfoInstructionArgs,
) Instruction {
	var offset int

	data := make([]byte, len(getWalletInfoInstructionDiscriminator))
	putDiscriminator(data, getWalletInfoInstructionDiscriminator, &offset)

	return Instruction{
		Program: programOrDefault(accounts.Program),
		Data:    data,
		Accounts: []AccountMeta{
			{
				PublicKey: accounts.TimeLock,
			},
			{
				PublicKey: accounts.Owner,
				IsSigner:  true,
			},
		},
	}
}

func GetWalletInfoInstructionFromBinary(data []byte) (*GetWalletInfoInstructionArgs, error) {
	if err := checkArglessData(data, getWalletInfoInstructionDiscriminator); err != nil {
		return nil, err
	}
	return &GetWalletInfoInstructionArgs{}, nil
}
