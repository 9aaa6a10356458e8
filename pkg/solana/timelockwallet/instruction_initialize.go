package timelockwallet

import (
	"bytes"
	"crypto/ed25519"
)

var initializeInstructionDiscriminator = []byte{
	175, 175, 109, 31, 13, 152, 155, 237,
}

const (
	InitializeInstructionArgsSize = (8 + // unlock_timestamp
		1) // asset_type

	InitializeInstructionAccountsCount = 3
)

type InitializeInstructionArgs struct {
	UnlockTimestamp int64
	AssetType       AssetType
}

type InitializeInstructionAccounts struct {
	Program     ed25519.PublicKey
	TimeLock    ed25519.PublicKey
	Initializer ed25519.PublicKey
}

// NewInitializeInstruction creates the lock account. The initializer pays for
// it and becomes the owner.
func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte,
		len(initializeInstructionDiscriminator)+
			InitializeInstructionArgsSize)

	putDiscriminator(data, initializeInstructionDiscriminator, &offset)
	putInt64(data, args.UnlockTimestamp, &offset)
	putAssetType(data, args.AssetType, &offset)

	return Instruction{
		Program: programOrDefault(accounts.Program),

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.TimeLock,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Initializer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func InitializeInstructionFromBinary(data []byte) (*InitializeInstructionArgs, error) {
	var offset int
	var discriminator []byte

	if len(data) != len(initializeInstructionDiscriminator)+InitializeInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args InitializeInstructionArgs
	getInt64(data, &args.UnlockTimestamp, &offset)
	getAssetType(data, &args.AssetType, &offset)
	if !args.AssetType.IsValid() {
		return nil, ErrInvalidInstructionData
	}

	return &args, nil
}
