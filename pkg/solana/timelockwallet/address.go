package timelockwallet

import (
	"crypto/ed25519"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/token"
)

var (
	timeLockPrefix = []byte("time_lock")
)

type GetTimeLockAddressArgs struct {
	Owner           ed25519.PublicKey
	UnlockTimestamp int64
	Program         ed25519.PublicKey // optional, defaults to PROGRAM_ID
}

// GetTimeLockAddress derives the lock account for an owner and unlock time.
// Every distinct unlock timestamp is a distinct lock.
func GetTimeLockAddress(args *GetTimeLockAddressArgs) (ed25519.PublicKey, uint8, error) {
	unlockTimestamp := make([]byte, 8)
	var offset int
	putInt64(unlockTimestamp, args.UnlockTimestamp, &offset)

	return solana.FindProgramAddressAndBump(
		programOrDefault(args.Program),
		timeLockPrefix,
		args.Owner,
		unlockTimestamp,
	)
}

// GetTokenVaultAddress returns the vault holding a token lock's funds, which
// is the associated token account of the lock for mint.
func GetTokenVaultAddress(timeLock, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(timeLock, mint)
}
