// Package system exposes the parts of the Solana system program that lock
// accounts interact with.
package system

import (
	"bytes"
	"crypto/ed25519"
)

// ProgramKey is the system program, 11111111111111111111111111111111.
var ProgramKey = make(ed25519.PublicKey, ed25519.PublicKeySize)

// IsSystemOwned reports whether owner is the system program, i.e. the account
// is a plain wallet holding only lamports.
func IsSystemOwned(owner ed25519.PublicKey) bool {
	return bytes.Equal(owner, ProgramKey)
}
