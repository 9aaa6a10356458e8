package token

import (
	"crypto/ed25519"
	"encoding/binary"

	bin "github.com/code-payments/timelock-wallet-client/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// COption tags are little-endian u32s.
const optionSize = 4

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	State    AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	bin.PutKey32(b, a.Mint, &offset)
	bin.PutKey32(b, a.Owner, &offset)
	bin.PutUint64(b, a.Amount, &offset)
	putOptionalKey(b, a.Delegate, &offset)
	bin.PutUint8(b, uint8(a.State), &offset)
	putOptionalUint64(b, a.IsNative, &offset)
	bin.PutUint64(b, a.DelegatedAmount, &offset)
	putOptionalKey(b, a.CloseAuthority, &offset)

	return b
}

// Unmarshal decodes an SPL token account, returning false if b is not one.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	var state uint8

	var offset int
	bin.GetKey32(b, &a.Mint, &offset)
	bin.GetKey32(b, &a.Owner, &offset)
	bin.GetUint64(b, &a.Amount, &offset)
	a.Delegate = getOptionalKey(b, &offset)
	bin.GetUint8(b, &state, &offset)
	a.IsNative = getOptionalUint64(b, &offset)
	bin.GetUint64(b, &a.DelegatedAmount, &offset)
	a.CloseAuthority = getOptionalKey(b, &offset)

	a.State = AccountState(state)
	return a.State != AccountStateUninitialized
}

func putOptionalKey(dst []byte, key ed25519.PublicKey, offset *int) {
	if len(key) > 0 {
		binary.LittleEndian.PutUint32(dst[*offset:], 1)
		copy(dst[*offset+optionSize:], key)
	}
	*offset += optionSize + ed25519.PublicKeySize
}

func getOptionalKey(src []byte, offset *int) ed25519.PublicKey {
	defer func() { *offset += optionSize + ed25519.PublicKeySize }()

	if binary.LittleEndian.Uint32(src[*offset:]) != 1 {
		return nil
	}

	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, src[*offset+optionSize:])
	return key
}

func putOptionalUint64(dst []byte, v *uint64, offset *int) {
	if v != nil {
		binary.LittleEndian.PutUint32(dst[*offset:], 1)
		binary.LittleEndian.PutUint64(dst[*offset+optionSize:], *v)
	}
	*offset += optionSize + 8
}

func getOptionalUint64(src []byte, offset *int) *uint64 {
	defer func() { *offset += optionSize + 8 }()

	if binary.LittleEndian.Uint32(src[*offset:]) != 1 {
		return nil
	}

	v := binary.LittleEndian.Uint64(src[*offset+optionSize:])
	return &v
}
