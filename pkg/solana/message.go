package solana

import (
	"bytes"
	"crypto/ed25519"
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta represents the account information required
// for building transactions.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	isPayer   bool
	isProgram bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// Instruction represents a transaction instruction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction represents an instruction that has been compiled into a
// message, referencing accounts by their index in Message.Accounts.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a legacy Solana message. Versioned messages (and therefore
// address lookup tables) are not supported.
type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

// accountLess orders accounts according to the runtime's rules:
//  1. The payer is always the first account.
//  2. Signers before non-signers.
//  3. Writable before read-only, within each signer group.
//  4. Program accounts that aren't otherwise referenced go last.
//
// Ties are broken by the key itself so compilation is deterministic.
//
// Reference: https://docs.solana.com/developing/programming-model/transactions#account-addresses-format
func accountLess(a, b AccountMeta) bool {
	if a.isPayer != b.isPayer {
		return a.isPayer
	}
	if a.isProgram != b.isProgram {
		return !a.isProgram
	}
	if a.IsSigner != b.IsSigner {
		return a.IsSigner
	}
	if a.IsWritable != b.IsWritable {
		return a.IsWritable
	}
	return bytes.Compare(a.PublicKey, b.PublicKey) < 0
}

// compileMessage produces a legacy message for the instructions, which are
// kept in exactly the order provided.
func compileMessage(payer ed25519.PublicKey, instructions []Instruction) Message {
	accounts := []AccountMeta{
		{
			PublicKey:  payer,
			IsSigner:   true,
			IsWritable: true,
			isPayer:    true,
		},
	}
	for _, ix := range instructions {
		accounts = append(accounts, ix.Accounts...)
		accounts = append(accounts, AccountMeta{
			PublicKey: ix.Program,
			isProgram: true,
		})
	}

	accounts = mergeAccounts(accounts)
	sort.SliceStable(accounts, func(i, j int) bool {
		return accountLess(accounts[i], accounts[j])
	})

	var m Message
	for _, account := range accounts {
		key := account.PublicKey
		if len(key) == 0 {
			key = make([]byte, ed25519.PublicKeySize)
		}
		m.Accounts = append(m.Accounts, key)

		switch {
		case account.IsSigner && !account.IsWritable:
			m.Header.NumSignatures++
			m.Header.NumReadonlySigned++
		case account.IsSigner:
			m.Header.NumSignatures++
		case !account.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, ix.Program)),
			Data:         ix.Data,
			Accounts:     make([]byte, len(ix.Accounts)),
		}
		for i, a := range ix.Accounts {
			compiled.Accounts[i] = byte(indexOf(m.Accounts, a.PublicKey))
		}

		m.Instructions = append(m.Instructions, compiled)
	}

	return m
}

// mergeAccounts removes duplicate keys, promoting the permissions of the first
// occurrence to the union of all occurrences.
func mergeAccounts(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))

	for _, account := range accounts {
		found := false
		for j := range merged {
			if !bytes.Equal(zeroIfEmpty(account.PublicKey), zeroIfEmpty(merged[j].PublicKey)) {
				continue
			}

			merged[j].IsSigner = merged[j].IsSigner || account.IsSigner
			merged[j].IsWritable = merged[j].IsWritable || account.IsWritable
			merged[j].isPayer = merged[j].isPayer || account.isPayer

			// An account that is also used as a regular account is not
			// sorted as a program.
			merged[j].isProgram = merged[j].isProgram && account.isProgram
			found = true
			break
		}

		if !found {
			merged = append(merged, account)
		}
	}

	return merged
}

// IsSigner reports whether the account at index is required to sign.
func (m Message) IsSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

// IsWritable reports whether the account at index is writable.
func (m Message) IsWritable(index int) bool {
	if index < int(m.Header.NumSignatures) {
		return index < int(m.Header.NumSignatures-m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

// DecompileInstruction rebuilds the Instruction at index, restoring the
// signer and writable flags from the message header.
func (m Message) DecompileInstruction(index int) (Instruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return Instruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	compiled := m.Instructions[index]
	if int(compiled.ProgramIndex) >= len(m.Accounts) {
		return Instruction{}, errors.Errorf("program index out of range: %d", compiled.ProgramIndex)
	}

	ix := Instruction{
		Program:  m.Accounts[compiled.ProgramIndex],
		Data:     compiled.Data,
		Accounts: make([]AccountMeta, len(compiled.Accounts)),
	}
	for i, accountIndex := range compiled.Accounts {
		if int(accountIndex) >= len(m.Accounts) {
			return Instruction{}, errors.Errorf("account index out of range: %d", accountIndex)
		}

		ix.Accounts[i] = AccountMeta{
			PublicKey:  m.Accounts[accountIndex],
			IsSigner:   m.IsSigner(int(accountIndex)),
			IsWritable: m.IsWritable(int(accountIndex)),
		}
	}

	return ix, nil
}

func zeroIfEmpty(key ed25519.PublicKey) ed25519.PublicKey {
	if len(key) == 0 {
		return make([]byte, ed25519.PublicKeySize)
	}
	return key
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	item = zeroIfEmpty(item)
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
