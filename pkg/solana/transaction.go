package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrTransactionTooLarge = errors.New("transaction exceeds max size")
	ErrMissingBlockhash    = errors.New("transaction has no recent blockhash")
	ErrMissingSignature    = errors.New("transaction is missing a required signature")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

// SignatureFromBase58 decodes a base58 transaction signature.
func SignatureFromBase58(s string) (sig Signature, err error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return sig, errors.Wrap(err, "invalid base58 signature")
	}
	if len(decoded) != len(sig) {
		return sig, errors.Errorf("invalid signature length: %d", len(decoded))
	}

	copy(sig[:], decoded)
	return sig, nil
}

// BlockhashFromBase58 decodes a base58 blockhash.
func BlockhashFromBase58(s string) (hash Blockhash, err error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return hash, errors.Wrap(err, "invalid base58 blockhash")
	}
	if len(decoded) != len(hash) {
		return hash, errors.Errorf("invalid blockhash length: %d", len(decoded))
	}

	copy(hash[:], decoded)
	return hash, nil
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles the instructions into an unsigned legacy transaction
// paid for by payer. Instructions execute atomically in the order provided.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	m := compileMessage(payer, instructions)

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// Signature returns the transaction's identifying signature, which is the
// fee payer's.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// Payer returns the fee payer.
func (t *Transaction) Payer() ed25519.PublicKey {
	if len(t.Message.Accounts) == 0 {
		return nil
	}
	return t.Message.Accounts[0]
}

// Signers returns the accounts that must sign the transaction, in signature
// order.
func (t *Transaction) Signers() []ed25519.PublicKey {
	n := int(t.Message.Header.NumSignatures)
	if n > len(t.Message.Accounts) {
		n = len(t.Message.Accounts)
	}
	return t.Message.Accounts[:n]
}

// IsFullySigned reports whether every required signature is present.
func (t *Transaction) IsFullySigned() bool {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return false
	}
	for _, s := range t.Signatures {
		if s == (Signature{}) {
			return false
		}
	}
	return true
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign signs the message with each of the provided keys. Keys may be provided
// in any order, and a subset of the required signers may sign at a time.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)
		index := indexOf(t.Message.Accounts, pub)
		if index < 0 {
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		}
		if index >= len(t.Signatures) {
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(s, messageBytes))
	}

	return nil
}

// Validate checks that the transaction can be submitted as is.
func (t *Transaction) Validate() error {
	if t.Message.RecentBlockhash == (Blockhash{}) {
		return ErrMissingBlockhash
	}
	if !t.IsFullySigned() {
		return ErrMissingSignature
	}
	if size := len(t.Marshal()); size > MaxTransactionSize {
		return errors.Wrapf(ErrTransactionTooLarge, "%d > %d", size, MaxTransactionSize)
	}
	return nil
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, s))
	}
	sb.WriteString("Message:\n")
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("    NumReadOnlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString(fmt.Sprintf("  RecentBlockhash: %s\n", t.Message.RecentBlockhash))
	sb.WriteString("  Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s\n", i, base58.Encode(a)))
	}
	sb.WriteString("  Instructions:\n")
	for i, ix := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d:\n", i))
		sb.WriteString(fmt.Sprintf("      ProgramIndex: %d\n", ix.ProgramIndex))
		sb.WriteString(fmt.Sprintf("      Accounts: %v\n", ix.Accounts))
		sb.WriteString(fmt.Sprintf("      Data: %v\n", ix.Data))
	}
	return sb.String()
}
