package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"

	sologo "github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

// Keypair is a wallet backed by an in-memory private key.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewKeypair wraps a private key after checking that its embedded public key
// matches its seed.
func NewKeypair(priv ed25519.PrivateKey) (*Keypair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid private key length: %d", len(priv))
	}

	derived := ed25519.NewKeyFromSeed(priv.Seed())
	if !bytes.Equal(derived, priv) {
		return nil, errors.New("private key does not match its public key")
	}

	return &Keypair{
		priv: derived,
		pub:  derived.Public().(ed25519.PublicKey),
	}, nil
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return NewKeypair(priv)
}

// FromKeygenFile loads a keypair written by `solana-keygen`, which is a JSON
// array of the 64 private key bytes.
func FromKeygenFile(path string) (*Keypair, error) {
	priv, err := sologo.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load keypair from %s", path)
	}

	return NewKeypair(ed25519.PrivateKey(priv))
}

// FromBase58 decodes a base58 encoded 64 byte private key.
func FromBase58(s string) (*Keypair, error) {
	priv, err := sologo.PrivateKeyFromBase58(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 private key")
	}

	return NewKeypair(ed25519.PrivateKey(priv))
}

// KeygenFileConnector opens a keypair file on connect.
func KeygenFileConnector(path string) Connector {
	return ConnectorFunc(func(context.Context) (Wallet, error) {
		return FromKeygenFile(path)
	})
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.pub
}

func (k *Keypair) PrivateKey() ed25519.PrivateKey {
	return k.priv
}

func (k *Keypair) Capabilities() Capabilities {
	return Capabilities{
		CanSign:        true,
		CanSignAll:     true,
		HasStaticPayer: true,
	}
}

// SignTransaction adds the keypair's signature. The keypair must be one of
// the transaction's signers.
func (k *Keypair) SignTransaction(_ context.Context, txn *solana.Transaction) error {
	for _, signer := range txn.Signers() {
		if bytes.Equal(signer, k.pub) {
			return txn.Sign(k.priv)
		}
	}

	return ErrNotTransactionSigner
}

func (k *Keypair) SignAllTransactions(ctx context.Context, txns []*solana.Transaction) error {
	for i, txn := range txns {
		if err := k.SignTransaction(ctx, txn); err != nil {
			return errors.Wrapf(err, "failed to sign transaction %d", i)
		}
	}
	return nil
}
