// Package wallet models the external wallet as a fixed set of capabilities
// that are resolved once, when the wallet is opened.
package wallet

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

var (
	ErrCannotSign           = errors.New("wallet cannot sign transactions")
	ErrNotTransactionSigner = errors.New("wallet key is not a signer of the transaction")
)

// Capabilities are what a connected wallet can do. They never change for the
// lifetime of the wallet.
type Capabilities struct {
	CanSign    bool
	CanSignAll bool

	// HasStaticPayer is set when PublicKey can pay for and own the wallet's
	// transactions. Wallets without it can't originate locks.
	HasStaticPayer bool
}

// Wallet is a connected wallet identity.
type Wallet interface {
	PublicKey() ed25519.PublicKey
	Capabilities() Capabilities
}

// Signer is implemented by wallets that can sign a single transaction.
type Signer interface {
	SignTransaction(ctx context.Context, txn *solana.Transaction) error
}

// BatchSigner is implemented by wallets that can sign several transactions
// in one request.
type BatchSigner interface {
	SignAllTransactions(ctx context.Context, txns []*solana.Transaction) error
}

// Connector opens a wallet.
type Connector interface {
	Connect(ctx context.Context) (Wallet, error)
}

// ConnectorFunc adapts a function to a Connector.
type ConnectorFunc func(ctx context.Context) (Wallet, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Wallet, error) {
	return f(ctx)
}

type connected struct {
	Wallet
	pub  ed25519.PublicKey
	caps Capabilities
}

func (c *connected) PublicKey() ed25519.PublicKey {
	return c.pub
}

func (c *connected) Capabilities() Capabilities {
	return c.caps
}

// SignTransaction and SignAllTransactions are promoted only when the
// capability was granted at connection time.
func (c *connected) SignTransaction(ctx context.Context, txn *solana.Transaction) error {
	s, ok := c.Wallet.(Signer)
	if !ok || !c.caps.CanSign {
		return ErrCannotSign
	}
	return s.SignTransaction(ctx, txn)
}

func (c *connected) SignAllTransactions(ctx context.Context, txns []*solana.Transaction) error {
	s, ok := c.Wallet.(BatchSigner)
	if !ok || !c.caps.CanSignAll {
		return ErrCannotSign
	}
	return s.SignAllTransactions(ctx, txns)
}

// Connect opens the wallet and fixes its identity and capabilities. A
// capability the wallet claims but doesn't implement is dropped.
func Connect(ctx context.Context, connector Connector) (Wallet, error) {
	w, err := connector.Connect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect wallet")
	}
	if w == nil {
		return nil, errors.New("connector returned no wallet")
	}

	pub, err := solana.NormalizePublicKey(w.PublicKey())
	if err != nil {
		return nil, errors.Wrap(err, "wallet returned an invalid public key")
	}

	caps := w.Capabilities()
	if _, ok := w.(Signer); !ok {
		caps.CanSign = false
	}
	if _, ok := w.(BatchSigner); !ok {
		caps.CanSignAll = false
	}

	return &connected{
		Wallet: w,
		pub:    pub,
		caps:   caps,
	}, nil
}

// AsSigner returns the wallet's signer when it has the capability.
func AsSigner(w Wallet) (Signer, bool) {
	if !w.Capabilities().CanSign {
		return nil, false
	}
	s, ok := w.(Signer)
	return s, ok
}

// AsBatchSigner returns the wallet's batch signer when it has the capability.
func AsBatchSigner(w Wallet) (BatchSigner, bool) {
	if !w.Capabilities().CanSignAll {
		return nil, false
	}
	s, ok := w.(BatchSigner)
	return s, ok
}

// SignAll signs every transaction, in one request when the wallet supports
// it and one by one otherwise.
func SignAll(ctx context.Context, w Wallet, txns []*solana.Transaction) error {
	if s, ok := AsBatchSigner(w); ok {
		return s.SignAllTransactions(ctx, txns)
	}

	s, ok := AsSigner(w)
	if !ok {
		return ErrCannotSign
	}

	for i, txn := range txns {
		if err := s.SignTransaction(ctx, txn); err != nil {
			return errors.Wrapf(err, "failed to sign transaction %d", i)
		}
	}

	return nil
}
