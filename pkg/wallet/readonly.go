package wallet

import (
	"crypto/ed25519"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

// ReadOnly is a watch-only wallet. It can pay for (and so build) transactions
// but not sign them, which suits queries and exporting unsigned transactions.
type ReadOnly struct {
	pub ed25519.PublicKey
}

func NewReadOnly(pub interface{}) (*ReadOnly, error) {
	normalized, err := solana.NormalizePublicKey(pub)
	if err != nil {
		return nil, err
	}

	return &ReadOnly{pub: normalized}, nil
}

func (r *ReadOnly) PublicKey() ed25519.PublicKey {
	return r.pub
}

func (r *ReadOnly) Capabilities() Capabilities {
	return Capabilities{HasStaticPayer: true}
}
