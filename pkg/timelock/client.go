// Package timelock is the client for the time-locked wallet program. It
// validates inputs, builds instructions, assembles and submits transactions
// through a connected wallet, and reads lock state back from the chain.
package timelock

import (
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/wallet"
)

var ErrNoWallet = errors.New("no wallet connected")

type Option func(*Client)

// WithClock overrides the time source used for validation and unlock checks.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.conf.clock = clock
	}
}

type Client struct {
	log    *logrus.Entry
	rpc    solana.Client
	wallet wallet.Wallet
	conf   *resolvedConfig
}

// New returns a client bound to rpc. The wallet may be nil, in which case
// only queries and pure derivations are available.
func New(rpc solana.Client, w wallet.Wallet, cfg Config, opts ...Option) (*Client, error) {
	if rpc == nil {
		return nil, errors.New("rpc client is required")
	}

	conf, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	c := &Client{
		log:    logrus.StandardLogger().WithField("type", "timelock/client"),
		rpc:    rpc,
		wallet: w,
		conf:   conf,
	}
	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// ProgramID returns the program the client targets.
func (c *Client) ProgramID() ed25519.PublicKey {
	return c.conf.program
}

func (c *Client) Commitment() solana.Commitment {
	return c.conf.commitment
}

// Wallet returns the connected wallet, or nil.
func (c *Client) Wallet() wallet.Wallet {
	return c.wallet
}

func (c *Client) Now() time.Time {
	return c.conf.clock()
}

// owner is the wallet identity, which owns every lock and pays every fee.
func (c *Client) owner() (ed25519.PublicKey, error) {
	if c.wallet == nil {
		return nil, ErrNoWallet
	}
	if !c.wallet.Capabilities().HasStaticPayer {
		return nil, ErrWalletCannotPay
	}
	return c.wallet.PublicKey(), nil
}

func (c *Client) canSign() bool {
	if c.wallet == nil {
		return false
	}
	caps := c.wallet.Capabilities()
	return caps.CanSign || caps.CanSignAll
}
