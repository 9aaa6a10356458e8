package timelock

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/computebudget"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultCommitment     = "confirmed"
)

// Config configures a Client. Zero values are replaced by the defaults in
// DefaultConfig when the client is created.
type Config struct {
	// ProgramID is the base58 address of the time lock program.
	ProgramID string `mapstructure:"program_id"`

	Commitment     string        `mapstructure:"commitment"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`

	// ComputeUnitPrice is the priority fee in micro-lamports per compute
	// unit. Zero adds no compute budget instruction.
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`

	// Cluster gates airdrops. An empty value means unknown, which refuses them.
	Cluster solana.Cluster `mapstructure:"cluster"`

	Clock func() time.Time `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		ProgramID:      base58.Encode(timelockwallet.PROGRAM_ADDRESS),
		Commitment:     DefaultCommitment,
		ConfirmTimeout: DefaultConfirmTimeout,
		PollInterval:   solana.PollRate,
		Clock:          time.Now,
	}
}

type resolvedConfig struct {
	program        ed25519.PublicKey
	commitment     solana.Commitment
	confirmTimeout time.Duration
	pollInterval   time.Duration
	unitPrice      uint64
	unitLimit      uint32
	cluster        solana.Cluster
	clock          func() time.Time
}

func (c Config) resolve() (*resolvedConfig, error) {
	defaults := DefaultConfig()

	if c.ProgramID == "" {
		c.ProgramID = defaults.ProgramID
	}
	if c.Commitment == "" {
		c.Commitment = defaults.Commitment
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaults.ConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.Clock == nil {
		c.Clock = defaults.Clock
	}

	program, err := solana.ParsePublicKey(c.ProgramID)
	if err != nil {
		return nil, &ValidationError{Field: "program_id", Reason: err.Error()}
	}

	commitment, err := solana.ParseCommitment(c.Commitment)
	if err != nil {
		return nil, &ValidationError{Field: "commitment", Reason: err.Error()}
	}

	if c.ComputeUnitLimit > computebudget.MaxComputeUnitLimit {
		return nil, &ValidationError{Field: "compute_unit_limit", Reason: "exceeds the per transaction maximum"}
	}

	return &resolvedConfig{
		program:        program,
		commitment:     commitment,
		confirmTimeout: c.ConfirmTimeout,
		pollInterval:   c.PollInterval,
		unitPrice:      c.ComputeUnitPrice,
		unitLimit:      c.ComputeUnitLimit,
		cluster:        c.Cluster,
		clock:          c.Clock,
	}, nil
}
