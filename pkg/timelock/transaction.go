package timelock

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/computebudget"
	"github.com/code-payments/timelock-wallet-client/pkg/wallet"
)

// Assemble compiles instructions into an unsigned transaction paid for by
// feePayer, stamped with a freshly fetched blockhash. Compute budget
// instructions configured on the client are prepended; the caller's
// instructions keep their order.
func (c *Client) Assemble(ctx context.Context, feePayer ed25519.PublicKey, instructions ...solana.Instruction) (*solana.Transaction, error) {
	if err := validateKey("fee_payer", feePayer); err != nil {
		return nil, err
	}
	if len(instructions) == 0 {
		return nil, &ValidationError{Field: "instructions", Reason: "at least one instruction is required"}
	}

	ixns := append(c.computeBudgetInstructions(), instructions...)

	txn := solana.NewTransaction(feePayer, ixns...)
	if size := len(txn.Marshal()); size > solana.MaxTransactionSize {
		return nil, errors.Wrapf(solana.ErrTransactionTooLarge, "%d > %d", size, solana.MaxTransactionSize)
	}

	bh, err := c.rpc.GetLatestBlockhash(ctx, c.conf.commitment)
	if err != nil {
		return nil, newNetworkError("get latest blockhash", err)
	}
	txn.SetBlockhash(bh)

	return &txn, nil
}

// computeBudgetInstructions are the instructions Assemble prepends to every
// transaction.
func (c *Client) computeBudgetInstructions() []solana.Instruction {
	var ixns []solana.Instruction
	if c.conf.unitLimit > 0 {
		ixns = append(ixns, computebudget.SetComputeUnitLimit(c.conf.unitLimit))
	}
	if c.conf.unitPrice > 0 {
		ixns = append(ixns, computebudget.SetComputeUnitPrice(c.conf.unitPrice))
	}
	return ixns
}

// Sign signs each transaction with the connected wallet, batched when the
// wallet supports it.
func (c *Client) Sign(ctx context.Context, txns ...*solana.Transaction) error {
	if !c.canSign() {
		return ErrWalletCannotSign
	}

	if err := wallet.SignAll(ctx, c.wallet, txns); err != nil {
		if errors.Is(err, wallet.ErrCannotSign) {
			return ErrWalletCannotSign
		}
		return errors.Wrap(err, "failed to sign transaction")
	}
	return nil
}

// Submit sends a signed transaction once. A preflight rejection is returned
// as a ProgramError or *solana.TransactionError; anything else as a
// NetworkError. The returned signature identifies the transaction even on
// failure.
func (c *Client) Submit(ctx context.Context, txn *solana.Transaction) (solana.Signature, error) {
	if !txn.IsFullySigned() {
		return solana.Signature{}, ErrTransactionUnsigned
	}
	if err := txn.Validate(); err != nil {
		return txn.Signature(), err
	}

	sig, err := c.rpc.SubmitTransaction(ctx, *txn, c.conf.commitment)
	if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			return sig, classifyTransactionError(txErr)
		}
		return sig, newNetworkError("submit transaction", err)
	}

	return sig, nil
}

// AwaitConfirmation waits up to the configured timeout for sig to reach
// commitment. ErrConfirmationTimeout means the outcome is unknown.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature, commitment solana.Commitment) error {
	ctx, cancel := context.WithTimeout(ctx, c.conf.confirmTimeout)
	defer cancel()

	_, err := c.rpc.AwaitSignatureStatus(ctx, sig, commitment, c.conf.pollInterval)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, solana.ErrConfirmationTimeout):
		return ErrConfirmationTimeout
	case errors.Is(err, context.Canceled):
		return errors.Wrap(err, "stopped waiting for confirmation")
	}

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		return classifyTransactionError(txErr)
	}
	return newNetworkError("await confirmation", err)
}

// Execute assembles, signs, submits and confirms instructions, paid for by
// the connected wallet.
func (c *Client) Execute(ctx context.Context, instructions ...solana.Instruction) (solana.Signature, error) {
	payer, err := c.owner()
	if err != nil {
		return solana.Signature{}, err
	}
	if !c.canSign() {
		return solana.Signature{}, ErrWalletCannotSign
	}

	txn, err := c.Assemble(ctx, payer, instructions...)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := c.Sign(ctx, txn); err != nil {
		return solana.Signature{}, err
	}

	log := c.log.WithFields(logrus.Fields{
		"method":    "Execute",
		"signature": txn.Signature().String(),
		"payer":     base58.Encode(payer),
	})

	sig, err := c.Submit(ctx, txn)
	if err != nil {
		log.WithError(err).Debug("transaction rejected")
		return sig, c.relativeProgramError(err)
	}

	if err := c.AwaitConfirmation(ctx, sig, c.conf.commitment); err != nil {
		if IsUnknownOutcome(err) {
			log.Warn("transaction outcome unknown")
		} else {
			log.WithError(err).Debug("transaction failed")
		}
		return sig, c.relativeProgramError(err)
	}

	log.Debug("transaction confirmed")
	return sig, nil
}

// relativeProgramError rebases a ProgramError's index onto the instructions
// passed to Execute, which don't include the compute budget prefix.
func (c *Client) relativeProgramError(err error) error {
	var programErr *ProgramError
	if !errors.As(err, &programErr) {
		return err
	}

	prefix := len(c.computeBudgetInstructions())
	if programErr.InstructionIndex < prefix {
		return err
	}

	rebased := *programErr
	rebased.InstructionIndex -= prefix
	return &rebased
}
