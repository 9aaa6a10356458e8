package timelock

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/solana/timelockwallet"
)

var (
	// ErrConfirmationTimeout means the outcome of a submitted transaction is
	// unknown. It may still land; callers should query the lock before
	// acting again.
	ErrConfirmationTimeout = solana.ErrConfirmationTimeout

	ErrLockNotFound        = errors.New("time lock account not found")
	ErrWalletCannotSign    = errors.New("wallet cannot sign transactions")
	ErrWalletCannotPay     = errors.New("wallet has no fee payer identity")
	ErrAirdropUnsupported  = errors.New("airdrops are only available on test clusters")
	ErrNotLockAccount      = errors.New("account is not a time lock account")
	ErrTransactionUnsigned = solana.ErrTransactionNotSigned
)

// ValidationError is returned before any network call when an input is
// rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError wraps a failed RPC round trip.
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ProgramError is a custom error code returned by the instruction at
// InstructionIndex. Submit and AwaitConfirmation index into the assembled
// transaction; Execute and the operations built on it index into the
// instructions they were given. Name is empty for codes the program doesn't
// document.
type ProgramError struct {
	Code             uint32
	Name             string
	InstructionIndex int
}

func (e *ProgramError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("instruction %d failed with custom program error 0x%x", e.InstructionIndex, e.Code)
	}

	msg, _ := timelockwallet.ErrorMessage(e.Code)
	return fmt.Sprintf("instruction %d failed with %s (%d): %s", e.InstructionIndex, e.Name, e.Code, msg)
}

// IsUnknownOutcome reports whether err leaves the transaction's fate
// undetermined.
func IsUnknownOutcome(err error) bool {
	return errors.Is(err, ErrConfirmationTimeout)
}

// classifyTransactionError turns a custom instruction error into a
// ProgramError. Any other error is returned as is.
func classifyTransactionError(err error) error {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return err
	}

	ixErr := txErr.InstructionError()
	if ixErr == nil {
		return txErr
	}

	custom := ixErr.CustomError()
	if custom == nil {
		return txErr
	}

	name, _ := timelockwallet.ErrorName(uint32(*custom))
	return &ProgramError{
		Code:             uint32(*custom),
		Name:             name,
		InstructionIndex: ixErr.Index,
	}
}

func newNetworkError(op string, err error) error {
	if err == nil {
		return nil
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	return &NetworkError{Op: op, Cause: err}
}
