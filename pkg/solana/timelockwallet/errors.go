package timelockwallet

type TimeLockError uint32

// Anchor numbers custom errors from 6000.
const (
	// The unlock timestamp has not been reached
	ErrWithdrawalTooEarly TimeLockError = iota + 0x1770

	// Wrong asset type for the instruction
	ErrInvalidAssetType

	// The vault does not match the one stored on the lock
	ErrInvalidTokenVault

	// The unlock timestamp must be in the future
	ErrInvalidTimestamp

	// Amount must be greater than zero
	ErrInvalidAmount

	// Signer is not the lock owner
	ErrUnauthorized

	// The lock still holds funds
	ErrAccountNotEmpty

	// The lock has not been expired long enough to be force closed
	ErrTimeLockNotExpired
)

var errorNames = map[TimeLockError]string{
	ErrWithdrawalTooEarly: "WithdrawalTooEarly",
	ErrInvalidAssetType:   "InvalidAssetType",
	ErrInvalidTokenVault:  "InvalidTokenVault",
	ErrInvalidTimestamp:   "InvalidTimestamp",
	ErrInvalidAmount:      "InvalidAmount",
	ErrUnauthorized:       "Unauthorized",
	ErrAccountNotEmpty:    "AccountNotEmpty",
	ErrTimeLockNotExpired: "TimeLockNotExpired",
}

var errorMessages = map[TimeLockError]string{
	ErrWithdrawalTooEarly: "Withdrawal is not yet available. The unlock timestamp has not been reached.",
	ErrInvalidAssetType:   "Invalid asset type for this operation. Expected a different type (SOL or Token).",
	ErrInvalidTokenVault:  "Invalid token vault account. The provided vault does not match the one stored on the TimeLockAccount.",
	ErrInvalidTimestamp:   "Invalid timestamp. The unlock timestamp must be in the future.",
	ErrInvalidAmount:      "Invalid amount. Amount must be greater than zero.",
	ErrUnauthorized:       "Unauthorized. Only the owner can perform this operation.",
	ErrAccountNotEmpty:    "Account is not empty. Withdraw all funds before closing.",
	ErrTimeLockNotExpired: "Time lock has not expired long enough to be force closed.",
}

func (e TimeLockError) Error() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}
	return "unknown time lock error"
}

// ErrorName returns the program's name for a custom error code, and false
// when the code isn't one of the program's.
func ErrorName(code uint32) (string, bool) {
	name, ok := errorNames[TimeLockError(code)]
	return name, ok
}

// ErrorMessage returns the program's message for a custom error code.
func ErrorMessage(code uint32) (string, bool) {
	msg, ok := errorMessages[TimeLockError(code)]
	return msg, ok
}
