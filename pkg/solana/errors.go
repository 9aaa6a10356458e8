package solana

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey is the string key returned in a transaction error.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorAlreadyProcessed        TransactionErrorKey = "AlreadyProcessed"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorInvalidAccountForFee    TransactionErrorKey = "InvalidAccountForFee"
	TransactionErrorMissingSignatureForFee  TransactionErrorKey = "MissingSignatureForFee"
	TransactionErrorProgramAccountNotFound  TransactionErrorKey = "ProgramAccountNotFound"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
	TransactionErrorSanitizeFailure         TransactionErrorKey = "SanitizeFailure"
)

// InstructionErrorKey is the string key returned in an instruction error.
//
// Source: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/instruction.rs#L23
type InstructionErrorKey string

const (
	InstructionErrorGenericError              InstructionErrorKey = "GenericError"
	InstructionErrorInvalidArgument           InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData    InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidAccountData        InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInsufficientFunds         InstructionErrorKey = "InsufficientFunds"
	InstructionErrorIncorrectProgramID        InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorMissingRequiredSignature  InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInitialized InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorUninitializedAccount      InstructionErrorKey = "UninitializedAccount"
	InstructionErrorNotEnoughAccountKeys      InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorCustom                    InstructionErrorKey = "Custom"
)

// CustomError is the numerical error returned by a non-system program.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", uint32(c))
}

// InstructionError indicates an instruction returned an error in a transaction.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	if i.Err == nil {
		return ""
	}
	if _, ok := i.Err.(CustomError); ok {
		return InstructionErrorCustom
	}
	return InstructionErrorKey(i.Err.Error())
}

// CustomError returns the program specific error code, if any.
func (i InstructionError) CustomError() *CustomError {
	if ce, ok := i.Err.(CustomError); ok {
		return &ce
	}
	return nil
}

func (i InstructionError) Unwrap() error {
	return i.Err
}

// TransactionError contains the transaction error details, as reported by a
// confirmed status or a failed preflight simulation.
type TransactionError struct {
	key         TransactionErrorKey
	instruction *InstructionError
	logs        []string
	raw         interface{}
}

// NewTransactionError returns an error for the key.
func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{
		key: key,
		raw: string(key),
	}
}

// NewCustomInstructionError returns an InstructionError wrapped transaction
// error carrying a program specific code.
func NewCustomInstructionError(index int, code uint32) *TransactionError {
	return &TransactionError{
		key: TransactionErrorInstructionError,
		instruction: &InstructionError{
			Index: index,
			Err:   CustomError(code),
		},
		raw: map[string]interface{}{
			string(TransactionErrorInstructionError): []interface{}{index, map[string]interface{}{"Custom": code}},
		},
	}
}

func (t TransactionError) Error() string {
	if t.instruction != nil {
		return t.instruction.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instruction
}

// Logs returns the program logs attached to a failed simulation, if any.
func (t TransactionError) Logs() []string {
	return t.logs
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// ParseRPCError extracts the transaction error from a failed
// sendTransaction/simulateTransaction response. It returns nil if the RPC
// error is unrelated to transaction execution.
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, nil
	}

	raw, ok := data["err"]
	if !ok || raw == nil {
		return nil, nil
	}

	txErr, parseErr := ParseTransactionError(raw)
	if txErr != nil {
		if logs, ok := data["logs"].([]interface{}); ok {
			for _, l := range logs {
				if s, ok := l.(string); ok {
					txErr.logs = append(txErr.logs, s)
				}
			}
		}
	}

	return txErr, parseErr
}

// ParseTransactionError parses the JSON error returned from the "err" field
// of signature statuses and simulation results.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		if len(t) != 1 {
			return &TransactionError{key: "Unknown", raw: raw}, errors.Errorf("invalid transaction error size: %d", len(t))
		}

		for k, v := range t {
			if k != string(TransactionErrorInstructionError) {
				return &TransactionError{key: TransactionErrorKey(k), raw: raw}, nil
			}

			instructionErr, err := parseInstructionError(v)
			if err != nil {
				return &TransactionError{key: TransactionErrorInstructionError, raw: raw}, errors.Wrap(err, "failed to parse instruction error")
			}

			return &TransactionError{
				key:         TransactionErrorInstructionError,
				instruction: &instructionErr,
				raw:         raw,
			}, nil
		}
	}

	return nil, errors.Errorf("unhandled transaction error type %T", raw)
}

func parseInstructionError(v interface{}) (e InstructionError, err error) {
	values, ok := v.([]interface{})
	if !ok {
		return e, errors.New("unexpected instruction error format")
	}
	if len(values) != 2 {
		return e, errors.Errorf("unexpected InstructionError tuple size: %d", len(values))
	}

	if e.Index, err = parseJSONNumber(values[0]); err != nil {
		return e, err
	}

	switch t := values[1].(type) {
	case string:
		e.Err = errors.New(t)
	case map[string]interface{}:
		if len(t) != 1 {
			return e, errors.Errorf("invalid instruction error size: %d", len(t))
		}

		for k, v := range t {
			if k != string(InstructionErrorCustom) {
				e.Err = errors.New(k)
				break
			}

			code, err := parseJSONNumber(v)
			if err != nil {
				return e, errors.Wrap(err, "invalid custom error code")
			}
			e.Err = CustomError(uint32(code))
		}
	default:
		return e, errors.Errorf("unhandled instruction error type %T", values[1])
	}

	return e, nil
}

func parseJSONNumber(v interface{}) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, errors.Errorf("non integer value: %v", v)
		}
		return int(n), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value: %v", v)
		}
		return int(n), nil
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case uint32:
		return int(t), nil
	}

	return 0, errors.Errorf("non numeric value: %v", v)
}
