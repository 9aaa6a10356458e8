package computebudget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/timelock-wallet-client/pkg/solana"
)

// ProgramKey is the compute budget program.
//
// Current key: ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

// MaxComputeUnitLimit is the per transaction ceiling enforced by the runtime.
const MaxComputeUnitLimit = 1_400_000

const (
	commandRequestUnits uint8 = iota
	commandRequestHeapFrame
	commandSetComputeUnitLimit
	commandSetComputeUnitPrice
)

var ErrInvalidInstructionData = errors.New("invalid compute budget instruction data")

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = commandSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee, in micro-lamports per compute
// unit.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = commandSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)

	return solana.NewInstruction(ProgramKey, data)
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	if len(data) != 1+4 || data[0] != commandSetComputeUnitLimit {
		return 0, ErrInvalidInstructionData
	}

	return binary.LittleEndian.Uint32(data[1:]), nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	if len(data) != 1+8 || data[0] != commandSetComputeUnitPrice {
		return 0, ErrInvalidInstructionData
	}

	return binary.LittleEndian.Uint64(data[1:]), nil
}

// IsComputeBudgetInstruction reports whether the compiled instruction at index
// targets the compute budget program.
func IsComputeBudgetInstruction(m solana.Message, index int) bool {
	if index < 0 || index >= len(m.Instructions) {
		return false
	}

	programIndex := int(m.Instructions[index].ProgramIndex)
	if programIndex >= len(m.Accounts) {
		return false
	}

	return bytes.Equal(m.Accounts[programIndex], ProgramKey)
}
