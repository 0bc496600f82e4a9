package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// SystemInstructionTransfer moves lamports between system owned accounts.
const SystemInstructionTransfer uint8 = 2

// SystemTransfer is the payload of SystemInstructionTransfer.
type SystemTransfer struct {
	Lamports uint64
}

// NewSystemTransferInstruction builds a transfer of lamports from from to to.
func NewSystemTransferInstruction(from, to Address, lamports uint64) Instruction {
	payload, _ := rlp.EncodeToBytes(&SystemTransfer{Lamports: lamports})
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(from, true),
			NewAccountMeta(to, false),
		},
		Data: append([]byte{SystemInstructionTransfer}, payload...),
	}
}

// DecodeSystemTransfer parses a system program transfer.
func DecodeSystemTransfer(data []byte) (*SystemTransfer, error) {
	if len(data) == 0 || data[0] != SystemInstructionTransfer {
		return nil, fmt.Errorf("unknown system instruction")
	}
	var t SystemTransfer
	if err := rlp.DecodeBytes(data[1:], &t); err != nil {
		return nil, fmt.Errorf("decode system transfer: %w", err)
	}
	return &t, nil
}
