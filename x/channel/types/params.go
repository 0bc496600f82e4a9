package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Params are the channel module parameters.
type Params struct {
	Rent                    Rent   `json:"rent"`
	MaxExpiryBlocks         uint64 `json:"max_expiry_blocks"`
	MaxInputs               uint32 `json:"max_inputs"`
	MaxInputBytes           uint32 `json:"max_input_bytes"`
	MaxCallbackAccounts     uint32 `json:"max_callback_accounts"`
	MaxCallbackPrefixBytes  uint32 `json:"max_callback_prefix_bytes"`
	MaxCommittedOutputBytes uint32 `json:"max_committed_output_bytes" rlp:"optional"`
}

// DefaultParams returns default channel parameters
func DefaultParams() Params {
	return Params{
		Rent:                    DefaultRent(),
		MaxExpiryBlocks:         432_000, // ~2 days at 400ms blocks
		MaxInputs:               16,
		MaxInputBytes:           4096,
		MaxCallbackAccounts:     16,
		MaxCallbackPrefixBytes:  64,
		MaxCommittedOutputBytes: 8192,
	}
}

func (p Params) Validate() error {
	if err := p.Rent.Validate(); err != nil {
		return fmt.Errorf("rent: %w", err)
	}
	if p.MaxExpiryBlocks == 0 {
		return fmt.Errorf("max expiry blocks must be positive")
	}
	if p.MaxInputs == 0 {
		return fmt.Errorf("max inputs must be positive")
	}
	if p.MaxCommittedOutputBytes == 0 {
		return fmt.Errorf("max committed output bytes must be positive")
	}
	if p.MaxCallbackAccounts+4 > MaxAccountsPerInstruction {
		return fmt.Errorf("max callback accounts %d exceeds instruction account limit", p.MaxCallbackAccounts)
	}
	return nil
}

// MaxAccountsPerInstruction bounds the account list of a single instruction.
const MaxAccountsPerInstruction = 64

func (p Params) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(&p)
}

func UnmarshalParams(bz []byte) (Params, error) {
	var p Params
	err := rlp.DecodeBytes(bz, &p)
	return p, err
}
