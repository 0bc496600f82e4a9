package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Invocation is what a program sees while executing one instruction.
// Account indices refer to the instruction's account list.
type Invocation interface {
	ProgramID() Address
	Data() []byte
	Accounts() []AccountMeta
	// LoadAccount returns a copy of the account at idx. Missing accounts are
	// returned empty and system owned.
	LoadAccount(idx int) (*Account, error)
	// WriteAccountData replaces the data of a writable account owned by the
	// invoked program.
	WriteAccountData(idx int, data []byte) error
}

// Program is an on-ledger program that other programs may invoke.
type Program interface {
	Execute(ctx sdk.Context, inv Invocation) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx sdk.Context, inv Invocation) error

func (f ProgramFunc) Execute(ctx sdk.Context, inv Invocation) error {
	return f(ctx, inv)
}
