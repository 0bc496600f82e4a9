package keeper

import (
	"fmt"
	"runtime/debug"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// maxInvocationDepth bounds nested program calls.
const maxInvocationDepth = 4

// ProcessInstruction executes one top level instruction. signers holds the
// addresses whose signatures were verified for the enclosing transaction.
// State changes are written to ctx directly; callers that need atomicity
// across instructions run this inside ctx.CacheContext().
func (k *Keeper) ProcessInstruction(ctx sdk.Context, ix types.Instruction, signers map[types.Address]bool) error {
	if len(ix.Accounts) > types.MaxAccountsPerInstruction {
		return types.ErrInvalidAccounts.Wrapf("%d accounts exceeds limit of %d", len(ix.Accounts), types.MaxAccountsPerInstruction)
	}
	for _, meta := range ix.Accounts {
		if meta.IsSigner && !signers[meta.Address] {
			return types.ErrMissingSignature.Wrapf("%s", meta.Address)
		}
	}

	inv := &invocation{
		k:         k,
		ctx:       ctx,
		programID: ix.ProgramID,
		metas:     ix.Accounts,
		data:      ix.Data,
	}
	return k.execute(inv)
}

func (k *Keeper) execute(inv *invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = k.recoverPanic(inv.ctx, inv.programID, r)
		}
	}()

	switch inv.programID {
	case types.SystemProgramID:
		return k.processSystem(inv)
	case types.ProgramID:
		return k.processChannel(inv)
	}
	p, ok := k.program(inv.programID)
	if !ok {
		return types.ErrUnknownProgram.Wrapf("%s", inv.programID)
	}
	return p.Execute(inv.ctx, inv)
}

// recoverPanic turns a program panic into an error. Out of gas panics are
// re-raised so the gas meter owner can account for them.
func (k *Keeper) recoverPanic(ctx sdk.Context, programID types.Address, r interface{}) error {
	switch r.(type) {
	case storetypes.ErrorOutOfGas, storetypes.ErrorGasOverflow:
		panic(r)
	}
	k.Logger(ctx).Error("panic recovered",
		"program", programID.String(),
		"panic", fmt.Sprintf("%v", r),
		"stack_trace", string(debug.Stack()),
	)
	k.metrics.PanicRecoveries.Inc()
	return fmt.Errorf("panic in program %s: %v", programID, r)
}

// processChannel decodes and dispatches a channel program instruction.
func (k *Keeper) processChannel(inv *invocation) error {
	ix, err := types.DecodeInstruction(inv.data)
	if err != nil {
		k.metrics.Instructions.WithLabelValues("unknown", "invalid").Inc()
		return err
	}

	switch msg := ix.(type) {
	case *types.DeployV1:
		err = k.processDeploy(inv, msg)
	case *types.ExecuteV1:
		err = k.processExecute(inv, msg)
	case *types.ClaimV1:
		err = k.processClaim(inv, msg)
	case *types.StatusV1:
		err = k.processStatus(inv, msg)
	default:
		err = types.ErrInvalidInstruction.Wrapf("unhandled instruction %T", ix)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	k.metrics.Instructions.WithLabelValues(ix.Kind().String(), result).Inc()
	return err
}
