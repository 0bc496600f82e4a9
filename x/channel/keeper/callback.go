package keeper

import (
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// callbackGasLimit caps the gas a callback may burn.
const callbackGasLimit = 200_000

// validateCallbackAccounts checks the runtime accounts of a status update
// against the callback declared in the request: the program at its fixed
// index and the extra accounts in count, order, address and writability.
func (k *Keeper) validateCallbackAccounts(inv *invocation, req *types.ExecutionRequestV1) error {
	cb := req.Callback
	if got := inv.address(statusCallbackProgramIdx); got != cb.ProgramID {
		return types.ErrInvalidCallbackProgram.Wrapf("expected %s at index %d, got %s", cb.ProgramID, statusCallbackProgramIdx, got)
	}

	extras := inv.metas[statusExtraAccountsIdx:]
	if len(extras) != len(cb.ExtraAccounts) {
		return types.ErrInvalidCallbackExtraAccounts.Wrapf("declared %d extra accounts, got %d", len(cb.ExtraAccounts), len(extras))
	}
	for i, declared := range cb.ExtraAccounts {
		if extras[i].Address != declared.Address {
			return types.ErrInvalidCallbackExtraAccounts.Wrapf("extra account %d: expected %s, got %s", i, declared.Address, extras[i].Address)
		}
		if extras[i].IsWritable != declared.Writable {
			return types.ErrInvalidCallbackExtraAccounts.Wrapf("extra account %d: writable mismatch", i)
		}
	}
	return nil
}

// callbackPayload is the instruction prefix, followed by the input digest
// and committed outputs when the request forwards output.
func callbackPayload(req *types.ExecutionRequestV1, msg *types.StatusV1) []byte {
	prefix := req.Callback.InstructionPrefix
	if !req.ForwardOutput {
		return append([]byte(nil), prefix...)
	}
	out := make([]byte, 0, len(prefix)+len(msg.InputDigest)+len(msg.CommittedOutputs))
	out = append(out, prefix...)
	out = append(out, msg.InputDigest...)
	return append(out, msg.CommittedOutputs...)
}

// invokeCallback calls the configured program with the execution account
// as a read-only signer followed by the declared extra accounts. The call
// runs on a cached branch that is only written on success; failures are
// logged and reported but never abort settlement.
func (k *Keeper) invokeCallback(inv *invocation, req *types.ExecutionRequestV1, msg *types.StatusV1) {
	ctx := inv.ctx
	execAddr := inv.address(statusExecutionIdx)
	programID := req.Callback.ProgramID

	err := k.callProgram(inv, req, msg, execAddr)
	if err == nil {
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeCallback,
				sdk.NewAttribute(types.AttributeKeyExecution, execAddr.String()),
				sdk.NewAttribute(types.AttributeKeyCallback, programID.String()),
			),
		)
		return
	}

	k.Logger(ctx).Error("callback failed",
		"execution", execAddr.String(),
		"program", programID.String(),
		"error", err,
	)
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeCallbackFailed,
			sdk.NewAttribute(types.AttributeKeyExecution, execAddr.String()),
			sdk.NewAttribute(types.AttributeKeyCallback, programID.String()),
			sdk.NewAttribute(types.AttributeKeyError, err.Error()),
		),
	)
	k.metrics.CallbackFailures.WithLabelValues(programID.String()).Inc()
}

func (k *Keeper) callProgram(inv *invocation, req *types.ExecutionRequestV1, msg *types.StatusV1, execAddr types.Address) (err error) {
	if inv.depth+1 > maxInvocationDepth {
		return fmt.Errorf("invocation depth %d exceeded", maxInvocationDepth)
	}
	authority, derived, err := NewExecutionAuthority(req.Requester, req.ExecutionID)
	if err != nil {
		return err
	}
	if derived != execAddr {
		return types.ErrInvalidProgramAuthority.Wrapf("execution account %s", execAddr)
	}
	signer, err := authority.SignerFor(execAddr)
	if err != nil {
		return err
	}

	metas := make([]types.AccountMeta, 0, 1+len(req.Callback.ExtraAccounts))
	metas = append(metas, signer)
	for _, extra := range req.Callback.ExtraAccounts {
		metas = append(metas, types.AccountMeta{Address: extra.Address, IsWritable: extra.Writable})
	}

	meter := storetypes.NewGasMeter(callbackGasLimit)
	defer func() {
		inv.ctx.GasMeter().ConsumeGas(meter.GasConsumedToLimit(), "channel_callback")
		if r := recover(); r != nil {
			switch gas := r.(type) {
			case storetypes.ErrorOutOfGas:
				err = fmt.Errorf("callback out of gas in %s", gas.Descriptor)
			case storetypes.ErrorGasOverflow:
				err = fmt.Errorf("callback gas overflow in %s", gas.Descriptor)
			default:
				panic(r)
			}
		}
	}()

	cacheCtx, write := inv.ctx.CacheContext()
	cacheCtx = cacheCtx.WithGasMeter(meter)
	callee := &invocation{
		k:         k,
		ctx:       cacheCtx,
		programID: req.Callback.ProgramID,
		metas:     metas,
		data:      callbackPayload(req, msg),
		depth:     inv.depth + 1,
	}
	if err := k.execute(callee); err != nil {
		return err
	}
	write()
	return nil
}
