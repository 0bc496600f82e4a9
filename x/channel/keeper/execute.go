package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Execute account layout
const (
	execRequesterIdx = iota
	execPayerIdx
	execExecutionIdx
	execDeploymentIdx
	execCallbackProgramIdx
	execNumAccounts = execCallbackProgramIdx + 1
)

// processExecute opens a pending execution request. The execution account
// is funded with its rent exempt minimum plus the tip.
func (k *Keeper) processExecute(inv *invocation, msg *types.ExecuteV1) error {
	ctx := inv.ctx
	ctx.GasMeter().ConsumeGas(3000, "channel_execute_validation")

	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	if inv.numAccounts() < execNumAccounts {
		return types.ErrInvalidAccounts.Wrapf("execute needs %d accounts, got %d", execNumAccounts, inv.numAccounts())
	}
	if err := inv.requireSigner(execRequesterIdx, "requester"); err != nil {
		return err
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}
	height := uint64(ctx.BlockHeight())

	if msg.MaxBlockHeight <= height {
		return types.ErrInvalidExpiry.Wrapf("max block height %d is not after current height %d", msg.MaxBlockHeight, height)
	}
	if msg.MaxBlockHeight-height > params.MaxExpiryBlocks {
		return types.ErrInvalidExpiry.Wrapf("expiry window %d exceeds %d blocks", msg.MaxBlockHeight-height, params.MaxExpiryBlocks)
	}
	if err := validateInputs(msg.Inputs, params); err != nil {
		return err
	}

	deployment, err := k.loadDeployment(inv, execDeploymentIdx, msg.ImageID)
	if err != nil {
		return err
	}
	for i, in := range msg.Inputs {
		if !deployment.Accepts(in.Type) {
			return types.ErrInvalidInputs.Wrapf("input %d: type %s not accepted by image %s", i, in.Type, msg.ImageID)
		}
	}

	if err := k.validateCallbackConfig(inv, msg.Callback, params); err != nil {
		return err
	}

	requester := inv.address(execRequesterIdx)
	expected, _, err := types.ExecutionAddress(requester, msg.ExecutionID)
	if err != nil {
		return err
	}
	if inv.address(execExecutionIdx) != expected {
		return types.ErrInvalidExecutionAccount.Wrapf("expected %s, got %s", expected, inv.address(execExecutionIdx))
	}

	record := &types.ExecutionRequestV1{
		Requester:       requester,
		ExecutionID:     msg.ExecutionID,
		ImageID:         msg.ImageID,
		Inputs:          msg.Inputs,
		Tip:             msg.Tip,
		MaxBlockHeight:  msg.MaxBlockHeight,
		VerifyInputHash: msg.VerifyInputHash,
		InputDigest:     msg.InputHash,
		ForwardOutput:   msg.ForwardOutput,
		Callback:        msg.Callback,
		ProverVersion:   msg.EffectiveProverVersion(),
		CreatedAt:       height,
	}
	data, err := types.EncodeExecutionRequest(record)
	if err != nil {
		return err
	}

	rent := params.Rent.MinimumBalance(len(data))
	if rent > ^uint64(0)-msg.Tip {
		return types.ErrInvalidTip.Wrap("tip overflows account balance")
	}

	ctx.GasMeter().ConsumeGas(2000, "channel_execute_storage")
	if err := inv.createAccount(execPayerIdx, execExecutionIdx, types.ProgramID, data, rent+msg.Tip); err != nil {
		return err
	}
	k.setPendingExecution(ctx, msg.MaxBlockHeight, expected)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeExecutionRequest,
			sdk.NewAttribute(types.AttributeKeyExecution, expected.String()),
			sdk.NewAttribute(types.AttributeKeyExecutionID, msg.ExecutionID),
			sdk.NewAttribute(types.AttributeKeyRequester, requester.String()),
			sdk.NewAttribute(types.AttributeKeyImageID, msg.ImageID),
			sdk.NewAttribute(types.AttributeKeyTip, strconv.FormatUint(msg.Tip, 10)),
			sdk.NewAttribute(types.AttributeKeyMaxBlockHeight, strconv.FormatUint(msg.MaxBlockHeight, 10)),
			sdk.NewAttribute(types.AttributeKeyProverVersion, record.ProverVersion.String()),
		),
	)
	k.metrics.ExecutionsRequested.WithLabelValues(record.ProverVersion.String()).Inc()
	return nil
}

func validateInputs(inputs []types.Input, params types.Params) error {
	if uint32(len(inputs)) > params.MaxInputs {
		return types.ErrInvalidInputs.Wrapf("%d inputs exceeds limit of %d", len(inputs), params.MaxInputs)
	}
	for i, in := range inputs {
		if uint32(len(in.Data)) > params.MaxInputBytes {
			return types.ErrInvalidInputs.Wrapf("input %d is %d bytes, limit %d", i, len(in.Data), params.MaxInputBytes)
		}
	}
	return nil
}

// loadDeployment reads the deployment account at idx and checks that it is
// the one derived for imageID.
func (k *Keeper) loadDeployment(inv *invocation, idx int, imageID string) (*types.DeploymentRecordV1, error) {
	expected, _, err := types.DeploymentAddress(imageID)
	if err != nil {
		return nil, err
	}
	if inv.address(idx) != expected {
		return nil, types.ErrInvalidDeploymentAccount.Wrapf("expected %s, got %s", expected, inv.address(idx))
	}
	acct, err := inv.LoadAccount(idx)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() || acct.Owner != types.ProgramID {
		return nil, types.ErrInvalidDeploymentAccount.Wrapf("image %s is not deployed", imageID)
	}
	record, err := types.DecodeDeploymentRecord(acct.Data)
	if err != nil {
		return nil, err
	}
	if record.ImageID != imageID {
		return nil, types.ErrInvalidImageID.Wrapf("deployment holds %s", record.ImageID)
	}
	return record, nil
}

// validateCallbackConfig checks the callback declared at request time.
// The callback program account must be the configured program, or the
// channel program when no callback is configured.
func (k *Keeper) validateCallbackConfig(inv *invocation, cb *types.CallbackConfig, params types.Params) error {
	programAccount := inv.address(execCallbackProgramIdx)
	if cb == nil || cb.ProgramID.IsZero() {
		if programAccount != types.ProgramID {
			return types.ErrInvalidCallbackProgram.Wrapf("no callback configured, expected channel program at index %d", execCallbackProgramIdx)
		}
		return nil
	}
	if cb.ProgramID == types.ProgramID || cb.ProgramID == types.SystemProgramID {
		return types.ErrInvalidCallbackProgram.Wrapf("%s cannot be a callback program", cb.ProgramID)
	}
	if programAccount != cb.ProgramID {
		return types.ErrInvalidCallbackProgram.Wrapf("expected %s, got %s", cb.ProgramID, programAccount)
	}
	if _, ok := k.program(cb.ProgramID); !ok {
		return types.ErrInvalidCallbackProgram.Wrapf("program %s is not loaded", cb.ProgramID)
	}
	if len(cb.InstructionPrefix) == 0 {
		return types.ErrInvalidCallbackProgram.Wrap("callback program set without an instruction prefix")
	}
	if uint32(len(cb.InstructionPrefix)) > params.MaxCallbackPrefixBytes {
		return types.ErrInvalidCallbackProgram.Wrapf("instruction prefix of %d bytes exceeds %d", len(cb.InstructionPrefix), params.MaxCallbackPrefixBytes)
	}
	if uint32(len(cb.ExtraAccounts)) > params.MaxCallbackAccounts {
		return types.ErrInvalidCallbackExtraAccounts.Wrapf("%d extra accounts exceeds %d", len(cb.ExtraAccounts), params.MaxCallbackAccounts)
	}
	return nil
}
