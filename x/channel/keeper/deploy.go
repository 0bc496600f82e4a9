package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Deploy account layout
const (
	deployDeployerIdx = iota
	deployPayerIdx
	deployDeploymentIdx
	deployNumAccounts = deployDeploymentIdx + 1
)

// processDeploy records a guest image so executions can reference it.
func (k *Keeper) processDeploy(inv *invocation, msg *types.DeployV1) error {
	ctx := inv.ctx
	ctx.GasMeter().ConsumeGas(2000, "channel_deploy_validation")

	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	if inv.numAccounts() < deployNumAccounts {
		return types.ErrInvalidAccounts.Wrapf("deploy needs %d accounts, got %d", deployNumAccounts, inv.numAccounts())
	}
	if err := inv.requireSigner(deployDeployerIdx, "deployer"); err != nil {
		return err
	}

	expected, _, err := types.DeploymentAddress(msg.ImageID)
	if err != nil {
		return err
	}
	if inv.address(deployDeploymentIdx) != expected {
		return types.ErrInvalidDeploymentAccount.Wrapf("expected %s, got %s", expected, inv.address(deployDeploymentIdx))
	}
	existing, err := inv.LoadAccount(deployDeploymentIdx)
	if err != nil {
		return err
	}
	if existing.Exists() {
		return types.ErrAlreadyDeployed.Wrapf("image %s", msg.ImageID)
	}

	record := &types.DeploymentRecordV1{
		Owner:              inv.address(deployDeployerIdx),
		ImageID:            msg.ImageID,
		ImageSize:          msg.ImageSize,
		ProgramName:        msg.ProgramName,
		URL:                msg.URL,
		AcceptedInputTypes: msg.AcceptedInputTypes,
		DeployedAt:         uint64(ctx.BlockHeight()),
	}
	data, err := types.EncodeDeploymentRecord(record)
	if err != nil {
		return err
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}

	ctx.GasMeter().ConsumeGas(1000, "channel_deploy_storage")
	if err := inv.createAccount(deployPayerIdx, deployDeploymentIdx, types.ProgramID, data, params.Rent.MinimumBalance(len(data))); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDeploy,
			sdk.NewAttribute(types.AttributeKeyImageID, msg.ImageID),
			sdk.NewAttribute(types.AttributeKeyDeployment, expected.String()),
			sdk.NewAttribute("program_name", msg.ProgramName),
			sdk.NewAttribute("image_size", strconv.FormatUint(msg.ImageSize, 10)),
		),
	)
	k.Logger(ctx).Info("image deployed", "image_id", msg.ImageID, "deployment", expected.String())
	return nil
}
