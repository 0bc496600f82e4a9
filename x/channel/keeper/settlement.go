package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// payoutTip moves exactly tip lamports from the execution account to the
// prover.
func (k *Keeper) payoutTip(inv *invocation, execIdx, proverIdx int, tip uint64) error {
	if err := inv.requireWritable(proverIdx, "prover"); err != nil {
		return err
	}
	exec, prover := inv.address(execIdx), inv.address(proverIdx)
	if err := k.moveLamports(inv.ctx, exec, prover, tip); err != nil {
		return err
	}

	inv.ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeTipPaid,
			sdk.NewAttribute(types.AttributeKeyExecution, exec.String()),
			sdk.NewAttribute(types.AttributeKeyProver, prover.String()),
			sdk.NewAttribute(types.AttributeKeyTip, strconv.FormatUint(tip, 10)),
		),
	)
	k.metrics.TipsPaid.Add(float64(tip))
	return nil
}

// cleanupExecutionAccount replaces the execution record with its terminal
// content and refunds every lamport above the rent exempt minimum of the
// new size to the requester. The account itself stays open.
func (k *Keeper) cleanupExecutionAccount(inv *invocation, execIdx, requesterIdx int, settled types.SettledExecution) (uint64, error) {
	if err := inv.requireWritable(requesterIdx, "requester"); err != nil {
		return 0, err
	}
	ctx := inv.ctx
	params, err := k.GetParams(ctx)
	if err != nil {
		return 0, err
	}

	acct, err := inv.LoadAccount(execIdx)
	if err != nil {
		return 0, err
	}
	data := settled.Encode()
	minimum := params.Rent.MinimumBalance(len(data))
	if acct.Lamports < minimum {
		return 0, types.ErrNotRentExempt.Wrapf("%s holds %d, needs %d", inv.address(execIdx), acct.Lamports, minimum)
	}

	refund := acct.Lamports - minimum
	acct.Data = data
	if err := k.SetAccount(ctx, inv.address(execIdx), acct); err != nil {
		return 0, err
	}
	if err := k.moveLamports(ctx, inv.address(execIdx), inv.address(requesterIdx), refund); err != nil {
		return 0, err
	}

	if refund > 0 {
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeRefund,
				sdk.NewAttribute(types.AttributeKeyExecution, inv.address(execIdx).String()),
				sdk.NewAttribute(types.AttributeKeyRequester, inv.address(requesterIdx).String()),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(refund, 10)),
			),
		)
	}
	return refund, nil
}
