package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// processSystem executes a system program instruction. Only transfers
// between system owned accounts are supported; program owned accounts
// move lamports through their owning program.
func (k *Keeper) processSystem(inv *invocation) error {
	transfer, err := types.DecodeSystemTransfer(inv.data)
	if err != nil {
		return types.ErrInvalidInstruction.Wrap(err.Error())
	}
	if inv.numAccounts() < 2 {
		return types.ErrInvalidAccounts.Wrap("transfer needs from and to accounts")
	}
	if err := inv.requireSigner(0, "from"); err != nil {
		return err
	}
	if err := inv.requireWritable(0, "from"); err != nil {
		return err
	}
	if err := inv.requireWritable(1, "to"); err != nil {
		return err
	}

	from, err := inv.LoadAccount(0)
	if err != nil {
		return err
	}
	if from.Owner != types.SystemProgramID || len(from.Data) > 0 {
		return types.ErrInvalidAccounts.Wrapf("transfer source %s carries data", inv.address(0))
	}
	if err := k.moveLamports(inv.ctx, inv.address(0), inv.address(1), transfer.Lamports); err != nil {
		return err
	}

	inv.ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeTransfer,
			sdk.NewAttribute(types.AttributeKeyFrom, inv.address(0).String()),
			sdk.NewAttribute(types.AttributeKeyTo, inv.address(1).String()),
			sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(transfer.Lamports, 10)),
		),
	)
	return nil
}
