package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Claim account layout
const (
	claimExecutionIdx = iota
	claimRequesterIdx
	claimClaimIdx
	claimClaimerIdx
	claimPayerIdx
	claimNumAccounts = claimPayerIdx + 1
)

// processClaim gives the signing prover exclusive rights to an execution.
// Exclusivity comes from creating the derived claim account: a second
// claim finds it already present.
func (k *Keeper) processClaim(inv *invocation, msg *types.ClaimV1) error {
	ctx := inv.ctx
	ctx.GasMeter().ConsumeGas(2000, "channel_claim_validation")

	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	if inv.numAccounts() < claimNumAccounts {
		return types.ErrInvalidAccounts.Wrapf("claim needs %d accounts, got %d", claimNumAccounts, inv.numAccounts())
	}
	if err := inv.requireSigner(claimClaimerIdx, "claimer"); err != nil {
		return err
	}

	execAddr := inv.address(claimExecutionIdx)
	req, err := k.loadPendingExecution(inv, claimExecutionIdx, claimRequesterIdx, msg.ExecutionID)
	if err != nil {
		return err
	}
	height := uint64(ctx.BlockHeight())
	if req.IsExpired(height) {
		return types.ErrExecutionExpired.Wrapf("height %d past max block height %d", height, req.MaxBlockHeight)
	}

	claimAddr, _, err := types.ExecutionClaimAddress(execAddr)
	if err != nil {
		return err
	}
	if inv.address(claimClaimIdx) != claimAddr {
		return types.ErrInvalidClaimAccount.Wrapf("expected %s, got %s", claimAddr, inv.address(claimClaimIdx))
	}
	existing, err := inv.LoadAccount(claimClaimIdx)
	if err != nil {
		return err
	}
	if existing.Exists() {
		k.metrics.ClaimConflicts.Inc()
		return types.ErrExecutionAlreadyClaimed.Wrapf("%s", execAddr)
	}

	claimer := inv.address(claimClaimerIdx)
	data, err := types.EncodeClaimRecord(&types.ClaimRecordV1{
		Execution:       execAddr,
		Claimer:         claimer,
		ClaimedAt:       height,
		BlockCommitment: msg.BlockCommitment,
	})
	if err != nil {
		return err
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}
	if err := inv.createAccount(claimPayerIdx, claimClaimIdx, types.ProgramID, data, params.Rent.MinimumBalance(len(data))); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeExecutionClaimed,
			sdk.NewAttribute(types.AttributeKeyExecution, execAddr.String()),
			sdk.NewAttribute(types.AttributeKeyExecutionID, msg.ExecutionID),
			sdk.NewAttribute(types.AttributeKeyClaimer, claimer.String()),
			sdk.NewAttribute("claimed_at", strconv.FormatUint(height, 10)),
		),
	)
	k.metrics.Claims.Inc()
	return nil
}

// loadPendingExecution checks that the account at execIdx is the execution
// account of the requester at requesterIdx and still pending.
func (k *Keeper) loadPendingExecution(inv *invocation, execIdx, requesterIdx int, executionID string) (*types.ExecutionRequestV1, error) {
	expected, _, err := types.ExecutionAddress(inv.address(requesterIdx), executionID)
	if err != nil {
		return nil, err
	}
	if inv.address(execIdx) != expected {
		return nil, types.ErrInvalidExecutionAccount.Wrapf("expected %s, got %s", expected, inv.address(execIdx))
	}
	acct, err := inv.LoadAccount(execIdx)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() || acct.Owner != types.ProgramID {
		return nil, types.ErrInvalidExecutionAccount.Wrapf("%s is not an execution account", expected)
	}
	parsed, err := types.ParseExecutionAccount(acct.Data)
	if err != nil {
		return nil, err
	}
	if !parsed.IsPending() {
		return nil, types.ErrInvalidExecutionAccount.Wrapf("%s already settled with %s", expected, parsed.Settled.ExitCode)
	}
	return parsed.Pending, nil
}
