package keeper

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
	"github.com/zkchannel/zkchannel/x/channel/zkproof"
)

// Status account layout. Accounts from statusExtraAccountsIdx on are the
// declared callback extra accounts.
const (
	statusRequesterIdx = iota
	statusExecutionIdx
	statusCallbackProgramIdx
	statusProverIdx
	statusExtraAccountsIdx
)

// Gas charged for proof verification
const verifyProofGas = 150_000

// processStatus settles a pending execution. Every outcome shrinks the
// execution account to its terminal record and refunds the excess to the
// requester. Only a verified proof pays the tip and runs the callback.
func (k *Keeper) processStatus(inv *invocation, msg *types.StatusV1) error {
	ctx := inv.ctx
	ctx.GasMeter().ConsumeGas(2000, "channel_status_validation")

	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	if inv.numAccounts() < statusExtraAccountsIdx {
		return types.ErrInvalidAccounts.Wrapf("status needs at least %d accounts, got %d", statusExtraAccountsIdx, inv.numAccounts())
	}
	if err := inv.requireWritable(statusRequesterIdx, "requester"); err != nil {
		return err
	}
	if err := inv.requireWritable(statusExecutionIdx, "execution"); err != nil {
		return err
	}
	if err := inv.requireSigner(statusProverIdx, "prover"); err != nil {
		return err
	}
	if err := inv.requireWritable(statusProverIdx, "prover"); err != nil {
		return err
	}

	req, err := k.loadPendingExecution(inv, statusExecutionIdx, statusRequesterIdx, msg.ExecutionID)
	if err != nil {
		return err
	}
	height := uint64(ctx.BlockHeight())
	if req.IsExpired(height) {
		return types.ErrExecutionExpired.Wrapf("height %d past max block height %d", height, req.MaxBlockHeight)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}
	outcome, err := k.verifyStatus(ctx, params, req, msg)
	if err != nil {
		return err
	}

	settled := types.SettledExecution{ExitCode: outcome}
	if outcome == types.ExitCodeSuccess {
		if req.HasCallback() {
			if err := k.validateCallbackAccounts(inv, req); err != nil {
				return err
			}
			k.invokeCallback(inv, req, msg)
		}
		if err := k.payoutTip(inv, statusExecutionIdx, statusProverIdx, req.Tip); err != nil {
			return err
		}
		settled.InputDigest = msg.InputDigest
	}

	refund, err := k.cleanupExecutionAccount(inv, statusExecutionIdx, statusRequesterIdx, settled)
	if err != nil {
		return err
	}
	k.deletePendingExecution(ctx, req.MaxBlockHeight, inv.address(statusExecutionIdx))

	attrs := []sdk.Attribute{
		sdk.NewAttribute(types.AttributeKeyExecution, inv.address(statusExecutionIdx).String()),
		sdk.NewAttribute(types.AttributeKeyExecutionID, req.ExecutionID),
		sdk.NewAttribute(types.AttributeKeyProver, inv.address(statusProverIdx).String()),
		sdk.NewAttribute(types.AttributeKeyExitCode, outcome.String()),
		sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(refund, 10)),
	}
	if outcome == types.ExitCodeSuccess {
		attrs = append(attrs, sdk.NewAttribute(types.AttributeKeyInputDigest, hex.EncodeToString(msg.InputDigest)))
	}
	ctx.EventManager().EmitEvent(sdk.NewEvent(types.EventTypeStatusUpdate, attrs...))

	k.metrics.Settlements.WithLabelValues(outcome.String(), req.ProverVersion.String()).Inc()
	k.Logger(ctx).Info("execution settled",
		"execution", inv.address(statusExecutionIdx).String(),
		"exit_code", outcome.String(),
		"refund", refund,
	)
	return nil
}

// verifyStatus decides the terminal exit code for a status update. The
// only hard failure is an input digest that contradicts the requester's
// precommitment.
func (k *Keeper) verifyStatus(ctx sdk.Context, params types.Params, req *types.ExecutionRequestV1, msg *types.StatusV1) (types.ExitCode, error) {
	proofLen := req.ProverVersion.ProofLength()
	hasProof := proofLen > 0 && len(msg.Proof) == proofLen
	complete := hasProof &&
		len(msg.ExecutionDigest) == types.DigestLength &&
		len(msg.AssumptionDigest) == types.DigestLength &&
		len(msg.InputDigest) == types.DigestLength &&
		uint32(len(msg.CommittedOutputs)) <= params.MaxCommittedOutputBytes
	if !complete {
		return types.ExitCodeProvingError, nil
	}

	if req.VerifyInputHash && !bytes.Equal(req.InputDigest, msg.InputDigest) {
		return 0, types.ErrInputsDontMatch.Wrapf("proved %x, committed %x", msg.InputDigest, req.InputDigest)
	}

	output, err := zkproof.OutputDigest(req.ProverVersion, msg.InputDigest, msg.CommittedOutputs, msg.AssumptionDigest)
	if err != nil {
		return types.ExitCodeProvingError, nil
	}
	inputs, err := zkproof.PrepareInputs(req.ProverVersion, req.ImageID, msg.ExecutionDigest, output, msg.ExitCodeSystem, msg.ExitCodeUser)
	if err != nil {
		return types.ExitCodeProvingError, nil
	}

	ctx.GasMeter().ConsumeGas(verifyProofGas, "channel_proof_verification")
	start := time.Now()
	verified, err := k.verifier.Verify(req.ProverVersion, msg.Proof, inputs)
	k.metrics.VerificationTime.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	if !verified {
		return types.ExitCodeVerifyError, nil
	}
	return types.ExitCodeSuccess, nil
}
