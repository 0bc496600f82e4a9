package keeper

import (
	"context"

	"cosmossdk.io/store/prefix"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

func (k *Keeper) setPendingExecution(ctx context.Context, maxBlockHeight uint64, addr types.Address) {
	k.getStore(ctx).Set(PendingExecutionKey(maxBlockHeight, addr), []byte{})
}

func (k *Keeper) deletePendingExecution(ctx context.Context, maxBlockHeight uint64, addr types.Address) {
	k.getStore(ctx).Delete(PendingExecutionKey(maxBlockHeight, addr))
}

// PendingExecution is a pending request together with its account address
// and claim state.
type PendingExecution struct {
	Address types.Address             `json:"address"`
	Request *types.ExecutionRequestV1 `json:"request"`
	Claim   *types.ClaimRecordV1      `json:"claim,omitempty"`
}

// PendingExecutions lists pending executions that can still settle at
// height, soonest expiry first, up to limit entries (0 means no limit).
func (k *Keeper) PendingExecutions(ctx context.Context, height uint64, limit int) ([]PendingExecution, error) {
	store := prefix.NewStore(k.getStore(ctx), PendingExecutionKeyPrefix)
	// Entries expiring before height are skipped by starting the scan there.
	start := PendingExecutionKey(height, types.Address{})[len(PendingExecutionKeyPrefix):]
	iter := store.Iterator(start, nil)
	defer iter.Close()

	var out []PendingExecution
	for ; iter.Valid(); iter.Next() {
		_, addr := parsePendingExecutionKey(iter.Key())
		view, err := k.GetExecution(ctx, addr)
		if err != nil {
			return nil, err
		}
		if !view.State.IsPending() {
			continue
		}
		out = append(out, PendingExecution{Address: addr, Request: view.State.Pending, Claim: view.Claim})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ExecutionView is the queryable state of one execution account.
type ExecutionView struct {
	Address  types.Address
	Lamports uint64
	State    types.ExecutionAccount
	Claim    *types.ClaimRecordV1
}

// GetExecution reads and classifies the execution account at addr.
func (k *Keeper) GetExecution(ctx context.Context, addr types.Address) (*ExecutionView, error) {
	acct, found, err := k.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !found || acct.Owner != types.ProgramID {
		return nil, types.ErrAccountNotFound.Wrapf("execution %s", addr)
	}
	state, err := types.ParseExecutionAccount(acct.Data)
	if err != nil {
		return nil, err
	}
	claim, err := k.GetClaim(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &ExecutionView{Address: addr, Lamports: acct.Lamports, State: state, Claim: claim}, nil
}

// GetClaim returns the claim on an execution account, or nil when unclaimed.
func (k *Keeper) GetClaim(ctx context.Context, execution types.Address) (*types.ClaimRecordV1, error) {
	claimAddr, _, err := types.ExecutionClaimAddress(execution)
	if err != nil {
		return nil, err
	}
	acct, found, err := k.GetAccount(ctx, claimAddr)
	if err != nil || !found {
		return nil, err
	}
	return types.DecodeClaimRecord(acct.Data)
}

// GetDeployment returns the deployment record of imageID.
func (k *Keeper) GetDeployment(ctx context.Context, imageID string) (*types.DeploymentRecordV1, error) {
	addr, _, err := types.DeploymentAddress(imageID)
	if err != nil {
		return nil, err
	}
	acct, found, err := k.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrAccountNotFound.Wrapf("deployment of %s", imageID)
	}
	return types.DecodeDeploymentRecord(acct.Data)
}
