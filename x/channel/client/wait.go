package client

import (
	"context"
	"errors"
	"time"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// WaitForClaim polls requester's execution until a prover claims it.
func (c *Client) WaitForClaim(ctx context.Context, requester types.Address, executionID string, timeout time.Duration) (*types.ClaimRecordV1, error) {
	var claim *types.ClaimRecordV1
	err := c.pollExecution(ctx, requester, executionID, timeout, func(exec *api.ExecutionResponse) (bool, error) {
		if exec.Settled != nil {
			return false, ErrSettled.Wrapf("%s", executionID)
		}
		if exec.Claim != nil {
			claim = exec.Claim
			return true, nil
		}
		return false, nil
	})
	return claim, err
}

// WaitForProof polls requester's execution until it settles and returns
// the settled outcome.
func (c *Client) WaitForProof(ctx context.Context, requester types.Address, executionID string, timeout time.Duration) (*types.SettledExecution, error) {
	var settled *types.SettledExecution
	err := c.pollExecution(ctx, requester, executionID, timeout, func(exec *api.ExecutionResponse) (bool, error) {
		if exec.Settled != nil {
			settled = exec.Settled
			return true, nil
		}
		return false, nil
	})
	return settled, err
}

// pollExecution calls done with the execution state every poll interval
// until done reports true, done fails, the request expires or timeout
// passes. An account that does not exist yet is waited for.
func (c *Client) pollExecution(ctx context.Context, requester types.Address, executionID string, timeout time.Duration, done func(*api.ExecutionResponse) (bool, error)) error {
	addr, _, err := types.ExecutionAddress(requester, executionID)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		exec, err := c.GetExecution(waitCtx, addr)
		switch {
		case err == nil:
			ok, err := done(exec)
			if err != nil || ok {
				return err
			}
			if exec.Pending != nil {
				height, err := c.Height(waitCtx)
				if err == nil && height > exec.Pending.MaxBlockHeight {
					return ErrExpired.Wrapf("%s expired at height %d", executionID, exec.Pending.MaxBlockHeight)
				}
			}
		case errors.Is(err, types.ErrAccountNotFound), isTransportError(err):
			c.logger.Debug("execution not available yet", "execution", addr.String(), "error", err)
		default:
			return err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrTimeout.Wrapf("%s after %s", executionID, timeout)
		case <-ticker.C:
		}
	}
}
