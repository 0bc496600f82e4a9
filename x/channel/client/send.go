package client

import (
	"context"
	"errors"

	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/sethvargo/go-retry"

	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// SendTransaction signs ixs with payer (the fee payer) and any extra
// signers and submits them. The same signed transaction is resent after a
// transport failure; a new one with a fresh blockhash is built only after
// the ledger rejects the old blockhash. Program errors are returned at once.
func (c *Client) SendTransaction(ctx context.Context, payer cryptotypes.PrivKey, ixs []types.Instruction, signers ...cryptotypes.PrivKey) (*app.TxResult, error) {
	keys := append([]cryptotypes.PrivKey{payer}, signers...)
	feePayer := types.AddressFromPubKey(payer.PubKey())

	var (
		tx        *types.Transaction
		result    *app.TxResult
		attempt   int
		retryable bool
	)
	backoff := retry.WithMaxRetries(c.cfg.RetryCount, retry.NewConstant(c.cfg.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		retryable = false
		if tx == nil {
			blockhash, _, err := c.LatestBlockhash(ctx)
			if err != nil {
				return c.retryIf(isTransportError(err), &retryable, err)
			}
			next := types.NewTransaction(feePayer, blockhash, ixs...)
			if err := next.Sign(keys...); err != nil {
				return err
			}
			tx = next
		}

		res, err := c.SubmitTransaction(ctx, tx)
		switch {
		case err == nil:
			result = res
			return nil
		case errors.Is(err, app.ErrDuplicateTransaction):
			// An earlier attempt landed; report its outcome.
			res, err := c.TxStatus(ctx, tx.ID())
			if err != nil {
				return c.retryIf(isTransportError(err), &retryable, err)
			}
			result = res
			if !res.Success {
				return &TxError{Codespace: res.Codespace, Code: res.Code, Log: res.Log, Result: res}
			}
			return nil
		case isRetryableTxError(err):
			c.logger.Debug("blockhash expired, rebuilding transaction", "attempt", attempt)
			tx = nil
			return c.retryIf(true, &retryable, err)
		default:
			return c.retryIf(isTransportError(err), &retryable, err)
		}
	})
	if err != nil {
		if retryable {
			return nil, ErrRetriesExhausted.Wrapf("after %d attempts: %v", attempt, err)
		}
		return result, err
	}
	c.logger.Debug("transaction landed", "id", result.ID, "attempts", attempt)
	return result, nil
}

func isRetryableTxError(err error) bool {
	var txErr *TxError
	return errors.As(err, &txErr) && txErr.Retryable()
}

func (c *Client) retryIf(ok bool, retryable *bool, err error) error {
	if !ok {
		return err
	}
	*retryable = true
	return retry.RetryableError(err)
}
