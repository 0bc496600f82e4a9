package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	errorsmod "cosmossdk.io/errors"

	"github.com/zkchannel/zkchannel/app"
)

// Codespace for client side errors.
const Codespace = "client"

var (
	ErrTimeout          = errorsmod.Register(Codespace, 2, "timed out waiting for execution")
	ErrExpired          = errorsmod.Register(Codespace, 3, "execution expired before settling")
	ErrRetriesExhausted = errorsmod.Register(Codespace, 4, "transaction retries exhausted")
	ErrHTTP             = errorsmod.Register(Codespace, 5, "unexpected response from ledger")
	ErrSettled          = errorsmod.Register(Codespace, 6, "execution already settled")
)

// TxError is an error reported by the ledger. It unwraps to the registered
// error for its codespace and code, so errors.Is works against the channel
// and ledger error values.
type TxError struct {
	Codespace string
	Code      uint32
	Log       string
	Result    *app.TxResult
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s (codespace %s, code %d)", e.Log, e.Codespace, e.Code)
}

func (e *TxError) Unwrap() error {
	return errorsmod.ABCIError(e.Codespace, e.Code, e.Log)
}

// Retryable reports whether the transaction may succeed if resent with a
// fresh blockhash.
func (e *TxError) Retryable() bool {
	return errors.Is(e, app.ErrBlockhashExpired)
}

// isTransportError reports failures where the request may not have reached
// the ledger.
func isTransportError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}
