package app

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace for ledger level transaction errors.
const Codespace = "ledger"

// x/channel errors use their own codespace; these cover transaction
// admission before any instruction runs.
var (
	ErrBlockhashExpired     = errorsmod.Register(Codespace, 2, "blockhash not found or expired")
	ErrDuplicateTransaction = errorsmod.Register(Codespace, 3, "transaction already processed")
	ErrInvalidSignature     = errorsmod.Register(Codespace, 4, "invalid transaction signature")
	ErrEmptyTransaction     = errorsmod.Register(Codespace, 5, "transaction has no instructions")
	ErrTxTooLarge           = errorsmod.Register(Codespace, 6, "transaction too large")
	ErrTxNotFound           = errorsmod.Register(Codespace, 7, "transaction not found")
	ErrAirdropDisabled      = errorsmod.Register(Codespace, 8, "airdrop disabled")
)
