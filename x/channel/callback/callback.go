// Package callback validates channel callbacks inside a receiving program.
package callback

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Codespace for callback validation errors.
const Codespace = "channel_callback"

var (
	ErrInvalidAccounts  = errorsmod.Register(Codespace, 2, "invalid callback instruction accounts")
	ErrInvalidSignature = errorsmod.Register(Codespace, 3, "execution account did not sign the callback")
	ErrExecutionReused  = errorsmod.Register(Codespace, 4, "execution request already settled")
	ErrInvalidImageID   = errorsmod.Register(Codespace, 5, "callback image id mismatch")
	ErrInvalidData      = errorsmod.Register(Codespace, 6, "callback data too short")
)

// Callback is the proven output delivered to a callback program.
type Callback struct {
	InputDigest      []byte
	CommittedOutputs []byte
	Request          *types.ExecutionRequestV1
}

// Handle authenticates a callback. The caller strips its instruction
// prefix from the data first. The first account must be the expected
// execution account, owned by the channel program, signed by it and still
// holding the pending request for imageID.
func Handle(imageID string, execution types.Address, inv types.Invocation, stripped []byte) (*Callback, error) {
	metas := inv.Accounts()
	if len(metas) == 0 {
		return nil, ErrInvalidAccounts.Wrap("no accounts")
	}
	first := metas[0]
	if first.Address != execution {
		return nil, ErrInvalidAccounts.Wrapf("expected execution account %s, got %s", execution, first.Address)
	}
	if !first.IsSigner {
		return nil, ErrInvalidSignature
	}

	acct, err := inv.LoadAccount(0)
	if err != nil {
		return nil, err
	}
	if acct.Owner != types.ProgramID {
		return nil, ErrInvalidAccounts.Wrapf("execution account owned by %s", acct.Owner)
	}
	if len(acct.Data) < 2 {
		return nil, ErrExecutionReused
	}
	state, err := types.ParseExecutionAccount(acct.Data)
	if err != nil {
		return nil, err
	}
	if !state.IsPending() {
		return nil, ErrExecutionReused
	}
	if state.Pending.ImageID != imageID {
		return nil, ErrInvalidImageID.Wrapf("request is for %s", state.Pending.ImageID)
	}

	cb := &Callback{Request: state.Pending}
	if len(stripped) == 0 {
		return cb, nil
	}
	if len(stripped) < types.DigestLength {
		return nil, ErrInvalidData.Wrapf("%d bytes", len(stripped))
	}
	cb.InputDigest = stripped[:types.DigestLength]
	cb.CommittedOutputs = stripped[types.DigestLength:]
	return cb, nil
}
