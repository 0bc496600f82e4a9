// Package programs provides callback programs for tests.
package programs

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/callback"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Recorder validates callbacks with callback.Handle and stores the
// committed outputs in the first extra account, which it must own.
type Recorder struct {
	ImageID string
	Prefix  []byte

	Calls []Call
}

// Call is one accepted callback.
type Call struct {
	Execution types.Address
	Callback  *callback.Callback
}

func (r *Recorder) Execute(ctx sdk.Context, inv types.Invocation) error {
	data := inv.Data()
	if !bytes.HasPrefix(data, r.Prefix) {
		return fmt.Errorf("unexpected instruction prefix")
	}
	metas := inv.Accounts()
	if len(metas) == 0 {
		return errors.New("no accounts")
	}
	cb, err := callback.Handle(r.ImageID, metas[0].Address, inv, data[len(r.Prefix):])
	if err != nil {
		return err
	}
	if len(metas) > 1 && metas[1].IsWritable {
		if err := inv.WriteAccountData(1, cb.CommittedOutputs); err != nil {
			return err
		}
	}
	r.Calls = append(r.Calls, Call{Execution: metas[0].Address, Callback: cb})
	return nil
}

// Failing always returns an error. Writes it makes first must be discarded.
type Failing struct{}

func (Failing) Execute(ctx sdk.Context, inv types.Invocation) error {
	if len(inv.Accounts()) > 1 && inv.Accounts()[1].IsWritable {
		_ = inv.WriteAccountData(1, []byte("should not persist"))
	}
	return errors.New("callback rejected")
}

// Panicking panics on every call.
type Panicking struct{}

func (Panicking) Execute(sdk.Context, types.Invocation) error {
	panic("callback exploded")
}

// Burner consumes Gas on every call. With Overflow set it then asks for
// the maximum amount, overflowing the meter.
type Burner struct {
	Gas      uint64
	Overflow bool
}

func (b Burner) Execute(ctx sdk.Context, _ types.Invocation) error {
	ctx.GasMeter().ConsumeGas(b.Gas, "burner")
	if b.Overflow {
		ctx.GasMeter().ConsumeGas(math.MaxUint64, "burner")
	}
	return nil
}
