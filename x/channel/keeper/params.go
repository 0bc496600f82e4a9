package keeper

import (
	"context"
	"fmt"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// GetParams returns the current module params, or the defaults when none
// have been stored.
func (k *Keeper) GetParams(ctx context.Context) (types.Params, error) {
	store := k.getStore(ctx)
	bz := store.Get(ParamsKey)
	if bz == nil {
		return types.DefaultParams(), nil
	}
	params, err := types.UnmarshalParams(bz)
	if err != nil {
		return types.Params{}, fmt.Errorf("decode params: %w", err)
	}
	return params, nil
}

// SetParams validates and stores params.
func (k *Keeper) SetParams(ctx context.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return types.ErrInvalidParams.Wrap(err.Error())
	}
	bz, err := params.Marshal()
	if err != nil {
		return err
	}
	k.getStore(ctx).Set(ParamsKey, bz)
	return nil
}
