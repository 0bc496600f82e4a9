package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// InitGenesis initializes the channel module state from genesis
func (k *Keeper) InitGenesis(ctx sdk.Context, gs types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	if err := k.SetParams(ctx, gs.Params); err != nil {
		return err
	}

	var supply uint64
	for _, ga := range gs.Accounts {
		acct := ga.Account
		if err := k.SetAccount(ctx, ga.Address, &acct); err != nil {
			return err
		}
		supply += acct.Lamports

		if acct.Owner != types.ProgramID {
			continue
		}
		// Rebuild the pending index from pending execution records.
		if state, err := types.ParseExecutionAccount(acct.Data); err == nil && state.IsPending() {
			k.setPendingExecution(ctx, state.Pending.MaxBlockHeight, ga.Address)
		}
	}
	k.setSupply(ctx, supply)
	return nil
}

// ExportGenesis returns the channel module's exported genesis
func (k *Keeper) ExportGenesis(ctx sdk.Context) (*types.GenesisState, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return nil, err
	}
	gs := &types.GenesisState{Params: params, Accounts: []types.GenesisAccount{}}
	err = k.IterateAccounts(ctx, func(addr types.Address, acct *types.Account) bool {
		gs.Accounts = append(gs.Accounts, types.GenesisAccount{Address: addr, Account: *acct})
		return false
	})
	if err != nil {
		return nil, err
	}
	return gs, nil
}
