package keeper

import (
	"fmt"

	"cosmossdk.io/store/prefix"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// RegisterInvariants registers all channel module invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "lamport-supply", LamportSupplyInvariant(k))
	ir.RegisterRoute(types.ModuleName, "rent-exempt", RentExemptInvariant(k))
	ir.RegisterRoute(types.ModuleName, "pending-index", PendingIndexInvariant(k))
}

// AllInvariants runs all invariants of the channel module
func AllInvariants(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		res, stop := LamportSupplyInvariant(k)(ctx)
		if stop {
			return res, stop
		}
		res, stop = RentExemptInvariant(k)(ctx)
		if stop {
			return res, stop
		}
		return PendingIndexInvariant(k)(ctx)
	}
}

// LamportSupplyInvariant checks that transfers, tips and refunds conserve
// lamports: the sum of all balances equals the minted supply.
func LamportSupplyInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var total uint64
		if err := k.IterateAccounts(ctx, func(_ types.Address, acct *types.Account) bool {
			total += acct.Lamports
			return false
		}); err != nil {
			return sdk.FormatInvariant(types.ModuleName, "lamport-supply", err.Error()), true
		}
		supply := k.GetSupply(ctx)
		broken := total != supply
		return sdk.FormatInvariant(types.ModuleName, "lamport-supply",
			fmt.Sprintf("sum of balances %d, supply %d", total, supply)), broken
	}
}

// RentExemptInvariant checks that every channel owned account holds at
// least the rent exempt minimum for its size.
func RentExemptInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		params, err := k.GetParams(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "rent-exempt", err.Error()), true
		}
		var (
			broken bool
			msg    string
		)
		err = k.IterateAccounts(ctx, func(addr types.Address, acct *types.Account) bool {
			if acct.Owner != types.ProgramID {
				return false
			}
			if !params.Rent.IsExempt(acct.Lamports, len(acct.Data)) {
				broken = true
				msg = fmt.Sprintf("account %s holds %d lamports for %d bytes\n", addr, acct.Lamports, len(acct.Data))
				return true
			}
			return false
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "rent-exempt", err.Error()), true
		}
		return sdk.FormatInvariant(types.ModuleName, "rent-exempt", msg), broken
	}
}

// PendingIndexInvariant checks that every index entry points at a pending
// execution with the indexed expiry.
func PendingIndexInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		store := prefix.NewStore(k.getStore(ctx), PendingExecutionKeyPrefix)
		iter := store.Iterator(nil, nil)
		defer iter.Close()

		for ; iter.Valid(); iter.Next() {
			maxHeight, addr := parsePendingExecutionKey(iter.Key())
			view, err := k.GetExecution(ctx, addr)
			if err != nil {
				return sdk.FormatInvariant(types.ModuleName, "pending-index",
					fmt.Sprintf("index entry %s: %v", addr, err)), true
			}
			if !view.State.IsPending() || view.State.Pending.MaxBlockHeight != maxHeight {
				return sdk.FormatInvariant(types.ModuleName, "pending-index",
					fmt.Sprintf("index entry %s does not match account state", addr)), true
			}
		}
		return sdk.FormatInvariant(types.ModuleName, "pending-index", ""), false
	}
}
