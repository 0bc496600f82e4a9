package keeper

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"cosmossdk.io/store/prefix"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// GetAccount returns the account at addr. A missing account is returned
// as an empty system owned account with found=false.
func (k *Keeper) GetAccount(ctx context.Context, addr types.Address) (*types.Account, bool, error) {
	bz := k.getStore(ctx).Get(AccountKey(addr))
	if bz == nil {
		return &types.Account{Owner: types.SystemProgramID}, false, nil
	}
	var acct types.Account
	if err := rlp.DecodeBytes(bz, &acct); err != nil {
		return nil, false, fmt.Errorf("decode account %s: %w", addr, err)
	}
	return &acct, true, nil
}

// SetAccount stores acct. Accounts that no longer exist are deleted.
func (k *Keeper) SetAccount(ctx context.Context, addr types.Address, acct *types.Account) error {
	store := k.getStore(ctx)
	if !acct.Exists() {
		store.Delete(AccountKey(addr))
		return nil
	}
	bz, err := rlp.EncodeToBytes(acct)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", addr, err)
	}
	store.Set(AccountKey(addr), bz)
	return nil
}

// IterateAccounts calls cb for every stored account until cb returns true.
func (k *Keeper) IterateAccounts(ctx context.Context, cb func(addr types.Address, acct *types.Account) (stop bool)) error {
	store := prefix.NewStore(k.getStore(ctx), AccountKeyPrefix)
	iter := store.Iterator(nil, nil)
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		addr, err := types.AddressFromBytes(iter.Key())
		if err != nil {
			return err
		}
		var acct types.Account
		if err := rlp.DecodeBytes(iter.Value(), &acct); err != nil {
			return fmt.Errorf("decode account %s: %w", addr, err)
		}
		if cb(addr, &acct) {
			break
		}
	}
	return nil
}

// GetBalance returns the lamports held at addr.
func (k *Keeper) GetBalance(ctx context.Context, addr types.Address) (uint64, error) {
	acct, _, err := k.GetAccount(ctx, addr)
	if err != nil {
		return 0, err
	}
	return acct.Lamports, nil
}

// GetSupply returns the total lamports minted.
func (k *Keeper) GetSupply(ctx context.Context) uint64 {
	bz := k.getStore(ctx).Get(SupplyKey)
	if bz == nil {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func (k *Keeper) setSupply(ctx context.Context, supply uint64) {
	k.getStore(ctx).Set(SupplyKey, binary.BigEndian.AppendUint64(nil, supply))
}

// Mint credits new lamports to addr. It backs genesis balances and the
// devnet faucet; programs never mint.
func (k *Keeper) Mint(ctx context.Context, addr types.Address, lamports uint64) error {
	acct, _, err := k.GetAccount(ctx, addr)
	if err != nil {
		return err
	}
	supply := k.GetSupply(ctx)
	if acct.Lamports > math.MaxUint64-lamports || supply > math.MaxUint64-lamports {
		return fmt.Errorf("mint of %d lamports overflows", lamports)
	}
	acct.Lamports += lamports
	if err := k.SetAccount(ctx, addr, acct); err != nil {
		return err
	}
	k.setSupply(ctx, supply+lamports)
	return nil
}

// moveLamports debits from and credits to. Ownership and writability are
// the caller's responsibility.
func (k *Keeper) moveLamports(ctx context.Context, from, to types.Address, lamports uint64) error {
	if lamports == 0 || from == to {
		return nil
	}
	src, _, err := k.GetAccount(ctx, from)
	if err != nil {
		return err
	}
	if src.Lamports < lamports {
		return types.ErrInsufficientFunds.Wrapf("%s holds %d, needs %d", from, src.Lamports, lamports)
	}
	dst, _, err := k.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	if dst.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("credit to %s overflows", to)
	}
	src.Lamports -= lamports
	dst.Lamports += lamports
	if err := k.SetAccount(ctx, from, src); err != nil {
		return err
	}
	return k.SetAccount(ctx, to, dst)
}
