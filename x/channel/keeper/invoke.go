package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// invocation is the runtime view of one instruction: the program being
// executed, its ordered account list and the addresses that signed.
type invocation struct {
	k         *Keeper
	ctx       sdk.Context
	programID types.Address
	metas     []types.AccountMeta
	data      []byte
	depth     int
}

var _ types.Invocation = (*invocation)(nil)

func (inv *invocation) ProgramID() types.Address       { return inv.programID }
func (inv *invocation) Data() []byte                   { return inv.data }
func (inv *invocation) Accounts() []types.AccountMeta  { return inv.metas }
func (inv *invocation) numAccounts() int               { return len(inv.metas) }
func (inv *invocation) address(idx int) types.Address  { return inv.metas[idx].Address }
func (inv *invocation) meta(idx int) types.AccountMeta { return inv.metas[idx] }
func (inv *invocation) isWritable(idx int) bool        { return inv.metas[idx].IsWritable }
func (inv *invocation) isSigner(idx int) bool          { return inv.metas[idx].IsSigner }

func (inv *invocation) checkIndex(idx int) error {
	if idx < 0 || idx >= len(inv.metas) {
		return types.ErrInvalidAccounts.Wrapf("account index %d out of range (%d accounts)", idx, len(inv.metas))
	}
	return nil
}

func (inv *invocation) requireSigner(idx int, role string) error {
	if err := inv.checkIndex(idx); err != nil {
		return err
	}
	if !inv.isSigner(idx) {
		return types.ErrMissingSignature.Wrapf("%s %s", role, inv.address(idx))
	}
	return nil
}

func (inv *invocation) requireWritable(idx int, role string) error {
	if err := inv.checkIndex(idx); err != nil {
		return err
	}
	if !inv.isWritable(idx) {
		return types.ErrAccountNotWritable.Wrapf("%s %s", role, inv.address(idx))
	}
	return nil
}

func (inv *invocation) LoadAccount(idx int) (*types.Account, error) {
	if err := inv.checkIndex(idx); err != nil {
		return nil, err
	}
	acct, _, err := inv.k.GetAccount(inv.ctx, inv.address(idx))
	return acct, err
}

func (inv *invocation) WriteAccountData(idx int, data []byte) error {
	if err := inv.requireWritable(idx, "account"); err != nil {
		return err
	}
	acct, err := inv.LoadAccount(idx)
	if err != nil {
		return err
	}
	if acct.Owner != inv.programID {
		return types.ErrInvalidAccounts.Wrapf("%s is owned by %s, not %s", inv.address(idx), acct.Owner, inv.programID)
	}
	params, err := inv.k.GetParams(inv.ctx)
	if err != nil {
		return err
	}
	if !params.Rent.IsExempt(acct.Lamports, len(data)) {
		return types.ErrNotRentExempt.Wrapf("%s with %d bytes", inv.address(idx), len(data))
	}
	acct.Data = append([]byte(nil), data...)
	return inv.k.SetAccount(inv.ctx, inv.address(idx), acct)
}

// createAccount allocates a program owned account at newIdx funded by the
// payer with exactly lamports. Creation fails when the target exists,
// which is what makes derived accounts unique.
func (inv *invocation) createAccount(payerIdx, newIdx int, owner types.Address, data []byte, lamports uint64) error {
	if err := inv.requireSigner(payerIdx, "payer"); err != nil {
		return err
	}
	if err := inv.requireWritable(payerIdx, "payer"); err != nil {
		return err
	}
	if err := inv.requireWritable(newIdx, "new account"); err != nil {
		return err
	}
	target, err := inv.LoadAccount(newIdx)
	if err != nil {
		return err
	}
	if target.Exists() {
		return types.ErrAccountAlreadyExists.Wrapf("%s", inv.address(newIdx))
	}

	if err := inv.k.moveLamports(inv.ctx, inv.address(payerIdx), inv.address(newIdx), lamports); err != nil {
		return err
	}
	created, err := inv.LoadAccount(newIdx)
	if err != nil {
		return err
	}
	created.Owner = owner
	created.Data = append([]byte(nil), data...)
	return inv.k.SetAccount(inv.ctx, inv.address(newIdx), created)
}
