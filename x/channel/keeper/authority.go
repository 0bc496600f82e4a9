package keeper

import (
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// ProgramAuthority lets a program sign for an account derived from its
// own id. It is only honoured when the seeds and bump derive exactly the
// account being signed for.
type ProgramAuthority struct {
	ProgramID types.Address
	Seeds     [][]byte
	Bump      uint8
}

// NewExecutionAuthority returns the authority of the channel program over
// the execution account of requester and executionID.
func NewExecutionAuthority(requester types.Address, executionID string) (ProgramAuthority, types.Address, error) {
	seeds := types.ExecutionSeeds(requester, executionID)
	addr, bump, err := types.FindProgramAddress(seeds, types.ProgramID)
	if err != nil {
		return ProgramAuthority{}, types.Address{}, err
	}
	return ProgramAuthority{ProgramID: types.ProgramID, Seeds: seeds, Bump: bump}, addr, nil
}

// SignerFor returns the signer privilege for addr.
func (a ProgramAuthority) SignerFor(addr types.Address) (types.AccountMeta, error) {
	seeds := make([][]byte, 0, len(a.Seeds)+1)
	seeds = append(seeds, a.Seeds...)
	seeds = append(seeds, []byte{a.Bump})

	derived, err := types.CreateProgramAddress(seeds, a.ProgramID)
	if err != nil {
		return types.AccountMeta{}, types.ErrInvalidProgramAuthority.Wrap(err.Error())
	}
	if derived != addr {
		return types.AccountMeta{}, types.ErrInvalidProgramAuthority.Wrapf("seeds derive %s, not %s", derived, addr)
	}
	return types.NewReadonlyAccountMeta(addr, true), nil
}
