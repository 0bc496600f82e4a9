package client

import (
	"github.com/zkchannel/zkchannel/x/channel/types"
)

func channelInstruction(ix types.ChannelInstruction, accounts ...types.AccountMeta) (types.Instruction, error) {
	data, err := types.EncodeInstruction(ix)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{ProgramID: types.ProgramID, Accounts: accounts, Data: data}, nil
}

// DeployInstruction registers an image. The deployer signs; the payer
// funds the deployment account.
func DeployInstruction(deployer, payer types.Address, d *types.DeployV1) (types.Instruction, error) {
	deployment, _, err := types.DeploymentAddress(d.ImageID)
	if err != nil {
		return types.Instruction{}, err
	}
	return channelInstruction(d,
		types.NewAccountMeta(deployer, true),
		types.NewAccountMeta(payer, true),
		types.NewAccountMeta(deployment, false),
		types.NewReadonlyAccountMeta(types.SystemProgramID, false),
	)
}

// ExecuteInstruction opens an execution request owned by requester.
func ExecuteInstruction(requester, payer types.Address, e *types.ExecuteV1) (types.Instruction, error) {
	execution, _, err := types.ExecutionAddress(requester, e.ExecutionID)
	if err != nil {
		return types.Instruction{}, err
	}
	deployment, _, err := types.DeploymentAddress(e.ImageID)
	if err != nil {
		return types.Instruction{}, err
	}
	callbackProgram := types.ProgramID
	if e.Callback != nil && !e.Callback.ProgramID.IsZero() {
		callbackProgram = e.Callback.ProgramID
	}
	return channelInstruction(e,
		types.NewAccountMeta(requester, true),
		types.NewAccountMeta(payer, true),
		types.NewAccountMeta(execution, false),
		types.NewReadonlyAccountMeta(deployment, false),
		types.NewReadonlyAccountMeta(callbackProgram, false),
		types.NewReadonlyAccountMeta(types.SystemProgramID, false),
	)
}

// ClaimInstruction claims requester's execution for claimer.
func ClaimInstruction(claimer, payer, requester types.Address, c *types.ClaimV1) (types.Instruction, error) {
	execution, _, err := types.ExecutionAddress(requester, c.ExecutionID)
	if err != nil {
		return types.Instruction{}, err
	}
	claim, _, err := types.ExecutionClaimAddress(execution)
	if err != nil {
		return types.Instruction{}, err
	}
	return channelInstruction(c,
		types.NewAccountMeta(execution, false),
		types.NewReadonlyAccountMeta(requester, false),
		types.NewAccountMeta(claim, false),
		types.NewAccountMeta(claimer, true),
		types.NewAccountMeta(payer, true),
		types.NewReadonlyAccountMeta(types.SystemProgramID, false),
	)
}

// StatusInstruction submits a result for requester's execution. cb is the
// callback configuration stored in the request, or nil.
func StatusInstruction(prover, requester types.Address, s *types.StatusV1, cb *types.CallbackConfig) (types.Instruction, error) {
	execution, _, err := types.ExecutionAddress(requester, s.ExecutionID)
	if err != nil {
		return types.Instruction{}, err
	}
	callbackProgram := types.ProgramID
	var extras []types.AccountMeta
	if cb != nil && !cb.ProgramID.IsZero() {
		callbackProgram = cb.ProgramID
		for _, a := range cb.ExtraAccounts {
			extras = append(extras, types.AccountMeta{Address: a.Address, IsWritable: a.Writable})
		}
	}
	accounts := []types.AccountMeta{
		types.NewAccountMeta(requester, false),
		types.NewAccountMeta(execution, false),
		types.NewReadonlyAccountMeta(callbackProgram, false),
		types.NewAccountMeta(prover, true),
	}
	return channelInstruction(s, append(accounts, extras...)...)
}
