package keeper_test

import (
	"bytes"

	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

func (s *KeeperTestSuite) TestExecuteOpensPendingRequest() {
	msg := s.executeMsg("open")
	msg.ProverVersion = 0
	before := s.balance(s.requester)
	execAddr := s.openExecution(msg)

	view, err := s.keeper.GetExecution(s.ctx, execAddr)
	s.Require().NoError(err)
	s.Require().True(view.State.IsPending())
	req := view.State.Pending
	s.Require().Equal(s.requester, req.Requester)
	s.Require().Equal(msg.ExecutionID, req.ExecutionID)
	s.Require().Equal(testImageID, req.ImageID)
	s.Require().Equal(types.DefaultProverVersion, req.ProverVersion)
	s.Require().Equal(uint64(s.ctx.BlockHeight()), req.CreatedAt)
	s.Require().Nil(view.Claim)

	acct := s.account(execAddr)
	s.Require().Equal(types.ProgramID, acct.Owner)
	s.Require().Equal(s.params().Rent.MinimumBalance(len(acct.Data))+testTip, acct.Lamports)
	s.Require().Equal(before-acct.Lamports, s.balance(s.requester))

	pending, err := s.keeper.PendingExecutions(s.ctx, uint64(s.ctx.BlockHeight()), 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Require().Equal(execAddr, pending[0].Address)
	s.requireInvariants()
}

func (s *KeeperTestSuite) TestExecuteDuplicateID() {
	msg := s.executeMsg("dup")
	s.openExecution(msg)

	ix, err := client.ExecuteInstruction(s.requester, s.requester, msg)
	s.Require().NoError(err)
	s.Require().ErrorIs(s.run(ix, s.requester), types.ErrAccountAlreadyExists)
}

func (s *KeeperTestSuite) TestPendingExecutionsOrderAndExpiry() {
	for i, maxHeight := range []uint64{50, 10, 30} {
		msg := s.executeMsg(string(rune('a' + i)))
		msg.MaxBlockHeight = maxHeight
		s.openExecution(msg)
	}

	pending, err := s.keeper.PendingExecutions(s.ctx, uint64(s.ctx.BlockHeight()), 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	s.Require().Equal(uint64(10), pending[0].Request.MaxBlockHeight)
	s.Require().Equal(uint64(30), pending[1].Request.MaxBlockHeight)
	s.Require().Equal(uint64(50), pending[2].Request.MaxBlockHeight)

	pending, err = s.keeper.PendingExecutions(s.ctx, 20, 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)

	pending, err = s.keeper.PendingExecutions(s.ctx, 0, 1)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
}

func (s *KeeperTestSuite) TestExecuteValidation() {
	testCases := []struct {
		name   string
		modify func(msg *types.ExecuteV1)
		ix     func(ix *types.Instruction)
		err    error
	}{
		{
			name:   "expiry not in the future",
			modify: func(msg *types.ExecuteV1) { msg.MaxBlockHeight = uint64(s.ctx.BlockHeight()) },
			err:    types.ErrInvalidExpiry,
		},
		{
			name: "expiry window too long",
			modify: func(msg *types.ExecuteV1) {
				msg.MaxBlockHeight = uint64(s.ctx.BlockHeight()) + types.DefaultParams().MaxExpiryBlocks + 1
			},
			err: types.ErrInvalidExpiry,
		},
		{
			name: "too many inputs",
			modify: func(msg *types.ExecuteV1) {
				for i := uint32(0); i <= types.DefaultParams().MaxInputs; i++ {
					msg.Inputs = append(msg.Inputs, types.Input{Type: types.InputTypePublicData, Data: []byte{byte(i)}})
				}
			},
			err: types.ErrInvalidInputs,
		},
		{
			name: "oversized input",
			modify: func(msg *types.ExecuteV1) {
				msg.Inputs[0].Data = make([]byte, types.DefaultParams().MaxInputBytes+1)
			},
			err: types.ErrInvalidInputs,
		},
		{
			name: "input type not accepted by deployment",
			modify: func(msg *types.ExecuteV1) {
				msg.Inputs = append(msg.Inputs, types.Input{Type: types.InputTypePublicURL, Data: []byte("https://x")})
			},
			err: types.ErrInvalidInputs,
		},
		{
			name:   "image not deployed",
			modify: func(msg *types.ExecuteV1) { msg.ImageID = testImageID[:62] + "00" },
			err:    types.ErrInvalidDeploymentAccount,
		},
		{
			name: "tip larger than balance",
			modify: func(msg *types.ExecuteV1) {
				msg.Tip = startingBalance
			},
			err: types.ErrInsufficientFunds,
		},
		{
			name: "unknown callback program",
			modify: func(msg *types.ExecuteV1) {
				msg.Callback = &types.CallbackConfig{ProgramID: types.Address{0xde, 0xad}}
			},
			err: types.ErrInvalidCallbackProgram,
		},
		{
			name: "channel program as callback",
			modify: func(msg *types.ExecuteV1) {
				msg.Callback = &types.CallbackConfig{ProgramID: types.ProgramID}
			},
			err: types.ErrInvalidCallbackProgram,
		},
		{
			name: "callback program account missing without callback",
			ix:   func(ix *types.Instruction) { ix.Accounts[4].Address = s.prover },
			err:  types.ErrInvalidCallbackProgram,
		},
		{
			name: "execution account not derived",
			ix:   func(ix *types.Instruction) { ix.Accounts[2].Address = s.prover2 },
			err:  types.ErrInvalidExecutionAccount,
		},
		{
			name: "requester did not sign",
			ix:   func(ix *types.Instruction) { ix.Accounts[0].IsSigner = false; ix.Accounts[1].IsSigner = false },
			err:  types.ErrMissingSignature,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			msg := s.executeMsg("validation")
			if tc.modify != nil {
				tc.modify(msg)
			}
			ix, err := client.ExecuteInstruction(s.requester, s.requester, msg)
			s.Require().NoError(err)
			if tc.ix != nil {
				tc.ix(&ix)
			}
			s.Require().ErrorIs(s.run(ix, s.requester), tc.err)

			pending, err := s.keeper.PendingExecutions(s.ctx, 0, 0)
			s.Require().NoError(err)
			s.Require().Empty(pending)
			s.requireInvariants()
		})
	}
}

func (s *KeeperTestSuite) TestExecuteInputHashIsStored() {
	msg := s.executeMsg("hash")
	msg.VerifyInputHash = true
	msg.InputHash = bytes.Repeat([]byte{0x1d}, 32)
	execAddr := s.openExecution(msg)

	view, err := s.keeper.GetExecution(s.ctx, execAddr)
	s.Require().NoError(err)
	s.Require().True(view.State.Pending.VerifyInputHash)
	s.Require().Equal(msg.InputHash, view.State.Pending.InputDigest)
}
