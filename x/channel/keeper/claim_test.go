package keeper_test

import (
	"github.com/zkchannel/zkchannel/x/channel/types"
)

func (s *KeeperTestSuite) TestClaimIsExclusive() {
	msg := s.executeMsg("claim-once")
	execAddr := s.openExecution(msg)

	s.Require().NoError(s.run(s.claimInstruction(s.prover, msg.ExecutionID), s.prover))

	claim, err := s.keeper.GetClaim(s.ctx, execAddr)
	s.Require().NoError(err)
	s.Require().NotNil(claim)
	s.Require().Equal(s.prover, claim.Claimer)
	s.Require().Equal(execAddr, claim.Execution)
	s.Require().Equal(uint64(s.ctx.BlockHeight()), claim.ClaimedAt)

	err = s.run(s.claimInstruction(s.prover2, msg.ExecutionID), s.prover2)
	s.Require().ErrorIs(err, types.ErrExecutionAlreadyClaimed)

	claim, err = s.keeper.GetClaim(s.ctx, execAddr)
	s.Require().NoError(err)
	s.Require().Equal(s.prover, claim.Claimer)
	s.requireInvariants()
}

func (s *KeeperTestSuite) TestClaimDoesNotRestrictSettlement() {
	msg := s.executeMsg("claimed-elsewhere")
	execAddr := s.openExecution(msg)
	s.Require().NoError(s.run(s.claimInstruction(s.prover, msg.ExecutionID), s.prover))

	before := s.balance(s.prover2)
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
	s.Require().NoError(s.run(s.statusInstruction(s.prover2, status, nil), s.prover2))

	s.Require().Equal(types.ExitCodeSuccess, s.settledState(execAddr).ExitCode)
	s.Require().Equal(before+testTip, s.balance(s.prover2))
}

func (s *KeeperTestSuite) TestClaimFailures() {
	testCases := []struct {
		name    string
		setup   func() types.Instruction
		err     error
	}{
		{
			name: "expired execution",
			setup: func() types.Instruction {
				msg := s.executeMsg("claim-expired")
				s.openExecution(msg)
				s.setHeight(int64(msg.MaxBlockHeight) + 1)
				return s.claimInstruction(s.prover, msg.ExecutionID)
			},
			err: types.ErrExecutionExpired,
		},
		{
			name: "settled execution",
			setup: func() types.Instruction {
				msg := s.executeMsg("claim-settled")
				s.openExecution(msg)
				status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
				s.Require().NoError(s.run(s.statusInstruction(s.prover2, status, nil), s.prover2))
				return s.claimInstruction(s.prover, msg.ExecutionID)
			},
			err: types.ErrInvalidExecutionAccount,
		},
		{
			name: "unknown execution",
			setup: func() types.Instruction {
				return s.claimInstruction(s.prover, "never-requested")
			},
			err: types.ErrInvalidExecutionAccount,
		},
		{
			name: "wrong claim account",
			setup: func() types.Instruction {
				msg := s.executeMsg("claim-wrong-account")
				s.openExecution(msg)
				ix := s.claimInstruction(s.prover, msg.ExecutionID)
				ix.Accounts[2].Address = s.prover2
				return ix
			},
			err: types.ErrInvalidClaimAccount,
		},
		{
			name: "claimer did not sign",
			setup: func() types.Instruction {
				msg := s.executeMsg("claim-unsigned")
				s.openExecution(msg)
				ix := s.claimInstruction(s.prover, msg.ExecutionID)
				ix.Accounts[3].IsSigner = false
				return ix
			},
			err: types.ErrMissingSignature,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			ix := tc.setup()
			err := s.run(ix, s.prover)
			s.Require().ErrorIs(err, tc.err)
			s.requireInvariants()
		})
	}
}
