package keeper_test

import (
	keepertest "github.com/zkchannel/zkchannel/testutil/keeper"
	"github.com/zkchannel/zkchannel/testutil/zkmock"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

func (s *KeeperTestSuite) TestGenesisRoundTrip() {
	msg := s.executeMsg("genesis")
	execAddr := s.openExecution(msg)
	s.Require().NoError(s.run(s.claimInstruction(s.prover, msg.ExecutionID), s.prover))

	exported, err := s.keeper.ExportGenesis(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(exported.Validate())

	verifier, err := zkmock.NewVerifier()
	s.Require().NoError(err)
	k2, ctx2 := keepertest.ChannelKeeper(s.T(), verifier)
	s.Require().NoError(k2.InitGenesis(ctx2, *exported))

	s.Require().Equal(s.keeper.GetSupply(s.ctx), k2.GetSupply(ctx2))
	for _, ga := range exported.Accounts {
		acct, found, err := k2.GetAccount(ctx2, ga.Address)
		s.Require().NoError(err)
		s.Require().True(found)
		s.Require().Equal(ga.Account.Lamports, acct.Lamports)
		s.Require().Equal(ga.Account.Data, acct.Data)
	}

	// The pending index is rebuilt from the execution records.
	pending, err := k2.PendingExecutions(ctx2, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Require().Equal(execAddr, pending[0].Address)
	s.Require().NotNil(pending[0].Claim)
}

func (s *KeeperTestSuite) TestInitGenesisRejectsInvalidState() {
	gs := types.DefaultGenesis()
	gs.Params.MaxInputs = 0
	s.Require().Error(s.keeper.InitGenesis(s.ctx, *gs))
}
