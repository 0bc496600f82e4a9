package keeper_test

import (
	"github.com/zkchannel/zkchannel/x/channel/keeper"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

func keeperInvariants(s *KeeperTestSuite) (string, bool) {
	return keeper.AllInvariants(s.keeper)(s.ctx)
}

func (s *KeeperTestSuite) TestInvariantsHoldAfterLifecycle() {
	msg := s.executeMsg("lifecycle")
	s.openExecution(msg)
	s.requireInvariants()

	s.Require().NoError(s.run(s.claimInstruction(s.prover, msg.ExecutionID), s.prover))
	s.requireInvariants()

	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))
	s.requireInvariants()
}

func (s *KeeperTestSuite) TestLamportSupplyInvariantDetectsDrift() {
	acct := s.account(s.prover)
	acct.Lamports++
	s.Require().NoError(s.keeper.SetAccount(s.ctx, s.prover, acct))

	_, broken := keeper.LamportSupplyInvariant(s.keeper)(s.ctx)
	s.Require().True(broken)
}

func (s *KeeperTestSuite) TestRentExemptInvariantDetectsUnderfundedAccount() {
	msg := s.executeMsg("underfunded")
	execAddr := s.openExecution(msg)

	acct := s.account(execAddr)
	acct.Lamports = 1
	s.Require().NoError(s.keeper.SetAccount(s.ctx, execAddr, acct))

	_, broken := keeper.RentExemptInvariant(s.keeper)(s.ctx)
	s.Require().True(broken)
}

func (s *KeeperTestSuite) TestPendingIndexInvariantDetectsStaleEntry() {
	msg := s.executeMsg("stale")
	execAddr := s.openExecution(msg)

	acct := s.account(execAddr)
	acct.Data = types.SettledExecution{ExitCode: types.ExitCodeProvingError}.Encode()
	s.Require().NoError(s.keeper.SetAccount(s.ctx, execAddr, acct))

	_, broken := keeper.PendingIndexInvariant(s.keeper)(s.ctx)
	s.Require().True(broken)
}
