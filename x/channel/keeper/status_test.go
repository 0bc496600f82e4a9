package keeper_test

import (
	"bytes"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

func (s *KeeperTestSuite) TestStatusSuccessPaysTipAndRefunds() {
	for _, version := range types.SupportedProverVersions() {
		s.Run(version.String(), func() {
			s.SetupTest()
			msg := s.executeMsg("exec-" + version.String())
			msg.ProverVersion = version
			execAddr := s.openExecution(msg)

			params := s.params()
			requesterBefore := s.balance(s.requester)
			proverBefore := s.balance(s.prover)
			execBefore := s.balance(execAddr)

			status := s.provenStatus(msg.ExecutionID, version, s.receipt())
			s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))

			settled := s.settledState(execAddr)
			s.Require().Equal(types.ExitCodeSuccess, settled.ExitCode)
			s.Require().Equal(status.InputDigest, settled.InputDigest)

			acct := s.account(execAddr)
			s.Require().Len(acct.Data, types.SettledWithDigestSize)
			s.Require().Equal(params.Rent.MinimumBalance(types.SettledWithDigestSize), acct.Lamports)

			s.Require().Equal(proverBefore+testTip, s.balance(s.prover))
			refund := execBefore - testTip - acct.Lamports
			s.Require().Equal(requesterBefore+refund, s.balance(s.requester))
			s.requireInvariants()

			pending, err := s.keeper.PendingExecutions(s.ctx, uint64(s.ctx.BlockHeight()), 0)
			s.Require().NoError(err)
			s.Require().Empty(pending)
		})
	}
}

func (s *KeeperTestSuite) TestStatusIsSingleUse() {
	msg := s.executeMsg("once")
	s.openExecution(msg)
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))

	before := s.balance(s.prover2)
	err := s.run(s.statusInstruction(s.prover2, status, nil), s.prover2)
	s.Require().ErrorIs(err, types.ErrInvalidExecutionAccount)
	s.Require().Equal(before, s.balance(s.prover2))
}

func (s *KeeperTestSuite) TestStatusExpiryTakesPrecedence() {
	msg := s.executeMsg("late")
	execAddr := s.openExecution(msg)
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())

	s.setHeight(int64(msg.MaxBlockHeight) + 1)
	err := s.run(s.statusInstruction(s.prover, status, nil), s.prover)
	s.Require().ErrorIs(err, types.ErrExecutionExpired)

	view, err := s.keeper.GetExecution(s.ctx, execAddr)
	s.Require().NoError(err)
	s.Require().True(view.State.IsPending())
}

func (s *KeeperTestSuite) TestStatusAtMaxBlockHeightSettles() {
	msg := s.executeMsg("edge")
	execAddr := s.openExecution(msg)
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())

	s.setHeight(int64(msg.MaxBlockHeight))
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))
	s.Require().Equal(types.ExitCodeSuccess, s.settledState(execAddr).ExitCode)
}

func (s *KeeperTestSuite) TestStatusRejectedProofSettlesAsVerifyError() {
	testCases := []struct {
		name   string
		tamper func(st *types.StatusV1)
	}{
		{
			name:   "committed outputs changed",
			tamper: func(st *types.StatusV1) { st.CommittedOutputs = []byte("forged") },
		},
		{
			name:   "execution digest changed",
			tamper: func(st *types.StatusV1) { st.ExecutionDigest = bytes.Repeat([]byte{0x77}, 32) },
		},
		{
			name:   "user exit code changed",
			tamper: func(st *types.StatusV1) { st.ExitCodeUser = 1 },
		},
		{
			name:   "system exit code changed",
			tamper: func(st *types.StatusV1) { st.ExitCodeSystem = 1 },
		},
		{
			name:   "input digest changed",
			tamper: func(st *types.StatusV1) { st.InputDigest = bytes.Repeat([]byte{0x42}, 32) },
		},
		{
			name: "proof from another version",
			tamper: func(st *types.StatusV1) {
				other := s.provenStatus(st.ExecutionID, types.ProverVersionV1_0_1, s.receipt())
				st.Proof = other.Proof
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			msg := s.executeMsg("verify-error")
			execAddr := s.openExecution(msg)
			proverBefore := s.balance(s.prover)
			requesterBefore := s.balance(s.requester)
			execBefore := s.balance(execAddr)

			status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
			tc.tamper(status)
			s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))

			settled := s.settledState(execAddr)
			s.Require().Equal(types.ExitCodeVerifyError, settled.ExitCode)
			s.Require().Nil(settled.InputDigest)
			s.Require().Len(s.account(execAddr).Data, types.SettledSize)

			// No tip: the tip goes back to the requester with the excess rent.
			s.Require().Equal(proverBefore, s.balance(s.prover))
			s.Require().Equal(requesterBefore+execBefore-s.balance(execAddr), s.balance(s.requester))
			s.requireInvariants()
		})
	}
}

func (s *KeeperTestSuite) TestStatusRejectsWideSystemExitCode() {
	msg := s.executeMsg("wide-exit")
	execAddr := s.openExecution(msg)
	proverBefore := s.balance(s.prover)

	// 256 shares its low byte with the proven code 0.
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
	status.ExitCodeSystem = types.MaxSystemExitCode + 1
	err := s.run(s.statusInstruction(s.prover, status, nil), s.prover)
	s.Require().ErrorIs(err, types.ErrInvalidInstruction)

	view, err := s.keeper.GetExecution(s.ctx, execAddr)
	s.Require().NoError(err)
	s.Require().True(view.State.IsPending())
	s.Require().Equal(proverBefore, s.balance(s.prover))

	status.ExitCodeSystem = 0
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))
	s.Require().Equal(types.ExitCodeSuccess, s.settledState(execAddr).ExitCode)
}

func (s *KeeperTestSuite) TestStatusIncompleteSettlesAsProvingError() {
	testCases := []struct {
		name   string
		tamper func(st *types.StatusV1)
	}{
		{name: "no proof", tamper: func(st *types.StatusV1) { st.Proof = nil }},
		{name: "short proof", tamper: func(st *types.StatusV1) { st.Proof = st.Proof[:types.Groth16ProofLength-1] }},
		{name: "long proof", tamper: func(st *types.StatusV1) { st.Proof = append(st.Proof, 0) }},
		{name: "short execution digest", tamper: func(st *types.StatusV1) { st.ExecutionDigest = st.ExecutionDigest[:31] }},
		{name: "missing assumption digest", tamper: func(st *types.StatusV1) { st.AssumptionDigest = nil }},
		{name: "missing input digest", tamper: func(st *types.StatusV1) { st.InputDigest = nil }},
		{
			name: "oversized outputs",
			tamper: func(st *types.StatusV1) {
				st.CommittedOutputs = make([]byte, types.DefaultParams().MaxCommittedOutputBytes+1)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			msg := s.executeMsg("proving-error")
			execAddr := s.openExecution(msg)
			proverBefore := s.balance(s.prover)

			status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
			tc.tamper(status)
			s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))

			s.Require().Equal(types.ExitCodeProvingError, s.settledState(execAddr).ExitCode)
			s.Require().Equal(proverBefore, s.balance(s.prover))
			s.Require().Equal(s.params().Rent.MinimumBalance(types.SettledSize), s.balance(execAddr))
			s.requireInvariants()
		})
	}
}

func (s *KeeperTestSuite) TestStatusInputHashCommitment() {
	r := s.receipt()

	s.Run("matching digest settles", func() {
		s.SetupTest()
		msg := s.executeMsg("hash-match")
		msg.VerifyInputHash = true
		msg.InputHash = r.InputDigest
		execAddr := s.openExecution(msg)

		status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, r)
		s.Require().NoError(s.run(s.statusInstruction(s.prover, status, nil), s.prover))
		s.Require().Equal(types.ExitCodeSuccess, s.settledState(execAddr).ExitCode)
	})

	s.Run("mismatched digest is rejected", func() {
		s.SetupTest()
		msg := s.executeMsg("hash-mismatch")
		msg.VerifyInputHash = true
		msg.InputHash = bytes.Repeat([]byte{0x99}, 32)
		execAddr := s.openExecution(msg)

		status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, r)
		err := s.run(s.statusInstruction(s.prover, status, nil), s.prover)
		s.Require().ErrorIs(err, types.ErrInputsDontMatch)

		view, err := s.keeper.GetExecution(s.ctx, execAddr)
		s.Require().NoError(err)
		s.Require().True(view.State.IsPending())
	})
}

func (s *KeeperTestSuite) TestStatusAccountChecks() {
	msg := s.executeMsg("accounts")
	s.openExecution(msg)
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())

	s.Run("prover must sign", func() {
		ix := s.statusInstruction(s.prover, status, nil)
		ix.Accounts[3].IsSigner = false
		err := s.run(ix)
		s.Require().ErrorIs(err, types.ErrMissingSignature)
	})

	s.Run("signature must be present", func() {
		err := s.run(s.statusInstruction(s.prover, status, nil))
		s.Require().ErrorIs(err, types.ErrMissingSignature)
	})

	s.Run("requester must be writable", func() {
		ix := s.statusInstruction(s.prover, status, nil)
		ix.Accounts[0].IsWritable = false
		err := s.run(ix, s.prover)
		s.Require().ErrorIs(err, types.ErrAccountNotWritable)
	})

	s.Run("execution must belong to requester", func() {
		ix := s.statusInstruction(s.prover, status, nil)
		ix.Accounts[0].Address = s.prover2
		err := s.run(ix, s.prover)
		s.Require().ErrorIs(err, types.ErrInvalidExecutionAccount)
	})

	s.Run("too few accounts", func() {
		ix := s.statusInstruction(s.prover, status, nil)
		ix.Accounts = ix.Accounts[:3]
		err := s.run(ix, s.prover)
		s.Require().ErrorIs(err, types.ErrInvalidAccounts)
	})

	s.Run("only completed status", func() {
		failed := *status
		failed.Status = types.StatusFailed
		err := s.run(s.statusInstruction(s.prover, &failed, nil), s.prover)
		s.Require().ErrorIs(err, types.ErrInvalidStatus)
	})
}
