package keeper_test

import (
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// TestSettlementConservesLamports checks, for arbitrary tips and outcomes,
// that settlement moves lamports only between the execution account, the
// requester and the prover, and leaves the account at its rent minimum.
func (s *KeeperTestSuite) TestSettlementConservesLamports() {
	rapid.Check(s.T(), func(rt *rapid.T) {
		s.SetupTest()

		tip := rapid.Uint64Range(1, 100_000_000).Draw(rt, "tip")
		outcome := rapid.SampledFrom([]types.ExitCode{
			types.ExitCodeSuccess,
			types.ExitCodeVerifyError,
			types.ExitCodeProvingError,
		}).Draw(rt, "outcome")
		version := rapid.SampledFrom(types.SupportedProverVersions()).Draw(rt, "version")
		outputs := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "outputs")

		msg := s.executeMsg("property")
		msg.Tip = tip
		msg.ProverVersion = version
		execAddr := s.openExecution(msg)

		r := s.receipt()
		r.CommittedOutputs = outputs
		status := s.provenStatus(msg.ExecutionID, version, r)
		switch outcome {
		case types.ExitCodeVerifyError:
			status.CommittedOutputs = append(append([]byte(nil), outputs...), 0xff)
		case types.ExitCodeProvingError:
			status.Proof = nil
		}

		requester, prover, exec := s.balance(s.requester), s.balance(s.prover), s.balance(execAddr)
		require.NoError(rt, s.run(s.statusInstruction(s.prover, status, nil), s.prover))

		settled := s.settledState(execAddr)
		require.Equal(rt, outcome, settled.ExitCode)

		size := types.SettledSize
		expectedTip := uint64(0)
		if outcome == types.ExitCodeSuccess {
			size = types.SettledWithDigestSize
			expectedTip = tip
		}
		minimum := s.params().Rent.MinimumBalance(size)
		require.Equal(rt, minimum, s.balance(execAddr))
		require.Equal(rt, prover+expectedTip, s.balance(s.prover))
		require.Equal(rt, requester+exec-minimum-expectedTip, s.balance(s.requester))

		msg2, broken := keeperInvariants(s)
		require.False(rt, broken, msg2)
	})
}
