package keeper_test

import (
	"github.com/cosmos/cosmos-sdk/crypto/keys/ed25519"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/testutil/programs"
	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

var (
	recorderID = types.Address{0xcb, 0x01}
	failingID  = types.Address{0xcb, 0x02}
	panicID    = types.Address{0xcb, 0x03}
	burnerID   = types.Address{0xcb, 0x04}
)

var callbackPrefix = []byte{0x07, 0x01}

// programAccount creates a funded data account owned by owner.
func (s *KeeperTestSuite) programAccount(owner types.Address) types.Address {
	addr := types.AddressFromPubKey(ed25519.GenPrivKey().PubKey())
	s.Require().NoError(s.keeper.Mint(s.ctx, addr, 10_000_000))
	acct := s.account(addr)
	acct.Owner = owner
	acct.Data = []byte("initial")
	s.Require().NoError(s.keeper.SetAccount(s.ctx, addr, acct))
	return addr
}

func (s *KeeperTestSuite) callbackConfig(program, data types.Address) *types.CallbackConfig {
	return &types.CallbackConfig{
		ProgramID:         program,
		InstructionPrefix: callbackPrefix,
		ExtraAccounts:     []types.CallbackAccount{{Address: data, Writable: true}},
	}
}

func (s *KeeperTestSuite) hasEvent(eventType string) bool {
	for _, ev := range s.ctx.EventManager().Events() {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func (s *KeeperTestSuite) TestCallbackDeliversOutput() {
	recorder := &programs.Recorder{ImageID: testImageID, Prefix: callbackPrefix}
	s.Require().NoError(s.keeper.RegisterProgram(recorderID, recorder))
	data := s.programAccount(recorderID)

	msg := s.executeMsg("callback")
	msg.ForwardOutput = true
	msg.Callback = s.callbackConfig(recorderID, data)
	execAddr := s.openExecution(msg)

	r := s.receipt()
	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, r)
	before := s.balance(s.prover)
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, msg.Callback), s.prover))

	s.Require().Len(recorder.Calls, 1)
	call := recorder.Calls[0]
	s.Require().Equal(execAddr, call.Execution)
	s.Require().Equal(r.InputDigest, call.Callback.InputDigest)
	s.Require().Equal(r.CommittedOutputs, call.Callback.CommittedOutputs)
	s.Require().Equal(msg.ExecutionID, call.Callback.Request.ExecutionID)

	s.Require().Equal(r.CommittedOutputs, s.account(data).Data)
	s.Require().Equal(types.ExitCodeSuccess, s.settledState(execAddr).ExitCode)
	s.Require().Equal(before+testTip, s.balance(s.prover))
	s.Require().True(s.hasEvent(types.EventTypeCallback))
	s.requireInvariants()
}

func (s *KeeperTestSuite) TestCallbackWithoutForwardedOutput() {
	recorder := &programs.Recorder{ImageID: testImageID, Prefix: callbackPrefix}
	s.Require().NoError(s.keeper.RegisterProgram(recorderID, recorder))
	data := s.programAccount(recorderID)

	msg := s.executeMsg("no-forward")
	msg.Callback = s.callbackConfig(recorderID, data)
	s.openExecution(msg)

	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, msg.Callback), s.prover))

	s.Require().Len(recorder.Calls, 1)
	s.Require().Nil(recorder.Calls[0].Callback.InputDigest)
	s.Require().Empty(recorder.Calls[0].Callback.CommittedOutputs)
}

func (s *KeeperTestSuite) TestCallbackNotRunOnFailedProof() {
	recorder := &programs.Recorder{ImageID: testImageID, Prefix: callbackPrefix}
	s.Require().NoError(s.keeper.RegisterProgram(recorderID, recorder))
	data := s.programAccount(recorderID)

	msg := s.executeMsg("no-callback")
	msg.Callback = s.callbackConfig(recorderID, data)
	execAddr := s.openExecution(msg)

	status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
	status.CommittedOutputs = []byte("tampered")
	s.Require().NoError(s.run(s.statusInstruction(s.prover, status, msg.Callback), s.prover))

	s.Require().Empty(recorder.Calls)
	s.Require().Equal(types.ExitCodeVerifyError, s.settledState(execAddr).ExitCode)
	s.Require().Equal([]byte("initial"), s.account(data).Data)
}

func (s *KeeperTestSuite) TestCallbackAccountMismatch() {
	s.Require().NoError(s.keeper.RegisterProgram(recorderID, &programs.Recorder{ImageID: testImageID, Prefix: callbackPrefix}))
	s.Require().NoError(s.keeper.RegisterProgram(failingID, programs.Failing{}))

	testCases := []struct {
		name   string
		mutate func(declared *types.CallbackConfig) *types.CallbackConfig
		err    error
	}{
		{
			name: "different extra account",
			mutate: func(declared *types.CallbackConfig) *types.CallbackConfig {
				cb := *declared
				cb.ExtraAccounts = []types.CallbackAccount{{Address: s.prover2, Writable: true}}
				return &cb
			},
			err: types.ErrInvalidCallbackExtraAccounts,
		},
		{
			name: "writability differs",
			mutate: func(declared *types.CallbackConfig) *types.CallbackConfig {
				cb := *declared
				cb.ExtraAccounts = []types.CallbackAccount{{Address: declared.ExtraAccounts[0].Address, Writable: false}}
				return &cb
			},
			err: types.ErrInvalidCallbackExtraAccounts,
		},
		{
			name: "missing extra account",
			mutate: func(declared *types.CallbackConfig) *types.CallbackConfig {
				cb := *declared
				cb.ExtraAccounts = nil
				return &cb
			},
			err: types.ErrInvalidCallbackExtraAccounts,
		},
		{
			name: "different program",
			mutate: func(declared *types.CallbackConfig) *types.CallbackConfig {
				cb := *declared
				cb.ProgramID = failingID
				return &cb
			},
			err: types.ErrInvalidCallbackProgram,
		},
		{
			name: "no callback accounts supplied",
			mutate: func(*types.CallbackConfig) *types.CallbackConfig {
				return nil
			},
			err: types.ErrInvalidCallbackProgram,
		},
	}

	for i, tc := range testCases {
		s.Run(tc.name, func() {
			data := s.programAccount(recorderID)
			msg := s.executeMsg("mismatch-" + string(rune('a'+i)))
			msg.Callback = s.callbackConfig(recorderID, data)
			execAddr := s.openExecution(msg)

			status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
			err := s.run(s.statusInstruction(s.prover, status, tc.mutate(msg.Callback)), s.prover)
			s.Require().ErrorIs(err, tc.err)

			view, err := s.keeper.GetExecution(s.ctx, execAddr)
			s.Require().NoError(err)
			s.Require().True(view.State.IsPending())
		})
	}
}

func (s *KeeperTestSuite) TestCallbackRequiresInstructionPrefix() {
	s.Require().NoError(s.keeper.RegisterProgram(recorderID, &programs.Recorder{ImageID: testImageID, Prefix: callbackPrefix}))
	data := s.programAccount(recorderID)

	msg := s.executeMsg("no-prefix")
	msg.Callback = s.callbackConfig(recorderID, data)
	msg.Callback.InstructionPrefix = nil
	ix, err := client.ExecuteInstruction(s.requester, s.requester, msg)
	s.Require().NoError(err)
	err = s.run(ix, s.requester)
	s.Require().ErrorIs(err, types.ErrInvalidCallbackProgram)
	s.Require().ErrorContains(err, "instruction prefix")

	msg.Callback.InstructionPrefix = callbackPrefix
	s.openExecution(msg)
}

func (s *KeeperTestSuite) TestCallbackFailureDoesNotRollBackSettlement() {
	testCases := []struct {
		name    string
		id      types.Address
		program types.Program
	}{
		{name: "program error", id: failingID, program: programs.Failing{}},
		{name: "program panic", id: panicID, program: programs.Panicking{}},
		{name: "out of gas", id: burnerID, program: programs.Burner{Gas: 10_000_000}},
		{name: "gas overflow", id: burnerID, program: programs.Burner{Gas: 1, Overflow: true}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.Require().NoError(s.keeper.RegisterProgram(tc.id, tc.program))
			data := s.programAccount(tc.id)

			msg := s.executeMsg("callback-fails")
			msg.ForwardOutput = true
			msg.Callback = s.callbackConfig(tc.id, data)
			execAddr := s.openExecution(msg)
			proverBefore := s.balance(s.prover)

			status := s.provenStatus(msg.ExecutionID, msg.ProverVersion, s.receipt())
			s.ctx = s.ctx.WithEventManager(sdk.NewEventManager())
			s.Require().NoError(s.run(s.statusInstruction(s.prover, status, msg.Callback), s.prover))

			s.Require().Equal(types.ExitCodeSuccess, s.settledState(execAddr).ExitCode)
			s.Require().Equal(proverBefore+testTip, s.balance(s.prover))
			s.Require().Equal([]byte("initial"), s.account(data).Data)
			s.Require().True(s.hasEvent(types.EventTypeCallbackFailed))
			s.Require().False(s.hasEvent(types.EventTypeCallback))
			s.requireInvariants()
		})
	}
}
