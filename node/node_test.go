package node_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/cosmos/cosmos-sdk/crypto/keys/ed25519"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/node"
	"github.com/zkchannel/zkchannel/testutil/zkmock"
	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

const (
	testImageID  = "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f"
	otherImageID = "0101010101010101010101010101010101010101010101010101010101010101"
	funds        = 1_000_000_000
)

// mockProver proves with the test circuit; block, when set, holds every
// proof until closed.
type mockProver struct {
	calls atomic.Int32
	fail  bool
	block chan struct{}
}

func (p *mockProver) Prove(ctx context.Context, job node.Job) (*node.Receipt, error) {
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.fail {
		return nil, errors.New("guest panicked")
	}
	provers, err := zkmock.Provers()
	if err != nil {
		return nil, err
	}
	r, err := provers[job.Request.ProverVersion].ProveReceipt(job.Request.ProverVersion, job.Request.ImageID, zkmock.Receipt{
		ExecutionDigest:  bytes.Repeat([]byte{0x5e}, 32),
		InputDigest:      bytes.Repeat([]byte{0x1d}, 32),
		AssumptionDigest: make([]byte, 32),
		CommittedOutputs: []byte{1, 2, 3},
	})
	if err != nil {
		return nil, err
	}
	return &node.Receipt{
		Proof:            r.Proof,
		ExecutionDigest:  r.ExecutionDigest,
		InputDigest:      r.InputDigest,
		AssumptionDigest: r.AssumptionDigest,
		CommittedOutputs: r.CommittedOutputs,
	}, nil
}

type NodeTestSuite struct {
	suite.Suite
	ledger    *app.Ledger
	server    *httptest.Server
	client    *client.Client
	requester cryptotypes.PrivKey
	proverKey cryptotypes.PrivKey
	rival     cryptotypes.PrivKey
}

func TestNodeTestSuite(t *testing.T) {
	suite.Run(t, new(NodeTestSuite))
}

func (s *NodeTestSuite) SetupTest() {
	verifier, err := zkmock.NewVerifier()
	s.Require().NoError(err)
	s.ledger, err = app.NewLedger(app.DefaultConfig(), verifier, log.NewNopLogger())
	s.Require().NoError(err)

	s.requester, s.proverKey, s.rival = ed25519.GenPrivKey(), ed25519.GenPrivKey(), ed25519.GenPrivKey()
	gs := app.NewDefaultGenesisState(funds, s.addr(s.requester), s.addr(s.proverKey), s.addr(s.rival))
	s.Require().NoError(s.ledger.InitChain(*gs))

	cfg := api.DefaultConfig()
	cfg.RateLimitRPS = 0
	s.server = httptest.NewServer(api.NewServer(s.ledger, cfg, log.NewNopLogger()).Handler())

	ccfg := client.DefaultConfig()
	ccfg.Endpoint = s.server.URL
	ccfg.RetryBackoff = time.Millisecond
	ccfg.PollInterval = 10 * time.Millisecond
	s.client, err = client.New(ccfg, log.NewNopLogger())
	s.Require().NoError(err)

	for _, id := range []string{testImageID, otherImageID} {
		ix, err := client.DeployInstruction(s.addr(s.requester), s.addr(s.requester), &types.DeployV1{
			ImageID:            id,
			ImageSize:          2048,
			ProgramName:        "node-test",
			URL:                "https://images.example.com/node-test",
			AcceptedInputTypes: []types.InputType{types.InputTypePublicData},
		})
		s.Require().NoError(err)
		_, err = s.client.SendTransaction(context.Background(), s.requester, []types.Instruction{ix})
		s.Require().NoError(err)
	}
}

func (s *NodeTestSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.ledger.Close())
}

func (s *NodeTestSuite) addr(k cryptotypes.PrivKey) types.Address {
	return types.AddressFromPubKey(k.PubKey())
}

func (s *NodeTestSuite) execute(id, imageID string, tip, ttl uint64) types.Address {
	ix, err := client.ExecuteInstruction(s.addr(s.requester), s.addr(s.requester), &types.ExecuteV1{
		ExecutionID:    id,
		ImageID:        imageID,
		Tip:            tip,
		MaxBlockHeight: s.ledger.Height() + ttl,
		Inputs:         []types.Input{{Type: types.InputTypePublicData, Data: []byte(id)}},
	})
	s.Require().NoError(err)
	_, err = s.client.SendTransaction(context.Background(), s.requester, []types.Instruction{ix})
	s.Require().NoError(err)
	addr, _, err := types.ExecutionAddress(s.addr(s.requester), id)
	s.Require().NoError(err)
	return addr
}

func (s *NodeTestSuite) newNode(cfg node.Config, prover node.Prover) *node.Node {
	n, err := node.New(cfg, s.client, prover, s.proverKey, log.NewNopLogger())
	s.Require().NoError(err)
	return n
}

func (s *NodeTestSuite) balance(addr types.Address) uint64 {
	acct, err := s.ledger.GetAccount(addr)
	s.Require().NoError(err)
	return acct.Lamports
}

func (s *NodeTestSuite) TestProvesAndSettles() {
	exec := s.execute("job-1", testImageID, 5000, 100)
	before := s.balance(s.addr(s.proverKey))

	prover := &mockProver{}
	n := s.newNode(node.DefaultConfig(), prover)
	started, err := n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, started)
	s.Require().Equal(int32(1), prover.calls.Load())

	view, err := s.ledger.GetExecution(exec)
	s.Require().NoError(err)
	s.Require().NotNil(view.State.Settled)
	s.Require().Equal(types.ExitCodeSuccess, view.State.Settled.ExitCode)
	s.Require().Equal(s.addr(s.proverKey), view.Claim.Claimer)

	// The prover funded the claim account and earned the tip.
	claimAddr, _, err := types.ExecutionClaimAddress(exec)
	s.Require().NoError(err)
	s.Require().Equal(before-s.balance(claimAddr)+5000, s.balance(s.addr(s.proverKey)))

	s.Require().Equal(1, n.Tracker().Len())
	outcomes := n.Tracker().Sweep(context.Background())
	s.Require().Equal([]node.Outcome{{Execution: exec, Result: types.ExitCodeSuccess.String()}}, outcomes)
	s.Require().Zero(n.Tracker().Len())

	started, err = n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Zero(started)
}

func (s *NodeTestSuite) TestSkipsIneligible() {
	s.execute("cheap", testImageID, 1, 100)
	s.execute("soon", testImageID, 5000, 3)
	s.execute("other-image", otherImageID, 5000, 100)

	cfg := node.DefaultConfig()
	cfg.MinTip = 10
	cfg.MinBlocksRemaining = 5
	cfg.Images = []string{testImageID}
	prover := &mockProver{}
	n := s.newNode(cfg, prover)

	started, err := n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Zero(started)
	s.Require().Zero(prover.calls.Load())
}

func (s *NodeTestSuite) TestLostClaimIsNotProven() {
	s.execute("contested", testImageID, 5000, 100)
	ix, err := client.ClaimInstruction(s.addr(s.rival), s.addr(s.rival), s.addr(s.requester), &types.ClaimV1{ExecutionID: "contested"})
	s.Require().NoError(err)
	_, err = s.client.SendTransaction(context.Background(), s.rival, []types.Instruction{ix})
	s.Require().NoError(err)

	prover := &mockProver{}
	n := s.newNode(node.DefaultConfig(), prover)
	started, err := n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Zero(started, "executions claimed by others are skipped")
	s.Require().Zero(prover.calls.Load())
}

func (s *NodeTestSuite) TestResumesOwnClaim() {
	exec := s.execute("resume", testImageID, 5000, 100)
	ix, err := client.ClaimInstruction(s.addr(s.proverKey), s.addr(s.proverKey), s.addr(s.requester), &types.ClaimV1{ExecutionID: "resume"})
	s.Require().NoError(err)
	_, err = s.client.SendTransaction(context.Background(), s.proverKey, []types.Instruction{ix})
	s.Require().NoError(err)

	n := s.newNode(node.DefaultConfig(), &mockProver{})
	started, err := n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, started)

	view, err := s.ledger.GetExecution(exec)
	s.Require().NoError(err)
	s.Require().NotNil(view.State.Settled)
}

func (s *NodeTestSuite) TestProverFailureLeavesExecutionPending() {
	exec := s.execute("broken", testImageID, 5000, 100)

	n := s.newNode(node.DefaultConfig(), &mockProver{fail: true})
	started, err := n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, started)

	view, err := s.ledger.GetExecution(exec)
	s.Require().NoError(err)
	s.Require().NotNil(view.State.Pending)
	s.Require().NotNil(view.Claim)
	s.Require().Zero(n.Tracker().Len())
}

func (s *NodeTestSuite) TestConcurrencyLimit() {
	s.execute("a", testImageID, 5000, 100)
	s.execute("b", testImageID, 5000, 100)
	s.execute("c", testImageID, 5000, 100)

	cfg := node.DefaultConfig()
	cfg.MaxConcurrentProofs = 1
	prover := &mockProver{block: make(chan struct{})}
	n := s.newNode(cfg, prover)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(prover.block)
	}()
	started, err := n.Step(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, started)
	s.Require().Equal(int32(1), prover.calls.Load())
}

func (s *NodeTestSuite) TestTrackerExpiry() {
	exec := s.execute("tracked", testImageID, 5000, 2)
	req, err := s.ledger.GetExecution(exec)
	s.Require().NoError(err)

	tracker := node.NewTracker(s.client, time.Millisecond, log.NewNopLogger())
	tracker.Track(exec, req.State.Pending)
	s.Require().Empty(tracker.Sweep(context.Background()))

	for i := 0; i < 3; i++ {
		s.ledger.AdvanceBlock()
	}
	s.Require().Equal([]node.Outcome{{Execution: exec, Result: "expired"}}, tracker.Sweep(context.Background()))
}

func (s *NodeTestSuite) TestRunStopsWithContext() {
	s.execute("run", testImageID, 5000, 100)
	cfg := node.DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	n := s.newNode(cfg, &mockProver{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	addr, _, err := types.ExecutionAddress(s.addr(s.requester), "run")
	s.Require().NoError(err)
	settled, err := s.client.WaitForProof(ctx, s.addr(s.requester), "run", 1500*time.Millisecond)
	s.Require().NoError(err, addr.String())
	s.Require().Equal(types.ExitCodeSuccess, settled.ExitCode)

	cancel()
	s.Require().NoError(<-done)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, node.DefaultConfig().Validate())

	cfg := node.DefaultConfig()
	cfg.MaxConcurrentProofs = 0
	require.Error(t, cfg.Validate())

	cfg = node.DefaultConfig()
	cfg.Images = []string{"not-hex"}
	require.Error(t, cfg.Validate())
}
