// Package node implements a prover node: it watches the ledger for pending
// executions, claims the ones it wants, proves them with an external prover
// and submits the result.
package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	"golang.org/x/sync/errgroup"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/keeper"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Ledger is the part of the client the node uses.
type Ledger interface {
	Height(ctx context.Context) (uint64, error)
	PendingExecutions(ctx context.Context, limit int) (*api.PendingExecutionsResponse, error)
	GetExecution(ctx context.Context, addr types.Address) (*api.ExecutionResponse, error)
	SendTransaction(ctx context.Context, payer cryptotypes.PrivKey, ixs []types.Instruction, signers ...cryptotypes.PrivKey) (*app.TxResult, error)
}

var _ Ledger = (*client.Client)(nil)

// Node is a prover node.
type Node struct {
	cfg     Config
	ledger  Ledger
	prover  Prover
	key     cryptotypes.PrivKey
	addr    types.Address
	logger  log.Logger
	metrics *Metrics
	tracker *Tracker
	images  map[string]bool

	mu     sync.Mutex
	active map[types.Address]bool
}

// New creates a node that signs with key.
func New(cfg Config, ledger Ledger, prover Prover, key cryptotypes.PrivKey, logger log.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prover == nil {
		return nil, fmt.Errorf("prover is required")
	}
	var images map[string]bool
	if len(cfg.Images) > 0 {
		images = make(map[string]bool, len(cfg.Images))
		for _, id := range cfg.Images {
			images[strings.ToLower(id)] = true
		}
	}
	return &Node{
		cfg:     cfg,
		ledger:  ledger,
		prover:  prover,
		key:     key,
		addr:    types.AddressFromPubKey(key.PubKey()),
		logger:  logger.With("module", "node"),
		metrics: NewMetrics(),
		tracker: NewTracker(ledger, cfg.PollInterval, logger),
		images:  images,
		active:  make(map[types.Address]bool),
	}, nil
}

// Address is the node's signing address, which receives tips.
func (n *Node) Address() types.Address { return n.addr }

// Tracker returns the node's execution tracker.
func (n *Node) Tracker() *Tracker { return n.tracker }

// Run polls for work until ctx is done, then waits for proofs in flight.
func (n *Node) Run(ctx context.Context) error {
	n.logger.Info("prover node started", "address", n.addr.String(), "max_concurrent", n.cfg.MaxConcurrentProofs)

	pool := new(errgroup.Group)
	pool.SetLimit(n.cfg.MaxConcurrentProofs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.tracker.Run(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(n.cfg.PollInterval)
		defer ticker.Stop()
		for {
			if _, err := n.poll(gctx, pool); err != nil {
				n.logger.Error("poll failed", "error", err)
			}
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	err := g.Wait()
	_ = pool.Wait()
	n.logger.Info("prover node stopped")
	return err
}

// Step runs one poll and waits for the work it started. It returns the
// number of executions taken.
func (n *Node) Step(ctx context.Context) (int, error) {
	pool := new(errgroup.Group)
	pool.SetLimit(n.cfg.MaxConcurrentProofs)
	started, err := n.poll(ctx, pool)
	_ = pool.Wait()
	return started, err
}

// poll starts work on eligible executions until the pool is full.
func (n *Node) poll(ctx context.Context, pool *errgroup.Group) (int, error) {
	resp, err := n.ledger.PendingExecutions(ctx, n.cfg.PendingLimit)
	if err != nil {
		return 0, err
	}

	started := 0
	for _, pe := range resp.Executions {
		if !n.eligible(resp.Height, pe) || !n.reserve(pe.Address) {
			continue
		}
		pe := pe
		if !pool.TryGo(func() error {
			defer n.release(pe.Address)
			n.handle(ctx, pe)
			return nil
		}) {
			n.release(pe.Address)
			break
		}
		started++
	}
	return started, nil
}

func (n *Node) eligible(height uint64, pe keeper.PendingExecution) bool {
	req := pe.Request
	switch {
	case pe.Claim != nil && pe.Claim.Claimer != n.addr:
		return false
	case req.Tip < n.cfg.MinTip:
		return false
	case req.MaxBlockHeight < height+n.cfg.MinBlocksRemaining:
		return false
	case n.images != nil && !n.images[req.ImageID]:
		return false
	}
	return true
}

func (n *Node) reserve(addr types.Address) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active[addr] {
		return false
	}
	n.active[addr] = true
	n.metrics.InFlight.Inc()
	return true
}

func (n *Node) release(addr types.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.active, addr)
	n.metrics.InFlight.Dec()
}

// handle claims, proves and settles one execution. Executions this node
// already claimed skip the claim.
func (n *Node) handle(ctx context.Context, pe keeper.PendingExecution) {
	req := pe.Request
	logger := n.logger.With("execution", pe.Address.String(), "execution_id", req.ExecutionID)

	if pe.Claim == nil {
		if err := n.claim(ctx, req); err != nil {
			logger.Info("claim failed", "error", err)
			return
		}
		logger.Info("claimed execution", "tip", req.Tip, "max_block_height", req.MaxBlockHeight)
	}

	proveCtx, cancel := context.WithTimeout(ctx, n.cfg.ProveTimeout)
	start := time.Now()
	receipt, err := n.prover.Prove(proveCtx, Job{Execution: pe.Address, Request: req})
	cancel()
	n.metrics.ProofDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		n.metrics.Proofs.WithLabelValues("failed").Inc()
		logger.Error("proving failed", "error", err)
		return
	}
	n.metrics.Proofs.WithLabelValues("ok").Inc()

	ix, err := client.StatusInstruction(n.addr, req.Requester, statusFor(req.ExecutionID, receipt), req.Callback)
	if err != nil {
		logger.Error("build status failed", "error", err)
		return
	}
	res, err := n.ledger.SendTransaction(ctx, n.key, []types.Instruction{ix})
	if err != nil {
		n.metrics.Submissions.WithLabelValues("failed").Inc()
		logger.Error("status submission failed", "error", err)
		return
	}
	n.metrics.Submissions.WithLabelValues("ok").Inc()
	n.tracker.Track(pe.Address, req)
	logger.Info("status submitted", "tx", res.ID, "gas_used", res.GasUsed)
}

func (n *Node) claim(ctx context.Context, req *types.ExecutionRequestV1) error {
	ix, err := client.ClaimInstruction(n.addr, n.addr, req.Requester, &types.ClaimV1{
		ExecutionID:     req.ExecutionID,
		BlockCommitment: req.MaxBlockHeight,
	})
	if err != nil {
		return err
	}
	_, err = n.ledger.SendTransaction(ctx, n.key, []types.Instruction{ix})
	switch {
	case err == nil:
		n.metrics.Claims.WithLabelValues("won").Inc()
	case errors.Is(err, types.ErrExecutionAlreadyClaimed):
		n.metrics.Claims.WithLabelValues("lost").Inc()
	default:
		n.metrics.Claims.WithLabelValues("failed").Inc()
	}
	return err
}
