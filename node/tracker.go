package node

import (
	"context"
	"errors"
	"sync"
	"time"

	"cosmossdk.io/log"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Outcome is the final state of a tracked execution.
type Outcome struct {
	Execution types.Address
	// Result is the settled exit code name, "expired" or "missing".
	Result string
}

type tracked struct {
	executionID    string
	maxBlockHeight uint64
	submittedAt    time.Time
}

// Tracker follows executions the node submitted a status for until the
// ledger shows them settled or past their last valid height.
type Tracker struct {
	ledger   Ledger
	logger   log.Logger
	metrics  *Metrics
	interval time.Duration

	mu      sync.Mutex
	entries map[types.Address]tracked
}

// NewTracker creates a tracker polling at interval.
func NewTracker(ledger Ledger, interval time.Duration, logger log.Logger) *Tracker {
	return &Tracker{
		ledger:   ledger,
		logger:   logger.With("module", "tracker"),
		metrics:  NewMetrics(),
		interval: interval,
		entries:  make(map[types.Address]tracked),
	}
}

// Track starts following execution.
func (t *Tracker) Track(execution types.Address, req *types.ExecutionRequestV1) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[execution] = tracked{
		executionID:    req.ExecutionID,
		maxBlockHeight: req.MaxBlockHeight,
		submittedAt:    time.Now(),
	}
}

// Len returns the number of executions still followed.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Run sweeps every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Sweep(ctx)
		}
	}
}

// Sweep checks every tracked execution once and returns those that reached
// a final state. Lookup failures keep the entry for the next sweep.
func (t *Tracker) Sweep(ctx context.Context) []Outcome {
	t.mu.Lock()
	snapshot := make(map[types.Address]tracked, len(t.entries))
	for addr, e := range t.entries {
		snapshot[addr] = e
	}
	t.mu.Unlock()
	if len(snapshot) == 0 {
		return nil
	}

	height, err := t.ledger.Height(ctx)
	if err != nil {
		t.logger.Debug("tracker height lookup failed", "error", err)
		return nil
	}

	var done []Outcome
	for addr, e := range snapshot {
		exec, err := t.ledger.GetExecution(ctx, addr)
		var result string
		switch {
		case errors.Is(err, types.ErrAccountNotFound):
			result = "missing"
		case err != nil:
			t.logger.Debug("tracker lookup failed", "execution", addr.String(), "error", err)
			continue
		case exec.Settled != nil:
			result = exec.Settled.ExitCode.String()
		case height > e.maxBlockHeight:
			result = "expired"
		default:
			continue
		}

		t.mu.Lock()
		delete(t.entries, addr)
		t.mu.Unlock()
		t.metrics.Settlements.WithLabelValues(result).Inc()
		t.logger.Info("execution finished", "execution_id", e.executionID, "result", result, "elapsed", time.Since(e.submittedAt))
		done = append(done, Outcome{Execution: addr, Result: result})
	}
	return done
}
