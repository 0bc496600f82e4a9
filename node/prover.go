package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Job is one execution handed to a prover.
type Job struct {
	Execution types.Address             `json:"execution"`
	Request   *types.ExecutionRequestV1 `json:"request"`
}

// Receipt is a prover's result, everything a status update carries.
type Receipt struct {
	Proof            []byte `json:"proof"`
	ExecutionDigest  []byte `json:"execution_digest"`
	InputDigest      []byte `json:"input_digest"`
	AssumptionDigest []byte `json:"assumption_digest"`
	CommittedOutputs []byte `json:"committed_outputs"`
	ExitCodeSystem   uint32 `json:"exit_code_system"`
	ExitCodeUser     uint32 `json:"exit_code_user"`
}

// Prover turns a job into a receipt. Implementations must honour ctx.
type Prover interface {
	Prove(ctx context.Context, job Job) (*Receipt, error)
}

// CommandProver runs an external program per job. The job is written to
// its stdin as JSON and a Receipt is read from its stdout.
type CommandProver struct {
	Path string
	Args []string
}

func (p CommandProver) Prove(ctx context.Context, job Job) (*Receipt, error) {
	in, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("prover %s: %w: %s", p.Path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	var r Receipt
	if err := json.Unmarshal(stdout.Bytes(), &r); err != nil {
		return nil, fmt.Errorf("prover %s: decode receipt: %w", p.Path, err)
	}
	return &r, nil
}

// statusFor builds the status update for a receipt.
func statusFor(executionID string, r *Receipt) *types.StatusV1 {
	return &types.StatusV1{
		ExecutionID:      executionID,
		Status:           types.StatusCompleted,
		ExitCodeSystem:   r.ExitCodeSystem,
		ExitCodeUser:     r.ExitCodeUser,
		Proof:            r.Proof,
		ExecutionDigest:  r.ExecutionDigest,
		InputDigest:      r.InputDigest,
		AssumptionDigest: r.AssumptionDigest,
		CommittedOutputs: r.CommittedOutputs,
	}
}
