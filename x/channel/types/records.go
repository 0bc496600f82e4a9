package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Record tags. Pending execution records start with "ER"; settled
// execution accounts hold raw exit code bytes instead.
var (
	executionRecordTag  = []byte("ER")
	claimRecordTag      = []byte("EC")
	deploymentRecordTag = []byte("DP")
)

const recordVersion1 uint8 = 1

// Settled execution account sizes.
const (
	SettledSize           = 1
	SettledWithDigestSize = 1 + DigestLength
)

// ExecutionRequestV1 is the pending state of an execution account. It is
// immutable until settlement.
type ExecutionRequestV1 struct {
	Requester       Address         `json:"requester"`
	ExecutionID     string          `json:"execution_id"`
	ImageID         string          `json:"image_id"`
	Inputs          []Input         `json:"inputs"`
	Tip             uint64          `json:"tip"`
	MaxBlockHeight  uint64          `json:"max_block_height"`
	VerifyInputHash bool            `json:"verify_input_hash"`
	InputDigest     []byte          `json:"input_digest,omitempty"`
	ForwardOutput   bool            `json:"forward_output"`
	Callback        *CallbackConfig `json:"callback,omitempty" rlp:"nil"`
	ProverVersion   ProverVersion   `json:"prover_version"`
	CreatedAt       uint64          `json:"created_at" rlp:"optional"`
}

// HasCallback reports whether a callback is configured: a program and a
// non-empty instruction prefix.
func (r *ExecutionRequestV1) HasCallback() bool {
	return r.Callback != nil && !r.Callback.ProgramID.IsZero() && len(r.Callback.InstructionPrefix) > 0
}

// IsExpired reports whether settlement is no longer allowed at height.
func (r *ExecutionRequestV1) IsExpired(height uint64) bool {
	return height > r.MaxBlockHeight
}

// ClaimRecordV1 records which prover holds an execution.
type ClaimRecordV1 struct {
	Execution       Address `json:"execution"`
	Claimer         Address `json:"claimer"`
	ClaimedAt       uint64  `json:"claimed_at"`
	BlockCommitment uint64  `json:"block_commitment"`
}

// DeploymentRecordV1 describes a deployed guest image.
type DeploymentRecordV1 struct {
	Owner              Address     `json:"owner"`
	ImageID            string      `json:"image_id"`
	ImageSize          uint64      `json:"image_size"`
	ProgramName        string      `json:"program_name"`
	URL                string      `json:"url"`
	AcceptedInputTypes []InputType `json:"accepted_input_types"`
	DeployedAt         uint64      `json:"deployed_at" rlp:"optional"`
}

// Accepts reports whether inputs of type t may be used with this image.
func (d *DeploymentRecordV1) Accepts(t InputType) bool {
	for _, a := range d.AcceptedInputTypes {
		if a == t {
			return true
		}
	}
	return false
}

func encodeRecord(tag []byte, v interface{}) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(tag)+1+len(payload))
	out = append(out, tag...)
	out = append(out, recordVersion1)
	return append(out, payload...), nil
}

func decodeRecord(tag, data []byte, v interface{}) error {
	if len(data) < len(tag)+1 || !bytes.Equal(data[:len(tag)], tag) {
		return fmt.Errorf("missing %q record tag", tag)
	}
	if data[len(tag)] != recordVersion1 {
		return fmt.Errorf("unsupported %q record version %d", tag, data[len(tag)])
	}
	return rlp.DecodeBytes(data[len(tag)+1:], v)
}

// EncodeExecutionRequest serializes a pending record.
func EncodeExecutionRequest(r *ExecutionRequestV1) ([]byte, error) {
	return encodeRecord(executionRecordTag, r)
}

// DecodeExecutionRequest parses a pending record.
func DecodeExecutionRequest(data []byte) (*ExecutionRequestV1, error) {
	var r ExecutionRequestV1
	if err := decodeRecord(executionRecordTag, data, &r); err != nil {
		return nil, ErrInvalidExecutionAccount.Wrapf("decode execution request: %v", err)
	}
	return &r, nil
}

func EncodeClaimRecord(c *ClaimRecordV1) ([]byte, error) {
	return encodeRecord(claimRecordTag, c)
}

func DecodeClaimRecord(data []byte) (*ClaimRecordV1, error) {
	var c ClaimRecordV1
	if err := decodeRecord(claimRecordTag, data, &c); err != nil {
		return nil, ErrInvalidClaimAccount.Wrapf("decode claim: %v", err)
	}
	return &c, nil
}

func EncodeDeploymentRecord(d *DeploymentRecordV1) ([]byte, error) {
	return encodeRecord(deploymentRecordTag, d)
}

func DecodeDeploymentRecord(data []byte) (*DeploymentRecordV1, error) {
	var d DeploymentRecordV1
	if err := decodeRecord(deploymentRecordTag, data, &d); err != nil {
		return nil, ErrInvalidDeploymentAccount.Wrapf("decode deployment: %v", err)
	}
	return &d, nil
}

// SettledExecution is the terminal content of an execution account.
type SettledExecution struct {
	ExitCode    ExitCode `json:"exit_code"`
	InputDigest []byte   `json:"input_digest,omitempty"`
}

// Encode returns the 1 byte or 33 byte account content.
func (s SettledExecution) Encode() []byte {
	if len(s.InputDigest) == DigestLength {
		out := make([]byte, 0, SettledWithDigestSize)
		out = append(out, byte(s.ExitCode))
		return append(out, s.InputDigest...)
	}
	return []byte{byte(s.ExitCode)}
}

// ExecutionAccount is the parsed content of an execution account: exactly
// one of Pending or Settled is set.
type ExecutionAccount struct {
	Pending *ExecutionRequestV1
	Settled *SettledExecution
}

func (e ExecutionAccount) IsPending() bool { return e.Pending != nil }

// ParseExecutionAccount classifies by length first. Settled accounts are
// 1 or 33 bytes; anything else must be a pending record.
func ParseExecutionAccount(data []byte) (ExecutionAccount, error) {
	switch len(data) {
	case 0:
		return ExecutionAccount{}, ErrInvalidExecutionAccount.Wrap("empty account data")
	case SettledSize, SettledWithDigestSize:
		code := ExitCode(data[0])
		if !code.IsValid() {
			return ExecutionAccount{}, ErrInvalidExecutionAccount.Wrapf("unknown exit code %d", data[0])
		}
		settled := &SettledExecution{ExitCode: code}
		if len(data) == SettledWithDigestSize {
			settled.InputDigest = append([]byte(nil), data[1:]...)
		}
		return ExecutionAccount{Settled: settled}, nil
	default:
		req, err := DecodeExecutionRequest(data)
		if err != nil {
			return ExecutionAccount{}, err
		}
		return ExecutionAccount{Pending: req}, nil
	}
}
