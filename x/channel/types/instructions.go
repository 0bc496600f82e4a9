package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// InstructionKind is the first byte of every channel instruction.
type InstructionKind uint8

const (
	InstructionDeploy InstructionKind = iota + 1
	InstructionExecute
	InstructionClaim
	InstructionStatus
)

// InstructionVersion1 is the only payload version written today.
const InstructionVersion1 uint8 = 1

const (
	MaxExecutionIDLength = MaxSeedLength
	ImageIDLength        = 64
	DigestLength         = 32
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionDeploy:
		return "deploy"
	case InstructionExecute:
		return "execute"
	case InstructionClaim:
		return "claim"
	case InstructionStatus:
		return "status"
	default:
		return fmt.Sprintf("instruction(%d)", uint8(k))
	}
}

// ChannelInstruction is implemented only by the payload types in this
// package, so a type switch over it is exhaustive.
type ChannelInstruction interface {
	Kind() InstructionKind
	ValidateBasic() error
	isChannelInstruction()
}

// DeployV1 registers a guest image.
type DeployV1 struct {
	ImageID            string      `json:"image_id"`
	ImageSize          uint64      `json:"image_size"`
	ProgramName        string      `json:"program_name"`
	URL                string      `json:"url"`
	AcceptedInputTypes []InputType `json:"accepted_input_types"`
}

// ExecuteV1 opens an execution request.
type ExecuteV1 struct {
	ExecutionID     string          `json:"execution_id"`
	ImageID         string          `json:"image_id"`
	Inputs          []Input         `json:"inputs"`
	Tip             uint64          `json:"tip"`
	MaxBlockHeight  uint64          `json:"max_block_height"`
	VerifyInputHash bool            `json:"verify_input_hash"`
	InputHash       []byte          `json:"input_hash,omitempty"`
	ForwardOutput   bool            `json:"forward_output"`
	Callback        *CallbackConfig `json:"callback,omitempty" rlp:"nil"`
	ProverVersion   ProverVersion   `json:"prover_version" rlp:"optional"`
}

// ClaimV1 reserves an execution for the signing prover.
type ClaimV1 struct {
	ExecutionID     string `json:"execution_id"`
	BlockCommitment uint64 `json:"block_commitment"`
}

// StatusV1 carries a prover's result. Empty byte fields are absent.
type StatusV1 struct {
	ExecutionID      string `json:"execution_id"`
	Status           Status `json:"status"`
	ExitCodeSystem   uint32 `json:"exit_code_system"`
	ExitCodeUser     uint32 `json:"exit_code_user"`
	Proof            []byte `json:"proof,omitempty"`
	ExecutionDigest  []byte `json:"execution_digest,omitempty"`
	InputDigest      []byte `json:"input_digest,omitempty"`
	AssumptionDigest []byte `json:"assumption_digest,omitempty"`
	CommittedOutputs []byte `json:"committed_outputs,omitempty"`
}

func (*DeployV1) Kind() InstructionKind  { return InstructionDeploy }
func (*ExecuteV1) Kind() InstructionKind { return InstructionExecute }
func (*ClaimV1) Kind() InstructionKind   { return InstructionClaim }
func (*StatusV1) Kind() InstructionKind  { return InstructionStatus }

func (*DeployV1) isChannelInstruction()  {}
func (*ExecuteV1) isChannelInstruction() {}
func (*ClaimV1) isChannelInstruction()   {}
func (*StatusV1) isChannelInstruction()  {}

// ValidateImageID checks for 64 hex characters.
func ValidateImageID(imageID string) error {
	if len(imageID) != ImageIDLength {
		return ErrInvalidImageID.Wrapf("expected %d hex characters, got %d", ImageIDLength, len(imageID))
	}
	if _, err := hex.DecodeString(imageID); err != nil {
		return ErrInvalidImageID.Wrapf("not hex: %v", err)
	}
	return nil
}

// ValidateExecutionID checks that the id fits in a single seed.
func ValidateExecutionID(executionID string) error {
	if len(executionID) == 0 || len(executionID) > MaxExecutionIDLength {
		return ErrInvalidExecutionID.Wrapf("length %d not in [1, %d]", len(executionID), MaxExecutionIDLength)
	}
	return nil
}

func (d *DeployV1) ValidateBasic() error {
	if err := ValidateImageID(d.ImageID); err != nil {
		return err
	}
	if d.ProgramName == "" {
		return ErrInvalidInstruction.Wrap("program name is required")
	}
	if d.URL == "" {
		return ErrInvalidInstruction.Wrap("image url is required")
	}
	if len(d.AcceptedInputTypes) == 0 {
		return ErrInvalidInputs.Wrap("at least one accepted input type is required")
	}
	for _, t := range d.AcceptedInputTypes {
		if !t.IsValid() {
			return ErrInvalidInputs.Wrapf("unknown input type %d", t)
		}
	}
	return nil
}

func (e *ExecuteV1) ValidateBasic() error {
	if err := ValidateExecutionID(e.ExecutionID); err != nil {
		return err
	}
	if err := ValidateImageID(e.ImageID); err != nil {
		return err
	}
	if e.Tip == 0 {
		return ErrInvalidTip.Wrap("tip must be positive")
	}
	for i, in := range e.Inputs {
		if !in.Type.IsValid() {
			return ErrInvalidInputs.Wrapf("input %d has unknown type %d", i, in.Type)
		}
	}
	if e.VerifyInputHash && len(e.InputHash) != DigestLength {
		return ErrInvalidInstruction.Wrapf("verify_input_hash requires a %d byte input hash", DigestLength)
	}
	if len(e.InputHash) != 0 && len(e.InputHash) != DigestLength {
		return ErrInvalidInstruction.Wrapf("input hash must be %d bytes", DigestLength)
	}
	if e.ProverVersion != 0 && !e.ProverVersion.IsSupported() {
		return ErrUnsupportedProverVersion.Wrapf("%s", e.ProverVersion)
	}
	return nil
}

// EffectiveProverVersion resolves the zero value to the default version.
func (e *ExecuteV1) EffectiveProverVersion() ProverVersion {
	if e.ProverVersion == 0 {
		return DefaultProverVersion
	}
	return e.ProverVersion
}

func (c *ClaimV1) ValidateBasic() error {
	return ValidateExecutionID(c.ExecutionID)
}

func (s *StatusV1) ValidateBasic() error {
	if err := ValidateExecutionID(s.ExecutionID); err != nil {
		return err
	}
	if s.Status != StatusCompleted {
		return ErrInvalidStatus.Wrapf("status %s", s.Status)
	}
	if s.ExitCodeSystem > MaxSystemExitCode {
		return ErrInvalidInstruction.Wrapf("system exit code %d exceeds %d", s.ExitCodeSystem, MaxSystemExitCode)
	}
	return nil
}

// EncodeInstruction serializes ix as kind || version || rlp(payload).
func EncodeInstruction(ix ChannelInstruction) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(ix)
	if err != nil {
		return nil, fmt.Errorf("encode %s instruction: %w", ix.Kind(), err)
	}
	out := make([]byte, 0, 2+len(payload))
	out = append(out, byte(ix.Kind()), InstructionVersion1)
	return append(out, payload...), nil
}

// DecodeInstruction parses the bytes produced by EncodeInstruction.
func DecodeInstruction(data []byte) (ChannelInstruction, error) {
	if len(data) < 2 {
		return nil, ErrInvalidInstruction.Wrapf("instruction too short: %d bytes", len(data))
	}
	kind, version := InstructionKind(data[0]), data[1]
	if version != InstructionVersion1 {
		return nil, ErrInvalidInstruction.Wrapf("unsupported %s version %d", kind, version)
	}

	var ix ChannelInstruction
	switch kind {
	case InstructionDeploy:
		ix = new(DeployV1)
	case InstructionExecute:
		ix = new(ExecuteV1)
	case InstructionClaim:
		ix = new(ClaimV1)
	case InstructionStatus:
		ix = new(StatusV1)
	default:
		return nil, ErrInvalidInstruction.Wrapf("unknown instruction tag %d", data[0])
	}
	if err := rlp.DecodeBytes(data[2:], ix); err != nil {
		return nil, ErrInvalidInstruction.Wrapf("decode %s: %v", kind, err)
	}
	return ix, nil
}
