package types

import (
	"fmt"
	"strings"
)

// ProverVersion selects the verifying key, control constants and digest
// layout a proof was produced with.
type ProverVersion uint8

const (
	ProverVersionV1_0_1 ProverVersion = iota + 1
	ProverVersionV1_2_1
)

// DefaultProverVersion is used when a request does not name one.
const DefaultProverVersion = ProverVersionV1_2_1

// Groth16ProofLength is the byte length of a serialized BN254 Groth16
// proof: A (64) || B (128) || C (64).
const Groth16ProofLength = 256

// SupportedProverVersions lists every version the channel accepts.
func SupportedProverVersions() []ProverVersion {
	return []ProverVersion{ProverVersionV1_0_1, ProverVersionV1_2_1}
}

func (v ProverVersion) IsSupported() bool {
	return v == ProverVersionV1_0_1 || v == ProverVersionV1_2_1
}

// ProofLength is the exact proof length accepted for v.
func (v ProverVersion) ProofLength() int {
	switch v {
	case ProverVersionV1_0_1, ProverVersionV1_2_1:
		return Groth16ProofLength
	default:
		return 0
	}
}

func (v ProverVersion) String() string {
	switch v {
	case ProverVersionV1_0_1:
		return "v1.0.1"
	case ProverVersionV1_2_1:
		return "v1.2.1"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// ParseProverVersion accepts "v1.0.1", "1.0.1" and the V1_0_1 spelling.
func ParseProverVersion(s string) (ProverVersion, error) {
	norm := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V"))
	norm = strings.ReplaceAll(norm, "_", ".")
	switch norm {
	case "1.0.1":
		return ProverVersionV1_0_1, nil
	case "1.2.1":
		return ProverVersionV1_2_1, nil
	default:
		return 0, ErrUnsupportedProverVersion.Wrapf("%q", s)
	}
}
