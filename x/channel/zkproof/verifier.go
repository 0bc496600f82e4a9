package zkproof

import (
	"fmt"
	"io"
	"os"
	"sync"

	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Verifier checks a serialized proof against prepared public inputs.
// Proofs that fail to parse or do not verify return false with a nil
// error; an error means the verifier cannot judge this version at all.
type Verifier interface {
	Verify(version types.ProverVersion, proof, publicInputs []byte) (bool, error)
}

// Groth16Verifier verifies BN254 Groth16 receipts with one verifying key
// per prover version.
type Groth16Verifier struct {
	mu   sync.RWMutex
	keys map[types.ProverVersion]*groth16bn254.VerifyingKey
}

// NewGroth16Verifier returns a verifier with no keys loaded.
func NewGroth16Verifier() *Groth16Verifier {
	return &Groth16Verifier{keys: make(map[types.ProverVersion]*groth16bn254.VerifyingKey)}
}

// SetVerifyingKey installs vk for version after checking that it exposes
// the expected number of public inputs.
func (v *Groth16Verifier) SetVerifyingKey(version types.ProverVersion, vk *groth16bn254.VerifyingKey) error {
	if _, err := lookup(version); err != nil {
		return err
	}
	if got := len(vk.G1.K); got != NumPublicInputs+1 {
		return fmt.Errorf("verifying key for %s has %d public inputs, want %d", version, got-1, NumPublicInputs)
	}
	if err := vk.Precompute(); err != nil {
		return fmt.Errorf("precompute verifying key: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[version] = vk
	return nil
}

// LoadVerifyingKey reads a gnark serialized BN254 verifying key.
func LoadVerifyingKey(r io.Reader) (*groth16bn254.VerifyingKey, error) {
	vk := new(groth16bn254.VerifyingKey)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return vk, nil
}

// LoadVerifyingKeyFile installs the key stored at path for version.
func (v *Groth16Verifier) LoadVerifyingKeyFile(version types.ProverVersion, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	vk, err := LoadVerifyingKey(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return v.SetVerifyingKey(version, vk)
}

// Versions lists the versions with a loaded key.
func (v *Groth16Verifier) Versions() []types.ProverVersion {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]types.ProverVersion, 0, len(v.keys))
	for _, version := range types.SupportedProverVersions() {
		if _, ok := v.keys[version]; ok {
			out = append(out, version)
		}
	}
	return out
}

func (v *Groth16Verifier) Verify(version types.ProverVersion, proof, publicInputs []byte) (bool, error) {
	v.mu.RLock()
	vk, ok := v.keys[version]
	v.mu.RUnlock()
	if !ok {
		return false, types.ErrUnsupportedProverVersion.Wrapf("no verifying key loaded for %s", version)
	}

	expected, err := ProofLength(version)
	if err != nil {
		return false, err
	}
	if len(proof) != expected {
		return false, nil
	}
	parsed, err := DecodeProof(proof)
	if err != nil {
		return false, nil
	}
	inputs, err := DecodePublicInputs(publicInputs)
	if err != nil {
		return false, nil
	}
	return groth16bn254.Verify(parsed, vk, inputs) == nil, nil
}

// DevVerifier accepts any structurally valid proof. It only exists for
// local networks without a prover; production ledgers must not use it.
type DevVerifier struct{}

func (DevVerifier) Verify(version types.ProverVersion, proof, publicInputs []byte) (bool, error) {
	expected, err := ProofLength(version)
	if err != nil {
		return false, err
	}
	return len(proof) == expected && len(publicInputs) == PublicInputsLength, nil
}
