// Package zkmock produces real BN254 Groth16 proofs over the receipt
// public input layout, for tests that have no zkVM prover available.
package zkmock

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/zkchannel/zkchannel/x/channel/types"
	"github.com/zkchannel/zkchannel/x/channel/zkproof"
)

// ReceiptCircuit exposes the five receipt public inputs. The prover only
// has to know their sum, so any input vector is provable, but a proof
// stays bound to the exact inputs it was produced for.
type ReceiptCircuit struct {
	Inputs [zkproof.NumPublicInputs]frontend.Variable `gnark:",public"`
	Sum    frontend.Variable
}

func (c *ReceiptCircuit) Define(api frontend.API) error {
	sum := api.Add(c.Inputs[0], c.Inputs[1], c.Inputs[2], c.Inputs[3], c.Inputs[4])
	api.AssertIsEqual(sum, c.Sum)
	return nil
}

// Prover holds one trusted setup of ReceiptCircuit.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  *groth16bn254.ProvingKey
	vk  *groth16bn254.VerifyingKey
}

// NewProver compiles the circuit and runs a fresh setup.
func NewProver() (*Prover, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &ReceiptCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile receipt circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return &Prover{
		ccs: ccs,
		pk:  pk.(*groth16bn254.ProvingKey),
		vk:  vk.(*groth16bn254.VerifyingKey),
	}, nil
}

func (p *Prover) VerifyingKey() *groth16bn254.VerifyingKey {
	return p.vk
}

// Prove returns a 256 byte proof for the given public input bytes.
func (p *Prover) Prove(publicInputs []byte) ([]byte, error) {
	if len(publicInputs) != zkproof.PublicInputsLength {
		return nil, fmt.Errorf("public inputs must be %d bytes", zkproof.PublicInputsLength)
	}
	modulus := ecc.BN254.ScalarField()

	var assignment ReceiptCircuit
	sum := new(big.Int)
	for i := range assignment.Inputs {
		word := publicInputs[i*zkproof.FieldElementLength : (i+1)*zkproof.FieldElementLength]
		v := new(big.Int).SetBytes(word)
		assignment.Inputs[i] = v
		sum.Add(sum, v)
	}
	assignment.Sum = sum.Mod(sum, modulus)

	witness, err := frontend.NewWitness(&assignment, modulus)
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	bn, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}
	return zkproof.EncodeProof(bn)
}

// Receipt is everything a status update carries.
type Receipt struct {
	Proof            []byte
	ExecutionDigest  []byte
	InputDigest      []byte
	AssumptionDigest []byte
	CommittedOutputs []byte
	ExitCodeSystem   uint32
	ExitCodeUser     uint32
}

// ProveReceipt fills in r.Proof for imageID under version.
func (p *Prover) ProveReceipt(version types.ProverVersion, imageID string, r Receipt) (Receipt, error) {
	output, err := zkproof.OutputDigest(version, r.InputDigest, r.CommittedOutputs, r.AssumptionDigest)
	if err != nil {
		return r, err
	}
	inputs, err := zkproof.PrepareInputs(version, imageID, r.ExecutionDigest, output, r.ExitCodeSystem, r.ExitCodeUser)
	if err != nil {
		return r, err
	}
	r.Proof, err = p.Prove(inputs)
	return r, err
}

var (
	sharedOnce    sync.Once
	sharedProvers map[types.ProverVersion]*Prover
	sharedErr     error
)

// Provers returns one cached prover per supported version, each with its
// own setup so proofs do not verify across versions.
func Provers() (map[types.ProverVersion]*Prover, error) {
	sharedOnce.Do(func() {
		sharedProvers = make(map[types.ProverVersion]*Prover)
		for _, v := range types.SupportedProverVersions() {
			p, err := NewProver()
			if err != nil {
				sharedErr = err
				return
			}
			sharedProvers[v] = p
		}
	})
	return sharedProvers, sharedErr
}

// NewVerifier returns a Groth16 verifier loaded with the keys of Provers.
func NewVerifier() (*zkproof.Groth16Verifier, error) {
	provers, err := Provers()
	if err != nil {
		return nil, err
	}
	v := zkproof.NewGroth16Verifier()
	for version, p := range provers {
		if err := v.SetVerifyingKey(version, p.VerifyingKey()); err != nil {
			return nil, err
		}
	}
	return v, nil
}
