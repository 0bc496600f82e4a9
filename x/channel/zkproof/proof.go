package zkproof

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

const (
	g1Size = 64
	g2Size = 128
)

// EncodeProof serializes a BN254 Groth16 proof as A || B || C using
// uncompressed affine coordinates.
func EncodeProof(proof *groth16bn254.Proof) ([]byte, error) {
	if len(proof.Commitments) > 0 {
		return nil, fmt.Errorf("proofs with commitments are not supported")
	}
	a := proof.Ar.RawBytes()
	b := proof.Bs.RawBytes()
	c := proof.Krs.RawBytes()

	out := make([]byte, 0, types.Groth16ProofLength)
	out = append(out, a[:]...)
	out = append(out, b[:]...)
	return append(out, c[:]...), nil
}

// DecodeProof parses the layout written by EncodeProof. Points must be on
// the curve and in the prime order subgroup.
func DecodeProof(raw []byte) (*groth16bn254.Proof, error) {
	if len(raw) != types.Groth16ProofLength {
		return nil, fmt.Errorf("proof must be %d bytes, got %d", types.Groth16ProofLength, len(raw))
	}
	var (
		proof groth16bn254.Proof
		err   error
	)
	if _, err = proof.Ar.SetBytes(raw[:g1Size]); err != nil {
		return nil, fmt.Errorf("proof point A: %w", err)
	}
	if _, err = proof.Bs.SetBytes(raw[g1Size : g1Size+g2Size]); err != nil {
		return nil, fmt.Errorf("proof point B: %w", err)
	}
	if _, err = proof.Krs.SetBytes(raw[g1Size+g2Size:]); err != nil {
		return nil, fmt.Errorf("proof point C: %w", err)
	}
	return &proof, nil
}

// DecodePublicInputs converts big-endian 32 byte words to scalars. Words
// that are not canonical field elements are rejected.
func DecodePublicInputs(raw []byte) (fr.Vector, error) {
	if len(raw) != PublicInputsLength {
		return nil, fmt.Errorf("public inputs must be %d bytes, got %d", PublicInputsLength, len(raw))
	}
	out := make(fr.Vector, NumPublicInputs)
	for i := range out {
		word := raw[i*FieldElementLength : (i+1)*FieldElementLength]
		if err := out[i].SetBytesCanonical(word); err != nil {
			return nil, fmt.Errorf("public input %d: %w", i, err)
		}
	}
	return out, nil
}
