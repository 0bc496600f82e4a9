package zkproof

import (
	"fmt"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

const (
	// NumPublicInputs is the number of BN254 scalars exposed by the
	// receipt verification circuit.
	NumPublicInputs = 5

	// FieldElementLength is the big-endian width of one public input.
	FieldElementLength = 32

	// PublicInputsLength is the byte length returned by PrepareInputs.
	PublicInputsLength = NumPublicInputs * FieldElementLength
)

// OutputDigest computes the version specific output digest binding the
// input digest, the committed outputs and the assumption digest.
func OutputDigest(version types.ProverVersion, inputDigest, committedOutputs, assumptionDigest []byte) (Digest, error) {
	p, err := lookup(version)
	if err != nil {
		return Digest{}, err
	}
	if len(inputDigest) != DigestLength {
		return Digest{}, fmt.Errorf("input digest must be %d bytes, got %d", DigestLength, len(inputDigest))
	}
	assumptions, err := DigestFromBytes(assumptionDigest)
	if err != nil {
		return Digest{}, fmt.Errorf("assumption digest: %w", err)
	}
	return p.outputDigest(inputDigest, committedOutputs, assumptions), nil
}

// PrepareInputs lays out the public inputs of the verification circuit:
// the control root split in two 128-bit halves, the receipt claim digest
// split the same way, and the BN254 control id.
func PrepareInputs(version types.ProverVersion, imageID string, executionDigest []byte, outputDigest Digest, sysExit, userExit uint32) ([]byte, error) {
	p, err := lookup(version)
	if err != nil {
		return nil, err
	}
	if sysExit > types.MaxSystemExitCode {
		return nil, fmt.Errorf("system exit code %d exceeds %d", sysExit, types.MaxSystemExitCode)
	}
	image, err := DigestFromHex(imageID)
	if err != nil {
		return nil, fmt.Errorf("image id: %w", err)
	}
	post, err := DigestFromBytes(executionDigest)
	if err != nil {
		return nil, fmt.Errorf("execution digest: %w", err)
	}

	claim := ReceiptClaimDigest(image, post, outputDigest, sysExit, userExit)
	control0, control1 := splitDigest(p.controlRoot)
	claim0, claim1 := splitDigest(claim)
	controlID := reversed(p.bn254ControlID)

	out := make([]byte, 0, PublicInputsLength)
	for _, fe := range [][FieldElementLength]byte{control0, control1, claim0, claim1, controlID} {
		out = append(out, fe[:]...)
	}
	return out, nil
}

// splitDigest reverses d and returns its low and high 128-bit halves as
// big-endian field elements.
func splitDigest(d Digest) (lo, hi [FieldElementLength]byte) {
	be := reversed(d)
	copy(lo[16:], be[16:])
	copy(hi[16:], be[:16])
	return lo, hi
}

func reversed(d Digest) [FieldElementLength]byte {
	var out [FieldElementLength]byte
	for i := range d {
		out[i] = d[DigestLength-1-i]
	}
	return out
}
