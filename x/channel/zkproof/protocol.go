package zkproof

import (
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// protocol holds the constants that differ between prover releases.
type protocol struct {
	controlRoot    Digest
	bn254ControlID Digest
	proofLength    int
	outputDigest   func(inputDigest, committedOutputs []byte, assumptionDigest Digest) Digest
}

var protocols = map[types.ProverVersion]protocol{
	types.ProverVersionV1_0_1: {
		controlRoot:    mustDigestFromHex("a516a057c9fbf5629106300934d48e0e775d4230e41e503347cad96fcbde7e2e"),
		bn254ControlID: mustDigestFromHex("51b54a62f2aa599aef768744c95de8c7d89bf716e11b1179f05d6cf0bcfeb60e"),
		proofLength:    types.Groth16ProofLength,
		outputDigest:   journalOutputDigest,
	},
	types.ProverVersionV1_2_1: {
		controlRoot:    mustDigestFromHex("8cdad9242664be3112aba377c5425a4df735eb1c6966472b561d2855932c0469"),
		bn254ControlID: mustDigestFromHex("c07a65145c3cb48b6101962ea607a4dd93c753bb26975cb47feb00d3666e4404"),
		proofLength:    types.Groth16ProofLength,
		outputDigest:   journalOutputDigest,
	},
}

func lookup(version types.ProverVersion) (protocol, error) {
	p, ok := protocols[version]
	if !ok {
		return protocol{}, types.ErrUnsupportedProverVersion.Wrapf("%s", version)
	}
	return p, nil
}

// ProofLength returns the serialized proof length for version.
func ProofLength(version types.ProverVersion) (int, error) {
	p, err := lookup(version)
	if err != nil {
		return 0, err
	}
	return p.proofLength, nil
}
