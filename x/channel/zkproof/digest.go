package zkproof

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// DigestLength is the size of every digest handled by this package.
const DigestLength = 32

// Digest is a SHA-256 digest in the byte order it is hashed in.
type Digest [DigestLength]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DigestFromBytes copies a 32 byte slice into a Digest.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestLength {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestLength, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// DigestFromHex parses a 64 character hex digest such as an image id.
func DigestFromHex(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid hex digest: %w", err)
	}
	return DigestFromBytes(raw)
}

func mustDigestFromHex(s string) Digest {
	d, err := DigestFromHex(s)
	if err != nil {
		panic(err)
	}
	return d
}

// TaggedStruct hashes a structure the way the zkVM commits to it:
// sha256(sha256(tag) || down... || data as u32 LE... || len(down) as u16 LE).
func TaggedStruct(tag string, down []Digest, data []uint32) Digest {
	tagDigest := sha256.Sum256([]byte(tag))

	h := sha256.New()
	h.Write(tagDigest[:])
	for _, d := range down {
		h.Write(d[:])
	}
	var word [4]byte
	for _, v := range data {
		binary.LittleEndian.PutUint32(word[:], v)
		h.Write(word[:])
	}
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(down)))
	h.Write(n[:])

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// journalOutputDigest commits to the journal (input digest followed by the
// committed outputs) and the assumptions digest.
func journalOutputDigest(inputDigest, committedOutputs []byte, assumptionDigest Digest) Digest {
	h := sha256.New()
	h.Write(inputDigest)
	h.Write(committedOutputs)
	var journal Digest
	copy(journal[:], h.Sum(nil))
	return TaggedStruct("risc0.Output", []Digest{journal, assumptionDigest}, nil)
}

// ReceiptClaimDigest commits to a complete execution claim: the image id
// as pre-state, the execution digest as post-state, the output digest and
// both exit codes. The input field is always the zero digest.
func ReceiptClaimDigest(imageID, postState, output Digest, sysExit, userExit uint32) Digest {
	var input Digest
	return TaggedStruct(
		"risc0.ReceiptClaim",
		[]Digest{input, imageID, postState, output},
		[]uint32{sysExit << 24, userExit},
	)
}
