package types

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// AddressLength is the byte length of an account address.
	AddressLength = 32

	// MaxSeedLength is the longest single seed accepted for derivation.
	MaxSeedLength = 32

	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16

	pdaMarker = "ProgramDerivedAddress"
)

// Address identifies an account. It is either an ed25519 public key or a
// program derived address that has no private key.
type Address [AddressLength]byte

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	return AddressFromBytes(raw)
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Equals(o Address) bool {
	return bytes.Equal(a[:], o[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsOnCurve reports whether the address is a valid compressed ed25519 point.
func (a Address) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}

// CreateProgramAddress hashes seeds with the program id. The result is
// rejected when it lands on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrMaxSeedLength.Wrapf("%d seeds", len(seeds))
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, ErrMaxSeedLength.Wrapf("seed of %d bytes", len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr Address
	copy(addr[:], h.Sum(nil))
	if addr.IsOnCurve() {
		return Address{}, fmt.Errorf("derived address %s is on the curve", addr)
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 down for the first off-curve
// derivation. The only failure is a seed limit violation.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, ErrMaxSeedLength.Wrapf("%d seeds leaves no room for a bump", len(seeds))
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, 0, ErrMaxSeedLength.Wrapf("seed of %d bytes", len(seed))
		}
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	// Unreachable in practice: roughly half of all hashes are off curve.
	return Address{}, 0, fmt.Errorf("no viable bump for seeds")
}

// DeploymentSeeds returns the seeds for the deployment of imageID.
func DeploymentSeeds(imageID string) [][]byte {
	digest := sha256.Sum256([]byte(imageID))
	return [][]byte{[]byte(DeploymentSeed), digest[:]}
}

// DeploymentAddress derives the deployment account for imageID.
func DeploymentAddress(imageID string) (Address, uint8, error) {
	return FindProgramAddress(DeploymentSeeds(imageID), ProgramID)
}

// ExecutionSeeds returns the seeds for an execution request.
func ExecutionSeeds(requester Address, executionID string) [][]byte {
	return [][]byte{[]byte(ExecutionSeed), requester.Bytes(), []byte(executionID)}
}

// ExecutionAddress derives the execution account of requester and executionID.
func ExecutionAddress(requester Address, executionID string) (Address, uint8, error) {
	return FindProgramAddress(ExecutionSeeds(requester, executionID), ProgramID)
}

// ExecutionClaimSeeds returns the seeds for the claim on execution.
func ExecutionClaimSeeds(execution Address) [][]byte {
	return [][]byte{[]byte(ExecutionClaimSeed), execution.Bytes()}
}

// ExecutionClaimAddress derives the claim account of an execution account.
func ExecutionClaimAddress(execution Address) (Address, uint8, error) {
	return FindProgramAddress(ExecutionClaimSeeds(execution), ProgramID)
}
