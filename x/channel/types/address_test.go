package types

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFindProgramAddress_OffCurveAndDeterministic(t *testing.T) {
	requester := Address{1, 2, 3}

	addr, bump, err := ExecutionAddress(requester, "exec-1")
	require.NoError(t, err)
	require.False(t, addr.IsOnCurve())

	again, bump2, err := ExecutionAddress(requester, "exec-1")
	require.NoError(t, err)
	require.Equal(t, addr, again)
	require.Equal(t, bump, bump2)

	other, _, err := ExecutionAddress(requester, "exec-2")
	require.NoError(t, err)
	require.NotEqual(t, addr, other)

	// The bump is reproducible through CreateProgramAddress.
	seeds := append(ExecutionSeeds(requester, "exec-1"), []byte{bump})
	direct, err := CreateProgramAddress(seeds, ProgramID)
	require.NoError(t, err)
	require.Equal(t, addr, direct)
}

func TestFindProgramAddress_SeedLimits(t *testing.T) {
	_, _, err := FindProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, ProgramID)
	require.ErrorIs(t, err, ErrMaxSeedLength)

	tooMany := make([][]byte, MaxSeeds)
	for i := range tooMany {
		tooMany[i] = []byte{byte(i)}
	}
	_, _, err = FindProgramAddress(tooMany, ProgramID)
	require.ErrorIs(t, err, ErrMaxSeedLength)

	_, _, err = ExecutionAddress(Address{}, strings.Repeat("x", 33))
	require.ErrorIs(t, err, ErrMaxSeedLength)
}

func TestDerivedAddressesAreDistinctPerProgram(t *testing.T) {
	exec, _, err := ExecutionAddress(Address{9}, "a")
	require.NoError(t, err)
	claim, _, err := ExecutionClaimAddress(exec)
	require.NoError(t, err)
	require.NotEqual(t, exec, claim)

	otherProgram, _, err := FindProgramAddress(ExecutionSeeds(Address{9}, "a"), builtinProgramID("other"))
	require.NoError(t, err)
	require.NotEqual(t, exec, otherProgram)
}

func TestDeploymentAddressHashesImageID(t *testing.T) {
	imageID := strings.Repeat("ab", 32)
	seeds := DeploymentSeeds(imageID)
	require.Len(t, seeds, 2)
	require.Len(t, seeds[1], 32)

	addr, _, err := DeploymentAddress(imageID)
	require.NoError(t, err)
	require.False(t, addr.IsOnCurve())
}

func TestAddressText(t *testing.T) {
	a := Address{0xde, 0xad, 0xbe, 0xef}
	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)

	_, err = ParseAddress("0OIl")
	require.Error(t, err)

	_, err = ParseAddress("3mJr7AoUXx2Wqd")
	require.Error(t, err)
}

func TestFindProgramAddressProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "requester")
		id := rapid.StringMatching(`[a-z0-9-]{1,32}`).Draw(t, "executionID")

		var requester Address
		copy(requester[:], raw)

		addr, bump, err := ExecutionAddress(requester, id)
		if err != nil {
			t.Fatalf("derivation failed: %v", err)
		}
		if addr.IsOnCurve() {
			t.Fatal("derived address lies on the curve")
		}
		seeds := append(ExecutionSeeds(requester, id), []byte{bump})
		direct, err := CreateProgramAddress(seeds, ProgramID)
		if err != nil || direct != addr {
			t.Fatalf("bump %d does not reproduce address", bump)
		}
	})
}
