package types

import "crypto/sha256"

const (
	// ModuleName defines the module name
	ModuleName = "channel"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// MemStoreKey defines the in-memory store key
	MemStoreKey = "mem_channel"
)

var (
	// ProgramID is the address of the channel program. Every deployment,
	// execution and claim account is owned by it.
	ProgramID = builtinProgramID("channel")

	// SystemProgramID owns every account that has not been assigned to a
	// program. It is the all-zero address.
	SystemProgramID Address
)

// Seeds used for program derived addresses.
const (
	DeploymentSeed     = "deployment"
	ExecutionSeed      = "execution"
	ExecutionClaimSeed = "execution_claim"
)

func builtinProgramID(name string) Address {
	return Address(sha256.Sum256([]byte("zkchannel/program/" + name)))
}
