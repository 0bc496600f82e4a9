package keeper

import (
	"encoding/binary"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Store key prefixes
var (
	// AccountKeyPrefix maps an address to its encoded account
	AccountKeyPrefix = []byte{0x01}

	// ParamsKey holds the module params
	ParamsKey = []byte{0x02}

	// PendingExecutionKeyPrefix indexes pending executions by expiry height
	PendingExecutionKeyPrefix = []byte{0x03}

	// SupplyKey tracks the total lamports in existence
	SupplyKey = []byte{0x04}
)

// AccountKey returns the store key for an account
func AccountKey(addr types.Address) []byte {
	return append(append([]byte{}, AccountKeyPrefix...), addr[:]...)
}

// PendingExecutionKey returns prefix || max_block_height (BE) || address
func PendingExecutionKey(maxBlockHeight uint64, addr types.Address) []byte {
	key := make([]byte, 0, len(PendingExecutionKeyPrefix)+8+types.AddressLength)
	key = append(key, PendingExecutionKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, maxBlockHeight)
	return append(key, addr[:]...)
}

func parsePendingExecutionKey(key []byte) (uint64, types.Address) {
	// key is relative to PendingExecutionKeyPrefix
	var addr types.Address
	copy(addr[:], key[8:])
	return binary.BigEndian.Uint64(key[:8]), addr
}
