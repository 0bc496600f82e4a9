package app

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// blockhashQueue remembers the blockhashes of recent blocks. A transaction
// must reference one of them.
type blockhashQueue struct {
	validity uint64
	heights  map[types.Hash]uint64
	order    []types.Hash
}

func newBlockhashQueue(validity uint64) *blockhashQueue {
	return &blockhashQueue{validity: validity, heights: make(map[types.Hash]uint64)}
}

func (q *blockhashQueue) push(h types.Hash, height uint64) {
	q.heights[h] = height
	q.order = append(q.order, h)
	for len(q.order) > 0 && q.heights[q.order[0]]+q.validity < height {
		delete(q.heights, q.order[0])
		q.order = q.order[1:]
	}
}

// lastValidHeight returns the last block height at which a transaction
// referencing h is accepted.
func (q *blockhashQueue) lastValidHeight(h types.Hash) (uint64, bool) {
	height, ok := q.heights[h]
	if !ok {
		return 0, false
	}
	return height + q.validity, true
}

// blockhashFor derives the blockhash of a committed block from its app hash.
func blockhashFor(appHash []byte, height uint64) types.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	h := sha256.New()
	h.Write(appHash)
	h.Write(buf[:])
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
