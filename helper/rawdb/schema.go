package rawdb

import (
	"encoding/binary"

	"github.com/dagchain-lab/dagchain/types"
)

// block number index key prefix
var (
	// blockNumberPrefix + block hash -> block number
	blockNumberPrefix = []byte("n")
)

func encodeUint(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b[:], n)

	return b[:]
}

func decodeUint(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[:])
}

// blockNumberKey = blockNumberPrefix + hash
func blockNumberKey(h types.Hash) []byte {
	return append(blockNumberPrefix, h.Bytes()...)
}
