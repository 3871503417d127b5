package rawdb

import (
	"github.com/dagchain-lab/dagchain/helper/kvdb"
	"github.com/dagchain-lab/dagchain/types"
)

// ReadBlockNumber retrieves the block number assigned to the given block hash.
func ReadBlockNumber(db kvdb.KVReader, hash types.Hash) (int64, bool) {
	data, ok, err := db.Get(blockNumberKey(hash))
	if err != nil || !ok {
		return 0, false
	}

	if len(data) != 8 {
		return 0, false
	}

	return int64(decodeUint(data)), true
}

// WriteBlockNumber maps the given block hash to its block number.
func WriteBlockNumber(db kvdb.KVWriter, hash types.Hash, number int64) error {
	return db.Set(blockNumberKey(hash), encodeUint(uint64(number)))
}

// HasBlockNumber checks whether the block hash is present in the number index.
func HasBlockNumber(db kvdb.KVReader, hash types.Hash) (bool, error) {
	return db.Has(blockNumberKey(hash))
}
