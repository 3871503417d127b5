package blockdag

import (
	"testing"

	"github.com/dagchain-lab/dagchain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StorageFactory creates a fresh DagStorage instance for conformance
// testing. The suite does not close the instance; the factory arranges
// for that when the test ends.
type StorageFactory func(t *testing.T) DagStorage

// TestDagStorage exercises the behaviour every DagStorage implementation
// must share.
func TestDagStorage(t *testing.T, factory StorageFactory) {
	t.Helper()

	t.Run("insert and lookup", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01, 0x02)

		dag, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		block := ChildBlock(0x0b, 1, 1, 0x01, genesis)

		dag, err = storage.Insert(block, genesis, false)
		require.NoError(t, err)

		meta, ok, err := dag.Lookup(types.BytesToHash(block.BlockHash))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(1), meta.BlockNum)
		assert.Equal(t, block.Sender, meta.Sender)

		ok, err = dag.Contains(block.BlockHash)
		require.NoError(t, err)
		assert.True(t, ok)

		// wrong width is never contained
		ok, err = dag.Contains(block.BlockHash[:17])
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate insert is a no-op", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01)

		_, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		dag, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		rows, err := dag.TopoSort(0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Len(t, rows[0], 1)
	})

	t.Run("children", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01, 0x02)

		_, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		left := ChildBlock(0x0b, 1, 1, 0x01, genesis)
		right := ChildBlock(0x0c, 1, 1, 0x02, genesis)

		_, err = storage.Insert(left, genesis, false)
		require.NoError(t, err)

		dag, err := storage.Insert(right, genesis, false)
		require.NoError(t, err)

		children, ok, err := dag.Children(types.BytesToHash(genesis.BlockHash))
		require.NoError(t, err)
		require.True(t, ok)
		assert.ElementsMatch(t, []types.Hash{
			types.BytesToHash(left.BlockHash),
			types.BytesToHash(right.BlockHash),
		}, children)

		children, ok, err = dag.Children(types.BytesToHash(left.BlockHash))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, children)
	})

	t.Run("latest messages", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01, 0x02)

		dag, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		// every bonded validator starts at genesis
		hashes := dag.LatestMessageHashes()
		require.Len(t, hashes, 2)
		assert.Equal(t, types.BytesToHash(genesis.BlockHash), hashes[types.StringToValidator("0x01")])

		block := ChildBlock(0x0b, 1, 1, 0x01, genesis)

		dag, err = storage.Insert(block, genesis, false)
		require.NoError(t, err)

		hash, ok := dag.LatestMessageHash(types.StringToValidator("0x01"))
		require.True(t, ok)
		assert.Equal(t, types.BytesToHash(block.BlockHash), hash)

		hash, ok = dag.LatestMessageHash(types.StringToValidator("0x02"))
		require.True(t, ok)
		assert.Equal(t, types.BytesToHash(genesis.BlockHash), hash)

		messages, err := dag.LatestMessages()
		require.NoError(t, err)
		assert.Len(t, messages, 2)
	})

	t.Run("deploy index", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01)

		_, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		block := ChildBlock(0x0b, 1, 1, 0x01, genesis)
		block.DeployIDs = [][]byte{[]byte("deploy-one"), []byte("deploy-two")}

		dag, err := storage.Insert(block, genesis, false)
		require.NoError(t, err)

		hash, ok := dag.LookupByDeployID([]byte("deploy-two"))
		require.True(t, ok)
		assert.Equal(t, types.BytesToHash(block.BlockHash), hash)

		_, ok = dag.LookupByDeployID([]byte("unknown"))
		assert.False(t, ok)
	})

	t.Run("invalid blocks", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01)

		_, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		block := ChildBlock(0x0b, 1, 1, 0x01, genesis)

		dag, err := storage.Insert(block, genesis, true)
		require.NoError(t, err)

		invalid := dag.InvalidBlocks()
		require.Len(t, invalid, 1)
		assert.Equal(t, types.BytesToHash(block.BlockHash), invalid[0].BlockHash)
		assert.True(t, invalid[0].Invalid)
	})

	t.Run("malformed sender fails the insert", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01)

		_, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		block := ChildBlock(0x0b, 1, 1, 0x01, genesis)
		block.Sender = block.Sender[:17]

		_, err = storage.Insert(block, genesis, false)

		malformed := new(BlockSenderIsMalformedError)
		require.ErrorAs(t, err, &malformed)

		dag, err := storage.GetRepresentation()
		require.NoError(t, err)

		ok, err := dag.Contains(block.BlockHash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("equivocations tracker", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)

		record := types.NewEquivocationRecord(
			types.StringToValidator("0x01"), 3, types.StringToHash("0x0b"))

		err := storage.AccessEquivocationsTracker(func(tracker EquivocationsTracker) error {
			return tracker.InsertRecord(record)
		})
		require.NoError(t, err)

		err = storage.AccessEquivocationsTracker(func(tracker EquivocationsTracker) error {
			return tracker.UpdateRecord(record, types.StringToHash("0x0c"))
		})
		require.NoError(t, err)

		err = storage.AccessEquivocationsTracker(func(tracker EquivocationsTracker) error {
			records := tracker.Records()
			require.Len(t, records, 1)
			assert.Equal(t, []types.Hash{
				types.StringToHash("0x0b"),
				types.StringToHash("0x0c"),
			}, records[0].SortedDetected())

			return nil
		})
		require.NoError(t, err)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		storage := factory(t)
		genesis := GenesisBlock(0x0a, 0x01)

		_, err := storage.Insert(genesis, genesis, false)
		require.NoError(t, err)

		require.NoError(t, storage.Clear())

		dag, err := storage.GetRepresentation()
		require.NoError(t, err)

		ok, err := dag.Contains(genesis.BlockHash)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, dag.LatestMessageHashes())

		// the storage stays usable
		_, err = storage.Insert(genesis, genesis, false)
		require.NoError(t, err)
	})
}

// GenesisBlock builds a senderless block at number 0 bonding the given
// validators.
func GenesisBlock(hashByte byte, validators ...byte) *types.Block {
	bonds := make([]types.Bond, len(validators))
	for i, v := range validators {
		bonds[i] = types.Bond{
			Validator: types.BytesToValidator([]byte{v}),
			Stake:     100,
		}
	}

	return &types.Block{
		BlockHash: types.BytesToHash([]byte{hashByte}).Bytes(),
		Parents:   []types.Hash{},
		Bonds:     bonds,
	}
}

// ChildBlock builds a block sent by the given validator on top of the
// parents, justifying every bonded validator of the first parent.
func ChildBlock(hashByte byte, blockNum int64, seqNum int32, sender byte, parents ...*types.Block) *types.Block {
	parentHashes := make([]types.Hash, len(parents))
	justifications := make([]types.Justification, 0)

	for i, parent := range parents {
		parentHashes[i] = types.BytesToHash(parent.BlockHash)
	}

	first := parents[0]
	for _, bond := range first.Bonds {
		justifications = append(justifications, types.Justification{
			Validator: bond.Validator,
			BlockHash: types.BytesToHash(first.BlockHash),
		})
	}

	return &types.Block{
		BlockHash:      types.BytesToHash([]byte{hashByte}).Bytes(),
		Parents:        parentHashes,
		Justifications: justifications,
		Bonds:          first.Bonds,
		Sender:         types.BytesToValidator([]byte{sender}).Bytes(),
		BlockNum:       blockNum,
		SeqNum:         seqNum,
	}
}
