package filestorage

import (
	"testing"

	"github.com/dagchain-lab/dagchain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToTopoSort(t *testing.T) {
	t.Parallel()

	var topo [][]types.Hash

	// numbers below the sort offset are left to the checkpoints
	topo = addToTopoSort(topo, 10, 9, types.StringToHash("0x0a"))
	assert.Empty(t, topo)

	topo = addToTopoSort(topo, 10, 10, types.StringToHash("0x0a"))
	require.Len(t, topo, 1)
	assert.Equal(t, []types.Hash{types.StringToHash("0x0a")}, topo[0])

	// a gap grows the vector with empty rows
	topo = addToTopoSort(topo, 10, 13, types.StringToHash("0x0b"))
	require.Len(t, topo, 4)
	assert.Empty(t, topo[1])
	assert.Empty(t, topo[2])
	assert.Equal(t, []types.Hash{types.StringToHash("0x0b")}, topo[3])

	// same number accumulates within the row
	topo = addToTopoSort(topo, 10, 10, types.StringToHash("0x0c"))
	require.Len(t, topo, 4)
	assert.Equal(t, []types.Hash{
		types.StringToHash("0x0a"),
		types.StringToHash("0x0c"),
	}, topo[0])
}

func TestDagState_AddBlock(t *testing.T) {
	t.Parallel()

	state := newDagState(0)

	parent := &types.BlockMetadata{
		BlockHash: types.StringToHash("0x0a"),
		BlockNum:  0,
	}
	child := &types.BlockMetadata{
		BlockHash: types.StringToHash("0x0b"),
		Parents:   []types.Hash{parent.BlockHash},
		BlockNum:  1,
	}

	state.addBlock(parent)
	state.addBlock(child)

	assert.Same(t, parent, state.dataLookup[parent.BlockHash])
	assert.Same(t, child, state.dataLookup[child.BlockHash])

	assert.Equal(t, []types.Hash{child.BlockHash}, state.childMap[parent.BlockHash])

	// a known block with no children has an entry so membership and
	// emptiness stay distinguishable
	children, ok := state.childMap[child.BlockHash]
	assert.True(t, ok)
	assert.Empty(t, children)

	require.Len(t, state.topoSort, 2)
	assert.Equal(t, []types.Hash{parent.BlockHash}, state.topoSort[0])
	assert.Equal(t, []types.Hash{child.BlockHash}, state.topoSort[1])
}

func TestDagState_AddBlockDuplicateParentLink(t *testing.T) {
	t.Parallel()

	state := newDagState(0)

	parent := &types.BlockMetadata{
		BlockHash: types.StringToHash("0x0a"),
		BlockNum:  0,
	}
	child := &types.BlockMetadata{
		BlockHash: types.StringToHash("0x0b"),
		Parents:   []types.Hash{parent.BlockHash, parent.BlockHash},
		BlockNum:  1,
	}

	state.addBlock(parent)
	state.addBlock(child)

	// the children relation is a set, a repeated parent hash links once
	assert.Equal(t, []types.Hash{child.BlockHash}, state.childMap[parent.BlockHash])
}

func TestDagState_AddBlockBelowSortOffset(t *testing.T) {
	t.Parallel()

	state := newDagState(100)

	cold := &types.BlockMetadata{
		BlockHash: types.StringToHash("0x0a"),
		BlockNum:  50,
	}

	state.addBlock(cold)

	// the lookup entry is kept but the topo vector only spans live numbers
	assert.Contains(t, state.dataLookup, cold.BlockHash)
	assert.Empty(t, state.topoSort)
}

func TestDagState_PutEquivocation(t *testing.T) {
	t.Parallel()

	state := newDagState(0)

	first := types.NewEquivocationRecord(
		types.StringToValidator("0x01"), 3, types.StringToHash("0x0a"))
	state.putEquivocation(first)

	// same validator and base sequence number replaces the record
	updated := first.WithDetected(types.StringToHash("0x0b"))
	state.putEquivocation(updated)

	require.Len(t, state.equivocations, 1)

	key := equivocationKey{validator: first.Equivocator, seqNum: 3}
	assert.Same(t, updated, state.equivocations[key])

	// a different base sequence number is a separate record
	other := types.NewEquivocationRecord(
		types.StringToValidator("0x01"), 4, types.StringToHash("0x0c"))
	state.putEquivocation(other)

	assert.Len(t, state.equivocations, 2)
}
