package filestorage

import (
	"github.com/dagchain-lab/dagchain/types"
)

type equivocationKey struct {
	validator types.Validator
	seqNum    int32
}

// dagState is the in-memory aggregate rebuilt from the logs at open and
// mutated only by the write path.
type dagState struct {
	latestMessages      map[types.Validator]types.Hash
	childMap            map[types.Hash][]types.Hash
	dataLookup          map[types.Hash]*types.BlockMetadata
	topoSort            [][]types.Hash
	blockHashesByDeploy map[string]types.Hash
	equivocations       map[equivocationKey]*types.EquivocationRecord
	invalidBlocks       map[types.Hash]*types.BlockMetadata

	// sortOffset is the first block number kept live; lower numbers live
	// in checkpoints
	sortOffset int64

	// latestMessagesLogSize counts appends to the latest-messages log
	// since the last squash
	latestMessagesLogSize int32
}

func newDagState(sortOffset int64) *dagState {
	return &dagState{
		latestMessages:      make(map[types.Validator]types.Hash),
		childMap:            make(map[types.Hash][]types.Hash),
		dataLookup:          make(map[types.Hash]*types.BlockMetadata),
		blockHashesByDeploy: make(map[string]types.Hash),
		equivocations:       make(map[equivocationKey]*types.EquivocationRecord),
		invalidBlocks:       make(map[types.Hash]*types.BlockMetadata),
		sortOffset:          sortOffset,
	}
}

// addBlock threads a metadata record through the derived indices.
func (s *dagState) addBlock(meta *types.BlockMetadata) {
	s.dataLookup[meta.BlockHash] = meta

	if _, ok := s.childMap[meta.BlockHash]; !ok {
		s.childMap[meta.BlockHash] = nil
	}

	for _, parent := range meta.Parents {
		s.childMap[parent] = appendChild(s.childMap[parent], meta.BlockHash)
	}

	s.topoSort = addToTopoSort(s.topoSort, s.sortOffset, meta.BlockNum, meta.BlockHash)
}

// appendChild keeps the children relation a set even when the parents
// list names the same hash twice.
func appendChild(children []types.Hash, child types.Hash) []types.Hash {
	for _, existing := range children {
		if existing == child {
			return children
		}
	}

	return append(children, child)
}

// addToTopoSort appends the hash to the row holding its block number,
// growing the vector with empty rows as needed. Numbers below the sort
// offset belong to checkpoints and are left alone.
func addToTopoSort(topo [][]types.Hash, sortOffset, blockNum int64, hash types.Hash) [][]types.Hash {
	row := blockNum - sortOffset
	if row < 0 {
		return topo
	}

	for int64(len(topo)) <= row {
		topo = append(topo, nil)
	}

	topo[row] = append(topo[row], hash)

	return topo
}

func (s *dagState) putEquivocation(record *types.EquivocationRecord) {
	key := equivocationKey{
		validator: record.Equivocator,
		seqNum:    record.EquivocationBaseSeqNum,
	}

	s.equivocations[key] = record
}
