package filestorage

import (
	"math"

	"github.com/dagchain-lab/dagchain/blockdag"
	"github.com/dagchain-lab/dagchain/helper/rawdb"
	"github.com/dagchain-lab/dagchain/types"
)

// representation is the read-only view of the DAG. Live queries hold the
// engine lock shared; lookups below the sort offset resolve the block
// number through the index and read the owning checkpoint.
type representation struct {
	s *FileStorage
}

func (r *representation) Children(hash types.Hash) ([]types.Hash, bool, error) {
	r.s.mu.RLock()

	if children, ok := r.s.state.childMap[hash]; ok {
		out := make([]types.Hash, len(children))
		copy(out, children)
		r.s.mu.RUnlock()

		return out, true, nil
	}

	r.s.mu.RUnlock()

	info, ok, err := r.checkpointInfoFor(hash)
	if err != nil || !ok {
		return nil, false, err
	}

	children, ok := info.childMap[hash]
	if !ok {
		return nil, false, nil
	}

	out := make([]types.Hash, len(children))
	copy(out, children)

	return out, true, nil
}

func (r *representation) Lookup(hash types.Hash) (*types.BlockMetadata, bool, error) {
	r.s.mu.RLock()

	if meta, ok := r.s.state.dataLookup[hash]; ok {
		r.s.mu.RUnlock()

		return meta, true, nil
	}

	r.s.mu.RUnlock()

	info, ok, err := r.checkpointInfoFor(hash)
	if err != nil || !ok {
		return nil, false, err
	}

	meta, ok := info.dataLookup[hash]

	return meta, ok, nil
}

// checkpointInfoFor locates the checkpoint owning the block number of the
// given hash, if the index knows it.
func (r *representation) checkpointInfoFor(hash types.Hash) (*checkpointedDagInfo, bool, error) {
	number, ok := rawdb.ReadBlockNumber(r.s.index, hash)
	if !ok {
		return nil, false, nil
	}

	r.s.mu.RLock()
	var owner *checkpoint

	for _, c := range r.s.checkpoints {
		if c.start <= number && number < c.end {
			owner = c

			break
		}
	}
	r.s.mu.RUnlock()

	if owner == nil {
		return nil, false, nil
	}

	info, err := r.s.loadCheckpoint(owner)
	if err != nil {
		return nil, false, err
	}

	return info, true, nil
}

func (r *representation) Contains(hash []byte) (bool, error) {
	if len(hash) != types.HashLength {
		return false, nil
	}

	key := types.BytesToHash(hash)

	r.s.mu.RLock()
	_, ok := r.s.state.dataLookup[key]
	sortOffset := r.s.state.sortOffset
	r.s.mu.RUnlock()

	if ok {
		return true, nil
	}

	// the index may run ahead of the metadata log after a repaired crash;
	// only numbers owned by a checkpoint are trusted
	number, ok := rawdb.ReadBlockNumber(r.s.index, key)
	if !ok {
		return false, nil
	}

	return number < sortOffset, nil
}

func (r *representation) LookupByDeployID(deployID []byte) (types.Hash, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	hash, ok := r.s.state.blockHashesByDeploy[string(deployID)]

	return hash, ok
}

func (r *representation) TopoSort(startBlockNumber int64) ([][]types.Hash, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.topoSortLocked(startBlockNumber)
}

func (r *representation) topoSortLocked(startBlockNumber int64) ([][]types.Hash, error) {
	state := r.s.state

	if startBlockNumber < 0 {
		startBlockNumber = 0
	}

	if startBlockNumber >= state.sortOffset {
		drop := startBlockNumber - state.sortOffset
		if drop >= int64(len(state.topoSort)) {
			return nil, nil
		}

		return copyRows(state.topoSort[drop:]), nil
	}

	var rows [][]types.Hash

	for _, c := range r.s.checkpoints {
		if c.end <= startBlockNumber {
			continue
		}

		info, err := r.s.loadCheckpoint(c)
		if err != nil {
			return nil, err
		}

		from := startBlockNumber - info.sortOffset
		if from < 0 {
			from = 0
		}

		rows = append(rows, copyRows(info.topoSort[from:])...)
	}

	rows = append(rows, copyRows(state.topoSort)...)

	if int64(len(rows)) > math.MaxInt32 {
		return nil, &blockdag.TopoSortLengthIsTooBigError{Length: int64(len(rows))}
	}

	return rows, nil
}

func copyRows(rows [][]types.Hash) [][]types.Hash {
	out := make([][]types.Hash, len(rows))

	for i, row := range rows {
		out[i] = make([]types.Hash, len(row))
		copy(out[i], row)
	}

	return out
}

func (r *representation) TopoSortTail(tailLength int32) ([][]types.Hash, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	state := r.s.state

	// TODO: check this formula against a DAG whose tail spans the live
	// vector boundary exactly; it may be off by one
	start := state.sortOffset - (int64(tailLength) - int64(len(state.topoSort)))
	if start < 0 {
		start = 0
	}

	return r.topoSortLocked(start)
}

func (r *representation) DeriveOrdering(startBlockNumber int64) (map[types.Hash]int, error) {
	rows, err := r.TopoSort(startBlockNumber)
	if err != nil {
		return nil, err
	}

	ordering := make(map[types.Hash]int)
	position := 0

	for _, row := range rows {
		for _, hash := range row {
			ordering[hash] = position
			position++
		}
	}

	return ordering, nil
}

func (r *representation) LatestMessage(validator types.Validator) (*types.BlockMetadata, bool, error) {
	hash, ok := r.LatestMessageHash(validator)
	if !ok {
		return nil, false, nil
	}

	return r.Lookup(hash)
}

func (r *representation) LatestMessageHash(validator types.Validator) (types.Hash, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	hash, ok := r.s.state.latestMessages[validator]

	return hash, ok
}

func (r *representation) LatestMessageHashes() map[types.Validator]types.Hash {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[types.Validator]types.Hash, len(r.s.state.latestMessages))
	for v, h := range r.s.state.latestMessages {
		out[v] = h
	}

	return out
}

func (r *representation) LatestMessages() (map[types.Validator]*types.BlockMetadata, error) {
	hashes := r.LatestMessageHashes()

	out := make(map[types.Validator]*types.BlockMetadata, len(hashes))

	for v, h := range hashes {
		meta, ok, err := r.Lookup(h)
		if err != nil {
			return nil, err
		}

		if ok {
			out[v] = meta
		}
	}

	return out, nil
}

func (r *representation) InvalidBlocks() []*types.BlockMetadata {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*types.BlockMetadata, 0, len(r.s.state.invalidBlocks))
	for _, meta := range r.s.state.invalidBlocks {
		out = append(out, meta)
	}

	return out
}
