package filestorage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dagchain-lab/dagchain/blockdag"
	"github.com/dagchain-lab/dagchain/helper/rawdb"
	"github.com/dagchain-lab/dagchain/types"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkpointBlockHash(number int64, i int) types.Hash {
	return types.BytesToHash([]byte{byte(number), byte(i), 0xcc})
}

// writeCheckpointFile lays out perBlock blocks at every number in
// [start, end), each pointing at the same-lane block one number down.
func writeCheckpointFile(t *testing.T, dir string, start, end int64, perBlock int) {
	t.Helper()

	var buf bytes.Buffer

	for number := start; number < end; number++ {
		for i := 0; i < perBlock; i++ {
			meta := &types.BlockMetadata{
				BlockHash: checkpointBlockHash(number, i),
				Parents:   []types.Hash{},
				BlockNum:  number,
				SeqNum:    int32(number),
			}

			if number > 0 {
				meta.Parents = []types.Hash{checkpointBlockHash(number-1, i)}
			}

			buf.Write(encodeSizeFramed(meta.MarshalRLP()))
		}
	}

	name := filepath.Join(dir, checkpointFileName(start, end))
	require.NoError(t, os.WriteFile(name, buf.Bytes(), 0o644))
}

func checkpointFileName(start, end int64) string {
	return fmtInt(start) + "-" + fmtInt(end)
}

func fmtInt(n int64) string {
	if n == 0 {
		return "0"
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	return string(digits)
}

func liveBlock(hashByte byte, number int64, sender byte, parent types.Hash) *types.Block {
	return &types.Block{
		BlockHash: types.BytesToHash([]byte{hashByte}).Bytes(),
		Parents:   []types.Hash{parent},
		Sender:    types.BytesToValidator([]byte{sender}).Bytes(),
		BlockNum:  number,
		SeqNum:    int32(number),
	}
}

func TestCheckpoints_TopoSliceAcrossCheckpoint(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	writeCheckpointFile(t, config.CheckpointsDirPath, 0, 100, 2)

	s := newTestStorageWithConfig(t, config)

	require.Equal(t, int64(100), s.state.sortOffset)

	blocks := []*types.Block{
		liveBlock(0xa0, 100, 0x01, checkpointBlockHash(99, 0)),
		liveBlock(0xa1, 101, 0x01, types.BytesToHash([]byte{0xa0})),
		liveBlock(0xa2, 102, 0x01, types.BytesToHash([]byte{0xa1})),
	}

	for _, block := range blocks {
		_, err := s.Insert(block, blocks[0], false)
		require.NoError(t, err)
	}

	dag, err := s.GetRepresentation()
	require.NoError(t, err)

	rows, err := dag.TopoSort(98)
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 2)
	assert.Len(t, rows[2], 1)
	assert.Len(t, rows[3], 1)
	assert.Len(t, rows[4], 1)

	assert.Equal(t, checkpointBlockHash(98, 0), rows[0][0])
	assert.Equal(t, types.BytesToHash(blocks[0].BlockHash), rows[2][0])
}

// the tail formula is start = sortOffset - (tailLength - liveLength);
// this pins its current semantics
func TestCheckpoints_TopoSortTailFormula(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	writeCheckpointFile(t, config.CheckpointsDirPath, 0, 100, 2)

	s := newTestStorageWithConfig(t, config)

	blocks := []*types.Block{
		liveBlock(0xa0, 100, 0x01, checkpointBlockHash(99, 0)),
		liveBlock(0xa1, 101, 0x01, types.BytesToHash([]byte{0xa0})),
		liveBlock(0xa2, 102, 0x01, types.BytesToHash([]byte{0xa1})),
	}

	for _, block := range blocks {
		_, err := s.Insert(block, blocks[0], false)
		require.NoError(t, err)
	}

	dag, err := s.GetRepresentation()
	require.NoError(t, err)

	// tail 5 over 3 live rows starts at 100 - (5 - 3) = 98
	rows, err := dag.TopoSortTail(5)
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	// tail 2 starts past the sort offset at 101
	rows, err = dag.TopoSortTail(2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// a tail longer than the DAG is clamped to the whole of it
	rows, err = dag.TopoSortTail(500)
	require.NoError(t, err)
	assert.Len(t, rows, 103)
}

func TestCheckpoints_ColdLookups(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	writeCheckpointFile(t, config.CheckpointsDirPath, 0, 100, 2)

	s := newTestStorageWithConfig(t, config)

	// the index entries were written while those blocks were live
	cold := checkpointBlockHash(98, 0)
	require.NoError(t, rawdb.WriteBlockNumber(s.index, cold, 98))

	dag, err := s.GetRepresentation()
	require.NoError(t, err)

	meta, ok, err := dag.Lookup(cold)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(98), meta.BlockNum)

	contains, err := dag.Contains(cold.Bytes())
	require.NoError(t, err)
	assert.True(t, contains)

	children, ok, err := dag.Children(cold)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []types.Hash{checkpointBlockHash(99, 0)}, children)

	// unknown hashes stay unknown
	_, ok, err = dag.Lookup(types.StringToHash("0xdead"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpoints_SnapshotIsCached(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	writeCheckpointFile(t, config.CheckpointsDirPath, 0, 10, 1)

	s := newTestStorageWithConfig(t, config)

	first, err := s.loadCheckpoint(s.checkpoints[0])
	require.NoError(t, err)

	second, err := s.loadCheckpoint(s.checkpoints[0])
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestCheckpoints_GapRejected(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(config.CheckpointsDirPath, "0-100"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(config.CheckpointsDirPath, "150-200"), nil, 0o644))

	_, err := New(hclog.NewNullLogger(), config, nil)

	notConsecutive := new(blockdag.CheckpointsAreNotConsecutiveError)
	require.ErrorAs(t, err, &notConsecutive)
	assert.Len(t, notConsecutive.Paths, 2)
}

func TestCheckpoints_MustStartFromZero(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(config.CheckpointsDirPath, "5-100"), nil, 0o644))

	_, err := New(hclog.NewNullLogger(), config, nil)

	fromZero := new(blockdag.CheckpointsDoNotStartFromZeroError)
	require.ErrorAs(t, err, &fromZero)
}

func TestCheckpoints_UnrelatedFilesIgnored(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(config.CheckpointsDirPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(config.CheckpointsDirPath, "README.md"), nil, 0o644))

	s := newTestStorageWithConfig(t, config)

	assert.Empty(t, s.checkpoints)
	assert.Equal(t, int64(0), s.state.sortOffset)
}
