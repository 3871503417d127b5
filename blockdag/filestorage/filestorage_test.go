package filestorage

import (
	"os"
	"testing"

	"github.com/dagchain-lab/dagchain/blockdag"
	"github.com/dagchain-lab/dagchain/types"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, dataDir string) *FileStorage {
	t.Helper()

	return newTestStorageWithConfig(t, DefaultConfig(dataDir))
}

func newTestStorageWithConfig(t *testing.T, config *Config) *FileStorage {
	t.Helper()

	s, err := New(hclog.NewNullLogger(), config, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestFileStorage_Conformance(t *testing.T) {
	t.Parallel()

	blockdag.TestDagStorage(t, func(t *testing.T) blockdag.DagStorage {
		return newTestStorage(t, t.TempDir())
	})
}

func TestFileStorage_ReopenRestoresState(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	genesis := blockdag.GenesisBlock(0x0a, 0x01, 0x02)
	left := blockdag.ChildBlock(0x0b, 1, 1, 0x01, genesis)
	right := blockdag.ChildBlock(0x0c, 1, 1, 0x02, genesis)
	left.DeployIDs = [][]byte{[]byte("deploy-one")}

	record := types.NewEquivocationRecord(
		types.StringToValidator("0x02"), 1, types.StringToHash("0x0c"))

	s := newTestStorage(t, dataDir)

	_, err := s.Insert(genesis, genesis, false)
	require.NoError(t, err)
	_, err = s.Insert(left, genesis, false)
	require.NoError(t, err)
	_, err = s.Insert(right, genesis, true)
	require.NoError(t, err)

	err = s.AccessEquivocationsTracker(func(tracker blockdag.EquivocationsTracker) error {
		if err := tracker.InsertRecord(record); err != nil {
			return err
		}

		return tracker.UpdateRecord(record, types.StringToHash("0x0d"))
	})
	require.NoError(t, err)

	require.NoError(t, s.Close())

	reopened := newTestStorage(t, dataDir)

	dag, err := reopened.GetRepresentation()
	require.NoError(t, err)

	for _, block := range []*types.Block{genesis, left, right} {
		ok, err := dag.Contains(block.BlockHash)
		require.NoError(t, err)
		assert.True(t, ok, "block %x", block.BlockHash)
	}

	children, ok, err := dag.Children(types.BytesToHash(genesis.BlockHash))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, children, 2)

	hash, ok := dag.LookupByDeployID([]byte("deploy-one"))
	require.True(t, ok)
	assert.Equal(t, types.BytesToHash(left.BlockHash), hash)

	invalid := dag.InvalidBlocks()
	require.Len(t, invalid, 1)
	assert.Equal(t, types.BytesToHash(right.BlockHash), invalid[0].BlockHash)

	rows, err := dag.TopoSort(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 1)
	assert.Len(t, rows[1], 2)

	// the stale pre-update record collapses on recovery
	err = reopened.AccessEquivocationsTracker(func(tracker blockdag.EquivocationsTracker) error {
		records := tracker.Records()
		require.Len(t, records, 1)
		assert.Equal(t, []types.Hash{
			types.StringToHash("0x0c"),
			types.StringToHash("0x0d"),
		}, records[0].SortedDetected())

		return nil
	})
	require.NoError(t, err)
}

// every log file must match its sibling checksum after every insert
func TestFileStorage_CRCRoundtrip(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)
	s := newTestStorageWithConfig(t, config)

	pairs := [][2]string{
		{config.LatestMessagesLogPath, config.LatestMessagesCrcPath},
		{config.BlockMetadataLogPath, config.BlockMetadataCrcPath},
		{config.EquivocationsLogPath, config.EquivocationsCrcPath},
		{config.InvalidBlocksLogPath, config.InvalidBlocksCrcPath},
		{config.BlockHashesByDeployLogPath, config.BlockHashesByDeployCrcPath},
	}

	checkAll := func() {
		for _, pair := range pairs {
			data, err := os.ReadFile(pair[0])
			if os.IsNotExist(err) {
				data = nil
			} else {
				require.NoError(t, err)
			}

			stored := readCRCFile(hclog.NewNullLogger(), pair[1])
			assert.Equal(t, uint64(checksumOf(data)), stored, "log %s", pair[0])
		}
	}

	genesis := blockdag.GenesisBlock(0x0a, 0x01, 0x02)

	_, err := s.Insert(genesis, genesis, false)
	require.NoError(t, err)
	checkAll()

	block := blockdag.ChildBlock(0x0b, 1, 1, 0x01, genesis)
	block.DeployIDs = [][]byte{[]byte("deploy-one")}

	_, err = s.Insert(block, genesis, true)
	require.NoError(t, err)
	checkAll()
}

// a log chopped mid-record reopens with the complete prefix
func TestFileStorage_RecoveryDropsPartialTail(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)
	s := newTestStorageWithConfig(t, config)

	genesis := blockdag.GenesisBlock(0x0a, 0x01)
	b := blockdag.ChildBlock(0x0b, 1, 1, 0x01, genesis)
	c := blockdag.ChildBlock(0x0c, 2, 2, 0x01, b)

	for _, block := range []*types.Block{genesis, b, c} {
		_, err := s.Insert(block, genesis, false)
		require.NoError(t, err)
	}

	require.NoError(t, s.Close())

	info, err := os.Stat(config.BlockMetadataLogPath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(config.BlockMetadataLogPath, info.Size()-5))

	reopened := newTestStorageWithConfig(t, config)

	dag, err := reopened.GetRepresentation()
	require.NoError(t, err)

	for _, block := range []*types.Block{genesis, b} {
		ok, err := dag.Contains(block.BlockHash)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := dag.Contains(c.BlockHash)
	require.NoError(t, err)
	assert.False(t, ok)

	// the latest message may still point at the dropped block
	hash, ok := dag.LatestMessageHash(types.StringToValidator("0x01"))
	require.True(t, ok)
	assert.Equal(t, types.BytesToHash(c.BlockHash), hash)
}

// an append whose checksum never committed is rolled back on reopen
func TestFileStorage_RecoveryDropsUncommittedRecord(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)
	s := newTestStorageWithConfig(t, config)

	genesis := blockdag.GenesisBlock(0x0a, 0x01)
	b := blockdag.ChildBlock(0x0b, 1, 1, 0x01, genesis)

	for _, block := range []*types.Block{genesis, b} {
		_, err := s.Insert(block, genesis, false)
		require.NoError(t, err)
	}

	require.NoError(t, s.Close())

	// append a complete record without touching the checksum
	c := blockdag.ChildBlock(0x0c, 2, 2, 0x01, b)
	meta, err := blockdag.MetadataFromBlock(c, false)
	require.NoError(t, err)

	file, err := os.OpenFile(config.BlockMetadataLogPath, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = file.Write(encodeSizeFramed(meta.MarshalRLP()))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	reopened := newTestStorageWithConfig(t, config)

	dag, err := reopened.GetRepresentation()
	require.NoError(t, err)

	ok, err := dag.Contains(c.BlockHash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dag.Contains(b.BlockHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

// corruption in the body of a log refuses to open
func TestFileStorage_BodyCorruptionIsFatal(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)
	s := newTestStorageWithConfig(t, config)

	genesis := blockdag.GenesisBlock(0x0a, 0x01)
	b := blockdag.ChildBlock(0x0b, 1, 1, 0x01, genesis)
	c := blockdag.ChildBlock(0x0c, 2, 2, 0x01, b)

	for _, block := range []*types.Block{genesis, b, c} {
		_, err := s.Insert(block, genesis, false)
		require.NoError(t, err)
	}

	require.NoError(t, s.Close())

	data, err := os.ReadFile(config.LatestMessagesLogPath)
	require.NoError(t, err)
	data[8] ^= 0xff
	require.NoError(t, os.WriteFile(config.LatestMessagesLogPath, data, 0o644))

	_, err = New(hclog.NewNullLogger(), config, nil)
	require.ErrorIs(t, err, blockdag.ErrLatestMessagesLogCorrupted)
}

// a zero-byte checksum file reads as zero and does not block opening
func TestFileStorage_ZeroCRCFile(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)

	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(config.LatestMessagesCrcPath, nil, 0o644))

	s := newTestStorageWithConfig(t, config)

	dag, err := s.GetRepresentation()
	require.NoError(t, err)
	assert.Empty(t, dag.LatestMessageHashes())

	genesis := blockdag.GenesisBlock(0x0a, 0x01)

	_, err = s.Insert(genesis, genesis, false)
	require.NoError(t, err)
}

// a malformed sender fails the insert before any file is touched
func TestFileStorage_MalformedSenderLeavesFilesUntouched(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)
	s := newTestStorageWithConfig(t, config)

	genesis := blockdag.GenesisBlock(0x0a, 0x01)

	_, err := s.Insert(genesis, genesis, false)
	require.NoError(t, err)

	snapshot := func() map[string][]byte {
		files := map[string][]byte{}

		for _, path := range []string{
			config.LatestMessagesLogPath, config.LatestMessagesCrcPath,
			config.BlockMetadataLogPath, config.BlockMetadataCrcPath,
			config.EquivocationsLogPath, config.EquivocationsCrcPath,
			config.InvalidBlocksLogPath, config.InvalidBlocksCrcPath,
			config.BlockHashesByDeployLogPath, config.BlockHashesByDeployCrcPath,
		} {
			data, err := os.ReadFile(path)
			if !os.IsNotExist(err) {
				require.NoError(t, err)
			}

			files[path] = data
		}

		return files
	}

	before := snapshot()

	block := blockdag.ChildBlock(0x0b, 1, 1, 0x01, genesis)
	block.Sender = block.Sender[:17]

	_, err = s.Insert(block, genesis, false)

	malformed := new(blockdag.BlockSenderIsMalformedError)
	require.ErrorAs(t, err, &malformed)

	assert.Equal(t, before, snapshot())

	dag, err := s.GetRepresentation()
	require.NoError(t, err)

	ok, err := dag.Contains(block.BlockHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

// with a small factor the latest-messages log squashes and stays compact
func TestFileStorage_SquashThreshold(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	config := DefaultConfig(dataDir)
	config.LatestMessagesLogMaxSizeFactor = 2

	s := newTestStorageWithConfig(t, config)

	validators := []byte{0x01, 0x02, 0x03, 0x04}
	genesis := blockdag.GenesisBlock(0x0a, validators...)

	_, err := s.Insert(genesis, genesis, false)
	require.NoError(t, err)

	inMemory := func(s *FileStorage) map[types.Validator]types.Hash {
		dag, err := s.GetRepresentation()
		require.NoError(t, err)

		return dag.LatestMessageHashes()
	}

	for i := 0; i < 20; i++ {
		block := blockdag.ChildBlock(byte(0x10+i), int64(i+1), int32(i/4+1), validators[i%4], genesis)

		_, err := s.Insert(block, genesis, false)
		require.NoError(t, err)

		// squashing must preserve the map exactly
		assert.Len(t, inMemory(s), len(validators))
	}

	// 24 appends happened; squashes keep the file well below that
	info, err := os.Stat(config.LatestMessagesLogPath)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(24*latestMessageRecordSize))

	before := inMemory(s)
	require.NoError(t, s.Close())

	reopened := newTestStorageWithConfig(t, config)
	assert.Equal(t, before, inMemory(reopened))
}

func TestFileStorage_ClosedOperationsFail(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t, t.TempDir())
	require.NoError(t, s.Close())

	genesis := blockdag.GenesisBlock(0x0a, 0x01)

	_, err := s.Insert(genesis, genesis, false)
	assert.ErrorIs(t, err, blockdag.ErrClosed)

	_, err = s.GetRepresentation()
	assert.ErrorIs(t, err, blockdag.ErrClosed)

	assert.ErrorIs(t, s.Clear(), blockdag.ErrClosed)

	// closing twice is fine
	assert.NoError(t, s.Close())
}
