package filestorage

import (
	"path/filepath"

	"github.com/dagchain-lab/dagchain/helper/kvdb/leveldb"
)

const (
	// DefaultLatestMessagesLogMaxSizeFactor bounds the latest-messages log
	// to factor * |validators| appends before squashing
	DefaultLatestMessagesLogMaxSizeFactor = 10

	// DefaultCheckpointCacheSize bounds how many reconstructed checkpoint
	// snapshots stay in memory
	DefaultCheckpointCacheSize = 8
)

// Config carries every path and tuning value of the storage engine.
type Config struct {
	LatestMessagesLogPath string
	LatestMessagesCrcPath string

	BlockMetadataLogPath string
	BlockMetadataCrcPath string

	EquivocationsLogPath string
	EquivocationsCrcPath string

	InvalidBlocksLogPath string
	InvalidBlocksCrcPath string

	BlockHashesByDeployLogPath string
	BlockHashesByDeployCrcPath string

	CheckpointsDirPath   string
	BlockNumberIndexPath string

	LatestMessagesLogMaxSizeFactor int32
	CheckpointCacheSize            int

	IndexCacheSize int
	IndexHandles   int
	IndexNoSync    bool
}

// DefaultConfig lays every file out under the given data directory.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		LatestMessagesLogPath:      filepath.Join(dataDir, "latest-messages.log"),
		LatestMessagesCrcPath:      filepath.Join(dataDir, "latest-messages.crc"),
		BlockMetadataLogPath:       filepath.Join(dataDir, "block-metadata.log"),
		BlockMetadataCrcPath:       filepath.Join(dataDir, "block-metadata.crc"),
		EquivocationsLogPath:       filepath.Join(dataDir, "equivocations-tracker.log"),
		EquivocationsCrcPath:       filepath.Join(dataDir, "equivocations-tracker.crc"),
		InvalidBlocksLogPath:       filepath.Join(dataDir, "invalid-blocks.log"),
		InvalidBlocksCrcPath:       filepath.Join(dataDir, "invalid-blocks.crc"),
		BlockHashesByDeployLogPath: filepath.Join(dataDir, "block-hashes-by-deploy.log"),
		BlockHashesByDeployCrcPath: filepath.Join(dataDir, "block-hashes-by-deploy.crc"),
		CheckpointsDirPath:         filepath.Join(dataDir, "checkpoints"),
		BlockNumberIndexPath:       filepath.Join(dataDir, "block-number-index"),

		LatestMessagesLogMaxSizeFactor: DefaultLatestMessagesLogMaxSizeFactor,
		CheckpointCacheSize:            DefaultCheckpointCacheSize,

		IndexCacheSize: leveldb.DefaultCache,
		IndexHandles:   leveldb.DefaultHandles,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c

	if out.LatestMessagesLogMaxSizeFactor <= 0 {
		out.LatestMessagesLogMaxSizeFactor = DefaultLatestMessagesLogMaxSizeFactor
	}

	if out.CheckpointCacheSize <= 0 {
		out.CheckpointCacheSize = DefaultCheckpointCacheSize
	}

	if out.IndexCacheSize <= 0 {
		out.IndexCacheSize = leveldb.DefaultCache
	}

	if out.IndexHandles <= 0 {
		out.IndexHandles = leveldb.DefaultHandles
	}

	return &out
}
