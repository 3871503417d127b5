package filestorage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dagchain-lab/dagchain/blockdag"
	"github.com/dagchain-lab/dagchain/helper/kvdb"
	"github.com/dagchain-lab/dagchain/helper/kvdb/leveldb"
	"github.com/dagchain-lab/dagchain/helper/rawdb"
	"github.com/dagchain-lab/dagchain/types"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"
)

// FileStorage is the file-backed block DAG storage engine. Five CRC-paired
// append logs hold the incremental state, a leveldb index maps block hashes
// to block numbers, and historical metadata lives in checkpoint files.
type FileStorage struct {
	logger  hclog.Logger
	metrics *Metrics
	config  *Config

	// mu serializes every mutation; readers hold it shared
	mu sync.RWMutex

	state *dagState

	latestMessagesLog *crcLog
	blockMetadataLog  *crcLog
	equivocationsLog  *crcLog
	invalidBlocksLog  *crcLog
	deployIndexLog    *crcLog

	index kvdb.KVBatchStorage

	checkpoints     []*checkpoint
	checkpointCache *lru.Cache

	// loadMu prevents duplicate concurrent loads of the same checkpoint
	loadMu sync.Mutex

	closed *atomic.Bool
}

// New opens (or creates) the DAG storage under the configured paths,
// replaying and repairing the logs.
func New(logger hclog.Logger, config *Config, m *Metrics) (*FileStorage, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	logger = logger.Named("filestorage")

	if m == nil {
		m = NilMetrics()
	}

	config = config.withDefaults()

	for _, dir := range []string{
		filepath.Dir(config.LatestMessagesLogPath),
		filepath.Dir(config.BlockMetadataLogPath),
		filepath.Dir(config.EquivocationsLogPath),
		filepath.Dir(config.InvalidBlocksLogPath),
		filepath.Dir(config.BlockHashesByDeployLogPath),
		config.CheckpointsDirPath,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	checkpoints, err := listCheckpoints(logger, config.CheckpointsDirPath)
	if err != nil {
		return nil, err
	}

	var sortOffset int64
	if len(checkpoints) > 0 {
		sortOffset = checkpoints[len(checkpoints)-1].end
	}

	s := &FileStorage{
		logger:      logger,
		metrics:     m,
		config:      config,
		state:       newDagState(sortOffset),
		checkpoints: checkpoints,
		closed:      atomic.NewBool(false),
	}

	s.checkpointCache, err = lru.New(config.CheckpointCacheSize)
	if err != nil {
		return nil, err
	}

	if err := s.recover(); err != nil {
		return nil, err
	}

	s.index, err = leveldb.New(
		config.BlockNumberIndexPath,
		leveldb.SetCacheSize(config.IndexCacheSize),
		leveldb.SetHandles(config.IndexHandles),
		leveldb.SetNoSync(config.IndexNoSync),
		leveldb.SetLogger(logger),
	)
	if err != nil {
		s.closeLogs()

		return nil, fmt.Errorf("open block number index: %w", err)
	}

	s.logger.Info("DAG storage opened",
		"blocks", len(s.state.dataLookup),
		"validators", len(s.state.latestMessages),
		"checkpoints", len(s.checkpoints),
		"sortOffset", s.state.sortOffset,
	)
	s.publishMetrics()

	return s, nil
}

// recover replays the five logs, repairing at most one trailing record
// each, and opens the append streams seeded with the surviving checksums.
func (s *FileStorage) recover() error {
	cfg := s.config

	latestData, latestSeed, err := recoverLog(
		s.logger, cfg.LatestMessagesLogPath, cfg.LatestMessagesCrcPath,
		func(data []byte) ([]int64, error) {
			return scanFixed(data, latestMessageRecordSize), nil
		},
	)
	if err != nil {
		return wrapRecoveryError(err,
			blockdag.ErrLatestMessagesLogMalformed, blockdag.ErrLatestMessagesLogCorrupted)
	}

	metadataData, metadataSeed, err := recoverLog(
		s.logger, cfg.BlockMetadataLogPath, cfg.BlockMetadataCrcPath, scanSizeFramed)
	if err != nil {
		return wrapRecoveryError(err,
			blockdag.ErrDataLookupCorrupted, blockdag.ErrDataLookupCorrupted)
	}

	equivocationsData, equivocationsSeed, err := recoverLog(
		s.logger, cfg.EquivocationsLogPath, cfg.EquivocationsCrcPath, scanEquivocations)
	if err != nil {
		return wrapRecoveryError(err,
			blockdag.ErrEquivocationsTrackerLogMalformed, blockdag.ErrEquivocationsTrackerLogMalformed)
	}

	invalidData, invalidSeed, err := recoverLog(
		s.logger, cfg.InvalidBlocksLogPath, cfg.InvalidBlocksCrcPath, scanSizeFramed)
	if err != nil {
		return wrapRecoveryError(err,
			blockdag.ErrInvalidBlocksCorrupted, blockdag.ErrInvalidBlocksCorrupted)
	}

	deployData, deploySeed, err := recoverLog(
		s.logger, cfg.BlockHashesByDeployLogPath, cfg.BlockHashesByDeployCrcPath, scanDeployIndex)
	if err != nil {
		return wrapRecoveryError(err,
			blockdag.ErrBlockHashesByDeployLogCorrupted, blockdag.ErrBlockHashesByDeployLogCorrupted)
	}

	if err := s.buildState(latestData, metadataData, equivocationsData, invalidData, deployData); err != nil {
		return err
	}

	type logSpec struct {
		target  **crcLog
		path    string
		crcPath string
		seed    uint32
	}

	for _, spec := range []logSpec{
		{&s.latestMessagesLog, cfg.LatestMessagesLogPath, cfg.LatestMessagesCrcPath, latestSeed},
		{&s.blockMetadataLog, cfg.BlockMetadataLogPath, cfg.BlockMetadataCrcPath, metadataSeed},
		{&s.equivocationsLog, cfg.EquivocationsLogPath, cfg.EquivocationsCrcPath, equivocationsSeed},
		{&s.invalidBlocksLog, cfg.InvalidBlocksLogPath, cfg.InvalidBlocksCrcPath, invalidSeed},
		{&s.deployIndexLog, cfg.BlockHashesByDeployLogPath, cfg.BlockHashesByDeployCrcPath, deploySeed},
	} {
		log, err := openCRCLog(s.logger, spec.path, spec.crcPath, spec.seed)
		if err != nil {
			s.closeLogs()

			return err
		}

		*spec.target = log
	}

	return nil
}

func wrapRecoveryError(err error, malformed, corrupted error) error {
	if errors.Is(err, errLogMalformed) {
		return fmt.Errorf("%w: %s", malformed, err)
	}

	return fmt.Errorf("%w: %s", corrupted, err)
}

// buildState materializes the in-memory aggregate from the accepted bytes
// of every log.
func (s *FileStorage) buildState(latest, metadata, equivocations, invalid, deploy []byte) error {
	state := s.state

	state.latestMessages = parseLatestMessages(latest)
	state.latestMessagesLogSize = int32(len(latest) / latestMessageRecordSize)

	for _, payload := range parseSizeFramed(metadata) {
		meta := new(types.BlockMetadata)
		if err := meta.UnmarshalRLP(payload); err != nil {
			return fmt.Errorf("%w: %s", blockdag.ErrDataLookupCorrupted, err)
		}

		state.addBlock(meta)
	}

	records, err := parseEquivocations(equivocations)
	if err != nil {
		return fmt.Errorf("%w: %s", blockdag.ErrEquivocationsTrackerLogMalformed, err)
	}

	// the log keeps superseded records; last write wins per key
	for _, record := range records {
		state.putEquivocation(record)
	}

	for _, payload := range parseSizeFramed(invalid) {
		meta := new(types.BlockMetadata)
		if err := meta.UnmarshalRLP(payload); err != nil {
			return fmt.Errorf("%w: %s", blockdag.ErrInvalidBlocksCorrupted, err)
		}

		state.invalidBlocks[meta.BlockHash] = meta
	}

	for _, entry := range parseDeployIndex(deploy) {
		state.blockHashesByDeploy[string(entry.deployID)] = entry.blockHash
	}

	return nil
}

// Insert adds a block to the DAG under the writer lock, updating every
// in-memory index and persisting the deltas log by log.
func (s *FileStorage) Insert(
	block *types.Block,
	genesis *types.Block,
	invalid bool,
) (blockdag.DagRepresentation, error) {
	if s.closed.Load() {
		return nil, blockdag.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(block.BlockHash) == types.HashLength {
		hash := types.BytesToHash(block.BlockHash)
		if _, ok := s.state.dataLookup[hash]; ok {
			s.logger.Warn("block is already stored", "hash", hash)

			return s.representation(), nil
		}
	}

	// validation happens before any file or map is touched
	meta, err := blockdag.MetadataFromBlock(block, invalid)
	if err != nil {
		return nil, err
	}

	if err := s.maybeSquashLatestMessages(); err != nil {
		return nil, err
	}

	hash := meta.BlockHash

	if invalid {
		s.state.invalidBlocks[hash] = meta
	}

	s.state.addBlock(meta)

	toUpdate := latestMessagesToUpdate(block, genesis)
	if len(block.Sender) == 0 {
		s.logger.Warn("block has no sender", "hash", hash)
	}

	for _, pair := range toUpdate {
		s.state.latestMessages[pair.validator] = pair.hash
	}

	if err := rawdb.WriteBlockNumber(s.index, hash, meta.BlockNum); err != nil {
		return nil, fmt.Errorf("index block %s: %w", hash, err)
	}

	for _, deployID := range block.DeployIDs {
		s.state.blockHashesByDeploy[string(deployID)] = hash
	}

	for _, pair := range toUpdate {
		if err := s.latestMessagesLog.Append(encodeLatestMessage(pair.validator, pair.hash)); err != nil {
			return nil, err
		}

		s.state.latestMessagesLogSize++
	}

	if err := s.blockMetadataLog.Append(encodeSizeFramed(meta.MarshalRLP())); err != nil {
		return nil, err
	}

	if invalid {
		if err := s.invalidBlocksLog.Append(encodeSizeFramed(meta.MarshalRLP())); err != nil {
			return nil, err
		}

		s.metrics.InvalidBlockInc()
	}

	for _, deployID := range block.DeployIDs {
		if err := s.deployIndexLog.Append(encodeDeployIndex(deployID, hash)); err != nil {
			return nil, err
		}
	}

	s.metrics.BlockInsertedInc()
	s.publishMetrics()

	return s.representation(), nil
}

type latestMessagePair struct {
	validator types.Validator
	hash      types.Hash
}

// latestMessagesToUpdate pairs every newly bonded validator with the
// genesis hash and the sender with the block itself. Validators already
// carrying a justification keep their previous latest message.
func latestMessagesToUpdate(block, genesis *types.Block) []latestMessagePair {
	justified := make(map[types.Validator]struct{}, len(block.Justifications))
	for _, j := range block.Justifications {
		justified[j.Validator] = struct{}{}
	}

	genesisHash := types.BytesToHash(genesis.BlockHash)

	pairs := make([]latestMessagePair, 0, len(block.Bonds)+1)

	for _, bond := range block.Bonds {
		if _, ok := justified[bond.Validator]; ok {
			continue
		}

		pairs = append(pairs, latestMessagePair{validator: bond.Validator, hash: genesisHash})
	}

	if len(block.Sender) == types.ValidatorLength {
		pairs = append(pairs, latestMessagePair{
			validator: types.BytesToValidator(block.Sender),
			hash:      types.BytesToHash(block.BlockHash),
		})
	}

	return pairs
}

// maybeSquashLatestMessages rewrites the latest-messages log as a compact
// snapshot once it outgrows the live map by the configured factor.
func (s *FileStorage) maybeSquashLatestMessages() error {
	threshold := int32(len(s.state.latestMessages)) * s.config.LatestMessagesLogMaxSizeFactor
	if s.state.latestMessagesLogSize <= threshold {
		return nil
	}

	s.logger.Info("squashing latest messages log",
		"records", s.state.latestMessagesLogSize,
		"validators", len(s.state.latestMessages),
	)

	validators := make([]types.Validator, 0, len(s.state.latestMessages))
	for v := range s.state.latestMessages {
		validators = append(validators, v)
	}

	sort.Slice(validators, func(i, j int) bool {
		return bytes.Compare(validators[i].Bytes(), validators[j].Bytes()) < 0
	})

	var buf bytes.Buffer
	for _, v := range validators {
		buf.Write(encodeLatestMessage(v, s.state.latestMessages[v]))
	}

	if err := s.latestMessagesLog.Replace(buf.Bytes()); err != nil {
		return fmt.Errorf("squash latest messages log: %w", err)
	}

	s.state.latestMessagesLogSize = 0
	s.metrics.SquashInc()

	return nil
}

// GetRepresentation returns a read-only view of the DAG.
func (s *FileStorage) GetRepresentation() (blockdag.DagRepresentation, error) {
	if s.closed.Load() {
		return nil, blockdag.ErrClosed
	}

	return s.representation(), nil
}

func (s *FileStorage) representation() *representation {
	return &representation{s: s}
}

// AccessEquivocationsTracker runs fn with exclusive access to the
// equivocation records.
func (s *FileStorage) AccessEquivocationsTracker(fn func(blockdag.EquivocationsTracker) error) error {
	if s.closed.Load() {
		return blockdag.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&equivocationsTracker{s: s})
}

// Checkpoint is a placeholder for cold-tier rotation; the engine reads
// checkpoints produced elsewhere but never writes them.
func (s *FileStorage) Checkpoint() error {
	return nil
}

// Clear truncates every log, drops the block-number index, and resets the
// in-memory state.
func (s *FileStorage) Clear() error {
	if s.closed.Load() {
		return blockdag.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, log := range s.logs() {
		if err := log.Replace(nil); err != nil {
			return err
		}
	}

	if err := s.dropIndex(); err != nil {
		return err
	}

	s.state = newDagState(0)
	s.checkpoints = nil
	s.checkpointCache.Purge()
	s.publishMetrics()

	return nil
}

func (s *FileStorage) dropIndex() error {
	it := s.index.NewIterator(nil, nil)
	defer it.Release()

	batch := s.index.NewBatch()

	for it.Next() {
		if err := batch.Delete(append([]byte{}, it.Key()...)); err != nil {
			return err
		}
	}

	if err := it.Error(); err != nil {
		return fmt.Errorf("drop block number index: %w", err)
	}

	return batch.Write()
}

// Close releases the log streams and the index. Data stays on disk.
func (s *FileStorage) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error

	result = multierror.Append(result, s.closeLogs())

	if s.index != nil {
		result = multierror.Append(result, s.index.Close())
	}

	return result.ErrorOrNil()
}

func (s *FileStorage) closeLogs() error {
	var result *multierror.Error

	for _, log := range s.logs() {
		if log != nil {
			result = multierror.Append(result, log.Close())
		}
	}

	return result.ErrorOrNil()
}

func (s *FileStorage) logs() []*crcLog {
	return []*crcLog{
		s.latestMessagesLog,
		s.blockMetadataLog,
		s.equivocationsLog,
		s.invalidBlocksLog,
		s.deployIndexLog,
	}
}

// loadCheckpoint returns the reconstructed snapshot of a checkpoint,
// reading the file only when the cache misses.
func (s *FileStorage) loadCheckpoint(c *checkpoint) (*checkpointedDagInfo, error) {
	if cached, ok := s.checkpointCache.Get(c.path); ok {
		return cached.(*checkpointedDagInfo), nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if cached, ok := s.checkpointCache.Get(c.path); ok {
		return cached.(*checkpointedDagInfo), nil
	}

	info, err := loadCheckpointInfo(c)
	if err != nil {
		return nil, err
	}

	s.checkpointCache.Add(c.path, info)
	s.metrics.CheckpointLoadInc()

	return info, nil
}

func (s *FileStorage) publishMetrics() {
	s.metrics.SetTopoLength(float64(len(s.state.topoSort)))
	s.metrics.SetLatestMessagesCount(float64(len(s.state.latestMessages)))
}
