package blockdag

import (
	"github.com/dagchain-lab/dagchain/types"
)

// DagStorage is the persistent block DAG storage engine.
//
// A single writer process owns the instance. All mutations are serialized
// internally; readers obtain a DagRepresentation view and query it
// without further coordination. A view is not frozen: every query reads
// the state as of the latest committed mutation.
type DagStorage interface {
	// Insert adds a validated block to the DAG, persists it, and returns
	// the updated representation. Inserting an already-known block hash is
	// a no-op returning the current representation.
	Insert(block *types.Block, genesis *types.Block, invalid bool) (DagRepresentation, error)

	// GetRepresentation returns a read-only view of the DAG.
	GetRepresentation() (DagRepresentation, error)

	// AccessEquivocationsTracker runs fn with exclusive access to the
	// equivocation records.
	AccessEquivocationsTracker(fn func(EquivocationsTracker) error) error

	// Checkpoint is the hook for cold-tier rotation. The file storage
	// engine implements it as a no-op and never writes checkpoint files.
	Checkpoint() error

	// Clear truncates all logs and indices and resets the in-memory state.
	Clear() error

	// Close releases the log streams and the block-number index.
	Close() error
}

// DagRepresentation is a read-only view of the block DAG's derived
// indices. Each query reads the current state, so a view also reflects
// inserts made after it was obtained. Lookups below the sort offset
// transparently read from checkpoints.
type DagRepresentation interface {
	// Children returns the hashes of the known children of the given block.
	// The second return is false when the block is unknown.
	Children(hash types.Hash) ([]types.Hash, bool, error)

	// Lookup returns the metadata of the given block.
	Lookup(hash types.Hash) (*types.BlockMetadata, bool, error)

	// Contains reports whether the hash belongs to a stored block. Inputs
	// that are not exactly HashLength bytes are never contained.
	Contains(hash []byte) (bool, error)

	// LookupByDeployID returns the hash of the block carrying the deploy.
	LookupByDeployID(deployID []byte) (types.Hash, bool)

	// TopoSort returns one row per block number, starting at the given
	// number, each row holding the hashes of the blocks at that number.
	TopoSort(startBlockNumber int64) ([][]types.Hash, error)

	// TopoSortTail returns the final rows of the topological sort so that
	// roughly tailLength numbers are covered.
	TopoSortTail(tailLength int32) ([][]types.Hash, error)

	// DeriveOrdering assigns every block from startBlockNumber onwards its
	// position in the flattened topological sort.
	DeriveOrdering(startBlockNumber int64) (map[types.Hash]int, error)

	// LatestMessage returns the metadata of the validator's latest block.
	LatestMessage(validator types.Validator) (*types.BlockMetadata, bool, error)

	// LatestMessageHash returns the hash of the validator's latest block.
	LatestMessageHash(validator types.Validator) (types.Hash, bool)

	// LatestMessageHashes returns the latest message hash of every validator.
	LatestMessageHashes() map[types.Validator]types.Hash

	// LatestMessages resolves the metadata of every validator's latest block.
	LatestMessages() (map[types.Validator]*types.BlockMetadata, error)

	// InvalidBlocks returns the metadata of all blocks marked invalid.
	InvalidBlocks() []*types.BlockMetadata
}

// EquivocationsTracker is the scoped handle passed to
// AccessEquivocationsTracker callbacks.
type EquivocationsTracker interface {
	// Records returns the current equivocation records.
	Records() []*types.EquivocationRecord

	// InsertRecord adds a new equivocation record and persists it.
	InsertRecord(record *types.EquivocationRecord) error

	// UpdateRecord replaces record with a copy extended by newHash,
	// persisting the extended record.
	UpdateRecord(record *types.EquivocationRecord, newHash types.Hash) error
}
