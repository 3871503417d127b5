package blockdag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dagchain-lab/dagchain/types"
)

var (
	// ErrLatestMessagesLogMalformed is returned when a latest-messages log
	// record cannot be decoded
	ErrLatestMessagesLogMalformed = errors.New("latest messages log is malformed")

	// ErrLatestMessagesLogCorrupted is returned when the latest-messages log
	// fails its checksum even after dropping the trailing record
	ErrLatestMessagesLogCorrupted = errors.New("latest messages log is corrupted")

	// ErrDataLookupCorrupted is returned when the block-metadata log fails
	// recovery
	ErrDataLookupCorrupted = errors.New("block metadata log is corrupted")

	// ErrEquivocationsTrackerLogMalformed is returned when the equivocations
	// log fails recovery
	ErrEquivocationsTrackerLogMalformed = errors.New("equivocations tracker log is malformed")

	// ErrInvalidBlocksCorrupted is returned when the invalid-blocks log fails
	// recovery
	ErrInvalidBlocksCorrupted = errors.New("invalid blocks log is corrupted")

	// ErrBlockHashesByDeployLogCorrupted is returned when the deploy-index log
	// fails recovery
	ErrBlockHashesByDeployLogCorrupted = errors.New("block hashes by deploy log is corrupted")

	// ErrClosed is returned on operations against a closed storage
	ErrClosed = errors.New("DAG storage is closed")
)

// CheckpointsDoNotStartFromZeroError is returned when the first checkpoint
// does not cover block number 0.
type CheckpointsDoNotStartFromZeroError struct {
	Paths []string
}

func (e *CheckpointsDoNotStartFromZeroError) Error() string {
	return fmt.Sprintf("checkpoints do not start from zero: %s", strings.Join(e.Paths, ", "))
}

// CheckpointsAreNotConsecutiveError is returned when checkpoint ranges leave
// a gap or overlap.
type CheckpointsAreNotConsecutiveError struct {
	Paths []string
}

func (e *CheckpointsAreNotConsecutiveError) Error() string {
	return fmt.Sprintf("checkpoints are not consecutive: %s", strings.Join(e.Paths, ", "))
}

// TopoSortLengthIsTooBigError is returned when a topological slice would
// exceed the maximum addressable length.
type TopoSortLengthIsTooBigError struct {
	Length int64
}

func (e *TopoSortLengthIsTooBigError) Error() string {
	return fmt.Sprintf("topological sort length %d is too big", e.Length)
}

// BlockSenderIsMalformedError is returned when a block sender is neither
// empty nor exactly ValidatorLength bytes.
type BlockSenderIsMalformedError struct {
	BlockHash []byte
	Sender    []byte
}

func (e *BlockSenderIsMalformedError) Error() string {
	return fmt.Sprintf(
		"block %s sender %s is malformed: %d bytes",
		types.EncodeToHex(e.BlockHash),
		types.EncodeToHex(e.Sender),
		len(e.Sender),
	)
}

// BlockHashIsMalformedError is returned when a block hash is not exactly
// HashLength bytes.
type BlockHashIsMalformedError struct {
	BlockHash []byte
}

func (e *BlockHashIsMalformedError) Error() string {
	return fmt.Sprintf(
		"block hash %s is malformed: %d bytes",
		types.EncodeToHex(e.BlockHash),
		len(e.BlockHash),
	)
}
