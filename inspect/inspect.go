package inspect

import (
	"fmt"

	"github.com/dagchain-lab/dagchain/blockdag"
	"github.com/dagchain-lab/dagchain/blockdag/filestorage"
	"github.com/dagchain-lab/dagchain/types"
	"github.com/hashicorp/go-hclog"
)

// Report summarizes an opened DAG data directory. Violations is only
// populated by VerifyStorage.
type Report struct {
	Blocks         int      `json:"blocks"`
	Rows           int      `json:"rows"`
	LatestMessages int      `json:"latestMessages"`
	InvalidBlocks  int      `json:"invalidBlocks"`
	Equivocations  int      `json:"equivocations"`
	Violations     []string `json:"violations,omitempty"`
}

func openStorage(logger hclog.Logger, dataDir string) (*filestorage.FileStorage, error) {
	return filestorage.New(logger, filestorage.DefaultConfig(dataDir), nil)
}

// InspectStorage opens the data directory, replaying any pending log
// repair, and counts what it holds.
func InspectStorage(logger hclog.Logger, dataDir string) (*Report, error) {
	storage, err := openStorage(logger, dataDir)
	if err != nil {
		return nil, err
	}

	defer storage.Close()

	return buildReport(storage)
}

func buildReport(storage blockdag.DagStorage) (*Report, error) {
	dag, err := storage.GetRepresentation()
	if err != nil {
		return nil, err
	}

	rows, err := dag.TopoSort(0)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Rows:           len(rows),
		LatestMessages: len(dag.LatestMessageHashes()),
		InvalidBlocks:  len(dag.InvalidBlocks()),
	}

	for _, row := range rows {
		report.Blocks += len(row)
	}

	err = storage.AccessEquivocationsTracker(func(tracker blockdag.EquivocationsTracker) error {
		report.Equivocations = len(tracker.Records())

		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// VerifyStorage opens the data directory and walks the DAG from the
// given block number, checking the structural invariants of the store.
// Violations are reported, not fatal.
func VerifyStorage(logger hclog.Logger, dataDir string, startBlockNumber int64) (*Report, error) {
	storage, err := openStorage(logger, dataDir)
	if err != nil {
		return nil, err
	}

	defer storage.Close()

	report, err := buildReport(storage)
	if err != nil {
		return nil, err
	}

	dag, err := storage.GetRepresentation()
	if err != nil {
		return nil, err
	}

	report.Violations, err = verifyRepresentation(dag, startBlockNumber)
	if err != nil {
		return nil, err
	}

	for _, violation := range report.Violations {
		logger.Error("invariant violated", "violation", violation)
	}

	logger.Info("verification finished",
		"blocks", report.Blocks, "violations", len(report.Violations))

	return report, nil
}

func verifyRepresentation(dag blockdag.DagRepresentation, startBlockNumber int64) ([]string, error) {
	if startBlockNumber < 0 {
		startBlockNumber = 0
	}

	rows, err := dag.TopoSort(startBlockNumber)
	if err != nil {
		return nil, err
	}

	ordering, err := dag.DeriveOrdering(startBlockNumber)
	if err != nil {
		return nil, err
	}

	var violations []string

	for rowIndex, row := range rows {
		number := startBlockNumber + int64(rowIndex)

		for _, hash := range row {
			more, err := verifyBlock(dag, ordering, hash, number)
			if err != nil {
				return nil, err
			}

			violations = append(violations, more...)
		}
	}

	for validator, hash := range dag.LatestMessageHashes() {
		contained, err := dag.Contains(hash.Bytes())
		if err != nil {
			return nil, err
		}

		if !contained {
			violations = append(violations, fmt.Sprintf(
				"latest message %s of validator %s is not stored", hash, validator))
		}
	}

	for _, meta := range dag.InvalidBlocks() {
		if !meta.Invalid {
			violations = append(violations, fmt.Sprintf(
				"block %s is listed invalid but not flagged", meta.BlockHash))
		}
	}

	return violations, nil
}

func verifyBlock(
	dag blockdag.DagRepresentation,
	ordering map[types.Hash]int,
	hash types.Hash,
	number int64,
) ([]string, error) {
	var violations []string

	meta, ok, err := dag.Lookup(hash)
	if err != nil {
		return nil, err
	}

	if !ok {
		return []string{fmt.Sprintf(
			"block %s sits in the topological sort but has no metadata", hash)}, nil
	}

	if meta.BlockNum != number {
		violations = append(violations, fmt.Sprintf(
			"block %s carries number %d but sorts at %d", hash, meta.BlockNum, number))
	}

	for _, parent := range meta.Parents {
		contained, err := dag.Contains(parent.Bytes())
		if err != nil {
			return nil, err
		}

		if !contained {
			violations = append(violations, fmt.Sprintf(
				"block %s references missing parent %s", hash, parent))

			continue
		}

		parentPosition, parentSorted := ordering[parent]
		if parentSorted && parentPosition >= ordering[hash] {
			violations = append(violations, fmt.Sprintf(
				"block %s sorts before its parent %s", hash, parent))
		}

		children, ok, err := dag.Children(parent)
		if err != nil {
			return nil, err
		}

		if ok && !containsHash(children, hash) {
			violations = append(violations, fmt.Sprintf(
				"parent %s does not list %s as a child", parent, hash))
		}
	}

	return violations, nil
}

func containsHash(hashes []types.Hash, hash types.Hash) bool {
	for _, h := range hashes {
		if h == hash {
			return true
		}
	}

	return false
}
