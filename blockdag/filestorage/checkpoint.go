package filestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/dagchain-lab/dagchain/blockdag"
	"github.com/dagchain-lab/dagchain/types"
	"github.com/hashicorp/go-hclog"
)

// checkpoint files are named START-END over decimal block numbers
var checkpointNamePattern = regexp.MustCompile(`^([0-9]+)-([0-9]+)$`)

// checkpoint is one immutable cold tier covering block numbers [start, end).
type checkpoint struct {
	start int64
	end   int64
	path  string
}

// checkpointedDagInfo is the reconstructed view of a checkpoint, derived
// deterministically from its block metadata records.
type checkpointedDagInfo struct {
	childMap   map[types.Hash][]types.Hash
	dataLookup map[types.Hash]*types.BlockMetadata
	topoSort   [][]types.Hash
	sortOffset int64
}

// listCheckpoints parses the checkpoint directory and validates that the
// entries cover [0, sortOffset) contiguously.
func listCheckpoints(logger hclog.Logger, dir string) ([]*checkpoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read checkpoint dir %s: %w", dir, err)
	}

	checkpoints := make([]*checkpoint, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		m := checkpointNamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			logger.Warn("ignoring file in checkpoint directory", "name", entry.Name())

			continue
		}

		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			logger.Warn("ignoring file in checkpoint directory", "name", entry.Name())

			continue
		}

		end, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			logger.Warn("ignoring file in checkpoint directory", "name", entry.Name())

			continue
		}

		checkpoints = append(checkpoints, &checkpoint{
			start: start,
			end:   end,
			path:  filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].start < checkpoints[j].start
	})

	if len(checkpoints) == 0 {
		return nil, nil
	}

	paths := make([]string, len(checkpoints))
	for i, c := range checkpoints {
		paths[i] = c.path
	}

	if checkpoints[0].start != 0 {
		return nil, &blockdag.CheckpointsDoNotStartFromZeroError{Paths: paths}
	}

	for i := 1; i < len(checkpoints); i++ {
		if checkpoints[i-1].end != checkpoints[i].start {
			return nil, &blockdag.CheckpointsAreNotConsecutiveError{Paths: paths}
		}
	}

	return checkpoints, nil
}

// loadCheckpointInfo reads a checkpoint file and rebuilds its derived
// indices. The file shares the block-metadata log framing.
func loadCheckpointInfo(c *checkpoint) (*checkpointedDagInfo, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", c.path, err)
	}

	if _, err := scanSizeFramed(data); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %s", c.path, err)
	}

	info := &checkpointedDagInfo{
		childMap:   make(map[types.Hash][]types.Hash),
		dataLookup: make(map[types.Hash]*types.BlockMetadata),
		topoSort:   make([][]types.Hash, c.end-c.start),
		sortOffset: c.start,
	}

	for _, payload := range parseSizeFramed(data) {
		meta := new(types.BlockMetadata)
		if err := meta.UnmarshalRLP(payload); err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", c.path, err)
		}

		info.dataLookup[meta.BlockHash] = meta

		if _, ok := info.childMap[meta.BlockHash]; !ok {
			info.childMap[meta.BlockHash] = nil
		}

		for _, parent := range meta.Parents {
			info.childMap[parent] = appendChild(info.childMap[parent], meta.BlockHash)
		}

		row := meta.BlockNum - c.start
		if row < 0 || row >= int64(len(info.topoSort)) {
			return nil, fmt.Errorf(
				"checkpoint %s: block %s number %d outside range [%d, %d)",
				c.path, meta.BlockHash, meta.BlockNum, c.start, c.end,
			)
		}

		info.topoSort[row] = append(info.topoSort[row], meta.BlockHash)
	}

	return info, nil
}
