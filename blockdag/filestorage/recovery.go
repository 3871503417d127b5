package filestorage

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

var (
	errLogMalformed   = errors.New("log record is malformed")
	errChecksumFailed = errors.New("log checksum mismatch")
)

type scanFunc func(data []byte) ([]int64, error)

// recoverLog loads a log file and verifies it against its sibling checksum
// file, repairing at most the trailing record.
//
// The accepted outcomes, in the order they are tried:
//  1. the checksum covers every complete record: accept them all, dropping
//     any trailing partial bytes;
//  2. the checksum covers every record but the last: the final append never
//     committed, truncate it away;
//  3. the file ends in a partial record the checksum runs past: the file was
//     chopped mid-record, keep the complete prefix and rewrite the checksum.
//
// Anything else is corruption in the body of the log and is fatal.
func recoverLog(logger hclog.Logger, path, crcPath string, scan scanFunc) ([]byte, uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("read log %s: %w", path, err)
		}

		data = nil
	}

	ends, err := scan(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %s", errLogMalformed, path, err)
	}

	stored := readCRCFile(logger, crcPath)

	var full int64
	if len(ends) > 0 {
		full = ends[len(ends)-1]
	}

	accept := func(end int64, rewriteCRC bool) ([]byte, uint32, error) {
		accepted := data[:end]
		value := checksumOf(accepted)

		if int64(len(data)) > end {
			logger.Warn("truncating log tail",
				"path", path, "from", len(data), "to", end)

			if err := os.Truncate(path, end); err != nil {
				return nil, 0, fmt.Errorf("truncate %s: %w", path, err)
			}
		}

		if rewriteCRC {
			if err := atomicWriteFile(crcPath, (&crcAccumulator{value: value}).Digest()); err != nil {
				return nil, 0, err
			}
		}

		return accepted, value, nil
	}

	if uint64(checksumOf(data[:full])) == stored {
		return accept(full, false)
	}

	if len(ends) > 0 {
		var prev int64
		if len(ends) > 1 {
			prev = ends[len(ends)-2]
		}

		if uint64(checksumOf(data[:prev])) == stored {
			logger.Warn("dropping uncommitted trailing record", "path", path)

			return accept(prev, false)
		}
	}

	if int64(len(data)) > full {
		logger.Warn("log was cut mid-record, keeping complete prefix", "path", path)

		return accept(full, true)
	}

	return nil, 0, fmt.Errorf("%w: %s", errChecksumFailed, path)
}
