package filestorage

import (
	"bytes"
	"sort"

	"github.com/dagchain-lab/dagchain/types"
)

// equivocationsTracker is the scoped handle handed to
// AccessEquivocationsTracker callbacks. The engine lock is held for the
// whole callback.
type equivocationsTracker struct {
	s *FileStorage
}

func (t *equivocationsTracker) Records() []*types.EquivocationRecord {
	records := make([]*types.EquivocationRecord, 0, len(t.s.state.equivocations))
	for _, record := range t.s.state.equivocations {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		c := bytes.Compare(records[i].Equivocator.Bytes(), records[j].Equivocator.Bytes())
		if c != 0 {
			return c < 0
		}

		return records[i].EquivocationBaseSeqNum < records[j].EquivocationBaseSeqNum
	})

	return records
}

func (t *equivocationsTracker) InsertRecord(record *types.EquivocationRecord) error {
	if err := t.s.equivocationsLog.Append(record.MarshalBinary()); err != nil {
		return err
	}

	t.s.state.putEquivocation(record)

	return nil
}

// UpdateRecord extends the record with one more detected hash. The stale
// record stays in the log and is collapsed on the next recovery.
func (t *equivocationsTracker) UpdateRecord(record *types.EquivocationRecord, newHash types.Hash) error {
	updated := record.WithDetected(newHash)

	if err := t.s.equivocationsLog.Append(updated.MarshalBinary()); err != nil {
		return err
	}

	t.s.state.putEquivocation(updated)

	return nil
}
