package filestorage

import (
	"encoding/binary"
	"fmt"

	"github.com/dagchain-lab/dagchain/types"
)

// Record framing of the five append logs. Integers are big-endian.
//
//	latest-messages:        validator || blockHash
//	block-metadata:         size:i32 || bytes[size]
//	equivocations-tracker:  validator || seqNum:i32 || count:i32 || hash*count
//	invalid-blocks:         size:i32 || bytes[size]
//	block-hashes-by-deploy: size:i32 || deployID[size] || blockHash

const (
	latestMessageRecordSize = types.ValidatorLength + types.HashLength

	equivocationHeaderSize = types.ValidatorLength + 4 + 4
)

func encodeLatestMessage(validator types.Validator, hash types.Hash) []byte {
	record := make([]byte, 0, latestMessageRecordSize)
	record = append(record, validator.Bytes()...)
	record = append(record, hash.Bytes()...)

	return record
}

func encodeSizeFramed(payload []byte) []byte {
	record := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(record, uint32(len(payload)))

	return append(record, payload...)
}

func encodeDeployIndex(deployID []byte, hash types.Hash) []byte {
	record := make([]byte, 4, 4+len(deployID)+types.HashLength)
	binary.BigEndian.PutUint32(record, uint32(len(deployID)))
	record = append(record, deployID...)

	return append(record, hash.Bytes()...)
}

// The scan functions return the end offset of every complete record, in
// order. Trailing bytes that do not amount to a complete record are left
// uncovered; recovery decides their fate. A record whose declared size is
// negative cannot come from a partial append and is malformed.

func scanFixed(data []byte, width int) []int64 {
	ends := make([]int64, 0, len(data)/width)

	for off := width; off <= len(data); off += width {
		ends = append(ends, int64(off))
	}

	return ends
}

func scanSizeFramed(data []byte) ([]int64, error) {
	var ends []int64

	off := 0
	for off+4 <= len(data) {
		size := int32(binary.BigEndian.Uint32(data[off:]))
		if size < 0 {
			return nil, fmt.Errorf("negative record size %d at offset %d", size, off)
		}

		if off+4+int(size) > len(data) {
			break
		}

		off += 4 + int(size)
		ends = append(ends, int64(off))
	}

	return ends, nil
}

func scanEquivocations(data []byte) ([]int64, error) {
	var ends []int64

	off := 0
	for off+equivocationHeaderSize <= len(data) {
		count := int32(binary.BigEndian.Uint32(data[off+types.ValidatorLength+4:]))
		if count < 0 {
			return nil, fmt.Errorf("negative hash count %d at offset %d", count, off)
		}

		end := off + equivocationHeaderSize + int(count)*types.HashLength
		if end > len(data) {
			break
		}

		off = end
		ends = append(ends, int64(off))
	}

	return ends, nil
}

func scanDeployIndex(data []byte) ([]int64, error) {
	var ends []int64

	off := 0
	for off+4 <= len(data) {
		size := int32(binary.BigEndian.Uint32(data[off:]))
		if size < 0 {
			return nil, fmt.Errorf("negative deploy id size %d at offset %d", size, off)
		}

		end := off + 4 + int(size) + types.HashLength
		if end > len(data) {
			break
		}

		off = end
		ends = append(ends, int64(off))
	}

	return ends, nil
}

// The parse functions rebuild in-memory state from accepted log bytes. The
// bytes were validated by the matching scan, so framing cannot fail here.

// parseLatestMessages folds the records last-write-wins per validator.
func parseLatestMessages(data []byte) map[types.Validator]types.Hash {
	messages := make(map[types.Validator]types.Hash)

	for off := 0; off+latestMessageRecordSize <= len(data); off += latestMessageRecordSize {
		validator := types.BytesToValidator(data[off : off+types.ValidatorLength])
		hash := types.BytesToHash(data[off+types.ValidatorLength : off+latestMessageRecordSize])

		messages[validator] = hash
	}

	return messages
}

func parseSizeFramed(data []byte) [][]byte {
	var payloads [][]byte

	off := 0
	for off+4 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[off:]))
		payloads = append(payloads, data[off+4:off+4+size])
		off += 4 + size
	}

	return payloads
}

func parseEquivocations(data []byte) ([]*types.EquivocationRecord, error) {
	var records []*types.EquivocationRecord

	off := 0
	for off < len(data) {
		record := new(types.EquivocationRecord)

		n, err := record.UnmarshalBinary(data[off:])
		if err != nil {
			return nil, err
		}

		off += n
		records = append(records, record)
	}

	return records, nil
}

type deployIndexEntry struct {
	deployID  []byte
	blockHash types.Hash
}

func parseDeployIndex(data []byte) []deployIndexEntry {
	var entries []deployIndexEntry

	off := 0
	for off+4 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[off:]))
		deployID := data[off+4 : off+4+size]
		hash := types.BytesToHash(data[off+4+size : off+4+size+types.HashLength])

		entries = append(entries, deployIndexEntry{deployID: deployID, blockHash: hash})
		off += 4 + size + types.HashLength
	}

	return entries
}
