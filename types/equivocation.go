package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// EquivocationRecord tracks two or more conflicting blocks produced by the
// same validator at the same base sequence number.
type EquivocationRecord struct {
	Equivocator            Validator
	EquivocationBaseSeqNum int32
	DetectedBlockHashes    map[Hash]struct{}
}

func NewEquivocationRecord(equivocator Validator, baseSeqNum int32, detected ...Hash) *EquivocationRecord {
	hashes := make(map[Hash]struct{}, len(detected))
	for _, h := range detected {
		hashes[h] = struct{}{}
	}

	return &EquivocationRecord{
		Equivocator:            equivocator,
		EquivocationBaseSeqNum: baseSeqNum,
		DetectedBlockHashes:    hashes,
	}
}

// WithDetected returns a copy of the record with one more detected block hash.
func (r *EquivocationRecord) WithDetected(h Hash) *EquivocationRecord {
	hashes := make(map[Hash]struct{}, len(r.DetectedBlockHashes)+1)
	for hash := range r.DetectedBlockHashes {
		hashes[hash] = struct{}{}
	}

	hashes[h] = struct{}{}

	return &EquivocationRecord{
		Equivocator:            r.Equivocator,
		EquivocationBaseSeqNum: r.EquivocationBaseSeqNum,
		DetectedBlockHashes:    hashes,
	}
}

// SortedDetected returns the detected block hashes in bytewise order.
func (r *EquivocationRecord) SortedDetected() []Hash {
	hashes := make([]Hash, 0, len(r.DetectedBlockHashes))
	for h := range r.DetectedBlockHashes {
		hashes = append(hashes, h)
	}

	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	return hashes
}

// MarshalBinary encodes the record as
// equivocator || baseSeqNum:i32 || count:i32 || hash*count,
// integers big-endian, hashes in bytewise order.
func (r *EquivocationRecord) MarshalBinary() []byte {
	return r.MarshalBinaryTo(nil)
}

func (r *EquivocationRecord) MarshalBinaryTo(dst []byte) []byte {
	dst = append(dst, r.Equivocator.Bytes()...)

	var num [4]byte

	binary.BigEndian.PutUint32(num[:], uint32(r.EquivocationBaseSeqNum))
	dst = append(dst, num[:]...)

	binary.BigEndian.PutUint32(num[:], uint32(len(r.DetectedBlockHashes)))
	dst = append(dst, num[:]...)

	for _, h := range r.SortedDetected() {
		dst = append(dst, h.Bytes()...)
	}

	return dst
}

// UnmarshalBinary decodes one record and returns the number of bytes consumed.
func (r *EquivocationRecord) UnmarshalBinary(input []byte) (int, error) {
	const headerSize = ValidatorLength + 8

	if len(input) < headerSize {
		return 0, fmt.Errorf("equivocation record too short, %d bytes", len(input))
	}

	copy(r.Equivocator[:], input[:ValidatorLength])
	r.EquivocationBaseSeqNum = int32(binary.BigEndian.Uint32(input[ValidatorLength:]))

	count := int(int32(binary.BigEndian.Uint32(input[ValidatorLength+4:])))
	if count < 0 {
		return 0, fmt.Errorf("negative detected block hash count %d", count)
	}

	size := headerSize + count*HashLength
	if len(input) < size {
		return 0, fmt.Errorf("equivocation record too short, %d bytes for %d hashes", len(input), count)
	}

	r.DetectedBlockHashes = make(map[Hash]struct{}, count)

	for i := 0; i < count; i++ {
		offset := headerSize + i*HashLength
		r.DetectedBlockHashes[BytesToHash(input[offset:offset+HashLength])] = struct{}{}
	}

	return size, nil
}
