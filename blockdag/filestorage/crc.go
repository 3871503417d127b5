package filestorage

import (
	"encoding/binary"
	"hash/crc32"
)

// crcDigestLength is the width of every sibling checksum file.
const crcDigestLength = 8

var crcTable = crc32.MakeTable(crc32.IEEE)

// crcAccumulator keeps a running CRC32 over everything appended to a log.
type crcAccumulator struct {
	value uint32
}

func (c *crcAccumulator) Update(p []byte) {
	c.value = crc32.Update(c.value, crcTable, p)
}

func (c *crcAccumulator) Reset(v uint32) {
	c.value = v
}

// Digest exports the running value as the 8-byte big-endian sibling
// file content.
func (c *crcAccumulator) Digest() []byte {
	b := make([]byte, crcDigestLength)
	binary.BigEndian.PutUint64(b, uint64(c.value))

	return b
}

func checksumOf(p []byte) uint32 {
	return crc32.Checksum(p, crcTable)
}
