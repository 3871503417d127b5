package filestorage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLogPair lays out a log file and a sibling checksum covering the
// first crcOver bytes of it.
func writeLogPair(t *testing.T, dir string, data []byte, crcOver int) (string, string) {
	t.Helper()

	path := filepath.Join(dir, "test.log")
	crcPath := filepath.Join(dir, "test.crc")

	require.NoError(t, os.WriteFile(path, data, 0o644))

	digest := (&crcAccumulator{value: checksumOf(data[:crcOver])}).Digest()
	require.NoError(t, os.WriteFile(crcPath, digest, 0o644))

	return path, crcPath
}

func framedRecords(payloads ...[]byte) []byte {
	var data []byte
	for _, p := range payloads {
		data = append(data, encodeSizeFramed(p)...)
	}

	return data
}

func TestRecoverLog_CleanFile(t *testing.T) {
	t.Parallel()

	data := framedRecords([]byte("one"), []byte("two"))
	path, crcPath := writeLogPair(t, t.TempDir(), data, len(data))

	accepted, value, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.NoError(t, err)
	assert.Equal(t, data, accepted)
	assert.Equal(t, checksumOf(data), value)
}

func TestRecoverLog_MissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	accepted, value, err := recoverLog(hclog.NewNullLogger(),
		filepath.Join(dir, "absent.log"), filepath.Join(dir, "absent.crc"), scanSizeFramed)
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Equal(t, uint32(0), value)
}

func TestRecoverLog_DropsUncommittedRecord(t *testing.T) {
	t.Parallel()

	committed := framedRecords([]byte("one"), []byte("two"))
	data := append(append([]byte{}, committed...), encodeSizeFramed([]byte("three"))...)

	path, crcPath := writeLogPair(t, t.TempDir(), data, len(committed))

	accepted, value, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.NoError(t, err)
	assert.Equal(t, committed, accepted)
	assert.Equal(t, checksumOf(committed), value)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, committed, onDisk)
}

func TestRecoverLog_DropsPartialTail(t *testing.T) {
	t.Parallel()

	committed := framedRecords([]byte("one"), []byte("two"))
	partial := encodeSizeFramed([]byte("three"))[:5]
	data := append(append([]byte{}, committed...), partial...)

	path, crcPath := writeLogPair(t, t.TempDir(), data, len(committed))

	accepted, _, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.NoError(t, err)
	assert.Equal(t, committed, accepted)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, committed, onDisk)
}

// a file chopped mid-record after its checksum committed keeps the
// complete prefix and the checksum file is brought back in line
func TestRecoverLog_ChoppedAfterCommit(t *testing.T) {
	t.Parallel()

	full := framedRecords([]byte("one"), []byte("two"), []byte("three"))
	chopped := full[:len(full)-3]

	prefix := framedRecords([]byte("one"), []byte("two"))
	path, crcPath := writeLogPair(t, t.TempDir(), full, len(full))
	require.NoError(t, os.WriteFile(path, chopped, 0o644))

	accepted, value, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.NoError(t, err)
	assert.Equal(t, prefix, accepted)
	assert.Equal(t, checksumOf(prefix), value)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prefix, onDisk)

	digest, err := os.ReadFile(crcPath)
	require.NoError(t, err)
	assert.Equal(t, (&crcAccumulator{value: checksumOf(prefix)}).Digest(), digest)
}

func TestRecoverLog_BodyCorruptionIsFatal(t *testing.T) {
	t.Parallel()

	data := framedRecords([]byte("one"), []byte("two"))
	path, crcPath := writeLogPair(t, t.TempDir(), data, len(data))

	data[5] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.ErrorIs(t, err, errChecksumFailed)
}

func TestRecoverLog_NegativeSizeIsMalformed(t *testing.T) {
	t.Parallel()

	data := []byte{0xff, 0xff, 0xff, 0xff, 0x00}
	path, crcPath := writeLogPair(t, t.TempDir(), data, len(data))

	_, _, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.ErrorIs(t, err, errLogMalformed)
}

func TestRecoverLog_ShortCRCFileReadsAsZero(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	crcPath := filepath.Join(dir, "test.crc")

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, os.WriteFile(crcPath, []byte{0x01, 0x02}, 0o644))

	accepted, value, err := recoverLog(hclog.NewNullLogger(), path, crcPath, scanSizeFramed)
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Equal(t, uint32(0), value)
}
