package filestorage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// crcLog is an append-only log stream paired with a sibling checksum file.
// The checksum file holds exactly 8 bytes and is replaced through an atomic
// rename, which is the commit point of every append.
type crcLog struct {
	logger hclog.Logger

	path    string
	crcPath string

	file *os.File
	crc  crcAccumulator
}

// openCRCLog opens the append stream of a recovered log. The seed must be
// the checksum of the bytes currently in the file.
func openCRCLog(logger hclog.Logger, path, crcPath string, seed uint32) (*crcLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}

	l := &crcLog{
		logger:  logger,
		path:    path,
		crcPath: crcPath,
		file:    file,
	}
	l.crc.Reset(seed)

	return l, nil
}

// Append writes the record, syncs the log, and commits the new checksum.
func (l *crcLog) Append(p []byte) error {
	if _, err := l.file.Write(p); err != nil {
		return fmt.Errorf("append to %s: %w", l.path, err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}

	l.crc.Update(p)

	return l.commitCRC()
}

// commitCRC writes the current digest to a temp file in the log directory
// and renames it over the sibling checksum file.
func (l *crcLog) commitCRC() error {
	return atomicWriteFile(l.crcPath, l.crc.Digest())
}

// Replace atomically swaps the whole log content and its checksum, then
// reopens the append stream. Used by the latest-messages squash and Clear.
func (l *crcLog) Replace(data []byte) error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.path, err)
	}

	if err := atomicWriteFile(l.path, data); err != nil {
		return err
	}

	l.crc.Reset(checksumOf(data))

	if err := l.commitCRC(); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen log %s: %w", l.path, err)
	}

	l.file = file

	return nil
}

func (l *crcLog) Close() error {
	return l.file.Close()
}

// atomicWriteFile writes data to a same-directory temp file and renames it
// over path.
func atomicWriteFile(path string, data []byte) error {
	dir, base := filepath.Split(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("write temp for %s: %w", path, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("sync temp for %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("rename temp over %s: %w", path, err)
	}

	return nil
}

// readCRCFile reads the stored digest of a log. Missing or short checksum
// files read as zero.
func readCRCFile(logger hclog.Logger, path string) uint64 {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read checksum file, assuming zero", "path", path, "err", err)
		}

		return 0
	}

	if len(data) < crcDigestLength {
		logger.Warn("checksum file is too short, assuming zero", "path", path, "length", len(data))

		return 0
	}

	return binary.BigEndian.Uint64(data[:crcDigestLength])
}
