package types

import (
	"encoding/hex"
	"fmt"
)

const (
	// HashLength is the expected length of a block hash
	HashLength = 32

	// ValidatorLength is the expected length of a validator identity
	ValidatorLength = 32
)

type Hash [HashLength]byte

type Validator [ValidatorLength]byte

var ZeroHash = Hash{}

// BytesToHash converts a byte slice to a Hash, right-aligned
func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	min := min(size, HashLength)

	copy(h[HashLength-min:], b[size-min:])

	return h
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func StringToHash(str string) Hash {
	return BytesToHash(StringToBytes(str))
}

// BytesToValidator converts a byte slice to a Validator, right-aligned
func BytesToValidator(b []byte) Validator {
	var v Validator

	size := len(b)
	min := min(size, ValidatorLength)

	copy(v[ValidatorLength-min:], b[size-min:])

	return v
}

func (v Validator) Bytes() []byte {
	return v[:]
}

func (v Validator) String() string {
	return "0x" + hex.EncodeToString(v[:])
}

func StringToValidator(str string) Validator {
	return BytesToValidator(StringToBytes(str))
}

func min(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// EncodeToHex prefixes raw bytes with 0x
func EncodeToHex(b []byte) string {
	return fmt.Sprintf("0x%s", hex.EncodeToString(b))
}
