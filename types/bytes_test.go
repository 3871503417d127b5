package types

import (
	"bytes"
	"testing"
)

func TestStringToBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arr []byte
		exp []byte
	}{
		{StringToBytes("0x00ffff00ff0000"), []byte{0x00, 0xff, 0xff, 0x00, 0xff, 0x00, 0x00}},
		{StringToBytes("0x00000000000000"), []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{StringToBytes("0xff"), []byte{0xff}},
		{[]byte{}, []byte{}},
		{StringToBytes("0x00ffffffffffff"), []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for i, test := range tests {
		if !bytes.Equal(test.arr, test.exp) {
			t.Errorf("test %d, got %x exp %x", i, test.arr, test.exp)
		}
	}
}

func TestBytesToHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arr []byte
		exp Hash
	}{
		{nil, ZeroHash},
		{StringToBytes("0x01"), StringToHash("0x01")},
		{bytes.Repeat([]byte{0xff}, HashLength), BytesToHash(bytes.Repeat([]byte{0xff}, HashLength))},
	}

	for i, test := range tests {
		if BytesToHash(test.arr) != test.exp {
			t.Errorf("test %d, got %s exp %s", i, BytesToHash(test.arr), test.exp)
		}
	}
}
