package wld

import (
	"bytes"
	"fmt"
)

// Strings in WLD files (the string hash and the filename lists inside
// bitmap fragments) are XOR-obfuscated with this rotating 8-byte key.
var stringKey = [8]byte{0x95, 0x3A, 0xC5, 0x2A, 0x95, 0x7A, 0x95, 0x6A}

// decodeString XORs data in place with the rotating key. The transform
// is its own inverse.
func decodeString(data []byte) {
	for i := range data {
		data[i] ^= stringKey[i%len(stringKey)]
	}
}

// stringHash is the decoded string table of one WLD file. Name
// references index into it as negative byte offsets.
type stringHash []byte

// at resolves a name reference to its NUL-terminated string. A zero
// reference means unnamed. Positive references do not address the
// hash and also resolve to the empty name.
func (h stringHash) at(ref int32) (string, error) {
	if ref >= 0 {
		return "", nil
	}
	off := int(-ref)
	if off >= len(h) {
		return "", fmt.Errorf("%w: offset %d beyond string hash of %d bytes",
			ErrInvalidNameReference, off, len(h))
	}
	end := bytes.IndexByte(h[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrInvalidNameReference, off)
	}
	return string(h[off : off+end]), nil
}
