package pfs

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// ErrDecompression reports a malformed deflate stream or an inflated
// size that does not match the declared size.
var ErrDecompression = errors.New("chunk decompression failed")

// Inflate decompresses one zlib chunk and verifies the result is
// exactly expected bytes long. It has no side effects and is safe to
// call concurrently for independent chunks.
func Inflate(compressed []byte, expected int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()

	out := make([]byte, 0, expected)
	buf := bytes.NewBuffer(out)
	n, err := io.Copy(buf, zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if n != int64(expected) {
		return nil, fmt.Errorf("%w: inflated %d bytes, expected %d", ErrDecompression, n, expected)
	}
	return buf.Bytes(), nil
}

// Deflate compresses one chunk with zlib at the default level.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}
