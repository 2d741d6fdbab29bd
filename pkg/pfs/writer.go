package pfs

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"time"
)

// Chunks larger than this are split before compression, matching the
// block size the original client tools emit.
const maxChunkSize = 8192

// Writer assembles a PFS archive in memory.
type Writer struct {
	names []string
	data  map[string][]byte
}

// NewWriter returns an empty archive writer.
func NewWriter() *Writer {
	return &Writer{data: make(map[string][]byte)}
}

// Add stores a file to be written. Adding the same name twice
// replaces the earlier contents.
func (w *Writer) Add(name string, data []byte) {
	if _, ok := w.data[name]; !ok {
		w.names = append(w.names, name)
	}
	w.data[name] = data
}

// Bytes builds the complete archive.
func (w *Writer) Bytes() ([]byte, error) {
	out := make([]byte, headerSize)

	type placed struct {
		crc    uint32
		offset uint32
		size   uint32
	}
	entries := make([]placed, 0, len(w.names)+1)

	appendChunks := func(data []byte) error {
		for len(data) > 0 {
			n := len(data)
			if n > maxChunkSize {
				n = maxChunkSize
			}
			deflated, err := Deflate(data[:n])
			if err != nil {
				return err
			}
			var head [chunkHeadSize]byte
			binary.LittleEndian.PutUint32(head[0:], uint32(len(deflated)))
			binary.LittleEndian.PutUint32(head[4:], uint32(n))
			out = append(out, head[:]...)
			out = append(out, deflated...)
			data = data[n:]
		}
		return nil
	}

	for _, name := range w.names {
		data := w.data[name]
		entries = append(entries, placed{
			crc:    NameCRC(name),
			offset: uint32(len(out)),
			size:   uint32(len(data)),
		})
		if err := appendChunks(data); err != nil {
			return nil, fmt.Errorf("compressing %s: %w", name, err)
		}
	}

	// Filename directory, stored as a regular compressed entry under
	// its well-known CRC. Names are listed in data order.
	nameBlob := make([]byte, 4)
	binary.LittleEndian.PutUint32(nameBlob, uint32(len(w.names)))
	for _, name := range w.names {
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(name)+1))
		nameBlob = append(nameBlob, l[:]...)
		nameBlob = append(nameBlob, name...)
		nameBlob = append(nameBlob, 0)
	}
	entries = append(entries, placed{
		crc:    nameDirectoryCRC,
		offset: uint32(len(out)),
		size:   uint32(len(nameBlob)),
	})
	if err := appendChunks(nameBlob); err != nil {
		return nil, fmt.Errorf("compressing filename directory: %w", err)
	}

	dirOffset := uint32(len(out))
	sort.Slice(entries, func(i, j int) bool { return entries[i].crc < entries[j].crc })

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(entries)))
	out = append(out, count[:]...)
	for _, e := range entries {
		var rec [dirEntrySize]byte
		binary.LittleEndian.PutUint32(rec[0:], e.crc)
		binary.LittleEndian.PutUint32(rec[4:], e.offset)
		binary.LittleEndian.PutUint32(rec[8:], e.size)
		out = append(out, rec[:]...)
	}

	// Trailer the client tools leave behind; readers ignore it.
	out = append(out, []byte("STEVE")...)
	var date [4]byte
	binary.LittleEndian.PutUint32(date[:], uint32(time.Now().Unix()))
	out = append(out, date[:]...)

	binary.LittleEndian.PutUint32(out[0:], dirOffset)
	binary.LittleEndian.PutUint32(out[4:], pfsMagic)
	binary.LittleEndian.PutUint32(out[8:], 0x00020000)
	return out, nil
}

// WriteFile builds the archive and writes it to disk.
func (w *Writer) WriteFile(path string) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
