// Package pfs provides reading and writing for EverQuest PFS archives
// (.s3d/.eqg), the compressed container format holding zone and
// character assets.
package pfs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// PFS format errors.
var (
	ErrArchiveCorrupt = errors.New("pfs archive corrupt")
	ErrInvalidMagic   = errors.New("invalid PFS magic: expected 'PFS '")
	ErrFileNotFound   = errors.New("file not found in archive")
)

const (
	pfsMagic = 0x20534650 // "PFS " little-endian
	// CRC of the hidden directory entry that stores the filename list.
	nameDirectoryCRC = 0x61580AC9

	headerSize    = 12
	dirEntrySize  = 12
	chunkHeadSize = 8
)

// Entry describes one file in the archive directory.
type Entry struct {
	Name   string // original name as stored in the filename directory
	CRC    uint32 // checksum of the name, validated on load
	Offset uint32 // byte offset of the first chunk in the data stream
	Size   uint32 // total inflated size declared by the directory
}

// Archive is an opened PFS archive over an in-memory buffer.
// It is read-only after Load and safe for concurrent readers.
type Archive struct {
	data    []byte
	files   map[string]*Entry // keyed by lowercased name
	order   []string          // original names in directory order
	version uint32

	// Workers bounds parallel chunk inflation during Read.
	// Zero means GOMAXPROCS.
	Workers int
}

// Load parses a complete archive from an in-memory buffer.
// The buffer is retained and must not be modified afterwards.
func Load(data []byte) (*Archive, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the header", ErrArchiveCorrupt, len(data))
	}

	dirOffset := binary.LittleEndian.Uint32(data[0:])
	magic := binary.LittleEndian.Uint32(data[4:])
	version := binary.LittleEndian.Uint32(data[8:])

	if magic != pfsMagic {
		return nil, ErrInvalidMagic
	}

	a := &Archive{
		data:    data,
		files:   make(map[string]*Entry),
		version: version,
	}

	if err := a.readDirectory(dirOffset); err != nil {
		return nil, err
	}
	return a, nil
}

// Open loads an archive from disk.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func (a *Archive) readDirectory(dirOffset uint32) error {
	if int(dirOffset)+4 > len(a.data) {
		return fmt.Errorf("%w: directory offset 0x%x outside container", ErrArchiveCorrupt, dirOffset)
	}

	count := binary.LittleEndian.Uint32(a.data[dirOffset:])
	dirEnd := int(dirOffset) + 4 + int(count)*dirEntrySize
	if dirEnd > len(a.data) {
		return fmt.Errorf("%w: directory claims %d entries past end of container", ErrArchiveCorrupt, count)
	}

	var nameDir *Entry
	entries := make([]*Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		off := int(dirOffset) + 4 + int(i)*dirEntrySize
		e := &Entry{
			CRC:    binary.LittleEndian.Uint32(a.data[off:]),
			Offset: binary.LittleEndian.Uint32(a.data[off+4:]),
			Size:   binary.LittleEndian.Uint32(a.data[off+8:]),
		}
		if int(e.Offset) > len(a.data) {
			return fmt.Errorf("%w: entry %d offset 0x%x outside container", ErrArchiveCorrupt, i, e.Offset)
		}
		if e.CRC == nameDirectoryCRC {
			nameDir = e
			continue
		}
		entries = append(entries, e)
	}

	if nameDir == nil {
		return fmt.Errorf("%w: no filename directory entry", ErrArchiveCorrupt)
	}

	names, err := a.readNameDirectory(nameDir)
	if err != nil {
		return err
	}
	if len(names) != len(entries) {
		return fmt.Errorf("%w: %d names for %d entries", ErrArchiveCorrupt, len(names), len(entries))
	}

	// Names are listed in data order; directory entries are sorted by
	// CRC, so re-sort by offset to pair them up.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })

	for i, e := range entries {
		e.Name = names[i]
		if crc := NameCRC(e.Name); crc != e.CRC {
			return fmt.Errorf("%w: %q checksum 0x%08x does not match directory 0x%08x",
				ErrArchiveCorrupt, e.Name, crc, e.CRC)
		}
		a.files[strings.ToLower(e.Name)] = e
		a.order = append(a.order, e.Name)
	}
	return nil
}

func (a *Archive) readNameDirectory(e *Entry) ([]string, error) {
	raw, err := a.readEntry(e)
	if err != nil {
		return nil, fmt.Errorf("reading filename directory: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: filename directory too small", ErrArchiveCorrupt)
	}

	count := binary.LittleEndian.Uint32(raw)
	// Each entry takes at least a 4-byte length plus one name byte;
	// bound the count before allocating for it.
	if int(count) > (len(raw)-4)/5 {
		return nil, fmt.Errorf("%w: filename directory claims %d names in %d bytes",
			ErrArchiveCorrupt, count, len(raw))
	}
	names := make([]string, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+4 > len(raw) {
			return nil, fmt.Errorf("%w: filename directory truncated at entry %d", ErrArchiveCorrupt, i)
		}
		n := int(binary.LittleEndian.Uint32(raw[off:]))
		off += 4
		if n < 1 || off+n > len(raw) {
			return nil, fmt.Errorf("%w: bad filename length %d", ErrArchiveCorrupt, n)
		}
		// Stored length includes the NUL terminator.
		names = append(names, strings.TrimRight(string(raw[off:off+n]), "\x00"))
		off += n
	}
	return names, nil
}

// List returns the archive's file names in directory order.
func (a *Archive) List() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Contains reports whether the archive holds the named file.
// Lookup is case-insensitive; the namespace is flat.
func (a *Archive) Contains(name string) bool {
	_, ok := a.files[strings.ToLower(name)]
	return ok
}

// Entry returns the directory entry for a name, if present.
func (a *Archive) Entry(name string) (*Entry, bool) {
	e, ok := a.files[strings.ToLower(name)]
	return e, ok
}

// Read inflates and returns the named file's full contents.
func (a *Archive) Read(name string) ([]byte, error) {
	e, ok := a.files[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	data, err := a.readEntry(e)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return data, nil
}

// chunk is one compressed block of an entry's data stream.
type chunk struct {
	data     []byte // deflated bytes
	inflated int    // declared inflated size
	at       int    // offset of this chunk's output within the file
}

// readEntry walks the chunk stream at e.Offset until the accumulated
// inflated size reaches e.Size, then inflates the chunks in parallel
// and concatenates them in stream order.
func (a *Archive) readEntry(e *Entry) ([]byte, error) {
	chunks, err := a.scanChunks(e)
	if err != nil {
		return nil, err
	}

	out := make([]byte, e.Size)

	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, c := range chunks {
		g.Go(func() error {
			data, err := Inflate(c.data, c.inflated)
			if err != nil {
				return err
			}
			copy(out[c.at:], data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Archive) scanChunks(e *Entry) ([]chunk, error) {
	var chunks []chunk
	off := int(e.Offset)
	total := 0
	for total < int(e.Size) {
		if off+chunkHeadSize > len(a.data) {
			return nil, fmt.Errorf("%w: chunk stream exhausted at %d of %d bytes",
				ErrArchiveCorrupt, total, e.Size)
		}
		deflated := int(binary.LittleEndian.Uint32(a.data[off:]))
		inflated := int(binary.LittleEndian.Uint32(a.data[off+4:]))
		off += chunkHeadSize
		if off+deflated > len(a.data) {
			return nil, fmt.Errorf("%w: chunk at 0x%x runs past end of container", ErrArchiveCorrupt, off)
		}
		if total+inflated > int(e.Size) {
			return nil, fmt.Errorf("%w: chunk stream overruns declared size %d", ErrArchiveCorrupt, e.Size)
		}
		chunks = append(chunks, chunk{
			data:     a.data[off : off+deflated],
			inflated: inflated,
			at:       total,
		})
		off += deflated
		total += inflated
	}
	return chunks, nil
}
