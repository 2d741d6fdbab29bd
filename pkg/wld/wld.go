// Package wld decodes EverQuest WLD world-definition files: the
// fragment table, the cross-reference graph between fragments, and the
// queryable World built from both.
//
// Decoding is two explicit passes. The first walks the fragment table
// once, turning each record into a typed payload; references between
// fragments are raw 1-based indices at this point, because they may
// point forward. The second pass validates every reference and builds
// the name and kind indices. Reference problems found in the second
// pass are non-fatal Faults returned beside the World.
package wld

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WLD format errors. All of these abort the decode; see Fault for the
// non-fatal resolution problems.
var (
	ErrInvalidWLDMagic      = errors.New("invalid WLD magic")
	ErrUnsupportedVersion   = errors.New("unsupported WLD version")
	ErrTruncated            = errors.New("truncated WLD data")
	ErrFragmentSizeMismatch = errors.New("fragment payload size mismatch")
	ErrInvalidNameReference = errors.New("invalid name reference")
	ErrMalformedFragment    = errors.New("malformed fragment payload")
)

const (
	wldMagic = 0x54503D02

	// VersionOld is the original zone format; VersionNew appeared with
	// the Luclin era and changes several payload encodings.
	VersionOld = 0x00015500
	VersionNew = 0x1000C800

	wldHeaderSize = 28
)

// decoder carries the state shared by the payload parsers during the
// first pass.
type decoder struct {
	version uint32
	old     bool
	hash    stringHash
}

// Load decodes a complete WLD buffer into a World.
//
// The error return covers fatal conditions only: a corrupt header, a
// fragment whose parser did not consume exactly its declared size
// (everything after such a fragment is undecodable), or an invalid
// name reference. Cross-reference problems are returned as Faults
// beside a still-usable World.
func Load(data []byte) (*World, []Fault, error) {
	if len(data) < wldHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes is smaller than the header", ErrTruncated, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:])
	version := binary.LittleEndian.Uint32(data[4:])
	fragmentCount := binary.LittleEndian.Uint32(data[8:])
	hashSize := binary.LittleEndian.Uint32(data[20:])

	if magic != wldMagic {
		return nil, nil, fmt.Errorf("%w: 0x%08x", ErrInvalidWLDMagic, magic)
	}
	if version != VersionOld && version != VersionNew {
		return nil, nil, fmt.Errorf("%w: 0x%08x", ErrUnsupportedVersion, version)
	}

	off := wldHeaderSize
	if off+int(hashSize) > len(data) {
		return nil, nil, fmt.Errorf("%w: string hash of %d bytes past end of file", ErrTruncated, hashSize)
	}
	hash := make(stringHash, hashSize)
	copy(hash, data[off:off+int(hashSize)])
	decodeString(hash)
	off += int(hashSize)

	d := &decoder{
		version: version,
		old:     version == VersionOld,
		hash:    hash,
	}

	// A fragment record is at least 8 header bytes plus the 4-byte name
	// reference; bound the declared count before allocating for it.
	if int(fragmentCount) > (len(data)-off)/12 {
		return nil, nil, fmt.Errorf("%w: %d fragments declared in %d remaining bytes",
			ErrTruncated, fragmentCount, len(data)-off)
	}

	frags := make([]Fragment, 0, fragmentCount)
	for i := 0; i < int(fragmentCount); i++ {
		index := i + 1
		if off+8 > len(data) {
			return nil, nil, fmt.Errorf("%w: fragment %d header past end of file", ErrTruncated, index)
		}
		size := binary.LittleEndian.Uint32(data[off:])
		tag := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if size < 4 || off+int(size) > len(data) {
			return nil, nil, fmt.Errorf("%w: fragment %d declares %d bytes past end of file",
				ErrTruncated, index, size)
		}

		frag, err := d.decodeFragment(index, tag, data[off:off+int(size)])
		if err != nil {
			return nil, nil, fmt.Errorf("fragment %d (tag 0x%02x): %w", index, tag, err)
		}
		frags = append(frags, frag)
		off += int(size)
	}

	world := newWorld(version, frags)
	faults := resolve(world)
	return world, faults, nil
}

// decodeFragment parses one record. The payload slice covers exactly
// the declared size; its leading dword is the name reference.
func (d *decoder) decodeFragment(index int, tag uint32, payload []byte) (Fragment, error) {
	r := newReader(payload)
	nameRef := r.i32()

	name, err := d.hash.at(nameRef)
	if err != nil {
		return Fragment{}, err
	}

	var body Payload
	switch tag {
	case tagBitmap:
		body, err = d.parseBitmap(r)
	case tagBitmapList:
		body, err = d.parseBitmapList(r)
	case tagBitmapListRef:
		body, err = d.parseBitmapListRef(r)
	case tagSkeletonHierarchy:
		body, err = d.parseSkeletonHierarchy(r)
	case tagSkeletonTrackSet:
		body, err = d.parseSkeletonTrackSet(r)
	case tagAnimatedTrack:
		body, err = d.parseAnimatedTrack(r)
	case tagTrackInstance:
		body, err = d.parseTrackInstance(r)
	case tagActor:
		body, err = d.parseActor(r)
	case tagObjectLocation:
		body, err = d.parseObjectLocation(r)
	case tagLightSource:
		body, err = d.parseLightSource(r)
	case tagLightSourceRef:
		body, err = d.parseLightSourceRef(r)
	case tagPointLight:
		body, err = d.parsePointLight(r)
	case tagZone:
		body, err = d.parseZone(r)
	case tagMeshRef:
		body, err = d.parseMeshRef(r)
	case tagMeshAnimatedVerticesRef:
		body, err = d.parseMeshAnimatedVerticesRef(r)
	case tagMaterial:
		body, err = d.parseMaterial(r)
	case tagMaterialList:
		body, err = d.parseMaterialList(r)
	case tagPlayerInfo:
		body = PlayerInfo{Data: r.bytes(r.remaining())}
	case tagMesh:
		body, err = d.parseMesh(r)
	case tagMeshAnimatedVertices:
		body, err = d.parseMeshAnimatedVertices(r)
	default:
		body = Opaque{Data: r.bytes(r.remaining())}
	}
	if err != nil {
		return Fragment{}, err
	}

	// A parser that overran the payload or left bytes behind decoded
	// against the wrong layout; offsets after this record would be
	// garbage either way.
	if r.err != nil || r.remaining() != 0 {
		return Fragment{}, fmt.Errorf("%w: consumed %d of %d payload bytes",
			ErrFragmentSizeMismatch, r.off, len(payload))
	}

	return Fragment{
		Index:   index,
		Tag:     tag,
		NameRef: nameRef,
		Name:    name,
		Payload: body,
	}, nil
}
