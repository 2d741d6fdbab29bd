package wld

import "fmt"

// Kind classifies a fragment payload. Fragments the decoder does not
// type are KindOpaque; their raw bytes are retained so later
// fragments can still reference them by index.
type Kind int

const (
	KindOpaque Kind = iota
	KindBitmap
	KindBitmapList
	KindBitmapListRef
	KindSkeletonHierarchy
	KindSkeletonTrackSet
	KindAnimatedTrack
	KindTrackInstance
	KindActor
	KindObjectLocation
	KindLightSource
	KindLightSourceRef
	KindPointLight
	KindZone
	KindMeshRef
	KindMaterial
	KindMaterialList
	KindPlayerInfo
	KindMesh
	KindMeshAnimatedVertices
	KindMeshAnimatedVerticesRef
)

var kindNames = map[Kind]string{
	KindOpaque:                  "Opaque",
	KindBitmap:                  "Bitmap",
	KindBitmapList:              "BitmapList",
	KindBitmapListRef:           "BitmapListRef",
	KindSkeletonHierarchy:       "SkeletonHierarchy",
	KindSkeletonTrackSet:        "SkeletonTrackSet",
	KindAnimatedTrack:           "AnimatedTrack",
	KindTrackInstance:           "TrackInstance",
	KindActor:                   "Actor",
	KindObjectLocation:          "ObjectLocation",
	KindLightSource:             "LightSource",
	KindLightSourceRef:          "LightSourceRef",
	KindPointLight:              "PointLight",
	KindZone:                    "Zone",
	KindMeshRef:                 "MeshRef",
	KindMaterial:                "Material",
	KindMaterialList:            "MaterialList",
	KindPlayerInfo:              "PlayerInfo",
	KindMesh:                    "Mesh",
	KindMeshAnimatedVertices:    "MeshAnimatedVertices",
	KindMeshAnimatedVerticesRef: "MeshAnimatedVerticesRef",
}

// String returns the kind name used in selectors and faults.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindByName maps a selector kind name back to its Kind.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindOpaque, false
}

// Fragment type tags as they appear on the wire.
const (
	tagBitmap                  = 0x03
	tagBitmapList              = 0x04
	tagBitmapListRef           = 0x05
	tagSkeletonHierarchy       = 0x10
	tagSkeletonTrackSet        = 0x11
	tagAnimatedTrack           = 0x12
	tagTrackInstance           = 0x13
	tagActor                   = 0x14
	tagObjectLocation          = 0x15
	tagLightSource             = 0x1B
	tagLightSourceRef          = 0x1C
	tagPointLight              = 0x28
	tagZone                    = 0x29
	tagMeshRef                 = 0x2D
	tagMeshAnimatedVerticesRef = 0x2F
	tagMaterial                = 0x30
	tagMaterialList            = 0x31
	tagPlayerInfo              = 0x35
	tagMesh                    = 0x36
	tagMeshAnimatedVertices    = 0x37
)

// Payload is one decoded fragment body.
type Payload interface {
	Kind() Kind
}

// Fragment is the atomic decoded unit of a WLD file.
type Fragment struct {
	Index   int    // 1-based position in the fragment table
	Tag     uint32 // raw type discriminant
	NameRef int32  // negative offset into the string hash, 0 if unnamed
	Name    string // resolved name, may be empty
	Payload Payload

	// Partial is set by the resolver when one or more of this
	// fragment's references could not be validated. The fragment
	// remains queryable; see the Faults returned by Load.
	Partial bool
}

// Opaque preserves a fragment of an unrecognized type. The format is
// versioned, so unknown records are carried, not rejected.
type Opaque struct {
	Data []byte
}

func (Opaque) Kind() Kind { return KindOpaque }

// PlayerInfo is fragment 0x35, found once at the head of character
// archives. Its layout is undocumented; the raw payload is kept so
// references to it stay resolvable.
type PlayerInfo struct {
	Data []byte
}

func (PlayerInfo) Kind() Kind { return KindPlayerInfo }
