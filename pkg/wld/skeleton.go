package wld

import (
	"fmt"

	"github.com/Faultbox/eq-assets/pkg/math"
)

// Bone is one node of a skeleton. Children are indices into the owning
// hierarchy's bone array; Parent is derived during decode (-1 for the
// root). The format guarantees a forest: every child index is strictly
// greater than its parent's position.
type Bone struct {
	NameRef  int32
	Name     string
	Flags    uint32
	TrackRef int32 // TrackInstance fragment driving this bone
	MeshRef  int32 // MeshRef fragment attached to this bone, 0 if none
	Children []uint32
	Parent   int
}

// SkeletonHierarchy (0x10) is an ordered bone forest with optional
// per-skin mesh lists.
type SkeletonHierarchy struct {
	Flags          uint32
	CollisionRef   int32
	CenterOffset   [3]float32 // present when Flags&0x01
	BoundingRadius float32    // present when Flags&0x02
	Bones          []Bone

	// Present when Flags&0x200: the skin meshes and their bone links.
	SkinMeshRefs []int32
	SkinLinks    []uint32
}

func (SkeletonHierarchy) Kind() Kind { return KindSkeletonHierarchy }

func (d *decoder) parseSkeletonHierarchy(r *reader) (Payload, error) {
	s := SkeletonHierarchy{Flags: r.u32()}
	boneCount := int(r.u32())
	s.CollisionRef = r.i32()
	if s.Flags&0x01 != 0 {
		s.CenterOffset = r.vec3()
	}
	if s.Flags&0x02 != 0 {
		s.BoundingRadius = r.f32()
	}

	if boneCount*20 > r.remaining() {
		return nil, fmt.Errorf("%w: skeleton claims %d bones", ErrMalformedFragment, boneCount)
	}
	s.Bones = make([]Bone, boneCount)
	for i := range s.Bones {
		b := Bone{
			NameRef:  r.i32(),
			Flags:    r.u32(),
			TrackRef: r.i32(),
			MeshRef:  r.i32(),
			Parent:   -1,
		}
		name, err := d.hash.at(b.NameRef)
		if err != nil {
			return nil, err
		}
		b.Name = name

		childCount := int(r.u32())
		if childCount*4 > r.remaining() {
			return nil, fmt.Errorf("%w: bone %d claims %d children", ErrMalformedFragment, i, childCount)
		}
		b.Children = make([]uint32, childCount)
		for j := range b.Children {
			b.Children[j] = r.u32()
		}
		s.Bones[i] = b
	}

	// Derive parents and enforce the forest ordering: a child must
	// come after its parent or the hierarchy would cycle.
	for i := range s.Bones {
		for _, c := range s.Bones[i].Children {
			if int(c) <= i || int(c) >= boneCount {
				return nil, fmt.Errorf("%w: bone %d lists child %d", ErrMalformedFragment, i, c)
			}
			if s.Bones[c].Parent != -1 {
				return nil, fmt.Errorf("%w: bone %d has two parents", ErrMalformedFragment, c)
			}
			s.Bones[c].Parent = i
		}
	}

	if s.Flags&0x200 != 0 {
		skinCount := int(r.u32())
		if skinCount*8 > r.remaining() {
			return nil, fmt.Errorf("%w: skeleton claims %d skins", ErrMalformedFragment, skinCount)
		}
		s.SkinMeshRefs = make([]int32, skinCount)
		for i := range s.SkinMeshRefs {
			s.SkinMeshRefs[i] = r.i32()
		}
		s.SkinLinks = make([]uint32, skinCount)
		for i := range s.SkinLinks {
			s.SkinLinks[i] = r.u32()
		}
	}
	return s, nil
}

// GlobalPoses computes one world-space matrix per bone for the given
// animation frame, accumulating each bone's track transform onto its
// parent's. Bones without a resolvable track pose as identity.
func (s SkeletonHierarchy) GlobalPoses(w *World, frame int) []math.Mat4 {
	poses := make([]math.Mat4, len(s.Bones))
	for i, b := range s.Bones {
		local := math.Identity()
		if track, ok := w.trackFor(b.TrackRef); ok && len(track.Frames) > 0 {
			local = track.Frames[frame%len(track.Frames)].Transform()
		}
		if b.Parent >= 0 {
			poses[i] = poses[b.Parent].Mul(local)
		} else {
			poses[i] = local
		}
	}
	return poses
}

// SkeletonTrackSet (0x11) binds a skeleton hierarchy into an actor.
type SkeletonTrackSet struct {
	Ref   int32
	Flags uint32
}

func (SkeletonTrackSet) Kind() Kind { return KindSkeletonTrackSet }

func (d *decoder) parseSkeletonTrackSet(r *reader) (Payload, error) {
	return SkeletonTrackSet{Ref: r.i32(), Flags: r.u32()}, nil
}

// TrackFrame is one keyframe of an animated track, stored as
// fixed-point int16 fields with explicit denominators.
type TrackFrame struct {
	RotDenom int16 // quaternion scalar part
	RotX     int16
	RotY     int16
	RotZ     int16

	ShiftX     int16
	ShiftY     int16
	ShiftZ     int16
	ShiftDenom int16
}

// Rotation decodes the frame's rotation quaternion.
func (f TrackFrame) Rotation() math.Quat {
	return math.Quat{
		X: float32(f.RotX),
		Y: float32(f.RotY),
		Z: float32(f.RotZ),
		W: float32(f.RotDenom),
	}.Normalize()
}

// Translation decodes the frame's bone offset.
func (f TrackFrame) Translation() math.Vec3 {
	if f.ShiftDenom == 0 {
		return math.Vec3{}
	}
	d := float32(f.ShiftDenom)
	return math.Vec3{
		X: float32(f.ShiftX) / d,
		Y: float32(f.ShiftY) / d,
		Z: float32(f.ShiftZ) / d,
	}
}

// Transform combines rotation and translation into a bone-local matrix.
func (f TrackFrame) Transform() math.Mat4 {
	m := f.Rotation().ToMat4()
	t := f.Translation()
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// AnimatedTrack (0x12) is the keyframe sequence for one bone of one
// animation.
type AnimatedTrack struct {
	Flags  uint32
	Frames []TrackFrame
}

func (AnimatedTrack) Kind() Kind { return KindAnimatedTrack }

func (d *decoder) parseAnimatedTrack(r *reader) (Payload, error) {
	t := AnimatedTrack{Flags: r.u32()}
	frameCount := int(r.u32())
	if frameCount*16 > r.remaining() {
		return nil, fmt.Errorf("%w: track claims %d frames", ErrMalformedFragment, frameCount)
	}
	t.Frames = make([]TrackFrame, frameCount)
	for i := range t.Frames {
		t.Frames[i] = TrackFrame{
			RotDenom:   r.i16(),
			RotX:       r.i16(),
			RotY:       r.i16(),
			RotZ:       r.i16(),
			ShiftX:     r.i16(),
			ShiftY:     r.i16(),
			ShiftZ:     r.i16(),
			ShiftDenom: r.i16(),
		}
	}
	return t, nil
}

// TrackInstance (0x13) binds an AnimatedTrack to a bone, optionally
// with a per-frame hold time.
type TrackInstance struct {
	Ref     int32
	Flags   uint32
	SleepMs uint32 // present when Flags&0x01
}

func (TrackInstance) Kind() Kind { return KindTrackInstance }

func (d *decoder) parseTrackInstance(r *reader) (Payload, error) {
	t := TrackInstance{Ref: r.i32(), Flags: r.u32()}
	if t.Flags&0x01 != 0 {
		t.SleepMs = r.u32()
	}
	return t, nil
}
