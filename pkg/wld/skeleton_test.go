package wld

import (
	"errors"
	"testing"
)

type testBone struct {
	nameRef  int32
	trackRef int32
	children []uint32
}

func buildSkeletonPayload(bones []testBone) []byte {
	var p bin
	p.u32(0) // flags
	p.u32(uint32(len(bones)))
	p.i32(0) // collision ref
	for _, b := range bones {
		p.i32(b.nameRef)
		p.u32(0)
		p.i32(b.trackRef)
		p.i32(0)
		p.u32(uint32(len(b.children)))
		for _, c := range b.children {
			p.u32(c)
		}
	}
	return p.b
}

func buildTrackPayload(frames []TrackFrame) []byte {
	var p bin
	p.u32(0)
	p.u32(uint32(len(frames)))
	for _, f := range frames {
		p.i16(f.RotDenom)
		p.i16(f.RotX)
		p.i16(f.RotY)
		p.i16(f.RotZ)
		p.i16(f.ShiftX)
		p.i16(f.ShiftY)
		p.i16(f.ShiftZ)
		p.i16(f.ShiftDenom)
	}
	return p.b
}

func buildTrackInstancePayload(ref int32) []byte {
	var p bin
	p.i32(ref)
	p.u32(0)
	return p.b
}

func TestSkeletonParentDerivation(t *testing.T) {
	payload := buildSkeletonPayload([]testBone{
		{children: []uint32{1, 2}},
		{},
		{children: []uint32{3}},
		{},
	})
	_, f := loadSingle(t, tagSkeletonHierarchy, payload)
	s := f.Payload.(SkeletonHierarchy)

	wantParents := []int{-1, 0, 0, 2}
	for i, want := range wantParents {
		if s.Bones[i].Parent != want {
			t.Errorf("bone %d parent = %d, want %d", i, s.Bones[i].Parent, want)
		}
	}
	// The format's ordering guarantee: parents always precede children.
	for i, b := range s.Bones {
		if b.Parent >= i {
			t.Errorf("bone %d has parent %d at or after itself", i, b.Parent)
		}
	}
}

func TestSkeletonRejectsCycles(t *testing.T) {
	tests := []struct {
		name  string
		bones []testBone
	}{
		{"self child", []testBone{{children: []uint32{0}}}},
		{"backward child", []testBone{{}, {children: []uint32{0}}}},
		{"child out of range", []testBone{{children: []uint32{7}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder()
			b.frag(tagSkeletonHierarchy, 0, buildSkeletonPayload(tt.bones))
			_, _, err := Load(b.bytes())
			if !errors.Is(err, ErrMalformedFragment) {
				t.Errorf("Load = %v, want ErrMalformedFragment", err)
			}
		})
	}
}

func TestTrackFrameDecode(t *testing.T) {
	identity := TrackFrame{RotDenom: 16384}
	q := identity.Rotation()
	if q.W < 0.999 || q.X != 0 || q.Y != 0 || q.Z != 0 {
		t.Errorf("identity frame rotation = %+v", q)
	}

	shifted := TrackFrame{RotDenom: 16384, ShiftX: 512, ShiftY: -256, ShiftDenom: 256}
	tr := shifted.Translation()
	if tr.X != 2 || tr.Y != -1 || tr.Z != 0 {
		t.Errorf("Translation = %+v", tr)
	}

	// A zero shift denominator means no translation, not a division.
	if (TrackFrame{ShiftX: 100}).Translation() != (TrackFrame{}).Translation() {
		t.Error("zero denominator must yield zero translation")
	}

	m := shifted.Transform()
	p := m.TransformPoint([3]float32{0, 0, 0})
	if p[0] != 2 || p[1] != -1 || p[2] != 0 {
		t.Errorf("Transform moved origin to %v", p)
	}
}

func TestSkeletonGlobalPoses(t *testing.T) {
	b := newBuilder()
	rootTrack := b.frag(tagAnimatedTrack, 0, buildTrackPayload([]TrackFrame{
		{RotDenom: 16384, ShiftX: 256, ShiftDenom: 256}, // translate +1 x
	}))
	rootInst := b.frag(tagTrackInstance, 0, buildTrackInstancePayload(int32(rootTrack)))
	childTrack := b.frag(tagAnimatedTrack, 0, buildTrackPayload([]TrackFrame{
		{RotDenom: 16384, ShiftY: 512, ShiftDenom: 256}, // translate +2 y
	}))
	childInst := b.frag(tagTrackInstance, 0, buildTrackInstancePayload(int32(childTrack)))
	skel := b.frag(tagSkeletonHierarchy, 0, buildSkeletonPayload([]testBone{
		{trackRef: int32(rootInst), children: []uint32{1}},
		{trackRef: int32(childInst)},
	}))

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 0 {
		t.Fatalf("unexpected faults: %v", faults)
	}

	s := world.At(skel).Payload.(SkeletonHierarchy)
	poses := s.GlobalPoses(world, 0)
	if len(poses) != 2 {
		t.Fatalf("poses = %d, want 2", len(poses))
	}

	origin := [3]float32{0, 0, 0}
	root := poses[0].TransformPoint(origin)
	if root != [3]float32{1, 0, 0} {
		t.Errorf("root pose moved origin to %v", root)
	}
	child := poses[1].TransformPoint(origin)
	if child != [3]float32{1, 2, 0} {
		t.Errorf("child pose must accumulate the parent's shift, got %v", child)
	}
}

func TestTrackInstanceSleep(t *testing.T) {
	var p bin
	p.i32(0)
	p.u32(0x01)
	p.u32(250)
	_, f := loadSingle(t, tagTrackInstance, p.b)
	inst := f.Payload.(TrackInstance)
	if inst.SleepMs != 250 {
		t.Errorf("SleepMs = %d, want 250", inst.SleepMs)
	}
}
