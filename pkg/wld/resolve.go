package wld

import "fmt"

// Fault records one non-fatal resolution failure: a reference that
// points outside the fragment table or at a fragment of the wrong
// kind. The owning fragment is marked Partial but the rest of the
// World stays usable.
type Fault struct {
	Frag   int    // offending fragment index
	Field  string // which reference field
	Ref    int32  // raw reference value
	Reason string
}

func (f Fault) String() string {
	return fmt.Sprintf("fragment %d: %s=%d: %s", f.Frag, f.Field, f.Ref, f.Reason)
}

// resolve is the second decode pass. It builds the World's derived
// indices, then validates every cross-reference against the complete
// fragment table (references may point forward, so this cannot run
// fragment-by-fragment).
func resolve(w *World) []Fault {
	for i := range w.frags {
		f := &w.frags[i]
		if f.Name != "" {
			// Duplicate names: last write wins, like the archive's
			// flat namespace.
			w.names[f.Name] = f.Index
		}
		k := f.Payload.Kind()
		w.kinds[k] = append(w.kinds[k], f.Index)
	}

	var faults []Fault
	for i := range w.frags {
		f := &w.frags[i]

		check := func(field string, ref int32, want ...Kind) {
			if ref == 0 {
				return
			}
			fault := func(reason string) {
				faults = append(faults, Fault{Frag: f.Index, Field: field, Ref: ref, Reason: reason})
				f.Partial = true
			}
			if ref < 0 {
				fault("negative value in an index reference field")
				return
			}
			target := w.At(int(ref))
			if target == nil {
				fault(fmt.Sprintf("index out of range [1, %d]", len(w.frags)))
				return
			}
			got := target.Payload.Kind()
			for _, k := range want {
				if got == k {
					return
				}
			}
			fault(fmt.Sprintf("expected %s, found %s", wantList(want), got))
		}

		switch p := f.Payload.(type) {
		case BitmapList:
			for j, ref := range p.Refs {
				check(fmt.Sprintf("Refs[%d]", j), ref, KindBitmap)
			}
		case BitmapListRef:
			check("Ref", p.Ref, KindBitmapList)
		case Material:
			check("BitmapRef", p.BitmapRef, KindBitmapListRef)
		case MaterialList:
			for j, ref := range p.Refs {
				check(fmt.Sprintf("Refs[%d]", j), ref, KindMaterial)
			}
		case Mesh:
			check("MaterialListRef", p.MaterialListRef, KindMaterialList)
			check("AnimationRef", p.AnimationRef, KindMeshAnimatedVerticesRef)
		case MeshRef:
			check("Ref", p.Ref, KindMesh)
		case MeshAnimatedVerticesRef:
			check("Ref", p.Ref, KindMeshAnimatedVertices)
		case SkeletonHierarchy:
			for j, b := range p.Bones {
				check(fmt.Sprintf("Bones[%d].TrackRef", j), b.TrackRef, KindTrackInstance)
				check(fmt.Sprintf("Bones[%d].MeshRef", j), b.MeshRef, KindMeshRef)
			}
			for j, ref := range p.SkinMeshRefs {
				check(fmt.Sprintf("SkinMeshRefs[%d]", j), ref, KindMeshRef)
			}
		case SkeletonTrackSet:
			check("Ref", p.Ref, KindSkeletonHierarchy)
		case TrackInstance:
			check("Ref", p.Ref, KindAnimatedTrack)
		case Actor:
			for j, ref := range p.Refs {
				check(fmt.Sprintf("Refs[%d]", j), ref,
					KindSkeletonTrackSet, KindMeshRef, KindBitmapListRef)
			}
		case ObjectLocation:
			if p.ActorRef > 0 {
				check("ActorRef", p.ActorRef, KindActor)
			} else if p.ActorName != "" {
				if idx, ok := w.names[p.ActorName]; !ok {
					faults = append(faults, Fault{
						Frag: f.Index, Field: "ActorName", Ref: p.ActorRef,
						Reason: fmt.Sprintf("no fragment named %q", p.ActorName),
					})
					f.Partial = true
				} else if got := w.At(idx).Payload.Kind(); got != KindActor {
					faults = append(faults, Fault{
						Frag: f.Index, Field: "ActorName", Ref: p.ActorRef,
						Reason: fmt.Sprintf("%q is a %s, expected Actor", p.ActorName, got),
					})
					f.Partial = true
				}
			}
		case LightSourceRef:
			check("Ref", p.Ref, KindLightSource)
		case PointLight:
			check("LightRef", p.LightRef, KindLightSourceRef)
		}
	}
	return faults
}

func wantList(want []Kind) string {
	if len(want) == 1 {
		return want[0].String()
	}
	s := ""
	for i, k := range want {
		if i > 0 {
			s += " or "
		}
		s += k.String()
	}
	return s
}
