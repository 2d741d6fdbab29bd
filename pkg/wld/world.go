package wld

// World is the fully decoded, reference-resolved contents of one WLD
// file. It owns the dense 1-based fragment table and the derived name
// and kind indices, and is immutable after Load; any number of
// goroutines may query it concurrently.
type World struct {
	Version uint32

	frags []Fragment
	names map[string]int
	kinds map[Kind][]int
}

func newWorld(version uint32, frags []Fragment) *World {
	return &World{
		Version: version,
		frags:   frags,
		names:   make(map[string]int),
		kinds:   make(map[Kind][]int),
	}
}

// FragmentCount returns the number of fragments in the table.
func (w *World) FragmentCount() int { return len(w.frags) }

// At returns the fragment at a 1-based table index, or nil when the
// index is out of range.
func (w *World) At(index int) *Fragment {
	if index < 1 || index > len(w.frags) {
		return nil
	}
	return &w.frags[index-1]
}

// GetByName looks up a fragment by kind and name. The second return
// is false when no such fragment exists; many valid files simply omit
// whole asset kinds, so absence is not an error.
func (w *World) GetByName(kind Kind, name string) (*Fragment, bool) {
	idx, ok := w.names[name]
	if !ok {
		return nil, false
	}
	f := w.At(idx)
	if f == nil || f.Payload.Kind() != kind {
		return nil, false
	}
	return f, true
}

// List returns all fragments of a kind in original table order. The
// result is a fresh slice; the World itself never changes.
func (w *World) List(kind Kind) []*Fragment {
	indices := w.kinds[kind]
	out := make([]*Fragment, len(indices))
	for i, idx := range indices {
		out[i] = w.At(idx)
	}
	return out
}

// Convenience views over the common asset kinds.

func (w *World) Meshes() []*Fragment     { return w.List(KindMesh) }
func (w *World) Materials() []*Fragment  { return w.List(KindMaterial) }
func (w *World) Actors() []*Fragment     { return w.List(KindActor) }
func (w *World) Placements() []*Fragment { return w.List(KindObjectLocation) }
func (w *World) Lights() []*Fragment     { return w.List(KindPointLight) }
func (w *World) Skeletons() []*Fragment  { return w.List(KindSkeletonHierarchy) }

// TextureNames chases a material's bitmap chain and returns the
// texture filenames it ends in. Nil for untextured or partially
// resolved materials.
func (w *World) TextureNames(m Material) []string {
	listRef := w.At(int(m.BitmapRef))
	if listRef == nil {
		return nil
	}
	ref, ok := listRef.Payload.(BitmapListRef)
	if !ok {
		return nil
	}
	listFrag := w.At(int(ref.Ref))
	if listFrag == nil {
		return nil
	}
	list, ok := listFrag.Payload.(BitmapList)
	if !ok {
		return nil
	}
	var names []string
	for _, bref := range list.Refs {
		bf := w.At(int(bref))
		if bf == nil {
			continue
		}
		if bitmap, ok := bf.Payload.(Bitmap); ok {
			names = append(names, bitmap.Names...)
		}
	}
	return names
}

// MaterialsOf returns the materials a mesh's palette selects from, in
// palette order. Unresolvable slots are skipped.
func (w *World) MaterialsOf(m Mesh) []Material {
	listFrag := w.At(int(m.MaterialListRef))
	if listFrag == nil {
		return nil
	}
	list, ok := listFrag.Payload.(MaterialList)
	if !ok {
		return nil
	}
	out := make([]Material, 0, len(list.Refs))
	for _, ref := range list.Refs {
		mf := w.At(int(ref))
		if mf == nil {
			continue
		}
		if mat, ok := mf.Payload.(Material); ok {
			out = append(out, mat)
		}
	}
	return out
}

// trackFor follows a bone's TrackInstance reference down to its
// keyframe data.
func (w *World) trackFor(ref int32) (AnimatedTrack, bool) {
	instFrag := w.At(int(ref))
	if instFrag == nil {
		return AnimatedTrack{}, false
	}
	inst, ok := instFrag.Payload.(TrackInstance)
	if !ok {
		return AnimatedTrack{}, false
	}
	trackFrag := w.At(int(inst.Ref))
	if trackFrag == nil {
		return AnimatedTrack{}, false
	}
	track, ok := trackFrag.Payload.(AnimatedTrack)
	return track, ok
}
