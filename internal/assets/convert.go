package assets

import (
	gomath "math"

	"github.com/Faultbox/eq-assets/pkg/math"
	"github.com/Faultbox/eq-assets/pkg/wld"
)

// MeshData is a render-ready view of one mesh fragment: flat vertex
// buffers, a triangle index buffer and per-material draw ranges. The
// engine adapter owns turning this into its own primitives.
type MeshData struct {
	Name      string
	Center    [3]float32
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	Indices   []uint32
	Bones     []int // per-vertex bone index, nil for unskinned meshes
	Groups    []MeshGroup
}

// MeshGroup is one material's contiguous run of the index buffer.
type MeshGroup struct {
	Material string
	Textures []string
	Start    int // first index
	Count    int // number of indices
}

// MaterialData describes one material for the adapter.
type MaterialData struct {
	Name       string
	RGBA       [4]uint8
	Brightness float32
	Textures   []string
	Animated   bool
	SleepMs    uint32
}

// Placement is one object location with its composed transform.
type Placement struct {
	Actor     string
	Position  [3]float32
	Rotation  [3]float32 // degrees per axis
	Scale     [3]float32
	Transform math.Mat4
}

// BuildMeshData flattens a mesh fragment into buffers.
func BuildMeshData(w *wld.World, f *wld.Fragment) (MeshData, bool) {
	mesh, ok := f.Payload.(wld.Mesh)
	if !ok {
		return MeshData{}, false
	}

	data := MeshData{
		Name:      f.Name,
		Center:    mesh.Center,
		Positions: mesh.Positions(),
		Normals:   mesh.Normals(),
		TexCoords: mesh.TexCoords,
		Indices:   mesh.Indices(),
		Bones:     mesh.BoneAssignments(),
	}

	names := materialNames(w, mesh)
	start := 0
	for _, run := range mesh.PolygonMaterials {
		count := int(run.Count) * 3
		g := MeshGroup{Start: start, Count: count}
		if int(run.Material) < len(names) {
			g.Material = names[run.Material]
			g.Textures = textureNamesAt(w, mesh, int(run.Material))
		}
		data.Groups = append(data.Groups, g)
		start += count
	}
	return data, true
}

// materialNames returns the fragment names of a mesh's palette slots.
func materialNames(w *wld.World, mesh wld.Mesh) []string {
	listFrag := w.At(int(mesh.MaterialListRef))
	if listFrag == nil {
		return nil
	}
	list, ok := listFrag.Payload.(wld.MaterialList)
	if !ok {
		return nil
	}
	names := make([]string, len(list.Refs))
	for i, ref := range list.Refs {
		if mf := w.At(int(ref)); mf != nil {
			names[i] = mf.Name
		}
	}
	return names
}

func textureNamesAt(w *wld.World, mesh wld.Mesh, slot int) []string {
	mats := w.MaterialsOf(mesh)
	if slot >= len(mats) {
		return nil
	}
	return w.TextureNames(mats[slot])
}

// BuildMaterialData converts one material fragment.
func BuildMaterialData(w *wld.World, f *wld.Fragment) (MaterialData, bool) {
	mat, ok := f.Payload.(wld.Material)
	if !ok {
		return MaterialData{}, false
	}

	data := MaterialData{
		Name:       f.Name,
		RGBA:       mat.Color(),
		Brightness: mat.Brightness,
		Textures:   w.TextureNames(mat),
	}

	// Frame timing lives on the bitmap list, one hop down.
	if listRef := w.At(int(mat.BitmapRef)); listRef != nil {
		if ref, ok := listRef.Payload.(wld.BitmapListRef); ok {
			if listFrag := w.At(int(ref.Ref)); listFrag != nil {
				if list, ok := listFrag.Payload.(wld.BitmapList); ok {
					data.Animated = list.Animated()
					data.SleepMs = list.SleepMs
				}
			}
		}
	}
	return data, true
}

// BuildPlacement converts one object location into a placement with
// a composed local-to-world transform.
func BuildPlacement(w *wld.World, f *wld.Fragment) (Placement, bool) {
	loc, ok := f.Payload.(wld.ObjectLocation)
	if !ok {
		return Placement{}, false
	}

	p := Placement{
		Actor:    loc.ActorName,
		Position: loc.Position,
		Rotation: loc.RotationDegrees(),
		Scale:    loc.Scale,
	}
	if p.Actor == "" && loc.ActorRef > 0 {
		if af := w.At(int(loc.ActorRef)); af != nil {
			p.Actor = af.Name
		}
	}

	sx, sy, sz := loc.Scale[0], loc.Scale[1], loc.Scale[2]
	if sx == 0 && sy == 0 && sz == 0 {
		sx, sy, sz = 1, 1, 1
	}

	rot := p.Rotation
	const degToRad = gomath.Pi / 180
	p.Transform = math.Translate(loc.Position[0], loc.Position[1], loc.Position[2]).
		Mul(math.RotateZ(rot[2] * degToRad)).
		Mul(math.RotateY(rot[1] * degToRad)).
		Mul(math.RotateX(rot[0] * degToRad)).
		Mul(math.Scale(sx, sy, sz))
	return p, true
}

// Placements converts every object location in a world.
func Placements(w *wld.World) []Placement {
	frags := w.Placements()
	out := make([]Placement, 0, len(frags))
	for _, f := range frags {
		if p, ok := BuildPlacement(w, f); ok {
			out = append(out, p)
		}
	}
	return out
}
