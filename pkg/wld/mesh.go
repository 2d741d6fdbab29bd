package wld

import "fmt"

// Polygon is one triangle of a mesh. Indices address the owning
// mesh's vertex array.
type Polygon struct {
	Flags   uint16
	Indices [3]uint16
}

// Solid reports whether the triangle participates in collision.
func (p Polygon) Solid() bool { return p.Flags&0x10 == 0 }

// VertexPiece assigns a run of consecutive vertices to one bone of the
// skeleton the mesh is skinned to.
type VertexPiece struct {
	Count uint16
	Bone  uint16
}

// MaterialGroup assigns a run of consecutive polygons (or vertices) to
// one slot of the mesh's material list.
type MaterialGroup struct {
	Count    uint16
	Material uint16
}

// MeshOp is one entry of the mesh optimization table. Kept verbatim;
// renderers that do not morph meshes can ignore it.
type MeshOp struct {
	Index1 uint16
	Index2 uint16
	Offset float32
	Param1 uint8
	Param2 uint8
	Type   uint16
}

// Mesh (0x36) is a triangle mesh with fixed-point vertex data.
// Positions are stored as int16 triples scaled by 1/2^Scale around
// Center; Positions() applies the decode.
type Mesh struct {
	Flags           uint32
	MaterialListRef int32 // MaterialList fragment
	AnimationRef    int32 // MeshAnimatedVerticesRef fragment, 0 if static
	Fragment3       int32
	Fragment4       int32
	Center          [3]float32
	Params2         [3]uint32
	MaxDistance     float32
	Min             [3]float32
	Max             [3]float32
	Scale           uint16

	RawVertices [][3]int16
	TexCoords   [][2]float32
	RawNormals  [][3]int8
	Colors      []uint32
	Polygons    []Polygon

	VertexPieces     []VertexPiece
	PolygonMaterials []MaterialGroup
	VertexMaterials  []MaterialGroup
	MeshOps          []MeshOp
}

func (Mesh) Kind() Kind { return KindMesh }

func (d *decoder) parseMesh(r *reader) (Payload, error) {
	m := Mesh{
		Flags:           r.u32(),
		MaterialListRef: r.i32(),
		AnimationRef:    r.i32(),
		Fragment3:       r.i32(),
		Fragment4:       r.i32(),
		Center:          r.vec3(),
		Params2:         [3]uint32{r.u32(), r.u32(), r.u32()},
		MaxDistance:     r.f32(),
		Min:             r.vec3(),
		Max:             r.vec3(),
	}

	vertexCount := int(r.u16())
	uvCount := int(r.u16())
	normalCount := int(r.u16())
	colorCount := int(r.u16())
	polygonCount := int(r.u16())
	vertexPieceCount := int(r.u16())
	polygonMaterialCount := int(r.u16())
	vertexMaterialCount := int(r.u16())
	meshOpCount := int(r.u16())
	m.Scale = r.u16()

	m.RawVertices = make([][3]int16, vertexCount)
	for i := range m.RawVertices {
		m.RawVertices[i] = [3]int16{r.i16(), r.i16(), r.i16()}
	}

	// The old format packs texture coordinates into int16 pairs in
	// units of 1/256; the new format stores full floats.
	m.TexCoords = make([][2]float32, uvCount)
	for i := range m.TexCoords {
		if d.old {
			m.TexCoords[i] = [2]float32{float32(r.i16()) / 256, float32(r.i16()) / 256}
		} else {
			m.TexCoords[i] = [2]float32{r.f32(), r.f32()}
		}
	}

	m.RawNormals = make([][3]int8, normalCount)
	for i := range m.RawNormals {
		m.RawNormals[i] = [3]int8{r.i8(), r.i8(), r.i8()}
	}

	m.Colors = make([]uint32, colorCount)
	for i := range m.Colors {
		m.Colors[i] = r.u32()
	}

	m.Polygons = make([]Polygon, polygonCount)
	for i := range m.Polygons {
		p := Polygon{Flags: r.u16(), Indices: [3]uint16{r.u16(), r.u16(), r.u16()}}
		for _, idx := range p.Indices {
			if int(idx) >= vertexCount {
				return nil, fmt.Errorf("%w: polygon %d vertex index %d out of %d",
					ErrMalformedFragment, i, idx, vertexCount)
			}
		}
		m.Polygons[i] = p
	}

	m.VertexPieces = make([]VertexPiece, vertexPieceCount)
	for i := range m.VertexPieces {
		m.VertexPieces[i] = VertexPiece{Count: r.u16(), Bone: r.u16()}
	}

	m.PolygonMaterials = make([]MaterialGroup, polygonMaterialCount)
	for i := range m.PolygonMaterials {
		m.PolygonMaterials[i] = MaterialGroup{Count: r.u16(), Material: r.u16()}
	}

	m.VertexMaterials = make([]MaterialGroup, vertexMaterialCount)
	for i := range m.VertexMaterials {
		m.VertexMaterials[i] = MaterialGroup{Count: r.u16(), Material: r.u16()}
	}

	m.MeshOps = make([]MeshOp, meshOpCount)
	for i := range m.MeshOps {
		m.MeshOps[i] = MeshOp{
			Index1: r.u16(),
			Index2: r.u16(),
			Offset: r.f32(),
			Param1: r.u8(),
			Param2: r.u8(),
			Type:   r.u16(),
		}
	}

	return m, nil
}

// Positions decodes the fixed-point vertex positions.
func (m Mesh) Positions() [][3]float32 {
	scale := 1.0 / float32(int32(1)<<m.Scale)
	out := make([][3]float32, len(m.RawVertices))
	for i, v := range m.RawVertices {
		out[i] = [3]float32{
			m.Center[0] + float32(v[0])*scale,
			m.Center[1] + float32(v[1])*scale,
			m.Center[2] + float32(v[2])*scale,
		}
	}
	return out
}

// Normals decodes the packed unit normals.
func (m Mesh) Normals() [][3]float32 {
	out := make([][3]float32, len(m.RawNormals))
	for i, n := range m.RawNormals {
		out[i] = [3]float32{
			float32(n[0]) / 127,
			float32(n[1]) / 127,
			float32(n[2]) / 127,
		}
	}
	return out
}

// Indices flattens the polygon list into a triangle index buffer.
func (m Mesh) Indices() []uint32 {
	out := make([]uint32, 0, len(m.Polygons)*3)
	for _, p := range m.Polygons {
		out = append(out, uint32(p.Indices[0]), uint32(p.Indices[1]), uint32(p.Indices[2]))
	}
	return out
}

// BoneAssignments expands the run-length vertex pieces into one bone
// index per vertex. Returns nil for unskinned meshes.
func (m Mesh) BoneAssignments() []int {
	if len(m.VertexPieces) == 0 {
		return nil
	}
	out := make([]int, 0, len(m.RawVertices))
	for _, piece := range m.VertexPieces {
		for i := uint16(0); i < piece.Count; i++ {
			out = append(out, int(piece.Bone))
		}
	}
	return out
}

// MeshRef (0x2D) points an actor or skeleton bone at a mesh.
type MeshRef struct {
	Ref   int32
	Flags uint32
}

func (MeshRef) Kind() Kind { return KindMeshRef }

func (d *decoder) parseMeshRef(r *reader) (Payload, error) {
	return MeshRef{Ref: r.i32(), Flags: r.u32()}, nil
}

// MeshAnimatedVertices (0x37) replaces a mesh's vertex positions per
// animation frame, using the same fixed-point encoding as Mesh.
type MeshAnimatedVertices struct {
	Flags   uint32
	SleepMs uint16
	Scale   uint16
	Frames  [][][3]int16 // [frame][vertex]
}

func (MeshAnimatedVertices) Kind() Kind { return KindMeshAnimatedVertices }

func (d *decoder) parseMeshAnimatedVertices(r *reader) (Payload, error) {
	v := MeshAnimatedVertices{Flags: r.u32()}
	vertexCount := int(r.u16())
	frameCount := int(r.u16())
	v.SleepMs = r.u16()
	v.Scale = r.u16()

	if frameCount*vertexCount*6 > r.remaining() {
		return nil, fmt.Errorf("%w: %d frames of %d vertices exceed payload",
			ErrMalformedFragment, frameCount, vertexCount)
	}
	v.Frames = make([][][3]int16, frameCount)
	for f := range v.Frames {
		frame := make([][3]int16, vertexCount)
		for i := range frame {
			frame[i] = [3]int16{r.i16(), r.i16(), r.i16()}
		}
		v.Frames[f] = frame
	}
	return v, nil
}

// FramePositions decodes one frame's vertex positions.
func (v MeshAnimatedVertices) FramePositions(frame int) [][3]float32 {
	if frame < 0 || frame >= len(v.Frames) {
		return nil
	}
	scale := 1.0 / float32(int32(1)<<v.Scale)
	out := make([][3]float32, len(v.Frames[frame]))
	for i, p := range v.Frames[frame] {
		out[i] = [3]float32{float32(p[0]) * scale, float32(p[1]) * scale, float32(p[2]) * scale}
	}
	return out
}

// MeshAnimatedVerticesRef (0x2F) is the indirection a mesh's
// AnimationRef points at.
type MeshAnimatedVerticesRef struct {
	Ref   int32
	Flags uint32
}

func (MeshAnimatedVerticesRef) Kind() Kind { return KindMeshAnimatedVerticesRef }

func (d *decoder) parseMeshAnimatedVerticesRef(r *reader) (Payload, error) {
	return MeshAnimatedVerticesRef{Ref: r.i32(), Flags: r.u32()}, nil
}
