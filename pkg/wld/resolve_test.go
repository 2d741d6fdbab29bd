package wld

import (
	"testing"
)

// buildMaterialChain assembles bitmap -> list -> ref -> material ->
// palette and returns the builder plus the palette's index.
func buildMaterialChain(b *wldBuilder, texture string) int {
	bitmap := b.frag(tagBitmap, b.name("T_"+texture), buildBitmapPayload(texture))

	var list bin
	list.u32(0)
	list.u32(1)
	list.i32(int32(bitmap))
	bitmapList := b.frag(tagBitmapList, 0, list.b)

	listRef := b.frag(tagBitmapListRef, 0, buildRefPayload(int32(bitmapList), 0))

	var mat bin
	mat.u32(0)          // flags
	mat.u32(0x80000001) // render method
	mat.u32(0xFFFFFFFF) // pen
	mat.f32(1)
	mat.f32(0.75)
	mat.i32(int32(listRef))
	material := b.frag(tagMaterial, b.name("WALL_MDF"), mat.b)

	var pal bin
	pal.u32(0)
	pal.u32(1)
	pal.i32(int32(material))
	return b.frag(tagMaterialList, b.name("WALL_MP"), pal.b)
}

func TestResolveMaterialChain(t *testing.T) {
	b := newBuilder()
	palette := buildMaterialChain(b, "citywal1.bmp")
	mesh := b.frag(tagMesh, b.name("MAP_DMSPRITEDEF"), buildMeshPayload(meshParams{
		matList:  int32(palette),
		vertices: [][3]int16{{0, 0, 0}},
	}))

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 0 {
		t.Fatalf("valid chain produced faults: %v", faults)
	}

	m := world.At(mesh).Payload.(Mesh)
	mats := world.MaterialsOf(m)
	if len(mats) != 1 {
		t.Fatalf("MaterialsOf returned %d materials", len(mats))
	}
	names := world.TextureNames(mats[0])
	if len(names) != 1 || names[0] != "citywal1.bmp" {
		t.Errorf("TextureNames = %v", names)
	}
}

// A mesh pointing at palette index 9999 in a small file must surface
// as a fault carrying the mesh's index, while everything else stays
// queryable.
func TestResolveBadReferenceIsFaultNotError(t *testing.T) {
	b := newBuilder()
	for i := 0; i < 48; i++ {
		b.frag(0xAB, 0, []byte{0, 0, 0, 0})
	}
	mesh := b.frag(tagMesh, b.name("BROKEN_DMSPRITEDEF"), buildMeshPayload(meshParams{
		matList: 9999,
	}))
	good := b.frag(tagMesh, b.name("GOOD_DMSPRITEDEF"), buildMeshPayload(meshParams{}))

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("a bad cross-reference must not abort the decode: %v", err)
	}
	if len(faults) != 1 {
		t.Fatalf("faults = %v, want exactly one", faults)
	}
	if faults[0].Frag != mesh {
		t.Errorf("fault names fragment %d, want %d", faults[0].Frag, mesh)
	}
	if faults[0].Field != "MaterialListRef" {
		t.Errorf("fault field = %q", faults[0].Field)
	}

	if !world.At(mesh).Partial {
		t.Error("offending fragment not marked partial")
	}
	if world.At(good).Partial {
		t.Error("healthy fragment marked partial")
	}
	if _, ok := world.GetByName(KindMesh, "GOOD_DMSPRITEDEF"); !ok {
		t.Error("other fragments must remain queryable")
	}
}

func TestResolveKindMismatch(t *testing.T) {
	b := newBuilder()
	bitmap := b.frag(tagBitmap, 0, buildBitmapPayload("x.bmp"))
	// Material's bitmap ref must target a BitmapListRef, not a Bitmap.
	var mat bin
	mat.u32(0)
	mat.u32(0)
	mat.u32(0)
	mat.f32(0)
	mat.f32(0)
	mat.i32(int32(bitmap))
	material := b.frag(tagMaterial, 0, mat.b)

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 1 {
		t.Fatalf("faults = %v", faults)
	}
	if faults[0].Frag != material {
		t.Errorf("fault names fragment %d, want %d", faults[0].Frag, material)
	}
	if !world.At(material).Partial {
		t.Error("material not marked partial")
	}
}

func TestResolveZeroRefMeansNone(t *testing.T) {
	b := newBuilder()
	var mat bin
	mat.u32(0)
	mat.u32(0)
	mat.u32(0)
	mat.f32(0)
	mat.f32(0)
	mat.i32(0) // untextured
	b.frag(tagMaterial, 0, mat.b)

	_, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 0 {
		t.Errorf("zero reference must not fault: %v", faults)
	}
}

func TestNameIndexLastWriteWins(t *testing.T) {
	b := newBuilder()
	ref := b.name("DUP")
	b.frag(tagMesh, ref, buildMeshPayload(meshParams{}))
	second := b.frag(tagMesh, ref, buildMeshPayload(meshParams{}))

	world, _, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f, ok := world.GetByName(KindMesh, "DUP")
	if !ok {
		t.Fatal("GetByName failed")
	}
	if f.Index != second {
		t.Errorf("duplicate name resolved to %d, want the later %d", f.Index, second)
	}
}

func TestListPreservesTableOrder(t *testing.T) {
	b := newBuilder()
	var want []int
	for i := 0; i < 4; i++ {
		if i%2 == 1 {
			b.frag(0xAB, 0, []byte{0, 0, 0, 0})
			continue
		}
		want = append(want, b.frag(tagMesh, 0, buildMeshPayload(meshParams{})))
	}

	world, _, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := world.List(KindMesh)
	if len(got) != len(want) {
		t.Fatalf("List returned %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Index != want[i] {
			t.Errorf("List[%d].Index = %d, want %d", i, got[i].Index, want[i])
		}
	}
}

func buildActorPayload(callback int32, refs ...int32) []byte {
	var p bin
	p.u32(0)        // flags
	p.i32(callback) // callback name
	p.u32(0)        // actions
	p.u32(uint32(len(refs)))
	p.i32(0) // bounds
	for _, r := range refs {
		p.i32(r)
	}
	p.u32(0) // user data
	return p.b
}

func buildObjectLocationPayload(actorRef int32) []byte {
	var p bin
	p.i32(actorRef)
	p.u32(0)
	p.i32(0)
	for i := 0; i < 9; i++ {
		p.f32(0) // position, rotation, scale
	}
	p.i32(0) // sound
	return p.b
}

func TestObjectLocationByName(t *testing.T) {
	b := newBuilder()
	actorName := b.name("TREE_ACTORDEF")
	b.frag(tagActor, actorName, buildActorPayload(0))
	loc := b.frag(tagObjectLocation, 0, buildObjectLocationPayload(actorName))

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 0 {
		t.Fatalf("unexpected faults: %v", faults)
	}
	o := world.At(loc).Payload.(ObjectLocation)
	if o.ActorName != "TREE_ACTORDEF" {
		t.Errorf("ActorName = %q", o.ActorName)
	}
}

func TestObjectLocationUnknownNameFaults(t *testing.T) {
	b := newBuilder()
	missing := b.name("GHOST_ACTORDEF")
	loc := b.frag(tagObjectLocation, 0, buildObjectLocationPayload(missing))

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 1 || faults[0].Frag != loc {
		t.Fatalf("faults = %v, want one against fragment %d", faults, loc)
	}
	if !world.At(loc).Partial {
		t.Error("placement not marked partial")
	}
}

func TestLightChainResolution(t *testing.T) {
	b := newBuilder()
	var src bin
	src.u32(0x04) // has levels
	src.u32(2)    // frames
	src.f32(1.0)
	src.f32(0.5)
	light := b.frag(tagLightSource, b.name("TORCH_LIGHTDEF"), src.b)
	ref := b.frag(tagLightSourceRef, 0, buildRefPayload(int32(light), 0))

	var pl bin
	pl.i32(int32(ref))
	pl.u32(0)
	pl.f32(10)
	pl.f32(20)
	pl.f32(30)
	pl.f32(50) // radius
	point := b.frag(tagPointLight, 0, pl.b)

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 0 {
		t.Fatalf("unexpected faults: %v", faults)
	}

	p := world.At(point).Payload.(PointLight)
	if p.Radius != 50 || p.Position != [3]float32{10, 20, 30} {
		t.Errorf("point light = %+v", p)
	}
	l := world.At(light).Payload.(LightSource)
	if len(l.Levels) != 2 || l.Levels[1] != 0.5 {
		t.Errorf("light levels = %v", l.Levels)
	}
	if len(world.Lights()) != 1 {
		t.Errorf("Lights() = %d entries", len(world.Lights()))
	}
}

func TestActorRefsResolve(t *testing.T) {
	b := newBuilder()
	mesh := b.frag(tagMesh, 0, buildMeshPayload(meshParams{}))
	meshRef := b.frag(tagMeshRef, 0, buildRefPayload(int32(mesh), 0))
	actor := b.frag(tagActor, b.name("BARREL_ACTORDEF"), buildActorPayload(0, int32(meshRef)))

	world, faults, err := Load(b.bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(faults) != 0 {
		t.Fatalf("unexpected faults: %v", faults)
	}
	a := world.At(actor).Payload.(Actor)
	if len(a.Refs) != 1 || a.Refs[0] != int32(meshRef) {
		t.Errorf("actor refs = %v", a.Refs)
	}
}
