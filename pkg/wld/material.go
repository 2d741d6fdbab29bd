package wld

import "fmt"

// Bitmap (0x03) holds texture filenames. The names are stored with the
// same XOR obfuscation as the string hash, each with its own key phase.
type Bitmap struct {
	Names []string
}

func (Bitmap) Kind() Kind { return KindBitmap }

func (d *decoder) parseBitmap(r *reader) (Payload, error) {
	count := r.u32()
	if int(count) > r.remaining() {
		return nil, fmt.Errorf("%w: bitmap claims %d names", ErrMalformedFragment, count)
	}
	b := Bitmap{Names: make([]string, 0, count)}
	for i := uint32(0); i < count; i++ {
		n := int(r.u16())
		raw := r.bytes(n)
		if raw == nil {
			break
		}
		decodeString(raw)
		// Stored length includes the NUL terminator.
		if n > 0 && raw[n-1] == 0 {
			raw = raw[:n-1]
		}
		b.Names = append(b.Names, string(raw))
	}
	return b, nil
}

// BitmapList (0x04) groups bitmap fragments into one texture, with
// frame animation when more than one is referenced.
type BitmapList struct {
	Flags        uint32
	CurrentFrame int32  // present when Flags&0x04
	SleepMs      uint32 // frame hold time, present when Flags&0x08
	Refs         []int32
}

func (BitmapList) Kind() Kind { return KindBitmapList }

// Animated reports whether the texture cycles through frames.
func (b BitmapList) Animated() bool { return len(b.Refs) > 1 && b.Flags&0x08 != 0 }

func (d *decoder) parseBitmapList(r *reader) (Payload, error) {
	b := BitmapList{Flags: r.u32()}
	count := r.u32()
	if b.Flags&0x04 != 0 {
		b.CurrentFrame = r.i32()
	}
	if b.Flags&0x08 != 0 {
		b.SleepMs = r.u32()
	}
	if int(count)*4 > r.remaining() {
		return nil, fmt.Errorf("%w: bitmap list claims %d refs", ErrMalformedFragment, count)
	}
	b.Refs = make([]int32, count)
	for i := range b.Refs {
		b.Refs[i] = r.i32()
	}
	return b, nil
}

// BitmapListRef (0x05) is the indirection materials point at.
type BitmapListRef struct {
	Ref   int32
	Flags uint32
}

func (BitmapListRef) Kind() Kind { return KindBitmapListRef }

func (d *decoder) parseBitmapListRef(r *reader) (Payload, error) {
	return BitmapListRef{Ref: r.i32(), Flags: r.u32()}, nil
}

// Material (0x30) describes one surface: render method, pen color,
// brightness and the texture reference.
type Material struct {
	Flags         uint32
	RenderMethod  uint32
	RGBPen        uint32
	Brightness    float32
	ScaledAmbient float32
	BitmapRef     int32 // BitmapListRef index, 0 for untextured

	// Present when Flags&0x02.
	PairField uint32
	PairValue float32
}

func (Material) Kind() Kind { return KindMaterial }

// Color unpacks the pen color as RGBA bytes.
func (m Material) Color() [4]uint8 {
	return [4]uint8{
		uint8(m.RGBPen),
		uint8(m.RGBPen >> 8),
		uint8(m.RGBPen >> 16),
		uint8(m.RGBPen >> 24),
	}
}

// Textured reports whether the material references a texture at all.
// Invisible collision materials do not.
func (m Material) Textured() bool { return m.BitmapRef != 0 }

func (d *decoder) parseMaterial(r *reader) (Payload, error) {
	m := Material{
		Flags:         r.u32(),
		RenderMethod:  r.u32(),
		RGBPen:        r.u32(),
		Brightness:    r.f32(),
		ScaledAmbient: r.f32(),
		BitmapRef:     r.i32(),
	}
	if m.Flags&0x02 != 0 {
		m.PairField = r.u32()
		m.PairValue = r.f32()
	}
	return m, nil
}

// MaterialList (0x31) is the palette a mesh's polygon material indices
// select from.
type MaterialList struct {
	Flags uint32
	Refs  []int32
}

func (MaterialList) Kind() Kind { return KindMaterialList }

func (d *decoder) parseMaterialList(r *reader) (Payload, error) {
	m := MaterialList{Flags: r.u32()}
	count := r.u32()
	if int(count)*4 > r.remaining() {
		return nil, fmt.Errorf("%w: material list claims %d refs", ErrMalformedFragment, count)
	}
	m.Refs = make([]int32, count)
	for i := range m.Refs {
		m.Refs[i] = r.i32()
	}
	return m, nil
}
