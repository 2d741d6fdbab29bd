package wld

import "fmt"

// LightSource (0x1B) defines a light, possibly animated over frames.
type LightSource struct {
	Flags        uint32
	CurrentFrame uint32       // present when Flags&0x01
	SleepMs      uint32       // present when Flags&0x02
	Levels       []float32    // present when Flags&0x04
	Colors       [][3]float32 // present when Flags&0x10
	FrameCount   uint32
}

func (LightSource) Kind() Kind { return KindLightSource }

func (d *decoder) parseLightSource(r *reader) (Payload, error) {
	l := LightSource{Flags: r.u32(), FrameCount: r.u32()}
	if l.Flags&0x01 != 0 {
		l.CurrentFrame = r.u32()
	}
	if l.Flags&0x02 != 0 {
		l.SleepMs = r.u32()
	}
	if l.Flags&0x04 != 0 {
		if int(l.FrameCount)*4 > r.remaining() {
			return nil, fmt.Errorf("%w: light claims %d levels", ErrMalformedFragment, l.FrameCount)
		}
		l.Levels = make([]float32, l.FrameCount)
		for i := range l.Levels {
			l.Levels[i] = r.f32()
		}
	}
	if l.Flags&0x10 != 0 {
		if int(l.FrameCount)*12 > r.remaining() {
			return nil, fmt.Errorf("%w: light claims %d colors", ErrMalformedFragment, l.FrameCount)
		}
		l.Colors = make([][3]float32, l.FrameCount)
		for i := range l.Colors {
			l.Colors[i] = r.vec3()
		}
	}
	return l, nil
}

// LightSourceRef (0x1C) is the indirection point lights use.
type LightSourceRef struct {
	Ref   int32
	Flags uint32
}

func (LightSourceRef) Kind() Kind { return KindLightSourceRef }

func (d *decoder) parseLightSourceRef(r *reader) (Payload, error) {
	return LightSourceRef{Ref: r.i32(), Flags: r.u32()}, nil
}

// PointLight (0x28) places a light source in the zone.
type PointLight struct {
	LightRef int32
	Flags    uint32
	Position [3]float32
	Radius   float32
}

func (PointLight) Kind() Kind { return KindPointLight }

func (d *decoder) parsePointLight(r *reader) (Payload, error) {
	return PointLight{
		LightRef: r.i32(),
		Flags:    r.u32(),
		Position: r.vec3(),
		Radius:   r.f32(),
	}, nil
}
