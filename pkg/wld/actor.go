package wld

import "fmt"

// ActorAction is one action of an actor definition: the level-of-
// detail distances at which its representations switch.
type ActorAction struct {
	LodDistances []float32
}

// Actor (0x14) defines a placeable model: a callback name and the
// fragments (skeleton track sets or plain mesh refs) that represent it.
type Actor struct {
	Flags           uint32
	CallbackNameRef int32
	Callback        string
	BoundsRef       int32
	CurrentAction   uint32     // present when Flags&0x01
	Location        [6]float32 // present when Flags&0x02
	Actions         []ActorAction
	Refs            []int32
	UserData        uint32
}

func (Actor) Kind() Kind { return KindActor }

func (d *decoder) parseActor(r *reader) (Payload, error) {
	a := Actor{Flags: r.u32(), CallbackNameRef: r.i32()}
	name, err := d.hash.at(a.CallbackNameRef)
	if err != nil {
		return nil, err
	}
	a.Callback = name

	actionCount := int(r.u32())
	refCount := int(r.u32())
	a.BoundsRef = r.i32()

	if a.Flags&0x01 != 0 {
		a.CurrentAction = r.u32()
	}
	if a.Flags&0x02 != 0 {
		for i := range a.Location {
			a.Location[i] = r.f32()
		}
	}

	if actionCount*4 > r.remaining() {
		return nil, fmt.Errorf("%w: actor claims %d actions", ErrMalformedFragment, actionCount)
	}
	a.Actions = make([]ActorAction, actionCount)
	for i := range a.Actions {
		lodCount := int(r.u32())
		if lodCount*4 > r.remaining() {
			return nil, fmt.Errorf("%w: action %d claims %d lods", ErrMalformedFragment, i, lodCount)
		}
		lods := make([]float32, lodCount)
		for j := range lods {
			lods[j] = r.f32()
		}
		a.Actions[i] = ActorAction{LodDistances: lods}
	}

	if refCount*4 > r.remaining() {
		return nil, fmt.Errorf("%w: actor claims %d refs", ErrMalformedFragment, refCount)
	}
	a.Refs = make([]int32, refCount)
	for i := range a.Refs {
		a.Refs[i] = r.i32()
	}
	a.UserData = r.u32()
	return a, nil
}

// ObjectLocation (0x15) places an actor in the zone. ActorRef carries
// two encodings: negative is a name reference into the string hash
// (the usual case, naming an Actor fragment), positive is a direct
// fragment index.
type ObjectLocation struct {
	ActorRef  int32
	ActorName string // resolved when ActorRef is a name reference
	Flags     uint32
	SphereRef int32
	Position  [3]float32
	Rotation  [3]float32 // raw units; see RotationDegrees
	Scale     [3]float32
	SoundRef  int32
	Sound     string
}

func (ObjectLocation) Kind() Kind { return KindObjectLocation }

// RotationDegrees converts the stored rotation, in 512ths of a turn,
// to degrees per axis.
func (o ObjectLocation) RotationDegrees() [3]float32 {
	const toDeg = 360.0 / 512.0
	return [3]float32{
		o.Rotation[0] * toDeg,
		o.Rotation[1] * toDeg,
		o.Rotation[2] * toDeg,
	}
}

func (d *decoder) parseObjectLocation(r *reader) (Payload, error) {
	o := ObjectLocation{ActorRef: r.i32()}
	if o.ActorRef < 0 {
		name, err := d.hash.at(o.ActorRef)
		if err != nil {
			return nil, err
		}
		o.ActorName = name
	}
	o.Flags = r.u32()
	o.SphereRef = r.i32()
	o.Position = r.vec3()
	o.Rotation = r.vec3()
	o.Scale = r.vec3()
	o.SoundRef = r.i32()
	if o.SoundRef < 0 {
		name, err := d.hash.at(o.SoundRef)
		if err != nil {
			return nil, err
		}
		o.Sound = name
	}
	return o, nil
}

// Zone (0x29) names a group of BSP regions (water, lava, teleports).
// Region values index the BSP region table, not the fragment table,
// so the resolver leaves them untouched.
type Zone struct {
	Flags    uint32
	Regions  []uint32
	UserData []byte
}

func (Zone) Kind() Kind { return KindZone }

func (d *decoder) parseZone(r *reader) (Payload, error) {
	z := Zone{Flags: r.u32()}
	count := int(r.u32())
	if count*4 > r.remaining() {
		return nil, fmt.Errorf("%w: zone claims %d regions", ErrMalformedFragment, count)
	}
	z.Regions = make([]uint32, count)
	for i := range z.Regions {
		z.Regions[i] = r.u32()
	}
	size := int(r.u32())
	if size > r.remaining() {
		return nil, fmt.Errorf("%w: zone claims %d bytes of user data", ErrMalformedFragment, size)
	}
	z.UserData = r.bytes(size)
	return z, nil
}
