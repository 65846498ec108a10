package particle

import (
	"math/rand/v2"

	"github.com/ayusman/gesturetree/internal/geom"
	"github.com/ayusman/gesturetree/internal/photo"
)

// Transform is an object's current placement.
type Transform struct {
	Position geom.Vec3
	Rotation geom.Quat
	Scale    float32
}

// Population is every object of one kind, stored as parallel slices. Targets
// and visual attributes are fixed at creation; only the transforms, the
// animation phases and the group yaw change, and only inside Update.
type Population struct {
	kind     *kind
	selfSpin float32
	yaw      float32

	tree  []geom.Vec3
	chaos []geom.Vec3
	euler []geom.Euler
	base  []float32
	color []Color

	pos     []geom.Vec3
	rot     []geom.Quat
	scale   []float32
	phase   []float32
	settled []bool

	// Photo cards only.
	ids    []string
	photos []photo.Resource
}

// Name returns the population name used in frames.
func (p *Population) Name() string { return p.kind.name }

// Len returns the number of objects.
func (p *Population) Len() int { return len(p.pos) }

// Yaw returns the group rotation about Y.
func (p *Population) Yaw() float32 { return p.yaw }

// Transform returns object i's current placement.
func (p *Population) Transform(i int) Transform {
	return Transform{Position: p.pos[i], Rotation: p.rot[i], Scale: p.scale[i]}
}

// Targets returns object i's tree and chaos destinations.
func (p *Population) Targets(i int) (tree, chaos geom.Vec3) {
	return p.tree[i], p.chaos[i]
}

func newPopulation(k *kind, n int) *Population {
	return &Population{
		kind:    k,
		tree:    make([]geom.Vec3, 0, n),
		chaos:   make([]geom.Vec3, 0, n),
		euler:   make([]geom.Euler, 0, n),
		base:    make([]float32, 0, n),
		color:   make([]Color, 0, n),
		pos:     make([]geom.Vec3, 0, n),
		rot:     make([]geom.Quat, 0, n),
		scale:   make([]float32, 0, n),
		phase:   make([]float32, 0, n),
		settled: make([]bool, 0, n),
	}
}

// add appends one object starting at start.
func (p *Population) add(tree, chaos, start geom.Vec3, e geom.Euler, base float32, c Color, startScale float32) {
	p.tree = append(p.tree, tree)
	p.chaos = append(p.chaos, chaos)
	p.euler = append(p.euler, e)
	p.base = append(p.base, base)
	p.color = append(p.color, c)
	p.pos = append(p.pos, start)
	p.rot = append(p.rot, geom.QuatFromEuler(e))
	p.scale = append(p.scale, startScale)
	p.phase = append(p.phase, 0)
	p.settled = append(p.settled, false)
}

func (p *Population) addPhoto(r photo.Resource, rng *rand.Rand, s Shape) {
	tree := geom.ConePoint(rng, s.Height, s.Radius, s.YOffset)
	chaos := geom.SpherePoint(rng, s.ChaosRadius)
	offset := geom.Euler{
		X: (rng.Float32() - 0.5) * 0.4,
		Y: (rng.Float32() - 0.5) * 0.4,
		Z: (rng.Float32() - 0.5) * 0.4,
	}
	// Cards fly in from their scattered position.
	p.add(tree, chaos, chaos, offset, 1, Color{1, 1, 1}, 0)
	p.ids = append(p.ids, r.ID)
	p.photos = append(p.photos, r)
}

// removePhoto drops the card for id, keeping the order of the rest.
func (p *Population) removePhoto(id string) bool {
	i := -1
	for j, v := range p.ids {
		if v == id {
			i = j
			break
		}
	}
	if i < 0 {
		return false
	}

	p.tree = remove(p.tree, i)
	p.chaos = remove(p.chaos, i)
	p.euler = remove(p.euler, i)
	p.base = remove(p.base, i)
	p.color = remove(p.color, i)
	p.pos = remove(p.pos, i)
	p.rot = remove(p.rot, i)
	p.scale = remove(p.scale, i)
	p.phase = remove(p.phase, i)
	p.settled = remove(p.settled, i)
	p.ids = remove(p.ids, i)
	p.photos = remove(p.photos, i)
	return true
}

func remove[T any](s []T, i int) []T {
	return append(s[:i], s[i+1:]...)
}

// update moves every object one step toward its target.
func (p *Population) update(f *frame) {
	k := p.kind

	if k.trackHand && f.mode.Chaotic() {
		p.yaw = wrapAngle(p.yaw + wrapAngle(f.hand-p.yaw)*handSmoothing)
	} else {
		p.yaw = wrapAngle(p.yaw + k.spin*f.delta)
	}

	rate := k.rate * f.delta
	if rate > 1 {
		rate = 1
	}

	for i := range p.pos {
		t := k.resolve(p, i, f)
		a := rate
		if t.alpha > 0 {
			a = t.alpha
		}
		p.pos[i] = geom.LerpVec3(p.pos[i], t.pos, a)
		p.rot[i] = geom.Slerp(p.rot[i], t.rot, a)
		p.scale[i] = geom.Lerp(p.scale[i], t.scale, a)
		p.settled[i] = t.breathe && k.breath != nil && p.pos[i].Dist(t.pos) < settleDistance
	}
}

// output returns object i's position as sent to the renderer, with the idle
// offset added to settled objects.
func (p *Population) output(i int, elapsed float32) geom.Vec3 {
	if !p.settled[i] {
		return p.pos[i]
	}
	return p.pos[i].Add(p.kind.breath(i, elapsed))
}
