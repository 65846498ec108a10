package particle

import (
	"github.com/chewxy/math32"

	"github.com/ayusman/gesturetree/internal/geom"
	"github.com/ayusman/gesturetree/internal/scene"
)

const (
	// handSmoothing is the share of the gap to HandRotation closed per frame.
	handSmoothing = 0.05

	// settleDistance is how close an object must be to its target before
	// breathing is added to its output.
	settleDistance  = 0.05
	breathAmplitude = 0.04
	tumbleRate      = 0.5

	photoTreeScale  = 0.85
	photoChaosScale = 1.1
	photoAwayScale  = 0.1
)

// frame is what every resolver sees during one Update.
type frame struct {
	mode    scene.Mode
	hand    float32
	active  string
	delta   float32
	elapsed float32

	zoomPos   geom.Vec3
	zoomRot   geom.Quat
	zoomScale float32
	zoomAlpha float32
}

// target is where one object is heading this frame.
type target struct {
	pos   geom.Vec3
	rot   geom.Quat
	scale float32
	// alpha replaces the delta-scaled rate when non-zero.
	alpha float32
	// breathe allows the idle offset once the object has settled.
	breathe bool
}

// kind is the per-population strategy plugged into the shared update loop.
type kind struct {
	name string
	rate float32
	spin float32
	// trackHand makes the group yaw follow HandRotation in chaos modes.
	trackHand bool
	resolve   func(p *Population, i int, f *frame) target
	breath    func(i int, elapsed float32) geom.Vec3
}

func scatterTarget(p *Population, i int, f *frame) geom.Vec3 {
	if f.mode.Chaotic() {
		return p.chaos[i]
	}
	return p.tree[i]
}

func resolveFoliage(p *Population, i int, f *frame) target {
	return target{
		pos:     scatterTarget(p, i, f),
		rot:     geom.Identity(),
		scale:   p.base[i],
		breathe: f.mode == scene.ModeFormed,
	}
}

func breatheFoliage(i int, elapsed float32) geom.Vec3 {
	phase := 2*elapsed + float32(i)
	return geom.V3(math32.Sin(phase)*breathAmplitude, math32.Cos(phase)*breathAmplitude, 0)
}

// resolveBox holds the static rotation when formed and tumbles on X and Z
// while scattered.
func resolveBox(p *Population, i int, f *frame) target {
	e := p.euler[i]
	if f.mode.Chaotic() {
		p.phase[i] = wrapAngle(p.phase[i] + f.delta*tumbleRate)
		e.X += p.phase[i]
		e.Z += p.phase[i]
	}
	return target{
		pos:   scatterTarget(p, i, f),
		rot:   geom.QuatFromEuler(e),
		scale: p.base[i],
	}
}

func resolveBauble(p *Population, i int, f *frame) target {
	return target{
		pos:   scatterTarget(p, i, f),
		rot:   geom.Identity(),
		scale: p.base[i],
	}
}

func resolveStar(p *Population, i int, f *frame) target {
	p.phase[i] = wrapAngle(p.phase[i] + f.delta*p.selfSpin)
	scale := p.base[i]
	if f.mode.Chaotic() {
		scale *= 1.5
	}
	return target{
		pos:   scatterTarget(p, i, f),
		rot:   geom.QuatFromYawPitch(p.phase[i], 0),
		scale: scale,
	}
}

// resolvePhoto places cards without a group yaw: scattered cards orbit with
// the hand but keep their own tilt, formed cards face outward from the trunk.
func resolvePhoto(p *Population, i int, f *frame) target {
	if f.mode == scene.ModePhotoZoom && f.active != "" && p.ids[i] == f.active {
		return target{pos: f.zoomPos, rot: f.zoomRot, scale: f.zoomScale, alpha: f.zoomAlpha}
	}

	if f.mode.Chaotic() {
		scale := float32(photoChaosScale)
		if f.mode == scene.ModePhotoZoom {
			scale = photoAwayScale
		}
		return target{
			pos:     p.chaos[i].RotateY(f.hand),
			rot:     geom.QuatFromEuler(p.euler[i]),
			scale:   scale,
			breathe: f.mode == scene.ModeChaos,
		}
	}

	pos := p.tree[i]
	return target{
		pos:   pos,
		rot:   geom.QuatFromYawPitch(math32.Atan2(pos.X, pos.Z), 0),
		scale: photoTreeScale,
	}
}

func bobPhoto(i int, elapsed float32) geom.Vec3 {
	return geom.V3(0, math32.Sin(0.5*elapsed+float32(i))*breathAmplitude, 0)
}

// wrapAngle maps a into (-π, π]. Values already in range are returned
// unchanged.
func wrapAngle(a float32) float32 {
	for a > math32.Pi {
		a -= 2 * math32.Pi
	}
	for a <= -math32.Pi {
		a += 2 * math32.Pi
	}
	return a
}
