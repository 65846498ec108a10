package geom

import (
	"math"

	"github.com/chewxy/math32"
)

const twoPi = float32(2 * math.Pi)

// Rand is the random source the generators draw from. *math/rand/v2.Rand
// satisfies it; tests seed one for reproducible shapes.
type Rand interface {
	// Float32 returns a value in [0, 1).
	Float32() float32
}

// SpherePoint returns a point uniformly distributed by volume inside a
// sphere of the given radius centred on the origin.
//
// The polar angle is drawn as acos(2v-1) so that directions are uniform on
// the sphere rather than clustered at the poles, and the radius as
// cbrt(w)*radius so that density is uniform through the volume.
func SpherePoint(r Rand, radius float32) Vec3 {
	theta := twoPi * r.Float32()
	phi := math32.Acos(2*r.Float32() - 1)
	d := math32.Cbrt(r.Float32()) * radius

	sinPhi := math32.Sin(phi)
	return Vec3{
		X: d * sinPhi * math32.Cos(theta),
		Y: d * sinPhi * math32.Sin(theta),
		Z: d * math32.Cos(phi),
	}
}

// ConePoint returns a point inside an apex-up cone of the given height and
// base radius whose base sits at yOffset.
//
// The radial offset is sqrt-scaled inside the disk at each height, which
// gives a fuller edge than linear sampling.
func ConePoint(r Rand, height, baseRadius, yOffset float32) Vec3 {
	y := r.Float32() * height
	maxRadius := (1 - y/height) * baseRadius
	angle := r.Float32() * twoPi
	d := maxRadius * math32.Sqrt(r.Float32())

	return Vec3{
		X: math32.Cos(angle) * d,
		Y: y + yOffset,
		Z: math32.Sin(angle) * d,
	}
}
