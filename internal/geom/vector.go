// Package geom provides the float32 vector and rotation types shared by the
// particle engine, and the random point generators used to build target
// shapes.
package geom

import "github.com/chewxy/math32"

// Vec3 is a point or direction in scene space.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// V3 is shorthand for building a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Len returns the Euclidean length of v.
func (v Vec3) Len() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dist returns the distance between v and o.
func (v Vec3) Dist(o Vec3) float32 {
	return v.Sub(o).Len()
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// RotateY rotates v about the Y axis by angle radians, keeping its
// horizontal radius.
func (v Vec3) RotateY(angle float32) Vec3 {
	if angle == 0 {
		return v
	}
	radius := math32.Sqrt(v.X*v.X + v.Z*v.Z)
	a := math32.Atan2(v.Z, v.X) + angle
	return Vec3{math32.Cos(a) * radius, v.Y, math32.Sin(a) * radius}
}

// Lerp moves a toward b by t. t >= 1 lands exactly on b so that a converged
// value is a fixed point.
func Lerp(a, b, t float32) float32 {
	if t >= 1 {
		return b
	}
	if t <= 0 {
		return a
	}
	return a + (b-a)*t
}

// LerpVec3 interpolates each component of a toward b by t.
func LerpVec3(a, b Vec3, t float32) Vec3 {
	return Vec3{Lerp(a.X, b.X, t), Lerp(a.Y, b.Y, t), Lerp(a.Z, b.Z, t)}
}
